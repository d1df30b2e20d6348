// Package highlight aligns query and document tokens into highlight spans.
//
// A document token is highlighted when its surface form equals the surface of
// any token in the query. Matched token intervals are sorted and merged;
// touching intervals such as "state-of" become one span:
//
//	a := highlight.NewAligner(tokenizer.NewUnicode())
//	spans := a.Align("sparse retrieval", "Dense and sparse retrieval models")
//	// [{10 16 concept} {17 26 concept}]
//
// Render turns merged spans back into marked-up text for display.
package highlight
