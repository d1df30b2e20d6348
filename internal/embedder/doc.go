// Package embedder turns paper abstracts and queries into the two vectors the
// index searches: a dense vector compared by cosine similarity and a sparse
// term-weight vector compared by inner product.
//
// # Basic Usage
//
//	emb, err := embedder.New(ctx, embedder.Config{Provider: "local"})
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	e, err := emb.Embed(ctx, "sparse retrieval for scientific text")
//	fmt.Println(len(e.Dense), len(e.Sparse))
//
// # Providers
//
//   - local: feature-hashed dense vectors and token-count sparse weights.
//     Offline and deterministic; useful for tests and small corpora.
//   - http: a BGE-M3 style server returning dense and sparse vectors from
//     one POST /embed call.
//   - openai: OpenAI embeddings for dense; sparse weights computed locally.
//   - bedrock: Amazon Titan Text Embeddings v2 for dense; sparse locally.
//
// Remote providers retry transient failures with the injected retry.Policy.
// Client errors (4xx other than 429) are not retried.
//
// # Caching
//
// New wraps the provider in a content-hash cache: an in-process LRU by
// default, or Redis when several processes share one corpus. Batch calls only
// send cache misses to the provider.
package embedder
