package types

import "errors"

// Domain errors for type validation
var (
	ErrEmptyQuery    = errors.New("query cannot be empty")
	ErrMissingID     = errors.New("missing or empty id")
	ErrInvalidLimit  = errors.New("limit must be >= 1")
	ErrUnknownPolicy = errors.New("unknown fusion policy")
	ErrInvalidSpan   = errors.New("span end must not precede start")
)
