package dist

import "errors"

// Common errors.
var (
	ErrDimensionMismatch = errors.New("element counts differ")
	ErrDTypeMismatch     = errors.New("data types differ")
	ErrInvalidParameters = errors.New("distribution parameters outside valid domain")
	ErrNotParametrized   = errors.New("distribution has no parameters (Refit not called)")
	ErrUnsupportedType   = errors.New("unsupported tensor type")
)
