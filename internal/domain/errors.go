package domain

import "errors"

var (
	// ErrEmptyInput signals that no text could be extracted or supplied.
	ErrEmptyInput = errors.New("empty input")
	// ErrUnsupportedFormat signals an unrecognised document type.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrProviderUnavailable signals an embedding provider failure.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
	// ErrNotFound signals a missing document.
	ErrNotFound = errors.New("not found")
	// ErrInvalidParameter signals an out-of-range request parameter.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)
