package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration covers a missing input file, a missing required
	// column, or a tunable outside its valid range.
	ErrConfiguration = errors.New("configuration error")

	// ErrEmptyVocabulary is returned when frequency filtering removed every term.
	ErrEmptyVocabulary = errors.New("empty vocabulary")

	// ErrInvalidTopicCount is returned when fewer than one topic is requested.
	ErrInvalidTopicCount = errors.New("invalid topic count")
)
