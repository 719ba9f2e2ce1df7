package extract

import "errors"

// Sentinel kinds for extraction failures. Both mark a single match as
// skippable, never a batch as failed.
var (
	ErrMalformedMatch = errors.New("malformed match payload")
	ErrRemake         = errors.New("match was a remake")
)
