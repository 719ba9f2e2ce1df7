package riot

import "errors"

// Sentinel kinds for upstream API failures.
var (
	// ErrNotFound marks a 404 from the upstream API. Callers treat it as
	// "skip and continue", not as a pipeline failure.
	ErrNotFound = errors.New("resource not found upstream")
	// ErrRateLimited marks a request abandoned after exhausting the retry
	// budget on 429 responses.
	ErrRateLimited = errors.New("upstream rate limit not cleared within retry budget")
	// ErrUpstream marks a non-retryable upstream failure (4xx other than
	// 404/429) or a 5xx that survived all retries.
	ErrUpstream = errors.New("upstream request failed")
	// ErrMalformed marks a response body that did not decode.
	ErrMalformed = errors.New("malformed upstream response")
)
