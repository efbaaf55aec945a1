package http

import "errors"

var (
	// ErrInvalidPayload is returned when a model body is not a JSON object.
	ErrInvalidPayload = errors.New("model payload must be a JSON object")

	// ErrInvalidQuery is returned for a where expression that does not
	// compile.
	ErrInvalidQuery = errors.New("invalid query")

	ErrStreamingUnsupported = errors.New("response writer does not support streaming")
)
