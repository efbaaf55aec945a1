package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-sync-engine/models"
)

var (
	ErrBadRequest          = errors.New("bad request")
	ErrUnauthorized        = errors.New("client unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("version conflict")
	ErrTooManyRequests     = errors.New("too many requests")
	ErrInternalServerError = errors.New("internal server error")
	ErrBadGateway          = errors.New("bad gateway")
	ErrUnavailable         = errors.New("remote unavailable")

	// ErrGraphQL wraps errors reported in the GraphQL "errors" array that
	// have no more specific mapping.
	ErrGraphQL = errors.New("graphql error")

	// ErrMalformedResponse is returned when a response cannot be decoded
	// into the expected shape.
	ErrMalformedResponse = errors.New("malformed remote response")
)

// ConflictError is returned when the remote rejects a mutation because the
// expected version is stale. Remote carries the server's current record when
// the response included it.
type ConflictError struct {
	Remote  *models.ModelWithMetadata
	Message string
}

func (e *ConflictError) Error() string {
	if e.Remote != nil {
		return fmt.Sprintf("%s: remote %s is at version %d", ErrConflict, e.Remote.Identity(), e.Remote.Metadata.Version)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", ErrConflict, e.Message)
	}
	return ErrConflict.Error()
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// IsRetryable reports whether err is a transient failure worth retrying with
// backoff: transport errors, throttling, 5xx and timeouts.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, ErrTooManyRequests),
		errors.Is(err, ErrInternalServerError),
		errors.Is(err, ErrBadGateway),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}
	return false
}
