package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "unavailable", err: fmt.Errorf("x: %w", ErrUnavailable), want: true},
		{name: "throttled", err: ErrTooManyRequests, want: true},
		{name: "5xx", err: ErrInternalServerError, want: true},
		{name: "bad gateway", err: ErrBadGateway, want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "conflict", err: &ConflictError{}, want: false},
		{name: "unauthorized", err: ErrUnauthorized, want: false},
		{name: "canceled", err: context.Canceled, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestMapGraphQLError(t *testing.T) {
	tests := []struct {
		name   string
		gqlErr graphQLError
		want   error
	}{
		{name: "conditional check", gqlErr: graphQLError{ErrorType: "DynamoDB:ConditionalCheckFailedException"}, want: ErrConflict},
		{name: "unauthorized", gqlErr: graphQLError{ErrorType: "Unauthorized"}, want: ErrUnauthorized},
		{name: "throttled", gqlErr: graphQLError{ErrorType: "DynamoDB:ThrottlingException"}, want: ErrTooManyRequests},
		{name: "validation", gqlErr: graphQLError{ErrorType: "ValidationError"}, want: ErrBadRequest},
		{name: "other", gqlErr: graphQLError{ErrorType: "Whatever", Message: "boom"}, want: ErrGraphQL},
		{name: "untyped", gqlErr: graphQLError{Message: "boom"}, want: ErrGraphQL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapGraphQLError("Post", tt.gqlErr), tt.want)
		})
	}
}

func TestMapGraphQLError_ConflictCarriesRemote(t *testing.T) {
	err := mapGraphQLError("Post", graphQLError{
		ErrorType: "ConflictUnhandled",
		Message:   "Conflict resolver rejects mutation.",
		Data:      json.RawMessage(`{"id":"p1","title":"server","_version":5,"_deleted":false,"_lastChangedAt":10}`),
	})

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	require.NotNil(t, conflict.Remote)
	assert.Equal(t, int64(5), conflict.Remote.Metadata.Version)
	assert.Contains(t, err.Error(), "version 5")

	remote, ok := IsConflict(err)
	assert.True(t, ok)
	assert.Same(t, conflict.Remote, remote)
}

func TestMapGraphQLError_ConflictBadData(t *testing.T) {
	err := mapGraphQLError("Post", graphQLError{ErrorType: "ConflictUnhandled", Data: json.RawMessage(`{"title":"x"}`)})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
