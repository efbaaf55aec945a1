package adapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))

	switch resp.StatusCode() {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, body)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, body)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, body)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, body)
	case http.StatusConflict:
		return &ConflictError{Message: body}
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrTooManyRequests, body)
	case http.StatusBadGateway:
		return fmt.Errorf("%w: %s", ErrBadGateway, body)
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", ErrUnavailable, body)
	case http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", ErrInternalServerError, body)
	default:
		if body == "" {
			body = http.StatusText(resp.StatusCode())
		}
		return fmt.Errorf("http %d: %s", resp.StatusCode(), body)
	}
}

// graphQLError is one entry of the response "errors" array. AppSync adds
// errorType and, for conflicts, the server's record in data.
type graphQLError struct {
	Message   string          `json:"message"`
	ErrorType string          `json:"errorType"`
	Data      json.RawMessage `json:"data"`
	Path      []any           `json:"path"`
}

// mapGraphQLError maps the first reported error. modelName is used to decode
// the server record carried by conflict errors.
func mapGraphQLError(modelName string, gqlErr graphQLError) error {
	switch {
	case gqlErr.ErrorType == "ConflictUnhandled":
		conflict := &ConflictError{Message: gqlErr.Message}
		if len(gqlErr.Data) > 0 && string(gqlErr.Data) != "null" {
			remote, err := decodeItem(modelName, gqlErr.Data)
			if err != nil {
				return fmt.Errorf("%w: conflict data: %w", ErrMalformedResponse, err)
			}
			conflict.Remote = &remote
		}
		return conflict
	case strings.Contains(gqlErr.ErrorType, "ConditionalCheckFailed"):
		return &ConflictError{Message: gqlErr.Message}
	case strings.HasPrefix(gqlErr.ErrorType, "Unauthorized"):
		return fmt.Errorf("%w: %s", ErrUnauthorized, gqlErr.Message)
	case strings.Contains(gqlErr.ErrorType, "Throttl"), gqlErr.ErrorType == "LimitExceededException":
		return fmt.Errorf("%w: %s", ErrTooManyRequests, gqlErr.Message)
	case gqlErr.ErrorType == "ValidationError", gqlErr.ErrorType == "MappingTemplate":
		return fmt.Errorf("%w: %s", ErrBadRequest, gqlErr.Message)
	}

	if gqlErr.ErrorType != "" {
		return fmt.Errorf("%w: %s: %s", ErrGraphQL, gqlErr.ErrorType, gqlErr.Message)
	}
	return fmt.Errorf("%w: %s", ErrGraphQL, gqlErr.Message)
}
