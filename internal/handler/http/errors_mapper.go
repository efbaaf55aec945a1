package http

import (
	"errors"
	"net/http"

	"github.com/MKhiriev/go-sync-engine/internal/adapter"
	"github.com/MKhiriev/go-sync-engine/internal/service"
	"github.com/MKhiriev/go-sync-engine/internal/store"
	"github.com/MKhiriev/go-sync-engine/models"
)

var errorStatusMap = map[error]int{
	service.ErrHydrationInProgress: http.StatusConflict,
	service.ErrEngineNotRunning:    http.StatusServiceUnavailable,

	service.ErrModelScheduledForDeletion: http.StatusConflict,
	service.ErrUnsupportedMutation:       http.StatusBadRequest,

	models.ErrUnknownModel: http.StatusNotFound,
	store.ErrModelNotFound: http.StatusNotFound,
	store.ErrInvalidModel:  http.StatusBadRequest,
	ErrInvalidPayload:      http.StatusBadRequest,
	ErrInvalidQuery:        http.StatusBadRequest,

	adapter.ErrBadRequest:          http.StatusBadGateway,
	adapter.ErrUnauthorized:        http.StatusBadGateway,
	adapter.ErrForbidden:           http.StatusBadGateway,
	adapter.ErrNotFound:            http.StatusBadGateway,
	adapter.ErrTooManyRequests:     http.StatusBadGateway,
	adapter.ErrInternalServerError: http.StatusBadGateway,
	adapter.ErrBadGateway:          http.StatusBadGateway,
	adapter.ErrGraphQL:             http.StatusBadGateway,
	adapter.ErrMalformedResponse:   http.StatusBadGateway,
	adapter.ErrUnavailable:         http.StatusServiceUnavailable,

	store.ErrBuildingSQLQuery:     http.StatusInternalServerError,
	store.ErrExecutingQuery:       http.StatusInternalServerError,
	store.ErrBeginningTransaction: http.StatusInternalServerError,
	store.ErrCommitingTransaction: http.StatusInternalServerError,
	store.ErrExecutingStatement:   http.StatusInternalServerError,
	store.ErrScanningRow:          http.StatusInternalServerError,
	store.ErrScanningRows:         http.StatusInternalServerError,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}
