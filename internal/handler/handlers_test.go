package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/handler/http"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/models"
)

type nopEngine struct{}

func (nopEngine) Status() models.EngineStatus     { return models.EngineStatus{} }
func (nopEngine) Hydrate(_ context.Context) error { return nil }
func (nopEngine) Ping(_ context.Context) error    { return nil }

func TestNewHandlers_HTTPAddress(t *testing.T) {
	h, err := NewHandlers(http.Services{Engine: nopEngine{}, Storage: nopEngine{}}, models.AppBuildInfo{}, config.EngineServer{HTTPAddress: ":8080"}, logger.Nop())

	require.NoError(t, err)
	require.NotNil(t, h)
	assert.NotNil(t, h.HTTP, "expected HTTP handler to be initialised")
}

// Without an address no ops endpoint is built.
func TestNewHandlers_NoAddress(t *testing.T) {
	h, err := NewHandlers(http.Services{Engine: nopEngine{}, Storage: nopEngine{}}, models.AppBuildInfo{}, config.EngineServer{}, logger.Nop())

	assert.ErrorIs(t, err, errNoHandlersAreCreated)
	assert.Nil(t, h)
}
