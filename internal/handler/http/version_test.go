package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/models"
)

func TestGetVersion_WritesVersion(t *testing.T) {
	for _, want := range []string{"1.2.3", "v2.0.0-beta+build.42", "N/A"} {
		h := NewHandler(Services{Engine: &stubEngine{}, Storage: stubPinger{}}, models.NewAppBuildInfo(want, "", ""), logger.Nop())

		rec := httptest.NewRecorder()
		h.getVersion(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, want, rec.Body.String())
		// Handler writes plain text, so Content-Type must NOT be application/json.
		assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	}
}
