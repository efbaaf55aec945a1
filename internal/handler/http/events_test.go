package http

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-sync-engine/internal/hub"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/models"
)

func TestStreamEvents(t *testing.T) {
	events := hub.New(logger.Nop())
	defer events.Close()

	services := Services{Engine: &stubEngine{}, Storage: stubPinger{}, Events: events}
	srv := httptest.NewServer(NewHandler(services, models.AppBuildInfo{}, logger.Nop()).Init())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// the subscription exists once the headers arrive
	events.Publish(ctx, models.NewEvent(models.EventOutboxStatus, models.OutboxStatusPayload{IsEmpty: true}))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: outboxStatus\n", line)

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "data: "))

	var got struct {
		Name    models.EventName           `json:"name"`
		Payload models.OutboxStatusPayload `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &got))
	assert.Equal(t, models.EventOutboxStatus, got.Name)
	assert.True(t, got.Payload.IsEmpty)

	// closing the hub ends the stream
	events.Close()
	rest, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "\n", string(rest))
}
