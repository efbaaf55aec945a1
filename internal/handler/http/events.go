package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MKhiriev/go-sync-engine/internal/logger"
)

const eventStreamBuffer = 64

// streamEvents writes engine events as server-sent events until the client
// disconnects or the event hub closes. A slow client misses events instead
// of holding the engine back.
func (h *Handler) streamEvents(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)
	rc := http.NewResponseController(w)

	events, cancel := h.events.Subscribe(eventStreamBuffer)
	defer cancel()

	// streams outlive the server's write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		log.Err(err).Str("func", "*Handler.streamEvents").Msg(ErrStreamingUnsupported.Error())
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				log.Err(err).Str("func", "*Handler.streamEvents").Str("event", string(e.Name)).Msg("error encoding event")
				continue
			}
			if _, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Name, data); err != nil {
				return
			}
			if err = rc.Flush(); err != nil {
				return
			}
		}
	}
}
