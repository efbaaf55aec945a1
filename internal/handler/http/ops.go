// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"net/http"

	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/utils"
)

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type outboxResponse struct {
	PendingCount int      `json:"pending_count"`
	IDs          []string `json:"ids"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// health answers 200 while the local database answers pings and 503
// otherwise.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	if err := h.storage.Ping(r.Context()); err != nil {
		log.Err(err).Str("func", "*Handler.health").Msg("local database is unreachable")
		utils.WriteJSON(w, healthResponse{Status: "unavailable", Error: err.Error()}, http.StatusServiceUnavailable)
		return
	}

	utils.WriteJSON(w, healthResponse{Status: "ok"}, http.StatusOK)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, h.engine.Status(), http.StatusOK)
}

// outbox lists pending change record ids in send order.
func (h *Handler) outbox(w http.ResponseWriter, r *http.Request) {
	status := h.engine.Status()

	ids := status.PendingIDs
	if ids == nil {
		ids = []string{}
	}
	utils.WriteJSON(w, outboxResponse{PendingCount: status.PendingCount, IDs: ids}, http.StatusOK)
}

func (h *Handler) hydrate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	if err := h.engine.Hydrate(r.Context()); err != nil {
		log.Err(err).Str("func", "*Handler.hydrate").Msg("on-demand hydration failed")
		utils.WriteJSON(w, errorResponse{Error: err.Error()}, statusFromError(err))
		return
	}

	log.Info().Str("func", "*Handler.hydrate").Msg("on-demand hydration finished")
	utils.WriteJSON(w, h.engine.Status(), http.StatusOK)
}
