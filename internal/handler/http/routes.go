package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID, h.withLogging)

	router.Get("/healthz", h.health)

	router.Route("/api", func(r chi.Router) {
		r.Get("/status", h.status)
		r.Get("/outbox", h.outbox)
		r.Post("/hydrate", h.hydrate)
		r.Get("/version", h.getVersion)

		if h.events != nil {
			r.Get("/events", h.streamEvents)
		}
		if h.models != nil {
			r.Route("/models/{model}", func(r chi.Router) {
				r.Get("/", h.queryModels)
				r.Get("/{id}", h.getModel)
				r.Put("/{id}", h.saveModel)
				r.Delete("/{id}", h.deleteModel)
			})
		}
	})

	return router
}
