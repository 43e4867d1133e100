package router

import (
	"net/http"

	"batchmark/internal/http-server/handler/batch"
	"batchmark/internal/http-server/middleware"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	BatchHandler *batch.BatchHandler
}

func SetupRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RecoveryMiddleware)
	r.Use(middleware.LoggingMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Route("/batches", func(r chi.Router) {
			r.Post("/", h.BatchHandler.SubmitBatch)
			r.Get("/", h.BatchHandler.ListBatches)
			r.Get("/{id}", h.BatchHandler.GetBatch)
			r.Get("/{id}/failures", h.BatchHandler.ListFailures)
		})

		r.Post("/preview", h.BatchHandler.Preview)

		r.Route("/templates", func(r chi.Router) {
			r.Post("/", h.BatchHandler.SaveTemplate)
			r.Get("/", h.BatchHandler.ListTemplates)
			r.Get("/{name}", h.BatchHandler.GetTemplate)
			r.Delete("/{name}", h.BatchHandler.DeleteTemplate)
		})

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})
	})

	return r
}
