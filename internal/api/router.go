package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)

	r.Get("/healthz", handler.Healthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/predict", handler.Predict)
		r.Post("/analyze", handler.Analyze)
		r.Get("/policy", handler.GetPolicy)
		r.Get("/models", handler.GetModels)

		r.Post("/datasets", handler.UploadDataset)
		r.Get("/datasets", handler.ListDatasets)
		r.Get("/datasets/{id}", handler.GetDataset)
		r.Get("/compare", handler.Compare)
	})

	return r
}
