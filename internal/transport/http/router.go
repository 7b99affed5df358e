package http

import (
	"encoding/json"
	"net/http"

	"pack-quiz/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the health check, the read-only catalog and the quiz socket.
func NewRouter(ws *WSHandler, catalog []domain.CatalogEntry) http.Handler {
	if catalog == nil {
		catalog = []domain.CatalogEntry{}
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/api/packs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(catalog)
	})
	r.Get("/ws", ws.ServeWS)
	return r
}
