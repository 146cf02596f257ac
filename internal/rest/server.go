// Package rest exposes the engine's operations over HTTP. It is the thin
// CRUD facade in front of the core: handlers decode JSON, call the engine,
// and map engine error kinds to status codes.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ambardb/ambar/internal/engine"
)

// Server is the HTTP facade over an Engine.
type Server struct {
	engine *engine.Engine
	log    *zap.Logger
	router chi.Router
}

// NewServer builds the facade and its route table.
func NewServer(eng *engine.Engine, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{engine: eng, log: log}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/collections", func(r chi.Router) {
		r.Get("/", s.handleListCollections)
		r.Route("/{collection}", func(r chi.Router) {
			r.Delete("/", s.handleDropCollection)
			r.Post("/indexes", s.handleCreateIndex)
			r.Post("/query", s.handleQuery)
			r.Post("/count", s.handleCount)
			r.Post("/documents", s.handleCreate)
			r.Route("/documents/{id}", func(r chi.Router) {
				r.Get("/", s.handleRead)
				r.Put("/", s.handleUpdate)
				r.Delete("/", s.handleDelete)
			})
		})
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
