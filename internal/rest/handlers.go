package rest

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ambardb/ambar/internal/engine"
)

// createIndexRequest is the body of POST /collections/{collection}/indexes.
type createIndexRequest struct {
	Fields []string `json:"fields"`
	Unique bool     `json:"unique"`
}

// queryRequest is the body of the query and count endpoints.
type queryRequest struct {
	Query  map[string]any `json:"query"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// queryResponse is the body returned by the query endpoint.
type queryResponse struct {
	Documents []engine.Document `json:"documents"`
	Count     int               `json:"count"`
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	names, err := s.engine.ListCollections(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": names})
}

func (s *Server) handleDropCollection(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DropCollection(r.Context(), chi.URLParam(r, "collection")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateIndex(w http.ResponseWriter, r *http.Request) {
	var req createIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	err := s.engine.CreateIndex(r.Context(), chi.URLParam(r, "collection"), req.Fields, req.Unique)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var data engine.Document
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	id, _ := data["id"].(string)
	doc, err := s.engine.Create(r.Context(), chi.URLParam(r, "collection"), data, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	doc, err := s.engine.Read(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var data engine.Document
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	doc, err := s.engine.Update(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"), data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := s.engine.Delete(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	docs, err := s.engine.Find(r.Context(), chi.URLParam(r, "collection"), req.Query,
		engine.FindOptions{Limit: req.Limit, Offset: req.Offset})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []engine.Document{}
	}
	writeJSON(w, http.StatusOK, queryResponse{Documents: docs, Count: len(docs)})
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	n, err := s.engine.Count(r.Context(), chi.URLParam(r, "collection"), req.Query)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}
