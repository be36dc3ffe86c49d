// Package httpapi exposes a bound storage backend over REST, plus a
// server-sent-events stream for document watches.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/driftbase/driftdb/internal/docstore"
)

type Server struct {
	storage docstore.Storage
	router  *mux.Router
}

func NewServer(storage docstore.Storage) *Server {
	s := &Server{
		storage: storage,
		router:  mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(requestLogger)
	s.router.HandleFunc("/v1/c/{collection}/{id}/watch", s.handleWatchDoc).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/c/{collection}/{id}", s.handleSet).Methods(http.MethodPut)
	s.router.HandleFunc("/v1/c/{collection}/{id}", s.handleUpdate).Methods(http.MethodPatch)
	s.router.HandleFunc("/v1/c/{collection}/{id}", s.handleDelete).Methods(http.MethodDelete)
	s.router.HandleFunc("/v1/c/{collection}/{id}", s.handleGet).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/c/{collection}/query", s.handleQuery).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/c/{collection}", s.handleGetAll).Methods(http.MethodGet)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Debug("handled request")
	})
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	data, err := decodeDocument(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.storage.Set(v["collection"], v["id"], data); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	data, err := decodeDocument(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.storage.Update(v["collection"], v["id"], data); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	if err := s.storage.Delete(v["collection"], v["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	doc, ok, err := s.storage.Get(v["collection"], v["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}
	writeJSON(w, doc.ToGo())
}

func (s *Server) handleGetAll(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	docs, err := s.storage.GetAll(v["collection"])
	if err != nil {
		writeError(w, err)
		return
	}
	out := make(map[string]interface{}, len(docs))
	for id, doc := range docs {
		out[id] = doc.ToGo()
	}
	writeJSON(w, out)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, "invalid filter body", http.StatusBadRequest)
		return
	}
	where, err := docstore.FromGoWhere(raw)
	if err != nil {
		writeError(w, err)
		return
	}
	matches, err := s.storage.Query(v["collection"], where)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(matches))
	for _, m := range matches {
		row := m.Doc.ToGo()
		row["id"] = m.ID
		out = append(out, row)
	}
	writeJSON(w, out)
}

// handleWatchDoc streams document events as server-sent events until the
// client disconnects.
func (s *Server) handleWatchDoc(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	sub, err := s.storage.WatchDoc(v["collection"], v["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	defer sub.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case ev, open := <-sub.C():
			if !open {
				return
			}
			payload, err := json.Marshal(map[string]interface{}{
				"collection": ev.Collection,
				"id":         ev.ID,
				"exists":     ev.Exists,
				"doc":        ev.Doc.ToGo(),
			})
			if err != nil {
				log.WithError(err).Warn("failed to encode watch event")
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func decodeDocument(r *http.Request) (docstore.Document, error) {
	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, errors.Wrap(docstore.ErrDataInvalid, err.Error())
	}
	return docstore.FromGoDocument(raw)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, docstore.ErrCollectionEmpty),
		errors.Is(err, docstore.ErrDocIDEmpty),
		errors.Is(err, docstore.ErrDataInvalid),
		errors.Is(err, docstore.ErrValueUnsupported):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
