// ABOUTME: Read-only HTTP status server over runs, audit logs, manifests, and stored artifacts.
// ABOUTME: Exposes JSON endpoints for inspecting in-progress and completed runs.
package pipeline

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/discernus/discernus-sub014/cas"
	"github.com/discernus/discernus-sub014/manifest"
)

// StatusServer serves read-only views of run state. It never mutates runs.
type StatusServer struct {
	store  *cas.Store
	runs   *FSRunStore
	router chi.Router
}

// NewStatusServer builds the server and its routes.
func NewStatusServer(store *cas.Store, runs *FSRunStore) *StatusServer {
	s := &StatusServer{store: store, runs: runs}

	r := chi.NewRouter()
	r.Get("/runs", s.handleListRuns)
	r.Get("/runs/{id}", s.handleGetRun)
	r.Get("/runs/{id}/events", s.handleRunEvents)
	r.Get("/runs/{id}/manifest", s.handleRunManifest)
	r.Get("/artifacts/{digest}", s.handleGetArtifact)

	s.router = r
	return s
}

// ServeHTTP implements the http.Handler interface, delegating to the chi router.
func (s *StatusServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *StatusServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.runs.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *StatusServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *StatusServer) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.runs.Get(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	records, err := ReadAuditLog(s.runs.AuditLogPath(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	filter := AuditFilter{Stage: r.URL.Query().Get("stage")}
	if t := r.URL.Query().Get("type"); t != "" {
		filter.Types = []string{t}
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		filter.Limit = n
	}
	writeJSON(w, http.StatusOK, QueryAudit(records, filter))
}

func (s *StatusServer) handleRunManifest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.runs.Get(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	tracker, err := manifest.LoadFrom(s.runs.ManifestPath(id), s.store.Exists)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tracker.Entries())
}

func (s *StatusServer) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	digest := cas.Digest(chi.URLParam(r, "digest"))
	if err := digest.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payload, err := s.store.Get(digest)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
