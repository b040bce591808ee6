// Package api serves run records and their artifacts over HTTP so a
// host application or browser can inspect past classifications.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/terralytics/landcover/internal/monitoring"
	"github.com/terralytics/landcover/internal/runstore"
	"github.com/terralytics/landcover/internal/security"
)

// Server exposes the run store and artifact directories.
type Server struct {
	store *runstore.Store
	log   monitoring.LogFunc
}

// NewServer builds a server over the given run store.
func NewServer(store *runstore.Store, logf monitoring.LogFunc) *Server {
	return &Server{store: store, log: logf.OrDefault()}
}

// ServeMux returns the route table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/runs", s.listRuns)
	mux.HandleFunc("/api/runs/", s.runSubtree)
	mux.HandleFunc("/healthz", s.health)
	return mux
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v < 1 {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", q))
			return
		}
		limit = v
	}

	runs, err := s.store.ListRuns(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("list runs: %v", err))
		return
	}
	if runs == nil {
		runs = []*runstore.Run{}
	}
	s.writeJSON(w, runs)
}

// runSubtree dispatches /api/runs/{id} and /api/runs/{id}/artifacts/{name}.
func (s *Server) runSubtree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	parts := strings.SplitN(rest, "/", 3)

	run, err := s.store.GetRun(parts[0])
	if errors.Is(err, runstore.ErrRunNotFound) {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("get run: %v", err))
		return
	}

	switch {
	case len(parts) == 1:
		s.writeJSON(w, run)
	case len(parts) == 3 && parts[1] == "artifacts":
		s.serveArtifact(w, r, run, parts[2])
	default:
		s.writeError(w, http.StatusNotFound, "unknown resource")
	}
}

// serveArtifact streams one artifact file from the run's output
// directory. The name is sanitized and the resolved path revalidated
// against the output directory, so request paths cannot reach outside
// it.
func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, run *runstore.Run, name string) {
	if run.OutputDir == "" {
		s.writeError(w, http.StatusNotFound, "run has no artifacts")
		return
	}

	safe := security.SanitizeFilename(name)
	path := filepath.Join(run.OutputDir, safe)
	if err := security.ValidatePathWithinDirectory(path, run.OutputDir); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid artifact name")
		return
	}
	if _, err := os.Stat(path); err != nil {
		s.writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log(fmt.Sprintf("encode response: %v", err), monitoring.SeverityError)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
