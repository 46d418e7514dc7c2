package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"pagecopy/internal/gateway/repository/artifact"
)

// RunFileLister lists the artifacts archived for a run.
type RunFileLister interface {
	Files(ctx context.Context, runID string) ([]string, error)
}

type DebugHandler struct {
	runs RunFileLister
}

// NewDebugHandler accepts a nil lister when no archive is configured.
func NewDebugHandler(runs RunFileLister) *DebugHandler {
	return &DebugHandler{runs: runs}
}

func (h *DebugHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *DebugHandler) HandleRunFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.runs == nil {
		http.Error(w, "run archive is not configured", http.StatusNotImplemented)
		return
	}
	runID := strings.TrimSpace(r.URL.Query().Get("run_id"))
	if runID == "" {
		http.Error(w, "run_id is required", http.StatusBadRequest)
		return
	}
	files, err := h.runs.Files(r.Context(), runID)
	switch {
	case errors.Is(err, artifact.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if files == nil {
		files = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id": runID,
		"files":  files,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
