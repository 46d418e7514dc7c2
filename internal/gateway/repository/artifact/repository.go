package artifact

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// Store persists files grouped by run id.
type Store interface {
	Put(ctx context.Context, runID, name string, content []byte) error
	Get(ctx context.Context, runID, name string) ([]byte, error)
	List(ctx context.Context, runID string) ([]string, error)
}

var ErrNotFound = errors.New("artifact not found")

// cleanKey validates and normalizes a run id and file name.
func cleanKey(runID, name string) (string, string, error) {
	runID = strings.TrimSpace(runID)
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if runID == "" {
		return "", "", fmt.Errorf("run_id is required")
	}
	if strings.Contains(runID, "/") {
		return "", "", fmt.Errorf("run_id %q must not contain '/'", runID)
	}
	if name == "" {
		return "", "", fmt.Errorf("name is required")
	}
	return runID, name, nil
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".html":
		return "text/html; charset=utf-8"
	}
	return "application/octet-stream"
}
