package rpc

import (
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"pagecopy/internal/detect"
	"pagecopy/internal/gateway/repository/artifact"
	llmclient "pagecopy/internal/llm/client"
	"pagecopy/internal/orchestrator"
)

var (
	errRunIDRequired = errors.New("runId is required")
	errNoArchive     = errors.New("run archive is not configured")
)

func toCopyError(err error) error {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidRequest), errors.Is(err, detect.ErrEmptyDocument):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, orchestrator.ErrNarrativeNotFound), errors.Is(err, artifact.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	}
	switch llmclient.KindOf(err) {
	case llmclient.KindRateLimit:
		return connect.NewError(connect.CodeResourceExhausted, err)
	case llmclient.KindTimeout:
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case llmclient.KindAuth:
		return connect.NewError(connect.CodeUnauthenticated, err)
	case llmclient.KindNotFound:
		return connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewError(connect.CodeInternal, fmt.Errorf("copy service failed: %w", err))
}

// errorCode is the wire name of the connect code err maps to.
func errorCode(err error) string {
	return connect.CodeOf(toCopyError(err)).String()
}
