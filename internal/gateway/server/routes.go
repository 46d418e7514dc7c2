package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pagecopy/internal/gateway/handler"
	"pagecopy/internal/gateway/handler/rpc"
	"pagecopy/internal/gateway/middleware"
)

func NewMux(
	copyHandler *rpc.CopyHandler,
	streamHandler *rpc.GenerateStreamHandler,
	debugHandler *handler.DebugHandler,
	corsOrigins []string,
) http.Handler {
	mux := http.NewServeMux()

	// RPC Handlers
	mux.Handle(rpc.NewCopyServiceHandler(copyHandler))
	mux.HandleFunc("/ws/generate", streamHandler.HandleGenerateWS)

	// Operational Handlers
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", debugHandler.HandleHealth)
	mux.HandleFunc("/debug/run-files", debugHandler.HandleRunFiles)

	// Middleware
	return middleware.CORS(corsOrigins)(mux)
}
