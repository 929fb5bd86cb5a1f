package server

import (
	"net/http"

	"archigen/internal/gateway/handler/rpc"
	"archigen/internal/gateway/middleware"
)

func NewMux(planHandler *rpc.PlanHandler, stateHandler *rpc.StateStreamHandler) http.Handler {
	mux := http.NewServeMux()

	// RPC Handlers
	mux.Handle(planHandler.Handler())

	// Streams
	mux.Handle("/ws/state", stateHandler)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	// Middleware
	return middleware.CORS(mux)
}
