package node

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

/*
Server exposes the registry over JSON/HTTP. Byte strings (messages,
signatures) are 0x-prefixed hex.

Read-only endpoints:
  POST /messages/verify   { message, signature, signer } -> { valid }
  POST /messages/posted   { message, signer }            -> { posted }
  GET  /messages/events?after=N&limit=M                  -> { events }
  GET  /ledger/root                                      -> { root, count }
  POST /ledger/proof      { message, signer }            -> { root, key, leafIndex, leaf, proof }

Write endpoint:
  POST /messages/post     { message, signature, signer }
    200 { event }              posted, event emitted
    409 { code: 100, error }   message already posted by signer
    422 { code: 101, error }   signature does not recover to signer
    429                        post rate limit exhausted

Operational:
  GET /healthz, GET /metrics
*/

// Server handles HTTP requests for the node
type Server struct {
	node       *Node
	httpServer *http.Server
}

// NewServer creates a new server instance
func NewServer(node *Node, port int) *Server {
	s := &Server{
		node: node,
	}

	mux := http.NewServeMux()

	// Message endpoints
	mux.HandleFunc("/messages/verify", s.instrument("/messages/verify", s.handleVerifyMessage))
	mux.HandleFunc("/messages/post", s.instrument("/messages/post", s.handlePostMessage))
	mux.HandleFunc("/messages/posted", s.instrument("/messages/posted", s.handleIsMessagePosted))
	mux.HandleFunc("/messages/events", s.instrument("/messages/events", s.handleListEvents))

	// Ledger endpoints
	mux.HandleFunc("/ledger/root", s.instrument("/ledger/root", s.handleLedgerRoot))
	mux.HandleFunc("/ledger/proof", s.instrument("/ledger/proof", s.handleLedgerProof))

	// Operational endpoints
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.HandlerFor(node.gatherer, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go func() {
		s.node.logger.Sugar().Infow("Starting HTTP server", "port", s.httpServer.Addr, "network", s.node.registry.Network())
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.node.logger.Sugar().Errorw("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Stop gracefully stops the HTTP server, waiting for in-flight requests
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// GetHandler returns the HTTP handler (for testing)
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts requests per route and status code
func (s *Server) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		if s.node.metrics != nil {
			s.node.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		}
	}
}
