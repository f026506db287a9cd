// Package server exposes the document processing pipeline over HTTP.
//
// Three endpoints are served: GET /health for liveness, POST /process for a
// single multipart image upload, and POST /process-batch for up to
// MaxBatchFiles uploads processed concurrently. Batch processing isolates
// failures per file; one bad upload never fails the batch.
package server

import (
	"log"
	"net/http"
	"time"

	"github.com/docsquare/docsquare/internal/pipeline"
	"github.com/docsquare/docsquare/internal/trace"
)

const (
	// MaxBatchFiles caps the number of files accepted per batch request.
	MaxBatchFiles = 20

	// batchWorkers bounds concurrent batch processing.
	batchWorkers = 4

	// maxUploadBytes caps the parsed size of a multipart request body.
	maxUploadBytes = 64 << 20
)

// Server handles HTTP document processing requests.
type Server struct {
	cfg     pipeline.Config
	sink    trace.Sink
	version string
}

// New creates a server that builds a fresh pipeline Processor per request.
// A nil sink disables tracing.
func New(cfg pipeline.Config, sink trace.Sink, version string) *Server {
	if sink == nil {
		sink = trace.NopSink{}
	}
	return &Server{cfg: cfg, sink: sink, version: version}
}

// Handler returns the route multiplexer for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/process", s.handleProcess)
	mux.HandleFunc("/process-batch", s.handleProcessBatch)
	return mux
}

// ListenAndServe runs the HTTP server on addr until it fails.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("Listening on %s", addr)
	return srv.ListenAndServe()
}
