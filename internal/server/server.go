// Package server exposes the detection pipeline over HTTP: clients POST a
// raw binary point stream and receive the JSON plane report.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/surface-data/planedetect/internal/cloud"
	"github.com/surface-data/planedetect/internal/pipeline"
	"github.com/surface-data/planedetect/internal/reportdb"
	"github.com/surface-data/planedetect/internal/version"
)

// Config holds the server settings.
type Config struct {
	Address string
	Params  pipeline.Params // base detection parameters for every request
	Archive *reportdb.DB    // optional run archive, may be nil
}

// Server serves plane-detection requests over HTTP.
type Server struct {
	address string
	params  pipeline.Params
	archive *reportdb.DB
	server  *http.Server
}

// New creates a server from the configuration.
func New(cfg Config) *Server {
	s := &Server{
		address: cfg.Address,
		params:  cfg.Params,
		archive: cfg.Archive,
	}
	s.server = &http.Server{
		Addr:    s.address,
		Handler: s.Routes(),
	}
	return s
}

// Routes returns the HTTP handler. Exposed for httptest.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/planes", s.handlePlanes)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start runs the server until ctx is cancelled, then shuts it down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		log.Printf("listening on %s", s.address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		return s.server.Close()
	}
	return nil
}

// handlePlanes runs a detection over the raw binary request body.
// Query parameters width and height give the raster dimensions; the body
// must contain exactly width*height point records.
func (s *Server) handlePlanes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reqID := uuid.NewString()

	width, err := positiveIntParam(r, "width")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	height, err := positiveIntParam(r, "height")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	expected := width * height * cloud.RecordSize
	if len(body) != expected {
		http.Error(w,
			fmt.Sprintf("binary data size mismatch: got %d bytes, expected %d bytes", len(body), expected),
			http.StatusBadRequest)
		return
	}

	start := time.Now()
	report, err := pipeline.Run(bytes.NewReader(body), width, height, s.params)
	if err != nil {
		var trunc *cloud.TruncatedInputError
		if errors.As(err, &trunc) {
			// Cannot happen once the byte count matched, but classify it
			// as a client error if it ever does.
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("[%s] detection failed: %v", reqID, err)
		http.Error(w, "plane detection failed", http.StatusInternalServerError)
		return
	}
	log.Printf("[%s] %dx%d -> %d planes in %v", reqID, width, height, len(report), time.Since(start).Round(time.Millisecond))

	if s.archive != nil {
		if runID, err := s.archive.RecordRun(width, height, s.params.Resolve(), report); err != nil {
			log.Printf("[%s] run archive write failed: %v", reqID, err)
		} else {
			log.Printf("[%s] archived as run %s", reqID, runID)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := report.WriteJSON(w); err != nil {
		log.Printf("[%s] response write failed: %v", reqID, err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "planedetect", "version": "%s", "timestamp": "%s"}`,
		version.String(), time.Now().UTC().Format(time.RFC3339))
}

func positiveIntParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("missing required query parameter %q", name)
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("query parameter %q must be a positive integer", name)
	}
	return v, nil
}
