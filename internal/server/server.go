// Package server hosts the stub endpoints the nomination form posts to. They
// mirror the original serverless functions: accept a write, acknowledge it
// with a generated reference code, and validate nothing. Anything but POST
// gets a method-not-allowed response.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Config holds server configuration.
type Config struct {
	Addr            string
	ReferencePrefix string
	AllowAllOrigins bool
}

// Server exposes the submission, PDF, and email stubs over HTTP.
type Server struct {
	cfg        Config
	log        zerolog.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a Server with its routes configured.
func New(cfg Config, log zerolog.Logger) *Server {
	if cfg.ReferencePrefix == "" {
		cfg.ReferencePrefix = "RARE"
	}
	s := &Server{cfg: cfg, log: log}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	corsOpts := cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}
	if s.cfg.AllowAllOrigins {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{
			"success": false,
			"error":   "Method not allowed",
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/api/submit-nomination", s.handleSubmit)
	r.Post("/api/generate-pdf", s.handleGeneratePDF)
	r.Post("/api/send-email", s.handleSendEmail)

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured address.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.log.Info().Str("addr", s.cfg.Addr).Msg("submission server listening")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// handleSubmit acknowledges a nomination. JSON-labeled bodies are parsed so
// the payload shape is logged; anything else is kept as opaque text. Either
// way the response is a success with a fresh reference code.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "could not read request body",
		})
		return
	}

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err == nil {
			s.log.Info().Int("fields", len(payload)).Msg("nomination received")
		} else {
			s.log.Warn().Err(err).Msg("nomination body labeled json but unparseable")
		}
	} else {
		s.log.Info().Int("bytes", len(body)).Str("contentType", contentType).
			Msg("nomination received as raw text")
	}

	reference := newReference(s.cfg.ReferencePrefix, time.Now())
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"referenceNumber": reference,
	})
}

func (s *Server) handleGeneratePDF(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r.Body, 1<<20))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "PDF generation is handled client-side; nothing to do",
	})
}

func (s *Server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r.Body, 1<<20))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "email delivery is not configured in this environment",
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
