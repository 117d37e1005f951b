// Package server provides the HTTP API for the RAG backend.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sauzanniraula/rag-backend/internal/config"
	"github.com/sauzanniraula/rag-backend/internal/models"
)

// Ingester loads an uploaded document into the vector index.
type Ingester interface {
	IngestFile(ctx context.Context, filename string, content []byte, strategy string) (*models.IngestResult, error)
}

// Chatter answers one chat query for a session.
type Chatter interface {
	Chat(ctx context.Context, sessionID, query string) (string, error)
}

// Server is the HTTP server for the RAG API.
type Server struct {
	ingester Ingester
	chatter  Chatter
	config   *config.ServerConfig
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(ingester Ingester, chatter Chatter, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		ingester: ingester,
		chatter:  chatter,
		config:   cfg,
		logger:   logger,
	}
}

// Handler returns the router with all middleware and routes mounted. Requests carry no
// deadline of their own; only the external clients' timeouts bound a chat or upload.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Post("/Upload_Document", s.handleUploadDocument)
	r.Post("/Chat", s.handleChat)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.readTimeout(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// readTimeout bounds reading a request body such as an upload.
func (s *Server) readTimeout() time.Duration {
	if s.config.TimeoutSecond <= 0 {
		return 60 * time.Second
	}
	return time.Duration(s.config.TimeoutSecond) * time.Second
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// accessLog logs one line per request through zap.
func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("remote", r.RemoteAddr))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
