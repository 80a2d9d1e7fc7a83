// Package api serves the reports over HTTP.
//
// Every report runs inside a session: the operator creates a session, uploads
// extracts to a report route, and can then download or publish the last
// result. The NPA route derives from the session's maturity report and
// answers 409 when none exists yet.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"growth-analyzer/internal/analyzer"
	"growth-analyzer/internal/models"
	"growth-analyzer/internal/publisher"
	"growth-analyzer/internal/reporter"
	"growth-analyzer/internal/session"
	"growth-analyzer/pkg/errors"
	"growth-analyzer/pkg/logger"
)

// Config holds the API server configuration
type Config struct {
	Addr string `mapstructure:"addr"`
	// MaxUploadBytes caps a whole request body
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DefaultConfig returns the default API configuration
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8080",
		MaxUploadBytes:  128 << 20,
		ReadTimeout:     2 * time.Minute,
		WriteTimeout:    2 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
	}
}

// multipartMemory is the part of a form kept in memory; the rest spills to disk
const multipartMemory = 32 << 20

// Publisher uploads a table to a remote tab
type Publisher interface {
	Publish(ctx context.Context, table *models.Table, tab, password string) (*publisher.Event, error)
}

// Archiver stores a copy of an uploaded extract
type Archiver interface {
	Archive(ctx context.Context, report, name string, data []byte) (string, error)
}

// Option configures a Server
type Option func(*Server)

// WithPublisher enables the publish route
func WithPublisher(p Publisher) Option {
	return func(s *Server) {
		s.publisher = p
	}
}

// WithArchiver archives every uploaded extract
func WithArchiver(a Archiver) Option {
	return func(s *Server) {
		s.archiver = a
	}
}

// Server represents the HTTP API server
type Server struct {
	config    *Config
	analyzer  *analyzer.Service
	sessions  *session.Store
	reports   *reporter.SafeReportGenerator
	publisher Publisher
	archiver  Archiver
	router    *mux.Router
	logger    logger.Logger
}

// New creates a new API server
func New(config *Config, svc *analyzer.Service, sessions *session.Store, reports *reporter.SafeReportGenerator, opts ...Option) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	s := &Server{
		config:   config,
		analyzer: svc,
		sessions: sessions,
		reports:  reports,
		router:   mux.NewRouter(),
		logger:   logger.GetGlobalLogger().WithComponent("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// registerRoutes sets up the API endpoints
func (s *Server) registerRoutes() {
	s.router.Use(s.logRequests)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/growth", s.handleGrowth).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/pending", s.handlePending).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/maturity", s.handleMaturity).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/npa", s.handleNPA).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/download", s.handleDownload).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/publish", s.handlePublish).Methods(http.MethodPost)
}

// Handler returns the http.Handler for the server
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.config.Addr).Info("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down server")
	return srv.Shutdown(shutdownCtx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusCreated, s.sessions.Create())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

// errorBody is the JSON shape of every failed request
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Category   errors.ErrorCategory `json:"category"`
	Code       errors.ErrorCode     `json:"code"`
	Message    string               `json:"message"`
	Suggestion string               `json:"suggestion,omitempty"`
	Warning    bool                 `json:"warning,omitempty"`
}

// writeError answers with the status the error's category maps to
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	analyzerErr, ok := errors.AsAnalyzerError(err)
	if !ok {
		analyzerErr = errors.InternalError(errors.CodeUnexpectedError, r.URL.Path, err)
	}

	log := s.logger.WithError(err).WithFields(logger.Fields{
		"path":     r.URL.Path,
		"category": analyzerErr.Category,
		"code":     analyzerErr.Code,
	})
	if analyzerErr.Category == errors.CategoryInternal {
		log.Error("Request failed")
	} else {
		log.Warn("Request rejected")
	}

	writeJSON(w, analyzerErr.HTTPStatus(), errorBody{Error: errorDetail{
		Category:   analyzerErr.Category,
		Code:       analyzerErr.Code,
		Message:    analyzerErr.Message,
		Suggestion: analyzerErr.Suggestion,
		Warning:    analyzerErr.IsWarning(),
	}})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.WithFields(logger.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Debug("Request served")
	})
}
