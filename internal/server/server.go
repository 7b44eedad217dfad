package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

type Options struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	CORS              bool
	Metrics           bool
	UpdateSource      UpdateSource
	// WriteRate is the sustained number of write requests per second allowed
	// per client. Zero disables limiting.
	WriteRate  float64
	WriteBurst int
}

type Server struct {
	store           ShowStore
	log             *zap.Logger
	validate        *validator.Validate
	updateSource    UpdateSource
	cors            bool
	limiter         *RateLimiter
	shutdownTimeout time.Duration
	handler         http.Handler
	http            *http.Server
}

func New(opts Options, store ShowStore, logger *zap.Logger) (*Server, error) {
	if store == nil {
		return nil, errors.New("server: store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		store:           store,
		log:             logger,
		validate:        newValidator(),
		updateSource:    opts.UpdateSource,
		cors:            opts.CORS,
		shutdownTimeout: opts.ShutdownTimeout,
	}
	if s.updateSource == "" {
		s.updateSource = UpdateFromBody
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 3 * time.Second
	}
	if opts.WriteRate > 0 {
		s.limiter = NewRateLimiter(opts.WriteRate, opts.WriteBurst)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/mirror/", s.handleMirror)
	mux.HandleFunc("/shows", s.handleShows)
	mux.HandleFunc("/shows/", s.handleShowItems)
	if opts.Metrics {
		mux.Handle("/metrics", promhttp.Handler())
	}

	var handler http.Handler = mux
	handler = s.rateLimitMiddleware(handler)
	if opts.Metrics {
		handler = metricsMiddleware(handler)
	}
	s.handler = s.logMiddleware(handler)

	readHeaderTimeout := opts.ReadHeaderTimeout
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = 10 * time.Second
	}
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s, nil
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) Start() error {
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, "GET")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.log.Warn("health check failed", zap.Error(err))
		s.writeError(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	s.writeData(w, http.StatusOK, "status", "ok")
}
