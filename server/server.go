package server

import (
	"net/http"
	"time"

	"github.com/foomo/docserver/service"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RateLimit struct {
	Requests int
	Window   time.Duration
}

type Options struct {
	// RedirectURL is where GET / sends visitors.
	RedirectURL    string
	AllowedOrigins []string
	// RateLimit applies to the refresh endpoint only.
	RateLimit RateLimit
	// Registry receives the HTTP metrics. A private registry is created when nil.
	Registry *prometheus.Registry
}

// Server routes documentation requests to the service and shapes the JSON responses.
type Server struct {
	logger  *zap.Logger
	service service.Service
	options Options
	mux     *http.ServeMux
	handler http.Handler
	limiter *rateLimiter
	metrics *metrics
	events  *Events
}

func New(logger *zap.Logger, serviceInstance service.Service, options Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.Registry == nil {
		options.Registry = prometheus.NewRegistry()
	}
	if options.RateLimit.Requests <= 0 {
		options.RateLimit.Requests = 10
	}
	if options.RateLimit.Window <= 0 {
		options.RateLimit.Window = time.Minute
	}

	s := &Server{
		logger:  logger,
		service: serviceInstance,
		options: options,
		mux:     http.NewServeMux(),
		limiter: newRateLimiter(options.RateLimit.Requests, options.RateLimit.Window),
		metrics: newMetrics(options.Registry),
		events:  NewEvents(logger),
	}
	s.routes()
	s.handler = withRequestID(withAccessLog(logger, withCORS(options.AllowedOrigins, s.mux)))
	return s
}

func (s *Server) routes() {
	s.handle("GET /{$}", http.HandlerFunc(s.handleRoot))
	s.handle("GET /api/status/badge", http.HandlerFunc(s.handleBadge))
	s.handle("GET /refresh/{version}/{language}", s.limiter.middleware(s.logger, http.HandlerFunc(s.handleRefresh)))
	s.handle("GET /getFile/{version}/{language}/{type}", http.HandlerFunc(s.handleGetFile))
	s.handle("GET /getFiles/{version}/{language}/{type}", http.HandlerFunc(s.handleGetFiles))
	s.handle("GET /getDefault/{version}/{language}/{type}", http.HandlerFunc(s.handleGetDefault))
	s.handle("GET /getIndex/{version}/{language}/{type}", http.HandlerFunc(s.handleGetIndex))
	s.handle("GET /getRecommendedItems/{language}/{type}", http.HandlerFunc(s.handleGetRecommendedItems))
	s.handle("GET /getCategories/{version}/{language}/{type}", http.HandlerFunc(s.handleGetCategories))
	s.handle("GET /events", http.HandlerFunc(s.events.HandleSSE))
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.options.Registry, promhttp.HandlerOpts{}))
}

// handle registers an instrumented route.
func (s *Server) handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, s.metrics.instrument(pattern, handler))
}

// Handle mounts an additional handler, e.g. the MCP endpoint.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.handle(pattern, handler)
}

// Events returns the deploy event stream.
func (s *Server) Events() *Events {
	return s.events
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// sendStatus answers with a bare status code and its text.
func sendStatus(w http.ResponseWriter, code int) {
	http.Error(w, http.StatusText(code), code)
}

func (s *Server) sendError(w http.ResponseWriter, r *http.Request, err error) {
	code := service.StatusCode(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Int("status", code), zap.Error(err))
	} else {
		s.logger.Debug("request failed", zap.String("path", r.URL.Path), zap.Int("status", code), zap.Error(err))
	}
	sendStatus(w, code)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}
