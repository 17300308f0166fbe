// Package http exposes the bookkeeper tools as a small JSON API for the
// agent layer.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"bookkeeper/internal/core"
	"bookkeeper/internal/log"

	"github.com/ulule/limiter/v3"
)

// LedgerAPI is what the handlers need from the ledger service.
type LedgerAPI interface {
	RecordTransaction(ctx context.Context, session core.Session, in core.RecordInput) (string, error)
	Summarize(ctx context.Context, session core.Session, start, end core.Date) (core.SummaryResult, error)
	CurrentDate() string
}

// Options configure a Server.
type Options struct {
	// RateLimit bounds POST requests per client. A zero rate disables it.
	RateLimit limiter.Rate
	// AppName is used for sessions whose caller sends no X-App-Name.
	AppName  string
	Currency string
	Logger   *log.Logger
	// Ready reports whether dependencies are reachable; nil means always.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	svc      LedgerAPI
	limiter  *limiter.Limiter
	appName  string
	currency string
	logger   *log.Logger
	ready    func(ctx context.Context) error
	metrics  securityMetrics
}

// NewServer configures the routes and returns a ready-to-run server.
func NewServer(addr string, svc LedgerAPI, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}
	if opts.AppName == "" {
		opts.AppName = "Bookkeeper_App"
	}
	if opts.Currency == "" {
		opts.Currency = "RM"
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		svc:      svc,
		appName:  opts.AppName,
		currency: opts.Currency,
		logger:   opts.Logger,
		ready:    opts.Ready,
	}
	if opts.RateLimit.Limit > 0 && opts.RateLimit.Period > 0 {
		s.limiter = newRateLimiter(opts.RateLimit)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("POST /tools/record_transaction", s.withMiddleware(s.handleRecordTransaction))
	mux.HandleFunc("GET /tools/expenses_summary", s.withMiddleware(s.handleExpensesSummary))
	mux.HandleFunc("GET /tools/current_date", s.withMiddleware(s.handleCurrentDate))

	return s
}

// withMiddleware adds request tracing, security headers, rate limiting and
// request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	limited := s.withRateLimit(next)
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}
		logger := s.logger.With(log.FieldRequestID, requestID)
		ctx := log.IntoContext(r.Context(), logger)
		r = r.WithContext(ctx)

		if detectSuspiciousRequest(r, &s.metrics) {
			logger.WarnContext(ctx, "Suspicious request",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, clientIP,
				"user_agent", r.Header.Get("User-Agent"))
		}

		w.Header().Set("X-Request-ID", requestID)
		setSecurityHeaders(w.Header())

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		limited(rw, r)

		logger.InfoContext(ctx, "Request completed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(b)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Metrics returns the counters collected by the security middleware.
func (s *Server) Metrics() (rateLimitHits, suspicious int64) {
	return atomic.LoadInt64(&s.metrics.rateLimitHits), atomic.LoadInt64(&s.metrics.suspiciousRequests)
}
