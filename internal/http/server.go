package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"spendlens/internal/analytics"
	"spendlens/internal/cache"
	"spendlens/internal/core"
	"spendlens/internal/ledger"
	"spendlens/internal/log"
)

// ReportPublisher enqueues report render jobs for the worker. Satisfied
// by the AMQP client.
type ReportPublisher interface {
	PublishReportRequest(ctx context.Context, user string) error
}

type Server struct {
	http.Server

	store     ledger.Store
	engine    *analytics.Engine
	importer  *ledger.Importer
	publisher ReportPublisher
	logger    *log.Logger

	rateLimiter *rateLimiter

	// Per-user ledger reads are cached; aggregates are always recomputed
	// per request from the cached slice, never cached themselves.
	expensesCache *cache.LRUCache[[]core.Expense]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and caches, returning a ready-to-run server.
// publisher may be nil when no job queue is configured; POST /reports then
// responds 503.
func NewServer(addr string, store ledger.Store, engine *analytics.Engine, publisher ReportPublisher, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:         store,
		engine:        engine,
		importer:      ledger.NewImporter(store, logger),
		publisher:     publisher,
		logger:        logger.WithComponent(log.ComponentHTTP),
		rateLimiter:   newRateLimiter(),
		expensesCache: cache.NewLRUCache[[]core.Expense](200, 5*time.Minute),
		cacheManager:  cache.NewManager(),
	}

	s.cacheManager.Register(s.expensesCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/expenses", s.withSecurityHeaders(s.handleExpenses))
	mux.HandleFunc("/expenses/import", s.withSecurityHeaders(s.handleImport))
	mux.HandleFunc("/limit", s.withSecurityHeaders(s.handleLimit))
	mux.HandleFunc("/analytics/trend", s.withSecurityHeaders(s.handleTrend))
	mux.HandleFunc("/analytics/categories", s.withSecurityHeaders(s.handleCategories))
	mux.HandleFunc("/analytics/weekdays", s.withSecurityHeaders(s.handleWeekdays))
	mux.HandleFunc("/analytics/recurring", s.withSecurityHeaders(s.handleRecurring))
	mux.HandleFunc("/analytics/insights", s.withSecurityHeaders(s.handleInsights))
	mux.HandleFunc("/ask", s.withSecurityHeaders(s.handleAsk))
	mux.HandleFunc("/reports", s.withSecurityHeaders(s.handleReportRequest))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()

		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}

		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

type contextKey string

const requestIDKey contextKey = "request_id"

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		s.logger.InfoContext(ctx, "Request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP,
			log.FieldUserAgent, r.Header.Get("User-Agent"))

		// Rate limit writes only; reads are cheap and cached.
		if isWrite(r.Method) && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		s.logger.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, duration.Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

func isWrite(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodDelete
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// loadExpenses returns the user's ledger, from cache when warm. Writers
// must call invalidateUser after any append.
func (s *Server) loadExpenses(ctx context.Context, user string) ([]core.Expense, error) {
	if records, ok := s.expensesCache.Get(user); ok {
		return records, nil
	}

	records, err := s.store.ListExpenses(ctx, user)
	if err != nil {
		return nil, err
	}
	s.expensesCache.Set(user, records)
	return records, nil
}

func (s *Server) invalidateUser(user string) {
	s.expensesCache.Delete(user)
}
