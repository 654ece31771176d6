package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"expenses/internal/core"
	applog "expenses/internal/log"
	appweb "expenses/web"
)

// ExpenseStore is the core surface the presentation layer drives.
type ExpenseStore interface {
	Add(ctx context.Context, amount decimal.Decimal, category string, note *string) error
	ListFiltered(ctx context.Context, window core.Window) ([]core.Expense, error)
	Remove(ctx context.Context, id int64) error
}

// Pinger is implemented by stores that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures presentation details of the server.
type Options struct {
	// Location renders expense dates as local calendar days. Defaults to time.Local.
	Location *time.Location
	Logger   *applog.Logger
	// RateLimitPerMinute caps mutating requests per client IP. Zero disables limiting.
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	templates   *template.Template
	store       ExpenseStore
	loc         *time.Location
	logger      *applog.Logger
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, store ExpenseStore, opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr: addr,
		},
		store:       store,
		loc:         opts.Location,
		logger:      opts.Logger,
		rateLimiter: newRateLimiter(opts.RateLimitPerMinute),
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.logger == nil {
		s.logger = applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentHTTP})
	}
	s.Handler = applog.Middleware(s.logger)(mux)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /{$}", s.wrap(s.handleIndex))
	mux.HandleFunc("GET /ui/expenses", s.wrap(s.handleExpensesPartial))
	mux.HandleFunc("POST /expenses", s.wrap(s.handleCreateExpense))
	mux.HandleFunc("POST /expenses/{id}/delete", s.wrap(s.handleDeleteExpense))
	mux.HandleFunc("DELETE /expenses/{id}", s.wrap(s.handleDeleteExpense))
	mux.HandleFunc("GET /api/expenses", s.wrap(s.handleListExpensesJSON))
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// wrap adds request IDs, security headers, rate limiting, and request logging.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := clientIP(r)

		ctx := applog.WithRequestID(r.Context(), generateRequestID())
		r = r.WithContext(ctx)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(ip) {
			applog.FromContext(ctx).WarnContext(ctx, "Rate limit exceeded", "client_ip", ip, "method", r.Method, "path", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(int(rateWindow.Seconds())))
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		setSecurityHeaders(w.Header())

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		applog.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), ip)
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

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.store.(Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
