package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ledger/internal/auth"
	"ledger/internal/cache"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/services"
)

// Services are the ledger operations exposed over HTTP.
type Services struct {
	Users      *services.UserService
	Accounts   *services.AccountService
	Categories *services.CategoryService
	Ledger     *services.LedgerService
}

type Options struct {
	Logger *applog.Logger
	// RateLimitPerMinute caps mutating requests per client; 0 means the
	// limiter default.
	RateLimitPerMinute int
	AuthCacheTTL       time.Duration
	// Ready reports whether dependencies are reachable; nil means always ready.
	Ready func(context.Context) error
}

// Server is the ledger JSON API.
type Server struct {
	http.Server

	svc      Services
	auth     *auth.BasicAuth
	limiter  *ratelimit.Limiter
	detector *security.Detector
	caches   *cache.Manager
	ready    func(context.Context) error

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		svc:      svc,
		auth:     auth.NewBasicAuth(svc.Users, opts.AuthCacheTTL),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: security.NewDetector(),
		caches:   cache.NewManager(),
		ready:    opts.Ready,
	}
	s.caches.Register("auth", s.auth.Cache())
	s.caches.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = s.limitWrites(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = trace.NewMiddleware(logger, s.detector.ExtractClientIP).Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.Handle("GET /api/profile", s.authed(s.handleProfile))

	mux.Handle("GET /api/users", s.authed(s.handleListUsers))
	mux.Handle("GET /api/users/{id}", s.authed(s.handleGetUser))
	mux.Handle("PATCH /api/users/{id}", s.authed(s.handleUpdateUser))
	mux.Handle("PUT /api/users/{id}", s.authed(s.handleUpdateUser))
	mux.Handle("DELETE /api/users/{id}", s.authed(s.handleDeleteUser))

	mux.Handle("GET /api/bank-accounts", s.authed(s.handleListAccounts))
	mux.Handle("POST /api/bank-accounts", s.authed(s.handleCreateAccount))
	mux.Handle("GET /api/bank-accounts/{id}", s.authed(s.handleGetAccount))
	mux.Handle("PATCH /api/bank-accounts/{id}", s.authed(s.handleUpdateAccount))
	mux.Handle("DELETE /api/bank-accounts/{id}", s.authed(s.handleDeleteAccount))
	mux.Handle("GET /api/bank-accounts/{id}/balance", s.authed(s.handleAccountBalance))

	mux.Handle("GET /api/category-groups", s.authed(s.handleListCategories))
	mux.Handle("POST /api/category-groups", s.authed(s.handleCreateCategory))
	mux.Handle("GET /api/category-groups/{id}", s.authed(s.handleGetCategory))
	mux.Handle("PATCH /api/category-groups/{id}", s.authed(s.handleUpdateCategory))
	mux.Handle("DELETE /api/category-groups/{id}", s.authed(s.handleDeleteCategory))

	mux.Handle("GET /api/transactions", s.authed(s.handleListTransactions))
	mux.Handle("POST /api/transactions", s.authed(s.handleCreateTransaction))
	mux.Handle("GET /api/transactions/{id}", s.authed(s.handleGetTransaction))
	mux.Handle("PATCH /api/transactions/{id}", s.authed(s.handleUpdateTransaction))
	mux.Handle("DELETE /api/transactions/{id}", s.authed(s.handleDeleteTransaction))

	mux.Handle("GET /api/financial-summary", s.authed(s.handleSummary))
	mux.Handle("GET /api/financial-summary/categories", s.authed(s.handleBreakdown))
}

// authed wraps an actor-aware handler with Basic authentication.
func (s *Server) authed(h func(http.ResponseWriter, *http.Request, core.User)) http.Handler {
	return s.auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := auth.UserFrom(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required", Kind: "unauthenticated"})
			return
		}
		h(w, r, u)
	}))
}

// limitWrites rate limits mutating requests per client address.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later", Kind: "rate_limited"})
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	})
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
