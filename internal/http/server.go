// Package http serves the bookkeeping JSON API: Jalali period reports,
// charts, the activity feed, ledger writes and date conversion.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"hesabdar/internal/cache"
	"hesabdar/internal/core"
	"hesabdar/internal/jalali"
	applog "hesabdar/internal/log"
	"hesabdar/internal/middleware/ratelimit"
	"hesabdar/internal/middleware/security"
	"hesabdar/internal/middleware/trace"
	"hesabdar/internal/report"
)

// Reports is the read side used by the handlers.
type Reports interface {
	Today() jalali.Date
	PeriodTotals(ctx context.Context, tenantID int64, sel report.Selector) (report.Totals, error)
	TodayTotals(ctx context.Context, tenantID int64) (report.DayTotals, error)
	TopExpenses(ctx context.Context, tenantID int64, sel report.Selector, limit int) (report.ExpenseRanking, error)
	BankReport(ctx context.Context, tenantID int64, sel report.Selector) (report.BankReport, error)
	BankNetFlow(ctx context.Context, tenantID, bankID int64, sel report.Selector) (report.BankFlow, error)
	SubscriptionSummary(ctx context.Context, tenantID int64, year, month int, f report.SubscriptionFilter) (report.SubscriptionSummary, error)
	DailySeries(ctx context.Context, tenantID int64, year, month int) (report.Series, error)
	MonthlySeries(ctx context.Context, tenantID int64, year int) (report.Series, error)
	Activity(ctx context.Context, tenantID int64, page, pageSize int) (report.ActivityPage, error)
}

// Ledger is the write side used by the handlers.
type Ledger interface {
	CreateExpense(ctx context.Context, r core.Record) (core.Record, error)
	CreateOtherIncome(ctx context.Context, r core.Record) (core.Record, error)
	CreateSubscription(ctx context.Context, r core.Record) (core.Record, error)
	UpdateRecord(ctx context.Context, r core.Record) (core.Record, error)
	DeleteRecord(ctx context.Context, tenantID int64, kind core.RecordKind, id int64) error
	CreateBank(ctx context.Context, b core.BankAccount) (core.BankAccount, error)
	UpdateBank(ctx context.Context, b core.BankAccount) (core.BankAccount, error)
	DeleteBank(ctx context.Context, tenantID, id int64) error
	OnChange(fn func(tenantID int64))
}

// Pinger is implemented by stores that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the server. Zero values pick defaults.
type Options struct {
	Logger         *applog.Logger
	Ready          Pinger
	CacheSize      int
	CacheTTL       time.Duration
	ReadTimeout    time.Duration // per-request bound on report queries
	RateLimit      ratelimit.Config
	TrustedProxies []string
}

const (
	defaultCacheSize   = 512
	defaultCacheTTL    = 5 * time.Minute
	defaultReadTimeout = 7 * time.Second
	cacheCleanupEvery  = 10 * time.Minute
)

type Server struct {
	http.Server
	reports Reports
	ledger  Ledger
	ready   Pinger
	logger  *applog.Logger

	totals      *cache.Loader[report.Totals]
	caches      *cache.Manager
	limiter     *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware
	readTimeout time.Duration
	limited     []string // methods subject to rate limiting

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
// Ledger writes invalidate the tenant's cached totals.
func NewServer(addr string, reports Reports, ledger Ledger, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentHTTP})
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	if opts.RateLimit.RequestsPerMinute <= 0 {
		opts.RateLimit = ratelimit.DefaultConfig()
	}
	if len(opts.RateLimit.Methods) == 0 {
		opts.RateLimit.Methods = ratelimit.DefaultConfig().Methods
	}

	totalsCache := cache.NewLRUCache[report.Totals](opts.CacheSize, opts.CacheTTL)
	manager := cache.NewManager()
	manager.Register(totalsCache)
	manager.StartCleanup(cacheCleanupEvery)

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			opts.Logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}

	s := &Server{
		reports:     reports,
		ledger:      ledger,
		ready:       opts.Ready,
		logger:      opts.Logger,
		totals:      cache.NewLoader[report.Totals](totalsCache, opts.ReadTimeout),
		caches:      manager,
		limiter:     ratelimit.NewLimiter(opts.RateLimit),
		detector:    detector,
		tracer:      trace.NewMiddleware(detector.ExtractClientIP),
		readTimeout: opts.ReadTimeout,
		limited:     opts.RateLimit.Methods,
	}
	ledger.OnChange(s.invalidateTenant)

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/reports/totals", s.withTenant(s.handleTotals))
	mux.HandleFunc("GET /api/reports/today", s.withTenant(s.handleToday))
	mux.HandleFunc("GET /api/reports/top-expenses", s.withTenant(s.handleTopExpenses))
	mux.HandleFunc("GET /api/reports/banks", s.withTenant(s.handleBankReport))
	mux.HandleFunc("GET /api/reports/banks/{id}", s.withTenant(s.handleBankFlow))
	mux.HandleFunc("GET /api/reports/subscriptions", s.withTenant(s.handleSubscriptions))
	mux.HandleFunc("GET /api/charts/daily", s.withTenant(s.handleDailyChart))
	mux.HandleFunc("GET /api/charts/monthly", s.withTenant(s.handleMonthlyChart))
	mux.HandleFunc("GET /api/activity", s.withTenant(s.handleActivity))
	mux.HandleFunc("GET /api/dates/convert", s.handleConvertDate)

	mux.HandleFunc("POST /api/expenses", s.withTenant(s.handleCreateExpense))
	mux.HandleFunc("POST /api/incomes", s.withTenant(s.handleCreateIncome))
	mux.HandleFunc("POST /api/subscriptions", s.withTenant(s.handleCreateSubscription))
	mux.HandleFunc("POST /api/banks", s.withTenant(s.handleCreateBank))
	mux.HandleFunc("PUT /api/banks/{id}", s.withTenant(s.handleUpdateBank))
	mux.HandleFunc("DELETE /api/banks/{id}", s.withTenant(s.handleDeleteBank))
	mux.HandleFunc("PUT /api/records/{kind}/{id}", s.withTenant(s.handleUpdateRecord))
	mux.HandleFunc("DELETE /api/records/{kind}/{id}", s.withTenant(s.handleDeleteRecord))
}

// middleware wraps h, outermost first: tracing, request logger, scanner
// detection, security headers, rate limiting of writes.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.limiter.Middleware(
		s.limited,
		s.detector.ExtractClientIP,
		s.handleRateLimited,
	)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	h = applog.Middleware(s.logger, trace.GetRequestID)(h)
	return s.tracer.Middleware(h)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	fields := applog.NewFields().
		WithComponent(applog.ComponentRateLimit).
		WithClientIP(s.detector.ExtractClientIP(r)).
		WithHTTPRequest(r.Method, r.URL.Path, "", "")
	applog.FromContext(r.Context()).LogFields(r.Context(), slog.LevelWarn, "Rate limit exceeded", fields)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later", "")
}

// invalidateTenant drops every cached report of tenantID.
func (s *Server) invalidateTenant(tenantID int64) {
	if n := s.totals.Invalidate(totalsPrefix(tenantID)); n > 0 {
		s.logger.Debug("Report cache invalidated", applog.FieldTenantID, tenantID, "entries", n)
	}
}

// Shutdown stops background goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			applog.LogError(r.Context(), "Readiness check failed", err, applog.ComponentStorage, applog.OpRead, nil)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
