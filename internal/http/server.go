// Package http exposes the ledger as a JSON API: auth, expense and item
// CRUD, lookup tables, and the yearly aggregation reports.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"fliptrack/internal/auth"
	"fliptrack/internal/core"
	"fliptrack/internal/export"
	"fliptrack/internal/log"
	"fliptrack/internal/report"
	"fliptrack/internal/services"
)

// IdentityService handles registration, login and token resolution.
type IdentityService interface {
	Register(ctx context.Context, username, password string) (core.User, error)
	Login(ctx context.Context, username, password string) (core.User, string, error)
	Authenticate(ctx context.Context, token string) (core.User, error)
}

// ExpenseService covers supply-expense CRUD.
type ExpenseService interface {
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	GetExpense(ctx context.Context, id, userID int64) (core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, id, userID int64) error
	ListExpenses(ctx context.Context, userID int64, year int) ([]core.Expense, error)
}

// ItemService covers listings and sale completion.
type ItemService interface {
	CreateItem(ctx context.Context, it core.Item) (core.Item, error)
	ListItems(ctx context.Context, userID int64) ([]core.Item, error)
	ListSoldItems(ctx context.Context, userID int64) ([]core.Item, error)
	GetSoldItem(ctx context.Context, id, userID int64) (core.Item, error)
	CompleteSale(ctx context.Context, id, userID int64, upd services.SaleUpdate) (core.Item, error)
	DeleteItem(ctx context.Context, id, userID int64) error
}

// ReportService computes the yearly aggregates.
type ReportService interface {
	SupplyTypeTotals(ctx context.Context, userID int64, year int) ([]report.SupplyTypeTotal, error)
	MonthlyExpenseTotals(ctx context.Context, userID int64, year int) ([]report.MonthTotal, error)
	MonthlySoldCounts(ctx context.Context, userID int64, year int) ([]report.MonthCount, error)
	YearSummary(ctx context.Context, userID int64, year int) (export.YearSummary, error)
}

// LookupService serves the fixed classification tables.
type LookupService interface {
	SupplyTypes(ctx context.Context) ([]core.SupplyType, error)
	Categories(ctx context.Context) ([]core.Category, error)
	ListingTypes(ctx context.Context) ([]core.ListingType, error)
	WeightTypes(ctx context.Context) ([]core.WeightType, error)
}

// Ledger is the full application surface the server fronts.
type Ledger interface {
	IdentityService
	ExpenseService
	ItemService
	ReportService
	LookupService
}

type Server struct {
	http.Server
	ledger       Ledger
	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// Simple in-memory rate limiter, per client IP.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes.
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledger Ledger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ledger:      ledger,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /register", s.withCommonHeaders(s.handleRegister))
	mux.HandleFunc("POST /login", s.withCommonHeaders(s.handleLogin))

	mux.HandleFunc("GET /supplytypes", s.authed(s.handleSupplyTypes))
	mux.HandleFunc("GET /categories", s.authed(s.handleCategories))
	mux.HandleFunc("GET /listingtypes", s.authed(s.handleListingTypes))
	mux.HandleFunc("GET /weighttypes", s.authed(s.handleWeightTypes))

	mux.HandleFunc("POST /expenses", s.authed(s.handleCreateExpense))
	mux.HandleFunc("GET /expenses", s.authed(s.handleListExpenses))
	mux.HandleFunc("GET /expenses/{id}", s.authed(s.handleGetExpense))
	mux.HandleFunc("PUT /expenses/{id}", s.authed(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /expenses/{id}", s.authed(s.handleDeleteExpense))

	mux.HandleFunc("POST /items", s.authed(s.handleCreateItem))
	mux.HandleFunc("GET /items", s.authed(s.handleListItems))
	mux.HandleFunc("GET /solditems", s.authed(s.handleListSoldItems))
	mux.HandleFunc("GET /solditems/{id}", s.authed(s.handleGetSoldItem))
	mux.HandleFunc("PUT /solditems/{id}", s.authed(s.handleCompleteSale))
	mux.HandleFunc("DELETE /solditems/{id}", s.authed(s.handleDeleteItem))

	mux.HandleFunc("GET /reports/expenses-by-supply-type", s.authed(s.handleExpensesBySupplyType))
	mux.HandleFunc("GET /reports/expenses-by-month", s.authed(s.handleExpensesByMonth))
	mux.HandleFunc("GET /reports/sold-items-by-month", s.authed(s.handleSoldItemsByMonth))
	mux.HandleFunc("GET /reports/dashboard", s.authed(s.handleDashboard))

	return s
}

// Shutdown stops the rate limiter cleanup loop and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withCommonHeaders adds security headers, rate limiting, request IDs and
// request logging.
func (s *Server) withCommonHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			log.FieldComponent, log.ComponentHTTP,
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP)

		// Rate limit mutating requests only.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			log.FieldComponent, log.ComponentHTTP,
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, duration.Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

// authed chains the common middleware with token authentication. The
// resolved user lands in the request context.
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return s.withCommonHeaders(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.ParseAuthorizationHeader(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing or malformed authorization header")
			return
		}
		u, err := s.ledger.Authenticate(r.Context(), token)
		if err != nil {
			slog.WarnContext(r.Context(), "Token rejected", "error", err)
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		ctx := auth.WithAuth(r.Context(), auth.AuthContext{UserID: u.ID, Username: u.Username})
		next(w, r.WithContext(ctx))
	})
}

type requestIDKey struct{}

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
	return "req_" + uuid.NewString()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
