// Package http exposes the ledger over a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"welth/internal/cache"
	"welth/internal/gate"
	"welth/internal/receipt"
	"welth/internal/services"
)

// Server wires the ledger services behind the JSON routes. Rendered views
// are cached per user and dropped on mutation or on a stale-view message
// from another instance.
type Server struct {
	http.Server

	identity gate.Identity
	ledger   *services.LedgerService
	accounts *services.AccountService
	budgets  *services.BudgetService
	scanner  ReceiptScanner

	views   *cache.LRU[[]byte]
	janitor *cache.Janitor

	shutdownOnce sync.Once
}

// ReceiptScanner is the slice of the receipt package the server needs; nil
// means scanning is not configured.
type ReceiptScanner interface {
	Scan(ctx context.Context, userID string, image []byte, mimeType string) (receipt.Draft, error)
}

// Options carries the optional server knobs.
type Options struct {
	ViewCacheSize int
	ViewCacheTTL  time.Duration
}

func defaultOptions() Options {
	return Options{
		ViewCacheSize: 500,
		ViewCacheTTL:  5 * time.Minute,
	}
}

func NewServer(
	addr string,
	identity gate.Identity,
	ledger *services.LedgerService,
	accounts *services.AccountService,
	budgets *services.BudgetService,
	scanner ReceiptScanner,
	opts *Options,
) *Server {
	o := defaultOptions()
	if opts != nil {
		if opts.ViewCacheSize > 0 {
			o.ViewCacheSize = opts.ViewCacheSize
		}
		if opts.ViewCacheTTL > 0 {
			o.ViewCacheTTL = opts.ViewCacheTTL
		}
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		identity: identity,
		ledger:   ledger,
		accounts: accounts,
		budgets:  budgets,
		scanner:  scanner,
		views:    cache.NewLRU[[]byte](o.ViewCacheSize, o.ViewCacheTTL),
		janitor:  cache.NewJanitor(),
	}

	s.janitor.Register(s.views)
	s.janitor.Start(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.Handle("POST /transactions", s.authenticated(s.handleCreateTransaction))
	mux.Handle("GET /transactions", s.authenticated(s.handleListTransactions))
	mux.Handle("GET /transactions/{id}", s.authenticated(s.handleGetTransaction))
	mux.Handle("PUT /transactions/{id}", s.authenticated(s.handleUpdateTransaction))
	mux.Handle("DELETE /transactions/{id}", s.authenticated(s.handleDeleteTransaction))
	mux.Handle("POST /transactions/bulk-delete", s.authenticated(s.handleBulkDeleteTransactions))

	mux.Handle("POST /accounts", s.authenticated(s.handleCreateAccount))
	mux.Handle("GET /accounts", s.authenticated(s.handleListAccounts))
	mux.Handle("GET /accounts/{id}/summary", s.authenticated(s.handleAccountSummary))
	mux.Handle("PUT /accounts/{id}/default", s.authenticated(s.handleSetDefaultAccount))
	mux.Handle("DELETE /accounts/{id}", s.authenticated(s.handleDeleteAccount))

	mux.Handle("GET /dashboard", s.authenticated(s.handleDashboard))
	mux.Handle("GET /budget", s.authenticated(s.handleGetBudget))
	mux.Handle("PUT /budget", s.authenticated(s.handleSetBudget))

	mux.Handle("POST /receipts/scan", s.authenticated(s.handleScanReceipt))

	return s
}

// Shutdown stops the HTTP server and the cache janitor.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.janitor.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
