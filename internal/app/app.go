// Package app wires configuration, storage, services and listeners into a
// runnable qfront process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"qfront/internal/api"
	"qfront/internal/config"
	"qfront/internal/db"
	"qfront/internal/db/repository"
	"qfront/internal/domain"
	"qfront/internal/middleware"
	"qfront/internal/ratelimit"
	"qfront/internal/relay"
	"qfront/internal/retention"
	"qfront/internal/service/query"
)

// ShutdownTimeout bounds graceful shutdown after the run context ends.
const ShutdownTimeout = 10 * time.Second

// Deps holds what the caller must provide.
type Deps struct {
	Cfg    *config.Config
	Logger *slog.Logger
}

// App holds the fully-wired process. Store, History, Pruner and the HTTP
// server are nil when their feature is disabled.
type App struct {
	Query   *query.QueryService
	History domain.QueryHistoryRepository
	Limiter *ratelimit.Clients

	cfg    *config.Config
	logger *slog.Logger
	store  *db.Store
	relay  *relay.Server
	pruner *retention.Pruner
	http   *http.Server

	// cancelHTTP ends the base context of every HTTP request, which closes
	// open websocket streams.
	cancelHTTP context.CancelFunc

	mu     sync.Mutex
	httpLn net.Listener
}

// New opens the history store (when configured) and builds every service
// and listener. Nothing is bound until Start.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		Limiter: ratelimit.NewClients(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}

	// === History (optional) ===
	var recorder query.HistoryRecorder
	if cfg.HistoryEnabled() {
		store, err := db.OpenStore(ctx, cfg.HistoryDBPath)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
		repo := repository.NewQueryHistoryRepo(store.Write, store.Read)
		a.store = store
		a.History = repo
		recorder = repo
		a.pruner = retention.NewPruner(repo, cfg.HistoryRetention, cfg.HistoryPruneSchedule,
			logger.With("component", "history-pruner"))
	}

	// === Core service ===
	a.Query = query.NewQueryService(recorder, logger.With("component", "query"))

	// === Relay ===
	a.relay = relay.NewServer(cfg.RelayAddr, logger.With("component", "relay"), relay.Options{
		ReadTimeout:     cfg.RelayReadTimeout,
		MaxRequestBytes: cfg.RelayMaxRequestBytes,
		Limiter:         a.Limiter,
		Echo:            cfg.RelayEcho,
	}, a.Query.RelayHandler())

	// === HTTP API (optional) ===
	if cfg.HTTPAddr != "" {
		validator, err := newValidator(ctx, cfg.Auth)
		if err != nil {
			_ = a.closeStore()
			return nil, err
		}
		router := api.NewRouter(api.RouterConfig{
			Handler:            api.NewHandler(a.Query, a.History, logger.With("component", "api")),
			Validator:          validator,
			Limiter:            a.Limiter,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			Logger:             logger.With("component", "http"),
			StartTime:          time.Now(),
		})
		baseCtx, cancel := context.WithCancel(context.Background())
		a.cancelHTTP = cancel
		a.http = &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return baseCtx },
		}
	}

	return a, nil
}

// newValidator returns the bearer validator for the configured auth mode,
// or nil when authentication is disabled.
func newValidator(ctx context.Context, auth config.AuthConfig) (middleware.JWTValidator, error) {
	switch {
	case auth.OIDCEnabled():
		v, err := middleware.NewOIDCValidator(ctx, auth.IssuerURL, auth.Audience)
		if err != nil {
			return nil, fmt.Errorf("oidc validator: %w", err)
		}
		return v, nil
	case auth.JWTSecret != "":
		v, err := middleware.NewHS256Validator(auth.JWTSecret, auth.Audience)
		if err != nil {
			return nil, fmt.Errorf("jwt validator: %w", err)
		}
		return v, nil
	default:
		return nil, nil
	}
}

// Start binds the relay and HTTP listeners and starts the pruner.
func (a *App) Start() error {
	if err := a.relay.Start(); err != nil {
		_ = a.closeStore()
		return err
	}

	if a.http != nil {
		ln, err := net.Listen("tcp", a.cfg.HTTPAddr)
		if err != nil {
			_ = a.relay.Shutdown(context.Background())
			_ = a.closeStore()
			return fmt.Errorf("listen http %s: %w", a.cfg.HTTPAddr, err)
		}
		a.mu.Lock()
		a.httpLn = ln
		a.mu.Unlock()
		a.logger.Info("http api listening", "addr", ln.Addr().String())
	}

	if a.pruner != nil {
		if err := a.pruner.Start(); err != nil {
			_ = a.Shutdown(context.Background())
			return err
		}
	}
	return nil
}

// Run starts the app, serves until ctx ends or the HTTP server fails, then
// shuts everything down.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.serveHTTP)
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) serveHTTP() error {
	a.mu.Lock()
	ln := a.httpLn
	a.mu.Unlock()
	if ln == nil {
		return nil
	}
	if err := a.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// RelayAddr returns the bound relay address, or "" when not running.
func (a *App) RelayAddr() string {
	return a.relay.Addr()
}

// HTTPAddr returns the bound HTTP address, or "" when the API is disabled
// or not started.
func (a *App) HTTPAddr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.httpLn == nil {
		return ""
	}
	return a.httpLn.Addr().String()
}

// Shutdown stops listeners, the pruner and the store, in that order.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	a.mu.Lock()
	ln := a.httpLn
	a.httpLn = nil
	a.mu.Unlock()
	if ln != nil {
		if err := a.http.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		// Serve may not have been called yet.
		_ = ln.Close()
	}
	if a.cancelHTTP != nil {
		a.cancelHTTP()
	}

	if err := a.relay.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.pruner != nil {
		a.pruner.Stop()
		a.pruner = nil
	}
	if err := a.closeStore(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeStore() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	if err != nil {
		return fmt.Errorf("close history store: %w", err)
	}
	return nil
}
