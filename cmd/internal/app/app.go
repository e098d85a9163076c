// Package app wires the ebauth server runtime: config, logging, the
// credential store, the service descriptor and the HTTP routes.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ebauth/cmd/identity"
	authapi "ebauth/cmd/internal/auth/api"
	"ebauth/cmd/internal/auth/authn"
	"ebauth/cmd/internal/auth/directory"
	"ebauth/cmd/internal/metrics"
	"ebauth/cmd/internal/tenant"
	"ebauth/cmd/security/password"
	"ebauth/cmd/security/token"
)

// App is the ebauth runtime for one service.
type App struct {
	cfg Config
	log Logger

	service tenant.Config
	backend *backend
	store   identity.Store

	codec     token.Codec
	resolver  *authn.Resolver
	directory *directory.Service

	handler http.Handler
}

// New opens the configured store, loads the service descriptor and wires
// every component. Close releases what New opened.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	svc, err := b.loadService(ctx, cfg)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("service descriptor: %w", err)
	}

	a, err := newApp(cfg, log, svc, b)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	return a, nil
}

func newApp(cfg Config, log Logger, svc tenant.Config, b *backend) (*App, error) {
	if err := ValidateSecurityConfig(cfg, svc); err != nil {
		return nil, err
	}

	pcfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	hasher := password.NewHasher(pcfg, svc.PasswordPepper)

	codec, err := svc.NewCodec()
	if err != nil {
		return nil, err
	}

	store := metrics.InstrumentStore(b.store)
	svcLog := log.With("service", svc.Name)

	resolver := authn.NewResolver(svc, store, codec, hasher, authn.WithLogger(svcLog))
	dir := directory.New(svc, store, hasher, svcLog)

	auth, err := authapi.NewHandler(svcLog, authapi.LoadConfigFromEnv(), resolver, dir)
	if err != nil {
		return nil, err
	}

	log.Info("app.ready", "service", svc, "store", cfg.Store, "source", cfg.ServiceSource)

	return &App{
		cfg:       cfg,
		log:       log,
		service:   svc,
		backend:   b,
		store:     store,
		codec:     codec,
		resolver:  resolver,
		directory: dir,
		handler:   newRouter(log, cfg, store, auth),
	}, nil
}

// Service returns the loaded service descriptor.
func (a *App) Service() tenant.Config { return a.service }

// Store returns the instrumented credential store.
func (a *App) Store() identity.Store { return a.store }

// Codec returns the service token codec.
func (a *App) Codec() token.Codec { return a.codec }

// Resolver returns the identity resolver.
func (a *App) Resolver() *authn.Resolver { return a.resolver }

// Directory returns the user administration service.
func (a *App) Directory() *directory.Service { return a.directory }

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Close releases the store and its backend. It is safe to call more than once.
func (a *App) Close() error { return a.backend.Close() }

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	defer func() {
		if err := a.Close(); err != nil {
			a.log.Error("store.close.fail", "err", err)
		}
	}()

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "service", a.service.Name, "store", a.cfg.Store)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
