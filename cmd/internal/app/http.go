package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ebauth/cmd/identity"
	authapi "ebauth/cmd/internal/auth/api"
	"ebauth/cmd/internal/metrics"
)

func newRouter(log Logger, cfg Config, store identity.Store, auth *authapi.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(WithRequestLogging(log))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(WithSecurityHeaders)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.ReadinessRequireStore {
			if err := pingStore(r.Context(), store, 2*time.Second); err != nil {
				log.Info("readyz.store.not_ready", "store", cfg.Store, "err", err)
				http.Error(w, "store not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	auth.Register(r)
	return r
}

func pingStore(parent context.Context, store identity.Store, timeout time.Duration) error {
	p, ok := store.(identity.Pinger)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	return p.Ping(ctx)
}
