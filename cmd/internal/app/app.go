// Package app wires the server runtime: config, logging, metrics, storage,
// media, and the HTTP user API.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"vidtube/cmd/identity"
	"vidtube/cmd/internal/auth/api"
	"vidtube/cmd/internal/auth/session"
	"vidtube/cmd/internal/media"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the server runtime: it owns the HTTP server and its dependencies.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	metrics *Metrics
	auth    *api.Handler

	// mediaDir is non-empty only when the local dev uploader is active.
	mediaDir string
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	store, dbPool, dbEnabled, err := newUserStore(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	uploader, mediaDir, err := newUploader(context.Background(), cfg, log)
	if err != nil {
		if dbPool != nil {
			dbPool.Close()
		}
		return nil, err
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		if dbPool != nil {
			dbPool.Close()
		}
		return nil, err
	}
	tokens, err := session.NewTokenManager(sessCfg)
	if err != nil {
		if dbPool != nil {
			dbPool.Close()
		}
		return nil, err
	}

	svc := session.NewService(sessCfg, store, tokens, uploader)

	authHandler, err := api.NewHandler(log, api.LoadConfigFromEnv(), svc)
	if err != nil {
		if dbPool != nil {
			dbPool.Close()
		}
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		metrics:   NewMetrics(),
		auth:      authHandler,
		mediaDir:  mediaDir,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.metrics, a.auth, a.mediaDir)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log, a.metrics),
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
		ReadTimeout:       a.cfg.ReadTimeout,
		WriteTimeout:      a.cfg.WriteTimeout,
		IdleTimeout:       a.cfg.IdleTimeout,
		MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if a.dbPool != nil {
		a.dbPool.Close()
	}

	a.log.Info("server.stopped")
	return nil
}

// newUserStore decides between Postgres-backed persistence and the
// in-memory dev store.
func newUserStore(ctx context.Context, cfg Config, log Logger) (identity.Store, *pgxpool.Pool, bool, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return identity.NewInMemoryStore(), nil, false, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, false, err
	}

	store, err := identity.NewPostgresStore(pool, identity.WithSchema(cfg.DBSchema))
	if err != nil {
		pool.Close()
		return nil, nil, false, err
	}

	log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema)
	return store, pool, true, nil
}

// newUploader prefers S3-compatible object storage; without it, uploads land
// in a local directory served under /media/.
func newUploader(ctx context.Context, cfg Config, log Logger) (media.Uploader, string, error) {
	s3cfg, err := media.S3ConfigFromEnv()
	if err == nil && s3cfg.Validate() == nil {
		up, err := media.NewS3Uploader(ctx, s3cfg)
		if err != nil {
			return nil, "", err
		}
		log.Info("media.enabled.s3", "bucket", s3cfg.Bucket)
		return up, "", nil
	}

	local, err := media.NewLocalUploader(cfg.LocalMediaDir, "/media")
	if err != nil {
		return nil, "", err
	}
	log.Info("media.disabled.local_uploader", "dir", local.Dir())
	return local, local.Dir(), nil
}
