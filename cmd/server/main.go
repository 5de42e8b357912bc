package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/adapter/httpapi"
	"github.com/example/storefront/internal/adapter/medusa"
	"github.com/example/storefront/internal/adapter/natsstan"
	"github.com/example/storefront/internal/adapter/store"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/domain"
	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("storefront stopped", zap.Error(err))
		os.Exit(1)
	}
}

// App — собранный сервис и функции освобождения ресурсов в обратном порядке.
type App struct {
	Server   *httpapi.Server
	Sessions *session.Registry
	closers  []func()
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	app := &App{}

	client, err := medusa.NewClient(medusa.Config{
		BaseURL:        cfg.Commerce.BaseURL,
		PublishableKey: cfg.Commerce.PublishableKey,
		TimeoutSeconds: cfg.Commerce.TimeoutSeconds,
	}, log.Named("medusa"))
	if err != nil {
		return nil, fmt.Errorf("commerce client: %w", err)
	}

	kv, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, closeStore)

	var relay domain.SignalRelay
	if cfg.NATS.Enabled {
		r := natsstan.NewRelay(natsstan.Config{
			ClusterID: cfg.NATS.ClusterID,
			ClientID:  cfg.NATS.ClientID,
			URL:       cfg.NATS.URL,
			Subject:   cfg.NATS.Subject,
			Durable:   cfg.NATS.Durable,
		}, log.Named("stan"))
		if err := r.Connect(); err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, func() {
			if err := r.Close(); err != nil {
				log.Warn("close stan", zap.Error(err))
			}
		})
		relay = r
	}

	app.Sessions = session.NewRegistry(client, kv, relay, log.Named("session"))
	app.closers = append(app.closers, app.Sessions.Close)

	if err := app.Sessions.Listen(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("listen for cart signals: %w", err)
	}

	app.Server = httpapi.NewServer(client, app.Sessions, httpapi.Options{
		CookieName:   cfg.Session.CookieName,
		CookieMaxAge: cfg.Session.MaxAge,
		SecureCookie: cfg.Session.Secure,
	}, log.Named("http"))
	return app, nil
}

// openStore выбирает хранилище ссылок на корзины по store.driver.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (domain.KeyValueStore, func(), error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		if err := store.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("init schema: %w", err)
		}
		log.Info("using postgres store")
		return store.NewPostgresStore(pool), pool.Close, nil
	case config.StoreRedis:
		rs, err := store.NewRedisStore(ctx, store.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Info("using redis store", zap.String("host", cfg.Redis.Host), zap.Int("port", cfg.Redis.Port))
		return rs, func() { _ = rs.Close() }, nil
	case config.StoreMemory:
		log.Warn("using in-memory store, cart references are lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	app, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	go app.Sessions.Run(ctx, time.Minute, cfg.Session.IdleTTL)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      app.Server.Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http listening", zap.String("addr", srv.Addr), zap.String("commerce", cfg.Commerce.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
