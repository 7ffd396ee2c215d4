package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wemb-pms/pms-backend/config"
	"github.com/wemb-pms/pms-backend/internal/bootstrap"
	cronjob "github.com/wemb-pms/pms-backend/internal/catalog/cron"
	catrepo "github.com/wemb-pms/pms-backend/internal/catalog/repository"
	catservice "github.com/wemb-pms/pms-backend/internal/catalog/service"
	"github.com/wemb-pms/pms-backend/internal/logging"
	"github.com/wemb-pms/pms-backend/internal/storage/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(cfg.App.Environment, cfg.App.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// money is rendered as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := bootstrap.OpenDB(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer stores.Close()

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, stores.SQL); err != nil {
			return err
		}
		log.Info("schema migrated")
	}

	var (
		cache  catservice.Cache
		rcache *catrepo.Cache
	)
	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, catalog served from postgres", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	} else {
		stores.Redis = rdb
		rcache = catrepo.NewCache(rdb, cfg.Redis.CacheTTL)
		cache = rcache
	}

	catalog := catservice.NewCatalogService(catrepo.NewRepo(stores.Pool), cache, log.Named("catalog"))
	if rcache != nil {
		// the in-process copy is only safe while refresh events can clear it
		catalog.KeepLocalCopy(cfg.Catalog.LocalTTL)
		go watchRefreshEvents(ctx, rcache, catalog, log.Named("catalog"))

		sched := cronjob.NewScheduler(catalog, log.Named("catalog-cron"))
		if err := sched.Start(cfg.Catalog.RefreshCron); err != nil {
			return err
		}
		defer sched.Stop()
	}

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		Config:  cfg,
		Stores:  stores,
		Catalog: catalog,
		Log:     log,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", server.Addr),
			zap.String("env", cfg.App.Environment),
			zap.String("version", cfg.App.Version),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	return nil
}

// watchRefreshEvents drops the in-process catalog whenever any instance
// announces a refresh.
func watchRefreshEvents(ctx context.Context, cache *catrepo.Cache, catalog *catservice.CatalogService, log *zap.Logger) {
	sub := cache.Subscribe(ctx)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev catrepo.RefreshEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Warn("malformed catalog refresh event", zap.Error(err))
				continue
			}
			catalog.Forget()
			log.Info("catalog refresh observed",
				zap.String("source", ev.Source),
				zap.Strings("kinds", ev.Kinds),
				zap.Time("refreshed_at", ev.RefreshedAt),
			)
		}
	}
}
