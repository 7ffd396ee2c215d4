package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wemb-pms/pms-backend/config"
	"github.com/wemb-pms/pms-backend/internal/bootstrap"
	catrepo "github.com/wemb-pms/pms-backend/internal/catalog/repository"
	catservice "github.com/wemb-pms/pms-backend/internal/catalog/service"
	"github.com/wemb-pms/pms-backend/internal/logging"
)

// env is filled by the root command before any subcommand runs.
type env struct {
	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "worker",
		Short:         "Maintenance jobs for the PMS backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logging.New(cfg.App.Environment, cfg.App.LogLevel)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			e.cfg, e.log = cfg, log.Named("worker")
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.log != nil {
				_ = e.log.Sync()
			}
		},
	}

	root.AddCommand(
		newMigrateCmd(e),
		newSeedCatalogCmd(e),
		newWarmCatalogCmd(e),
		newRecalcCmd(e),
	)
	return root
}

// openCatalog opens the database and, when requireRedis is set or redis is
// reachable, the catalog cache.
func (e *env) openCatalog(ctx context.Context, requireRedis bool) (*bootstrap.Stores, *catservice.CatalogService, error) {
	stores, err := bootstrap.OpenDB(ctx, &e.cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	var cache catservice.Cache
	rdb, err := bootstrap.OpenRedis(ctx, e.cfg.Redis)
	switch {
	case err == nil:
		stores.Redis = rdb
		cache = catrepo.NewCache(rdb, e.cfg.Redis.CacheTTL)
	case requireRedis:
		stores.Close()
		return nil, nil, err
	default:
		e.log.Warn("redis unavailable, cache left untouched", zap.Error(err))
	}

	return stores, catservice.NewCatalogService(catrepo.NewRepo(stores.Pool), cache, e.log.Named("catalog")), nil
}
