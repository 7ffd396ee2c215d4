package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wemb-pms/pms-backend/internal/estimation/domain"
	estrepo "github.com/wemb-pms/pms-backend/internal/estimation/repository"
	estservice "github.com/wemb-pms/pms-backend/internal/estimation/service"
	"github.com/wemb-pms/pms-backend/internal/storage/postgres"
)

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := postgres.NewConnection(ctx, &e.cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(ctx, db); err != nil {
				return err
			}
			e.log.Info("schema migrated", zap.Int("statements", len(postgres.Statements())))
			return nil
		},
	}
}

func newSeedCatalogCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-catalog",
		Short: "Upsert the built-in M/D catalog into the catalog tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			stores, catalog, err := e.openCatalog(ctx, false)
			if err != nil {
				return err
			}
			defer stores.Close()

			if err := catalog.Seed(ctx); err != nil {
				return err
			}
			e.log.Info("catalog seeded")
			return nil
		},
	}
}

func newWarmCatalogCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "warm-catalog",
		Short: "Reload the M/D catalog into redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			stores, catalog, err := e.openCatalog(ctx, true)
			if err != nil {
				return err
			}
			defer stores.Close()

			_, err = catalog.Refresh(ctx, "worker")
			return err
		},
	}
}

func newRecalcCmd(e *env) *cobra.Command {
	var projectID int64
	cmd := &cobra.Command{
		Use:   "recalc",
		Short: "Re-derive stored estimation totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			stores, catalog, err := e.openCatalog(ctx, false)
			if err != nil {
				return err
			}
			defer stores.Close()

			// completed estimations are skipped, so project status is never touched
			svc := estservice.NewEstimationService(
				estrepo.NewRepo(stores.Pool), catalog, nil,
				e.cfg.Estimation.MMCalculationBase, e.log.Named("estimation"),
			)

			var f domain.ListFilter
			if projectID > 0 {
				f.ProjectID = &projectID
			}
			res, err := svc.Recalc(ctx, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %d, skipped %d\n", res.Updated, res.Skipped)
			return nil
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "only recalculate this project's estimations")
	return cmd
}
