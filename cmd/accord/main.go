package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/accordhq/accord/internal/audit"
	"github.com/accordhq/accord/internal/clock"
	"github.com/accordhq/accord/internal/config"
	"github.com/accordhq/accord/internal/entitlement"
	"github.com/accordhq/accord/internal/invoice"
	"github.com/accordhq/accord/internal/migration"
	"github.com/accordhq/accord/internal/moderation"
	"github.com/accordhq/accord/internal/observability"
	"github.com/accordhq/accord/internal/payload"
	"github.com/accordhq/accord/internal/pricing"
	"github.com/accordhq/accord/internal/redis"
	"github.com/accordhq/accord/internal/scheduler"
	"github.com/accordhq/accord/internal/server"
	"github.com/accordhq/accord/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "accord",
		Short:   "Accord entitlement and moderation core",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(newMigrateCmd(), newServeCmd(), newAllCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and background sweeps",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then serve",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			runServe()
			return nil
		},
	}
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		db.Module,
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	return app.Stop(context.Background())
}

func runServe() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redis.Module,
		payload.Module,
		audit.Module,
		entitlement.Module,
		invoice.Module,
		moderation.Module,
		scheduler.Module,
		server.Module,
		fx.Invoke(validatePricing),
		fx.Invoke(startScheduler),
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

// validatePricing keeps a broken price table from ever serving traffic.
func validatePricing() error {
	return pricing.Validate()
}

func startScheduler(lc fx.Lifecycle, s *scheduler.Scheduler) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
