package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rateshoplabs/rateshop/internal/clock"
	"github.com/rateshoplabs/rateshop/internal/config"
	"github.com/rateshoplabs/rateshop/internal/countrycache"
	"github.com/rateshoplabs/rateshop/internal/freeship"
	"github.com/rateshoplabs/rateshop/internal/migration"
	"github.com/rateshoplabs/rateshop/internal/observability"
	"github.com/rateshoplabs/rateshop/internal/quote"
	"github.com/rateshoplabs/rateshop/internal/redis"
	"github.com/rateshoplabs/rateshop/internal/seed"
	"github.com/rateshoplabs/rateshop/internal/server"
	"github.com/rateshoplabs/rateshop/internal/shipfile"
	"github.com/rateshoplabs/rateshop/internal/template"
	"github.com/rateshoplabs/rateshop/internal/whitelist"
	"github.com/rateshoplabs/rateshop/internal/zone"
	"github.com/rateshoplabs/rateshop/pkg/db"
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
		Use:     "rateshop",
		Short:   "Shipping rate engine CLI",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(newMigrateCmd(), newSeedCmd(), newServeCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo rate templates and mappings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the shipping rate API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,
	)
	return runToCompletion(app, "migrate")
}

func runSeed() error {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		template.Module,
		zone.Module,
		freeship.Module,
		seed.Module,
	)
	return runToCompletion(app, "seed")
}

func runServe() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redis.Module,
		countrycache.Module,
		template.Module,
		zone.Module,
		freeship.Module,
		whitelist.Module,
		quote.Module,
		shipfile.Module,
		server.Module,
	)
	app.Run()
}

func runToCompletion(app *fx.App, name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return app.Stop(context.Background())
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
