// Package main provides the entry point for the ManudBE API server and its maintenance commands
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcoalfans/manud-be/app/scheduler"
	businessflow "github.com/marcoalfans/manud-be/business_flow"
	"github.com/marcoalfans/manud-be/config"
	"github.com/marcoalfans/manud-be/logging"
	"github.com/marcoalfans/manud-be/migrations"
)

type rootOptions struct {
	envFile string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	serve := newServeCommand(opts)
	root := &cobra.Command{
		Use:           "manud-be",
		Short:         "ManudBE travel companion backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		// running the binary without a subcommand starts the server
		RunE: serve.RunE,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve, newMigrateCommand(opts), newSeedCommand(opts))
	return root
}

// loadRuntime reads configuration and builds the process logger.
func loadRuntime(opts *rootOptions) (*config.Config, logging.Logger, func() error, error) {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, flush := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		FilePath:   cfg.Logging.FilePath,
		MaxSizeMB:  cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	})
	return cfg, log.With("service", cfg.App.Name, "version", cfg.App.Version), flush, nil
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, flush, err := loadRuntime(opts)
			if err != nil {
				return err
			}
			defer flush()

			if autoMigrate {
				if err := runMigrations(cmd.Context(), cfg, log); err != nil {
					return err
				}
			}
			return serve(cfg, log)
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply pending database migrations before serving")
	return cmd
}

func serve(cfg *config.Config, log logging.Logger) error {
	app, err := initializeApplication(cfg, log)
	if err != nil {
		return err
	}
	defer app.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.startBackground(ctx)
	app.router.SetupRoutes()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.router.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server stopped unexpectedly: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down gracefully")
	app.stopBackground()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := app.router.Shutdown(shutdownCtx); err != nil {
		log.Error("Error during shutdown", "error", err)
	}
	log.Info("Server stopped")
	return nil
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending PostgreSQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, flush, err := loadRuntime(opts)
			if err != nil {
				return err
			}
			defer flush()
			return runMigrations(cmd.Context(), cfg, log)
		},
	}
}

func runMigrations(ctx context.Context, cfg *config.Config, log logging.Logger) error {
	db, err := migrations.Open(cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	applied, err := migrations.Apply(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	log.Info("Migrations applied", "count", len(applied), "names", applied)
	return nil
}

type seedOptions struct {
	file   string
	mode   string
	userID string
}

func newSeedCommand(opts *rootOptions) *cobra.Command {
	seedOpts := &seedOptions{}

	cmd := &cobra.Command{
		Use:       "seed <umkm|destinations>",
		Short:     "Bulk-import catalog records from a JSON or XLSX file",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"umkm", "destinations"},
		Example: `  manud-be seed umkm --file umkm.xlsx
  manud-be seed destinations --file wisata.json --mode dataset
  manud-be seed destinations --file saved.json --mode favorites --user-id 7f1c...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), opts, seedOpts, args[0])
		},
	}
	cmd.Flags().StringVar(&seedOpts.file, "file", "", "input file (.json or .xlsx)")
	cmd.Flags().StringVar(&seedOpts.mode, "mode", businessflow.SeedModeDataset, "destination seed mode: dataset or favorites")
	cmd.Flags().StringVar(&seedOpts.userID, "user-id", "", "owner of seeded favorites")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runSeed(ctx context.Context, opts *rootOptions, seedOpts *seedOptions, target string) error {
	cfg, log, flush, err := loadRuntime(opts)
	if err != nil {
		return err
	}
	defer flush()

	f, err := os.Open(seedOpts.file)
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	records, err := businessflow.DecodeSeedFile(filepath.Base(seedOpts.file), f)
	if err != nil {
		return err
	}

	db, err := initializeDatabase(cfg.Database, log)
	if err != nil {
		return err
	}
	store, err := initializeCatalogStore(cfg, db, log)
	if err != nil {
		return err
	}
	defer store.close()

	allocator := businessflow.NewSequenceAllocator(store.counters, businessflow.AllocatorOptions{
		MaxRetries:      cfg.Catalog.AllocatorRetries,
		InitialInterval: cfg.Catalog.AllocatorBackoff,
	}, nil)
	seeder := businessflow.NewSeedFlow(store.umkm, store.destinations, store.favorites, allocator, log, nil)

	var report *businessflow.SeedReport
	switch target {
	case "umkm":
		report, err = seeder.SeedUmkm(ctx, records)
	case "destinations":
		report, err = seeder.SeedDestinations(ctx, records, seedOpts.mode, seedOpts.userID)
	default:
		err = errors.New("unknown seed target " + target)
	}
	if err != nil {
		return fmt.Errorf("seed %s failed: %w", target, err)
	}

	log.Info("Seed completed",
		"target", target,
		"backend", store.backend,
		"read", report.Read,
		"written", report.Written,
		"rejected", report.Rejected,
		"max_id", report.MaxID,
	)
	return nil
}

// startBackground launches periodic maintenance; stopBackground waits for it to finish.
func (a *Application) startBackground(ctx context.Context) {
	cleanup := scheduler.NewTokenCleanup(a.verifications, a.sessions, a.logger, a.config.Scheduler.TokenCleanupInterval)
	a.stopFuncs = append(a.stopFuncs, cleanup.Start(ctx))

	if a.cacheMonitor != nil {
		a.stopFuncs = append(a.stopFuncs, a.cacheMonitor.Start(ctx))
	}
}

func (a *Application) stopBackground() {
	for _, stop := range a.stopFuncs {
		stop()
	}
	a.stopFuncs = nil
}
