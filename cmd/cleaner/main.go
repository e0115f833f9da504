// Command cleaner removes duplicate records from a tabular dataset, normalizes
// its cells and merges the sale month and year into one column.
//
// Without a subcommand it cleans CLEAN_INPUT (default data.csv) into
// CLEAN_OUTPUT (default applied_changes_data.csv).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/AriZeto/data-engineering-test-ArielZeto/internal/config"
	"github.com/AriZeto/data-engineering-test-ArielZeto/internal/core"
	"github.com/AriZeto/data-engineering-test-ArielZeto/internal/logging"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags runFlags

	root := &cobra.Command{
		Use:           "cleaner",
		Short:         "Clean a tabular dataset",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd, flags)
		},
	}
	flags.register(root)

	root.AddCommand(
		newRunCmd(),
		newServeCmd(),
		newHistoryCmd(),
	)
	return root
}

// loadConfig reads .env (if any) and the environment, then sets up logging.
func loadConfig() (*config.Config, error) {
	// Overload so .env wins over stale shell exports
	envLoaded := godotenv.Overload() == nil

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if envLoaded {
		slog.Debug("loaded .env file")
	}
	slog.Debug("configuration loaded", "config", cfg.String())
	return cfg, nil
}

// openHistory connects to the run history database and creates its table.
// It returns nil, nil when no database is configured.
func openHistory(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := core.NewPgRunRecorder(pool).EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to run history database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to run history database")
	}
	return pool, nil
}
