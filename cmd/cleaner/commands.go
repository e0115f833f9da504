package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/AriZeto/data-engineering-test-ArielZeto/internal/config"
	"github.com/AriZeto/data-engineering-test-ArielZeto/internal/core"
	"github.com/AriZeto/data-engineering-test-ArielZeto/internal/metrics"
	"github.com/AriZeto/data-engineering-test-ArielZeto/internal/web"
)

// runFlags override the CLEAN_* settings for a single run.
type runFlags struct {
	input     string
	output    string
	delimiter string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "source file (overrides CLEAN_INPUT)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "destination file (overrides CLEAN_OUTPUT)")
	cmd.Flags().StringVarP(&f.delimiter, "delimiter", "d", "", "field delimiter, or \"tab\" (overrides CLEAN_DELIMITER)")
}

// apply copies the flags that were set onto cfg.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.CleanConfig) {
	if cmd.Flags().Changed("input") {
		cfg.Input = f.input
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = f.output
	}
	if cmd.Flags().Changed("delimiter") {
		cfg.Delimiter = f.delimiter
	}
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Clean one file and write the result",
		Long: `Load the source, drop duplicate records, fill empty cells with N/A,
strip leading zeros and whitespace from every cell, replace "Mo Sold"
and "Yr Sold" with "Date When Sold", and write the result.

Example: cleaner run --input data.csv --output applied_changes_data.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func runClean(cmd *cobra.Command, flags runFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	flags.apply(cmd, &cfg.Clean)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Clean.Timeout)
	defer cancel()

	opts := []core.Option{
		core.WithDelimiter(cfg.Clean.Comma()),
		core.WithMaxFileSize(cfg.Clean.MaxFileSize),
	}

	pool, err := openHistory(ctx, cfg.Database)
	if err != nil {
		// A run is still useful without history
		slog.Warn("run history disabled", "error", err)
	}
	if pool != nil {
		defer pool.Close()
		opts = append(opts, core.WithRecorder(core.NewPgRunRecorder(pool)))
	}

	report, err := core.NewPipeline(opts...).Run(ctx, cfg.Clean.Input, cfg.Clean.Output)
	if err != nil {
		return err
	}

	printReport(cmd.OutOrStdout(), report)
	return nil
}

func printReport(w io.Writer, r core.Report) {
	fmt.Fprintf(w, "Cleaned %s -> %s\n", r.Input, r.Output)
	fmt.Fprintf(w, "  rows read:           %d\n", r.RowsRead)
	fmt.Fprintf(w, "  duplicates removed:  %d\n", r.DuplicatesRemoved)
	fmt.Fprintf(w, "  cells filled:        %d\n", r.CellsFilled)
	fmt.Fprintf(w, "  zeros stripped:      %d\n", r.ZerosStripped)
	fmt.Fprintf(w, "  whitespace stripped: %d\n", r.WhitespaceStripped)
	if r.ColumnsCombined {
		fmt.Fprintf(w, "  columns combined:    %s\n", core.DateWhenSold.Target)
	} else {
		fmt.Fprintf(w, "  columns combined:    none (%s or %s missing)\n",
			core.DateWhenSold.First, core.DateWhenSold.Second)
	}
	fmt.Fprintf(w, "  rows written:        %d\n", r.RowsWritten)
	fmt.Fprintf(w, "  duration:            %s\n", r.Duration.Round(time.Millisecond))
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload page and cleaning API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	opts := []core.Option{
		core.WithDelimiter(cfg.Clean.Comma()),
		core.WithMaxFileSize(cfg.Clean.MaxFileSize),
		core.WithObserver(m),
	}
	serverOpts := web.Options{
		Config:      cfg.Server,
		MaxFileSize: cfg.Clean.MaxFileSize,
	}
	if cfg.Metrics.Enabled {
		serverOpts.Metrics = m.Handler()
	}

	pool, err := openHistory(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
		recorder := core.NewPgRunRecorder(pool)
		opts = append(opts, core.WithRecorder(recorder))
		serverOpts.History = recorder
	}

	serverOpts.Pipeline = core.NewPipeline(opts...)
	server := web.NewServer(serverOpts)

	slog.Info("configuration loaded",
		"addr", cfg.Server.Addr(),
		"max_concurrent_runs", cfg.Server.MaxConcurrentRuns,
		"history_enabled", pool != nil,
		"metrics_enabled", cfg.Metrics.Enabled,
		"api_keys", len(cfg.Server.APIKeys),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		return err
	}
	slog.Info("server stopped")
	return nil
}

func newHistoryCmd() *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the run history database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Database.Enabled() {
				return errors.New("run history is not configured: set DATABASE_URL")
			}

			ctx := cmd.Context()
			pool, err := openHistory(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			runs, err := core.NewPgRunRecorder(pool).Recent(ctx, limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", core.DefaultHistoryLimit, "number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print runs as JSON")
	return cmd
}

func printRuns(w io.Writer, runs []core.Report) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tINPUT\tREAD\tDUPLICATES\tWRITTEN\tDURATION\tSTATUS")
	for _, r := range runs {
		status := "ok"
		if !r.Succeeded() {
			status = "failed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Input, r.RowsRead, r.DuplicatesRemoved, r.RowsWritten,
			r.Duration.Round(time.Millisecond), status)
	}
	return tw.Flush()
}

