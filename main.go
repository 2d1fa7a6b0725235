package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"respec/internal/config"
	"respec/internal/database"
	"respec/internal/metrics"
	"respec/internal/store"
)

// app holds what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	dbPath     string

	cfg    *config.Config
	logger *slog.Logger
	repo   *database.Repository
	hist   *metrics.Histogram
	store  *store.Store
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, closeApp := newRootCmd()
	err := root.ExecuteContext(ctx)
	if cerr := closeApp(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. The returned func releases the
// database and must be called once execution finishes.
func newRootCmd() (*cobra.Command, func() error) {
	a := &app{}
	root := &cobra.Command{
		Use:          "respec",
		Short:        "Document store and refinement-loop engine",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "respec.yaml", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (overrides config)")

	root.AddCommand(newLoopCmd(a), newDocCmd(a), newStatsCmd(a))
	return root, a.close
}

func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	a.cfg = cfg
	a.logger = newLogger(cmd.ErrOrStderr(), cfg.Logging)

	repo, err := database.OpenRepository(cmd.Context(), cfg.Database.Path, cfg.Database.CacheSize)
	if err != nil {
		return err
	}
	a.repo = repo

	a.hist = metrics.NewHistogram(repo.DB(), metrics.WithLogger(a.logger))
	if err := a.hist.EnsureSchema(cmd.Context()); err != nil {
		repo.Close()
		return err
	}

	a.store = store.New(repo,
		store.WithLogger(a.logger),
		store.WithEngine(cfg.LoopConfig()),
		store.WithRecorder(metrics.Multi(metrics.Prometheus{}, a.hist)),
	)
	a.logger.Debug("store opened", "db", cfg.Database.Path)
	return nil
}

func (a *app) close() error {
	if a.repo == nil {
		return nil
	}
	err := a.repo.Close()
	a.repo = nil
	return err
}

func newLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	level, _ := config.ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// readInput reads path, or stdin when path is "-" or empty.
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
