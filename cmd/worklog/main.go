package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/worklog/internal/app"
	"github.com/nhle/worklog/internal/export"
	"github.com/nhle/worklog/internal/migrate"
	"github.com/nhle/worklog/internal/model"
	"github.com/nhle/worklog/internal/store"
	"github.com/nhle/worklog/internal/web"
)

func main() {
	// Flags
	configPath := flag.String("config", model.DefaultConfigPath(), "Path to the YAML config file")
	dataDir := flag.String("data", "", "Data directory (overrides config)")
	addr := flag.String("addr", "", "HTTP listen address for serve (overrides config)")
	strict := flag.Bool("strict", false, "Abort on corrupt store files instead of starting empty")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	flag.Usage = usage
	flag.Parse()

	// Logger
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// Config
	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.Storage.Dir = *dataDir
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}
	if *strict {
		cfg.Storage.Strict = true
	}

	// Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	command := flag.Arg(0)
	switch command {
	case "", "tui":
		runTUI(cfg, logger)
	case "serve":
		runServe(ctx, cfg, logger)
	case "migrate":
		runMigrate(cfg, logger)
	case "export":
		runExport(ctx, cfg, logger, flag.Arg(1))
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", command)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: worklog [flags] [command]

Commands:
  tui              Run the interactive terminal UI (default)
  serve            Run the JSON API server
  migrate          Migrate legacy tasks.json data in place
  export <path>    Export the JSON stores to a SQLite database

Flags:
`)
	flag.PrintDefaults()
}

// openStores opens the JSON stores honoring the strict setting.
func openStores(cfg *model.AppConfig, logger *slog.Logger) *store.Stores {
	var (
		st  *store.Stores
		err error
	)
	if cfg.Storage.Strict {
		st, err = store.Open(cfg.Storage.Dir)
	} else {
		st, err = store.OpenLenient(cfg.Storage.Dir, logger)
	}
	if err != nil {
		logger.Error("failed to open stores",
			slog.String("dir", cfg.Storage.Dir),
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	return st
}

func runTUI(cfg *model.AppConfig, logger *slog.Logger) {
	st := openStores(cfg, logger)

	p := tea.NewProgram(app.New(st), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Error("ui failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func runServe(ctx context.Context, cfg *model.AppConfig, logger *slog.Logger) {
	st := openStores(cfg, logger)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           web.NewRouter(st, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.HTTP.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("http server stopped")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
}

func runMigrate(cfg *model.AppConfig, logger *slog.Logger) {
	summary, err := migrate.Run(cfg.Storage.Dir, logger)
	if err != nil {
		logger.Error("migration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if summary.TasksMigrated == 0 {
		logger.Info("nothing to migrate")
		return
	}
	logger.Info("migration completed",
		slog.Int("tasks_migrated", summary.TasksMigrated),
		slog.Int("customers_created", summary.CustomersCreated),
		slog.Int("departments_created", summary.DepartmentsCreated),
		slog.String("backup_dir", summary.BackupDir))
}

func runExport(ctx context.Context, cfg *model.AppConfig, logger *slog.Logger, dbPath string) {
	if dbPath == "" {
		fmt.Fprintln(os.Stderr, "export requires a target database path")
		os.Exit(2)
	}

	st := openStores(cfg, logger)

	summary, err := export.ToSQLite(ctx, dbPath, st)
	if err != nil {
		logger.Error("export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("export completed",
		slog.String("path", dbPath),
		slog.Int("customers", summary.Customers),
		slog.Int("departments", summary.Departments),
		slog.Int("tasks", summary.Tasks),
		slog.Int("time_entries", summary.TimeEntries))
}
