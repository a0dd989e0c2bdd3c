// Command flipview-mcp serves a flipbook viewer session over MCP stdio.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"flipview/internal/config"
	"flipview/internal/database"
	"flipview/internal/database/relational"
	"flipview/internal/logging"
	"flipview/internal/mcpserver"
	"flipview/internal/surface"
	"flipview/internal/viewer"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	dbPath := flag.String("db", "", "reading log database (overrides config)")
	logFile := flag.String("log", "", "log file (default stderr)")
	flag.Parse()

	if err := run(*configPath, *dbPath, *logFile, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "flipview-mcp: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, dbPath, logFile, source string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg = cfg.WithDuckDBPath(dbPath)
	}
	if logFile != "" {
		cfg = cfg.WithLogFile(logFile)
	}

	// stdout carries the protocol; logs go to stderr or a file.
	logger, closer, err := logging.New(cfg.LogLevel, cfg.LogFile, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := relational.Open(ctx, cfg.DuckDBPath,
		relational.WithMemoryLimit(relational.MemoryBudgetMB(ctx, 0.05, 64, 512)))
	if err != nil {
		return err
	}
	defer client.Close()
	repo := relational.NewRepo(client.DB())
	if err := repo.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate reading log: %w", err)
	}

	recorder, err := database.NewRecorder(repo, logger, cfg.FlushInterval)
	if err != nil {
		return err
	}

	session := viewer.NewSession(cfg.Viewer, logger, viewer.Hooks{
		StartPage: database.ResumePage(repo, logger),
	})
	// Agents have no window; assume a desktop-sized viewport until told otherwise.
	session.Resize(viewer.Size{Width: 1280, Height: 800})
	recorder.Attach(session)

	open := surface.NewOpener(&http.Client{Timeout: cfg.FetchTimeout}, logger)
	srv := mcpserver.NewServer(mcpserver.Config{
		ServerName:    "flipview",
		ServerVersion: "1.0.0",
	}, session, open, repo, logger)
	defer srv.Close()

	if source != "" {
		meta, provider, err := open(ctx, source)
		if err := session.Complete(meta, err); err != nil {
			return err
		}
		srv.SetProvider(provider)
	}

	if err := recorder.Start(ctx); err != nil {
		return err
	}
	defer recorder.Stop()

	return srv.Start(ctx)
}
