// Command flipview reads PDF editions in the terminal as a two-page flipbook.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"flipview/internal/config"
	"flipview/internal/database"
	"flipview/internal/database/relational"
	"flipview/internal/document"
	"flipview/internal/logging"
	"flipview/internal/surface"
	"flipview/internal/viewer"
	"flipview/ui/console"
	"flipview/ui/tui"
)

const watchDebounce = 250 * time.Millisecond

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	dbPath := flag.String("db", "", "reading log database (overrides config)")
	logFile := flag.String("log", "", "log file (default: discard while the TUI runs)")
	report := flag.Bool("report", false, "print a reading report for the document and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: flipview [flags] <file.pdf|url>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*configPath, *dbPath, *logFile, *report, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "flipview: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, dbPath, logFile string, report bool, source string) error {
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

	// The TUI owns the terminal, so logs only go to a file when asked.
	var fallback io.Writer
	if report {
		fallback = os.Stderr
	}
	logger, closer, err := logging.New(cfg.LogLevel, cfg.LogFile, fallback)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(logger)

	ctx := context.Background()
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

	session := viewer.NewSession(cfg.Viewer, logger, viewer.Hooks{
		OnReady: func(meta document.Metadata) {
			logger.Info("viewer ready", "title", meta.Title, "pages", meta.TotalPages)
		},
		OnFailure: func(err error) {
			logger.Error("viewer failed to open document", "error", err)
		},
		StartPage: database.ResumePage(repo, logger),
	})
	open := surface.NewOpener(&http.Client{Timeout: cfg.FetchTimeout}, logger)

	if report {
		return printReport(ctx, session, open, repo, source)
	}

	recorder, err := database.NewRecorder(repo, logger, cfg.FlushInterval)
	if err != nil {
		return err
	}
	detach := recorder.Attach(session)
	defer detach()
	if err := recorder.Start(ctx); err != nil {
		return err
	}
	defer recorder.Stop()

	var watcher *document.Watcher
	if cfg.WatchFile && !document.IsRemote(source) {
		watcher, err = document.NewWatcher(source, watchDebounce, logger)
		if err != nil {
			logger.Warn("file watching disabled", "source", source, "error", err)
		} else {
			defer watcher.Close()
		}
	}

	return tui.Start(cfg, session, tui.Options{
		Source:  source,
		Open:    open,
		Watcher: watcher,
		Logger:  logger,
	})
}

func printReport(ctx context.Context, session *viewer.Session, open surface.OpenFunc, repo *relational.Repo, source string) error {
	meta, provider, err := open(ctx, source)
	if err := session.Complete(meta, err); err != nil {
		return err
	}
	if c, ok := provider.(io.Closer); ok {
		defer c.Close()
	}

	r := console.Report{Snapshot: session.Snapshot()}
	pos, err := repo.LastPosition(ctx, meta.Fingerprint)
	switch {
	case err == nil:
		r.Position = &pos
	case !errors.Is(err, relational.ErrNoPosition):
		return err
	}
	if r.TopPages, err = repo.TopPages(ctx, meta.Fingerprint, 5); err != nil {
		return err
	}
	if r.Events, err = repo.RecentEvents(ctx, meta.Fingerprint, 10); err != nil {
		return err
	}
	console.Print(os.Stdout, r)
	return nil
}
