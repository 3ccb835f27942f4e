package main

import (
	"context"
	"embed"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/klabast/shift-calendar/internal/app"
	"github.com/klabast/shift-calendar/internal/commands"
)

//go:embed static/*
var staticFiles embed.FS

//go:embed static/index.html
var indexHTML []byte

//go:embed static/edit.html
var editHTML []byte

func main() {
	// Check for subcommands
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		commands.HashPassword(os.Args[2:])
		return
	}

	// Parse flags
	configPath := flag.String("config", "config.yaml", "Path to config file")
	listen := flag.String("listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&app.EditMode, "edit", false, "Enable edit mode (default is serve mode)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()
	app.Log = logger.Sugar()

	conf, err := app.LoadConfig(*configPath)
	if err != nil {
		app.Log.Fatalw("failed to load config", "config_path", *configPath, "err", err)
	}
	if *listen != "" {
		conf.Listen = *listen
	}
	app.ApplyConfig(conf)

	if err := os.MkdirAll(conf.DataDir, 0o755); err != nil {
		app.Log.Fatalw("failed to create data directory", "dir", conf.DataDir, "err", err)
	}

	// Make embedded files available to app package
	app.StaticFiles = staticFiles
	app.IndexHTML = indexHTML
	app.EditHTML = editHTML

	// Load and validate auth credentials (if edit mode)
	if app.EditMode {
		if err := app.LoadAuthCredentials(); err != nil {
			app.Log.Fatalw("failed to load auth credentials", "err", err)
		}
	}

	// Load persisted state. None of these are fatal: absent or corrupt
	// files degrade to an empty calendar, never a dead service.
	app.LoadAssignments()
	app.LoadState()
	app.LoadFeedCache()

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Initial feed fetch in the background; the calendar serves the
	// cached feed (or an empty one) until it lands.
	if conf.FeedURL != "" {
		go func() {
			if err := app.RefreshFeed(ctx); err != nil {
				app.Log.Warnw("initial feed fetch failed, serving cached feed", "err", err)
			}
		}()
	}

	// Scheduled feed refresh.
	var scheduler *cron.Cron
	if conf.FeedURL != "" {
		scheduler = cron.New()
		if _, err := scheduler.AddFunc(conf.RefreshCron, func() {
			refreshCtx, refreshCancel := context.WithTimeout(ctx, time.Minute)
			defer refreshCancel()
			if err := app.RefreshFeed(refreshCtx); err != nil {
				app.Log.Warnw("scheduled feed refresh failed", "err", err)
			}
		}); err != nil {
			app.Log.Fatalw("invalid refresh schedule", "refresh", conf.RefreshCron, "err", err)
		}
		scheduler.Start()
	}

	// Setup routes
	mux := http.NewServeMux()
	mux.HandleFunc("/", app.ServeIndex)
	mux.HandleFunc("/api/config", app.GetConfig)
	mux.HandleFunc("/api/month", app.HandleMonth)
	mux.HandleFunc("/api/status", app.HandleStatus)
	mux.HandleFunc("/api/download", app.HandleDownload)
	mux.HandleFunc("/api/subscribe", app.HandleSubscribe)

	// Filter reads are public, filter writes are an edit-mode mutation.
	mux.HandleFunc("/api/filter", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			app.HandleFilter(w, r)
			return
		}
		app.RequireAuth(app.HandleFilter)(w, r)
	})

	// Edit mode routes (protected with Basic Auth)
	if app.EditMode {
		mux.HandleFunc("/edit", app.RequireAuth(app.ServeEdit))
		mux.HandleFunc("/api/assignments/toggle", app.RequireAuth(app.HandleToggleAssignment))
		mux.HandleFunc("/api/assignments/remove", app.RequireAuth(app.HandleRemoveAssignment))
		mux.HandleFunc("/api/assignments/move", app.RequireAuth(app.HandleMoveAssignment))
		mux.HandleFunc("/api/assignments/note", app.RequireAuth(app.HandleUpdateNote))
		mux.HandleFunc("/api/refresh", app.RequireAuth(app.HandleRefresh))
		mux.HandleFunc("/api/submit", app.RequireAuth(app.HandleSubmitDiff))
	}

	// Serve static files
	mux.Handle("/static/", http.FileServer(http.FS(staticFiles)))

	mode := app.ModeServe
	if app.EditMode {
		mode = app.ModeEdit
	}

	server := &http.Server{Addr: conf.Listen, Handler: mux}

	go func() {
		sig := <-sigCh
		app.Log.Infow("signal received, shutting down", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			app.Log.Errorw("server shutdown failed", "err", err)
		}
	}()

	app.Log.Infow("starting shift calendar",
		"mode", mode,
		"listen", conf.Listen,
		"data_dir", conf.DataDir,
		"feed_configured", conf.FeedURL != "",
		"tracked_person", conf.TrackedPerson,
	)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.Log.Fatalw("server failed", "err", err)
	}

	if scheduler != nil {
		scheduler.Stop()
	}
	app.Log.Infow("shift calendar exiting")
}
