// Sentry daemon - watches a screen region, OCRs it and presses keys on a match
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/GriffinCanCode/scan-sentry/internal/audio"
	"github.com/GriffinCanCode/scan-sentry/internal/config"
	"github.com/GriffinCanCode/scan-sentry/internal/control"
	"github.com/GriffinCanCode/scan-sentry/internal/events"
	"github.com/GriffinCanCode/scan-sentry/internal/hotkey"
	"github.com/GriffinCanCode/scan-sentry/internal/input"
	"github.com/GriffinCanCode/scan-sentry/internal/logging"
	"github.com/GriffinCanCode/scan-sentry/internal/notify"
	"github.com/GriffinCanCode/scan-sentry/internal/ocr"
	"github.com/GriffinCanCode/scan-sentry/internal/overlay"
	"github.com/GriffinCanCode/scan-sentry/internal/pipeline"
	"github.com/GriffinCanCode/scan-sentry/internal/resilience"
	"github.com/GriffinCanCode/scan-sentry/internal/scan"
	"github.com/GriffinCanCode/scan-sentry/internal/screen"
	"github.com/GriffinCanCode/scan-sentry/internal/server"
	"github.com/GriffinCanCode/scan-sentry/internal/session"
)

const (
	chimeSampleRate = 44100
	noticeCooldown  = 2 * time.Second
	shutdownTimeout = 5 * time.Second
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == overlay.ChildCommand {
		os.Exit(runOverlay(os.Args[2:]))
	}
	if err := run(); err != nil {
		slog.Error("sentry failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional
	_ = godotenv.Load()
	cfg := config.Load()

	fs := flag.NewFlagSet("sentry", flag.ExitOnError)
	configFile := fs.String("config", cfg.ConfigFile, "path to the region/settings file")
	interval := fs.Float64("interval", cfg.ScanInterval.Seconds(), "scan interval in seconds")
	debug := fs.Bool("debug", cfg.Debug, "enable debug logging")
	_ = fs.Parse(os.Args[1:])
	cfg.ConfigFile = *configFile
	cfg.ScanInterval = config.Seconds(*interval)
	cfg.Debug = *debug

	// Setup structured logging
	feed := events.NewLog(server.BacklogSize)
	logger, closer := logging.New(logging.Options{Debug: cfg.Debug, Console: os.Stdout, File: cfg.LogFile, Sink: feed})
	slog.SetDefault(logger)
	defer func() { _ = closer.Close() }()

	// Capture and recognition
	pre, err := pipeline.NewPreprocessor(cfg.Preprocess)
	if err != nil {
		return err
	}
	notifier, stopNotifier := buildNotifier(cfg, feed)
	defer stopNotifier()

	breaker := resilience.New(resilience.OCRConfig()).WithHook(engineAlerts(notifier))
	engine := ocr.WithBreaker(ocr.NewTesseract(cfg.OCRLanguages...), breaker)
	pipe := pipeline.New(screen.New(), pre, engine, pipeline.WithScale(cfg.OCRScale))
	defer func() { _ = pipe.Close() }()

	robot := input.NewRobot()
	var sess *session.Session
	ctrl := scan.NewController(pipe, robot,
		scan.WithEngineState(pipe.EngineState),
		scan.OnComplete(func(sum scan.Summary) { sess.ScanFinished(sum) }))

	spawner, err := overlay.SelfSpawner()
	if err != nil {
		return err
	}
	ov := overlay.NewManager(spawner, ctrl, overlay.WithJoinTimeout(cfg.OverlayJoinTimeout))

	sess = session.New(ctrl, ov, robot, notifier, session.Settings{
		ConfigFile:  cfg.ConfigFile,
		Interval:    cfg.ScanInterval,
		Limit:       cfg.ScanLimit,
		Targets:     cfg.TargetWords,
		Reverse:     cfg.ReverseLogic,
		MatchKey:    cfg.MatchKey,
		AdvanceKey:  cfg.AdvanceKey,
		CacheSize:   cfg.CacheSize,
		Autosave:    cfg.Autosave,
		CornerDelay: cfg.CornerDelay,
	})
	if cfg.ConfigFile != "" {
		_ = sess.LoadConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Command surfaces
	srv := server.New(sess, feed)
	defer srv.Close()
	httpServer := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     srv.Handler(),
		ReadTimeout: 10 * time.Second,
	}
	go func() {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}
	ctl := control.NewServer(sess)
	go func() {
		if err := ctl.Serve(lis); err != nil {
			slog.Error("grpc server error", "error", err)
		}
	}()

	if cfg.HotkeysEnabled {
		hk := hotkey.NewListener(sess, nil)
		if err := hk.Start(ctx, hotkey.DefaultBindings()); err != nil {
			slog.Warn("hotkeys disabled", "error", err)
		}
		defer func() { _ = hk.Close() }()
	}

	slog.Info("sentry started", "http", cfg.HTTPAddr, "grpc", cfg.GRPCAddr,
		"preprocess", pipe.Strategy(), "config", cfg.ConfigFile)
	if st := sess.Status(); st.State == session.Idle.String() || st.State == session.RegionPartial.String() {
		slog.Info("region not defined, use F7 and F8 to set region corners")
	}
	_ = notifier.Notify("Ready", "Running in the background. Use hotkeys or sentryctl to control.")

	// Wait for shutdown signal or an exit command
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		slog.Info("signal received", "signal", sig.String())
	case <-sess.Done():
	}

	slog.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := sess.Exit(shutdownCtx); err != nil {
		slog.Error("session exit error", "error", err)
	}
	cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	ctl.Stop()
	slog.Info("shutdown complete")
	return nil
}

// buildNotifier feeds every notice to the log pane; desktop toasts and the
// chime are optional and throttled.
func buildNotifier(cfg *config.Config, feed *events.Log) (notify.Notifier, func()) {
	var outward notify.Multi
	var cleanup []func()

	if cfg.NotifyEnabled {
		outward = append(outward, notify.Desktop{})
	}
	if cfg.ChimeEnabled {
		player, err := audio.NewPlayer(chimeSampleRate, "")
		if err != nil {
			slog.Warn("chime disabled", "error", err)
		} else {
			chime := notify.NewChime(player, audio.Chime...)
			outward = append(outward, chime)
			cleanup = append(cleanup, func() {
				chime.Wait()
				_ = player.Close()
			})
		}
	}

	n := notify.Multi{notify.Feed{Log: feed}}
	if len(outward) > 0 {
		n = append(n, notify.NewThrottle(outward, noticeCooldown))
	}
	return notify.Logged(n), func() {
		for _, fn := range cleanup {
			fn()
		}
	}
}

// engineAlerts tells the user when OCR starts failing fast and when it
// recovers. Half-open retries that fail again stay quiet.
func engineAlerts(n notify.Notifier) func(from, to resilience.State) {
	return func(from, to resilience.State) {
		switch {
		case from == resilience.Closed && to == resilience.Open:
			_ = n.Notify("OCR unavailable", "Text recognition keeps failing. Scanning continues and will retry.")
		case to == resilience.Closed:
			_ = n.Notify("OCR recovered", "Text recognition is working again.")
		}
	}
}

// runOverlay is the child process started by overlay.SelfSpawner.
func runOverlay(args []string) int {
	fs := flag.NewFlagSet(overlay.ChildCommand, flag.ContinueOnError)
	rectArg := fs.String("rect", "", "outline rectangle x0,y0,x1,y1")
	flagPath := fs.String("flag", "", "shared flag file")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger, _ := logging.New(logging.Options{Debug: *debug, Console: os.Stderr})
	slog.SetDefault(logger)

	rect, err := overlay.ParseRect(*rectArg)
	if err != nil || *flagPath == "" {
		slog.Error("overlay: bad arguments", "rect", *rectArg, "flag", *flagPath, "error", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := overlay.RunChild(ctx, rect, overlay.OpenFlagView(*flagPath), overlay.DefaultRenderer()); err != nil {
		return 1
	}
	return 0
}
