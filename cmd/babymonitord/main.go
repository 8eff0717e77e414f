package main

import (
	"flag"
	"log"
	"net/http"
	_ "net/http/pprof" // Enable pprof
	"os"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/mattn/go-isatty"

	"github.com/shichaoxia/baby-monitor/internal/capture"
	"github.com/shichaoxia/baby-monitor/internal/classifier"
	"github.com/shichaoxia/baby-monitor/internal/config"
	"github.com/shichaoxia/baby-monitor/internal/dispatch"
	"github.com/shichaoxia/baby-monitor/internal/journal"
	"github.com/shichaoxia/baby-monitor/internal/logger"
	"github.com/shichaoxia/baby-monitor/internal/metrics"
	"github.com/shichaoxia/baby-monitor/internal/monitor"
	"github.com/shichaoxia/baby-monitor/internal/pipeline"
)

var (
	// Command-line flags
	configPath = flag.String("config", "babymonitor.toml", "Config file path")
	logLevel   = flag.String("log-level", "info", "Log level (debug, info, warn, error, silent)")
	logColor   = flag.Bool("log-color", isatty.IsTerminal(os.Stderr.Fd()), "Enable colored log output")
)

func main() {
	flag.Parse()

	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger.Init(level, os.Stderr, *logColor)

	logger.Info("Main", "Baby monitor starting...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// The camera is exclusive; refuse to run twice against the same device.
	instanceLock := flock.New(cfg.Server.LockPath)
	locked, err := instanceLock.TryLock()
	if err != nil {
		log.Fatalf("Instance lock %s: %v", cfg.Server.LockPath, err)
	}
	if !locked {
		log.Fatalf("Another instance is already running (lock %s)", cfg.Server.LockPath)
	}
	defer instanceLock.Unlock()

	m := metrics.New()

	source, err := capture.Open(cfg.Camera)
	if err != nil {
		log.Fatalf("Failed to open camera: %v", err)
	}

	recognizer, err := classifier.NewSidecar(cfg.Detection)
	if err != nil {
		_ = source.Close()
		log.Fatalf("Failed to start classifier: %v", err)
	}

	audio := dispatch.NewAudioPlayer(cfg.Notify.AudioPath)
	pusher := dispatch.NewBarkPusher(cfg.Notify)
	logger.Info("Main", "Push recipients configured: %d", len(cfg.Notify.BarkKeys))

	var store *journal.Store
	var recorder dispatch.Recorder
	var events monitor.EventSource
	if cfg.Server.JournalPath != "" {
		store, err = journal.Open(cfg.Server.JournalPath)
		if err != nil {
			logger.Warn("Main", "Care journal unavailable, continuing without it: %v", err)
		} else {
			recorder = store
			events = store
		}
	}

	dispatcher := dispatch.New(audio, pusher, recorder, m)
	supervisor := pipeline.New(source, recognizer, dispatcher, m, cfg)

	// Auxiliary servers
	go func() {
		logger.Info("Main", "Metrics server on %s", cfg.Server.MetricsAddr)
		if err := m.StartServer(cfg.Server.MetricsAddr); err != nil {
			logger.Error("Main", "Metrics server: %v", err)
		}
	}()

	if cfg.Server.PprofAddr != "" {
		go func() {
			logger.Info("Main", "pprof server on %s", cfg.Server.PprofAddr)
			if err := http.ListenAndServe(cfg.Server.PprofAddr, nil); err != nil {
				logger.Error("Main", "pprof server: %v", err)
			}
		}()
	}

	statusServer := monitor.New(cfg.Server.StatusAddr, supervisor, m, events)
	go func() {
		logger.Info("Main", "Status server on %s", cfg.Server.StatusAddr)
		if err := statusServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("Main", "Status server: %v", err)
		}
	}()

	if err := supervisor.Start(); err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Main", "Shutting down...")

	if err := supervisor.Stop(); err != nil {
		logger.Error("Main", "Pipeline shutdown: %v", err)
	}
	if err := statusServer.Shutdown(); err != nil {
		logger.Error("Main", "Status server shutdown: %v", err)
	}
	if store != nil {
		_ = store.Close()
	}

	logger.Info("Main", "Stopped")
}
