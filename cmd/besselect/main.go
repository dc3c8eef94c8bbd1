package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/besselect/internal/config"
	"git.home.luguber.info/inful/besselect/internal/index"
	"git.home.luguber.info/inful/besselect/internal/metrics"
	"git.home.luguber.info/inful/besselect/internal/selector"
	"git.home.luguber.info/inful/besselect/internal/stream"
	"git.home.luguber.info/inful/besselect/internal/version"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"config.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Select struct {
		File     string `arg:"" help:"Build event json file to process"`
		StateIn  string `help:"Restore selector state from this checkpoint file"`
		StateOut string `help:"Write selector state to this checkpoint file after the run"`
	} `cmd:"" help:"Select artifacts from a completed build event file"`

	Tail struct {
		File     string `arg:"" help:"Build event json file to follow"`
		StateIn  string `help:"Restore selector state from this checkpoint file"`
		StateOut string `help:"Write selector state to this checkpoint file after the run"`
	} `cmd:"" help:"Follow a build event file as it is written, until the last message"`

	Listen struct {
		StateIn  string `help:"Restore selector state from this checkpoint file"`
		StateOut string `help:"Write selector state to this checkpoint file after the run"`
	} `cmd:"" help:"Receive build events from the configured NATS subject"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Version struct{} `cmd:"" help:"Show version information"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	switch ctx.Command() {
	case "select <file>":
		cfg := loadConfig()
		source, err := stream.NewFileSource(CLI.Select.File)
		if err != nil {
			slog.Error("Failed to open event file", "path", CLI.Select.File, "error", err)
			os.Exit(1)
		}
		if err := runStream(cfg, source, CLI.Select.StateIn, CLI.Select.StateOut); err != nil {
			slog.Error("Select failed", "error", err)
			os.Exit(1)
		}
	case "tail <file>":
		cfg := loadConfig()
		source, err := stream.NewTailSource(CLI.Tail.File)
		if err != nil {
			slog.Error("Failed to open event file", "path", CLI.Tail.File, "error", err)
			os.Exit(1)
		}
		if err := runStream(cfg, source, CLI.Tail.StateIn, CLI.Tail.StateOut); err != nil {
			slog.Error("Tail failed", "error", err)
			os.Exit(1)
		}
	case "listen":
		cfg := loadConfig()
		source, err := stream.NewNATSSource(cfg.Stream.NATS.URL, cfg.Stream.NATS.Subject)
		if err != nil {
			slog.Error("Failed to connect event source", "error", err)
			os.Exit(1)
		}
		if err := runStream(cfg, source, CLI.Listen.StateIn, CLI.Listen.StateOut); err != nil {
			slog.Error("Listen failed", "error", err)
			os.Exit(1)
		}
	case "init":
		slog.Info("Initializing configuration", "path", CLI.Config, "force", CLI.Init.Force)
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("besselect %s (commit %s, built %s)\n",
			version.Version, version.GitCommit, version.BuildTime)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "path", CLI.Config, "error", err)
		os.Exit(1)
	}
	return cfg
}

func runStream(cfg *config.Config, source stream.Source, stateIn, stateOut string) error {
	defer func() {
		if err := source.Close(); err != nil {
			slog.Warn("Failed to close event source", "error", err)
		}
	}()

	sel, err := cfg.Selector.BuildSelector()
	if err != nil {
		return err
	}

	var store index.Store
	if cfg.Index.Path != "" {
		sqliteStore, err := index.NewSQLiteStore(cfg.Index.Path)
		if err != nil {
			return err
		}
		defer func() {
			if err := sqliteStore.Close(); err != nil {
				slog.Warn("Failed to close artifact index", "error", err)
			}
		}()
		store = sqliteStore
	}

	var recorder metrics.Recorder
	if cfg.Metrics.Enabled {
		registry := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(registry)
		serveMetrics(cfg.Metrics.Listen, registry)
	}

	runner := stream.NewRunner(selector.Wrap(sel), source, store, recorder)
	slog.Info("Starting stream run", "run_id", runner.RunID())

	if stateIn != "" {
		states, err := readCheckpoint(stateIn)
		if err != nil {
			return err
		}
		if err := runner.Resume(states); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, runErr := runner.Run(ctx)

	for _, artifact := range runner.Artifacts() {
		for _, file := range artifact.Files {
			fmt.Printf("%s\t%s\t%s\n", artifact.Label, file.Path, file.URI)
		}
	}

	if stateOut != "" {
		if err := writeCheckpoint(stateOut, runner); err != nil {
			return err
		}
	}

	slog.Info("Stream run finished",
		"events", summary.Events,
		"artifacts", summary.Artifacts,
		"files", summary.Files,
		"duration", summary.Duration)
	return runErr
}

func readCheckpoint(path string) ([]selector.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var states []selector.State
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, err
	}
	return states, nil
}

func writeCheckpoint(path string, runner *stream.Runner) error {
	state, ok := runner.Checkpoint()
	if !ok {
		slog.Warn("Selector is stateless, skipping checkpoint", "path", path)
		return nil
	}
	data, err := json.MarshalIndent([]selector.State{state}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func serveMetrics(listen string, registry *prom.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(registry))
	server := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("Serving metrics", "listen", listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
}
