package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/memovox/memovox/internal/app"
	"github.com/memovox/memovox/internal/auth"
	"github.com/memovox/memovox/internal/bus"
	"github.com/memovox/memovox/internal/capture"
	"github.com/memovox/memovox/internal/config"
	"github.com/memovox/memovox/internal/correct"
	"github.com/memovox/memovox/internal/eventlog"
	"github.com/memovox/memovox/internal/natsserver"
	"github.com/memovox/memovox/internal/notestore"
	"github.com/memovox/memovox/internal/pipeline"
	"github.com/memovox/memovox/internal/protocol"
	"github.com/memovox/memovox/internal/session"
	"github.com/memovox/memovox/internal/telemetry"
	"github.com/memovox/memovox/internal/transcribe"
)

var version = "0.1.0-dev"

func main() {
	var (
		configPath  string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to configuration file (optional)")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	// Secrets such as MEMOVOX_AUTH_API_KEY usually live in a local .env.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI, so logs go to a file.
	logger, logClose, err := openLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open log file:", err)
		os.Exit(1)
	}
	defer logClose()

	if err := run(cfg, logger); err != nil {
		logger.Error("memovox exited with error", slog.String("error", err.Error()))
		fmt.Fprintln(os.Stderr, "memovox:", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func openLogger(cfg config.Config) (*slog.Logger, func(), error) {
	if dir := filepath.Dir(cfg.App.LogPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	f, err := os.OpenFile(cfg.App.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	level := slog.LevelInfo
	if cfg.Telemetry.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, func() { _ = f.Close() }, nil
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	shutdownTelemetry, metricsHandler, err := telemetry.Setup(cfg, logger)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	var embedded *natsserver.EmbeddedServer
	if cfg.Bus.Embedded {
		embedded, err = natsserver.Start(cfg.Bus, logger)
		if err != nil {
			return fmt.Errorf("embedded bus: %w", err)
		}
		defer embedded.Shutdown()
	}

	busClient, err := bus.Connect(ctx, cfg.Bus, logger)
	if err != nil {
		return fmt.Errorf("bus connect: %w", err)
	}
	defer busClient.Close()

	diag := telemetry.NewDiagServer(cfg.Telemetry.DiagBind, metricsHandler, busClient.Healthy, logger)
	diag.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		diag.Shutdown(ctx)
	}()

	recorder, err := capture.NewRecorder(cfg.Capture)
	if err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	player, err := capture.NewPlayer(cfg.Capture)
	if err != nil {
		return fmt.Errorf("player: %w", err)
	}
	clipboard, err := capture.NewClipboard(cfg.Capture)
	if err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}

	watcher := auth.NewWatcher(cfg.Auth, auth.NewClient(cfg.Auth, logger), busClient, logger)
	store := notestore.New(cfg.Backend, watcher, logger)

	transcriber := transcribe.New(cfg.Transcriber)
	corrector := correct.New(cfg.Corrector)
	runner := pipeline.New(transcriber, corrector, store, busClient, logger)

	journal, err := eventlog.Open(ctx, cfg.EventLog, logger)
	if err != nil {
		return fmt.Errorf("event log: %w", err)
	}
	defer journal.Close()

	events := make(chan tea.Msg, 32)
	subs, err := subscribe(busClient, events, logger)
	if err != nil {
		return fmt.Errorf("bus subscribe: %w", err)
	}
	defer func() {
		for _, sub := range subs {
			_ = sub.Unsubscribe()
		}
	}()

	sess := session.New(recorder, logger)
	model := app.New(sess, player, clipboard, runner, store, watcher, journal, events, logger)

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}

// subscribe forwards bus traffic into the UI's message channel. Undecodable
// payloads are logged and dropped.
func subscribe(busClient *bus.Client, events chan<- tea.Msg, logger *slog.Logger) ([]*nats.Subscription, error) {
	authSub, err := busClient.Conn().Subscribe(protocol.SubjectAuthState, func(msg *nats.Msg) {
		var state protocol.AuthState
		if err := json.Unmarshal(msg.Data, &state); err != nil {
			logger.Warn("bad auth state payload", slog.String("error", err.Error()))
			return
		}
		events <- app.AuthStateMsg{State: state}
	})
	if err != nil {
		return nil, err
	}

	memoSub, err := busClient.Conn().Subscribe(protocol.SubjectMemoCreated, func(msg *nats.Msg) {
		var event protocol.MemoCreated
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Warn("bad memo event payload", slog.String("error", err.Error()))
			return
		}
		events <- app.MemoCreatedMsg{Event: event}
	})
	if err != nil {
		_ = authSub.Unsubscribe()
		return nil, err
	}

	return []*nats.Subscription{authSub, memoSub}, nil
}
