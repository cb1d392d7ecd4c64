package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	LogPath     string `yaml:"log_path"`
}

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
	DiagBind     string `yaml:"diag_bind"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type CaptureConfig struct {
	Command          string `yaml:"command"`
	PlayCommand      string `yaml:"play_command"`
	ClipboardCommand string `yaml:"clipboard_command"`
	SampleRate       int    `yaml:"sample_rate"`
	Channels         int    `yaml:"channels"`
	MaxSeconds       int    `yaml:"max_seconds"`
}

type TranscriberConfig struct {
	Endpoint    string `yaml:"endpoint"`
	APIKey      string `yaml:"api_key"`
	ContentType string `yaml:"content_type"`
	TimeoutMS   int    `yaml:"timeout_ms"`
	Mode        string `yaml:"mode"` // mock, http
}

type CorrectorConfig struct {
	Endpoint  string `yaml:"endpoint"`
	APIKey    string `yaml:"api_key"`
	TimeoutMS int    `yaml:"timeout_ms"`
	Mode      string `yaml:"mode"` // mock, http
}

type BackendConfig struct {
	URL       string `yaml:"url"`
	APIKey    string `yaml:"api_key"`
	Table     string `yaml:"table"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type AuthConfig struct {
	URL              string `yaml:"url"`
	APIKey           string `yaml:"api_key"`
	SessionPath      string `yaml:"session_path"`
	RefreshMarginSec int    `yaml:"refresh_margin_sec"`
}

type EventLogConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type Config struct {
	App         AppConfig         `yaml:"app"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Bus         BusConfig         `yaml:"bus"`
	Capture     CaptureConfig     `yaml:"capture"`
	Transcriber TranscriberConfig `yaml:"transcriber"`
	Corrector   CorrectorConfig   `yaml:"corrector"`
	Backend     BackendConfig     `yaml:"backend"`
	Auth        AuthConfig        `yaml:"auth"`
	EventLog    EventLogConfig    `yaml:"event_log"`
}

func Default() Config {
	return Config{
		App: AppConfig{
			Name:        "memovox",
			Environment: "development",
			LogPath:     "./data/memovox.log",
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
			DiagBind:     "127.0.0.1:9464",
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Capture: CaptureConfig{
			Command:          "arecord -q -f S16_LE -r 16000 -c 1 -t raw -",
			PlayCommand:      "aplay -q -t wav -",
			ClipboardCommand: "xclip -selection clipboard",
			SampleRate:       16000,
			Channels:         1,
			MaxSeconds:       600,
		},
		Transcriber: TranscriberConfig{
			Endpoint:    "https://api-inference.huggingface.co/models/openai/whisper-large-v3",
			ContentType: "audio/wav",
			TimeoutMS:   60000,
			Mode:        "http",
		},
		Corrector: CorrectorConfig{
			Endpoint:  "",
			TimeoutMS: 30000,
			Mode:      "http",
		},
		Backend: BackendConfig{
			Table:     "notes",
			TimeoutMS: 15000,
		},
		Auth: AuthConfig{
			SessionPath:      "./data/session.json",
			RefreshMarginSec: 60,
		},
		EventLog: EventLogConfig{
			Path:          "./data/memovox-events.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxSessions:   10000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.App.Name, "MEMOVOX_APP_NAME")
	overrideString(&cfg.App.Environment, "MEMOVOX_APP_ENVIRONMENT")
	overrideString(&cfg.App.LogPath, "MEMOVOX_APP_LOG_PATH")
	overrideString(&cfg.Telemetry.LogLevel, "MEMOVOX_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "MEMOVOX_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "MEMOVOX_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.DiagBind, "MEMOVOX_TELEMETRY_DIAG_BIND")
	overrideBool(&cfg.Bus.Embedded, "MEMOVOX_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "MEMOVOX_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "MEMOVOX_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "MEMOVOX_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "MEMOVOX_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "MEMOVOX_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "MEMOVOX_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "MEMOVOX_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "MEMOVOX_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Capture.Command, "MEMOVOX_CAPTURE_COMMAND")
	overrideString(&cfg.Capture.PlayCommand, "MEMOVOX_CAPTURE_PLAY_COMMAND")
	overrideString(&cfg.Capture.ClipboardCommand, "MEMOVOX_CAPTURE_CLIPBOARD_COMMAND")
	overrideInt(&cfg.Capture.SampleRate, "MEMOVOX_CAPTURE_SAMPLE_RATE")
	overrideInt(&cfg.Capture.Channels, "MEMOVOX_CAPTURE_CHANNELS")
	overrideInt(&cfg.Capture.MaxSeconds, "MEMOVOX_CAPTURE_MAX_SECONDS")
	overrideString(&cfg.Transcriber.Endpoint, "MEMOVOX_TRANSCRIBER_ENDPOINT")
	overrideString(&cfg.Transcriber.APIKey, "MEMOVOX_TRANSCRIBER_API_KEY")
	overrideString(&cfg.Transcriber.ContentType, "MEMOVOX_TRANSCRIBER_CONTENT_TYPE")
	overrideInt(&cfg.Transcriber.TimeoutMS, "MEMOVOX_TRANSCRIBER_TIMEOUT_MS")
	overrideString(&cfg.Transcriber.Mode, "MEMOVOX_TRANSCRIBER_MODE")
	overrideString(&cfg.Corrector.Endpoint, "MEMOVOX_CORRECTOR_ENDPOINT")
	overrideString(&cfg.Corrector.APIKey, "MEMOVOX_CORRECTOR_API_KEY")
	overrideInt(&cfg.Corrector.TimeoutMS, "MEMOVOX_CORRECTOR_TIMEOUT_MS")
	overrideString(&cfg.Corrector.Mode, "MEMOVOX_CORRECTOR_MODE")
	overrideString(&cfg.Backend.URL, "MEMOVOX_BACKEND_URL")
	overrideString(&cfg.Backend.APIKey, "MEMOVOX_BACKEND_API_KEY")
	overrideString(&cfg.Backend.Table, "MEMOVOX_BACKEND_TABLE")
	overrideInt(&cfg.Backend.TimeoutMS, "MEMOVOX_BACKEND_TIMEOUT_MS")
	overrideString(&cfg.Auth.URL, "MEMOVOX_AUTH_URL")
	overrideString(&cfg.Auth.APIKey, "MEMOVOX_AUTH_API_KEY")
	overrideString(&cfg.Auth.SessionPath, "MEMOVOX_AUTH_SESSION_PATH")
	overrideInt(&cfg.Auth.RefreshMarginSec, "MEMOVOX_AUTH_REFRESH_MARGIN_SEC")
	overrideString(&cfg.EventLog.Path, "MEMOVOX_EVENT_LOG_PATH")
	overrideString(&cfg.EventLog.RetentionMode, "MEMOVOX_EVENT_LOG_RETENTION_MODE")
	overrideInt(&cfg.EventLog.RetentionDays, "MEMOVOX_EVENT_LOG_RETENTION_DAYS")
	overrideInt(&cfg.EventLog.MaxSessions, "MEMOVOX_EVENT_LOG_MAX_SESSIONS")
	overrideBool(&cfg.EventLog.VacuumOnStart, "MEMOVOX_EVENT_LOG_VACUUM_ON_START")
}

func overrideString(target *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*target = v
	}
}

func overrideStringSlice(target *[]string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			*target = out
		}
	}
}

func overrideInt(target *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.Capture.SampleRate <= 0 {
		return errors.New("capture sample_rate must be positive")
	}
	if cfg.Capture.Channels <= 0 {
		return errors.New("capture channels must be positive")
	}
	if strings.TrimSpace(cfg.Capture.Command) == "" {
		return errors.New("capture command must be set")
	}
	switch cfg.Transcriber.Mode {
	case "mock", "http":
	default:
		return fmt.Errorf("unknown transcriber mode %q", cfg.Transcriber.Mode)
	}
	if cfg.Transcriber.Mode == "http" && strings.TrimSpace(cfg.Transcriber.Endpoint) == "" {
		return errors.New("transcriber endpoint must be set in http mode")
	}
	switch cfg.Corrector.Mode {
	case "mock", "http":
	default:
		return fmt.Errorf("unknown corrector mode %q", cfg.Corrector.Mode)
	}
	switch cfg.EventLog.RetentionMode {
	case "ephemeral", "session", "persistent":
	default:
		return fmt.Errorf("unknown event log retention mode %q", cfg.EventLog.RetentionMode)
	}
	if len(cfg.Bus.Servers) == 0 {
		return errors.New("at least one bus server must be configured")
	}
	return nil
}
