package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bus.Servers[0] != "nats://localhost:4222" {
		t.Fatalf("expected default server, got %v", cfg.Bus.Servers)
	}
	if cfg.Capture.SampleRate != 16000 {
		t.Fatalf("expected default sample rate, got %d", cfg.Capture.SampleRate)
	}
	if cfg.Backend.Table != "notes" {
		t.Fatalf("expected default table, got %q", cfg.Backend.Table)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memovox.yaml")
	doc := `
app:
  name: memovox-test
transcriber:
  endpoint: https://stt.example.com/v1
  api_key: secret
corrector:
  mode: mock
backend:
  url: https://backend.example.com
  api_key: anon
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.App.Name != "memovox-test" {
		t.Fatalf("expected app name override, got %q", cfg.App.Name)
	}
	if cfg.Transcriber.Endpoint != "https://stt.example.com/v1" {
		t.Fatalf("expected transcriber endpoint, got %q", cfg.Transcriber.Endpoint)
	}
	if cfg.Corrector.Mode != "mock" {
		t.Fatalf("expected corrector mock mode, got %q", cfg.Corrector.Mode)
	}
	if cfg.Backend.URL != "https://backend.example.com" {
		t.Fatalf("expected backend url, got %q", cfg.Backend.URL)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MEMOVOX_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("MEMOVOX_BUS_USERNAME", "alice")
	t.Setenv("MEMOVOX_BUS_TLS_INSECURE", "true")
	t.Setenv("MEMOVOX_TRANSCRIBER_API_KEY", "hf-token")
	t.Setenv("MEMOVOX_TRANSCRIBER_TIMEOUT_MS", "5000")
	t.Setenv("MEMOVOX_CAPTURE_MAX_SECONDS", "120")
	t.Setenv("MEMOVOX_EVENT_LOG_RETENTION_MODE", "persistent")
	t.Setenv("MEMOVOX_EVENT_LOG_RETENTION_DAYS", "7")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Bus.Username != "alice" {
		t.Fatal("expected username override")
	}
	if !cfg.Bus.TLSInsecure {
		t.Fatal("expected tls insecure override true")
	}
	if cfg.Transcriber.APIKey != "hf-token" {
		t.Fatal("expected transcriber api key override")
	}
	if cfg.Transcriber.TimeoutMS != 5000 {
		t.Fatalf("expected timeout 5000, got %d", cfg.Transcriber.TimeoutMS)
	}
	if cfg.Capture.MaxSeconds != 120 {
		t.Fatalf("expected max seconds 120, got %d", cfg.Capture.MaxSeconds)
	}
	if cfg.EventLog.RetentionMode != "persistent" {
		t.Fatal("expected event log retention mode override")
	}
	if cfg.EventLog.RetentionDays != 7 {
		t.Fatal("expected event log retention days override")
	}
}

func TestValidateRejectsBadModes(t *testing.T) {
	t.Setenv("MEMOVOX_TRANSCRIBER_MODE", "carrier-pigeon")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unknown transcriber mode")
	}
}

func TestValidateRequiresEndpointInHTTPMode(t *testing.T) {
	t.Setenv("MEMOVOX_TRANSCRIBER_MODE", "http")
	t.Setenv("MEMOVOX_TRANSCRIBER_ENDPOINT", "")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for missing transcriber endpoint")
	}
}
