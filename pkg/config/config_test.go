package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	if got := cfg.Addr(); got != "0.0.0.0:8080" {
		t.Fatalf("Addr() = %q", got)
	}
	if !cfg.EchoToSender() {
		t.Fatal("EchoToSender default should be true")
	}
	if got := cfg.OutboundQueue(); got != 32 {
		t.Fatalf("OutboundQueue() = %d", got)
	}
	if got := cfg.WriteTimeout(); got != 5*time.Second {
		t.Fatalf("WriteTimeout() = %v", got)
	}
	if got := cfg.MaxContentLength(); got != 4096 {
		t.Fatalf("MaxContentLength() = %d", got)
	}
	if got := cfg.RetentionMaxAge(); got != 0 {
		t.Fatalf("RetentionMaxAge() = %v", got)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  address: 127.0.0.1
  port: 9090
storage:
  db_path: /tmp/chat-data
delivery:
  echo_to_sender: false
  outbound_queue: 64
retention:
  enabled: true
  cron: "0 3 * * *"
  max_age: 720h
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Addr(); got != "127.0.0.1:9090" {
		t.Fatalf("Addr() = %q", got)
	}
	if cfg.Storage.DBPath != "/tmp/chat-data" {
		t.Fatalf("DBPath = %q", cfg.Storage.DBPath)
	}
	if cfg.EchoToSender() {
		t.Fatal("echo_to_sender: false not honored")
	}
	if got := cfg.OutboundQueue(); got != 64 {
		t.Fatalf("OutboundQueue() = %d", got)
	}
	if got := cfg.RetentionMaxAge(); got != 720*time.Hour {
		t.Fatalf("RetentionMaxAge() = %v", got)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHATRELAY_ADDR", "10.0.0.1:7070")
	t.Setenv("CHATRELAY_DB_PATH", "/data/chat")
	t.Setenv("CHATRELAY_ECHO_TO_SENDER", "false")
	t.Setenv("CHATRELAY_RATE_RPS", "12.5")
	t.Setenv("CHATRELAY_RATE_BURST", "25")
	t.Setenv("CHATRELAY_RETENTION_MAX_AGE", "48h")

	cfg := &Config{}
	if !LoadEnvOverrides(cfg) {
		t.Fatal("env overrides not detected")
	}
	if got := cfg.Addr(); got != "10.0.0.1:7070" {
		t.Fatalf("Addr() = %q", got)
	}
	if cfg.Storage.DBPath != "/data/chat" {
		t.Fatalf("DBPath = %q", cfg.Storage.DBPath)
	}
	if cfg.EchoToSender() {
		t.Fatal("CHATRELAY_ECHO_TO_SENDER=false not honored")
	}
	if cfg.Security.RateLimit.RPS != 12.5 || cfg.Security.RateLimit.Burst != 25 {
		t.Fatalf("rate limit = %v/%d", cfg.Security.RateLimit.RPS, cfg.Security.RateLimit.Burst)
	}
	if got := cfg.RetentionMaxAge(); got != 48*time.Hour {
		t.Fatalf("RetentionMaxAge() = %v", got)
	}
}

func TestLoadEffectiveMissingFileIsNotFatal(t *testing.T) {
	cfg, _, err := LoadEffective(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadEffective: %v", err)
	}
	if cfg == nil {
		t.Fatal("nil config")
	}
}

func TestResolveConfigPath(t *testing.T) {
	if got := ResolveConfigPath("./flagged.yaml", true); got != "./flagged.yaml" {
		t.Fatalf("flag should win: %q", got)
	}
	t.Setenv("CHATRELAY_CONFIG", "/etc/chatrelay.yaml")
	if got := ResolveConfigPath("./default.yaml", false); got != "/etc/chatrelay.yaml" {
		t.Fatalf("env should win over default: %q", got)
	}
}
