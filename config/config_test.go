package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"crmgen/logging"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Adapter.URL != "ws://127.0.0.1:8190/ws" {
		t.Fatalf("unexpected adapter url %q", cfg.Adapter.URL)
	}
	if cfg.Adapter.DialTimeout.Std() != 5*time.Second || cfg.Adapter.CallTimeout.Std() != 15*time.Second {
		t.Fatalf("unexpected timeouts: %+v", cfg.Adapter)
	}
	if len(cfg.Catalog.Paths) == 0 {
		t.Fatalf("expected default catalog paths")
	}
	if len(cfg.Logging.Sinks) != 1 || cfg.Logging.Sinks[0] != "console" {
		t.Fatalf("unexpected sinks: %v", cfg.Logging.Sinks)
	}
	if cfg.Logging.BufferSize != 512 || cfg.Logging.MinimumSeverity != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.Logging.DropWarnInterval.Std() != 5*time.Second {
		t.Fatalf("unexpected drop warn interval %v", cfg.Logging.DropWarnInterval)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `{
  "adapter": {"url": "ws://crm.internal:9000/ws", "callTimeout": "30s"},
  "catalog": {"paths": ["testdata/catalog.json"]},
  "logging": {"sinks": ["console", "json"], "minimumSeverity": "debug", "jsonFilePath": "crmgen.log", "dropWarnInterval": "10s"}
}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Adapter.URL != "ws://crm.internal:9000/ws" {
		t.Fatalf("unexpected adapter url %q", cfg.Adapter.URL)
	}
	if cfg.Adapter.CallTimeout.Std() != 30*time.Second {
		t.Fatalf("unexpected call timeout %v", cfg.Adapter.CallTimeout)
	}
	if cfg.Adapter.DialTimeout.Std() != 5*time.Second {
		t.Fatalf("expected default dial timeout, got %v", cfg.Adapter.DialTimeout)
	}
	if len(cfg.Catalog.Paths) != 1 || cfg.Catalog.Paths[0] != "testdata/catalog.json" {
		t.Fatalf("unexpected catalog paths: %v", cfg.Catalog.Paths)
	}
	if len(cfg.Logging.Sinks) != 2 {
		t.Fatalf("unexpected sinks: %v", cfg.Logging.Sinks)
	}
	if cfg.Logging.DropWarnInterval.Std() != 10*time.Second {
		t.Fatalf("unexpected drop warn interval %v", cfg.Logging.DropWarnInterval)
	}
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	path := writeConfig(t, `{"adapter": {"callTimeout": "half an hour"}}`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for malformed duration")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestDurationUnmarshal(t *testing.T) {
	var holder struct {
		D Duration `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"d": "1m30s"}`), &holder); err != nil {
		t.Fatalf("unmarshal string failed: %v", err)
	}
	if holder.D.Std() != 90*time.Second {
		t.Fatalf("expected 1m30s, got %v", holder.D)
	}
	if err := json.Unmarshal([]byte(`{"d": 1000000000}`), &holder); err != nil {
		t.Fatalf("unmarshal number failed: %v", err)
	}
	if holder.D.Std() != time.Second {
		t.Fatalf("expected 1s, got %v", holder.D)
	}
	if err := json.Unmarshal([]byte(`{"d": "fortnight"}`), &holder); err == nil {
		t.Fatalf("expected error for malformed duration")
	}
	if err := json.Unmarshal([]byte(`{"d": true}`), &holder); err == nil {
		t.Fatalf("expected error for non-duration value")
	}
}

func TestDurationMarshalRoundTrip(t *testing.T) {
	data, err := json.Marshal(Duration(15 * time.Second))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `"15s"` {
		t.Fatalf("unexpected rendering %s", data)
	}
	var d Duration
	if err := json.Unmarshal(data, &d); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if d.Std() != 15*time.Second {
		t.Fatalf("expected 15s, got %v", d)
	}
}

func TestLoggingConfigConversion(t *testing.T) {
	cfg := Config{Logging: LoggingConfig{
		Sinks:            []string{"json"},
		BufferSize:       64,
		MinimumSeverity:  "warn",
		JSONFilePath:     "crmgen.log",
		UseColor:         true,
		DropWarnInterval: Duration(2 * time.Second),
	}}
	logCfg, err := cfg.LoggingConfig()
	if err != nil {
		t.Fatalf("LoggingConfig failed: %v", err)
	}
	if len(logCfg.EnabledSinks) != 1 || logCfg.EnabledSinks[0] != "json" {
		t.Fatalf("unexpected sinks: %v", logCfg.EnabledSinks)
	}
	if logCfg.MinimumSeverity != logging.SeverityWarn {
		t.Fatalf("unexpected severity %v", logCfg.MinimumSeverity)
	}
	if logCfg.BufferSize != 64 || logCfg.DropWarnInterval != 2*time.Second {
		t.Fatalf("unexpected router settings: %+v", logCfg)
	}
	if logCfg.JSON.FilePath != "crmgen.log" {
		t.Fatalf("unexpected json file path %q", logCfg.JSON.FilePath)
	}
	if !logCfg.Console.UseColor {
		t.Fatalf("expected console color to carry over")
	}
}

func TestLoggingConfigRejectsUnknownSeverity(t *testing.T) {
	cfg := Config{Logging: LoggingConfig{MinimumSeverity: "shout"}}
	if _, err := cfg.LoggingConfig(); err == nil {
		t.Fatalf("expected error for unknown severity")
	}
}
