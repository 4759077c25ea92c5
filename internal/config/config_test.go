package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if d, err := WatchDebounce(cfg); err != nil || d != 250*time.Millisecond {
		t.Fatalf("expected 250ms debounce, got %v (%v)", d, err)
	}
}

func TestEnsureCreatesAndLoadsConfig(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "monitorcfg", "config.toml")
	cfg, err := Ensure(path)
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if cfg.Version != SchemaVersion {
		t.Fatalf("expected schema version %d, got %d", SchemaVersion, cfg.Version)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file should exist: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Paths.Store != DefaultStorePath {
		t.Fatalf("expected default store path, got %q", loaded.Paths.Store)
	}
}

func TestLoadNormalizesPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	doc := "version = 1\n[logging]\nlevel = \"DEBUG\"\n[paths]\nhardware = \"/tmp/hw.yaml\"\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Fatalf("unexpected logging config %+v", cfg.Logging)
	}
	if cfg.Paths.Hardware != "/tmp/hw.yaml" || cfg.Paths.Store != DefaultStorePath {
		t.Fatalf("unexpected paths %+v", cfg.Paths)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		code   string
	}{
		{"version", func(c *Config) { c.Version = 2 }, "DOC_CONFIG_VERSION"},
		{"level", func(c *Config) { c.Logging.Level = "trace" }, "DOC_CONFIG_LOGGING"},
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "DOC_CONFIG_LOGGING"},
		{"debounce", func(c *Config) { c.Watch.Debounce = "soon" }, "DOC_CONFIG_WATCH"},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = "-1s" }, "DOC_CONFIG_WATCH"},
		{"custom equals store", func(c *Config) { c.Paths.CustomStore = c.Paths.Store }, "DOC_CONFIG_PATHS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := Validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestLoadRejectsMalformedToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("version = [\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "DOC_CONFIG_PARSE") {
		t.Fatalf("expected DOC_CONFIG_PARSE, got %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	doc := "version = 1\n[paths]\nhardwre = \"/tmp/hw.yaml\"\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "DOC_CONFIG_PARSE") {
		t.Fatalf("expected DOC_CONFIG_PARSE for unknown key, got %v", err)
	}
}

func TestSaveWritesHeaderAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := DefaultConfig()
	cfg.Paths.Hardware = "/run/monitorcfg/hardware.yaml"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# monitorcfg settings.") {
		t.Fatalf("expected header comment, got:\n%s", data)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded != cfg {
		t.Fatalf("reloaded config differs: %+v", loaded)
	}
}

func TestSetAndGet(t *testing.T) {
	cfg := DefaultConfig()
	if err := Set(&cfg, "paths.custom_store", "/tmp/custom.xml"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := Get(cfg, "PATHS.CUSTOM_STORE")
	if err != nil || got != "/tmp/custom.xml" {
		t.Fatalf("expected custom store, got %q (%v)", got, err)
	}

	if err := Set(&cfg, "logging.level", "loud"); err == nil {
		t.Fatalf("expected invalid level to be rejected")
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("a rejected set must leave the config unchanged, got %q", cfg.Logging.Level)
	}
	if err := Set(&cfg, "sync.mode", "x"); err == nil || !strings.Contains(err.Error(), "DOC_CONFIG_KEY") {
		t.Fatalf("expected DOC_CONFIG_KEY, got %v", err)
	}
	if len(Keys()) != 10 || Keys()[0] != "audit.path" {
		t.Fatalf("unexpected keys %v", Keys())
	}
}

func TestResolvePathsExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	paths, err := ResolvePaths(DefaultConfig())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if paths.Store != filepath.Join(home, ".config", "monitors-experimental.xml") {
		t.Fatalf("unexpected store path %q", paths.Store)
	}
	if paths.CustomStore != "" {
		t.Fatalf("empty custom store should stay empty, got %q", paths.CustomStore)
	}
	textfile, err := ResolveMetricsTextfile(DefaultConfig())
	if err != nil || textfile != "" {
		t.Fatalf("expected empty textfile, got %q (%v)", textfile, err)
	}
}
