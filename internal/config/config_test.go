package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("server defaults = %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("embedding dimensions = %d, want 384", cfg.Embedding.Dimensions)
	}
	if cfg.Search.DefaultLimit != 10 || cfg.Search.MaxLimit != 100 {
		t.Errorf("search limits = %d/%d", cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
	}
	if cfg.Tasks.GraceSeconds != 300 || cfg.Tasks.RetentionDays != 7 {
		t.Errorf("task defaults = %d/%d", cfg.Tasks.GraceSeconds, cfg.Tasks.RetentionDays)
	}
	if len(cfg.Watch.Extensions) == 0 {
		t.Error("watch extensions default missing")
	}
}

func TestApplyDefaultsWatchOwner(t *testing.T) {
	cfg := &Config{}
	cfg.Watch.Directories = []string{"/tmp/inbox"}
	ApplyDefaults(cfg)
	if cfg.Watch.Owner != "inbox" {
		t.Errorf("watch owner = %q, want inbox", cfg.Watch.Owner)
	}
}

func TestApplyDefaultsKeepsValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Embedding.Dimensions = 128
	ApplyDefaults(cfg)
	if cfg.Server.Port != 9999 || cfg.Embedding.Dimensions != 128 {
		t.Error("explicit values were overwritten by defaults")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  port: 9000
storage:
  database_path: ./data/test.db
tasks:
  grace_seconds: 60
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Debug {
		t.Error("debug not loaded")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Tasks.GraceSeconds != 60 {
		t.Errorf("grace_seconds = %d, want 60", cfg.Tasks.GraceSeconds)
	}
	// Relative ./ paths resolve against the config directory.
	want := filepath.Join(dir, "data/test.db")
	if cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %q, want %q", cfg.Storage.DatabasePath, want)
	}
	// Defaults still fill the rest.
	if cfg.Search.DefaultLimit != 10 {
		t.Errorf("default_limit = %d, want 10", cfg.Search.DefaultLimit)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() of missing file succeeded")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Server.Port = 1234

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Server.Port != 1234 {
		t.Errorf("port = %d after round trip, want 1234", loaded.Server.Port)
	}
}
