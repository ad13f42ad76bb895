package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sethvargo/go-envconfig"
)

var noEnv = envconfig.MapLookuper(map[string]string{})

func validConfig() *Config {
	return Defaults()
}

func TestDefaultsValid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.Mode != ModeIntercept {
		t.Errorf("default mode = %q, want %q", cfg.Mode, ModeIntercept)
	}
	if !cfg.InterceptEnabled() || cfg.PushEnabled() {
		t.Error("default mode should intercept only")
	}
}

func TestValidateMissingDirs(t *testing.T) {
	for _, clear := range []func(*Config){
		func(c *Config) { c.WebDir = "" },
		func(c *Config) { c.OverrideDir = "" },
		func(c *Config) { c.DataDir = "" },
	} {
		cfg := validConfig()
		clear(cfg)
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for missing directory")
		}
	}
}

func TestValidateMode(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "rewrite"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid mode")
	}

	tests := []struct {
		mode            string
		push, intercept bool
	}{
		{ModeIntercept, false, true},
		{ModePush, true, false},
		{ModeBoth, true, true},
	}
	for _, tt := range tests {
		cfg.Mode = tt.mode
		if err := cfg.Validate(); err != nil {
			t.Errorf("mode %q: %v", tt.mode, err)
		}
		if cfg.PushEnabled() != tt.push || cfg.InterceptEnabled() != tt.intercept {
			t.Errorf("mode %q: push=%v intercept=%v", tt.mode, cfg.PushEnabled(), cfg.InterceptEnabled())
		}
	}
}

func TestValidatePortRange(t *testing.T) {
	cfg := validConfig()

	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for port 0")
	}

	cfg.Server.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for port > 65535")
	}
}

func TestValidateRanges(t *testing.T) {
	cfg := validConfig()
	cfg.Upload.MaxBytes = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for max_bytes 0")
	}

	cfg = validConfig()
	cfg.Distribute.Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for workers 0")
	}

	cfg = validConfig()
	cfg.Server.RateLimit = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative rate limit")
	}

	cfg = validConfig()
	cfg.Intercept.Prefix = "web"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for relative prefix")
	}
}

func TestValidateLog(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid log level")
	}

	cfg = validConfig()
	cfg.Log.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid log format")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := load(context.Background(), filepath.Join(t.TempDir(), "nope.yml"), noEnv)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != DefaultPort || cfg.WebDir != DefaultWebDir {
		t.Errorf("got %+v", cfg)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	yml := "web_dir: /srv/web\nmode: both\nserver:\n  port: 9000\n"
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := load(context.Background(), path, noEnv)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WebDir != "/srv/web" || cfg.Mode != ModeBoth || cfg.Server.Port != 9000 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Server.BindAddress != DefaultBindAddress {
		t.Errorf("bind_address = %q, want default", cfg.Server.BindAddress)
	}
	if !cfg.Distribute.Backup {
		t.Error("distribute.backup default lost")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("mode: push\nserver:\n  port: 9000\n"), 0644); err != nil {
		t.Fatal(err)
	}
	env := envconfig.MapLookuper(map[string]string{
		"WEBBRAND_MODE":                   "both",
		"WEBBRAND_SERVER_PORT":            "9100",
		"WEBBRAND_SERVER_ALLOWED_ORIGINS": "http://a.test,http://b.test",
		"WEBBRAND_DISTRIBUTE_BACKUP":      "false",
		"WEBBRAND_LOG_LEVEL":              "debug",
	})

	cfg, err := load(context.Background(), path, env)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != ModeBoth {
		t.Errorf("mode = %q", cfg.Mode)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("allowed_origins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Distribute.Backup || cfg.BackupDir() != "" {
		t.Error("backup should be disabled by env")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := load(context.Background(), path, noEnv); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("mode: sideways\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := load(context.Background(), path, noEnv); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yml")

	cfg := validConfig()
	cfg.Mode = ModePush
	cfg.Server.AllowedOrigins = []string{"http://jellyfin.local"}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := load(context.Background(), path, noEnv)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Mode != ModePush {
		t.Errorf("mode = %q", loaded.Mode)
	}
	if len(loaded.Server.AllowedOrigins) != 1 {
		t.Errorf("allowed_origins = %v", loaded.Server.AllowedOrigins)
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := validConfig()
	cfg.DataDir = "/data"
	if got := cfg.HistoryPath(); got != "/data/history.db" {
		t.Errorf("HistoryPath = %q", got)
	}
	if got := cfg.BackupDir(); got != "/data/originals" {
		t.Errorf("BackupDir = %q", got)
	}
	if got := cfg.Addr(); got != "127.0.0.1:8097" {
		t.Errorf("Addr = %q", got)
	}
}
