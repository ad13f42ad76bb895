package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Config represents the full application configuration written to config.yml.
// Every field can also be set from a WEBBRAND_* environment variable.
type Config struct {
	WebDir      string           `yaml:"web_dir" env:"WEB_DIR"`
	OverrideDir string           `yaml:"override_dir" env:"OVERRIDE_DIR"`
	DataDir     string           `yaml:"data_dir" env:"DATA_DIR"`
	Mode        string           `yaml:"mode" env:"MODE"`
	Server      ServerConfig     `yaml:"server" env:", prefix=SERVER_"`
	Upload      UploadConfig     `yaml:"upload" env:", prefix=UPLOAD_"`
	Intercept   InterceptConfig  `yaml:"intercept" env:", prefix=INTERCEPT_"`
	Distribute  DistributeConfig `yaml:"distribute" env:", prefix=DISTRIBUTE_"`
	History     HistoryConfig    `yaml:"history" env:", prefix=HISTORY_"`
	Log         LogConfig        `yaml:"log" env:", prefix=LOG_"`
}

type ServerConfig struct {
	BindAddress    string   `yaml:"bind_address" env:"BIND_ADDRESS"`
	Port           int      `yaml:"port" env:"PORT"`
	DashboardURL   string   `yaml:"dashboard_url" env:"DASHBOARD_URL"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty" env:"ALLOWED_ORIGINS"`
	RateLimit      int      `yaml:"rate_limit" env:"RATE_LIMIT"` // 0 disables
}

type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes" env:"MAX_BYTES"`
}

type InterceptConfig struct {
	Prefix string `yaml:"prefix" env:"PREFIX"`
}

type DistributeConfig struct {
	Workers int  `yaml:"workers" env:"WORKERS"`
	Backup  bool `yaml:"backup" env:"BACKUP"`
}

type HistoryConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// Defaults returns a config with every field at its default value.
func Defaults() *Config {
	return &Config{
		WebDir:      DefaultWebDir,
		OverrideDir: DefaultOverrideDir,
		DataDir:     DefaultDataDir,
		Mode:        ModeIntercept,
		Server: ServerConfig{
			BindAddress:  DefaultBindAddress,
			Port:         DefaultPort,
			DashboardURL: DefaultDashboardURL,
			RateLimit:    DefaultRateLimit,
		},
		Upload:     UploadConfig{MaxBytes: DefaultMaxUploadBytes},
		Intercept:  InterceptConfig{Prefix: "/web"},
		Distribute: DistributeConfig{Workers: DefaultWorkers, Backup: true},
		History:    HistoryConfig{Enabled: true},
		Log:        LogConfig{Level: "info", Format: LogFormatAuto},
	}
}

// Load reads the config file at path on top of the defaults, applies the
// WEBBRAND_* environment overlay and validates the result. A missing file
// is not an error.
func Load(ctx context.Context, path string) (*Config, error) {
	return load(ctx, path, envconfig.OsLookuper())
}

func load(ctx context.Context, path string, env envconfig.Lookuper) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := cfg.applyEnv(ctx, env); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(ctx context.Context, env envconfig.Lookuper) error {
	return envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:           c,
		Lookuper:         envconfig.PrefixLookuper(EnvPrefix, env),
		DefaultOverwrite: true,
	})
}

// Validate checks that all required fields are present and values are in range.
func (c *Config) Validate() error {
	if c.WebDir == "" {
		return fmt.Errorf("web_dir is required")
	}
	if c.OverrideDir == "" {
		return fmt.Errorf("override_dir is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	switch c.Mode {
	case ModeIntercept, ModePush, ModeBoth:
		// ok
	default:
		return fmt.Errorf("mode must be %q, %q, or %q", ModeIntercept, ModePush, ModeBoth)
	}

	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.BindAddress == "" {
		return fmt.Errorf("server.bind_address is required")
	}
	if c.Server.DashboardURL == "" {
		return fmt.Errorf("server.dashboard_url is required")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must be >= 0")
	}

	if c.Upload.MaxBytes < 1 {
		return fmt.Errorf("upload.max_bytes must be >= 1")
	}

	if p := c.Intercept.Prefix; p != "" && !strings.HasPrefix(p, "/") {
		return fmt.Errorf("intercept.prefix must start with '/'")
	}

	if c.Distribute.Workers < 1 {
		return fmt.Errorf("distribute.workers must be >= 1")
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case LogFormatAuto, LogFormatConsole, LogFormatJSON:
		// ok
	default:
		return fmt.Errorf("log.format must be %q, %q, or %q", LogFormatAuto, LogFormatConsole, LogFormatJSON)
	}

	return nil
}

// PushEnabled reports whether overrides are copied over bundle files.
func (c *Config) PushEnabled() bool {
	return c.Mode == ModePush || c.Mode == ModeBoth
}

// InterceptEnabled reports whether bundle requests are answered from overrides.
func (c *Config) InterceptEnabled() bool {
	return c.Mode == ModeIntercept || c.Mode == ModeBoth
}

// HistoryPath is the sqlite database holding distribution runs.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, historyFile)
}

// BackupDir holds pristine copies of bundle files replaced by push mode.
// Empty when backups are disabled.
func (c *Config) BackupDir() string {
	if !c.Distribute.Backup {
		return ""
	}
	return filepath.Join(c.DataDir, backupDir)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// Save writes the config to the given path, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0640); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
