// Package setup builds the interactive form behind "webbrand config init".
package setup

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/battlewithbytes/webbrand/internal/config"
)

// Answers holds raw values from the TUI form.
// Numeric fields are strings because huh.Input binds to *string.
type Answers struct {
	// Paths
	WebDir      string
	OverrideDir string
	DataDir     string

	// Branding
	Mode   string
	Prefix string
	Backup bool

	// Server
	BindAddress  string
	PortStr      string
	DashboardURL string
	MaxUploadStr string // megabytes

	// Logging
	LogLevel string

	// Confirmation
	Confirmed bool
}

// NewAnswers seeds the form from an existing config.
func NewAnswers(cfg *config.Config) *Answers {
	return &Answers{
		WebDir:       cfg.WebDir,
		OverrideDir:  cfg.OverrideDir,
		DataDir:      cfg.DataDir,
		Mode:         cfg.Mode,
		Prefix:       cfg.Intercept.Prefix,
		Backup:       cfg.Distribute.Backup,
		BindAddress:  cfg.Server.BindAddress,
		PortStr:      strconv.Itoa(cfg.Server.Port),
		DashboardURL: cfg.Server.DashboardURL,
		MaxUploadStr: strconv.FormatInt(cfg.Upload.MaxBytes>>20, 10),
		LogLevel:     cfg.Log.Level,
	}
}

// ApplyTo copies the answers onto cfg and validates the result.
func (a *Answers) ApplyTo(cfg *config.Config) error {
	port, err := strconv.Atoi(strings.TrimSpace(a.PortStr))
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port must be 1-65535, got %q", a.PortStr)
	}
	mb, err := strconv.ParseInt(strings.TrimSpace(a.MaxUploadStr), 10, 64)
	if err != nil || mb < 1 {
		return fmt.Errorf("max upload must be a positive number of MB, got %q", a.MaxUploadStr)
	}

	cfg.WebDir = strings.TrimSpace(a.WebDir)
	cfg.OverrideDir = strings.TrimSpace(a.OverrideDir)
	cfg.DataDir = strings.TrimSpace(a.DataDir)
	cfg.Mode = a.Mode
	cfg.Intercept.Prefix = strings.TrimSpace(a.Prefix)
	cfg.Distribute.Backup = a.Backup
	cfg.Server.BindAddress = strings.TrimSpace(a.BindAddress)
	cfg.Server.Port = port
	cfg.Server.DashboardURL = strings.TrimSpace(a.DashboardURL)
	cfg.Upload.MaxBytes = mb << 20
	cfg.Log.Level = a.LogLevel

	return cfg.Validate()
}

// ValidatePort returns nil if s is a valid port number.
func ValidatePort(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("must be 1-65535")
	}
	return nil
}

// ValidatePositiveInt returns nil if s is a positive integer.
func ValidatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if n < 1 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

// ValidateAbsPath returns nil if s is an absolute path.
func ValidateAbsPath(s string) error {
	if !strings.HasPrefix(strings.TrimSpace(s), "/") {
		return fmt.Errorf("must be an absolute path")
	}
	return nil
}

// ValidateWebDir additionally requires the directory to exist.
func ValidateWebDir(s string) error {
	if err := ValidateAbsPath(s); err != nil {
		return err
	}
	info, err := os.Stat(strings.TrimSpace(s))
	if err != nil || !info.IsDir() {
		return fmt.Errorf("directory does not exist")
	}
	return nil
}
