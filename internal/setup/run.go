package setup

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/battlewithbytes/webbrand/internal/config"
)

// ErrCancelled is returned when the operator declines to write the config.
var ErrCancelled = errors.New("setup cancelled")

// Run walks the operator through the form seeded from the config at
// configPath (or the defaults) and writes the result back.
func Run(ctx context.Context, configPath string) (*config.Config, error) {
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		// An invalid file is replaced rather than edited.
		cfg = config.Defaults()
	}

	answers := NewAnswers(cfg)
	if err := BuildForm(answers, configPath).RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil, ErrCancelled
		}
		return nil, fmt.Errorf("setup form: %w", err)
	}
	if !answers.Confirmed {
		return nil, ErrCancelled
	}
	if err := answers.ApplyTo(cfg); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if err := cfg.Save(configPath); err != nil {
		return nil, err
	}
	return cfg, nil
}
