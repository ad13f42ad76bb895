package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/battlewithbytes/webbrand/internal/config"
	"github.com/battlewithbytes/webbrand/internal/distribute"
	"github.com/battlewithbytes/webbrand/internal/history"
	"github.com/battlewithbytes/webbrand/internal/logo"
)

// app bundles the components every command builds from the config.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	store   *logo.Store
	history *history.Store
}

func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	a := &app{
		cfg:   cfg,
		log:   newLogger(cfg.Log),
		store: logo.NewStore(cfg.OverrideDir, logo.DefaultTable()),
	}
	return a, nil
}

// openHistory opens the run history if it is enabled. A nil store is valid.
func (a *app) openHistory() error {
	if !a.cfg.History.Enabled {
		return nil
	}
	if err := os.MkdirAll(a.cfg.DataDir, 0750); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	h, err := history.NewStore(a.cfg.HistoryPath())
	if err != nil {
		return err
	}
	a.history = h
	return nil
}

func (a *app) close() {
	if a.history != nil {
		a.history.Close()
	}
}

// distributor builds the push distributor. Extra observers run after the
// history recorder.
func (a *app) distributor(observers ...func(*distribute.Report)) *distribute.Distributor {
	var obs []func(*distribute.Report)
	if a.history != nil {
		obs = append(obs, a.history.Observer(func(err error) {
			a.log.Error().Err(err).Msg("recording distribution run")
		}))
	}
	obs = append(obs, observers...)
	return distribute.New(a.store, distribute.Options{
		WebDir:    a.cfg.WebDir,
		BackupDir: a.cfg.BackupDir(),
		Workers:   a.cfg.Distribute.Workers,
		Logger:    a.log,
		Observers: obs,
	})
}

// roleArgs resolves role names given on the command line.
func (a *app) roleArgs(args []string) ([]logo.Role, error) {
	roles := make([]logo.Role, 0, len(args))
	for _, name := range args {
		r, err := a.store.Table().ParseRole(name)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, nil
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	format := cfg.Format
	if format == config.LogFormatAuto {
		format = config.LogFormatJSON
		if isatty.IsTerminal(os.Stderr.Fd()) {
			format = config.LogFormatConsole
		}
	}
	var l zerolog.Logger
	if strings.EqualFold(format, config.LogFormatConsole) {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	} else {
		l = zerolog.New(os.Stderr)
	}
	return l.Level(level).With().Timestamp().Logger()
}
