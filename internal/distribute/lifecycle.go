package distribute

import (
	"context"

	"github.com/rs/zerolog"
)

// Hook is implemented by components the host starts and stops with its own
// lifecycle.
type Hook interface {
	OnStart(ctx context.Context) error
	OnStop(ctx context.Context) error
}

// Service runs a full distribution when the host starts, so bundle files
// replaced by an application upgrade pick the overrides up again.
type Service struct {
	d       *Distributor
	enabled bool
	log     zerolog.Logger
}

// NewService wraps d. With enabled false, OnStart does nothing.
func NewService(d *Distributor, enabled bool) *Service {
	return &Service{d: d, enabled: enabled, log: d.log}
}

var _ Hook = (*Service)(nil)

// OnStart distributes every configured override. Failures are logged and
// never prevent the host from starting.
func (s *Service) OnStart(ctx context.Context) error {
	if !s.enabled {
		s.log.Debug().Msg("push distribution disabled, skipping startup copy")
		return nil
	}
	s.log.Info().Msg("executing startup logo copy")
	rep, err := s.d.Distribute(ctx, TriggerStartup)
	if err != nil {
		s.log.Error().Err(err).Msg("startup logo copy failed")
		return nil
	}
	if rep.Skipped == "" {
		s.log.Info().Int("failed", rep.Failed()).Msg("startup logo copy completed")
	}
	return nil
}

// OnStop waits for in-flight runs.
func (s *Service) OnStop(ctx context.Context) error {
	return s.d.Stop(ctx)
}
