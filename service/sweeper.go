package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper periodically tears down pairing attempts that outlived their
// staleness budget. The registry's replace-and-remove paths handle the
// common case; the sweeper is the backstop for attempts nobody came back
// for.
type Sweeper struct {
	registry   *Registry
	interval   time.Duration
	staleAfter time.Duration
	log        zerolog.Logger
}

// NewSweeper returns a sweeper that checks every interval for attempts older
// than staleAfter.
func NewSweeper(registry *Registry, interval, staleAfter time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		registry:   registry,
		interval:   interval,
		staleAfter: staleAfter,
		log:        log.With().Str("component", "sweeper").Logger(),
	}
}

// Run blocks until ctx is done, sweeping on every tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.registry.Sweep(s.staleAfter); n > 0 {
				s.log.Info().Int("count", n).Msg("swept stale pairing attempts")
			}
		case <-ctx.Done():
			return
		}
	}
}
