package team

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Sweeper periodically removes expired invitations from the directory.
// The legacy cleanup hook was a documented no-op; here the configured
// TTL is enforced for real.
type Sweeper struct {
	mgr      *Manager
	clock    clockwork.Clock
	interval time.Duration
}

// NewSweeper builds a sweeper. A non-positive interval falls back to
// 30 seconds, the legacy cleanup cadence.
func NewSweeper(mgr *Manager, clock clockwork.Clock, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{mgr: mgr, clock: clock, interval: interval}
}

// Run sweeps until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	log.Info().Dur("interval", s.interval).Msg("invitation sweeper started")

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("invitation sweeper shutting down")
			return
		case <-ticker.Chan():
			if n := s.mgr.SweepExpiredInvitations(); n > 0 {
				log.Info().Int("expired", n).Msg("swept expired invitations")
			}
		}
	}
}
