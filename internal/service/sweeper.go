package service

import (
	"context"
	"time"
)

// DefaultSweepInterval is how often RunSessionSweeper removes expired sessions.
const DefaultSweepInterval = 5 * time.Minute

// RunSessionSweeper deletes expired sessions every interval until ctx is done.
func (s *Service) RunSessionSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepSessions(ctx)
		}
	}
}

func (s *Service) sweepSessions(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	n, err := s.sessions.SweepExpired(sweepCtx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("session sweep failed")
		return
	}
	if n > 0 {
		s.logger.Info().Int("removed", n).Msg("expired sessions removed")
	}
}
