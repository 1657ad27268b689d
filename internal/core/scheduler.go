package core

// scheduler.go runs background maintenance for the service.
//
// Import sessions hold the uploaded file in memory until they are reset or
// discarded. The sweeper drops sessions that have been idle for longer than
// SessionTTL so abandoned uploads do not accumulate.

import (
	"context"
	"log/slog"
	"time"
)

// StartSessionSweeper periodically discards idle sessions.
// It stops when ctx is cancelled.
func (s *Service) StartSessionSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	slog.Info("session sweeper started",
		"interval", interval.String(),
		"session_ttl", s.cfg.SessionTTL.String(),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case now := <-ticker.C:
			if n := s.SweepSessions(now); n > 0 {
				slog.Info("expired import sessions", "count", n)
			}
		}
	}
}

// SweepSessions discards sessions idle since before now-SessionTTL and
// returns how many were removed. Running imports are never swept.
func (s *Service) SweepSessions(now time.Time) int {
	cutoff := now.Add(-s.cfg.SessionTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		since, sweepable := sess.idleSince()
		if sweepable && since.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
