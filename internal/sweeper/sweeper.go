// Package sweeper is the background janitor of spec.md §4.3/§5: a ticker
// that asserts timeouts against games nobody has touched recently, and
// expires stale sessions, so a player who simply stops responding doesn't
// leave their opponent's game stuck forever. Grounded on the teacher's
// NewMatch inactivity-cleanup goroutine (server/game/game.go) and
// rias-glitch-telegram-webapp's StartCleanup ticker pattern, generalized
// from "clean up one map" to "walk every open internal/hub.Room".
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"kasupel/internal/hub"
	"kasupel/internal/session"
)

// Sweeper periodically asserts timeouts on every open game and purges
// expired sessions.
type Sweeper struct {
	hub      *hub.Hub
	sessions *session.Store
	interval time.Duration
}

func New(h *hub.Hub, sessions *session.Store, interval time.Duration) *Sweeper {
	return &Sweeper{hub: h, sessions: sessions, interval: interval}
}

// Run blocks, ticking until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	for _, room := range s.hub.Rooms() {
		// AssertTimeout errors (apierr.OpponentNotTimedOut, the overwhelming
		// majority; apierr.NotInProgress for a room not yet started) are
		// routine — nothing to act on. A successful assertion ends the game,
		// and the room closes itself (see Room's onEnded hook).
		_, _ = room.AssertTimeout()
	}
	if err := s.sessions.Sweep(ctx); err != nil {
		slog.Error("sweeper: expire sessions", "error", err)
	}
}
