package sweeper_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasupel/internal/chessrules"
	"kasupel/internal/db"
	"kasupel/internal/engine"
	"kasupel/internal/hub"
	"kasupel/internal/session"
	"kasupel/internal/sweeper"
)

const testSchema = `
CREATE TABLE sessions (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	token_hash TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);
`

func newTestSessions(t *testing.T) (*session.Store, *sql.DB) {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = conn.Exec(testSchema)
	require.NoError(t, err)
	return session.New(db.New(conn)), conn
}

func newTimedOutGame() *engine.Game {
	now := time.Unix(1_700_000_000, 0)
	return &engine.Game{
		ID: 1, HostID: 10, AwayID: 20,
		MainThinkingTime: 600, HostTime: 600, AwayTime: 600,
		CurrentTurn: chessrules.Host,
		Position:    chessrules.NewPosition(),
		OpenedAt:    now, StartedAt: now, LastTurn: now,
	}
}

// A single sweep tick must both conclude a room whose side to move has run
// out of clock and purge an expired session, without either one blocking
// the other.
func TestRunSweepsTimedOutRoomsAndExpiredSessions(t *testing.T) {
	h := hub.New()
	g := newTimedOutGame()
	future := g.LastTurn.Add(time.Duration(g.HostTime+1) * time.Second)
	h.Open(g.ID, g, hub.Collaborators{Now: func() time.Time { return future }})

	sessions, conn := newTestSessions(t)
	ctx := context.Background()
	created, err := sessions.Create(ctx, 7)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `UPDATE sessions SET expires_at = ? WHERE id = ?`,
		time.Now().Add(-time.Second).Unix(), created.ID)
	require.NoError(t, err)

	sw := sweeper.New(h, sessions, time.Millisecond)
	runCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	sw.Run(runCtx)

	_, stillOpen := h.Get(g.ID)
	assert.False(t, stillOpen, "a timed-out room should have been concluded and closed")

	_, err = sessions.Verify(ctx, created.ID, created.Secret)
	assert.ErrorIs(t, err, session.ErrNotFound)
}
