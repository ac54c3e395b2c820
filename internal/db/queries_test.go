package db_test

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasupel/internal/db"
)

const testSchema = `
CREATE TABLE users (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	username            TEXT NOT NULL UNIQUE,
	elo                 INTEGER NOT NULL DEFAULT 1000,
	created_at          INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE games (
	id                       INTEGER PRIMARY KEY AUTOINCREMENT,
	mode                     INTEGER NOT NULL,
	host_id                  INTEGER NOT NULL,
	away_id                  INTEGER,
	invited_id               INTEGER,
	main_thinking_time       INTEGER NOT NULL,
	fixed_extra_time         INTEGER NOT NULL,
	time_increment_per_turn INTEGER NOT NULL,
	host_time                INTEGER NOT NULL,
	away_time                INTEGER NOT NULL,
	host_offering_draw       INTEGER NOT NULL DEFAULT 0,
	away_offering_draw       INTEGER NOT NULL DEFAULT 0,
	current_turn             INTEGER NOT NULL DEFAULT 0,
	turn_number              INTEGER NOT NULL DEFAULT 0,
	board_fen                TEXT NOT NULL,
	position_history         TEXT NOT NULL DEFAULT '[]',
	halfmove_clock           INTEGER NOT NULL DEFAULT 0,
	winner                   INTEGER NOT NULL DEFAULT 0,
	conclusion               INTEGER NOT NULL DEFAULT 0,
	opened_at                INTEGER NOT NULL,
	started_at               INTEGER,
	last_turn                INTEGER,
	ended_at                 INTEGER
);
`

func newTestQueries(t *testing.T) *db.Queries {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = conn.Exec(testSchema)
	require.NoError(t, err)
	_, err = conn.Exec(`INSERT INTO users (id, username, created_at) VALUES (1, 'host', 0), (2, 'away', 0), (3, 'third', 0)`)
	require.NoError(t, err)
	return db.New(conn)
}

func mustCreateGame(t *testing.T, q *db.Queries, hostID int64, awayID, invitedID *int64) db.Game {
	t.Helper()
	row, err := q.CreateGame(context.Background(), db.CreateGameParams{
		Mode: 1, HostID: hostID, AwayID: awayID, InvitedID: invitedID,
		MainThinkingTime: 600, HostTime: 600, AwayTime: 600,
		BoardFEN: "startpos", PositionHistory: "[]", OpenedAt: 0,
	})
	require.NoError(t, err)
	return row
}

func TestListAndCountSearches(t *testing.T) {
	q := newTestQueries(t)
	ctx := context.Background()
	mustCreateGame(t, q, 1, nil, nil)
	mustCreateGame(t, q, 1, nil, nil)
	mustCreateGame(t, q, 2, nil, nil)

	total, err := q.CountSearches(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	rows, err := q.ListSearches(ctx, 1, 100, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestListAndCountInvites(t *testing.T) {
	q := newTestQueries(t)
	ctx := context.Background()
	invited := int64(2)
	mustCreateGame(t, q, 1, nil, &invited)

	total, err := q.CountInvites(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	rows, err := q.ListInvites(ctx, 2, 100, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].HostID)
}

func TestListAndCountOngoingAndCompleted(t *testing.T) {
	q := newTestQueries(t)
	ctx := context.Background()
	away := int64(2)
	g := mustCreateGame(t, q, 1, &away, nil)

	started := int64(100)
	g.StartedAt = &started
	g.LastTurn = &started
	require.NoError(t, q.SaveGame(ctx, g))

	ongoingTotal, err := q.CountOngoing(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, ongoingTotal)
	completedTotal, err := q.CountCompleted(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 0, completedTotal)

	ended := int64(200)
	g.EndedAt = &ended
	require.NoError(t, q.SaveGame(ctx, g))

	ongoingTotal, err = q.CountOngoing(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 0, ongoingTotal)
	completedTotal, err = q.CountCompleted(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, completedTotal)

	rows, err := q.ListCompleted(ctx, 2, 100, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, g.ID, rows[0].ID)
}

func TestListAndCountCommonCompleted(t *testing.T) {
	q := newTestQueries(t)
	ctx := context.Background()
	away := int64(2)
	g := mustCreateGame(t, q, 1, &away, nil)
	ended := int64(300)
	g.EndedAt = &ended
	require.NoError(t, q.SaveGame(ctx, g))

	total, err := q.CountCommonCompleted(ctx, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	total, err = q.CountCommonCompleted(ctx, 1, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)

	rows, err := q.ListCommonCompleted(ctx, 2, 1, 100, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
