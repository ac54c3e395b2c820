package notify_test

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasupel/internal/db"
	"kasupel/internal/notify"
)

// testSchema is the subset of schema.sql this package's queries touch.
const testSchema = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL
);
CREATE TABLE notifications (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	sent_at INTEGER NOT NULL,
	type_code TEXT NOT NULL,
	game_id INTEGER,
	read INTEGER NOT NULL DEFAULT 0
);
`

func newTestQueries(t *testing.T) *db.Queries {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = conn.Exec(testSchema)
	require.NoError(t, err)
	_, err = conn.Exec(`INSERT INTO users (id, username) VALUES (1, 'alice')`)
	require.NoError(t, err)
	return db.New(conn)
}

type recordingDeliverer struct {
	delivered []notify.Notification
}

func (r *recordingDeliverer) DeliverNotification(userID int64, n notify.Notification) bool {
	r.delivered = append(r.delivered, n)
	return true
}

func TestEnqueueAndList(t *testing.T) {
	q := notify.New(newTestQueries(t))
	ctx := context.Background()

	_, err := q.Enqueue(ctx, 1, notify.AccountsWelcome, nil)
	require.NoError(t, err)

	rows, pages, err := q.List(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
	require.Len(t, rows, 1)
	assert.Equal(t, notify.AccountsWelcome, rows[0].Type)
	assert.False(t, rows[0].Read)
}

func TestEnqueueDeliversLiveWhenSocketOpen(t *testing.T) {
	q := notify.New(newTestQueries(t))
	deliverer := &recordingDeliverer{}
	q.SetLiveDeliverer(deliverer)

	gameID := int64(5)
	_, err := q.Enqueue(context.Background(), 1, notify.GamesOngoingTurn, &gameID)
	require.NoError(t, err)

	require.Len(t, deliverer.delivered, 1)
	assert.Equal(t, notify.GamesOngoingTurn, deliverer.delivered[0].Type)
	assert.Equal(t, &gameID, deliverer.delivered[0].GameID)
}

func TestUnreadCountAndAck(t *testing.T) {
	q := notify.New(newTestQueries(t))
	ctx := context.Background()

	n, err := q.Enqueue(ctx, 1, notify.AccountsWelcome, nil)
	require.NoError(t, err)

	count, err := q.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, q.Ack(ctx, 1, n.ID))

	count, err = q.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestAckDoesNotLeakAcrossUsers(t *testing.T) {
	q := newTestQueriesWithSecondUser(t)
	ctx := context.Background()

	n, err := q.Enqueue(ctx, 1, notify.AccountsWelcome, nil)
	require.NoError(t, err)

	err = q.Ack(ctx, 2, n.ID)
	require.ErrorIs(t, err, db.ErrNoRows)

	count, err := q.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "a different user's ack must not mark this notification read")
}

func newTestQueriesWithSecondUser(t *testing.T) *notify.Queue {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = conn.Exec(testSchema)
	require.NoError(t, err)
	_, err = conn.Exec(`INSERT INTO users (id, username) VALUES (1, 'alice'), (2, 'bob')`)
	require.NoError(t, err)
	return notify.New(db.New(conn))
}
