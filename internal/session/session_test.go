package session_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasupel/internal/db"
	"kasupel/internal/session"
)

const testSchema = `
CREATE TABLE sessions (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	token_hash TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);
`

func newTestStore(t *testing.T) (*session.Store, *sql.DB) {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = conn.Exec(testSchema)
	require.NoError(t, err)
	return session.New(db.New(conn)), conn
}

func TestCreateThenVerifyRoundTrips(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, 7)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.Secret)

	userID, err := store.Verify(ctx, created.ID, created.Secret)
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, 7)
	require.NoError(t, err)

	_, err = store.Verify(ctx, created.ID, "bm90IHRoZSByaWdodCBzZWNyZXQh")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestVerifyRejectsUnknownID(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Verify(context.Background(), "no-such-session", "c2VjcmV0")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestVerifyRejectsExpiredSession(t *testing.T) {
	store, conn := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, 7)
	require.NoError(t, err)

	_, err = conn.ExecContext(ctx, `UPDATE sessions SET expires_at = ? WHERE id = ?`,
		time.Now().Add(-time.Second).Unix(), created.ID)
	require.NoError(t, err)

	_, err = store.Verify(ctx, created.ID, created.Secret)
	assert.ErrorIs(t, err, session.ErrExpired)

	// Expired sessions are deleted as a side effect of Verify.
	_, err = store.Verify(ctx, created.ID, created.Secret)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestDestroyRemovesSession(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, 7)
	require.NoError(t, err)
	require.NoError(t, store.Destroy(ctx, created.ID))

	_, err = store.Verify(ctx, created.ID, created.Secret)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestSweepDeletesExpiredSessions(t *testing.T) {
	store, conn := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, 7)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `UPDATE sessions SET expires_at = ? WHERE id = ?`,
		time.Now().Add(-time.Second).Unix(), created.ID)
	require.NoError(t, err)

	require.NoError(t, store.Sweep(ctx))

	var count int
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestParseAuthHeader(t *testing.T) {
	creds, err := session.ParseAuthHeader("SessionKey abc-123|c2VjcmV0")
	require.NoError(t, err)
	assert.Equal(t, "abc-123", creds.ID)
	assert.Equal(t, "c2VjcmV0", creds.Secret)
}

func TestParseAuthHeaderRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"Bearer abc-123|c2VjcmV0",
		"SessionKey abc-123",
		"SessionKey |c2VjcmV0",
		"SessionKey abc-123|",
	}
	for _, header := range cases {
		_, err := session.ParseAuthHeader(header)
		assert.ErrorIs(t, err, session.ErrMalformed, "header %q", header)
	}
}
