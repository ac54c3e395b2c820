// Package session is the opaque session store of spec.md §3: session_id,
// user_id, a hash of a 32-byte secret, and an expiry. The secret is
// generated server-side by Create and returned to the client once; a
// client-supplied secret is not accepted.
// Redesigned from the teacher's signed-JWT API keys (server/auth.go) into
// this stored-token model — see DESIGN.md for why the JWT dependency was
// dropped rather than reused here.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"kasupel/internal/db"
)

const TTL = 30 * 24 * time.Hour

var (
	ErrMalformed = errors.New("session: malformed authorization header")
	ErrNotFound  = errors.New("session: not found")
	ErrExpired   = errors.New("session: expired")
)

// Store issues and verifies sessions against internal/db.
type Store struct {
	queries *db.Queries
	now     func() time.Time
}

func New(queries *db.Queries) *Store {
	return &Store{queries: queries, now: time.Now}
}

// Created is returned to the client on login: the id to present, and the
// raw 32-byte secret (base64) it must echo back in every subsequent request.
type Created struct {
	ID     string
	Secret string // base64, 32 bytes of entropy
}

// Create issues a new session for userID, returning the client-facing
// secret (never stored — only its hash is).
func (s *Store) Create(ctx context.Context, userID int64) (Created, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return Created{}, fmt.Errorf("session: generate secret: %w", err)
	}
	id := uuid.NewString()
	encoded := base64.StdEncoding.EncodeToString(secret)
	expires := s.now().Add(TTL)

	err := s.queries.CreateSession(ctx, db.CreateSessionParams{
		ID:        id,
		UserID:    userID,
		TokenHash: hash(secret),
		ExpiresAt: expires.Unix(),
	})
	if err != nil {
		return Created{}, err
	}
	return Created{ID: id, Secret: encoded}, nil
}

// Verify checks an (id, secret) pair against the store, returning the owning
// user id.
func (s *Store) Verify(ctx context.Context, id, secretB64 string) (int64, error) {
	secret, err := base64.StdEncoding.DecodeString(secretB64)
	if err != nil {
		return 0, ErrMalformed
	}
	sess, err := s.queries.GetSession(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	if s.now().Unix() > sess.ExpiresAt {
		_ = s.queries.DeleteSession(ctx, id)
		return 0, ErrExpired
	}
	if subtle.ConstantTimeCompare([]byte(hash(secret)), []byte(sess.TokenHash)) != 1 {
		return 0, ErrNotFound
	}
	return sess.UserID, nil
}

// Destroy ends a session (logout).
func (s *Store) Destroy(ctx context.Context, id string) error {
	return s.queries.DeleteSession(ctx, id)
}

// Sweep deletes expired sessions. Called periodically alongside the game
// timeout sweep (internal/sweeper).
func (s *Store) Sweep(ctx context.Context) error {
	return s.queries.DeleteExpiredSessions(ctx, s.now().Unix())
}

func hash(secret []byte) string {
	sum := sha256.Sum256(secret)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Credentials is a parsed "SessionKey <id>|<base64 token>" envelope, shared
// verbatim by the HTTP and socket transports (see DESIGN.md's Open Question
// on where this header lives for HTTP).
type Credentials struct {
	ID     string
	Secret string
}

// ParseAuthHeader parses the socket/HTTP auth header format spec.md §6
// defines: "SessionKey <id>|<base64 token>".
func ParseAuthHeader(header string) (Credentials, error) {
	const prefix = "SessionKey "
	if !strings.HasPrefix(header, prefix) {
		return Credentials{}, ErrMalformed
	}
	rest := strings.TrimPrefix(header, prefix)
	parts := strings.SplitN(rest, "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Credentials{}, ErrMalformed
	}
	return Credentials{ID: parts[0], Secret: parts[1]}, nil
}
