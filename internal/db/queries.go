package db

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNoRows is returned by single-row queries that matched nothing.
var ErrNoRows = sql.ErrNoRows

// Queries is the handle every query method hangs off, exactly the teacher's
// db.Queries shape (db.New(conn) -> *Queries, passed into server.Server).
type Queries struct {
	db *sql.DB
}

func New(conn *sql.DB) *Queries {
	return &Queries{db: conn}
}

// ---- users ----------------------------------------------------------------

type CreateUserParams struct {
	Username          string
	PasswordHash      string
	Email             string
	VerificationToken string
	CreatedAt         int64
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, email, email_verified, verification_token, elo, created_at)
		VALUES (?, ?, ?, 0, ?, 1000, ?)`,
		arg.Username, arg.PasswordHash, arg.Email, arg.VerificationToken, arg.CreatedAt)
	if err != nil {
		return User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, err
	}
	return q.GetUserByID(ctx, id)
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, userSelect+` WHERE id = ?`, id))
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, userSelect+` WHERE username = ?`, username))
}

func (q *Queries) ListUsersByElo(ctx context.Context, limit, offset int64) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, userSelect+` ORDER BY elo DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUserRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

type UpdateUserParams struct {
	ID                int64
	PasswordHash      string
	Email             string
	AvatarBlobID      *string
	EmailVerified     bool
	VerificationToken string
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, email = ?, avatar_blob_id = ?, email_verified = ?, verification_token = ?
		WHERE id = ?`,
		arg.PasswordHash, arg.Email, arg.AvatarBlobID, arg.EmailVerified, arg.VerificationToken, arg.ID)
	return err
}

func (q *Queries) VerifyUserEmail(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `UPDATE users SET email_verified = 1, verification_token = '' WHERE id = ?`, id)
	return err
}

func (q *Queries) UpdateUserElo(ctx context.Context, id int64, elo int64) error {
	_, err := q.db.ExecContext(ctx, `UPDATE users SET elo = ? WHERE id = ?`, elo, id)
	return err
}

func (q *Queries) DeleteUser(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return err
}

const userSelect = `SELECT id, username, password_hash, email, email_verified, verification_token, avatar_blob_id, elo, created_at FROM users`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row *sql.Row) (User, error) {
	return scanUserGeneric(row)
}

func scanUserRows(rows *sql.Rows) (User, error) {
	return scanUserGeneric(rows)
}

func scanUserGeneric(s scanner) (User, error) {
	var u User
	var emailVerified int64
	err := s.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &emailVerified,
		&u.VerificationToken, &u.AvatarBlobID, &u.Elo, &u.CreatedAt)
	if err != nil {
		return User{}, err
	}
	u.EmailVerified = emailVerified != 0
	return u, nil
}

// ---- sessions ---------------------------------------------------------------

type CreateSessionParams struct {
	ID        string
	UserID    int64
	TokenHash string
	ExpiresAt int64
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO sessions (id, user_id, token_hash, expires_at) VALUES (?, ?, ?, ?)`,
		arg.ID, arg.UserID, arg.TokenHash, arg.ExpiresAt)
	return err
}

func (q *Queries) GetSession(ctx context.Context, id string) (Session, error) {
	var s Session
	err := q.db.QueryRowContext(ctx, `SELECT id, user_id, token_hash, expires_at FROM sessions WHERE id = ?`, id).
		Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt)
	return s, err
}

func (q *Queries) DeleteSession(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (q *Queries) DeleteExpiredSessions(ctx context.Context, now int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now)
	return err
}

// ---- notifications ----------------------------------------------------------

type CreateNotificationParams struct {
	ID       string
	UserID   int64
	SentAt   int64
	TypeCode string
	GameID   *int64
}

func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error) {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, sent_at, type_code, game_id, read) VALUES (?, ?, ?, ?, ?, 0)`,
		arg.ID, arg.UserID, arg.SentAt, arg.TypeCode, arg.GameID)
	if err != nil {
		return Notification{}, err
	}
	return Notification{ID: arg.ID, UserID: arg.UserID, SentAt: arg.SentAt, TypeCode: arg.TypeCode, GameID: arg.GameID}, nil
}

func (q *Queries) ListNotifications(ctx context.Context, userID int64, limit, offset int64) ([]Notification, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, user_id, sent_at, type_code, game_id, read FROM notifications
		WHERE user_id = ? ORDER BY sent_at DESC LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Notification
	for rows.Next() {
		var n Notification
		var read int64
		if err := rows.Scan(&n.ID, &n.UserID, &n.SentAt, &n.TypeCode, &n.GameID, &read); err != nil {
			return nil, err
		}
		n.Read = read != 0
		out = append(out, n)
	}
	return out, rows.Err()
}

func (q *Queries) CountNotifications(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

func (q *Queries) CountUnreadNotifications(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0`, userID).Scan(&n)
	return n, err
}

func (q *Queries) AckNotification(ctx context.Context, id string, userID int64) error {
	res, err := q.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoRows
	}
	return nil
}

// ---- games --------------------------------------------------------------

type CreateGameParams struct {
	Mode                 int64
	HostID               int64
	AwayID               *int64
	InvitedID            *int64
	MainThinkingTime     int64
	FixedExtraTime       int64
	TimeIncrementPerTurn int64
	HostTime             int64
	AwayTime             int64
	BoardFEN             string
	PositionHistory      string
	OpenedAt             int64
	StartedAt            *int64
	LastTurn             *int64
}

func (q *Queries) CreateGame(ctx context.Context, arg CreateGameParams) (Game, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO games (
			mode, host_id, away_id, invited_id, main_thinking_time, fixed_extra_time,
			time_increment_per_turn, host_time, away_time, board_fen, position_history,
			opened_at, started_at, last_turn
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.Mode, arg.HostID, arg.AwayID, arg.InvitedID, arg.MainThinkingTime, arg.FixedExtraTime,
		arg.TimeIncrementPerTurn, arg.HostTime, arg.AwayTime, arg.BoardFEN, arg.PositionHistory,
		arg.OpenedAt, arg.StartedAt, arg.LastTurn)
	if err != nil {
		return Game{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Game{}, err
	}
	return q.GetGame(ctx, id)
}

const gameSelect = `SELECT
	id, mode, host_id, away_id, invited_id, main_thinking_time, fixed_extra_time,
	time_increment_per_turn, host_time, away_time, host_offering_draw, away_offering_draw,
	current_turn, turn_number, board_fen, position_history, halfmove_clock, winner, conclusion,
	opened_at, started_at, last_turn, ended_at
	FROM games`

func (q *Queries) GetGame(ctx context.Context, id int64) (Game, error) {
	return scanGame(q.db.QueryRowContext(ctx, gameSelect+` WHERE id = ?`, id))
}

func scanGame(row *sql.Row) (Game, error) {
	var g Game
	var hostDraw, awayDraw int64
	err := row.Scan(&g.ID, &g.Mode, &g.HostID, &g.AwayID, &g.InvitedID, &g.MainThinkingTime,
		&g.FixedExtraTime, &g.TimeIncrementPerTurn, &g.HostTime, &g.AwayTime, &hostDraw, &awayDraw,
		&g.CurrentTurn, &g.TurnNumber, &g.BoardFEN, &g.PositionHistory, &g.HalfmoveClock, &g.Winner,
		&g.Conclusion, &g.OpenedAt, &g.StartedAt, &g.LastTurn, &g.EndedAt)
	if err != nil {
		return Game{}, err
	}
	g.HostOfferingDraw = hostDraw != 0
	g.AwayOfferingDraw = awayDraw != 0
	return g, nil
}

// SaveGame persists the full mutable state of a live game snapshot.
// internal/hub's Room calls this (through gamestore.Store) after every
// command mutates in-memory state (spec.md §5:
// "persistence writes are performed after state mutation").
func (q *Queries) SaveGame(ctx context.Context, g Game) error {
	var hostDraw, awayDraw int64
	if g.HostOfferingDraw {
		hostDraw = 1
	}
	if g.AwayOfferingDraw {
		awayDraw = 1
	}
	_, err := q.db.ExecContext(ctx, `
		UPDATE games SET
			away_id = ?, invited_id = ?, host_time = ?, away_time = ?,
			host_offering_draw = ?, away_offering_draw = ?, current_turn = ?, turn_number = ?,
			board_fen = ?, position_history = ?, halfmove_clock = ?, winner = ?, conclusion = ?,
			started_at = ?, last_turn = ?, ended_at = ?
		WHERE id = ?`,
		g.AwayID, g.InvitedID, g.HostTime, g.AwayTime, hostDraw, awayDraw, g.CurrentTurn,
		g.TurnNumber, g.BoardFEN, g.PositionHistory, g.HalfmoveClock, g.Winner, g.Conclusion,
		g.StartedAt, g.LastTurn, g.EndedAt, g.ID)
	return err
}

func (q *Queries) DeleteGame(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id)
	return err
}

func (q *Queries) ListInvites(ctx context.Context, invitedID int64, limit, offset int64) ([]Game, error) {
	return listGames(ctx, q.db, gameSelect+` WHERE invited_id = ? ORDER BY opened_at DESC LIMIT ? OFFSET ?`, invitedID, limit, offset)
}

func (q *Queries) ListSearches(ctx context.Context, hostID int64, limit, offset int64) ([]Game, error) {
	return listGames(ctx, q.db, gameSelect+` WHERE host_id = ? AND away_id IS NULL AND invited_id IS NULL ORDER BY opened_at DESC LIMIT ? OFFSET ?`, hostID, limit, offset)
}

func (q *Queries) ListOngoing(ctx context.Context, userID int64, limit, offset int64) ([]Game, error) {
	return listGames(ctx, q.db, gameSelect+` WHERE (host_id = ? OR away_id = ?) AND started_at IS NOT NULL AND ended_at IS NULL ORDER BY started_at DESC LIMIT ? OFFSET ?`, userID, userID, limit, offset)
}

func (q *Queries) ListCompleted(ctx context.Context, userID int64, limit, offset int64) ([]Game, error) {
	return listGames(ctx, q.db, gameSelect+` WHERE (host_id = ? OR away_id = ?) AND ended_at IS NOT NULL ORDER BY ended_at DESC LIMIT ? OFFSET ?`, userID, userID, limit, offset)
}

func (q *Queries) ListCommonCompleted(ctx context.Context, userA, userB int64, limit, offset int64) ([]Game, error) {
	return listGames(ctx, q.db, gameSelect+`
		WHERE ended_at IS NOT NULL
		AND ((host_id = ? AND away_id = ?) OR (host_id = ? AND away_id = ?))
		ORDER BY ended_at DESC LIMIT ? OFFSET ?`, userA, userB, userB, userA, limit, offset)
}

func (q *Queries) CountInvites(ctx context.Context, invitedID int64) (int64, error) {
	return countGames(ctx, q.db, `SELECT COUNT(*) FROM games WHERE invited_id = ?`, invitedID)
}

func (q *Queries) CountSearches(ctx context.Context, hostID int64) (int64, error) {
	return countGames(ctx, q.db, `SELECT COUNT(*) FROM games WHERE host_id = ? AND away_id IS NULL AND invited_id IS NULL`, hostID)
}

func (q *Queries) CountOngoing(ctx context.Context, userID int64) (int64, error) {
	return countGames(ctx, q.db,
		`SELECT COUNT(*) FROM games WHERE (host_id = ? OR away_id = ?) AND started_at IS NOT NULL AND ended_at IS NULL`,
		userID, userID)
}

func (q *Queries) CountCompleted(ctx context.Context, userID int64) (int64, error) {
	return countGames(ctx, q.db,
		`SELECT COUNT(*) FROM games WHERE (host_id = ? OR away_id = ?) AND ended_at IS NOT NULL`, userID, userID)
}

func (q *Queries) CountCommonCompleted(ctx context.Context, userA, userB int64) (int64, error) {
	return countGames(ctx, q.db, `
		SELECT COUNT(*) FROM games
		WHERE ended_at IS NOT NULL
		AND ((host_id = ? AND away_id = ?) OR (host_id = ? AND away_id = ?))`,
		userA, userB, userB, userA)
}

func countGames(ctx context.Context, conn *sql.DB, query string, args ...any) (int64, error) {
	var n int64
	err := conn.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func listGames(ctx context.Context, conn *sql.DB, query string, args ...any) ([]Game, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Game
	for rows.Next() {
		var g Game
		var hostDraw, awayDraw int64
		err := rows.Scan(&g.ID, &g.Mode, &g.HostID, &g.AwayID, &g.InvitedID, &g.MainThinkingTime,
			&g.FixedExtraTime, &g.TimeIncrementPerTurn, &g.HostTime, &g.AwayTime, &hostDraw, &awayDraw,
			&g.CurrentTurn, &g.TurnNumber, &g.BoardFEN, &g.PositionHistory, &g.HalfmoveClock, &g.Winner,
			&g.Conclusion, &g.OpenedAt, &g.StartedAt, &g.LastTurn, &g.EndedAt)
		if err != nil {
			return nil, err
		}
		g.HostOfferingDraw = hostDraw != 0
		g.AwayOfferingDraw = awayDraw != 0
		out = append(out, g)
	}
	return out, rows.Err()
}

// IsNoRows reports whether err is the "no matching row" sentinel.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
