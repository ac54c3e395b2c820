// Package notify is the per-user notification queue of spec.md §4.6/§3:
// durable, FIFO per user, delivered live over a socket when one is open.
// Generalizes the teacher's buffered per-player Events channel
// (server/game/player.go) from a transient channel into a durable queue with
// an unread count and a pluggable live-delivery hook.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"kasupel/internal/db"
)

// TypeCode is one of the closed set spec.md §4.6 enumerates.
type TypeCode string

const (
	AccountsWelcome               TypeCode = "accounts.welcome"
	MatchmakingInviteReceived     TypeCode = "matchmaking.invite_received"
	MatchmakingInviteDeclined     TypeCode = "matchmaking.invite_declined"
	MatchmakingInviteAccepted     TypeCode = "matchmaking.invite_accepted"
	MatchmakingMatchFound         TypeCode = "matchmaking.match_found"
	GamesOngoingTurn              TypeCode = "games.ongoing.turn"
	GamesOngoingDrawOffer         TypeCode = "games.ongoing.draw_offer"
	GamesWinResign                TypeCode = "games.win.resign"
	GamesWinTime                  TypeCode = "games.win.time"
	GamesWinCheckmate             TypeCode = "games.win.checkmate"
	GamesLossResign               TypeCode = "games.loss.resign"
	GamesLossTime                 TypeCode = "games.loss.time"
	GamesLossCheckmate            TypeCode = "games.loss.checkmate"
	GamesDrawStalemate            TypeCode = "games.draw.stalemate"
	GamesDrawThreefoldRepetition  TypeCode = "games.draw.threefold_repetition"
	GamesDrawFiftyMoveRule        TypeCode = "games.draw.fifty_move_rule"
	GamesDrawAgreed               TypeCode = "games.draw.agreed"
)

// Notification is the in-memory/wire shape of one row.
type Notification struct {
	ID     string
	UserID int64
	SentAt time.Time
	Type   TypeCode
	GameID *int64
	Read   bool
}

// LiveDeliverer pushes a notification to a user's open socket, if any.
// internal/hub registers itself here so inserts fan out immediately.
type LiveDeliverer interface {
	DeliverNotification(userID int64, n Notification) (delivered bool)
}

// Queue is the notification store, backed by internal/db, with an optional
// live-delivery hook.
type Queue struct {
	queries  *db.Queries
	live     LiveDeliverer
	now      func() time.Time
}

func New(queries *db.Queries) *Queue {
	return &Queue{queries: queries, now: time.Now}
}

// SetLiveDeliverer wires the hub layer in after construction (internal/hub
// depends on internal/notify, not the other way around).
func (q *Queue) SetLiveDeliverer(d LiveDeliverer) {
	q.live = d
}

// Enqueue persists a notification and, if the user has an open socket,
// delivers it immediately too (spec.md §4.6).
func (q *Queue) Enqueue(ctx context.Context, userID int64, typeCode TypeCode, gameID *int64) (Notification, error) {
	now := q.now()
	row, err := q.queries.CreateNotification(ctx, db.CreateNotificationParams{
		ID:       uuid.NewString(),
		UserID:   userID,
		SentAt:   now.Unix(),
		TypeCode: string(typeCode),
		GameID:   gameID,
	})
	if err != nil {
		return Notification{}, err
	}
	n := Notification{ID: row.ID, UserID: userID, SentAt: now, Type: typeCode, GameID: gameID}
	if q.live != nil {
		q.live.DeliverNotification(userID, n)
	}
	return n, nil
}

// List returns a page of a user's notifications, most recent first.
func (q *Queue) List(ctx context.Context, userID int64, page int) ([]Notification, int, error) {
	const pageSize = 100
	total, err := q.queries.CountNotifications(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	rows, err := q.queries.ListNotifications(ctx, userID, pageSize, int64(page)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	out := make([]Notification, len(rows))
	for i, r := range rows {
		out[i] = Notification{
			ID: r.ID, UserID: r.UserID, SentAt: time.Unix(r.SentAt, 0),
			Type: TypeCode(r.TypeCode), GameID: r.GameID, Read: r.Read,
		}
	}
	pages := int((total + pageSize - 1) / pageSize)
	return out, pages, nil
}

// UnreadCount runs a SQL COUNT over the user's unread rows on every call;
// no separately maintained counter is kept.
func (q *Queue) UnreadCount(ctx context.Context, userID int64) (int, error) {
	n, err := q.queries.CountUnreadNotifications(ctx, userID)
	return int(n), err
}

// Ack marks one notification read, scoped to its owner.
func (q *Queue) Ack(ctx context.Context, userID int64, notificationID string) error {
	return q.queries.AckNotification(ctx, notificationID, userID)
}
