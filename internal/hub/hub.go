// Package hub is the per-game socket fan-out of spec.md §4.5: one Room per
// live game, at most one connected socket per (game, side), with the
// serialized command loop that is the sole caller into internal/engine.
// Grounded on two examples: rias-glitch-telegram-webapp's Hub/Room/Client
// (registration via channels, non-blocking Send, displacement of stale
// connections) and jonradoff-chessmata's register/unregister/broadcast
// triad — generalized from "N players per room" to this spec's fixed
// two-sided room, and from an unordered broadcast to RouteTo-aware fan-out.
package hub

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"kasupel/internal/chessrules"
	"kasupel/internal/elo"
	"kasupel/internal/engine"
	"kasupel/internal/notify"
)

// Persister durably writes a game's mutable state back after every command
// (spec.md §5: "a command is not acknowledged as complete until its
// resulting state is durably queued for write").
type Persister interface {
	SaveGame(ctx context.Context, g *engine.Game) error
}

// Settler applies the end-of-game ELO update for the two players of a game.
type Settler interface {
	Settle(ctx context.Context, hostID, awayID int64, hostScore elo.Score) (newHostElo, newAwayElo int, err error)
}

// Collaborators bundles a Room's dependencies beyond the engine.Game itself.
type Collaborators struct {
	Persist  Persister
	Settle   Settler
	Notify   *notify.Queue
	Now      func() time.Time
}

// DisconnectReason is the reason carried on a game_disconnect frame
// (spec.md §4.5).
type DisconnectReason string

const (
	ReasonNewConnectionSameAccount DisconnectReason = "NewConnectionSameAccount"
	ReasonGameOver                 DisconnectReason = "GameOver"
	ReasonInviteDeclined           DisconnectReason = "InviteDeclined"
)

// Hub owns every live game's Room and is the process-wide notify.LiveDeliverer.
type Hub struct {
	mu    sync.RWMutex
	rooms map[int64]*Room
}

func New() *Hub {
	return &Hub{rooms: make(map[int64]*Room)}
}

// Open creates (or returns the existing) Room for a game, starting its
// command loop goroutine the first time.
func (h *Hub) Open(gameID int64, g *engine.Game, collab Collaborators) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[gameID]; ok {
		return r
	}
	r := newRoom(gameID, g, collab)
	r.onEnded = func() { h.Close(gameID, ReasonGameOver) }
	h.rooms[gameID] = r
	go r.run()
	return r
}

// Get returns a game's Room if one is currently open.
func (h *Hub) Get(gameID int64) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[gameID]
	return r, ok
}

// Close tears a game's Room down and forgets it, sending every socket still
// attached a game_disconnect frame with reason before closing it. A no-op
// if the game has no open Room.
func (h *Hub) Close(gameID int64, reason DisconnectReason) {
	h.mu.Lock()
	r, ok := h.rooms[gameID]
	delete(h.rooms, gameID)
	h.mu.Unlock()
	if ok {
		r.shutdown(reason)
	}
}

// Rooms snapshots the currently open rooms, for internal/sweeper to scan.
func (h *Hub) Rooms() []*Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		out = append(out, r)
	}
	return out
}

// DeliverNotification implements notify.LiveDeliverer: if userID has an
// open socket in any room, push the notification down it immediately.
func (h *Hub) DeliverNotification(userID int64, n notify.Notification) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, r := range h.rooms {
		if c, ok := r.clientFor(userID); ok {
			c.sendJSON(wireNotification(n))
			return true
		}
	}
	return false
}

// Register attaches a socket to a game as one of its two sides, displacing
// whatever was previously connected on that side: the old socket is sent
// game_disconnect reason NewConnectionSameAccount and closed (spec.md §4.5:
// "a new connection for the same (game, side) displaces the old one, which
// is closed").
func (r *Room) Register(userID int64, side chessrules.Side, conn *websocket.Conn) *Client {
	c := &Client{UserID: userID, Side: side, conn: conn, send: make(chan []byte, 16)}
	r.mu.Lock()
	if old := r.clients[side]; old != nil {
		old.sendJSON(wireDisconnectMsg(ReasonNewConnectionSameAccount))
		close(old.send)
		_ = old.conn.Close()
	}
	r.clients[side] = c
	r.mu.Unlock()
	go c.writePump()
	return c
}

// Unregister detaches a socket if it is still the one registered for side.
func (r *Room) Unregister(side chessrules.Side, c *Client) {
	r.mu.Lock()
	if r.clients[side] == c {
		delete(r.clients, side)
	}
	r.mu.Unlock()
}

func (r *Room) clientFor(userID int64) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clients {
		if c != nil && c.UserID == userID {
			return c, true
		}
	}
	return nil, false
}

func logErr(msg string, err error) {
	if err != nil {
		slog.Error(msg, "error", err)
	}
}
