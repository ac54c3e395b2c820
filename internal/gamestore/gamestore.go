// Package gamestore bridges internal/engine's in-memory Game to internal/db's
// persisted row and internal/hub's live Room, the way the teacher's
// server/game.MatchStorage bridges a bare map to server.Server's handlers —
// generalized here into the one place that knows how to open a brand new
// match, reload a live one after a restart, and translate between the two
// representations.
package gamestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kasupel/internal/chessrules"
	"kasupel/internal/clock"
	"kasupel/internal/db"
	"kasupel/internal/elo"
	"kasupel/internal/engine"
	"kasupel/internal/hub"
	"kasupel/internal/matchmaker"
	"kasupel/internal/notify"
)

// Store is the bridge; it implements matchmaker.GameFactory and
// hub.Persister.
type Store struct {
	queries *db.Queries
	hub     *hub.Hub
	notify  *notify.Queue
	now     func() time.Time
}

func New(queries *db.Queries, h *hub.Hub, notifications *notify.Queue) *Store {
	return &Store{queries: queries, hub: h, notify: notifications, now: time.Now}
}

// OpenSearching persists a Searching-state game (host only, no away or
// invited side yet) for matchmaker.Find's unmatched path, so it is
// immediately visible to GET /games/searches and connectable to over the
// socket (spec.md §8: "X (if connected to the hub for G) receives
// game_start").
func (s *Store) OpenSearching(ctx context.Context, hostID int64, profile matchmaker.Profile) (int64, error) {
	row, err := s.createGame(ctx, hostID, nil, nil, profile)
	if err != nil {
		return 0, err
	}
	if err := s.openRoomForRow(ctx, row); err != nil {
		return 0, err
	}
	return row.ID, nil
}

// CancelSearching discards a Searching-state game row.
func (s *Store) CancelSearching(ctx context.Context, gameID int64) error {
	return s.queries.DeleteGame(ctx, gameID)
}

// OpenInvite persists an Invited-state game (host and invited_id set, no
// away yet) for matchmaker.SendInvitation.
func (s *Store) OpenInvite(ctx context.Context, fromID, toID int64, profile matchmaker.Profile) (int64, error) {
	row, err := s.createGame(ctx, fromID, nil, &toID, profile)
	if err != nil {
		return 0, err
	}
	if err := s.openRoomForRow(ctx, row); err != nil {
		return 0, err
	}
	return row.ID, nil
}

// CancelInvite discards a declined invitation's game row, sending the host
// game_disconnect reason InviteDeclined and closing its socket if it had
// already connected.
func (s *Store) CancelInvite(ctx context.Context, gameID int64) error {
	s.hub.Close(gameID, hub.ReasonInviteDeclined)
	return s.queries.DeleteGame(ctx, gameID)
}

// Pair transitions a Searching-state game to Started now that awayID has
// joined via matchmaker.Find.
func (s *Store) Pair(ctx context.Context, gameID, awayID int64) error {
	return s.start(ctx, gameID, awayID)
}

// AcceptInvite transitions an Invited-state game to Started now that its
// recipient has accepted.
func (s *Store) AcceptInvite(ctx context.Context, gameID, awayID int64) error {
	return s.start(ctx, gameID, awayID)
}

// start is the shared Searching/Invited -> Started transition: if a Room is
// already open (the host connected before an opponent showed up), the
// transition goes through it so game_start is announced live; otherwise the
// row is updated directly and the Room opened fresh for the next connect.
func (s *Store) start(ctx context.Context, gameID, awayID int64) error {
	if r, ok := s.hub.Get(gameID); ok {
		r.Pair(awayID)
		return nil
	}
	row, err := s.queries.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	now := s.now().Unix()
	away := awayID
	row.AwayID = &away
	row.InvitedID = nil
	row.StartedAt = &now
	row.LastTurn = &now
	if err := s.queries.SaveGame(ctx, row); err != nil {
		return err
	}
	return s.openRoomForRow(ctx, row)
}

func (s *Store) createGame(ctx context.Context, hostID int64, awayID, invitedID *int64, profile matchmaker.Profile) (db.Game, error) {
	now := s.now()
	position := chessrules.NewPosition()
	history, err := json.Marshal([][16]byte{position.Fingerprint()})
	if err != nil {
		return db.Game{}, fmt.Errorf("gamestore: marshal position history: %w", err)
	}
	remaining := clock.InitialRemaining(profile.MainThinkingTime, profile.FixedExtraTime)
	params := db.CreateGameParams{
		Mode:                 int64(profile.Mode),
		HostID:               hostID,
		AwayID:               awayID,
		InvitedID:            invitedID,
		MainThinkingTime:     int64(profile.MainThinkingTime),
		FixedExtraTime:       int64(profile.FixedExtraTime),
		TimeIncrementPerTurn: int64(profile.TimeIncrementPerTurn),
		HostTime:             int64(remaining),
		AwayTime:             int64(remaining),
		BoardFEN:             position.FEN(),
		PositionHistory:      string(history),
		OpenedAt:             now.Unix(),
	}
	return s.queries.CreateGame(ctx, params)
}

func (s *Store) openRoomForRow(ctx context.Context, row db.Game) error {
	g, err := s.toEngine(row, nil)
	if err != nil {
		return err
	}
	s.hub.Open(row.ID, g, hub.Collaborators{Persist: s, Settle: eloSettler{s.queries}, Notify: s.notify, Now: s.now})
	return nil
}

// Open opens (or returns) a game's live Room, reconstructing its
// engine.Game from the persisted row if this is the first touch since
// process start (spec.md §5: "a game's in-memory state is rebuilt from its
// last durable snapshot the first time anything needs to act on it again").
func (s *Store) Open(ctx context.Context, gameID int64) (*hub.Room, error) {
	if r, ok := s.hub.Get(gameID); ok {
		return r, nil
	}
	row, err := s.queries.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	g, err := s.toEngine(row, nil)
	if err != nil {
		return nil, err
	}
	return s.hub.Open(gameID, g, hub.Collaborators{Persist: s, Settle: eloSettler{s.queries}, Notify: s.notify, Now: s.now}), nil
}

// SaveGame implements hub.Persister.
func (s *Store) SaveGame(ctx context.Context, g *engine.Game) error {
	history, err := json.Marshal(g.PositionHistory)
	if err != nil {
		return fmt.Errorf("gamestore: marshal position history: %w", err)
	}
	row := db.Game{
		ID:               g.ID,
		HostID:           g.HostID,
		InvitedID:        g.InvitedID,
		HostTime:         int64(g.HostTime),
		AwayTime:         int64(g.AwayTime),
		HostOfferingDraw: g.HostOfferingDraw,
		AwayOfferingDraw: g.AwayOfferingDraw,
		CurrentTurn:      int64(g.CurrentTurn),
		TurnNumber:       int64(g.TurnNumber),
		BoardFEN:         g.Position.FEN(),
		PositionHistory:  string(history),
		HalfmoveClock:    int64(g.HalfmoveClock),
		Winner:           int64(g.Winner),
		Conclusion:       int64(g.Conclusion),
	}
	if g.AwayID != 0 {
		away := g.AwayID
		row.AwayID = &away
	}
	if !g.StartedAt.IsZero() {
		v := g.StartedAt.Unix()
		row.StartedAt = &v
	}
	if !g.LastTurn.IsZero() {
		v := g.LastTurn.Unix()
		row.LastTurn = &v
	}
	if !g.EndedAt.IsZero() {
		v := g.EndedAt.Unix()
		row.EndedAt = &v
	}
	return s.queries.SaveGame(ctx, row)
}

func (s *Store) toEngine(row db.Game, position *chessrules.Position) (*engine.Game, error) {
	if position == nil {
		hostPlaysWhite := true // spec.md doesn't persist colour choice separately from board state; Host is always dealt White (as chessrules.NewPosition does)
		p, err := chessrules.FromFEN(row.BoardFEN, hostPlaysWhite)
		if err != nil {
			return nil, fmt.Errorf("gamestore: rebuild position: %w", err)
		}
		position = p
	}
	var history [][16]byte
	if row.PositionHistory != "" {
		if err := json.Unmarshal([]byte(row.PositionHistory), &history); err != nil {
			return nil, fmt.Errorf("gamestore: unmarshal position history: %w", err)
		}
	}
	g := &engine.Game{
		ID:                   row.ID,
		Mode:                 int(row.Mode),
		HostID:               row.HostID,
		InvitedID:            row.InvitedID,
		MainThinkingTime:     int(row.MainThinkingTime),
		FixedExtraTime:       int(row.FixedExtraTime),
		TimeIncrementPerTurn: int(row.TimeIncrementPerTurn),
		HostTime:             int(row.HostTime),
		AwayTime:             int(row.AwayTime),
		HostOfferingDraw:     row.HostOfferingDraw,
		AwayOfferingDraw:     row.AwayOfferingDraw,
		CurrentTurn:          chessrules.Side(row.CurrentTurn),
		TurnNumber:           int(row.TurnNumber),
		Position:             position,
		PositionHistory:      history,
		HalfmoveClock:        int(row.HalfmoveClock),
		Winner:               engine.Winner(row.Winner),
		Conclusion:           engine.Conclusion(row.Conclusion),
		OpenedAt:             time.Unix(row.OpenedAt, 0),
	}
	if row.AwayID != nil {
		g.AwayID = *row.AwayID
	}
	if row.StartedAt != nil {
		g.StartedAt = time.Unix(*row.StartedAt, 0)
	}
	if row.LastTurn != nil {
		g.LastTurn = time.Unix(*row.LastTurn, 0)
	}
	if row.EndedAt != nil {
		g.EndedAt = time.Unix(*row.EndedAt, 0)
	}
	return g, nil
}

// eloSettler implements hub.Settler directly against internal/db, so
// internal/hub doesn't need to depend on internal/accounts.
type eloSettler struct {
	queries *db.Queries
}

func (e eloSettler) Settle(ctx context.Context, hostID, awayID int64, hostScore elo.Score) (newHost, newAway int, err error) {
	hostRow, err := e.queries.GetUserByID(ctx, hostID)
	if err != nil {
		return 0, 0, err
	}
	awayRow, err := e.queries.GetUserByID(ctx, awayID)
	if err != nil {
		return 0, 0, err
	}
	newHost, newAway = elo.Update(int(hostRow.Elo), int(awayRow.Elo), hostScore)
	if err := e.queries.UpdateUserElo(ctx, hostID, int64(newHost)); err != nil {
		return 0, 0, err
	}
	if err := e.queries.UpdateUserElo(ctx, awayID, int64(newAway)); err != nil {
		return 0, 0, err
	}
	return newHost, newAway, nil
}
