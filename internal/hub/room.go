package hub

import (
	"context"
	"sync"
	"time"

	"kasupel/internal/apierr"
	"kasupel/internal/chessrules"
	"kasupel/internal/engine"
	"kasupel/internal/notify"
)

// commandKind is which engine.Game method a queued command invokes.
type commandKind int

const (
	cmdMove commandKind = iota
	cmdOfferDraw
	cmdClaimDraw
	cmdResign
	cmdAssertTimeout
	cmdAllowedMoves
	cmdGameState
	cmdPair
)

type command struct {
	kind       commandKind
	side       chessrules.Side
	move       chessrules.Move
	drawReason engine.DrawReason
	awayID     int64
	reply      chan commandReply
}

type commandReply struct {
	outcome engine.Outcome
	event   engine.Event
	err     error
}

// Room is one live game: its engine.Game, the serialized command channel
// feeding it, and the at-most-two sockets currently attached to it. Only
// Room.run's goroutine ever calls into Game — this is the single-owner
// discipline spec.md §5 requires.
type Room struct {
	GameID int64

	game   *engine.Game
	collab Collaborators

	mu      sync.RWMutex
	clients map[chessrules.Side]*Client

	commands chan command
	closed   chan struct{}

	// onEnded tears the room down once a command concludes the game. Set by
	// Hub.Open after construction (it needs the gameID that newRoom doesn't
	// otherwise close over).
	onEnded func()
}

func newRoom(gameID int64, g *engine.Game, collab Collaborators) *Room {
	if collab.Now == nil {
		collab.Now = time.Now
	}
	return &Room{
		GameID:   gameID,
		game:     g,
		collab:   collab,
		clients:  make(map[chessrules.Side]*Client),
		commands: make(chan command),
		closed:   make(chan struct{}),
	}
}

// shutdown sends every attached socket a game_disconnect frame with reason,
// then closes it and tears the room's own goroutine down.
func (r *Room) shutdown(reason DisconnectReason) {
	close(r.closed)
	r.mu.Lock()
	for _, c := range r.clients {
		if c != nil {
			c.sendJSON(wireDisconnectMsg(reason))
			close(c.send)
			_ = c.conn.Close()
		}
	}
	r.clients = map[chessrules.Side]*Client{}
	r.mu.Unlock()
}

// run is the room's single goroutine: every command is processed to
// completion (engine mutation, persistence, ELO settlement, notification
// enqueueing, fan-out) before the next one is read off the channel.
func (r *Room) run() {
	for {
		select {
		case <-r.closed:
			return
		case cmd := <-r.commands:
			reply := r.process(cmd)
			if cmd.reply != nil {
				cmd.reply <- reply
			}
		}
	}
}

func (r *Room) process(cmd command) commandReply {
	ctx := context.Background()
	now := r.collab.Now()

	var outcome engine.Outcome
	var event engine.Event
	var err error

	switch cmd.kind {
	case cmdMove:
		outcome, err = r.game.Move(cmd.side, cmd.move, now)
	case cmdOfferDraw:
		outcome, err = r.game.OfferDraw(cmd.side, now)
	case cmdClaimDraw:
		outcome, err = r.game.ClaimDraw(cmd.side, cmd.drawReason, now)
	case cmdResign:
		outcome, err = r.game.Resign(cmd.side, now)
	case cmdAssertTimeout:
		outcome, err = r.game.AssertTimeout(now)
	case cmdAllowedMoves:
		outcome, err = r.game.AllowedMoves(cmd.side, now)
	case cmdGameState:
		event = r.game.State()
	case cmdPair:
		// A game that was already Started (e.g. a retried Accept) is a
		// no-op: game_start is only ever announced on the real transition.
		if r.game.AwayID == 0 {
			r.mu.Lock()
			r.game.AwayID = cmd.awayID
			r.mu.Unlock()
			r.game.InvitedID = nil
			if r.game.StartedAt.IsZero() {
				r.game.StartedAt = now
				r.game.LastTurn = now
			}
			ev := r.game.State()
			ev.Kind = engine.KindGameStart
			outcome = engine.Outcome{Events: []engine.RoutedEvent{{To: engine.ToBoth, Event: ev}}}
		}
	default:
		err = apierr.Of(apierr.Internal)
	}
	if err != nil {
		return commandReply{err: err}
	}

	if r.collab.Persist != nil {
		logErr("hub: persist game", r.collab.Persist.SaveGame(ctx, r.game))
	}

	if outcome.Ended {
		r.settle(ctx, outcome)
	}

	r.fanOut(outcome)
	if cmd.kind == cmdMove && !outcome.Ended {
		r.notifyOngoingTurn(ctx)
	}
	if cmd.kind == cmdOfferDraw {
		r.notifyOngoing(ctx, notify.GamesOngoingDrawOffer, cmd.side)
	}

	if outcome.Ended && r.onEnded != nil {
		r.onEnded()
	}

	return commandReply{outcome: outcome, event: event}
}

func (r *Room) settle(ctx context.Context, outcome engine.Outcome) {
	hostID, awayID := r.game.HostID, r.game.AwayID
	if r.collab.Settle != nil {
		_, _, err := r.collab.Settle.Settle(ctx, hostID, awayID, outcome.EloScoreHost)
		logErr("hub: settle elo", err)
	}
	if r.collab.Notify == nil {
		return
	}
	hostType, awayType := resultNotifications(outcome.Winner, outcome.Reason)
	gid := r.GameID
	_, _ = r.collab.Notify.Enqueue(ctx, hostID, hostType, &gid)
	_, _ = r.collab.Notify.Enqueue(ctx, awayID, awayType, &gid)
}

// resultNotifications maps a conclusion to the pair of type codes sent to
// (host, away). Supplements spec.md §4.6's enumerated set with the
// checkmate-win and resignation-loss codes Scenario 1 requires but the
// closed list's "/"-shorthand omitted — see DESIGN.md.
func resultNotifications(winner engine.Winner, reason engine.Conclusion) (hostType, awayType notify.TypeCode) {
	draw := func() (notify.TypeCode, notify.TypeCode) {
		switch reason {
		case engine.Stalemate:
			return notify.GamesDrawStalemate, notify.GamesDrawStalemate
		case engine.ThreefoldRepetition:
			return notify.GamesDrawThreefoldRepetition, notify.GamesDrawThreefoldRepetition
		case engine.FiftyMoveRule:
			return notify.GamesDrawFiftyMoveRule, notify.GamesDrawFiftyMoveRule
		default:
			return notify.GamesDrawAgreed, notify.GamesDrawAgreed
		}
	}
	if winner == engine.DrawResult {
		return draw()
	}
	win, loss := notify.GamesWinCheckmate, notify.GamesLossCheckmate
	switch reason {
	case engine.Resignation:
		win, loss = notify.GamesWinResign, notify.GamesLossResign
	case engine.OutOfTime:
		win, loss = notify.GamesWinTime, notify.GamesLossTime
	}
	if winner == engine.HostWinner {
		return win, loss
	}
	return loss, win
}

func (r *Room) userIDFor(side chessrules.Side) int64 {
	if side == chessrules.Host {
		return r.game.HostID
	}
	return r.game.AwayID
}

// notifyOngoingTurn tells the side now on move that it's their turn.
func (r *Room) notifyOngoingTurn(ctx context.Context) {
	if r.collab.Notify == nil {
		return
	}
	gid := r.GameID
	_, _ = r.collab.Notify.Enqueue(ctx, r.userIDFor(r.game.CurrentTurn), notify.GamesOngoingTurn, &gid)
}

// notifyOngoing sends typeCode to the opponent of offeredBy. It is called
// right after OfferDraw with cmd.side, so the recipient is the side that
// did not make the offer.
func (r *Room) notifyOngoing(ctx context.Context, typeCode notify.TypeCode, offeredBy chessrules.Side) {
	if r.collab.Notify == nil {
		return
	}
	gid := r.GameID
	_, _ = r.collab.Notify.Enqueue(ctx, r.userIDFor(offeredBy.Other()), typeCode, &gid)
}

func (r *Room) fanOut(outcome engine.Outcome) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, re := range outcome.Events {
		msg := wireEvent(r.GameID, re.Event)
		switch re.To {
		case engine.ToBoth:
			for _, c := range r.clients {
				if c != nil {
					c.sendJSON(msg)
				}
			}
		case engine.ToRequester:
			// Delivered synchronously to whoever issued the command by the
			// caller of submit, not pushed here.
		case engine.ToOpponentOf:
			if c := r.clients[re.Of.Other()]; c != nil {
				c.sendJSON(msg)
			}
		}
	}
}

// submit enqueues a command and blocks for its result. Safe for concurrent
// callers — commands serialize on the channel, the Game itself is touched
// only by run().
func (r *Room) submit(cmd command) (engine.Outcome, engine.Event, error) {
	cmd.reply = make(chan commandReply, 1)
	select {
	case r.commands <- cmd:
	case <-r.closed:
		return engine.Outcome{}, engine.Event{}, apierr.Of(apierr.GameAlreadyEnded)
	}
	rep := <-cmd.reply
	return rep.outcome, rep.event, rep.err
}

func (r *Room) Move(side chessrules.Side, m chessrules.Move) (engine.Outcome, error) {
	out, _, err := r.submit(command{kind: cmdMove, side: side, move: m})
	return out, err
}

func (r *Room) OfferDraw(side chessrules.Side) (engine.Outcome, error) {
	out, _, err := r.submit(command{kind: cmdOfferDraw, side: side})
	return out, err
}

func (r *Room) ClaimDraw(side chessrules.Side, reason engine.DrawReason) (engine.Outcome, error) {
	out, _, err := r.submit(command{kind: cmdClaimDraw, side: side, drawReason: reason})
	return out, err
}

func (r *Room) Resign(side chessrules.Side) (engine.Outcome, error) {
	out, _, err := r.submit(command{kind: cmdResign, side: side})
	return out, err
}

func (r *Room) AssertTimeout() (engine.Outcome, error) {
	out, _, err := r.submit(command{kind: cmdAssertTimeout})
	return out, err
}

func (r *Room) AllowedMoves(side chessrules.Side) (engine.Outcome, error) {
	out, _, err := r.submit(command{kind: cmdAllowedMoves, side: side})
	return out, err
}

func (r *Room) GameState() (engine.Event, error) {
	_, ev, err := r.submit(command{kind: cmdGameState})
	return ev, err
}

// Pair transitions a Searching or Invited room to Started now that awayID
// has joined, announcing game_start to whichever side(s) are already
// connected (spec.md §8: "X (if connected to the hub for G) receives
// game_start"). Called by internal/gamestore once a game's away side is
// known, whether from matchmaker.Find pairing or an accepted invitation.
func (r *Room) Pair(awayID int64) {
	_, _, _ = r.submit(command{kind: cmdPair, awayID: awayID})
}

// SideFor reports which side userID plays in this room, for callers (e.g.
// internal/httpapi) that only know the authenticated user id. Reads
// game.HostID/AwayID under r.mu rather than going through the command
// channel — HostID is set at creation, and AwayID is written once, by Pair,
// while the run goroutine holds r.mu.
func (r *Room) SideFor(userID int64) (chessrules.Side, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch userID {
	case r.game.HostID:
		return chessrules.Host, true
	case r.game.AwayID:
		return chessrules.Away, true
	default:
		return 0, false
	}
}

// RequesterEvent extracts the event routed back to whoever issued the
// command from an Outcome, if any (see engine.RouteTo's ToRequester case
// and Room.fanOut's comment on why it isn't pushed through fan-out).
func RequesterEvent(outcome engine.Outcome) (engine.Event, bool) {
	for _, re := range outcome.Events {
		if re.To == engine.ToRequester {
			return re.Event, true
		}
	}
	return engine.Event{}, false
}
