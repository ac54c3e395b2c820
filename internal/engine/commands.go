package engine

import (
	"time"

	"kasupel/internal/apierr"
	"kasupel/internal/chessrules"
	"kasupel/internal/clock"
)

// Move applies side's move at wallTime. Elapsed time since the side's last
// turn is deducted from its clock first; running out of time there turns
// the move attempt into a timeout loss instead (spec.md §4.3's "a move
// request that arrives after time has run out resolves as a timeout, not a
// move").
func (g *Game) Move(side chessrules.Side, m chessrules.Move, wallTime time.Time) (Outcome, error) {
	if !g.InProgress() {
		return Outcome{}, apierr.Of(apierr.NotInProgress)
	}
	if side != g.CurrentTurn {
		return Outcome{}, apierr.Of(apierr.NotYourTurn)
	}

	elapsed := int(wallTime.Sub(g.LastTurn).Seconds())
	remaining := clock.Deduct(g.remaining(side), elapsed)
	if clock.TimedOut(remaining) {
		g.setRemaining(side, remaining)
		return g.concludeLocked(opposite(sideWinner(side)), OutOfTime, wallTime, Event{
			Kind: KindGameEnd, GameState: g.snapshot(), At: wallTime,
		}), nil
	}

	if !g.Position.IsLegal(m) {
		return Outcome{}, apierr.Of(apierr.InvalidMove)
	}
	if err := g.Position.Apply(m); err != nil {
		return Outcome{}, apierr.Of(apierr.InvalidMove)
	}

	remaining = clock.CreditIncrement(remaining, g.TimeIncrementPerTurn)
	g.setRemaining(side, remaining)
	g.setOffering(side, false)
	g.setOffering(side.Other(), false)
	if g.Position.IsReversible(m) {
		g.HalfmoveClock++
	} else {
		g.HalfmoveClock = 0
	}
	g.PositionHistory = append(g.PositionHistory, g.Position.Fingerprint())
	g.CurrentTurn = side.Other()
	g.TurnNumber++
	g.LastTurn = wallTime

	if term := g.Position.Terminal(); term != chessrules.NoTerminal {
		reason := Checkmate
		winner := sideWinner(side)
		if term == chessrules.Stalemate {
			reason = Stalemate
			winner = DrawResult
		}
		return g.concludeLocked(winner, reason, wallTime, Event{
			Kind: KindGameEnd, GameState: g.snapshot(), At: wallTime,
		}), nil
	}

	state := g.snapshot()
	opponentMoves := g.Position.LegalMoves(g.CurrentTurn)
	return Outcome{Events: []RoutedEvent{
		{To: ToOpponentOf, Of: side, Event: Event{
			Kind: KindMove, Move: &m, MovedBy: side, GameState: state,
			AllowedMoves: opponentMoves, At: wallTime,
		}},
		{To: ToRequester, Event: Event{
			Kind: KindMove, Move: &m, MovedBy: side, GameState: state, At: wallTime,
		}},
	}}, nil
}

// OfferDraw records side's standing draw offer, cleared by the next move of
// either side (spec.md §4.3).
func (g *Game) OfferDraw(side chessrules.Side, wallTime time.Time) (Outcome, error) {
	if !g.InProgress() {
		return Outcome{}, apierr.Of(apierr.NotInProgress)
	}
	g.setOffering(side, true)
	return emit(RoutedEvent{To: ToOpponentOf, Of: side, Event: Event{Kind: KindDrawOffer, GameState: g.snapshot(), At: wallTime}}), nil
}

// ClaimDraw ends the game in a draw if reason is currently substantiated:
// the opponent's standing offer (ClaimAgreedDraw), the current position
// having occurred three times (ClaimThreefoldRepetition), or 50 full moves
// without a capture or pawn move (ClaimFiftyMoveRule). A pending timeout on
// the side to move is checked first and takes precedence over any claim
// (DESIGN.md's Open Question resolution).
func (g *Game) ClaimDraw(side chessrules.Side, reason DrawReason, wallTime time.Time) (Outcome, error) {
	if !g.InProgress() {
		return Outcome{}, apierr.Of(apierr.NotInProgress)
	}
	if out, timedOut, err := g.checkTimeout(wallTime); timedOut {
		return out, err
	}

	switch reason {
	case ClaimAgreedDraw:
		if !g.offering(side.Other()) {
			return Outcome{}, apierr.Of(apierr.DrawNotAvailable)
		}
		return g.concludeLocked(DrawResult, AgreedDraw, wallTime, Event{Kind: KindGameEnd, GameState: g.snapshot(), At: wallTime}), nil
	case ClaimThreefoldRepetition:
		if !g.hasThreefoldRepetition() {
			return Outcome{}, apierr.Of(apierr.DrawNotAvailable)
		}
		return g.concludeLocked(DrawResult, ThreefoldRepetition, wallTime, Event{Kind: KindGameEnd, GameState: g.snapshot(), At: wallTime}), nil
	case ClaimFiftyMoveRule:
		if g.HalfmoveClock < 100 {
			return Outcome{}, apierr.Of(apierr.DrawNotAvailable)
		}
		return g.concludeLocked(DrawResult, FiftyMoveRule, wallTime, Event{Kind: KindGameEnd, GameState: g.snapshot(), At: wallTime}), nil
	default:
		return Outcome{}, apierr.Of(apierr.NotADrawReason)
	}
}

func (g *Game) hasThreefoldRepetition() bool {
	if len(g.PositionHistory) == 0 {
		return false
	}
	current := g.PositionHistory[len(g.PositionHistory)-1]
	count := 0
	for _, h := range g.PositionHistory {
		if h == current {
			count++
		}
	}
	return count >= 3
}

// Resign ends the game immediately with side as the losing party.
func (g *Game) Resign(side chessrules.Side, wallTime time.Time) (Outcome, error) {
	if !g.InProgress() {
		return Outcome{}, apierr.Of(apierr.NotInProgress)
	}
	return g.concludeLocked(opposite(sideWinner(side)), Resignation, wallTime, Event{Kind: KindGameEnd, GameState: g.snapshot(), At: wallTime}), nil
}

// AssertTimeout lets either side (or the sweeper, acting for neither)
// collect a win once the side to move's clock has run out without it
// having submitted anything since.
func (g *Game) AssertTimeout(wallTime time.Time) (Outcome, error) {
	if !g.InProgress() {
		return Outcome{}, apierr.Of(apierr.NotInProgress)
	}
	out, timedOut, err := g.checkTimeout(wallTime)
	if !timedOut {
		return Outcome{}, apierr.Of(apierr.OpponentNotTimedOut)
	}
	return out, err
}

func (g *Game) checkTimeout(wallTime time.Time) (Outcome, bool, error) {
	elapsed := int(wallTime.Sub(g.LastTurn).Seconds())
	remaining := clock.Deduct(g.remaining(g.CurrentTurn), elapsed)
	if !clock.TimedOut(remaining) {
		return Outcome{}, false, nil
	}
	g.setRemaining(g.CurrentTurn, remaining)
	out := g.concludeLocked(opposite(sideWinner(g.CurrentTurn)), OutOfTime, wallTime, Event{
		Kind: KindGameEnd, GameState: g.snapshot(), At: wallTime,
	})
	return out, true, nil
}

// AllowedMoves answers an explicit allowed_moves request (spec.md §6):
// delivered only to the requester, unlike the allowed_moves bundled into a
// move event for the opponent.
func (g *Game) AllowedMoves(side chessrules.Side, wallTime time.Time) (Outcome, error) {
	if !g.InProgress() {
		return Outcome{}, apierr.Of(apierr.NotInProgress)
	}
	moves := g.Position.LegalMoves(side)
	return emit(RoutedEvent{To: ToRequester, Event: Event{
		Kind: KindAllowedMoves, AllowedMoves: moves, GameState: g.snapshot(), At: wallTime,
	}}), nil
}

// State answers an explicit game_state request.
func (g *Game) State() Event {
	return Event{Kind: KindGameState, GameState: g.snapshot(), At: time.Now()}
}
