// Package engine is the per-game state machine of spec.md §4.3: one Game per
// live match, composing internal/chessrules and internal/clock, exposing the
// Move/OfferDraw/ClaimDraw/Resign/AssertTimeout commands and emitting typed
// events for internal/hub to fan out. Grounded on the teacher's per-match
// server/game/game.go+match.go (a *chess.Game behind a mutex with buffered
// per-player event channels), generalized to the single-owner serialized
// command model spec.md §5 requires — callers (internal/hub) are the sole
// source of commands for a Game and must not call it concurrently; the Game
// itself holds no lock, exactly as spec.md §5 intends ("removes need for
// locks inside the engine itself").
package engine

import (
	"time"

	"kasupel/internal/chessrules"
	"kasupel/internal/clock"
	"kasupel/internal/elo"
)

type Winner int

const (
	NoWinner Winner = iota
	HostWinner
	AwayWinner
	DrawResult
)

type Conclusion int

const (
	NoConclusion Conclusion = iota
	Checkmate
	Resignation
	OutOfTime
	Stalemate
	ThreefoldRepetition
	FiftyMoveRule
	AgreedDraw
)

// DrawReason is the claim reason a client may submit to ClaimDraw.
type DrawReason int

const (
	ClaimAgreedDraw DrawReason = iota
	ClaimThreefoldRepetition
	ClaimFiftyMoveRule
)

// Game is one live match's authoritative state.
type Game struct {
	ID                   int64
	Mode                 int
	HostID, AwayID       int64
	InvitedID            *int64
	MainThinkingTime     int
	FixedExtraTime       int
	TimeIncrementPerTurn int

	HostTime, AwayTime               int
	HostOfferingDraw, AwayOfferingDraw bool
	CurrentTurn                      chessrules.Side
	TurnNumber                       int

	Position        *chessrules.Position
	PositionHistory [][16]byte
	HalfmoveClock   int

	Winner     Winner
	Conclusion Conclusion

	OpenedAt  time.Time
	StartedAt time.Time
	LastTurn  time.Time
	EndedAt   time.Time
}

// InProgress mirrors the Started lifecycle state of spec.md §3.
func (g *Game) InProgress() bool {
	return g.AwayID != 0 && !g.StartedAt.IsZero() && g.EndedAt.IsZero()
}

func (g *Game) remaining(side chessrules.Side) int {
	if side == chessrules.Host {
		return g.HostTime
	}
	return g.AwayTime
}

func (g *Game) setRemaining(side chessrules.Side, v int) {
	if side == chessrules.Host {
		g.HostTime = v
	} else {
		g.AwayTime = v
	}
}

func (g *Game) offering(side chessrules.Side) bool {
	if side == chessrules.Host {
		return g.HostOfferingDraw
	}
	return g.AwayOfferingDraw
}

func (g *Game) setOffering(side chessrules.Side, v bool) {
	if side == chessrules.Host {
		g.HostOfferingDraw = v
	} else {
		g.AwayOfferingDraw = v
	}
}

// RouteTo selects which socket(s) of a game a RoutedEvent is delivered to.
type RouteTo int

const (
	ToRequester RouteTo = iota
	ToOpponentOf
	ToBoth
)

// RoutedEvent pairs an emitted Event with its fan-out destination. When To
// is ToOpponentOf, Of names the side whose opponent should receive it.
type RoutedEvent struct {
	To    RouteTo
	Of    chessrules.Side
	Event Event
}

// Outcome summarizes a command's result for callers that also own
// persistence, ELO settlement and notification enqueueing (internal/hub) —
// kept out of this package so Game stays a pure state machine (see
// DESIGN.md).
type Outcome struct {
	Events []RoutedEvent
	Ended  bool
	Winner Winner
	Reason Conclusion
	// EloScoreHost is the score fed to internal/elo for the host side when
	// Ended is true: 1 (win), 0.5 (draw) or 0 (loss).
	EloScoreHost elo.Score
}

func emit(events ...RoutedEvent) Outcome {
	return Outcome{Events: events}
}

// concludeLocked finalizes the game: sets winner/conclusion/ended_at, and reports
// the host-side ELO score for the caller to settle. Every conclusion reason
// feeds ELO (spec.md §4.3's "applied only on natural conclusion" is read,
// per DESIGN.md, as: every Finished transition updates ELO, with
// resignation/timeout scored as a full decisive result exactly like
// checkmate — there is no "no rating change" conclusion).
func (g *Game) concludeLocked(winner Winner, reason Conclusion, at time.Time, gameStateEvent Event) Outcome {
	g.Winner = winner
	g.Conclusion = reason
	g.EndedAt = at

	var hostScore elo.Score
	switch winner {
	case HostWinner:
		hostScore = elo.Win
	case AwayWinner:
		hostScore = elo.Loss
	default:
		hostScore = elo.Draw
	}

	return Outcome{
		Events: []RoutedEvent{{To: ToBoth, Event: gameStateEvent}},
		Ended:  true,
		Winner: winner,
		Reason: reason,
		EloScoreHost: hostScore,
	}
}

func opposite(w Winner) Winner {
	if w == HostWinner {
		return AwayWinner
	}
	return HostWinner
}

func sideWinner(s chessrules.Side) Winner {
	if s == chessrules.Host {
		return HostWinner
	}
	return AwayWinner
}
