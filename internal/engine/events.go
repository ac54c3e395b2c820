package engine

import (
	"time"

	"kasupel/internal/chessrules"
)

// Kind identifies a socket event shape, per spec.md §6's server event list.
type Kind string

const (
	KindGameStart   Kind = "game_start"
	KindMove        Kind = "move"
	KindDrawOffer   Kind = "draw_offer"
	KindGameEnd     Kind = "game_end"
	KindGameState   Kind = "game_state"
	KindAllowedMoves Kind = "allowed_moves"
)

// StateSnapshot is the wire-agnostic game_state payload: enough for a
// client to redraw the board and clocks without a second round trip.
type StateSnapshot struct {
	FEN         string
	HostTime    int
	AwayTime    int
	CurrentTurn chessrules.Side
	TurnNumber  int
	Winner      Winner
	Conclusion  Conclusion
}

func (g *Game) snapshot() StateSnapshot {
	return StateSnapshot{
		FEN:         g.Position.FEN(),
		HostTime:    g.HostTime,
		AwayTime:    g.AwayTime,
		CurrentTurn: g.CurrentTurn,
		TurnNumber:  g.TurnNumber,
		Winner:      g.Winner,
		Conclusion:  g.Conclusion,
	}
}

// Event is one emitted occurrence; wsapi/httpapi marshal only the fields
// relevant to its Kind.
type Event struct {
	Kind         Kind
	GameState    StateSnapshot
	Move         *chessrules.Move
	MovedBy      chessrules.Side
	AllowedMoves []chessrules.Move
	At           time.Time
}
