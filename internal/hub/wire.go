package hub

import (
	"kasupel/internal/chessrules"
	"kasupel/internal/engine"
	"kasupel/internal/notify"
)

// wireMove is a move's JSON wire shape (spec.md §6): coordinate move plus
// the optional promotion piece letter.
type wireMove struct {
	StartRank int    `json:"start_rank"`
	StartFile int    `json:"start_file"`
	EndRank   int    `json:"end_rank"`
	EndFile   int    `json:"end_file"`
	Promotion string `json:"promotion,omitempty"`
}

func toWireMove(m chessrules.Move) wireMove {
	return wireMove{
		StartRank: m.StartRank, StartFile: m.StartFile,
		EndRank: m.EndRank, EndFile: m.EndFile,
		Promotion: chessrules.PromotionLetter(m.Promotion),
	}
}

type wireState struct {
	FEN         string `json:"fen"`
	HostTime    int    `json:"host_time"`
	AwayTime    int    `json:"away_time"`
	CurrentTurn string `json:"current_turn"`
	TurnNumber  int    `json:"turn_number"`
	Winner      string `json:"winner,omitempty"`
	Conclusion  string `json:"conclusion,omitempty"`
}

func toWireState(s engine.StateSnapshot) wireState {
	turn := "host"
	if s.CurrentTurn == chessrules.Away {
		turn = "away"
	}
	return wireState{
		FEN: s.FEN, HostTime: s.HostTime, AwayTime: s.AwayTime,
		CurrentTurn: turn, TurnNumber: s.TurnNumber,
		Winner:     winnerLabel(s.Winner),
		Conclusion: conclusionLabel(s.Conclusion),
	}
}

// wireEnvelope is the outer shape every socket push shares: an event name
// plus whichever of the optional fields that event kind populates.
type wireEnvelope struct {
	Event        string      `json:"event"`
	GameID       int64       `json:"game_id"`
	Move         *wireMove   `json:"move,omitempty"`
	MovedBy      string      `json:"moved_by,omitempty"`
	GameState    *wireState  `json:"game_state,omitempty"`
	AllowedMoves []wireMove  `json:"allowed_moves,omitempty"`
}

// EncodeEvent renders an event in the same wire shape fan-out pushes use,
// for a transport (internal/wsapi) to send synchronously as the ack to
// whoever issued the command.
func EncodeEvent(gameID int64, e engine.Event) any {
	return wireEvent(gameID, e)
}

func wireEvent(gameID int64, e engine.Event) wireEnvelope {
	env := wireEnvelope{Event: string(e.Kind), GameID: gameID}
	state := toWireState(e.GameState)
	env.GameState = &state
	if e.Move != nil {
		wm := toWireMove(*e.Move)
		env.Move = &wm
		env.MovedBy = sideLabel(e.MovedBy)
	}
	if e.AllowedMoves != nil {
		moves := make([]wireMove, len(e.AllowedMoves))
		for i, m := range e.AllowedMoves {
			moves[i] = toWireMove(m)
		}
		env.AllowedMoves = moves
	}
	return env
}

// wireDisconnect is the game_disconnect frame spec.md §4.5 requires before
// a socket is closed: a displaced connection, a finished game, or a
// declined invitation.
type wireDisconnect struct {
	Event  string `json:"event"`
	Reason string `json:"reason"`
}

func wireDisconnectMsg(reason DisconnectReason) wireDisconnect {
	return wireDisconnect{Event: "game_disconnect", Reason: string(reason)}
}

type wireNotificationMsg struct {
	Event  string  `json:"event"`
	ID     string  `json:"id"`
	Type   string  `json:"type"`
	GameID *int64  `json:"game_id,omitempty"`
	SentAt int64   `json:"sent_at"`
}

func wireNotification(n notify.Notification) wireNotificationMsg {
	return wireNotificationMsg{
		Event: "notification", ID: n.ID, Type: string(n.Type),
		GameID: n.GameID, SentAt: n.SentAt.Unix(),
	}
}

func sideLabel(s chessrules.Side) string {
	if s == chessrules.Host {
		return "host"
	}
	return "away"
}

func winnerLabel(w engine.Winner) string {
	switch w {
	case engine.HostWinner:
		return "host"
	case engine.AwayWinner:
		return "away"
	case engine.DrawResult:
		return "draw"
	default:
		return ""
	}
}

func conclusionLabel(c engine.Conclusion) string {
	switch c {
	case engine.Checkmate:
		return "checkmate"
	case engine.Resignation:
		return "resignation"
	case engine.OutOfTime:
		return "time"
	case engine.Stalemate:
		return "stalemate"
	case engine.ThreefoldRepetition:
		return "threefold_repetition"
	case engine.FiftyMoveRule:
		return "fifty_move_rule"
	case engine.AgreedDraw:
		return "agreed"
	default:
		return ""
	}
}

