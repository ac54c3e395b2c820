package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"kasupel/internal/apierr"
	"kasupel/internal/chessrules"
	"kasupel/internal/engine"
	"kasupel/internal/hub"
	"kasupel/internal/matchmaker"
)

// --- matchmaking ---

type profileRequest struct {
	Mode                 int `json:"mode"`
	MainThinkingTime     int `json:"main_thinking_time"`
	FixedExtraTime       int `json:"fixed_extra_time"`
	TimeIncrementPerTurn int `json:"time_increment_per_turn"`
}

func (r profileRequest) toProfile() matchmaker.Profile {
	return matchmaker.Profile{
		Mode: r.Mode, MainThinkingTime: r.MainThinkingTime,
		FixedExtraTime: r.FixedExtraTime, TimeIncrementPerTurn: r.TimeIncrementPerTurn,
	}
}

type findResponse struct {
	Matched bool  `json:"matched"`
	GameID  int64 `json:"game_id,omitempty"`
}

func (s Server) find(c echo.Context) error {
	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return apierr.Of(apierr.JSONSyntaxError)
	}
	matched, gameID, err := s.Matchmaker.Find(c.Request().Context(), authedUserID(c), req.toProfile())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, findResponse{Matched: matched, GameID: gameID})
}

func (s Server) cancelFind(c echo.Context) error {
	if err := s.Matchmaker.CancelFind(c.Request().Context(), authedUserID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type sendInvitationRequest struct {
	ToUserID             int64 `json:"to_user_id"`
	Mode                 int   `json:"mode"`
	MainThinkingTime     int   `json:"main_thinking_time"`
	FixedExtraTime       int   `json:"fixed_extra_time"`
	TimeIncrementPerTurn int   `json:"time_increment_per_turn"`
}

type invitationResponse struct {
	ID string `json:"id"`
}

func (s Server) sendInvitation(c echo.Context) error {
	var req sendInvitationRequest
	if err := c.Bind(&req); err != nil {
		return apierr.Of(apierr.JSONSyntaxError)
	}
	profile := matchmaker.Profile{
		Mode: req.Mode, MainThinkingTime: req.MainThinkingTime,
		FixedExtraTime: req.FixedExtraTime, TimeIncrementPerTurn: req.TimeIncrementPerTurn,
	}
	id, err := s.Matchmaker.SendInvitation(c.Request().Context(), authedUserID(c), req.ToUserID, profile)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, invitationResponse{ID: id})
}

func (s Server) acceptInvitation(c echo.Context) error {
	gameID, err := s.Matchmaker.AcceptInvitation(c.Request().Context(), authedUserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, findResponse{Matched: true, GameID: gameID})
}

func (s Server) declineInvitation(c echo.Context) error {
	if err := s.Matchmaker.DeclineInvitation(c.Request().Context(), authedUserID(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// --- in-game ---

func (s Server) gameIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, apierr.Of(apierr.PathParamInvalid)
	}
	return id, nil
}

// openRoomAndSide resolves :id to its room and the authenticated caller's
// side, the shared prelude every in-game handler below needs.
func (s Server) openRoomAndSide(c echo.Context) (*hub.Room, chessrules.Side, error) {
	gameID, err := s.gameIDParam(c)
	if err != nil {
		return nil, 0, err
	}
	room, err := s.Games.Open(c.Request().Context(), gameID)
	if err != nil {
		return nil, 0, err
	}
	side, ok := room.SideFor(authedUserID(c))
	if !ok {
		return nil, 0, apierr.Of(apierr.NotGameParticipant)
	}
	return room, side, nil
}

func (s Server) gameState(c echo.Context) error {
	room, _, err := s.openRoomAndSide(c)
	if err != nil {
		return err
	}
	ev, err := room.GameState()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toEventResponse(ev))
}

// --- wire shapes ---
//
// Deliberately distinct from internal/hub's socket wireEnvelope (unexported
// there): the HTTP surface renders the same engine.Event as a JSON body
// instead of a socket frame, and the two shapes differ — the kind is under
// "kind" rather than "event", there is no game_id, conclusions and winner
// use this file's own labels, and game_state is only filled for the
// state, start and end kinds.

type moveResponse struct {
	StartRank int    `json:"start_rank"`
	StartFile int    `json:"start_file"`
	EndRank   int    `json:"end_rank"`
	EndFile   int    `json:"end_file"`
	Promotion string `json:"promotion,omitempty"`
}

func toMoveResponse(m chessrules.Move) moveResponse {
	return moveResponse{
		StartRank: m.StartRank, StartFile: m.StartFile,
		EndRank: m.EndRank, EndFile: m.EndFile,
		Promotion: chessrules.PromotionLetter(m.Promotion),
	}
}

type stateResponse struct {
	FEN         string `json:"fen"`
	HostTime    int    `json:"host_time"`
	AwayTime    int    `json:"away_time"`
	CurrentTurn string `json:"current_turn"`
	TurnNumber  int    `json:"turn_number"`
	Winner      string `json:"winner"`
	Conclusion  string `json:"conclusion"`
}

func toStateResponse(s engine.StateSnapshot) stateResponse {
	return stateResponse{
		FEN: s.FEN, HostTime: s.HostTime, AwayTime: s.AwayTime,
		CurrentTurn: sideLabel(s.CurrentTurn), TurnNumber: s.TurnNumber,
		Winner: winnerLabel(s.Winner), Conclusion: conclusionLabel(s.Conclusion),
	}
}

type eventResponse struct {
	Kind         string         `json:"kind"`
	GameState    *stateResponse `json:"game_state,omitempty"`
	Move         *moveResponse  `json:"move,omitempty"`
	MovedBy      string         `json:"moved_by,omitempty"`
	AllowedMoves []moveResponse `json:"allowed_moves,omitempty"`
}

func toEventResponse(e engine.Event) eventResponse {
	out := eventResponse{Kind: string(e.Kind)}
	switch e.Kind {
	case engine.KindGameState, engine.KindGameEnd, engine.KindGameStart:
		state := toStateResponse(e.GameState)
		out.GameState = &state
	case engine.KindMove:
		if e.Move != nil {
			mv := toMoveResponse(*e.Move)
			out.Move = &mv
		}
		out.MovedBy = sideLabel(e.MovedBy)
		if e.AllowedMoves != nil {
			out.AllowedMoves = make([]moveResponse, len(e.AllowedMoves))
			for i, m := range e.AllowedMoves {
				out.AllowedMoves[i] = toMoveResponse(m)
			}
		}
	case engine.KindAllowedMoves:
		out.AllowedMoves = make([]moveResponse, len(e.AllowedMoves))
		for i, m := range e.AllowedMoves {
			out.AllowedMoves[i] = toMoveResponse(m)
		}
	case engine.KindDrawOffer:
		out.MovedBy = sideLabel(e.MovedBy)
	}
	return out
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
		return "none"
	}
}

func conclusionLabel(c engine.Conclusion) string {
	switch c {
	case engine.Checkmate:
		return "checkmate"
	case engine.Resignation:
		return "resignation"
	case engine.OutOfTime:
		return "out_of_time"
	case engine.Stalemate:
		return "stalemate"
	case engine.ThreefoldRepetition:
		return "threefold_repetition"
	case engine.FiftyMoveRule:
		return "fifty_move_rule"
	case engine.AgreedDraw:
		return "agreed_draw"
	default:
		return "none"
	}
}
