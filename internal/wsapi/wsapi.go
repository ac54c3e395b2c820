// Package wsapi is the socket transport of spec.md §6: one gorilla/websocket
// connection per (user, game), authenticated the same way the HTTP surface
// is (internal/session's "SessionKey <id>|<secret>" header), attached to its
// internal/hub.Room as one of the two sides, exchanging JSON command/event
// frames for as long as the connection lives. Grounded on
// rias-glitch-telegram-webapp's upgrade-then-register-then-pump shape and
// jonradoff-chessmata's websocket.Upgrader/readPump pattern, narrowed from
// "N clients per room" to this spec's fixed two-sided room (internal/hub
// already enforces that; this package only handles the transport).
package wsapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"kasupel/internal/apierr"
	"kasupel/internal/chessrules"
	"kasupel/internal/engine"
	"kasupel/internal/gamestore"
	"kasupel/internal/hub"
	"kasupel/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server handles the /ws upgrade.
type Server struct {
	Sessions *session.Store
	Games    *gamestore.Store
}

func New(sessions *session.Store, games *gamestore.Store) Server {
	return Server{Sessions: sessions, Games: games}
}

// Handle authenticates the upgrade request, resolves the named game and the
// caller's side in it, and pumps frames until the socket closes.
func (s Server) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return apierr.Of(apierr.SocketAuthMissing)
	}
	creds, err := session.ParseAuthHeader(header)
	if err != nil {
		return apierr.Of(apierr.SocketAuthInvalid)
	}
	userID, err := s.Sessions.Verify(ctx, creds.ID, creds.Secret)
	if err != nil {
		switch err {
		case session.ErrExpired:
			return apierr.Of(apierr.SocketAuthExpired)
		default:
			return apierr.Of(apierr.SocketAuthInvalid)
		}
	}

	gameID, err := strconv.ParseInt(c.Request().Header.Get("Game-ID"), 10, 64)
	if err != nil {
		return apierr.Of(apierr.GameIDHeaderBad)
	}
	room, err := s.Games.Open(ctx, gameID)
	if err != nil {
		return err
	}
	side, ok := room.SideFor(userID)
	if !ok {
		return apierr.Of(apierr.NotGameParticipant)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil // the upgrader already wrote its own HTTP error response
	}
	client := room.Register(userID, side, conn)
	defer room.Unregister(side, client)

	readPump(room, gameID, side, conn)
	return nil
}

// clientCommand is the inbound frame shape: an action name plus whichever
// of the optional fields that action needs.
type clientCommand struct {
	Action string          `json:"action"`
	Move   *wireMoveInput  `json:"move,omitempty"`
	Reason string          `json:"reason,omitempty"`
}

type wireMoveInput struct {
	StartRank int    `json:"start_rank"`
	StartFile int    `json:"start_file"`
	EndRank   int    `json:"end_rank"`
	EndFile   int    `json:"end_file"`
	Promotion string `json:"promotion,omitempty"`
}

func (m wireMoveInput) toMove() chessrules.Move {
	return chessrules.Move{
		StartRank: m.StartRank, StartFile: m.StartFile,
		EndRank: m.EndRank, EndFile: m.EndFile,
		Promotion: chessrules.PromotionFromLetter(m.Promotion),
	}
}

func (c clientCommand) drawReason() engine.DrawReason {
	switch c.Reason {
	case "threefold_repetition":
		return engine.ClaimThreefoldRepetition
	case "fifty_move_rule":
		return engine.ClaimFiftyMoveRule
	default:
		return engine.ClaimAgreedDraw
	}
}

// readPump blocks reading command frames off conn and dispatching them to
// room, until the connection errors or closes. The room's own command loop
// (internal/hub.Room.run) still serializes every mutation; this just
// translates frames to calls and calls back with each one's ack.
func readPump(room *hub.Room, gameID int64, side chessrules.Side, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd clientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			writeError(conn, apierr.Of(apierr.JSONSyntaxError))
			continue
		}
		outcome, dispatchErr := dispatch(room, side, cmd)
		if dispatchErr != nil {
			writeError(conn, dispatchErr)
			continue
		}
		if ev, ok := hub.RequesterEvent(outcome); ok {
			writeJSON(conn, hub.EncodeEvent(gameID, ev))
		}
	}
}

func dispatch(room *hub.Room, side chessrules.Side, cmd clientCommand) (engine.Outcome, error) {
	switch cmd.Action {
	case "move":
		if cmd.Move == nil {
			return engine.Outcome{}, apierr.Of(apierr.WrongParameters)
		}
		return room.Move(side, cmd.Move.toMove())
	case "offer_draw":
		return room.OfferDraw(side)
	case "claim_draw":
		return room.ClaimDraw(side, cmd.drawReason())
	case "resign":
		return room.Resign(side)
	case "allowed_moves":
		return room.AllowedMoves(side)
	case "game_state":
		ev, err := room.GameState()
		if err != nil {
			return engine.Outcome{}, err
		}
		return engine.Outcome{Events: []engine.RoutedEvent{{To: engine.ToRequester, Event: ev}}}, nil
	case "timeout":
		return room.AssertTimeout()
	default:
		return engine.Outcome{}, apierr.Of(apierr.WrongParameters)
	}
}

func writeJSON(conn *websocket.Conn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

func writeError(conn *websocket.Conn, err error) {
	apiErr, ok := err.(*apierr.Error)
	if !ok {
		apiErr = apierr.Of(apierr.Internal)
	}
	writeJSON(conn, struct {
		Event string     `json:"event"`
		Error apierr.JSON `json:"error"`
	}{Event: "error", Error: apiErr.JSON()})
}
