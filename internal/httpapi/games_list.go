package httpapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"kasupel/internal/db"
	"kasupel/internal/engine"
	"kasupel/internal/pagination"
)

// gameSummary is the "referenced" flavour of a game (spec.md §6: users
// appear by id, resolved via a parallel users array) used by every list
// endpoint below. GET /games/<id> instead renders the live engine.Event
// via internal/httpapi/games.go's gameState, for a single game already
// open in the hub; that response carries no user objects or user ids.
type gameSummary struct {
	ID                   int64  `json:"id"`
	Mode                 int    `json:"mode"`
	HostID               int64  `json:"host_id"`
	AwayID               *int64 `json:"away_id,omitempty"`
	InvitedID            *int64 `json:"invited_id,omitempty"`
	MainThinkingTime     int    `json:"main_thinking_time"`
	FixedExtraTime       int    `json:"fixed_extra_time"`
	TimeIncrementPerTurn int    `json:"time_increment_per_turn"`
	OpenedAt             int64  `json:"opened_at"`
	StartedAt            *int64 `json:"started_at,omitempty"`
	EndedAt              *int64 `json:"ended_at,omitempty"`
	Winner               string `json:"winner,omitempty"`
	Conclusion           string `json:"conclusion,omitempty"`
}

func toGameSummary(g db.Game) gameSummary {
	return gameSummary{
		ID: g.ID, Mode: int(g.Mode), HostID: g.HostID, AwayID: g.AwayID, InvitedID: g.InvitedID,
		MainThinkingTime: int(g.MainThinkingTime), FixedExtraTime: int(g.FixedExtraTime),
		TimeIncrementPerTurn: int(g.TimeIncrementPerTurn),
		OpenedAt:             g.OpenedAt, StartedAt: g.StartedAt, EndedAt: g.EndedAt,
		Winner:     winnerLabel(engine.Winner(g.Winner)),
		Conclusion: conclusionLabel(engine.Conclusion(g.Conclusion)),
	}
}

type gameListResponse struct {
	Items []gameSummary     `json:"items"`
	Users []accountResponse `json:"users"`
	Page  int               `json:"page"`
	Pages int               `json:"pages"`
}

// referencedUsers resolves every distinct host/away/invited id across games
// into the parallel users array spec.md §6's "referenced" flavour requires.
func (s Server) referencedUsers(ctx context.Context, games []db.Game) ([]accountResponse, error) {
	seen := make(map[int64]struct{})
	var ids []int64
	add := func(id int64) {
		if id == 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, g := range games {
		add(g.HostID)
		if g.AwayID != nil {
			add(*g.AwayID)
		}
		if g.InvitedID != nil {
			add(*g.InvitedID)
		}
	}
	out := make([]accountResponse, 0, len(ids))
	for _, id := range ids {
		acct, err := s.Accounts.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, toAccountResponse(acct))
	}
	return out, nil
}

func (s Server) gameListPage(c echo.Context, games []db.Game, total int64, page int) error {
	if err := pagination.Validate(page, total); err != nil {
		return err
	}
	users, err := s.referencedUsers(c.Request().Context(), games)
	if err != nil {
		return err
	}
	items := make([]gameSummary, len(games))
	for i, g := range games {
		items[i] = toGameSummary(g)
	}
	return c.JSON(http.StatusOK, gameListResponse{Items: items, Users: users, Page: page, Pages: pagination.Pages(total)})
}

// listInvites serves spec.md §6's `GET /games/invites [A][P]`: every
// pending invitation addressed to the caller.
func (s Server) listInvites(c echo.Context) error {
	page, err := pageParam(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	userID := authedUserID(c)
	total, err := s.DB.CountInvites(ctx, userID)
	if err != nil {
		return err
	}
	games, err := s.DB.ListInvites(ctx, userID, pagination.Size, int64(page)*pagination.Size)
	if err != nil {
		return err
	}
	return s.gameListPage(c, games, total, page)
}

// listSearches serves spec.md §6's `GET /games/searches [A][P]`: the
// caller's own Searching-state games still waiting for an opponent.
func (s Server) listSearches(c echo.Context) error {
	page, err := pageParam(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	userID := authedUserID(c)
	total, err := s.DB.CountSearches(ctx, userID)
	if err != nil {
		return err
	}
	games, err := s.DB.ListSearches(ctx, userID, pagination.Size, int64(page)*pagination.Size)
	if err != nil {
		return err
	}
	return s.gameListPage(c, games, total, page)
}

// listOngoing serves spec.md §6's `GET /games/ongoing [A][P]`: every
// Started, not-yet-Finished game the caller is playing.
func (s Server) listOngoing(c echo.Context) error {
	page, err := pageParam(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	userID := authedUserID(c)
	total, err := s.DB.CountOngoing(ctx, userID)
	if err != nil {
		return err
	}
	games, err := s.DB.ListOngoing(ctx, userID, pagination.Size, int64(page)*pagination.Size)
	if err != nil {
		return err
	}
	return s.gameListPage(c, games, total, page)
}

// listCompleted serves spec.md §6's `GET /games/completed?account= [P]`:
// unauthenticated, any caller can browse a given account's finished games.
func (s Server) listCompleted(c echo.Context) error {
	page, err := pageParam(c)
	if err != nil {
		return err
	}
	account, err := accountQueryParam(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	total, err := s.DB.CountCompleted(ctx, account)
	if err != nil {
		return err
	}
	games, err := s.DB.ListCompleted(ctx, account, pagination.Size, int64(page)*pagination.Size)
	if err != nil {
		return err
	}
	return s.gameListPage(c, games, total, page)
}

// listCommonCompleted serves spec.md §6's
// `GET /games/common_completed?account= [A][P]`: games finished between
// the caller and the named account.
func (s Server) listCommonCompleted(c echo.Context) error {
	page, err := pageParam(c)
	if err != nil {
		return err
	}
	account, err := accountQueryParam(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	userID := authedUserID(c)
	total, err := s.DB.CountCommonCompleted(ctx, userID, account)
	if err != nil {
		return err
	}
	games, err := s.DB.ListCommonCompleted(ctx, userID, account, pagination.Size, int64(page)*pagination.Size)
	if err != nil {
		return err
	}
	return s.gameListPage(c, games, total, page)
}
