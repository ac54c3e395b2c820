package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"kasupel/internal/apierr"
	"kasupel/internal/notify"
)

type notificationResponse struct {
	ID     string `json:"id"`
	SentAt int64  `json:"sent_at"`
	Type   string `json:"type"`
	GameID *int64 `json:"game_id,omitempty"`
	Read   bool   `json:"read"`
}

func toNotificationResponse(n notify.Notification) notificationResponse {
	return notificationResponse{
		ID: n.ID, SentAt: n.SentAt.Unix(), Type: string(n.Type), GameID: n.GameID, Read: n.Read,
	}
}

type notificationPage struct {
	Items []notificationResponse `json:"items"`
	Page  int                    `json:"page"`
	Pages int                    `json:"pages"`
}

func (s Server) listNotifications(c echo.Context) error {
	page, err := pageParam(c)
	if err != nil {
		return err
	}
	rows, pages, err := s.Notify.List(c.Request().Context(), authedUserID(c), page)
	if err != nil {
		return err
	}
	if page > 0 && page >= pages {
		return apierr.Of(apierr.PageOutOfRange)
	}
	out := make([]notificationResponse, len(rows))
	for i, n := range rows {
		out[i] = toNotificationResponse(n)
	}
	return c.JSON(http.StatusOK, notificationPage{Items: out, Page: page, Pages: pages})
}

func (s Server) unreadNotificationCount(c echo.Context) error {
	n, err := s.Notify.UnreadCount(c.Request().Context(), authedUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"unread": n})
}

func (s Server) ackNotification(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return apierr.Of(apierr.PathParamInvalid)
	}
	if err := s.Notify.Ack(c.Request().Context(), authedUserID(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
