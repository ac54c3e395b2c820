package httpapi

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"kasupel/internal/apierr"
	"kasupel/internal/session"
)

const (
	userIDContextKey    = "user_id"
	sessionIDContextKey = "session_id"
)

// sessionMiddleware requires a valid "Authorization: SessionKey <id>|<secret>"
// header (internal/session.ParseAuthHeader), shared verbatim with the
// socket transport per DESIGN.md's Open Question resolution.
func (s Server) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			return apierr.Of(apierr.NotAuthenticated)
		}
		creds, err := session.ParseAuthHeader(header)
		if err != nil {
			return apierr.Of(apierr.AuthHeaderMalformed)
		}
		userID, err := s.Sessions.Verify(c.Request().Context(), creds.ID, creds.Secret)
		if err != nil {
			switch err {
			case session.ErrExpired:
				return apierr.Of(apierr.SessionExpired)
			case session.ErrNotFound:
				return apierr.Of(apierr.SessionNotFound)
			default:
				return apierr.Of(apierr.AuthHeaderMalformed)
			}
		}
		c.Set(userIDContextKey, userID)
		c.Set(sessionIDContextKey, creds.ID)
		return next(c)
	}
}

func authedUserID(c echo.Context) int64 {
	return c.Get(userIDContextKey).(int64)
}

func authedSessionID(c echo.Context) string {
	return c.Get(sessionIDContextKey).(string)
}

// pageParam parses the "page" query parameter, defaulting to 0.
func pageParam(c echo.Context) (int, error) {
	raw := c.QueryParam("page")
	if raw == "" {
		return 0, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 0 {
		return 0, apierr.Of(apierr.QueryParamInvalid)
	}
	return page, nil
}

// idQueryParam parses a required "id" query parameter as an int64.
func idQueryParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.QueryParam("id"), 10, 64)
	if err != nil {
		return 0, apierr.Of(apierr.QueryParamInvalid)
	}
	return id, nil
}

// accountQueryParam parses a required "account" query parameter as an
// int64 user id (spec.md §6's `?account=` games listing filters).
func accountQueryParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.QueryParam("account"), 10, 64)
	if err != nil {
		return 0, apierr.Of(apierr.QueryParamInvalid)
	}
	return id, nil
}
