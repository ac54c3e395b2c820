// Package httpapi is the HTTP transport of spec.md §6: echo.v4 handlers
// over internal/accounts, internal/matchmaker, internal/gamestore and
// internal/notify, wrapping every component error in the apierr wire
// format. Grounded on the teacher's server.Server/RegisterRoutes shape
// (server/server.go, server/routes.go), with JWT's Bearer-header
// middleware replaced by internal/session's opaque SessionKey header (see
// DESIGN.md).
package httpapi

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"kasupel/internal/accounts"
	"kasupel/internal/db"
	"kasupel/internal/envelope"
	"kasupel/internal/gamestore"
	"kasupel/internal/matchmaker"
	"kasupel/internal/notify"
	"kasupel/internal/session"
	"kasupel/internal/wsapi"
)

// Server holds every component handlers need, exactly the teacher's
// Server{DB, SQL, JwtSecret, GameStorage} grouping generalized to this
// spec's component set.
type Server struct {
	Accounts    *accounts.Service
	Sessions    *session.Store
	Matchmaker  *matchmaker.Matchmaker
	Games       *gamestore.Store
	DB          *db.Queries
	Notify      *notify.Queue
	Envelope    *envelope.KeyPair
}

// New builds the echo.Echo instance and registers every route.
func New(s Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.HTTPErrorHandler = errorHandler

	e.GET("/docs/*", echoSwagger.WrapHandler)

	ws := wsapi.New(s.Sessions, s.Games)
	e.GET("/ws", ws.Handle)

	e.POST("/accounts", s.registerAccount)
	e.POST("/accounts/login", s.login)
	e.GET("/accounts/leaderboard", s.leaderboard)
	e.GET("/accounts/verify_email", s.verifyEmail)
	e.GET("/accounts/account", s.accountByID)
	e.GET("/users/:username", s.accountByUsername)

	e.GET("/rsa_key", s.publicKey)

	e.GET("/games/completed", s.listCompleted)

	authed := e.Group("")
	authed.Use(s.sessionMiddleware)

	authed.POST("/accounts/logout", s.logout)
	authed.GET("/accounts/me", s.me)
	authed.PATCH("/accounts/me", s.updateProfile)
	authed.DELETE("/accounts/me", s.deleteAccount)
	authed.GET("/accounts/resend_verification_email", s.resendVerificationEmail)

	authed.GET("/notifications", s.listNotifications)
	authed.GET("/notifications/unread-count", s.unreadNotificationCount)
	authed.POST("/notifications/:id/ack", s.ackNotification)

	authed.POST("/games/find", s.find)
	authed.POST("/games/find/cancel", s.cancelFind)
	authed.POST("/games/invitations", s.sendInvitation)
	authed.POST("/games/invitations/:id/accept", s.acceptInvitation)
	authed.POST("/games/invitations/:id/decline", s.declineInvitation)
	authed.GET("/games/invites", s.listInvites)
	authed.GET("/games/searches", s.listSearches)
	authed.GET("/games/ongoing", s.listOngoing)
	authed.GET("/games/common_completed", s.listCommonCompleted)

	game := authed.Group("/games/:id")
	game.GET("", s.gameState)

	return e
}

func logInternal(err error) {
	if err != nil {
		slog.Error("httpapi: internal error", "error", err)
	}
}
