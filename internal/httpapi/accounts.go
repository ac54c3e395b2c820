package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"kasupel/internal/accounts"
	"kasupel/internal/apierr"
	"kasupel/internal/pagination"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type accountResponse struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Elo           int    `json:"elo"`
}

func toAccountResponse(a accounts.Account) accountResponse {
	return accountResponse{
		ID: a.ID, Username: a.Username, Email: a.Email,
		EmailVerified: a.EmailVerified, Elo: a.Elo,
	}
}

// registerAccount creates a new account.
//
//	@Summary	Register a new account
//	@Tags		accounts
//	@Accept		json
//	@Produce	json
//	@Param		payload	body		registerRequest	true	"New account"
//	@Success	201		{object}	accountResponse
//	@Router		/accounts [post]
func (s Server) registerAccount(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return apierr.Of(apierr.JSONSyntaxError)
	}
	acct, err := s.Accounts.Register(c.Request().Context(), req.Username, req.Password, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toAccountResponse(acct))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	SessionID string          `json:"session_id"`
	Secret    string          `json:"secret"`
	Account   accountResponse `json:"account"`
}

// login authenticates and issues a session.
//
//	@Summary	Log in
//	@Tags		accounts
//	@Accept		json
//	@Produce	json
//	@Param		payload	body		loginRequest	true	"Credentials"
//	@Success	200		{object}	loginResponse
//	@Router		/accounts/login [post]
func (s Server) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apierr.Of(apierr.JSONSyntaxError)
	}
	created, acct, err := s.Accounts.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse{
		SessionID: created.ID, Secret: created.Secret, Account: toAccountResponse(acct),
	})
}

func (s Server) logout(c echo.Context) error {
	if err := s.Accounts.Logout(c.Request().Context(), authedSessionID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s Server) me(c echo.Context) error {
	acct, err := s.Accounts.Get(c.Request().Context(), authedUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(acct))
}

func (s Server) deleteAccount(c echo.Context) error {
	if err := s.Accounts.Delete(c.Request().Context(), authedUserID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// verifyEmail redeems a signup verification link, unauthenticated: the
// account that just registered has no session yet when it clicks the link
// in its inbox (spec.md §6's `GET /accounts/verify_email`).
func (s Server) verifyEmail(c echo.Context) error {
	username := c.QueryParam("username")
	token := c.QueryParam("token")
	if username == "" || token == "" {
		return apierr.Of(apierr.ValueRequired)
	}
	if err := s.Accounts.VerifyEmail(c.Request().Context(), username, token); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// resendVerificationEmail reissues and resends the caller's signup
// verification token.
func (s Server) resendVerificationEmail(c echo.Context) error {
	if err := s.Accounts.ResendVerification(c.Request().Context(), authedUserID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type updateProfileRequest struct {
	Password     *string `json:"password,omitempty"`
	Email        *string `json:"email,omitempty"`
	AvatarBlobID *string `json:"avatar_blob_id,omitempty"`
}

// updateProfile applies an optional password/email/avatar change (spec.md
// §6's `PATCH /accounts/me [A][E]`). Decryption of the [E]-marked envelope
// body is out of scope (see DESIGN.md); the JSON body is read directly.
func (s Server) updateProfile(c echo.Context) error {
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return apierr.Of(apierr.JSONSyntaxError)
	}
	acct, err := s.Accounts.UpdateProfile(c.Request().Context(), authedUserID(c), req.Password, req.Email, req.AvatarBlobID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(acct))
}

// accountByID looks a single account up by id query parameter (spec.md
// §6's `GET /accounts/account?id=`).
func (s Server) accountByID(c echo.Context) error {
	id, err := idQueryParam(c)
	if err != nil {
		return err
	}
	acct, err := s.Accounts.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(acct))
}

// accountByUsername implements spec.md §6's `GET /users/<username>`.
func (s Server) accountByUsername(c echo.Context) error {
	acct, err := s.Accounts.GetByUsername(c.Request().Context(), c.Param("username"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(acct))
}

// leaderboard paginates accounts by descending ELO.
func (s Server) leaderboard(c echo.Context) error {
	page, err := pageParam(c)
	if err != nil {
		return err
	}
	accts, total, err := s.Accounts.Leaderboard(c.Request().Context(), page)
	if err != nil {
		return err
	}
	if err := pagination.Validate(page, total); err != nil {
		return err
	}
	out := make([]accountResponse, len(accts))
	for i, a := range accts {
		out[i] = toAccountResponse(a)
	}
	return c.JSON(http.StatusOK, pagination.Page[accountResponse]{Items: out, Page: page, Pages: pagination.Pages(total)})
}
