package apierr_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"kasupel/internal/apierr"
)

func TestOfFillsStatusAndReasonFromTaxonomy(t *testing.T) {
	err := apierr.Of(apierr.InvalidMove)
	assert.Equal(t, apierr.InvalidMove, err.Code)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "move is not legal", err.Reason)
	assert.Equal(t, "move is not legal", err.Error())
}

func TestWithfKeepsCodeAndStatusButOverridesReason(t *testing.T) {
	err := apierr.Withf(apierr.DrawNotAvailable, "opponent has not offered a draw")
	assert.Equal(t, apierr.DrawNotAvailable, err.Code)
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.Equal(t, "opponent has not offered a draw", err.Reason)
}

func TestJSONRendersCodeAsInt(t *testing.T) {
	err := apierr.Of(apierr.SessionExpired)
	j := err.JSON()
	assert.Equal(t, 1302, j.Code)
	assert.Equal(t, "session has expired", j.Reason)
}

func TestEveryCodeHasAStatusAndReason(t *testing.T) {
	codes := []apierr.Code{
		apierr.AccountNotFound, apierr.UsernameTaken, apierr.UsernameTooShort,
		apierr.UsernameInvalidChars, apierr.PasswordTooShort, apierr.PasswordTooWeak,
		apierr.PasswordPwned, apierr.PasswordTooLong, apierr.EmailInvalid,
		apierr.EmailTaken, apierr.EmailUnverified, apierr.VerificationExpired,
		apierr.VerificationWrongCode, apierr.InvalidCredentials, apierr.SessionExpired,
		apierr.SessionNotFound, apierr.NotAuthenticated, apierr.AuthHeaderMalformed,
		apierr.NotificationNotFound, apierr.GameNotFound, apierr.NotInvited,
		apierr.CannotInviteSelf, apierr.NotGameParticipant, apierr.GameAlreadyEnded,
		apierr.NotInProgress, apierr.NotYourTurn, apierr.InvalidMove,
		apierr.OpponentNotTimedOut, apierr.NotADrawReason, apierr.DrawNotAvailable,
		apierr.ValueRequired, apierr.WrongParameters, apierr.BadEncryptedData,
		apierr.JSONSyntaxError, apierr.QueryParamInvalid, apierr.PathParamInvalid,
		apierr.PageOutOfRange, apierr.UnknownURL, apierr.SocketAuthMissing,
		apierr.SocketAuthInvalid, apierr.SocketAuthExpired, apierr.GameIDHeaderBad,
		apierr.Internal, apierr.SocketSessionUnknown, apierr.MediaNotFound,
	}
	for _, code := range codes {
		err := apierr.Of(code)
		assert.NotZero(t, err.Status, "code %d missing an HTTP status", code)
		assert.NotEmpty(t, err.Reason, "code %d missing a default reason", code)
	}
}
