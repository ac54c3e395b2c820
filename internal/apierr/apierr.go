// Package apierr implements the numeric error taxonomy of the Kasupel wire
// protocol: 4-digit codes grouped by family, generalized from the teacher's
// single free-text ErrorReason into the closed set the spec requires.
package apierr

import "net/http"

// Code is a 4-digit error code. Codes ending in 0 are sub-group labels and
// are never returned on the wire.
type Code int

const (
	// 1000 — accounts
	AccountNotFound       Code = 1001
	UsernameTaken         Code = 1111
	UsernameTooShort      Code = 1112
	UsernameInvalidChars  Code = 1113
	PasswordTooShort      Code = 1121
	PasswordTooWeak       Code = 1122
	PasswordPwned         Code = 1123
	PasswordTooLong       Code = 1124
	EmailInvalid          Code = 1131
	EmailTaken            Code = 1132
	EmailUnverified       Code = 1133
	VerificationExpired   Code = 1201
	VerificationWrongCode Code = 1202
	InvalidCredentials    Code = 1301
	SessionExpired        Code = 1302
	SessionNotFound       Code = 1303
	NotAuthenticated      Code = 1304
	AuthHeaderMalformed   Code = 1309
	NotificationNotFound  Code = 1401

	// 2000 — games
	GameNotFound        Code = 2001
	NotInvited          Code = 2111
	CannotInviteSelf    Code = 2121
	NotGameParticipant  Code = 2201
	GameAlreadyEnded    Code = 2202
	NotInProgress       Code = 2311
	NotYourTurn         Code = 2312
	InvalidMove         Code = 2313
	OpponentNotTimedOut Code = 2314
	NotADrawReason      Code = 2321
	DrawNotAvailable    Code = 2322

	// 3000 — malformed request
	ValueRequired     Code = 3101
	WrongParameters   Code = 3102
	BadEncryptedData  Code = 3103
	JSONSyntaxError   Code = 3111
	QueryParamInvalid Code = 3112
	PathParamInvalid  Code = 3113
	PageOutOfRange    Code = 3201
	UnknownURL        Code = 3301
	SocketAuthMissing Code = 3411
	SocketAuthInvalid Code = 3412
	SocketAuthExpired Code = 3413
	GameIDHeaderBad   Code = 3421

	// 4000 — internal
	Internal Code = 4001
	// 4100 - socket session tracking
	SocketSessionUnknown Code = 4101

	// 5000 — media
	MediaNotFound Code = 5001
)

// Error is a typed API error: a code, its HTTP status, and a human-readable
// reason. It implements error so it can travel through normal Go control
// flow before being rendered at the HTTP/socket boundary.
type Error struct {
	Code   Code
	Status int
	Reason string
}

func (e *Error) Error() string { return e.Reason }

// New constructs an Error. Handlers use the package-level helpers below for
// the common cases; New is for call sites that need a custom reason string.
func New(code Code, status int, reason string) *Error {
	return &Error{Code: code, Status: status, Reason: reason}
}

// JSON is the wire shape of an error response.
type JSON struct {
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

func (e *Error) JSON() JSON {
	return JSON{Code: int(e.Code), Reason: e.Reason}
}

var statusByCode = map[Code]int{
	AccountNotFound:       http.StatusNotFound,
	UsernameTaken:         http.StatusConflict,
	UsernameTooShort:      http.StatusBadRequest,
	UsernameInvalidChars:  http.StatusBadRequest,
	PasswordTooShort:      http.StatusBadRequest,
	PasswordTooWeak:       http.StatusBadRequest,
	PasswordPwned:         http.StatusBadRequest,
	PasswordTooLong:       http.StatusBadRequest,
	EmailInvalid:          http.StatusBadRequest,
	EmailTaken:            http.StatusConflict,
	EmailUnverified:       http.StatusForbidden,
	VerificationExpired:   http.StatusBadRequest,
	VerificationWrongCode: http.StatusBadRequest,
	InvalidCredentials:    http.StatusUnauthorized,
	SessionExpired:        http.StatusUnauthorized,
	SessionNotFound:       http.StatusUnauthorized,
	NotAuthenticated:      http.StatusUnauthorized,
	AuthHeaderMalformed:   http.StatusBadRequest,
	NotificationNotFound:  http.StatusNotFound,

	GameNotFound:        http.StatusNotFound,
	NotInvited:          http.StatusForbidden,
	CannotInviteSelf:    http.StatusBadRequest,
	NotGameParticipant:  http.StatusForbidden,
	GameAlreadyEnded:    http.StatusConflict,
	NotInProgress:       http.StatusConflict,
	NotYourTurn:         http.StatusConflict,
	InvalidMove:         http.StatusBadRequest,
	OpponentNotTimedOut: http.StatusConflict,
	NotADrawReason:      http.StatusBadRequest,
	DrawNotAvailable:    http.StatusConflict,

	ValueRequired:     http.StatusBadRequest,
	WrongParameters:   http.StatusBadRequest,
	BadEncryptedData:  http.StatusBadRequest,
	JSONSyntaxError:   http.StatusBadRequest,
	QueryParamInvalid: http.StatusBadRequest,
	PathParamInvalid:  http.StatusBadRequest,
	PageOutOfRange:    http.StatusBadRequest,
	UnknownURL:        http.StatusNotFound,
	SocketAuthMissing: http.StatusUnauthorized,
	SocketAuthInvalid: http.StatusUnauthorized,
	SocketAuthExpired: http.StatusUnauthorized,
	GameIDHeaderBad:   http.StatusBadRequest,

	Internal:             http.StatusInternalServerError,
	SocketSessionUnknown: http.StatusBadRequest,

	MediaNotFound: http.StatusNotFound,
}

var defaultReason = map[Code]string{
	AccountNotFound:       "account not found",
	UsernameTaken:         "username already taken",
	UsernameTooShort:      "username must be 1-32 printable characters",
	UsernameInvalidChars:  "username contains invalid characters",
	PasswordTooShort:      "password must be at least 10 characters",
	PasswordTooWeak:       "password must contain at least 6 unique characters",
	PasswordPwned:         "password appears in a known breach",
	PasswordTooLong:       "password must be at most 32 characters",
	EmailInvalid:          "email address is not valid",
	EmailTaken:            "email address already in use",
	EmailUnverified:       "email address is not verified",
	VerificationExpired:   "verification token has expired",
	VerificationWrongCode: "verification token is incorrect",
	InvalidCredentials:    "invalid username or password",
	SessionExpired:        "session has expired",
	SessionNotFound:       "session not found",
	NotAuthenticated:      "authentication required",
	AuthHeaderMalformed:   "authorization header is malformed",
	NotificationNotFound:  "notification not found",

	GameNotFound:        "game not found",
	NotInvited:          "no pending invitation for this user",
	CannotInviteSelf:    "cannot invite yourself",
	NotGameParticipant:  "user is not a participant in this game",
	GameAlreadyEnded:    "game has already ended",
	NotInProgress:       "game is not in progress",
	NotYourTurn:         "it is not your turn",
	InvalidMove:         "move is not legal",
	OpponentNotTimedOut: "opponent has not timed out",
	NotADrawReason:      "not a valid draw claim reason",
	DrawNotAvailable:    "draw claim is not available",

	ValueRequired:     "a required value was missing",
	WrongParameters:   "wrong parameters supplied",
	BadEncryptedData:  "encrypted payload could not be decrypted",
	JSONSyntaxError:   "request body has a JSON syntax error",
	QueryParamInvalid: "query parameter is invalid",
	PathParamInvalid:  "path parameter is invalid",
	PageOutOfRange:    "page is out of range",
	UnknownURL:        "unknown URL",
	SocketAuthMissing: "Authorization header is missing",
	SocketAuthInvalid: "Authorization header is invalid",
	SocketAuthExpired: "session has expired",
	GameIDHeaderBad:   "Game-ID header is malformed",

	Internal:             "internal server error",
	SocketSessionUnknown: "socket session is not known",

	MediaNotFound: "media not found",
}

// Of builds the canonical Error for a code, using its documented default
// reason and HTTP status.
func Of(code Code) *Error {
	return &Error{Code: code, Status: statusByCode[code], Reason: defaultReason[code]}
}

// Withf returns a copy of the canonical error for code with a more specific
// reason string, keeping the code/status the taxonomy assigns it.
func Withf(code Code, reason string) *Error {
	return &Error{Code: code, Status: statusByCode[code], Reason: reason}
}
