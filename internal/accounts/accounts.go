// Package accounts is the user lifecycle of spec.md §4.7/§3: registration,
// login/logout, profile updates and deletion. Validation is generalized
// from the teacher's usersHelpers.go (ValidateUsername/ValidatePassword)
// into spec.md's wider rules; password storage is bcrypt, same as the
// teacher (server/users.go), over opaque sessions instead of the teacher's
// signed API keys (see internal/session and DESIGN.md).
package accounts

import (
	"context"
	"crypto/rand"
	"fmt"
	"regexp"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"kasupel/internal/apierr"
	"kasupel/internal/db"
	"kasupel/internal/notify"
	"kasupel/internal/session"
)

var nowFunc = time.Now

var usernameRegex = regexp.MustCompile(`^[\x21-\x7e]+$`) // printable ASCII, no whitespace

const (
	minUsernameLen = 1
	maxUsernameLen = 32
	minPasswordLen = 10
	maxPasswordLen = 32
	minPasswordUniqueChars = 6
	defaultElo    = 1000
)

// HIBPChecker reports whether a password appears in a known breach corpus
// (spec.md §4.7's "password must not appear in a known breach"). Out of
// scope to actually call a breach-check API (see SPEC_FULL.md §1) —
// NoopHIBPChecker below satisfies it without ever rejecting a password.
type HIBPChecker interface {
	Pwned(ctx context.Context, password string) (bool, error)
}

type NoopHIBPChecker struct{}

func (NoopHIBPChecker) Pwned(context.Context, string) (bool, error) { return false, nil }

// Mailer sends the verification email spec.md §4.7 requires on signup.
// Out of scope to actually deliver mail — NoopMailer logs nothing and
// always succeeds, matching SPEC_FULL.md §1's out-of-scope email delivery.
type Mailer interface {
	SendVerification(ctx context.Context, email, token string) error
}

type NoopMailer struct{}

func (NoopMailer) SendVerification(context.Context, string, string) error { return nil }

// Service is the accounts component.
type Service struct {
	queries  *db.Queries
	sessions *session.Store
	notify   *notify.Queue
	hibp     HIBPChecker
	mailer   Mailer
}

func New(queries *db.Queries, sessions *session.Store, notifications *notify.Queue, hibp HIBPChecker, mailer Mailer) *Service {
	if hibp == nil {
		hibp = NoopHIBPChecker{}
	}
	if mailer == nil {
		mailer = NoopMailer{}
	}
	return &Service{queries: queries, sessions: sessions, notify: notifications, hibp: hibp, mailer: mailer}
}

// ValidateUsername enforces spec.md §4.7's username rules: 1-32 printable
// characters, no whitespace.
func ValidateUsername(username string) error {
	n := len([]rune(username))
	if n < minUsernameLen {
		return apierr.Of(apierr.UsernameTooShort)
	}
	if n > maxUsernameLen {
		return apierr.Of(apierr.UsernameTooShort)
	}
	if !usernameRegex.MatchString(username) {
		return apierr.Of(apierr.UsernameInvalidChars)
	}
	return nil
}

// ValidatePassword enforces length and uniqueness-of-characters rules.
// Breach checking is a separate step (Service.checkPassword) since it needs
// the HIBPChecker collaborator.
func ValidatePassword(password string) error {
	n := len([]rune(password))
	if n < minPasswordLen {
		return apierr.Of(apierr.PasswordTooShort)
	}
	if n > maxPasswordLen {
		return apierr.Of(apierr.PasswordTooLong)
	}
	seen := make(map[rune]struct{})
	for _, r := range password {
		seen[unicode.ToLower(r)] = struct{}{}
	}
	if len(seen) < minPasswordUniqueChars {
		return apierr.Of(apierr.PasswordTooWeak)
	}
	return nil
}

func (s *Service) checkPassword(ctx context.Context, password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	pwned, err := s.hibp.Pwned(ctx, password)
	if err != nil {
		return fmt.Errorf("accounts: check breach corpus: %w", err)
	}
	if pwned {
		return apierr.Of(apierr.PasswordPwned)
	}
	return nil
}

// Account is the accounts-facing view of a user row.
type Account struct {
	ID            int64
	Username      string
	Email         string
	EmailVerified bool
	Elo           int
}

// Register creates a new account, sends a verification email, and returns
// the new Account.
func (s *Service) Register(ctx context.Context, username, password, email string) (Account, error) {
	if err := ValidateUsername(username); err != nil {
		return Account{}, err
	}
	if err := s.checkPassword(ctx, password); err != nil {
		return Account{}, err
	}
	if !emailLooksValid(email) {
		return Account{}, apierr.Of(apierr.EmailInvalid)
	}
	if _, err := s.queries.GetUserByUsername(ctx, username); err == nil {
		return Account{}, apierr.Of(apierr.UsernameTaken)
	} else if !db.IsNoRows(err) {
		return Account{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, fmt.Errorf("accounts: hash password: %w", err)
	}
	token := newVerificationToken()
	row, err := s.queries.CreateUser(ctx, db.CreateUserParams{
		Username:          username,
		PasswordHash:      string(hash),
		Email:             email,
		VerificationToken: token,
		CreatedAt:         nowFunc().Unix(),
	})
	if err != nil {
		return Account{}, err
	}
	if err := s.mailer.SendVerification(ctx, email, token); err != nil {
		return Account{}, fmt.Errorf("accounts: send verification: %w", err)
	}
	if s.notify != nil {
		_, _ = s.notify.Enqueue(ctx, row.ID, notify.AccountsWelcome, nil)
	}
	return Account{ID: row.ID, Username: username, Email: email, Elo: int(row.Elo)}, nil
}

// VerifyEmail redeems a signup verification token by username, spec.md
// §6's `GET /accounts/verify_email` being reachable while logged out (a
// fresh signup clicking the link in their inbox has no session yet).
func (s *Service) VerifyEmail(ctx context.Context, username, token string) error {
	row, err := s.queries.GetUserByUsername(ctx, username)
	if err != nil {
		if db.IsNoRows(err) {
			return apierr.Of(apierr.AccountNotFound)
		}
		return err
	}
	if row.VerificationToken != token {
		return apierr.Of(apierr.VerificationWrongCode)
	}
	return s.queries.VerifyUserEmail(ctx, row.ID)
}

// ResendVerification regenerates and re-sends the signup verification
// token for an already-authenticated, not-yet-verified account.
func (s *Service) ResendVerification(ctx context.Context, userID int64) error {
	row, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return apierr.Of(apierr.AccountNotFound)
		}
		return err
	}
	if row.EmailVerified {
		return nil
	}
	token := newVerificationToken()
	var avatar *string
	if row.AvatarBlobID != nil {
		avatar = row.AvatarBlobID
	}
	if err := s.queries.UpdateUser(ctx, db.UpdateUserParams{
		ID: row.ID, PasswordHash: row.PasswordHash, Email: row.Email,
		AvatarBlobID: avatar, EmailVerified: false, VerificationToken: token,
	}); err != nil {
		return err
	}
	return s.mailer.SendVerification(ctx, row.Email, token)
}

// UpdateProfile applies an optional password/email/avatar change to an
// authenticated account (spec.md §6's `PATCH /accounts/me [A][E]`).
// Changing the email re-triggers verification, clearing EmailVerified and
// issuing a fresh token the way Register does on signup.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, newPassword, newEmail, newAvatarBlobID *string) (Account, error) {
	row, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return Account{}, apierr.Of(apierr.AccountNotFound)
		}
		return Account{}, err
	}

	params := db.UpdateUserParams{
		ID: row.ID, PasswordHash: row.PasswordHash, Email: row.Email,
		AvatarBlobID: row.AvatarBlobID, EmailVerified: row.EmailVerified,
		VerificationToken: row.VerificationToken,
	}
	if newPassword != nil {
		if err := s.checkPassword(ctx, *newPassword); err != nil {
			return Account{}, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*newPassword), bcrypt.DefaultCost)
		if err != nil {
			return Account{}, fmt.Errorf("accounts: hash password: %w", err)
		}
		params.PasswordHash = string(hash)
	}
	if newAvatarBlobID != nil {
		params.AvatarBlobID = newAvatarBlobID
	}
	emailChanged := newEmail != nil && *newEmail != row.Email
	if emailChanged {
		if !emailLooksValid(*newEmail) {
			return Account{}, apierr.Of(apierr.EmailInvalid)
		}
		params.Email = *newEmail
		params.EmailVerified = false
		params.VerificationToken = newVerificationToken()
	}

	if err := s.queries.UpdateUser(ctx, params); err != nil {
		return Account{}, err
	}
	if emailChanged {
		if err := s.mailer.SendVerification(ctx, params.Email, params.VerificationToken); err != nil {
			return Account{}, fmt.Errorf("accounts: send verification: %w", err)
		}
	}
	return Account{ID: row.ID, Username: row.Username, Email: params.Email, EmailVerified: params.EmailVerified, Elo: int(row.Elo)}, nil
}

// GetByUsername fetches an account by username, for spec.md §6's
// `GET /users/<username>`.
func (s *Service) GetByUsername(ctx context.Context, username string) (Account, error) {
	row, err := s.queries.GetUserByUsername(ctx, username)
	if err != nil {
		if db.IsNoRows(err) {
			return Account{}, apierr.Of(apierr.AccountNotFound)
		}
		return Account{}, err
	}
	return Account{ID: row.ID, Username: row.Username, Email: row.Email, EmailVerified: row.EmailVerified, Elo: int(row.Elo)}, nil
}

// Login verifies credentials and issues a session.
func (s *Service) Login(ctx context.Context, username, password string) (session.Created, Account, error) {
	row, err := s.queries.GetUserByUsername(ctx, username)
	if err != nil {
		if db.IsNoRows(err) {
			return session.Created{}, Account{}, apierr.Of(apierr.InvalidCredentials)
		}
		return session.Created{}, Account{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)) != nil {
		return session.Created{}, Account{}, apierr.Of(apierr.InvalidCredentials)
	}
	created, err := s.sessions.Create(ctx, row.ID)
	if err != nil {
		return session.Created{}, Account{}, err
	}
	return created, Account{ID: row.ID, Username: row.Username, Email: row.Email, EmailVerified: row.EmailVerified, Elo: int(row.Elo)}, nil
}

// Logout destroys a session.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Destroy(ctx, sessionID)
}

// Get fetches an account by id.
func (s *Service) Get(ctx context.Context, userID int64) (Account, error) {
	row, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return Account{}, apierr.Of(apierr.AccountNotFound)
		}
		return Account{}, err
	}
	return Account{ID: row.ID, Username: row.Username, Email: row.Email, EmailVerified: row.EmailVerified, Elo: int(row.Elo)}, nil
}

// Leaderboard lists accounts ordered by descending ELO, paginated.
func (s *Service) Leaderboard(ctx context.Context, page int) ([]Account, int64, error) {
	total, err := s.queries.CountUsers(ctx)
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.queries.ListUsersByElo(ctx, 100, int64(page)*100)
	if err != nil {
		return nil, 0, err
	}
	out := make([]Account, len(rows))
	for i, r := range rows {
		out[i] = Account{ID: r.ID, Username: r.Username, Email: r.Email, EmailVerified: r.EmailVerified, Elo: int(r.Elo)}
	}
	return out, total, nil
}

// Delete removes an account. The caller (internal/httpapi) is responsible
// for checking userID matches the authenticated session.
func (s *Service) Delete(ctx context.Context, userID int64) error {
	return s.queries.DeleteUser(ctx, userID)
}

func emailLooksValid(email string) bool {
	at := -1
	for i, r := range email {
		if r == '@' {
			if at != -1 {
				return false
			}
			at = i
		}
	}
	return at > 0 && at < len(email)-1
}

// newVerificationToken generates the 6-character code spec.md §6's
// `GET /accounts/verify_email` expects a user to copy out of their inbox.
func newVerificationToken() string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	raw := make([]byte, 6)
	_, _ = rand.Read(raw)
	out := make([]byte, len(raw))
	for i, b := range raw {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out)
}
