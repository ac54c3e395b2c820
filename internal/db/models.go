// Package db is the persistence layer, hand-written in the shape a sqlc
// generation of schema.sql would produce (the teacher's db.Queries/db.User
// pattern referenced throughout server/*.go) — the generated package itself
// wasn't part of the retrieval pack, so it is authored directly here in the
// same idiom: one typed struct per table, one method per query, ctx-first.
package db

// User mirrors the users table.
type User struct {
	ID                int64
	Username          string
	PasswordHash      string
	Email             string
	EmailVerified     bool
	VerificationToken string
	AvatarBlobID      *string
	Elo               int64
	CreatedAt         int64
}

// Session mirrors the sessions table.
type Session struct {
	ID        string
	UserID    int64
	TokenHash string
	ExpiresAt int64
}

// Notification mirrors the notifications table.
type Notification struct {
	ID        string
	UserID    int64
	SentAt    int64
	TypeCode  string
	GameID    *int64
	Read      bool
}

// Game mirrors the games table.
type Game struct {
	ID                   int64
	Mode                 int64
	HostID               int64
	AwayID               *int64
	InvitedID            *int64
	MainThinkingTime     int64
	FixedExtraTime       int64
	TimeIncrementPerTurn int64
	HostTime             int64
	AwayTime             int64
	HostOfferingDraw     bool
	AwayOfferingDraw     bool
	CurrentTurn          int64
	TurnNumber           int64
	BoardFEN             string
	PositionHistory      string // JSON array of hex-encoded 128-bit fingerprints
	HalfmoveClock        int64
	Winner               int64
	Conclusion           int64
	OpenedAt             int64
	StartedAt            *int64
	LastTurn             *int64
	EndedAt              *int64
}
