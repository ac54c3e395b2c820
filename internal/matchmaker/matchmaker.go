// Package matchmaker is the find/invite rendezvous of spec.md §4.4: pairing
// two users on a compatible time-control profile, or letting one user
// invite another by name. Grounded on the teacher's server/game/storage.go
// (a map guarded by sync.RWMutex, keyed by a short id) generalized from "one
// match, one key" into "one FIFO queue per matching profile", and on
// mathiasfk-memory-game's Matchmaker (waiting map + notify channel pairing
// loop), here made synchronous: Find either pairs immediately under the
// lock or enqueues, instead of blocking on a channel.
package matchmaker

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"kasupel/internal/apierr"
	"kasupel/internal/notify"
)

// Profile is the time-control a Find request is willing to match on.
// Two users only pair when their profiles are identical, per spec.md §4.4.
type Profile struct {
	Mode                 int
	MainThinkingTime     int
	FixedExtraTime       int
	TimeIncrementPerTurn int
}

// GameFactory opens and tears down the game rows backing matchmaking
// states, and announces the Started transition. Supplied by whatever wires
// internal/matchmaker to internal/hub + internal/db (kept as a narrow
// collaborator so this package has no storage dependency of its own).
// *gamestore.Store implements this directly.
type GameFactory interface {
	// OpenSearching persists a Searching-state game (host only) for a
	// user who just entered the Find queue, so it is immediately visible
	// to GET /games/searches and connectable to over the socket.
	OpenSearching(ctx context.Context, hostID int64, profile Profile) (gameID int64, err error)
	// CancelSearching discards a Searching-state game.
	CancelSearching(ctx context.Context, gameID int64) error
	// Pair transitions a Searching-state game to Started once an opponent
	// is found by Find.
	Pair(ctx context.Context, gameID, awayID int64) error
	// OpenInvite persists an Invited-state game (host + invited_id, no
	// away yet) for a fresh SendInvitation.
	OpenInvite(ctx context.Context, fromID, toID int64, profile Profile) (gameID int64, err error)
	// CancelInvite discards a declined invitation's game row.
	CancelInvite(ctx context.Context, gameID int64) error
	// AcceptInvite transitions an Invited-state game to Started once its
	// recipient accepts.
	AcceptInvite(ctx context.Context, gameID, awayID int64) error
}

type waitEntry struct {
	userID  int64
	profile Profile
	gameID  int64
}

// Invitation is a pending direct invite from one user to another.
type Invitation struct {
	ID      string
	FromID  int64
	ToID    int64
	Profile Profile
	GameID  int64
}

// Matchmaker holds all pending Find queues and Invitations in memory. A
// live Kasupel process runs exactly one of these; nothing here is
// durable across restarts, matching spec.md §4.4 ("matchmaking state does
// not survive a restart — in-flight finds and invites are simply lost").
// The game rows GameFactory persists do survive a restart, so a re-Find or
// a GET /games/searches still sees them even though the queue itself
// doesn't.
type Matchmaker struct {
	mu      sync.Mutex
	waiting map[Profile][]waitEntry
	byUser  map[int64]Profile // userID -> profile currently waiting on, for idempotent Find/Cancel
	invites map[string]Invitation

	factory GameFactory
	notify  *notify.Queue
}

func New(factory GameFactory, notifications *notify.Queue) *Matchmaker {
	return &Matchmaker{
		waiting: make(map[Profile][]waitEntry),
		byUser:  make(map[int64]Profile),
		invites: make(map[string]Invitation),
		factory: factory,
		notify:  notifications,
	}
}

// Find enters userID into the queue for profile, pairing immediately with
// the longest-waiting compatible opponent if one exists. Calling Find again
// for a user already waiting on the same profile is a no-op (idempotent,
// per spec.md §4.4) that returns the same game id; calling it with a
// different profile cancels the old wait and moves the user to the new
// queue.
func (m *Matchmaker) Find(ctx context.Context, userID int64, profile Profile) (matched bool, gameID int64, err error) {
	m.mu.Lock()
	if existing, waiting := m.byUser[userID]; waiting {
		if existing == profile {
			gid := m.waitGameLocked(userID, existing)
			m.mu.Unlock()
			return false, gid, nil
		}
		staleGameID := m.waitGameLocked(userID, existing)
		m.removeWaitingLocked(userID, existing)
		m.mu.Unlock()
		if err := m.factory.CancelSearching(ctx, staleGameID); err != nil {
			return false, 0, err
		}
		return m.Find(ctx, userID, profile)
	}

	queue := m.waiting[profile]
	var opponent waitEntry
	found := false
	for i, e := range queue {
		if e.userID != userID {
			opponent = e
			queue = append(queue[:i], queue[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		gameID, err = m.factory.OpenSearching(ctx, userID, profile)
		if err != nil {
			m.mu.Unlock()
			return false, 0, err
		}
		m.waiting[profile] = append(m.waiting[profile], waitEntry{userID: userID, profile: profile, gameID: gameID})
		m.byUser[userID] = profile
		m.mu.Unlock()
		return false, gameID, nil
	}
	m.waiting[profile] = queue
	delete(m.byUser, opponent.userID)
	m.mu.Unlock()

	if err := m.factory.Pair(ctx, opponent.gameID, userID); err != nil {
		return false, 0, err
	}
	m.notifyBoth(ctx, opponent.userID, userID, opponent.gameID)
	return true, opponent.gameID, nil
}

// CancelFind removes userID from whatever queue it is waiting in, discarding
// its Searching-state game row. A no-op if userID isn't waiting.
func (m *Matchmaker) CancelFind(ctx context.Context, userID int64) error {
	m.mu.Lock()
	profile, waiting := m.byUser[userID]
	if !waiting {
		m.mu.Unlock()
		return nil
	}
	gameID := m.waitGameLocked(userID, profile)
	m.removeWaitingLocked(userID, profile)
	m.mu.Unlock()
	return m.factory.CancelSearching(ctx, gameID)
}

func (m *Matchmaker) waitGameLocked(userID int64, profile Profile) int64 {
	for _, e := range m.waiting[profile] {
		if e.userID == userID {
			return e.gameID
		}
	}
	return 0
}

func (m *Matchmaker) removeWaitingLocked(userID int64, profile Profile) {
	queue := m.waiting[profile]
	for i, e := range queue {
		if e.userID == userID {
			m.waiting[profile] = append(queue[:i], queue[i+1:]...)
			break
		}
	}
	delete(m.byUser, userID)
}

func (m *Matchmaker) notifyBoth(ctx context.Context, hostID, awayID int64, gameID int64) {
	if m.notify == nil {
		return
	}
	_, _ = m.notify.Enqueue(ctx, hostID, notify.MatchmakingMatchFound, &gameID)
	_, _ = m.notify.Enqueue(ctx, awayID, notify.MatchmakingMatchFound, &gameID)
}

// SendInvitation records fromID's invitation of toID on profile, persisting
// its Invited-state game row and returning the invitation's id. toID is
// notified immediately if online.
func (m *Matchmaker) SendInvitation(ctx context.Context, fromID, toID int64, profile Profile) (string, error) {
	if fromID == toID {
		return "", apierr.Of(apierr.CannotInviteSelf)
	}
	gameID, err := m.factory.OpenInvite(ctx, fromID, toID, profile)
	if err != nil {
		return "", err
	}
	inv := Invitation{ID: uuid.NewString(), FromID: fromID, ToID: toID, Profile: profile, GameID: gameID}
	m.mu.Lock()
	m.invites[inv.ID] = inv
	m.mu.Unlock()

	if m.notify != nil {
		_, _ = m.notify.Enqueue(ctx, toID, notify.MatchmakingInviteReceived, nil)
	}
	return inv.ID, nil
}

// AcceptInvitation transitions the invitation's game to Started and
// notifies the sender.
func (m *Matchmaker) AcceptInvitation(ctx context.Context, acceptingUserID int64, inviteID string) (gameID int64, err error) {
	inv, err := m.takeInvitation(acceptingUserID, inviteID)
	if err != nil {
		return 0, err
	}
	if err := m.factory.AcceptInvite(ctx, inv.GameID, acceptingUserID); err != nil {
		return 0, err
	}
	if m.notify != nil {
		_, _ = m.notify.Enqueue(ctx, inv.FromID, notify.MatchmakingInviteAccepted, &inv.GameID)
	}
	return inv.GameID, nil
}

// DeclineInvitation discards an invitation addressed to decliningUserID,
// along with its game row (sending the host game_disconnect reason
// InviteDeclined if it had already connected), and notifies the sender.
func (m *Matchmaker) DeclineInvitation(ctx context.Context, decliningUserID int64, inviteID string) error {
	inv, err := m.takeInvitation(decliningUserID, inviteID)
	if err != nil {
		return err
	}
	if err := m.factory.CancelInvite(ctx, inv.GameID); err != nil {
		return err
	}
	if m.notify != nil {
		_, _ = m.notify.Enqueue(ctx, inv.FromID, notify.MatchmakingInviteDeclined, nil)
	}
	return nil
}

func (m *Matchmaker) takeInvitation(forUserID int64, inviteID string) (Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invites[inviteID]
	if !ok || inv.ToID != forUserID {
		return Invitation{}, apierr.Of(apierr.NotInvited)
	}
	delete(m.invites, inviteID)
	return inv, nil
}
