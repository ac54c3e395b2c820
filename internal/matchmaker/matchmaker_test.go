package matchmaker_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasupel/internal/matchmaker"
)

// fakeFactory is a GameFactory that hands out a fixed gameID for every open
// call and otherwise no-ops, so matchmaker tests can exercise pairing and
// invitation flows without a real internal/gamestore.Store.
type fakeFactory struct {
	gameID int64

	cancelled []int64
	paired    []int64
	accepted  []int64
}

func noopFactory(gameID int64) *fakeFactory {
	return &fakeFactory{gameID: gameID}
}

func (f *fakeFactory) OpenSearching(ctx context.Context, hostID int64, profile matchmaker.Profile) (int64, error) {
	return f.gameID, nil
}

func (f *fakeFactory) CancelSearching(ctx context.Context, gameID int64) error {
	f.cancelled = append(f.cancelled, gameID)
	return nil
}

func (f *fakeFactory) Pair(ctx context.Context, gameID, awayID int64) error {
	f.paired = append(f.paired, gameID)
	return nil
}

func (f *fakeFactory) OpenInvite(ctx context.Context, fromID, toID int64, profile matchmaker.Profile) (int64, error) {
	return f.gameID, nil
}

func (f *fakeFactory) CancelInvite(ctx context.Context, gameID int64) error {
	f.cancelled = append(f.cancelled, gameID)
	return nil
}

func (f *fakeFactory) AcceptInvite(ctx context.Context, gameID, awayID int64) error {
	f.accepted = append(f.accepted, gameID)
	return nil
}

var testProfile = matchmaker.Profile{MainThinkingTime: 600, TimeIncrementPerTurn: 5}

func TestFindPairsTwoWaitingUsers(t *testing.T) {
	mm := matchmaker.New(noopFactory(42), nil)
	ctx := context.Background()

	matched, gameID, err := mm.Find(ctx, 1, testProfile)
	require.NoError(t, err)
	assert.False(t, matched)
	assert.Equal(t, int64(42), gameID)

	matched, gameID, err = mm.Find(ctx, 2, testProfile)
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, int64(42), gameID)
}

func TestFindIsIdempotentForSameProfile(t *testing.T) {
	mm := matchmaker.New(noopFactory(1), nil)
	ctx := context.Background()

	matched, _, err := mm.Find(ctx, 1, testProfile)
	require.NoError(t, err)
	assert.False(t, matched)

	matched, _, err = mm.Find(ctx, 1, testProfile)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestFindDoesNotPairDifferentProfiles(t *testing.T) {
	mm := matchmaker.New(noopFactory(1), nil)
	ctx := context.Background()
	other := matchmaker.Profile{MainThinkingTime: 180}

	matched, _, err := mm.Find(ctx, 1, testProfile)
	require.NoError(t, err)
	assert.False(t, matched)

	matched, _, err = mm.Find(ctx, 2, other)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestCancelFindRemovesFromQueue(t *testing.T) {
	factory := noopFactory(99)
	mm := matchmaker.New(factory, nil)
	ctx := context.Background()

	_, _, err := mm.Find(ctx, 1, testProfile)
	require.NoError(t, err)
	require.NoError(t, mm.CancelFind(ctx, 1))
	assert.Equal(t, []int64{99}, factory.cancelled)

	matched, _, err := mm.Find(ctx, 2, testProfile)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestInvitationAcceptFlow(t *testing.T) {
	factory := noopFactory(7)
	mm := matchmaker.New(factory, nil)
	ctx := context.Background()

	id, err := mm.SendInvitation(ctx, 1, 2, testProfile)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	gameID, err := mm.AcceptInvitation(ctx, 2, id)
	require.NoError(t, err)
	assert.Equal(t, int64(7), gameID)
	assert.Equal(t, []int64{7}, factory.accepted)

	_, err = mm.AcceptInvitation(ctx, 2, id)
	assert.Error(t, err)
}

func TestInvitationDeclineFlow(t *testing.T) {
	factory := noopFactory(7)
	mm := matchmaker.New(factory, nil)
	ctx := context.Background()

	id, err := mm.SendInvitation(ctx, 1, 2, testProfile)
	require.NoError(t, err)

	err = mm.DeclineInvitation(ctx, 2, id)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, factory.cancelled)

	_, err = mm.AcceptInvitation(ctx, 2, id)
	assert.Error(t, err)
}

func TestInvitationRejectsWrongRecipient(t *testing.T) {
	mm := matchmaker.New(noopFactory(7), nil)
	ctx := context.Background()

	id, err := mm.SendInvitation(ctx, 1, 2, testProfile)
	require.NoError(t, err)

	_, err = mm.AcceptInvitation(ctx, 3, id)
	assert.Error(t, err)
}

func TestCannotInviteSelf(t *testing.T) {
	mm := matchmaker.New(noopFactory(7), nil)
	_, err := mm.SendInvitation(context.Background(), 1, 1, testProfile)
	assert.Error(t, err)
}
