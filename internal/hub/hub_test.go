package hub_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasupel/internal/chessrules"
	"kasupel/internal/elo"
	"kasupel/internal/engine"
	"kasupel/internal/hub"
)

func newTestGame() *engine.Game {
	now := time.Unix(1_700_000_000, 0)
	return &engine.Game{
		ID: 1, HostID: 10, AwayID: 20,
		MainThinkingTime: 600, HostTime: 600, AwayTime: 600,
		CurrentTurn: chessrules.Host,
		Position:    chessrules.NewPosition(),
		OpenedAt:    now, StartedAt: now, LastTurn: now,
	}
}

type fakePersister struct {
	saves int
}

func (f *fakePersister) SaveGame(ctx context.Context, g *engine.Game) error {
	f.saves++
	return nil
}

type fakeSettler struct {
	calls []elo.Score
}

func (f *fakeSettler) Settle(ctx context.Context, hostID, awayID int64, hostScore elo.Score) (int, int, error) {
	f.calls = append(f.calls, hostScore)
	return 1000, 1000, nil
}

func TestRoomMovePersists(t *testing.T) {
	h := hub.New()
	persister := &fakePersister{}
	settler := &fakeSettler{}
	g := newTestGame()

	r := h.Open(g.ID, g, hub.Collaborators{Persist: persister, Settle: settler, Now: func() time.Time { return g.LastTurn.Add(time.Second) }})

	out, err := r.Move(chessrules.Host, chessrules.Move{StartRank: 1, StartFile: 4, EndRank: 3, EndFile: 4})
	require.NoError(t, err)
	assert.False(t, out.Ended)
	assert.Equal(t, 1, persister.saves)
}

func TestRoomResignEndsGameAndSettles(t *testing.T) {
	h := hub.New()
	persister := &fakePersister{}
	settler := &fakeSettler{}
	g := newTestGame()

	r := h.Open(g.ID, g, hub.Collaborators{Persist: persister, Settle: settler, Now: func() time.Time { return g.LastTurn.Add(time.Second) }})

	out, err := r.Resign(chessrules.Host)
	require.NoError(t, err)
	assert.True(t, out.Ended)
	require.Len(t, settler.calls, 1)
	assert.Equal(t, elo.Loss, settler.calls[0])

	_, stillOpen := h.Get(g.ID)
	assert.False(t, stillOpen, "a concluded room should tear itself down")
}

func TestSideForResolvesParticipants(t *testing.T) {
	h := hub.New()
	g := newTestGame()
	r := h.Open(g.ID, g, hub.Collaborators{})

	side, ok := r.SideFor(10)
	require.True(t, ok)
	assert.Equal(t, chessrules.Host, side)

	side, ok = r.SideFor(20)
	require.True(t, ok)
	assert.Equal(t, chessrules.Away, side)

	_, ok = r.SideFor(999)
	assert.False(t, ok)
}

func TestRequesterEventExtractsToRequesterOnly(t *testing.T) {
	out := engine.Outcome{Events: []engine.RoutedEvent{
		{To: engine.ToOpponentOf, Event: engine.Event{Kind: engine.KindMove}},
		{To: engine.ToRequester, Event: engine.Event{Kind: engine.KindAllowedMoves}},
	}}
	ev, ok := hub.RequesterEvent(out)
	require.True(t, ok)
	assert.Equal(t, engine.KindAllowedMoves, ev.Kind)

	_, ok = hub.RequesterEvent(engine.Outcome{})
	assert.False(t, ok)
}
