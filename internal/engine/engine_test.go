package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasupel/internal/chessrules"
	"kasupel/internal/engine"
)

func newTestGame(t *testing.T) *engine.Game {
	t.Helper()
	now := time.Unix(1_700_000_000, 0)
	return &engine.Game{
		ID: 1, HostID: 10, AwayID: 20,
		MainThinkingTime: 600, FixedExtraTime: 0, TimeIncrementPerTurn: 0,
		HostTime: 600, AwayTime: 600,
		CurrentTurn: chessrules.Host,
		Position:    chessrules.NewPosition(),
		OpenedAt:    now, StartedAt: now, LastTurn: now,
	}
}

func move(startRank, startFile, endRank, endFile int) chessrules.Move {
	return chessrules.Move{StartRank: startRank, StartFile: startFile, EndRank: endRank, EndFile: endFile}
}

func TestScholarsMateCheckmate(t *testing.T) {
	g := newTestGame(t)
	at := g.LastTurn

	plays := []struct {
		side chessrules.Side
		m    chessrules.Move
	}{
		{chessrules.Host, move(1, 4, 3, 4)}, // e4
		{chessrules.Away, move(6, 4, 4, 4)}, // e5
		{chessrules.Host, move(0, 3, 4, 7)}, // Qh5
		{chessrules.Away, move(7, 1, 5, 2)}, // Nc6
		{chessrules.Host, move(0, 5, 3, 2)}, // Bc4
		{chessrules.Away, move(7, 6, 5, 5)}, // Nf6??
	}
	for _, p := range plays {
		at = at.Add(time.Second)
		out, err := g.Move(p.side, p.m, at)
		require.NoError(t, err)
		assert.False(t, out.Ended)
	}

	at = at.Add(time.Second)
	out, err := g.Move(chessrules.Host, move(4, 7, 6, 5), at) // Qxf7#
	require.NoError(t, err)
	assert.True(t, out.Ended)
	assert.Equal(t, engine.Checkmate, out.Reason)
	assert.Equal(t, engine.HostWinner, out.Winner)
	assert.Equal(t, 1.0, float64(out.EloScoreHost))
}

func TestMoveAfterTimeoutEndsAsOutOfTime(t *testing.T) {
	g := newTestGame(t)
	late := g.LastTurn.Add(time.Duration(g.HostTime+1) * time.Second)

	out, err := g.Move(chessrules.Host, move(1, 4, 3, 4), late)
	require.NoError(t, err)
	assert.True(t, out.Ended)
	assert.Equal(t, engine.OutOfTime, out.Reason)
	assert.Equal(t, engine.AwayWinner, out.Winner)
}

func TestAssertTimeoutRequiresActualTimeout(t *testing.T) {
	g := newTestGame(t)
	_, err := g.AssertTimeout(g.LastTurn.Add(time.Second))
	assert.Error(t, err)

	out, err := g.AssertTimeout(g.LastTurn.Add(time.Duration(g.HostTime+1) * time.Second))
	require.NoError(t, err)
	assert.True(t, out.Ended)
	assert.Equal(t, engine.OutOfTime, out.Reason)
	assert.Equal(t, engine.AwayWinner, out.Winner)
}

func TestResignEndsGameForOpponent(t *testing.T) {
	g := newTestGame(t)
	out, err := g.Resign(chessrules.Host, g.LastTurn.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, out.Ended)
	assert.Equal(t, engine.Resignation, out.Reason)
	assert.Equal(t, engine.AwayWinner, out.Winner)
}

func TestClaimDrawRequiresStandingOffer(t *testing.T) {
	g := newTestGame(t)
	_, err := g.ClaimDraw(chessrules.Away, engine.ClaimAgreedDraw, g.LastTurn.Add(time.Second))
	assert.Error(t, err)

	at := g.LastTurn.Add(time.Second)
	_, err = g.OfferDraw(chessrules.Host, at)
	require.NoError(t, err)

	at = at.Add(time.Second)
	out, err := g.ClaimDraw(chessrules.Away, engine.ClaimAgreedDraw, at)
	require.NoError(t, err)
	assert.True(t, out.Ended)
	assert.Equal(t, engine.AgreedDraw, out.Reason)
	assert.Equal(t, engine.DrawResult, out.Winner)
	assert.Equal(t, 0.5, float64(out.EloScoreHost))
}

func TestClaimThreefoldRepetitionNotYetAvailable(t *testing.T) {
	g := newTestGame(t)
	_, err := g.ClaimDraw(chessrules.Host, engine.ClaimThreefoldRepetition, g.LastTurn.Add(time.Second))
	assert.Error(t, err)
}

func TestMoveRejectsWrongTurn(t *testing.T) {
	g := newTestGame(t)
	_, err := g.Move(chessrules.Away, move(6, 4, 4, 4), g.LastTurn.Add(time.Second))
	assert.Error(t, err)
}

func TestMoveRejectsIllegalMove(t *testing.T) {
	g := newTestGame(t)
	_, err := g.Move(chessrules.Host, move(1, 4, 4, 4), g.LastTurn.Add(time.Second))
	assert.Error(t, err)
}

func TestCommandsRejectWhenNotInProgress(t *testing.T) {
	g := newTestGame(t)
	g.EndedAt = g.LastTurn.Add(time.Second)

	_, err := g.Move(chessrules.Host, move(1, 4, 3, 4), g.LastTurn.Add(2*time.Second))
	assert.Error(t, err)

	_, err = g.Resign(chessrules.Host, g.LastTurn.Add(2*time.Second))
	assert.Error(t, err)

	_, err = g.AllowedMoves(chessrules.Host, g.LastTurn.Add(2*time.Second))
	assert.Error(t, err)
}
