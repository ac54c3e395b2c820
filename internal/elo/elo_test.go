package elo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kasupel/internal/elo"
)

func TestUpdateEqualRatingsWin(t *testing.T) {
	newA, newB := elo.Update(1200, 1200, elo.Win)
	assert.Equal(t, 1216, newA)
	assert.Equal(t, 1184, newB)
}

func TestUpdateEqualRatingsDraw(t *testing.T) {
	newA, newB := elo.Update(1200, 1200, elo.Draw)
	assert.Equal(t, 1200, newA)
	assert.Equal(t, 1200, newB)
}

func TestUpdateEqualRatingsLoss(t *testing.T) {
	newA, newB := elo.Update(1200, 1200, elo.Loss)
	assert.Equal(t, 1184, newA)
	assert.Equal(t, 1216, newB)
}

func TestUpdateUnderdogWinGainsMore(t *testing.T) {
	underdogNew, favoriteNew := elo.Update(1000, 1400, elo.Win)
	assert.Greater(t, underdogNew, 1000+elo.K/2)
	assert.Less(t, favoriteNew, 1400)
}

func TestUpdateConservesTotalApprox(t *testing.T) {
	newA, newB := elo.Update(1500, 1300, elo.Win)
	// Rounding means the zero-sum property only holds approximately.
	assert.InDelta(t, 1500+1300, newA+newB, 1)
}
