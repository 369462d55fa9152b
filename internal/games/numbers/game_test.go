package numbers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/arcade-online/internal/core"
	"github.com/vovakirdan/arcade-online/internal/protocol"
)

func newTestGame(hintMode protocol.HintMode) *Game {
	return New(core.NewSessionRng(12345), hintMode)
}

func TestNewGameHas42ActiveCells(t *testing.T) {
	g := newTestGame(protocol.HintLimited)

	assert.Equal(t, InitialCells, g.Board().ActiveCellCount())
	assert.Equal(t, InitialRefills, g.refillsRemaining)
}

func TestInitialHintsPerMode(t *testing.T) {
	limited := newTestGame(protocol.HintLimited)
	require.NotNil(t, limited.hintsRemaining)
	assert.Equal(t, InitialHintsLimited, *limited.hintsRemaining)

	unlimited := newTestGame(protocol.HintUnlimited)
	assert.Nil(t, unlimited.hintsRemaining)

	disabled := newTestGame(protocol.HintDisabled)
	require.NotNil(t, disabled.hintsRemaining)
	assert.Equal(t, 0, *disabled.hintsRemaining)
}

func TestHintDisabledReturnsError(t *testing.T) {
	g := newTestGame(protocol.HintDisabled)

	_, err := g.RequestHint()

	assert.Error(t, err)
}

func TestRefillDecrementsAndGrantsHints(t *testing.T) {
	g := newTestGame(protocol.HintLimited)
	hintsBefore := *g.hintsRemaining

	require.NoError(t, g.Refill())

	assert.Equal(t, InitialRefills-1, g.refillsRemaining)
	assert.Equal(t, hintsBefore+HintBonusPerRefill, *g.hintsRemaining)
	assert.Equal(t, 1, g.RefillsUsed())
}

func TestRefillFailsWhenExhausted(t *testing.T) {
	g := newTestGame(protocol.HintLimited)
	g.refillsRemaining = 0

	assert.Error(t, g.Refill())
}

func TestHintDecrementsInLimitedMode(t *testing.T) {
	g := newTestGame(protocol.HintLimited)
	before := *g.hintsRemaining

	_, err := g.RequestHint()

	require.NoError(t, err)
	assert.Equal(t, before-1, *g.hintsRemaining)
	assert.Equal(t, 1, g.HintsUsed())
}

func TestHintUnlimitedNeverDecrements(t *testing.T) {
	g := newTestGame(protocol.HintUnlimited)

	_, err := g.RequestHint()

	require.NoError(t, err)
	assert.Nil(t, g.hintsRemaining)
}

func TestDiagonalRemovalDrainsRows(t *testing.T) {
	// 5 at (0,0) and 5 at (2,2) with a clear diagonal between them.
	g := newTestGame(protocol.HintUnlimited)
	g.board = BoardFromValues([]int{
		5, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 5, 0, 0, 0, 0, 0, 0,
	})

	require.NoError(t, g.RemovePair(Position{0, 0}, Position{2, 2}))

	// Both rows became fully inactive and were drained; the win condition
	// fires because nothing is left.
	assert.Equal(t, 0, g.Board().ActiveCellCount())
	assert.Equal(t, 0, g.Board().RowCount())
	assert.Equal(t, StatusWon, g.Status())
	assert.Equal(t, 1, g.PairsRemoved())
}

func TestRemovePairRejectsInvalid(t *testing.T) {
	g := newTestGame(protocol.HintUnlimited)
	g.board = BoardFromValues([]int{5, 1, 5, 0, 0, 0, 0, 0, 0})

	err := g.RemovePair(Position{0, 0}, Position{0, 2})

	assert.Error(t, err)
	assert.Equal(t, 0, g.PairsRemoved())
}

func TestNoRemovedRowSurvivesRemovePair(t *testing.T) {
	g := newTestGame(protocol.HintUnlimited)
	g.board = BoardFromValues([]int{
		5, 5, 0, 0, 0, 0, 0, 0, 0,
		1, 2, 3, 4, 6, 7, 8, 9, 1,
	})

	require.NoError(t, g.RemovePair(Position{0, 0}, Position{0, 1}))

	for row := 0; row < g.Board().RowCount(); row++ {
		empty := true
		for col := 0; col < FieldWidth; col++ {
			if g.Board().Get(Position{row, col}).Active() {
				empty = false
			}
		}
		assert.False(t, empty, "row %d should have been collapsed", row)
	}
}

func TestHintFindsPairOrSuggestsRefill(t *testing.T) {
	g := newTestGame(protocol.HintUnlimited)
	g.board = BoardFromValues([]int{5, 5, 0, 0, 0, 0, 0, 0, 0})

	hint, err := g.RequestHint()

	require.NoError(t, err)
	require.NotNil(t, hint.Pair)
	assert.Equal(t, Position{0, 0}, hint.Pair[0])
	assert.Equal(t, Position{0, 1}, hint.Pair[1])

	// With no pair but refills left, the hint suggests a refill.
	g2 := newTestGame(protocol.HintUnlimited)
	g2.board = BoardFromValues([]int{1, 2, 3, 0, 0, 0, 0, 0, 0})
	hint2, err := g2.RequestHint()
	require.NoError(t, err)
	assert.True(t, hint2.SuggestRefill)
}

func TestNoMovesHintLosesGame(t *testing.T) {
	g := newTestGame(protocol.HintUnlimited)
	g.board = BoardFromValues([]int{1, 2, 3, 0, 0, 0, 0, 0, 0})
	g.refillsRemaining = 0

	hint, err := g.RequestHint()

	require.NoError(t, err)
	assert.True(t, hint.NoMoves)
	assert.Equal(t, StatusLost, g.Status())
}

func TestEventsDrainIntoState(t *testing.T) {
	g := newTestGame(protocol.HintUnlimited)
	g.board = BoardFromValues([]int{
		5, 5, 0, 0, 0, 0, 0, 0, 0,
		1, 2, 0, 0, 0, 0, 0, 0, 0,
	})

	require.NoError(t, g.RemovePair(Position{0, 0}, Position{0, 1}))

	state := g.ToState()
	require.NotEmpty(t, state.Events)
	assert.NotNil(t, state.Events[0].PairRemoved)

	// Drained: a second snapshot has no events.
	state2 := g.ToState()
	assert.Empty(t, state2.Events)
}

func TestDeterministicBoardGeneration(t *testing.T) {
	g1 := New(core.NewSessionRng(777), protocol.HintLimited)
	g2 := New(core.NewSessionRng(777), protocol.HintLimited)

	require.Equal(t, g1.Board().Cells(), g2.Board().Cells())
}
