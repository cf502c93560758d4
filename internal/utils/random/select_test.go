package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectWinners_NeverReturnsExcluded(t *testing.T) {
	entrants := []string{"bot", "a", "b", "c"}
	for i := 0; i < 200; i++ {
		got := SelectWinners(entrants, "bot", 4)
		assert.NotContains(t, got, "bot")
		assert.Len(t, got, 3)
	}
}

func TestSelectWinners_DistinctSubset(t *testing.T) {
	entrants := []string{"A", "B", "C"}
	for i := 0; i < 200; i++ {
		got := SelectWinners(entrants, "", 2)
		require.Len(t, got, 2)
		assert.NotEqual(t, got[0], got[1])
		assert.Subset(t, entrants, got)
	}
}

func TestSelectWinners_CountAtLeastPool(t *testing.T) {
	entrants := []string{"A", "B", "C"}
	got := SelectWinners(entrants, "", 10)
	assert.ElementsMatch(t, entrants, got)
}

func TestSelectWinners_Empty(t *testing.T) {
	got := SelectWinners([]string{}, "bot", 3)
	require.NotNil(t, got)
	assert.Empty(t, got)

	got = SelectWinners([]string{"bot"}, "bot", 1)
	assert.Empty(t, got)

	got = SelectWinners([]string{"a"}, "bot", 0)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSelectWinners_DoesNotMutateInput(t *testing.T) {
	entrants := []int{1, 2, 3, 4, 5}
	SelectWinners(entrants, 0, 3)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, entrants)
}

func TestSelectWinners_EveryEntrantCanWin(t *testing.T) {
	entrants := []string{"A", "B", "C", "D"}
	seen := map[string]int{}
	for i := 0; i < 400; i++ {
		got := SelectWinners(entrants, "", 1)
		require.Len(t, got, 1)
		seen[got[0]]++
	}
	for _, e := range entrants {
		assert.Greater(t, seen[e], 0, e)
	}
}
