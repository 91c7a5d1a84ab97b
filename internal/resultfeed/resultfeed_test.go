package resultfeed

import (
	"testing"

	"github.com/openalpha/betexchange/pkg/types"
)

func TestWinningSelectionFullTimeResult(t *testing.T) {
	t.Parallel()

	cases := []struct {
		home, away int
		want       uint64
	}{
		{2, 1, 1}, // home win
		{0, 3, 2}, // away win
		{1, 1, 3}, // draw
	}
	for _, c := range cases {
		if got := WinningSelection(types.FullTimeResult, c.home, c.away); got != c.want {
			t.Errorf("WinningSelection(FullTimeResult, %d, %d) = %d, want %d", c.home, c.away, got, c.want)
		}
	}
}

func TestWinningSelectionTotalGoals(t *testing.T) {
	t.Parallel()

	cases := []struct {
		home, away int
		want       uint64
	}{
		{2, 1, 1}, // 3 goals -> Over
		{1, 1, 2}, // 2 goals -> Under
		{0, 0, 2},
	}
	for _, c := range cases {
		if got := WinningSelection(types.TotalGoals, c.home, c.away); got != c.want {
			t.Errorf("WinningSelection(TotalGoals, %d, %d) = %d, want %d", c.home, c.away, got, c.want)
		}
	}
}

func TestWinningSelectionBothTeamsToScore(t *testing.T) {
	t.Parallel()

	cases := []struct {
		home, away int
		want       uint64
	}{
		{1, 1, 1}, // both scored -> Yes
		{0, 2, 2}, // one scored -> No
		{0, 0, 2},
	}
	for _, c := range cases {
		if got := WinningSelection(types.BothTeamsToScore, c.home, c.away); got != c.want {
			t.Errorf("WinningSelection(BothTeamsToScore, %d, %d) = %d, want %d", c.home, c.away, got, c.want)
		}
	}
}

func TestWinningSelectionWinner(t *testing.T) {
	t.Parallel()

	if got := WinningSelection(types.Winner, 3, 1); got != 1 {
		t.Errorf("WinningSelection(Winner, 3, 1) = %d, want 1", got)
	}
	if got := WinningSelection(types.Winner, 1, 3); got != 2 {
		t.Errorf("WinningSelection(Winner, 1, 3) = %d, want 2", got)
	}
	if got := WinningSelection(types.Winner, 2, 2); got != 2 {
		t.Errorf("WinningSelection(Winner, 2, 2) tie = %d, want 2 (else branch)", got)
	}
}
