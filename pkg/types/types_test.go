package types

import (
	"math/big"
	"testing"
)

func TestBetUnmatched(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		stake        int64
		totalMatched int64
		want         int64
	}{
		{"fully unmatched", 100, 0, 100},
		{"partially matched", 100, 25, 75},
		{"fully matched", 100, 100, 0},
	}

	for _, tt := range tests {
		b := &Bet{
			StakeAmount:  big.NewInt(tt.stake),
			TotalMatched: big.NewInt(tt.totalMatched),
		}
		if got := b.Unmatched(); got.Cmp(big.NewInt(tt.want)) != 0 {
			t.Errorf("%s: Unmatched() = %s, want %d", tt.name, got, tt.want)
		}
	}
}

func TestZeroMoneyIsIndependent(t *testing.T) {
	t.Parallel()

	a := ZeroMoney()
	b := ZeroMoney()
	a.Add(a, big.NewInt(10))

	if b.Sign() != 0 {
		t.Fatalf("ZeroMoney() instances must not share storage, got b=%s after mutating a", b)
	}
}
