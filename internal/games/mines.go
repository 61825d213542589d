package games

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Mines uses a 5x5 grid (25 tiles) with 1-24 mines.
const (
	minesTotalTiles    = 25
	minesMinCount      = 1
	minesMaxCount      = 24
	minesHouseFactor   = 0.95
	minesMinMultiplier = 1.01
)

// MinesResult is the cash-out state after revealing safe tiles.
type MinesResult struct {
	Multiplier float64         `json:"multiplier"`
	Payout     decimal.Decimal `json:"payout"`
}

// ValidateMinesQuery checks untrusted input before it reaches MinesPayout.
func ValidateMinesQuery(mineCount, revealed int) error {
	if mineCount < minesMinCount || mineCount > minesMaxCount {
		return fmt.Errorf("mines count must be between %d and %d, got %d", minesMinCount, minesMaxCount, mineCount)
	}
	if maxSafe := minesTotalTiles - mineCount; revealed < 0 || revealed > maxSafe {
		return fmt.Errorf("revealed count must be between 0 and %d with %d mines, got %d", maxSafe, mineCount, revealed)
	}
	return nil
}

// MinesMultiplier returns 0.95 * C(25,R) / C(25-M,R), floored at 1.01 and
// rounded to two decimals. It is zero before any tile is revealed.
//
// An out-of-range query means the round state machine let a query through after
// a mine was hit, so it panics instead of returning an error.
func MinesMultiplier(mineCount, revealed int) float64 {
	if err := ValidateMinesQuery(mineCount, revealed); err != nil {
		panic(fmt.Sprintf("games: invalid mines query: %v", err))
	}
	if revealed == 0 {
		return 0
	}

	m := minesHouseFactor * binomial(minesTotalTiles, revealed) / binomial(minesTotalTiles-mineCount, revealed)
	m = math.Max(m, minesMinMultiplier)
	return math.Round(m*100) / 100
}

// MinesPayout returns the multiplier and the stake payout floored to cents.
func MinesPayout(stake decimal.Decimal, mineCount, revealed int) MinesResult {
	multiplier := MinesMultiplier(mineCount, revealed)
	payout := stake.Mul(decimal.NewFromFloat(multiplier)).RoundFloor(2)
	return MinesResult{Multiplier: multiplier, Payout: payout}
}

// binomial computes C(n, k) as a running product of ratios so intermediate
// values never approach factorial size.
func binomial(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	result := 1.0
	for i := 1; i <= k; i++ {
		result = result * float64(n-k+i) / float64(i)
	}
	return result
}
