package selectors

import (
	"math/rand"

	"github.com/shopspring/decimal"
)

// drawScale is the number of decimal places in a random draw.
const drawScale = 18

// divisionPrecision bounds the digits kept when normalising weights.
const divisionPrecision = 28

// Candidate pairs an item with its relative weight.
type Candidate[T any] struct {
	Item   T
	Weight int
}

// Pick walks candidates in order, accumulating each weight divided by the
// total, and returns the first item whose running total reaches r. If
// rounding leaves r unreached the last candidate is returned. r is expected
// in [0, 1).
func Pick[T any](candidates []Candidate[T], r decimal.Decimal) (T, error) {
	var zero T
	if len(candidates) == 0 {
		return zero, ErrNotFound
	}

	total := decimal.Zero
	for _, c := range candidates {
		total = total.Add(decimal.NewFromInt(int64(c.Weight)))
	}
	if total.Sign() <= 0 {
		return zero, ErrInvalidState
	}

	current := decimal.Zero
	for _, c := range candidates {
		bias := decimal.NewFromInt(int64(c.Weight)).DivRound(total, divisionPrecision)
		current = current.Add(bias)
		if current.GreaterThanOrEqual(r) {
			return c.Item, nil
		}
	}
	return candidates[len(candidates)-1].Item, nil
}

// RandomDraw returns a uniformly distributed value in [0, 1) with 18
// decimal places taken from src.
func RandomDraw(src *rand.Rand) decimal.Decimal {
	n := src.Int63n(1_000_000_000_000_000_000)
	return decimal.New(n, -drawScale)
}
