package types

import (
	"fmt"
	"math/big"
	"strings"

	nhberrors "nhbbridge/core/errors"
)

// FractionalVotingPower is an exact proportion of total stake in [0, 1].
// Values are immutable; every operation returns a fresh value. The zero value
// represents no voting power.
type FractionalVotingPower struct {
	r *big.Rat
}

var (
	ZeroVotingPower = FractionalVotingPower{r: new(big.Rat)}
	OneThird        = mustFraction(1, 3)
	Half            = mustFraction(1, 2)
	TwoThirds       = mustFraction(2, 3)
	FullVotingPower = mustFraction(1, 1)
)

func mustFraction(num, den uint64) FractionalVotingPower {
	f, err := NewFractionalVotingPower(num, den)
	if err != nil {
		panic(err)
	}
	return f
}

// NewFractionalVotingPower returns num/den, which must lie in [0, 1].
func NewFractionalVotingPower(num, den uint64) (FractionalVotingPower, error) {
	if den == 0 {
		return FractionalVotingPower{}, fmt.Errorf("%w: zero denominator", nhberrors.ErrInvalidState)
	}
	if num > den {
		return FractionalVotingPower{}, fmt.Errorf("%w: voting power %d/%d exceeds one", nhberrors.ErrInvalidState, num, den)
	}
	r := new(big.Rat).SetFrac(new(big.Int).SetUint64(num), new(big.Int).SetUint64(den))
	return FractionalVotingPower{r: r}, nil
}

// FractionOf returns part/total clamped to one. A zero total is an invalid
// state rather than a division by zero.
func FractionOf(part, total Amount) (FractionalVotingPower, error) {
	if total.IsZero() {
		return FractionalVotingPower{}, fmt.Errorf("%w: total stake is zero", nhberrors.ErrInvalidState)
	}
	if part.Cmp(total) > 0 {
		return FullVotingPower, nil
	}
	return FractionalVotingPower{r: new(big.Rat).SetFrac(part.Big(), total.Big())}, nil
}

// ParseFractionalVotingPower parses "num/den" or a single integer (0 or 1).
func ParseFractionalVotingPower(raw string) (FractionalVotingPower, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return FractionalVotingPower{}, fmt.Errorf("voting power must not be empty")
	}
	r, ok := new(big.Rat).SetString(trimmed)
	if !ok {
		return FractionalVotingPower{}, fmt.Errorf("invalid voting power %q", raw)
	}
	if r.Sign() < 0 || r.Cmp(big.NewRat(1, 1)) > 0 {
		return FractionalVotingPower{}, fmt.Errorf("voting power %q outside [0, 1]", raw)
	}
	return FractionalVotingPower{r: r}, nil
}

func (f FractionalVotingPower) rat() *big.Rat {
	if f.r == nil {
		return new(big.Rat)
	}
	return f.r
}

// Rat returns a copy of the underlying rational.
func (f FractionalVotingPower) Rat() *big.Rat {
	return new(big.Rat).Set(f.rat())
}

// Cmp compares f and o and returns -1, 0 or +1.
func (f FractionalVotingPower) Cmp(o FractionalVotingPower) int {
	return f.rat().Cmp(o.rat())
}

func (f FractionalVotingPower) GreaterThan(o FractionalVotingPower) bool {
	return f.Cmp(o) > 0
}

// Add returns f+o clamped to one.
func (f FractionalVotingPower) Add(o FractionalVotingPower) FractionalVotingPower {
	sum := new(big.Rat).Add(f.rat(), o.rat())
	if sum.Cmp(FullVotingPower.r) > 0 {
		return FullVotingPower
	}
	return FractionalVotingPower{r: sum}
}

// MulAmount scales an amount by the fraction, rounding down.
func (f FractionalVotingPower) MulAmount(a Amount) Amount {
	r := f.rat()
	scaled := new(big.Int).Mul(a.Big(), r.Num())
	scaled.Quo(scaled, r.Denom())
	out, err := AmountFromBig(scaled)
	if err != nil {
		// f <= 1 so the product never exceeds a
		panic(err)
	}
	return out
}

// Float64 is for display only; decisions must use Cmp.
func (f FractionalVotingPower) Float64() float64 {
	v, _ := f.rat().Float64()
	return v
}

func (f FractionalVotingPower) String() string {
	return f.rat().RatString()
}
