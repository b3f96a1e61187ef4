package types

import (
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	nhberrors "nhbbridge/core/errors"
)

// Validator identifies a staking participant. Addresses order by their raw
// bytes.
type Validator = common.Address

// Amount is an exact, non-negative quantity of stake. The zero value is a
// valid zero amount.
type Amount struct {
	v uint256.Int
}

// NewAmount returns an amount holding the provided integer.
func NewAmount(value uint64) Amount {
	var a Amount
	a.v.SetUint64(value)
	return a
}

// AmountFromBig converts a big integer, rejecting negative or oversized
// values.
func AmountFromBig(value *big.Int) (Amount, error) {
	if value == nil {
		return Amount{}, nil
	}
	if value.Sign() < 0 {
		return Amount{}, fmt.Errorf("%w: negative amount %s", nhberrors.ErrInvalidState, value)
	}
	converted, overflow := uint256.FromBig(value)
	if overflow {
		return Amount{}, fmt.Errorf("%w: amount %s exceeds 256 bits", nhberrors.ErrInvalidState, value)
	}
	return Amount{v: *converted}, nil
}

// ParseAmount parses a base-10 amount.
func ParseAmount(raw string) (Amount, error) {
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return Amount{}, fmt.Errorf("invalid amount %q", raw)
	}
	return AmountFromBig(value)
}

// Add returns a+b, failing on overflow instead of wrapping.
func (a Amount) Add(b Amount) (Amount, error) {
	var sum Amount
	if _, overflow := sum.v.AddOverflow(&a.v, &b.v); overflow {
		return Amount{}, fmt.Errorf("%w: amount overflow adding %s and %s", nhberrors.ErrInvalidState, a, b)
	}
	return sum, nil
}

// Sub returns a-b, failing when b exceeds a.
func (a Amount) Sub(b Amount) (Amount, error) {
	var diff Amount
	if _, underflow := diff.v.SubOverflow(&a.v, &b.v); underflow {
		return Amount{}, fmt.Errorf("%w: amount underflow subtracting %s from %s", nhberrors.ErrInvalidState, b, a)
	}
	return diff, nil
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

// Big returns a copy of the amount as a big integer.
func (a Amount) Big() *big.Int {
	return a.v.ToBig()
}

func (a Amount) String() string {
	return a.v.Dec()
}

// EncodeRLP implements rlp.Encoder using the canonical big integer form.
func (a Amount) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, a.v.ToBig())
}

// DecodeRLP implements rlp.Decoder.
func (a *Amount) DecodeRLP(s *rlp.Stream) error {
	value, err := s.BigInt()
	if err != nil {
		return err
	}
	decoded, err := AmountFromBig(value)
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}
