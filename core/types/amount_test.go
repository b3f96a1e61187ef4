package types

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"

	nhberrors "nhbbridge/core/errors"
)

func TestAmountArithmetic(t *testing.T) {
	a := NewAmount(40)
	b := NewAmount(2)
	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if sum.String() != "42" {
		t.Fatalf("unexpected sum %s", sum)
	}
	diff, err := sum.Sub(a)
	if err != nil {
		t.Fatalf("sub: %v", err)
	}
	if diff.Cmp(b) != 0 {
		t.Fatalf("unexpected difference %s", diff)
	}
	if _, err := b.Sub(a); !errors.Is(err, nhberrors.ErrInvalidState) {
		t.Fatalf("expected underflow error, got %v", err)
	}
	if !(Amount{}).IsZero() {
		t.Fatalf("zero value must be zero")
	}
}

func TestAmountOverflow(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	top, err := AmountFromBig(max)
	if err != nil {
		t.Fatalf("from big: %v", err)
	}
	if _, err := top.Add(NewAmount(1)); !errors.Is(err, nhberrors.ErrInvalidState) {
		t.Fatalf("expected overflow error, got %v", err)
	}
	if _, err := AmountFromBig(new(big.Int).Add(max, big.NewInt(1))); !errors.Is(err, nhberrors.ErrInvalidState) {
		t.Fatalf("expected 257-bit value to be rejected, got %v", err)
	}
	if _, err := AmountFromBig(big.NewInt(-1)); !errors.Is(err, nhberrors.ErrInvalidState) {
		t.Fatalf("expected negative value to be rejected, got %v", err)
	}
}

func TestParseAmount(t *testing.T) {
	a, err := ParseAmount("1000000000000000000000")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a.String() != "1000000000000000000000" {
		t.Fatalf("unexpected amount %s", a)
	}
	if _, err := ParseAmount("12abc"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestAmountRLP(t *testing.T) {
	for _, value := range []uint64{0, 1, 255, 1 << 40} {
		encoded, err := rlp.EncodeToBytes(NewAmount(value))
		if err != nil {
			t.Fatalf("encode %d: %v", value, err)
		}
		var decoded Amount
		if err := rlp.DecodeBytes(encoded, &decoded); err != nil {
			t.Fatalf("decode %d: %v", value, err)
		}
		if decoded.Cmp(NewAmount(value)) != 0 {
			t.Fatalf("round trip mismatch: %s != %d", decoded, value)
		}
	}
}
