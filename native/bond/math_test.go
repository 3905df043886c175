package bond

import (
	"errors"
	"math/big"
	"testing"
)

func TestSwapOutRejectsEmptyInputs(t *testing.T) {
	reserve := big.NewInt(1_000_000)
	cases := []struct {
		name       string
		amountIn   *big.Int
		reserveIn  *big.Int
		reserveOut *big.Int
	}{
		{"nil amount", nil, reserve, reserve},
		{"zero amount", big.NewInt(0), reserve, reserve},
		{"negative amount", big.NewInt(-5), reserve, reserve},
		{"zero reserve in", big.NewInt(10), big.NewInt(0), reserve},
		{"zero reserve out", big.NewInt(10), reserve, big.NewInt(0)},
		{"nil reserve in", big.NewInt(10), nil, reserve},
	}
	for _, tc := range cases {
		if _, err := SwapOut(tc.amountIn, tc.reserveIn, tc.reserveOut, 0); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestSwapOutFavoursPool(t *testing.T) {
	reserveIn := big.NewInt(60_000)
	reserveOut := big.NewInt(100_000)
	for _, amountIn := range []int64{1, 17, 999, 12_345, 60_000} {
		out, err := SwapOut(big.NewInt(amountIn), reserveIn, reserveOut, 0)
		if err != nil {
			t.Fatalf("swap %d: %v", amountIn, err)
		}
		// The naive ratio price overpays the trader; the pool must never match it.
		naive := new(big.Int).Mul(big.NewInt(amountIn), reserveOut)
		naive.Quo(naive, reserveIn)
		if out.Cmp(naive) >= 0 {
			t.Fatalf("swap %d: output %s not strictly below naive %s", amountIn, out, naive)
		}
	}
}

func TestSwapOutMonotonicInAmountIn(t *testing.T) {
	reserveIn := big.NewInt(1_000_003)
	reserveOut := big.NewInt(777_777)
	prev := big.NewInt(-1)
	for amountIn := int64(1); amountIn < 5_000; amountIn += 7 {
		out, err := SwapOut(big.NewInt(amountIn), reserveIn, reserveOut, 2_500)
		if err != nil {
			t.Fatalf("swap %d: %v", amountIn, err)
		}
		if out.Cmp(prev) < 0 {
			t.Fatalf("output decreased at amountIn=%d: %s < %s", amountIn, out, prev)
		}
		prev = out
	}
}

func TestSwapOutFeeReducesOutput(t *testing.T) {
	amountIn := big.NewInt(10_000)
	reserveIn := big.NewInt(500_000)
	reserveOut := big.NewInt(500_000)
	free, err := SwapOutNoFee(amountIn, reserveIn, reserveOut)
	if err != nil {
		t.Fatalf("no-fee swap: %v", err)
	}
	charged, err := SwapOut(amountIn, reserveIn, reserveOut, 10_000)
	if err != nil {
		t.Fatalf("fee swap: %v", err)
	}
	if charged.Cmp(free) >= 0 {
		t.Fatalf("fee-adjusted output %s not below fee-free %s", charged, free)
	}
}

func TestSwapOutKnownValue(t *testing.T) {
	// in=100, rIn=1000, rOut=1000, fee=0:
	// out = 100*1e6*1000 / (1000*1e6 + 100*1e6) = 100000/1100 -> 90
	out, err := SwapOutNoFee(big.NewInt(100), big.NewInt(1000), big.NewInt(1000))
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if out.Cmp(big.NewInt(90)) != 0 {
		t.Fatalf("expected 90, got %s", out)
	}
}

func TestFeePortionTruncatesTowardZero(t *testing.T) {
	if got := feePortion(big.NewInt(999), 1_000); got.Cmp(big.NewInt(0)) != 0 {
		t.Fatalf("expected truncation to 0, got %s", got)
	}
	if got := feePortion(big.NewInt(1_000_000), 2_500); got.Cmp(big.NewInt(2_500)) != 0 {
		t.Fatalf("expected 2500, got %s", got)
	}
	if got := feePortion(nil, 2_500); got.Sign() != 0 {
		t.Fatalf("expected 0 for nil amount, got %s", got)
	}
}
