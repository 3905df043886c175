package bond

import (
	"errors"
	"math/big"
	"testing"
	"time"
)

func TestParamsValidate(t *testing.T) {
	valid := testParams()
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid params, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Params)
	}{
		{"nil supply cap", func(p *Params) { p.MaxOutstandingSupply = nil }},
		{"negative supply cap", func(p *Params) { p.MaxOutstandingSupply = big.NewInt(-1) }},
		{"zero epoch length", func(p *Params) { p.EpochLength = 0 }},
		{"sub-second epoch length", func(p *Params) { p.EpochLength = 500 * time.Millisecond }},
		{"negative cooldown", func(p *Params) { p.CooldownPeriod = -time.Second }},
		{"buying fee above denominator", func(p *Params) { p.BuyingFeePpm = PpmDenominator + 1 }},
		{"selling fee above denominator", func(p *Params) { p.SellingFeePpm = 2_000_000 }},
		{"redemption fee above denominator", func(p *Params) { p.RedemptionFeePpm = PpmDenominator + 1 }},
		{"discount above denominator", func(p *Params) { p.DefaultInitialDiscountPpm = PpmDenominator + 1 }},
		{"failsafe above denominator", func(p *Params) { p.FailsafeMaxInitialDiscountPpm = PpmDenominator + 1 }},
	}
	for _, tc := range cases {
		params := testParams()
		tc.mutate(&params)
		if err := params.Validate(); !errors.Is(err, ErrInvalidParameter) {
			t.Fatalf("%s: expected ErrInvalidParameter, got %v", tc.name, err)
		}
	}
}

func TestParamsCloneIsDeep(t *testing.T) {
	original := testParams()
	clone := original.Clone()
	clone.MaxOutstandingSupply.SetInt64(1)
	if original.MaxOutstandingSupply.Cmp(wei(100_000)) != 0 {
		t.Fatalf("clone shares supply cap with original")
	}
}
