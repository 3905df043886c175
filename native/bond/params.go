package bond

import (
	"fmt"
	"math/big"
	"time"
)

// Params captures the governed knobs of the issuance engine. Fees, discounts
// and prices are expressed in parts per million.
type Params struct {
	// CooldownPeriod is the settlement window after each epoch during which
	// bonds redeem at par and no new epoch may start.
	CooldownPeriod time.Duration
	// EpochLength is the duration of each issuance epoch.
	EpochLength time.Duration
	// MaxOutstandingSupply is the bond supply target the rebalancer mints and
	// burns toward at every epoch start.
	MaxOutstandingSupply *big.Int
	// BuyingFeePpm is deducted from the bond output of a buy.
	BuyingFeePpm uint64
	// SellingFeePpm is deducted from the reference output of a sell.
	SellingFeePpm uint64
	// RedemptionFeePpm is deducted from the par payout of a redemption.
	RedemptionFeePpm uint64
	// DefaultInitialDiscountPpm is the epoch-start discount applied when
	// UseDefaultDiscount is set.
	DefaultInitialDiscountPpm uint64
	// FailsafeMaxInitialDiscountPpm caps whatever the discount strategy
	// produces; epoch starts abort above it.
	FailsafeMaxInitialDiscountPpm uint64
	// UseDefaultDiscount selects the static default over the pluggable
	// discount strategy.
	UseDefaultDiscount bool
}

// Clone returns a deep copy of the parameter set.
func (p Params) Clone() Params {
	clone := p
	if p.MaxOutstandingSupply != nil {
		clone.MaxOutstandingSupply = new(big.Int).Set(p.MaxOutstandingSupply)
	}
	return clone
}

// Validate verifies the parameter set is internally consistent. The source
// system accepted unvalidated governance input; rejecting out-of-range ppm
// values here is a deliberate behaviour change.
func (p Params) Validate() error {
	// The floor curve interpolates over whole seconds, so the epoch must
	// span at least one.
	if p.EpochLength < time.Second {
		return fmt.Errorf("%w: epoch length must be at least one second", ErrInvalidParameter)
	}
	if p.CooldownPeriod < 0 {
		return fmt.Errorf("%w: cooldown must not be negative", ErrInvalidParameter)
	}
	if p.MaxOutstandingSupply == nil || p.MaxOutstandingSupply.Sign() < 0 {
		return fmt.Errorf("%w: supply cap must not be negative", ErrInvalidParameter)
	}
	for name, value := range map[string]uint64{
		"buying fee":        p.BuyingFeePpm,
		"selling fee":       p.SellingFeePpm,
		"redemption fee":    p.RedemptionFeePpm,
		"default discount":  p.DefaultInitialDiscountPpm,
		"failsafe discount": p.FailsafeMaxInitialDiscountPpm,
	} {
		if value > PpmDenominator {
			return fmt.Errorf("%w: %s %d ppm exceeds %d", ErrInvalidParameter, name, value, PpmDenominator)
		}
	}
	return nil
}
