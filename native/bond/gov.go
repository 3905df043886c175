package bond

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"parbond/core/events"
)

// isGovernance reports whether the caller carries owner-or-governance
// authority. The timelock is the governance executor address.
func (e *Engine) isGovernance(caller common.Address) bool {
	return caller == e.owner || caller == e.timelock
}

// authorize accepts governance authority or an explicit role grant.
func (e *Engine) authorize(caller common.Address, perm Permission) error {
	if e.isGovernance(caller) {
		return nil
	}
	if e.roles != nil && e.roles.HasRole(perm, caller) {
		return nil
	}
	return fmt.Errorf("%w: %s requires %s", ErrUnauthorized, caller.Hex(), perm)
}

func (e *Engine) requireGovernance(caller common.Address) error {
	if !e.isGovernance(caller) {
		return fmt.Errorf("%w: %s is not owner or governance", ErrUnauthorized, caller.Hex())
	}
	return nil
}

// SetBuyingFee updates the buy-side fee. Owner-or-governance only.
func (e *Engine) SetBuyingFee(caller common.Address, feePpm uint64) error {
	return e.setPpm(caller, feePpm, func(p *Params) { p.BuyingFeePpm = feePpm })
}

// SetSellingFee updates the sell-side fee. Owner-or-governance only.
func (e *Engine) SetSellingFee(caller common.Address, feePpm uint64) error {
	return e.setPpm(caller, feePpm, func(p *Params) { p.SellingFeePpm = feePpm })
}

// SetRedemptionFee updates the settlement fee. Owner-or-governance only.
func (e *Engine) SetRedemptionFee(caller common.Address, feePpm uint64) error {
	return e.setPpm(caller, feePpm, func(p *Params) { p.RedemptionFeePpm = feePpm })
}

// SetDefaultInitialDiscount updates the static epoch-start discount.
// Owner-or-governance only.
func (e *Engine) SetDefaultInitialDiscount(caller common.Address, discountPpm uint64) error {
	return e.setPpm(caller, discountPpm, func(p *Params) { p.DefaultInitialDiscountPpm = discountPpm })
}

// SetFailsafeMaxInitialDiscount updates the discount ceiling enforced before
// each epoch start. Owner-or-governance only.
func (e *Engine) SetFailsafeMaxInitialDiscount(caller common.Address, discountPpm uint64) error {
	return e.setPpm(caller, discountPpm, func(p *Params) { p.FailsafeMaxInitialDiscountPpm = discountPpm })
}

func (e *Engine) setPpm(caller common.Address, value uint64, apply func(*Params)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireGovernance(caller); err != nil {
		return err
	}
	// The source accepted unclamped governance input; rejecting here is a
	// documented behaviour change.
	if value > PpmDenominator {
		return fmt.Errorf("%w: %d ppm exceeds %d", ErrInvalidParameter, value, PpmDenominator)
	}
	apply(&e.params)
	return nil
}

// SetMaxOutstandingSupply replaces the supply cap targeted by the next epoch
// rebalance. Owner-or-governance only.
func (e *Engine) SetMaxOutstandingSupply(caller common.Address, cap *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireGovernance(caller); err != nil {
		return err
	}
	if cap == nil || cap.Sign() < 0 {
		return fmt.Errorf("%w: supply cap must not be negative", ErrInvalidParameter)
	}
	e.params.MaxOutstandingSupply = new(big.Int).Set(cap)
	return nil
}

// SetEpochLength updates the duration of future epochs; the bounds of a
// running epoch are unaffected. Owner-or-governance only.
func (e *Engine) SetEpochLength(caller common.Address, length time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireGovernance(caller); err != nil {
		return err
	}
	if length < time.Second {
		return fmt.Errorf("%w: epoch length must be at least one second", ErrInvalidParameter)
	}
	e.params.EpochLength = length
	return nil
}

// SetCooldownPeriod updates the settlement window applied after the current
// and future epochs. Owner-or-governance only.
func (e *Engine) SetCooldownPeriod(caller common.Address, cooldown time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireGovernance(caller); err != nil {
		return err
	}
	if cooldown < 0 {
		return fmt.Errorf("%w: cooldown must not be negative", ErrInvalidParameter)
	}
	e.params.CooldownPeriod = cooldown
	return nil
}

// SetUseDefaultDiscount switches between the static default and the pluggable
// discount strategy. Gated by PermToggleDefaultDiscount or governance.
func (e *Engine) SetUseDefaultDiscount(caller common.Address, useDefault bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(caller, PermToggleDefaultDiscount); err != nil {
		return err
	}
	e.params.UseDefaultDiscount = useDefault
	return nil
}

// PauseBuying toggles the buy pause flag. Gated by PermPauseBuying or
// governance.
func (e *Engine) PauseBuying(caller common.Address, paused bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(caller, PermPauseBuying); err != nil {
		return err
	}
	e.buyingPaused = paused
	return nil
}

// PauseSelling toggles the sell pause flag. Gated by PermPauseSelling or
// governance.
func (e *Engine) PauseSelling(caller common.Address, paused bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(caller, PermPauseSelling); err != nil {
		return err
	}
	e.sellingPaused = paused
	return nil
}

// PauseRedeeming toggles the redeem pause flag. Gated by PermPauseRedeeming
// or governance.
func (e *Engine) PauseRedeeming(caller common.Address, paused bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(caller, PermPauseRedeeming); err != nil {
		return err
	}
	e.redeemingPaused = paused
	return nil
}

// RecoverForeignToken transfers a token accidentally sent to the engine out
// to the destination. The two pool tokens are never recoverable.
// Owner-or-governance only.
func (e *Engine) RecoverForeignToken(caller, token common.Address, amount *big.Int, destination common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireGovernance(caller); err != nil {
		return err
	}
	if token == e.referenceAddr || token == e.bondAddr {
		return ErrPoolToken
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidInput
	}
	if e.directory == nil {
		return fmt.Errorf("%w: token directory not configured", ErrInvalidInput)
	}
	foreign, err := e.directory.TokenAt(token)
	if err != nil {
		return err
	}
	if err := foreign.Transfer(destination, amount); err != nil {
		return err
	}
	e.emitter.Emit(events.TokenRecovered{
		Caller:      caller,
		Token:       token,
		Destination: destination,
		Amount:      new(big.Int).Set(amount),
		Timestamp:   e.now().Unix(),
	})
	return nil
}

// ExpandSupply mints matched bond and reference amounts into engine custody
// at the current spot price and raises the cap accordingly. This is a
// privileged escape hatch: it bypasses the floor curve and the epoch
// rebalance entirely. Owner-or-governance, in-epoch only.
func (e *Engine) ExpandSupply(caller common.Address, bonds *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	if err := e.requireGovernance(caller); err != nil {
		return err
	}
	if e.reference == nil || e.bond == nil {
		return ErrNilToken
	}
	if phaseAt(now, e.epoch, e.params.CooldownPeriod) != PhaseInEpoch {
		return ErrNotInEpoch
	}
	if bonds == nil || bonds.Sign() <= 0 {
		return ErrInvalidInput
	}
	matched, err := e.spotMatch(bonds)
	if err != nil {
		return err
	}
	if err := e.bond.Mint(e.self, bonds); err != nil {
		return err
	}
	if err := e.reference.Mint(e.self, matched); err != nil {
		return err
	}
	e.params.MaxOutstandingSupply = new(big.Int).Add(e.params.MaxOutstandingSupply, bonds)
	e.emitter.Emit(events.SupplyIntervention{
		Caller:    caller,
		Bonds:     new(big.Int).Set(bonds),
		Reference: matched,
		NewCap:    new(big.Int).Set(e.params.MaxOutstandingSupply),
		Expand:    true,
		Timestamp: now.Unix(),
	})
	return nil
}

// ContractSupply burns matched bond and reference amounts from engine custody
// at the current spot price and lowers the cap accordingly. Same escape-hatch
// caveats as ExpandSupply. Owner-or-governance, in-epoch only.
func (e *Engine) ContractSupply(caller common.Address, bonds *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	if err := e.requireGovernance(caller); err != nil {
		return err
	}
	if e.reference == nil || e.bond == nil {
		return ErrNilToken
	}
	if phaseAt(now, e.epoch, e.params.CooldownPeriod) != PhaseInEpoch {
		return ErrNotInEpoch
	}
	if bonds == nil || bonds.Sign() <= 0 {
		return ErrInvalidInput
	}
	if bonds.Cmp(e.params.MaxOutstandingSupply) > 0 {
		return fmt.Errorf("%w: contraction exceeds supply cap", ErrInvalidParameter)
	}
	matched, err := e.spotMatch(bonds)
	if err != nil {
		return err
	}
	refReserve, bondReserve, err := e.reserves()
	if err != nil {
		return err
	}
	if bondReserve.Cmp(bonds) < 0 || refReserve.Cmp(matched) < 0 {
		return ErrInsufficientCustody
	}
	if err := e.bond.BurnFrom(e.self, bonds); err != nil {
		return err
	}
	if err := e.reference.BurnFrom(e.self, matched); err != nil {
		return err
	}
	e.params.MaxOutstandingSupply = new(big.Int).Sub(e.params.MaxOutstandingSupply, bonds)
	e.emitter.Emit(events.SupplyIntervention{
		Caller:    caller,
		Bonds:     new(big.Int).Set(bonds),
		Reference: matched,
		NewCap:    new(big.Int).Set(e.params.MaxOutstandingSupply),
		Expand:    false,
		Timestamp: now.Unix(),
	})
	return nil
}

// spotMatch converts a bond amount into reference-asset units at the current
// reserve-ratio price.
func (e *Engine) spotMatch(bonds *big.Int) (*big.Int, error) {
	refReserve, bondReserve, err := e.reserves()
	if err != nil {
		return nil, err
	}
	if bondReserve.Sign() == 0 {
		return nil, ErrInvalidInput
	}
	matched := new(big.Int).Mul(bonds, refReserve)
	return matched.Quo(matched, bondReserve), nil
}
