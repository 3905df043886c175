package bond

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"parbond/core/events"
)

// Engine orchestrates the epoch lifecycle, the floor-bounded constant-product
// market and the par settlement window for a single bond issuance. All public
// operations run to completion under the engine lock; a failed operation
// leaves no partial effects because every check precedes the first transfer.
type Engine struct {
	mu sync.Mutex

	self     common.Address
	owner    common.Address
	timelock common.Address

	referenceAddr common.Address
	bondAddr      common.Address
	reference     Token
	bond          Token

	roles     RoleAuthority
	discount  DiscountStrategy
	directory TokenDirectory
	emitter   events.Emitter
	now       func() time.Time

	params Params
	epoch  EpochState
	// epochDiscountPpm is the discount captured when the current epoch was
	// opened; the floor curve interpolates from it even if the configured
	// discount changes mid-epoch.
	epochDiscountPpm uint64

	buyingPaused    bool
	sellingPaused   bool
	redeemingPaused bool
}

// NewEngine constructs an engine holding custody at self, governed by the
// owner and timelock addresses. Token collaborators are wired through the
// Set* methods before first use.
func NewEngine(self, owner, timelock common.Address, params Params) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		self:     self,
		owner:    owner,
		timelock: timelock,
		params:   params.Clone(),
		emitter:  events.NoopEmitter{},
		now:      time.Now,
	}, nil
}

// SetReferenceToken wires the stable reference asset collaborator.
func (e *Engine) SetReferenceToken(addr common.Address, token Token) {
	if e == nil {
		return
	}
	e.referenceAddr = addr
	e.reference = token
}

// SetBondToken wires the bond token collaborator.
func (e *Engine) SetBondToken(addr common.Address, token Token) {
	if e == nil {
		return
	}
	e.bondAddr = addr
	e.bond = token
}

// SetRoles wires the access-control provider consulted for pause and
// discount-toggle grants.
func (e *Engine) SetRoles(roles RoleAuthority) {
	if e == nil {
		return
	}
	e.roles = roles
}

// SetDiscountStrategy installs the pluggable discount model used when
// UseDefaultDiscount is off. Passing nil falls back to the default discount.
func (e *Engine) SetDiscountStrategy(strategy DiscountStrategy) {
	if e == nil {
		return
	}
	e.discount = strategy
}

// SetTokenDirectory wires the resolver used by foreign-token recovery.
func (e *Engine) SetTokenDirectory(directory TokenDirectory) {
	if e == nil {
		return
	}
	e.directory = directory
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetClock overrides the engine clock, primarily for deterministic testing.
func (e *Engine) SetClock(now func() time.Time) {
	if e == nil || now == nil {
		return
	}
	e.now = now
}

// CustodyAddress returns the address at which the engine holds its reserves.
func (e *Engine) CustodyAddress() common.Address { return e.self }

// Params returns a copy of the current parameter set.
func (e *Engine) Params() Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params.Clone()
}

// Phase reports the lifecycle phase at the current instant.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return phaseAt(e.now(), e.epoch, e.params.CooldownPeriod)
}

// Epoch returns the committed bounds of the most recent epoch.
func (e *Engine) Epoch() EpochState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epoch
}

// FloorPrice evaluates the floor curve at the current instant.
func (e *Engine) FloorPrice() (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.floorPrice(e.now())
}

// SpotPricePpm returns the instantaneous reserve-ratio price of the bond in
// ppm of the reference asset.
func (e *Engine) SpotPricePpm() (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	refReserve, bondReserve, err := e.reserves()
	if err != nil {
		return nil, err
	}
	if bondReserve.Sign() == 0 {
		return nil, ErrInvalidInput
	}
	spot := new(big.Int).Mul(refReserve, ppmDenom)
	return spot.Quo(spot, bondReserve), nil
}

// MinimumBuyInput quotes the reference-asset amount required to lift the
// effective buy price up to the floor. It is zero whenever the market already
// clears at or above the floor.
func (e *Engine) MinimumBuyInput() (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	floor, err := e.floorPrice(e.now())
	if err != nil {
		return nil, err
	}
	refReserve, bondReserve, err := e.reserves()
	if err != nil {
		return nil, err
	}
	return minimumBuyInput(floor, refReserve, bondReserve), nil
}

// MaximumSellInput quotes the largest bond amount sellable without pushing
// the effective price below the floor. It is zero when the market already
// sits at or below the floor.
func (e *Engine) MaximumSellInput() (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	floor, err := e.floorPrice(e.now())
	if err != nil {
		return nil, err
	}
	refReserve, bondReserve, err := e.reserves()
	if err != nil {
		return nil, err
	}
	return maximumSellInput(floor, refReserve, bondReserve), nil
}

// The effective no-fee buy price for input x is (refReserve+x)*1e6/bondReserve,
// so the floor binds at x = floor*bondReserve/1e6 - refReserve. The division
// rounds up so a quoted input always clears the floor check.
func minimumBuyInput(floorPpm uint64, refReserve, bondReserve *big.Int) *big.Int {
	needed := new(big.Int).SetUint64(floorPpm)
	needed.Mul(needed, bondReserve)
	needed.Add(needed, new(big.Int).Sub(ppmDenom, big.NewInt(1)))
	needed.Quo(needed, ppmDenom)
	needed.Sub(needed, refReserve)
	if needed.Sign() < 0 {
		return big.NewInt(0)
	}
	return needed
}

// The effective no-fee sell price for input x is refReserve*1e6/(bondReserve+x),
// so the floor binds at x = refReserve*1e6/floor - bondReserve.
func maximumSellInput(floorPpm uint64, refReserve, bondReserve *big.Int) *big.Int {
	if floorPpm == 0 {
		floorPpm = 1
	}
	room := new(big.Int).Mul(refReserve, ppmDenom)
	room.Quo(room, new(big.Int).SetUint64(floorPpm))
	room.Sub(room, bondReserve)
	if room.Sign() < 0 {
		return big.NewInt(0)
	}
	return room
}

// Buy spends the caller's reference asset for bonds at the constant-product
// price, rejecting any trade whose effective price falls below the floor. The
// buying fee is retained as bonds in engine custody. Returns the net bond
// output and the fee withheld.
func (e *Engine) Buy(caller common.Address, amountIn, minOut *big.Int) (*big.Int, *big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	if e.reference == nil || e.bond == nil {
		return nil, nil, ErrNilToken
	}
	if e.buyingPaused {
		return nil, nil, fmt.Errorf("%w: buying", ErrOperationPaused)
	}
	if phaseAt(now, e.epoch, e.params.CooldownPeriod) != PhaseInEpoch {
		return nil, nil, ErrNotInEpoch
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, nil, ErrInvalidInput
	}
	floor, err := e.floorPrice(now)
	if err != nil {
		return nil, nil, err
	}
	refReserve, bondReserve, err := e.reserves()
	if err != nil {
		return nil, nil, err
	}
	rawOut, err := SwapOutNoFee(amountIn, refReserve, bondReserve)
	if err != nil {
		return nil, nil, err
	}
	effective := big.NewInt(0)
	if rawOut.Sign() > 0 {
		effective = new(big.Int).Mul(amountIn, ppmDenom)
		effective.Quo(effective, rawOut)
		if effective.Cmp(new(big.Int).SetUint64(floor)) < 0 {
			return nil, nil, ErrFloorPriceReached
		}
	}
	fee := feePortion(rawOut, e.params.BuyingFeePpm)
	out := new(big.Int).Sub(rawOut, fee)
	if minOut != nil && out.Cmp(minOut) < 0 {
		return nil, nil, ErrSlippageExceeded
	}
	if err := e.reference.TransferFrom(caller, e.self, amountIn); err != nil {
		return nil, nil, err
	}
	if err := e.bond.Transfer(caller, out); err != nil {
		return nil, nil, err
	}
	e.emitter.Emit(events.BondBought{
		Buyer:     caller,
		AmountIn:  new(big.Int).Set(amountIn),
		BondsOut:  new(big.Int).Set(out),
		FeeBonds:  fee,
		PricePpm:  ppmOrZero(effective),
		Timestamp: now.Unix(),
	})
	return out, fee, nil
}

// Sell spends the caller's bonds for the reference asset, rejecting trades
// priced below the floor or above par. The selling fee is retained as
// reference asset in engine custody. Returns the net output and the fee.
func (e *Engine) Sell(caller common.Address, amountIn, minOut *big.Int) (*big.Int, *big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	if e.reference == nil || e.bond == nil {
		return nil, nil, ErrNilToken
	}
	if e.sellingPaused {
		return nil, nil, fmt.Errorf("%w: selling", ErrOperationPaused)
	}
	if phaseAt(now, e.epoch, e.params.CooldownPeriod) != PhaseInEpoch {
		return nil, nil, ErrNotInEpoch
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, nil, ErrInvalidInput
	}
	floor, err := e.floorPrice(now)
	if err != nil {
		return nil, nil, err
	}
	refReserve, bondReserve, err := e.reserves()
	if err != nil {
		return nil, nil, err
	}
	rawOut, err := SwapOutNoFee(amountIn, bondReserve, refReserve)
	if err != nil {
		return nil, nil, err
	}
	effective := new(big.Int).Mul(rawOut, ppmDenom)
	effective.Quo(effective, amountIn)
	if effective.Cmp(new(big.Int).SetUint64(floor)) < 0 {
		return nil, nil, ErrFloorPriceReached
	}
	if effective.Cmp(ppmDenom) > 0 {
		return nil, nil, ErrAboveParPrice
	}
	fee := feePortion(rawOut, e.params.SellingFeePpm)
	out := new(big.Int).Sub(rawOut, fee)
	if minOut != nil && out.Cmp(minOut) < 0 {
		return nil, nil, ErrSlippageExceeded
	}
	if err := e.bond.TransferFrom(caller, e.self, amountIn); err != nil {
		return nil, nil, err
	}
	if err := e.reference.Transfer(caller, out); err != nil {
		return nil, nil, err
	}
	e.emitter.Emit(events.BondSold{
		Seller:    caller,
		BondsIn:   new(big.Int).Set(amountIn),
		AmountOut: new(big.Int).Set(out),
		FeeRef:    fee,
		PricePpm:  ppmOrZero(effective),
		Timestamp: now.Unix(),
	})
	return out, fee, nil
}

// Redeem settles the caller's bonds at par minus the redemption fee during
// the cooldown window. The payout ignores AMM reserves entirely. Returns the
// net reference output and the fee.
func (e *Engine) Redeem(caller common.Address, amountIn, minOut *big.Int) (*big.Int, *big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	if e.reference == nil || e.bond == nil {
		return nil, nil, ErrNilToken
	}
	if e.redeemingPaused {
		return nil, nil, fmt.Errorf("%w: redeeming", ErrOperationPaused)
	}
	if phaseAt(now, e.epoch, e.params.CooldownPeriod) != PhaseInCooldown {
		return nil, nil, ErrNotInCooldown
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, nil, ErrInvalidInput
	}
	fee := feePortion(amountIn, e.params.RedemptionFeePpm)
	out := new(big.Int).Sub(amountIn, fee)
	if minOut != nil && out.Cmp(minOut) < 0 {
		return nil, nil, ErrSlippageExceeded
	}
	// The payout is par-based, not bounded by the pool invariant, so custody
	// may be short of it. Checking before the bond pull keeps a failed
	// redemption free of side effects.
	reserve, err := e.reference.BalanceOf(e.self)
	if err != nil {
		return nil, nil, err
	}
	if reserve.Cmp(out) < 0 {
		return nil, nil, ErrInsufficientCustody
	}
	if err := e.bond.TransferFrom(caller, e.self, amountIn); err != nil {
		return nil, nil, err
	}
	if err := e.reference.Transfer(caller, out); err != nil {
		return nil, nil, err
	}
	e.emitter.Emit(events.BondRedeemed{
		Redeemer:  caller,
		BondsIn:   new(big.Int).Set(amountIn),
		AmountOut: new(big.Int).Set(out),
		FeeRef:    fee,
		Timestamp: now.Unix(),
	})
	return out, fee, nil
}

// StartNewEpoch rebalances bond supply toward the cap and reference custody
// toward the discount-implied reserve, then commits the new epoch bounds. It
// is legal only from the idle phase; anyone may trigger it.
func (e *Engine) StartNewEpoch(caller common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	if e.reference == nil || e.bond == nil {
		return ErrNilToken
	}
	switch phaseAt(now, e.epoch, e.params.CooldownPeriod) {
	case PhaseInEpoch:
		return ErrEpochActive
	case PhaseInCooldown:
		return ErrSettlementInProgress
	}
	discount := e.initialDiscount()
	if discount > e.params.FailsafeMaxInitialDiscountPpm {
		return ErrDiscountTooHigh
	}
	if err := e.rebalanceSupply(); err != nil {
		return err
	}
	reserve, err := e.rebalanceCollateral()
	if err != nil {
		return err
	}
	e.epoch = EpochState{Start: now, End: now.Add(e.params.EpochLength)}
	e.epochDiscountPpm = discount
	e.emitter.Emit(events.EpochStarted{
		Caller:       caller,
		EpochStart:   e.epoch.Start.Unix(),
		EpochEnd:     e.epoch.End.Unix(),
		EpochLength:  int64(e.params.EpochLength / time.Second),
		DiscountPpm:  discount,
		SupplyCap:    new(big.Int).Set(e.params.MaxOutstandingSupply),
		ReserveAfter: reserve,
	})
	return nil
}

// rebalanceSupply burns held excess above the cap and mints the shortfall so
// the total outstanding bond supply lands exactly on the cap. Bonds held
// outside engine custody are never burned; when they alone exceed the cap the
// epoch start is blocked.
func (e *Engine) rebalanceSupply() error {
	cap := e.params.MaxOutstandingSupply
	total, err := e.bond.TotalSupply()
	if err != nil {
		return err
	}
	held, err := e.bond.BalanceOf(e.self)
	if err != nil {
		return err
	}
	if total.Cmp(cap) > 0 {
		burn := new(big.Int).Sub(total, cap)
		if burn.Cmp(held) > 0 {
			burn.Set(held)
		}
		if burn.Sign() > 0 {
			if err := e.bond.BurnFrom(e.self, burn); err != nil {
				return err
			}
			if total, err = e.bond.TotalSupply(); err != nil {
				return err
			}
			if held, err = e.bond.BalanceOf(e.self); err != nil {
				return err
			}
		}
	}
	if total.Cmp(cap) > 0 {
		return ErrSupplyCapExceeded
	}
	outside := new(big.Int).Sub(total, held)
	shortfall := new(big.Int).Sub(cap, outside)
	shortfall.Sub(shortfall, held)
	if shortfall.Sign() > 0 {
		if err := e.bond.Mint(e.self, shortfall); err != nil {
			return err
		}
	}
	return nil
}

// rebalanceCollateral mints or burns the reference asset so engine custody
// equals cap*initialPrice/1e6 exactly, and returns the resulting reserve.
func (e *Engine) rebalanceCollateral() (*big.Int, error) {
	desired := new(big.Int).SetUint64(e.initialPrice())
	desired.Mul(desired, e.params.MaxOutstandingSupply)
	desired.Quo(desired, ppmDenom)
	held, err := e.reference.BalanceOf(e.self)
	if err != nil {
		return nil, err
	}
	switch held.Cmp(desired) {
	case -1:
		deficit := new(big.Int).Sub(desired, held)
		if err := e.reference.Mint(e.self, deficit); err != nil {
			return nil, err
		}
	case 1:
		excess := new(big.Int).Sub(held, desired)
		if err := e.reference.BurnFrom(e.self, excess); err != nil {
			return nil, err
		}
	}
	return desired, nil
}

// reserves reads the live pool balances from the two token collaborators.
func (e *Engine) reserves() (*big.Int, *big.Int, error) {
	if e.reference == nil || e.bond == nil {
		return nil, nil, ErrNilToken
	}
	refReserve, err := e.reference.BalanceOf(e.self)
	if err != nil {
		return nil, nil, err
	}
	bondReserve, err := e.bond.BalanceOf(e.self)
	if err != nil {
		return nil, nil, err
	}
	return refReserve, bondReserve, nil
}

func ppmOrZero(price *big.Int) uint64 {
	if price == nil || !price.IsUint64() {
		return 0
	}
	return price.Uint64()
}
