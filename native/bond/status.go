package bond

import (
	"math/big"
	"time"
)

// Status is a point-in-time snapshot of the engine, assembled under a single
// lock so its fields are mutually consistent.
type Status struct {
	Phase             Phase
	EpochStart        time.Time
	EpochEnd          time.Time
	FloorPricePpm     uint64
	SpotPricePpm      *big.Int
	ReferenceReserve  *big.Int
	BondReserve       *big.Int
	OutstandingSupply *big.Int
	SupplyCap         *big.Int
	BuyingPaused      bool
	SellingPaused     bool
	RedeemingPaused   bool
}

// Status assembles a consistent snapshot for monitoring and the RPC surface.
// FloorPricePpm and SpotPricePpm are zero before the first epoch and when the
// bond reserve is empty respectively.
func (e *Engine) Status() (Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	st := Status{
		Phase:           phaseAt(now, e.epoch, e.params.CooldownPeriod),
		EpochStart:      e.epoch.Start,
		EpochEnd:        e.epoch.End,
		SupplyCap:       new(big.Int).Set(e.params.MaxOutstandingSupply),
		BuyingPaused:    e.buyingPaused,
		SellingPaused:   e.sellingPaused,
		RedeemingPaused: e.redeemingPaused,
	}
	if floor, err := e.floorPrice(now); err == nil {
		st.FloorPricePpm = floor
	}
	refReserve, bondReserve, err := e.reserves()
	if err != nil {
		return Status{}, err
	}
	st.ReferenceReserve = refReserve
	st.BondReserve = bondReserve
	if bondReserve.Sign() > 0 {
		spot := new(big.Int).Mul(refReserve, ppmDenom)
		st.SpotPricePpm = spot.Quo(spot, bondReserve)
	} else {
		st.SpotPricePpm = big.NewInt(0)
	}
	total, err := e.bond.TotalSupply()
	if err != nil {
		return Status{}, err
	}
	st.OutstandingSupply = total
	return st, nil
}
