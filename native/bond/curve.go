package bond

import (
	"math/big"
	"time"
)

// DiscountStrategy produces the epoch-start discount in ppm. Implementations
// may price the discount off market data; the engine applies the failsafe cap
// before acting on the returned value.
type DiscountStrategy interface {
	InitialDiscountPpm() uint64
}

// StaticDiscount is a DiscountStrategy that always returns a fixed ppm value.
type StaticDiscount uint64

// InitialDiscountPpm implements DiscountStrategy.
func (d StaticDiscount) InitialDiscountPpm() uint64 { return uint64(d) }

// initialDiscount resolves the discount for the next or current epoch: the
// configured default when UseDefaultDiscount is set, otherwise the pluggable
// strategy's output. A nil strategy falls back to the default.
func (e *Engine) initialDiscount() uint64 {
	if e.params.UseDefaultDiscount || e.discount == nil {
		return clampPpm(e.params.DefaultInitialDiscountPpm)
	}
	return clampPpm(e.discount.InitialDiscountPpm())
}

// initialPrice is the epoch-start floor in ppm: par minus the discount.
func (e *Engine) initialPrice() uint64 {
	return PpmDenominator - e.initialDiscount()
}

// floorPrice evaluates the floor curve at the given instant: a line from the
// initial discounted price at epoch start to par at epoch end. Past the
// epoch end the raw line would keep rising above par; the value is held at
// par instead so the status and quote views stay within [initial, par] —
// trading paths never consult the curve outside the epoch because they gate
// on the phase first. The slope follows the committed epoch bounds, so
// changing the epoch length mid-epoch does not bend the running curve.
func (e *Engine) floorPrice(now time.Time) (uint64, error) {
	if !e.epoch.Started() || now.Before(e.epoch.Start) {
		return 0, ErrNoEpochStarted
	}
	if !now.Before(e.epoch.End) {
		return PpmDenominator, nil
	}
	discount := e.epochDiscountPpm
	elapsed := new(big.Int).SetInt64(int64(now.Sub(e.epoch.Start) / time.Second))
	length := new(big.Int).SetInt64(int64(e.epoch.End.Sub(e.epoch.Start) / time.Second))
	recovered := new(big.Int).SetUint64(discount)
	recovered.Mul(recovered, elapsed)
	recovered.Quo(recovered, length)
	floor := new(big.Int).SetUint64(PpmDenominator - discount)
	floor.Add(floor, recovered)
	return floor.Uint64(), nil
}
