package bond

import "math/big"

// PpmDenominator is the fixed-point denominator used for all fees, discounts
// and prices: parts per million.
const PpmDenominator = 1_000_000

var ppmDenom = big.NewInt(PpmDenominator)

// SwapOut returns the constant-product output for amountIn against the given
// reserves with feePpm deducted from the input side. Integer division
// truncates toward zero, so rounding always favours the pool.
func SwapOut(amountIn, reserveIn, reserveOut *big.Int, feePpm uint64) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInvalidInput
	}
	if reserveIn == nil || reserveIn.Sign() <= 0 || reserveOut == nil || reserveOut.Sign() <= 0 {
		return nil, ErrInvalidInput
	}
	net := new(big.Int).SetUint64(PpmDenominator - clampPpm(feePpm))
	net.Mul(net, amountIn)
	numerator := new(big.Int).Mul(net, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, ppmDenom)
	denominator.Add(denominator, net)
	return numerator.Quo(numerator, denominator), nil
}

// SwapOutNoFee is the fee-free specialisation of SwapOut, used for spot-price
// views and effective-price checks.
func SwapOutNoFee(amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	return SwapOut(amountIn, reserveIn, reserveOut, 0)
}

// feePortion returns amount*feePpm/1e6 truncated toward zero.
func feePortion(amount *big.Int, feePpm uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || feePpm == 0 {
		return big.NewInt(0)
	}
	portion := new(big.Int).SetUint64(clampPpm(feePpm))
	portion.Mul(portion, amount)
	return portion.Quo(portion, ppmDenom)
}

func clampPpm(v uint64) uint64 {
	if v > PpmDenominator {
		return PpmDenominator
	}
	return v
}
