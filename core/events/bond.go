package events

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"parbond/core/types"
)

const (
	TypeEpochStarted     = "bond.epoch.started"
	TypeBondBought       = "bond.bought"
	TypeBondSold         = "bond.sold"
	TypeBondRedeemed     = "bond.redeemed"
	TypeSupplyExpanded   = "bond.supply.expanded"
	TypeSupplyContracted = "bond.supply.contracted"
	TypeTokenRecovered   = "bond.token.recovered"
)

// EpochStarted signals that a new issuance epoch has been opened after the
// supply rebalance committed.
type EpochStarted struct {
	Caller       common.Address
	EpochStart   int64
	EpochEnd     int64
	EpochLength  int64
	DiscountPpm  uint64
	SupplyCap    *big.Int
	ReserveAfter *big.Int
}

// EventType implements the Event interface.
func (EpochStarted) EventType() string { return TypeEpochStarted }

// Event converts the struct into a types.Event payload.
func (e EpochStarted) Event() *types.Event {
	return &types.Event{
		Type: TypeEpochStarted,
		Attributes: map[string]string{
			"caller":      e.Caller.Hex(),
			"epochStart":  strconv.FormatInt(e.EpochStart, 10),
			"epochEnd":    strconv.FormatInt(e.EpochEnd, 10),
			"epochLength": strconv.FormatInt(e.EpochLength, 10),
			"discountPpm": strconv.FormatUint(e.DiscountPpm, 10),
			"supplyCap":   formatAmount(e.SupplyCap),
			"reserve":     formatAmount(e.ReserveAfter),
		},
	}
}

// BondBought records a completed buy against the epoch market.
type BondBought struct {
	Buyer     common.Address
	AmountIn  *big.Int
	BondsOut  *big.Int
	FeeBonds  *big.Int
	PricePpm  uint64
	Timestamp int64
}

func (BondBought) EventType() string { return TypeBondBought }

// Event converts the struct into a types.Event payload.
func (e BondBought) Event() *types.Event {
	return &types.Event{
		Type: TypeBondBought,
		Attributes: map[string]string{
			"buyer":     e.Buyer.Hex(),
			"amountIn":  formatAmount(e.AmountIn),
			"bondsOut":  formatAmount(e.BondsOut),
			"fee":       formatAmount(e.FeeBonds),
			"pricePpm":  strconv.FormatUint(e.PricePpm, 10),
			"timestamp": strconv.FormatInt(e.Timestamp, 10),
		},
	}
}

// BondSold records a completed sell against the epoch market.
type BondSold struct {
	Seller    common.Address
	BondsIn   *big.Int
	AmountOut *big.Int
	FeeRef    *big.Int
	PricePpm  uint64
	Timestamp int64
}

func (BondSold) EventType() string { return TypeBondSold }

// Event converts the struct into a types.Event payload.
func (e BondSold) Event() *types.Event {
	return &types.Event{
		Type: TypeBondSold,
		Attributes: map[string]string{
			"seller":    e.Seller.Hex(),
			"bondsIn":   formatAmount(e.BondsIn),
			"amountOut": formatAmount(e.AmountOut),
			"fee":       formatAmount(e.FeeRef),
			"pricePpm":  strconv.FormatUint(e.PricePpm, 10),
			"timestamp": strconv.FormatInt(e.Timestamp, 10),
		},
	}
}

// BondRedeemed records a par settlement during the cooldown window.
type BondRedeemed struct {
	Redeemer  common.Address
	BondsIn   *big.Int
	AmountOut *big.Int
	FeeRef    *big.Int
	Timestamp int64
}

func (BondRedeemed) EventType() string { return TypeBondRedeemed }

// Event converts the struct into a types.Event payload.
func (e BondRedeemed) Event() *types.Event {
	return &types.Event{
		Type: TypeBondRedeemed,
		Attributes: map[string]string{
			"redeemer":  e.Redeemer.Hex(),
			"bondsIn":   formatAmount(e.BondsIn),
			"amountOut": formatAmount(e.AmountOut),
			"fee":       formatAmount(e.FeeRef),
			"timestamp": strconv.FormatInt(e.Timestamp, 10),
		},
	}
}

// SupplyIntervention captures a privileged mid-epoch expansion or contraction
// of the bond supply and its matched reference collateral.
type SupplyIntervention struct {
	Caller    common.Address
	Bonds     *big.Int
	Reference *big.Int
	NewCap    *big.Int
	Expand    bool
	Timestamp int64
}

// EventType implements the Event interface.
func (e SupplyIntervention) EventType() string {
	if e.Expand {
		return TypeSupplyExpanded
	}
	return TypeSupplyContracted
}

// Event converts the struct into a types.Event payload.
func (e SupplyIntervention) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"caller":    e.Caller.Hex(),
			"bonds":     formatAmount(e.Bonds),
			"reference": formatAmount(e.Reference),
			"newCap":    formatAmount(e.NewCap),
			"timestamp": strconv.FormatInt(e.Timestamp, 10),
		},
	}
}

// TokenRecovered records the escape-hatch recovery of a foreign token that was
// accidentally sent to the engine.
type TokenRecovered struct {
	Caller      common.Address
	Token       common.Address
	Destination common.Address
	Amount      *big.Int
	Timestamp   int64
}

func (TokenRecovered) EventType() string { return TypeTokenRecovered }

// Event converts the struct into a types.Event payload.
func (e TokenRecovered) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenRecovered,
		Attributes: map[string]string{
			"caller":      e.Caller.Hex(),
			"token":       e.Token.Hex(),
			"destination": e.Destination.Hex(),
			"amount":      formatAmount(e.Amount),
			"timestamp":   strconv.FormatInt(e.Timestamp, 10),
		},
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
