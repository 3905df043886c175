package ledger

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"parbond/core/events"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return NewRecorder(db, nil)
}

func TestRecorderPersistsRedemption(t *testing.T) {
	recorder := newTestRecorder(t)
	redeemer := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	now := time.Now().Unix()
	recorder.Emit(events.BondRedeemed{
		Redeemer:  redeemer,
		BondsIn:   big.NewInt(1_000),
		AmountOut: big.NewInt(995),
		FeeRef:    big.NewInt(5),
		Timestamp: now,
	})

	records, err := recorder.Records(Query{Kind: KindRedemption})
	require.NoError(t, err)
	require.Len(t, records, 1)
	record := records[0]
	require.Equal(t, redeemer.Hex(), record.Caller)
	require.Equal(t, "1000", record.AmountIn)
	require.Equal(t, "995", record.AmountOut)
	require.Equal(t, "5", record.Fee)
	require.Equal(t, time.Unix(now, 0).UTC(), record.EventTime.UTC())
}

func TestRecorderClassifiesKinds(t *testing.T) {
	recorder := newTestRecorder(t)
	caller := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	now := time.Now().Unix()

	recorder.Emit(events.BondBought{Buyer: caller, AmountIn: big.NewInt(1), BondsOut: big.NewInt(1), FeeBonds: big.NewInt(0), Timestamp: now})
	recorder.Emit(events.BondSold{Seller: caller, BondsIn: big.NewInt(1), AmountOut: big.NewInt(1), FeeRef: big.NewInt(0), Timestamp: now})
	recorder.Emit(events.EpochStarted{Caller: caller, EpochStart: now, EpochEnd: now + 60, EpochLength: 60, DiscountPpm: 400_000, SupplyCap: big.NewInt(100), ReserveAfter: big.NewInt(60)})
	recorder.Emit(events.SupplyIntervention{Caller: caller, Bonds: big.NewInt(10), Reference: big.NewInt(6), NewCap: big.NewInt(110), Expand: true, Timestamp: now})
	recorder.Emit(events.TokenRecovered{Caller: caller, Token: caller, Destination: caller, Amount: big.NewInt(7), Timestamp: now})

	for kind, want := range map[string]int{
		KindTrade:    2,
		KindEpoch:    1,
		KindSupply:   1,
		KindRecovery: 1,
	} {
		records, err := recorder.Records(Query{Kind: kind})
		require.NoError(t, err)
		require.Len(t, records, want, "kind %s", kind)
	}
}

func TestRecorderEpochDetailIncludesDiscount(t *testing.T) {
	recorder := newTestRecorder(t)
	caller := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	recorder.Emit(events.EpochStarted{
		Caller:       caller,
		EpochStart:   1_700_000_000,
		EpochEnd:     1_702_592_000,
		EpochLength:  2_592_000,
		DiscountPpm:  400_000,
		SupplyCap:    big.NewInt(100_000),
		ReserveAfter: big.NewInt(60_000),
	})
	records, err := recorder.Records(Query{Kind: KindEpoch})
	require.NoError(t, err)
	require.Len(t, records, 1)
	var attrs map[string]string
	require.NoError(t, json.Unmarshal([]byte(records[0].Detail), &attrs))
	require.Equal(t, "400000", attrs["discountPpm"])
	require.Equal(t, "100000", attrs["supplyCap"])
	require.Equal(t, "1700000000", attrs["epochStart"])
}

func TestRecorderDetailCarriesFullAttributePayload(t *testing.T) {
	recorder := newTestRecorder(t)
	buyer := common.HexToAddress("0x00000000000000000000000000000000000000ee")
	recorder.Emit(events.BondBought{
		Buyer:     buyer,
		AmountIn:  big.NewInt(5_000),
		BondsOut:  big.NewInt(7_615),
		FeeBonds:  big.NewInt(76),
		PricePpm:  650_000,
		Timestamp: 1_700_000_100,
	})
	records, err := recorder.Records(Query{Kind: KindTrade})
	require.NoError(t, err)
	require.Len(t, records, 1)
	// The price never gets its own column; it survives via the payload.
	var attrs map[string]string
	require.NoError(t, json.Unmarshal([]byte(records[0].Detail), &attrs))
	require.Equal(t, "650000", attrs["pricePpm"])
	require.Equal(t, buyer.Hex(), attrs["buyer"])
}

func TestRecorderQueryFilters(t *testing.T) {
	recorder := newTestRecorder(t)
	caller := common.HexToAddress("0x00000000000000000000000000000000000000dd")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		recorder.Emit(events.BondRedeemed{
			Redeemer:  caller,
			BondsIn:   big.NewInt(int64(i + 1)),
			AmountOut: big.NewInt(int64(i + 1)),
			FeeRef:    big.NewInt(0),
			Timestamp: base.Add(time.Duration(i) * time.Hour).Unix(),
		})
	}

	records, err := recorder.Records(Query{Limit: 2})
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Newest first.
	require.Equal(t, "5", records[0].AmountIn)
	require.Equal(t, "4", records[1].AmountIn)

	records, err = recorder.Records(Query{Since: base.Add(3 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestRecorderIgnoresNilAndUnknownEvents(t *testing.T) {
	recorder := newTestRecorder(t)
	recorder.Emit(nil)
	records, err := recorder.Records(Query{})
	require.NoError(t, err)
	require.Empty(t, records)
}
