package rpc

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"parbond/ledger"
	"parbond/native/bond"
	"parbond/token"
)

var (
	custodyAddr = common.HexToAddress("0xc0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0c0")
	ownerAddr   = common.HexToAddress("0x0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a")
	traderAddr  = common.HexToAddress("0x7777777777777777777777777777777777777777")
	refAddr     = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bondAddr    = common.HexToAddress("0x1212121212121212121212121212121212121212")
)

type fixture struct {
	server *httptest.Server
	ref    *token.Ledger
	bonds  *token.Ledger
	now    *time.Time
}

func wei(units int64) *big.Int {
	exp := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return new(big.Int).Mul(big.NewInt(units), exp)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	params := bond.Params{
		CooldownPeriod:                259_200 * time.Second,
		EpochLength:                   2_592_000 * time.Second,
		MaxOutstandingSupply:          wei(100_000),
		BuyingFeePpm:                  10_000,
		SellingFeePpm:                 10_000,
		RedemptionFeePpm:              5_000,
		DefaultInitialDiscountPpm:     400_000,
		FailsafeMaxInitialDiscountPpm: 500_000,
		UseDefaultDiscount:            true,
	}
	engine, err := bond.NewEngine(custodyAddr, ownerAddr, ownerAddr, params)
	require.NoError(t, err)

	refLedger := token.NewLedger("REF", refAddr)
	bondLedger := token.NewLedger("BOND", bondAddr)
	engine.SetReferenceToken(refAddr, refLedger.Handle(custodyAddr))
	engine.SetBondToken(bondAddr, bondLedger.Handle(custodyAddr))
	engine.SetRoles(bond.NewRoleSet())

	now := time.Unix(1_700_000_000, 0)
	engine.SetClock(func() time.Time { return now })

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, ledger.AutoMigrate(db))
	recorder := ledger.NewRecorder(db, nil)
	engine.SetEmitter(recorder)

	ts := httptest.NewServer(NewServer(engine, recorder, nil).Router())
	t.Cleanup(ts.Close)
	return &fixture{server: ts, ref: refLedger, bonds: bondLedger, now: &now}
}

func (f *fixture) post(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil
	}
	return payload
}

func (f *fixture) startEpoch(t *testing.T) {
	t.Helper()
	resp, _ := f.post(t, "/v1/epochs", map[string]any{"caller": ownerAddr.Hex()})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	resp, body := f.get(t, "/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body["status"])
}

func TestStatusBeforeFirstEpoch(t *testing.T) {
	f := newFixture(t)
	resp, body := f.get(t, "/v1/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "idle", body["phase"])
	require.Equal(t, float64(0), body["floorPricePpm"])
	require.NotContains(t, body, "epochStart")
}

func TestEpochLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)
	f.startEpoch(t)

	resp, body := f.get(t, "/v1/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "in_epoch", body["phase"])
	require.Equal(t, float64(600_000), body["floorPricePpm"])
	require.Equal(t, wei(100_000).String(), body["outstandingSupply"])
	require.Equal(t, wei(60_000).String(), body["referenceReserve"])

	// A second start while in-epoch conflicts.
	resp, _ = f.post(t, "/v1/epochs", map[string]any{"caller": ownerAddr.Hex()})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestBuyOverHTTP(t *testing.T) {
	f := newFixture(t)
	f.startEpoch(t)
	require.NoError(t, f.ref.Mint(traderAddr, wei(5_000)))

	resp, body := f.post(t, "/v1/trades/buy", map[string]any{
		"caller":   traderAddr.Hex(),
		"amountIn": wei(5_000).String(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body["amountOut"])

	out, ok := new(big.Int).SetString(body["amountOut"].(string), 10)
	require.True(t, ok)
	balance, err := f.bonds.BalanceOf(traderAddr)
	require.NoError(t, err)
	require.Zero(t, balance.Cmp(out))
}

func TestBuyRejectionsMapToStatuses(t *testing.T) {
	f := newFixture(t)

	// Idle phase conflicts.
	resp, _ := f.post(t, "/v1/trades/buy", map[string]any{
		"caller":   traderAddr.Hex(),
		"amountIn": "1",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// Malformed caller.
	resp, _ = f.post(t, "/v1/trades/buy", map[string]any{
		"caller":   "nope",
		"amountIn": "1",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Pause wins over phase.
	resp, _ = f.post(t, "/v1/admin/pause", map[string]any{
		"caller":    ownerAddr.Hex(),
		"operation": "buy",
		"paused":    true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = f.post(t, "/v1/trades/buy", map[string]any{
		"caller":   traderAddr.Hex(),
		"amountIn": "1",
	})
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestPauseRequiresAuthority(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.post(t, "/v1/admin/pause", map[string]any{
		"caller":    traderAddr.Hex(),
		"operation": "sell",
		"paused":    true,
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = f.post(t, "/v1/admin/pause", map[string]any{
		"caller":    ownerAddr.Hex(),
		"operation": "mint",
		"paused":    true,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQuotesOverHTTP(t *testing.T) {
	f := newFixture(t)
	f.startEpoch(t)
	*f.now = f.now.Add(1_296_000 * time.Second)

	resp, body := f.get(t, "/v1/quotes")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	// Halfway through the epoch the floor is 800000 ppm; lifting the
	// 60000/100000 pool there takes 20000 reference units.
	require.Equal(t, wei(20_000).String(), body["minimumBuyInput"])
	require.Equal(t, "0", body["maximumSellInput"])
}

func TestQuotesConflictBeforeFirstEpoch(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.get(t, "/v1/quotes")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRedemptionRecordedInLedger(t *testing.T) {
	f := newFixture(t)
	f.startEpoch(t)
	require.NoError(t, f.bonds.Mint(traderAddr, wei(1_000)))
	*f.now = f.now.Add(2_592_000 * time.Second)

	resp, body := f.post(t, "/v1/redemptions", map[string]any{
		"caller":   traderAddr.Hex(),
		"amountIn": wei(1_000).String(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, wei(995).String(), body["amountOut"])
	require.Equal(t, wei(5).String(), body["fee"])

	recResp, err := http.Get(f.server.URL + "/v1/records?kind=" + ledger.KindRedemption)
	require.NoError(t, err)
	defer recResp.Body.Close()
	var records []ledger.SettlementRecord
	require.NoError(t, json.NewDecoder(recResp.Body).Decode(&records))
	require.Len(t, records, 1)
	require.Equal(t, traderAddr.Hex(), records[0].Caller)
}

func TestRecordsLimitValidation(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.get(t, "/v1/records?limit=-3")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
