package rpc

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"parbond/ledger"
)

type tradeParams struct {
	Caller   string `json:"caller"`
	AmountIn string `json:"amountIn"`
	MinOut   string `json:"minOut,omitempty"`
}

type tradeResult struct {
	AmountOut string `json:"amountOut"`
	Fee       string `json:"fee"`
}

type epochParams struct {
	Caller string `json:"caller"`
}

type pauseParams struct {
	Caller    string `json:"caller"`
	Operation string `json:"operation"`
	Paused    bool   `json:"paused"`
}

type statusResult struct {
	Phase             string `json:"phase"`
	EpochStart        int64  `json:"epochStart,omitempty"`
	EpochEnd          int64  `json:"epochEnd,omitempty"`
	FloorPricePpm     uint64 `json:"floorPricePpm"`
	SpotPricePpm      string `json:"spotPricePpm"`
	ReferenceReserve  string `json:"referenceReserve"`
	BondReserve       string `json:"bondReserve"`
	OutstandingSupply string `json:"outstandingSupply"`
	SupplyCap         string `json:"supplyCap"`
	BuyingPaused      bool   `json:"buyingPaused"`
	SellingPaused     bool   `json:"sellingPaused"`
	RedeemingPaused   bool   `json:"redeemingPaused"`
}

type quotesResult struct {
	MinimumBuyInput  string `json:"minimumBuyInput"`
	MaximumSellInput string `json:"maximumSellInput"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st, err := s.engine.Status()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	result := statusResult{
		Phase:             st.Phase.String(),
		FloorPricePpm:     st.FloorPricePpm,
		SpotPricePpm:      st.SpotPricePpm.String(),
		ReferenceReserve:  st.ReferenceReserve.String(),
		BondReserve:       st.BondReserve.String(),
		OutstandingSupply: st.OutstandingSupply.String(),
		SupplyCap:         st.SupplyCap.String(),
		BuyingPaused:      st.BuyingPaused,
		SellingPaused:     st.SellingPaused,
		RedeemingPaused:   st.RedeemingPaused,
	}
	if !st.EpochStart.IsZero() {
		result.EpochStart = st.EpochStart.Unix()
		result.EpochEnd = st.EpochEnd.Unix()
	}
	if st.SpotPricePpm.IsUint64() {
		s.metrics.SetPrices(st.FloorPricePpm, float64(st.SpotPricePpm.Uint64()))
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleQuotes(w http.ResponseWriter, _ *http.Request) {
	minBuy, err := s.engine.MinimumBuyInput()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	maxSell, err := s.engine.MaximumSellInput()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quotesResult{
		MinimumBuyInput:  minBuy.String(),
		MaximumSellInput: maxSell.String(),
	})
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	s.handleTrade(w, r, "buy", s.engine.Buy)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	s.handleTrade(w, r, "sell", s.engine.Sell)
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	s.handleTrade(w, r, "redeem", s.engine.Redeem)
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request, operation string,
	op func(common.Address, *big.Int, *big.Int) (*big.Int, *big.Int, error)) {
	started := time.Now()
	var params tradeParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: "invalid JSON body"})
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: err.Error()})
		return
	}
	amountIn, err := parseAmount(params.AmountIn, "amountIn")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: err.Error()})
		return
	}
	var minOut *big.Int
	if params.MinOut != "" {
		if minOut, err = parseAmount(params.MinOut, "minOut"); err != nil {
			writeJSON(w, http.StatusBadRequest, errorPayload{Error: err.Error()})
			return
		}
	}
	out, fee, err := op(caller, amountIn, minOut)
	s.metrics.Observe(operation, started, err)
	if err != nil {
		s.log.Info("trade rejected", "operation", operation, "caller", caller.Hex(), "err", err)
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tradeResult{AmountOut: out.String(), Fee: fee.String()})
}

func (s *Server) handleStartEpoch(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var params epochParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: "invalid JSON body"})
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: err.Error()})
		return
	}
	err = s.engine.StartNewEpoch(caller)
	s.metrics.Observe("start_epoch", started, err)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	epoch := s.engine.Epoch()
	writeJSON(w, http.StatusOK, map[string]int64{
		"epochStart": epoch.Start.Unix(),
		"epochEnd":   epoch.End.Unix(),
	})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	var params pauseParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: "invalid JSON body"})
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: err.Error()})
		return
	}
	switch params.Operation {
	case "buy":
		err = s.engine.PauseBuying(caller, params.Paused)
	case "sell":
		err = s.engine.PauseSelling(caller, params.Paused)
	case "redeem":
		err = s.engine.PauseRedeeming(caller, params.Paused)
	default:
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: "operation must be buy, sell or redeem"})
		return
	}
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": params.Paused})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if s.recorder == nil {
		writeJSON(w, http.StatusNotFound, errorPayload{Error: "settlement ledger not enabled"})
		return
	}
	q := ledger.Query{Kind: r.URL.Query().Get("kind"), Limit: 100}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeJSON(w, http.StatusBadRequest, errorPayload{Error: "limit must be a positive integer"})
			return
		}
		q.Limit = limit
	}
	records, err := s.recorder.Records(q)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorPayload{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("caller %q is not a hex address", raw)
	}
	return common.HexToAddress(raw), nil
}

func parseAmount(raw, field string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("%s %q is not a decimal amount", field, raw)
	}
	return amount, nil
}
