// Package rpc exposes the bond engine over HTTP: trading and settlement
// entry points, epoch control, quotes, status and the settlement ledger.
package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parbond/ledger"
	"parbond/native/bond"
	"parbond/observability"
)

// Server bundles the engine with its read-side collaborators.
type Server struct {
	engine   *bond.Engine
	recorder *ledger.Recorder
	log      *slog.Logger
	metrics  *observability.EngineMetrics
	limiter  *rateLimiter
}

// NewServer constructs the HTTP surface. The recorder may be nil, which
// disables the records listing.
func NewServer(engine *bond.Engine, recorder *ledger.Recorder, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		engine:   engine,
		recorder: recorder,
		log:      log,
		metrics:  observability.Engine(),
	}
}

// WithRateLimit throttles mutating endpoints to perMinute requests per
// client. Call before Router.
func (s *Server) WithRateLimit(perMinute float64, burst int) *Server {
	s.limiter = newRateLimiter(perMinute, burst)
	return s
}

// Router assembles the chi routing tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(api chi.Router) {
		api.Get("/status", s.handleStatus)
		api.Get("/quotes", s.handleQuotes)
		api.Get("/records", s.handleRecords)
		api.Group(func(mutating chi.Router) {
			mutating.Use(s.limiter.middleware)
			mutating.Post("/trades/buy", s.handleBuy)
			mutating.Post("/trades/sell", s.handleSell)
			mutating.Post("/redemptions", s.handleRedeem)
			mutating.Post("/epochs", s.handleStartEpoch)
			mutating.Post("/admin/pause", s.handlePause)
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorPayload struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeEngineError maps the engine error taxonomy onto HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, bond.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, bond.ErrInvalidInput), errors.Is(err, bond.ErrInvalidParameter):
		status = http.StatusBadRequest
	case errors.Is(err, bond.ErrNotInEpoch),
		errors.Is(err, bond.ErrNotInCooldown),
		errors.Is(err, bond.ErrEpochActive),
		errors.Is(err, bond.ErrSettlementInProgress),
		errors.Is(err, bond.ErrNoEpochStarted):
		status = http.StatusConflict
	case errors.Is(err, bond.ErrOperationPaused):
		status = http.StatusServiceUnavailable
	case errors.Is(err, bond.ErrFloorPriceReached),
		errors.Is(err, bond.ErrAboveParPrice),
		errors.Is(err, bond.ErrSlippageExceeded),
		errors.Is(err, bond.ErrSupplyCapExceeded),
		errors.Is(err, bond.ErrDiscountTooHigh),
		errors.Is(err, bond.ErrInsufficientCustody):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, errorPayload{Error: err.Error()})
}
