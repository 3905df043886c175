package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"parbond/core/events"
	"parbond/core/types"
)

// Recorder persists engine events. It satisfies events.Emitter so it can be
// wired straight into the engine; persistence failures are logged rather than
// surfaced because the emitting operation has already committed.
type Recorder struct {
	db  *gorm.DB
	log *slog.Logger
}

// NewRecorder constructs a recorder over an already-migrated database.
func NewRecorder(db *gorm.DB, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{db: db, log: log}
}

// Emit implements events.Emitter.
func (r *Recorder) Emit(evt events.Event) {
	if r == nil || r.db == nil || evt == nil {
		return
	}
	record, ok := toRecord(evt)
	if !ok {
		return
	}
	if err := r.db.Create(&record).Error; err != nil {
		r.log.Error("ledger: persist settlement record failed",
			"eventType", record.EventType, "err", err)
	}
}

// Query narrows record listings.
type Query struct {
	Kind  string
	Since time.Time
	Limit int
}

// Records lists persisted records newest-first according to the query.
func (r *Recorder) Records(q Query) ([]SettlementRecord, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("ledger: recorder not configured")
	}
	tx := r.db.Model(&SettlementRecord{}).Order("event_time desc")
	if q.Kind != "" {
		tx = tx.Where("kind = ?", q.Kind)
	}
	if !q.Since.IsZero() {
		tx = tx.Where("event_time >= ?", q.Since)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var out []SettlementRecord
	if err := tx.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("ledger: list records: %w", err)
	}
	return out, nil
}

// toRecord flattens an engine event into a row: the typed fields fill the
// indexed columns and the full attribute payload lands in Detail, so the
// row stays queryable without losing fields the columns do not model.
func toRecord(evt events.Event) (SettlementRecord, bool) {
	payload := evt.Event()
	record := SettlementRecord{
		ID:        uuid.New(),
		EventType: payload.Type,
		Detail:    detailJSON(payload),
	}
	switch e := evt.(type) {
	case events.BondRedeemed:
		record.Kind = KindRedemption
		record.Caller = e.Redeemer.Hex()
		record.AmountIn = amountString(e.BondsIn)
		record.AmountOut = amountString(e.AmountOut)
		record.Fee = amountString(e.FeeRef)
		record.EventTime = time.Unix(e.Timestamp, 0).UTC()
	case events.BondBought:
		record.Kind = KindTrade
		record.Caller = e.Buyer.Hex()
		record.AmountIn = amountString(e.AmountIn)
		record.AmountOut = amountString(e.BondsOut)
		record.Fee = amountString(e.FeeBonds)
		record.EventTime = time.Unix(e.Timestamp, 0).UTC()
	case events.BondSold:
		record.Kind = KindTrade
		record.Caller = e.Seller.Hex()
		record.AmountIn = amountString(e.BondsIn)
		record.AmountOut = amountString(e.AmountOut)
		record.Fee = amountString(e.FeeRef)
		record.EventTime = time.Unix(e.Timestamp, 0).UTC()
	case events.EpochStarted:
		record.Kind = KindEpoch
		record.Caller = e.Caller.Hex()
		record.AmountOut = amountString(e.ReserveAfter)
		record.EventTime = time.Unix(e.EpochStart, 0).UTC()
	case events.SupplyIntervention:
		record.Kind = KindSupply
		record.Caller = e.Caller.Hex()
		record.AmountIn = amountString(e.Bonds)
		record.AmountOut = amountString(e.Reference)
		record.EventTime = time.Unix(e.Timestamp, 0).UTC()
	case events.TokenRecovered:
		record.Kind = KindRecovery
		record.Caller = e.Caller.Hex()
		record.AmountOut = amountString(e.Amount)
		record.EventTime = time.Unix(e.Timestamp, 0).UTC()
	default:
		return SettlementRecord{}, false
	}
	return record, true
}

func detailJSON(payload *types.Event) string {
	if payload == nil {
		return ""
	}
	raw, err := json.Marshal(payload.Attributes)
	if err != nil {
		return ""
	}
	return string(raw)
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
