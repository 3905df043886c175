// Package ledger persists the engine's settlement trail: redemptions, epoch
// starts, privileged supply interventions and foreign-token recoveries. It
// subscribes to the engine event stream and stores one row per event.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Record kinds persisted by the ledger.
const (
	KindRedemption = "redemption"
	KindEpoch      = "epoch"
	KindSupply     = "supply"
	KindRecovery   = "recovery"
	KindTrade      = "trade"
)

// SettlementRecord is one persisted engine event. Amounts are stored as
// decimal strings because they exceed the integer range SQLite guarantees.
type SettlementRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind      string    `gorm:"size:32;index"`
	EventType string    `gorm:"size:64;index"`
	Caller    string    `gorm:"size:64;index"`
	AmountIn  string    `gorm:"size:96"`
	AmountOut string    `gorm:"size:96"`
	Fee       string    `gorm:"size:96"`
	Detail    string    `gorm:"size:1024"`
	EventTime time.Time `gorm:"index"`
	CreatedAt time.Time
}

// AutoMigrate performs the schema migrations for the ledger.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&SettlementRecord{})
}
