package token

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"parbond/native/bond"
)

// Directory resolves token addresses to engine-usable handles. It backs the
// foreign-token recovery escape hatch, handing out handles bound to the
// engine custody address so recovery transfers debit engine holdings.
type Directory struct {
	mu      sync.RWMutex
	custody common.Address
	ledgers map[common.Address]*Ledger
}

// NewDirectory constructs a directory whose handles are bound to custody.
func NewDirectory(custody common.Address) *Directory {
	return &Directory{custody: custody, ledgers: make(map[common.Address]*Ledger)}
}

// Register adds a ledger to the directory.
func (d *Directory) Register(ledger *Ledger) {
	if ledger == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ledgers[ledger.Address()] = ledger
}

// TokenAt implements bond.TokenDirectory.
func (d *Directory) TokenAt(addr common.Address) (bond.Token, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ledger, ok := d.ledgers[addr]
	if !ok {
		return nil, fmt.Errorf("token: no ledger registered at %s", addr.Hex())
	}
	return ledger.Handle(d.custody), nil
}
