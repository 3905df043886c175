// Package token provides the in-process token primitive consumed by the bond
// engine: a balance ledger with transfer, operator pull, mint and burn. The
// deployment hands the engine a handle bound to its custody address; holding
// a handle is the pool/issuer authorisation the engine's contract assumes.
package token

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInvalidAmount indicates a nil, zero or negative amount.
	ErrInvalidAmount = errors.New("token: amount must be positive")
	// ErrInsufficientBalance indicates the debited holder cannot cover the amount.
	ErrInsufficientBalance = errors.New("token: insufficient balance")
)

// Ledger is a process-local token: a supply total plus per-address balances.
// All methods are safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	symbol   string
	addr     common.Address
	balances map[common.Address]*big.Int
	total    *big.Int
}

// NewLedger constructs an empty ledger identified by the given symbol and
// token address.
func NewLedger(symbol string, addr common.Address) *Ledger {
	return &Ledger{
		symbol:   symbol,
		addr:     addr,
		balances: make(map[common.Address]*big.Int),
		total:    big.NewInt(0),
	}
}

// Symbol returns the token symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// Address returns the token's identifying address.
func (l *Ledger) Address() common.Address { return l.addr }

// Handle binds the ledger to a holder address, yielding the capability object
// that satisfies the engine's Token contract.
func (l *Ledger) Handle(holder common.Address) *Handle {
	return &Handle{ledger: l, holder: holder}
}

// BalanceOf returns the holder's balance.
func (l *Ledger) BalanceOf(holder common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balance(holder)), nil
}

// TotalSupply returns the outstanding supply.
func (l *Ledger) TotalSupply() (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.total), nil
}

// Mint credits the recipient and grows the supply.
func (l *Ledger) Mint(to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[to] = new(big.Int).Add(l.balance(to), amount)
	l.total = new(big.Int).Add(l.total, amount)
	return nil
}

// BurnFrom debits the holder and shrinks the supply.
func (l *Ledger) BurnFrom(holder common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.balance(holder)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: burn %s from %s", ErrInsufficientBalance, amount, holder.Hex())
	}
	l.balances[holder] = new(big.Int).Sub(balance, amount)
	l.total = new(big.Int).Sub(l.total, amount)
	return nil
}

// TransferBetween moves amount from one holder to another.
func (l *Ledger) TransferBetween(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.balance(from)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: transfer %s from %s", ErrInsufficientBalance, amount, from.Hex())
	}
	l.balances[from] = new(big.Int).Sub(balance, amount)
	l.balances[to] = new(big.Int).Add(l.balance(to), amount)
	return nil
}

// balance returns the stored balance without copying. Callers hold l.mu.
func (l *Ledger) balance(holder common.Address) *big.Int {
	if b, ok := l.balances[holder]; ok {
		return b
	}
	return big.NewInt(0)
}

// Handle is a ledger capability bound to a holder. Transfer debits the bound
// holder; the remaining methods delegate to the ledger directly.
type Handle struct {
	ledger *Ledger
	holder common.Address
}

// BalanceOf returns the balance of an arbitrary holder.
func (h *Handle) BalanceOf(holder common.Address) (*big.Int, error) {
	return h.ledger.BalanceOf(holder)
}

// TotalSupply returns the outstanding supply.
func (h *Handle) TotalSupply() (*big.Int, error) {
	return h.ledger.TotalSupply()
}

// Transfer moves amount from the bound holder to the recipient.
func (h *Handle) Transfer(to common.Address, amount *big.Int) error {
	return h.ledger.TransferBetween(h.holder, to, amount)
}

// TransferFrom pulls amount from an arbitrary holder. The handle embodies the
// operator authorisation, so no separate allowance bookkeeping exists.
func (h *Handle) TransferFrom(from, to common.Address, amount *big.Int) error {
	return h.ledger.TransferBetween(from, to, amount)
}

// Mint credits the recipient and grows the supply.
func (h *Handle) Mint(to common.Address, amount *big.Int) error {
	return h.ledger.Mint(to, amount)
}

// BurnFrom debits the holder and shrinks the supply.
func (h *Handle) BurnFrom(holder common.Address, amount *big.Int) error {
	return h.ledger.BurnFrom(holder, amount)
}
