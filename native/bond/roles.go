package bond

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Permission enumerates the delegated grants recognised by the engine. The
// set is closed: owner and timelock authority are resolved separately and
// carry every permission implicitly.
type Permission uint8

const (
	// PermPauseBuying allows toggling the buy pause flag.
	PermPauseBuying Permission = iota
	// PermPauseSelling allows toggling the sell pause flag.
	PermPauseSelling
	// PermPauseRedeeming allows toggling the redeem pause flag.
	PermPauseRedeeming
	// PermToggleDefaultDiscount allows switching between the default and the
	// strategy-supplied discount.
	PermToggleDefaultDiscount
)

// String implements fmt.Stringer.
func (p Permission) String() string {
	switch p {
	case PermPauseBuying:
		return "pause_buying"
	case PermPauseSelling:
		return "pause_selling"
	case PermPauseRedeeming:
		return "pause_redeeming"
	case PermToggleDefaultDiscount:
		return "toggle_default_discount"
	default:
		return "unknown"
	}
}

// RoleAuthority answers permission lookups for the engine. Grants are
// address-scoped; there is no role admin hierarchy.
type RoleAuthority interface {
	HasRole(perm Permission, addr common.Address) bool
	GrantRole(perm Permission, addr common.Address)
}

// RoleSet is an in-memory RoleAuthority keyed by the closed Permission enum.
type RoleSet struct {
	mu     sync.RWMutex
	grants map[Permission]map[common.Address]struct{}
}

// NewRoleSet returns an empty role registry.
func NewRoleSet() *RoleSet {
	return &RoleSet{grants: make(map[Permission]map[common.Address]struct{})}
}

// HasRole implements RoleAuthority.
func (r *RoleSet) HasRole(perm Permission, addr common.Address) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	holders, ok := r.grants[perm]
	if !ok {
		return false
	}
	_, ok = holders[addr]
	return ok
}

// GrantRole implements RoleAuthority.
func (r *RoleSet) GrantRole(perm Permission, addr common.Address) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	holders, ok := r.grants[perm]
	if !ok {
		holders = make(map[common.Address]struct{})
		r.grants[perm] = holders
	}
	holders[addr] = struct{}{}
}
