package bond

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Token is the contract the engine requires from both the reference asset and
// the bond token. Mint and BurnFrom are authorised for the engine itself by
// the deployment; Transfer moves tokens out of engine custody and
// TransferFrom pulls a caller's approved balance into it. Implementations
// must apply each call atomically and report balances that are consistent
// with every preceding call.
type Token interface {
	BalanceOf(holder common.Address) (*big.Int, error)
	TotalSupply() (*big.Int, error)
	Transfer(to common.Address, amount *big.Int) error
	TransferFrom(from, to common.Address, amount *big.Int) error
	Mint(to common.Address, amount *big.Int) error
	BurnFrom(holder common.Address, amount *big.Int) error
}

// TokenDirectory resolves arbitrary token addresses for the foreign-token
// recovery escape hatch. Deployments that cannot resolve foreign tokens may
// leave it nil, which disables recovery.
type TokenDirectory interface {
	TokenAt(addr common.Address) (Token, error)
}
