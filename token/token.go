// Package token defines the fungible-token boundary consumed by the core
// and provides an in-memory, journaled ledger implementation of it.
package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Token is the capability the core holds on a fungible balance ledger.
// The core assumes standard semantics: transfers move exactly the stated
// amount (no fee-on-transfer) and balances do not rebase.
//
// There is no implicit caller in this environment, so the acting account is
// always explicit: Transfer names the debited account, TransferFrom names
// the spender whose allowance is consumed.
type Token interface {
	Address() common.Address
	Name() string
	Symbol() string
	Decimals() uint8

	TotalSupply() *big.Int
	BalanceOf(account common.Address) *big.Int

	Transfer(from, to common.Address, amount *big.Int) error
	TransferFrom(spender, from, to common.Address, amount *big.Int) error
	Approve(owner, spender common.Address, amount *big.Int) error
	Allowance(owner, spender common.Address) *big.Int
}
