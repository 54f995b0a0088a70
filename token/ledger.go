package token

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/blackbird014/pooliverse-swapper/engine"
)

var (
	// ErrNilAmount is returned when a nil pointer is passed for an amount.
	ErrNilAmount = errors.New("nil pointer passed as amount")
	// ErrNegativeAmount is returned when an amount is negative.
	ErrNegativeAmount = errors.New("amount must be non-negative")
	// ErrInsufficientBalance is returned when a transfer exceeds the sender's balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientAllowance is returned when a transferFrom exceeds the spender's allowance.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// Ledger is the in-memory Token implementation. Every mutation is recorded
// in the journal so an aborted operation unwinds its transfers.
//
// Balances are stored as freshly allocated big.Ints and never mutated in
// place; undo entries restore the previous pointers.
//
// A Ledger is NOT safe for concurrent use by itself; access is serialized
// by the owning exchange.
type Ledger struct {
	addr     common.Address
	name     string
	symbol   string
	decimals uint8

	supply     *big.Int
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int

	journal *engine.Journal
}

var _ Token = (*Ledger)(nil)

// NewLedger creates an empty ledger identified by addr.
func NewLedger(journal *engine.Journal, addr common.Address, name, symbol string, decimals uint8) *Ledger {
	return &Ledger{
		addr:       addr,
		name:       name,
		symbol:     symbol,
		decimals:   decimals,
		supply:     new(big.Int),
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
		journal:    journal,
	}
}

func (l *Ledger) Address() common.Address { return l.addr }
func (l *Ledger) Name() string            { return l.name }
func (l *Ledger) Symbol() string          { return l.symbol }
func (l *Ledger) Decimals() uint8         { return l.decimals }

// TotalSupply returns a copy of the current supply.
func (l *Ledger) TotalSupply() *big.Int {
	return new(big.Int).Set(l.supply)
}

// BalanceOf returns a copy of the account's balance, zero if absent.
func (l *Ledger) BalanceOf(account common.Address) *big.Int {
	if b, ok := l.balances[account]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Allowance returns a copy of the spender's remaining allowance from owner.
func (l *Ledger) Allowance(owner, spender common.Address) *big.Int {
	if m, ok := l.allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return new(big.Int).Set(a)
		}
	}
	return new(big.Int)
}

// Transfer moves amount from one account to another.
func (l *Ledger) Transfer(from, to common.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	fromBalance := l.balanceRef(from)
	if fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: token %s, account %s has %s, needs %s",
			ErrInsufficientBalance, l.symbol, from, fromBalance, amount)
	}
	l.setBalance(from, new(big.Int).Sub(fromBalance, amount))
	l.setBalance(to, new(big.Int).Add(l.balanceRef(to), amount))
	return nil
}

// TransferFrom moves amount from one account to another on the authority of
// a prior approval, consuming the spender's allowance.
func (l *Ledger) TransferFrom(spender, from, to common.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	allowed := l.allowanceRef(from, spender)
	if allowed.Cmp(amount) < 0 {
		return fmt.Errorf("%w: token %s, spender %s allowed %s of %s's funds, needs %s",
			ErrInsufficientAllowance, l.symbol, spender, allowed, from, amount)
	}
	l.setAllowance(from, spender, new(big.Int).Sub(allowed, amount))
	return l.Transfer(from, to, amount)
}

// Approve sets the spender's allowance over owner's funds.
func (l *Ledger) Approve(owner, spender common.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	l.setAllowance(owner, spender, new(big.Int).Set(amount))
	return nil
}

// Mint credits newly issued units to an account. Ledger administration,
// used by the token boundary for seeding and by pairs for LP issuance.
func (l *Ledger) Mint(to common.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	l.setSupply(new(big.Int).Add(l.supply, amount))
	l.setBalance(to, new(big.Int).Add(l.balanceRef(to), amount))
	return nil
}

// Burn destroys units held by an account.
func (l *Ledger) Burn(from common.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	balance := l.balanceRef(from)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: token %s, account %s has %s, burns %s",
			ErrInsufficientBalance, l.symbol, from, balance, amount)
	}
	l.setBalance(from, new(big.Int).Sub(balance, amount))
	l.setSupply(new(big.Int).Sub(l.supply, amount))
	return nil
}

// balanceRef returns the stored balance without copying. Callers must not
// mutate the result.
func (l *Ledger) balanceRef(account common.Address) *big.Int {
	if b, ok := l.balances[account]; ok {
		return b
	}
	return new(big.Int)
}

func (l *Ledger) allowanceRef(owner, spender common.Address) *big.Int {
	if m, ok := l.allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return a
		}
	}
	return new(big.Int)
}

func (l *Ledger) setBalance(account common.Address, amount *big.Int) {
	prev, existed := l.balances[account]
	l.journal.Append(func() {
		if existed {
			l.balances[account] = prev
		} else {
			delete(l.balances, account)
		}
	})
	l.balances[account] = amount
}

func (l *Ledger) setSupply(amount *big.Int) {
	prev := l.supply
	l.journal.Append(func() { l.supply = prev })
	l.supply = amount
}

func (l *Ledger) setAllowance(owner, spender common.Address, amount *big.Int) {
	m, ok := l.allowances[owner]
	if !ok {
		m = make(map[common.Address]*big.Int)
		l.allowances[owner] = m
		l.journal.Append(func() { delete(l.allowances, owner) })
	}
	prev, existed := m[spender]
	l.journal.Append(func() {
		if existed {
			m[spender] = prev
		} else {
			delete(m, spender)
		}
	})
	m[spender] = amount
}

func validAmount(amount *big.Int) error {
	if amount == nil {
		return ErrNilAmount
	}
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	return nil
}
