package token

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sarcophagus-org/sarco-engine/interfaces"
)

// Bank is an in-memory token ledger with standard debit/credit and allowance
// semantics. Transfers from the bank's own Operator account use Transfer;
// third-party debits require a prior Approve, mirroring ERC-20.
type Bank struct {
	mu         sync.Mutex
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int

	// Operator is the account Transfer debits: the engine's escrow account.
	Operator common.Address
}

// NewBank creates an empty bank whose Transfer debits operator.
func NewBank(operator common.Address) *Bank {
	return &Bank{
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
		Operator:   operator,
	}
}

// Mint credits amount to an account out of thin air. Test setup only.
func (b *Bank) Mint(account common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(account, amount)
}

// Approve grants the operator an allowance to debit owner.
func (b *Bank) Approve(owner common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	grants, ok := b.allowances[owner]
	if !ok {
		grants = make(map[common.Address]*big.Int)
		b.allowances[owner] = grants
	}
	grants[b.Operator] = new(big.Int).Set(amount)
}

// BalanceOf returns a copy of the account balance.
func (b *Bank) BalanceOf(account common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if balance, ok := b.balances[account]; ok {
		return new(big.Int).Set(balance)
	}
	return new(big.Int)
}

// Transfer moves amount from the operator account to `to`.
func (b *Bank) Transfer(to common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.debit(b.Operator, amount); err != nil {
		return err
	}
	b.credit(to, amount)
	return nil
}

// TransferFrom moves amount from `from` to `to` against the operator's
// allowance.
func (b *Bank) TransferFrom(from, to common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	allowance := b.allowanceFor(from)
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("allowance %v below transfer %v from %s: %w", allowance, amount, from, interfaces.ErrInsufficientBalance)
	}
	if err := b.debit(from, amount); err != nil {
		return err
	}
	allowance.Sub(allowance, amount)
	b.credit(to, amount)
	return nil
}

func (b *Bank) allowanceFor(owner common.Address) *big.Int {
	if grants, ok := b.allowances[owner]; ok {
		if allowance, ok := grants[b.Operator]; ok {
			return allowance
		}
	}
	return new(big.Int)
}

func (b *Bank) debit(account common.Address, amount *big.Int) error {
	balance, ok := b.balances[account]
	if !ok || balance.Cmp(amount) < 0 {
		return fmt.Errorf("balance of %s below transfer %v: %w", account, amount, interfaces.ErrInsufficientBalance)
	}
	balance.Sub(balance, amount)
	return nil
}

func (b *Bank) credit(account common.Address, amount *big.Int) {
	balance, ok := b.balances[account]
	if !ok {
		balance = new(big.Int)
		b.balances[account] = balance
	}
	balance.Add(balance, amount)
}
