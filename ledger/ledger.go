package ledger

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sarcophagus-org/sarco-engine/interfaces"
)

// Account holds one archaeologist's balances. All amounts are owned by the
// ledger; accessors return copies.
type Account struct {
	FreeBond   *big.Int `json:"free_bond"`
	CursedBond *big.Int `json:"cursed_bond"`
	Reward     *big.Int `json:"reward"`
}

func newAccount() *Account {
	return &Account{
		FreeBond:   new(big.Int),
		CursedBond: new(big.Int),
		Reward:     new(big.Int),
	}
}

// BondingLedger tracks bond and reward balances for every archaeologist and
// the accumulated protocol fees.
type BondingLedger struct {
	mu           sync.RWMutex
	accounts     map[common.Address]*Account
	protocolFees *big.Int
}

// NewBondingLedger returns an empty ledger.
func NewBondingLedger() *BondingLedger {
	return &BondingLedger{
		accounts:     make(map[common.Address]*Account),
		protocolFees: new(big.Int),
	}
}

func (l *BondingLedger) account(archaeologist common.Address) *Account {
	acct, ok := l.accounts[archaeologist]
	if !ok {
		acct = newAccount()
		l.accounts[archaeologist] = acct
	}
	return acct
}

// Deposit credits amount to the archaeologist's free bond.
func (l *BondingLedger) Deposit(archaeologist common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct := l.account(archaeologist)
	acct.FreeBond.Add(acct.FreeBond, amount)
}

// WithdrawFree debits amount from the archaeologist's free bond. Cursed bond
// is never reachable through withdrawal.
func (l *BondingLedger) WithdrawFree(archaeologist common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct := l.account(archaeologist)
	if acct.FreeBond.Cmp(amount) < 0 {
		return fmt.Errorf("withdraw %v exceeds free bond %v: %w", amount, acct.FreeBond, interfaces.ErrInsufficientFreeBond)
	}
	acct.FreeBond.Sub(acct.FreeBond, amount)
	return nil
}

// Curse moves amount from free to cursed bond, failing without any change
// when the free bond is short.
func (l *BondingLedger) Curse(archaeologist common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct := l.account(archaeologist)
	if acct.FreeBond.Cmp(amount) < 0 {
		return fmt.Errorf("curse %v exceeds free bond %v: %w", amount, acct.FreeBond, interfaces.ErrInsufficientFreeBond)
	}
	acct.FreeBond.Sub(acct.FreeBond, amount)
	acct.CursedBond.Add(acct.CursedBond, amount)
	return nil
}

// Free reverses a curse, moving amount from cursed back to free bond. The
// move is clamped to the cursed balance so a release can never mint bond
// that was not previously locked.
func (l *BondingLedger) Free(archaeologist common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct := l.account(archaeologist)
	moved := amount
	if acct.CursedBond.Cmp(amount) < 0 {
		moved = new(big.Int).Set(acct.CursedBond)
	}
	acct.CursedBond.Sub(acct.CursedBond, moved)
	acct.FreeBond.Add(acct.FreeBond, moved)
}

// DecreaseCursedBond slashes the cursed bond by amount, clamped to the
// cursed balance. The slashed collateral leaves the archaeologist's account
// entirely; routing it (to the embalmer, an accuser or the fee pool) is the
// calling engine's concern. Returns the amount actually slashed.
func (l *BondingLedger) DecreaseCursedBond(archaeologist common.Address, amount *big.Int) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct := l.account(archaeologist)
	slashed := new(big.Int).Set(amount)
	if acct.CursedBond.Cmp(slashed) < 0 {
		slashed.Set(acct.CursedBond)
	}
	acct.CursedBond.Sub(acct.CursedBond, slashed)
	return slashed
}

// CreditReward credits a digging fee to the archaeologist's reward balance.
func (l *BondingLedger) CreditReward(archaeologist common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct := l.account(archaeologist)
	acct.Reward.Add(acct.Reward, amount)
}

// DebitReward removes amount from the reward balance, typically right before
// paying it out through the token.
func (l *BondingLedger) DebitReward(archaeologist common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct := l.account(archaeologist)
	if acct.Reward.Cmp(amount) < 0 {
		return fmt.Errorf("debit %v exceeds reward %v: %w", amount, acct.Reward, interfaces.ErrInsufficientReward)
	}
	acct.Reward.Sub(acct.Reward, amount)
	return nil
}

// FreeBond returns a copy of the archaeologist's free bond.
func (l *BondingLedger) FreeBond(archaeologist common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if acct, ok := l.accounts[archaeologist]; ok {
		return new(big.Int).Set(acct.FreeBond)
	}
	return new(big.Int)
}

// CursedBond returns a copy of the archaeologist's cursed bond.
func (l *BondingLedger) CursedBond(archaeologist common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if acct, ok := l.accounts[archaeologist]; ok {
		return new(big.Int).Set(acct.CursedBond)
	}
	return new(big.Int)
}

// Reward returns a copy of the archaeologist's reward balance.
func (l *BondingLedger) Reward(archaeologist common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if acct, ok := l.accounts[archaeologist]; ok {
		return new(big.Int).Set(acct.Reward)
	}
	return new(big.Int)
}

// AddProtocolFees accumulates amount into the protocol fee pool.
func (l *BondingLedger) AddProtocolFees(amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.protocolFees.Add(l.protocolFees, amount)
}

// ProtocolFees returns a copy of the accumulated protocol fee pool.
func (l *BondingLedger) ProtocolFees() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.protocolFees)
}

// DrainProtocolFees empties the fee pool and returns the drained amount.
func (l *BondingLedger) DrainProtocolFees() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	drained := l.protocolFees
	l.protocolFees = new(big.Int)
	return drained
}

// Export returns a deep copy of all accounts and the fee pool for snapshot
// persistence.
func (l *BondingLedger) Export() (map[common.Address]*Account, *big.Int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	accounts := make(map[common.Address]*Account, len(l.accounts))
	for addr, acct := range l.accounts {
		accounts[addr] = &Account{
			FreeBond:   new(big.Int).Set(acct.FreeBond),
			CursedBond: new(big.Int).Set(acct.CursedBond),
			Reward:     new(big.Int).Set(acct.Reward),
		}
	}
	return accounts, new(big.Int).Set(l.protocolFees)
}

// Restore replaces the ledger's state with a previously exported snapshot.
func (l *BondingLedger) Restore(accounts map[common.Address]*Account, protocolFees *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts = make(map[common.Address]*Account, len(accounts))
	for addr, acct := range accounts {
		restored := newAccount()
		if acct.FreeBond != nil {
			restored.FreeBond.Set(acct.FreeBond)
		}
		if acct.CursedBond != nil {
			restored.CursedBond.Set(acct.CursedBond)
		}
		if acct.Reward != nil {
			restored.Reward.Set(acct.Reward)
		}
		l.accounts[addr] = restored
	}
	l.protocolFees = new(big.Int)
	if protocolFees != nil {
		l.protocolFees.Set(protocolFees)
	}
}
