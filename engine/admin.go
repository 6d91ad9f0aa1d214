package engine

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sarcophagus-org/sarco-engine/interfaces"
)

func (e *Engine) requireAdmin(sender common.Address) error {
	if sender != e.admin {
		return fmt.Errorf("sender %s: %w", sender, interfaces.ErrSenderNotAdmin)
	}
	return nil
}

// TransferAdmin hands protocol administration to a new address.
func (e *Engine) TransferAdmin(sender, newAdmin common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(sender); err != nil {
		return fmt.Errorf("transfer admin: %w", err)
	}
	e.admin = newAdmin
	e.log.Info("Admin transferred", "from", sender, "to", newAdmin)
	return nil
}

// SetGracePeriod adjusts the publish window length. Applies to windows that
// open after the change.
func (e *Engine) SetGracePeriod(sender common.Address, seconds int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(sender); err != nil {
		return fmt.Errorf("set grace period: %w", err)
	}
	e.config.GracePeriod = seconds
	e.log.Info("Grace period updated", "seconds", seconds)
	return nil
}

// SetEmbalmerClaimWindow adjusts how long after the publish window the
// embalmer keeps the exclusive right to clean.
func (e *Engine) SetEmbalmerClaimWindow(sender common.Address, seconds int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(sender); err != nil {
		return fmt.Errorf("set embalmer claim window: %w", err)
	}
	e.config.EmbalmerClaimWindow = seconds
	e.log.Info("Embalmer claim window updated", "seconds", seconds)
	return nil
}

// SetExpirationThreshold adjusts how long negotiated creation parameters
// stay valid.
func (e *Engine) SetExpirationThreshold(sender common.Address, seconds int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(sender); err != nil {
		return fmt.Errorf("set expiration threshold: %w", err)
	}
	e.config.ExpirationThreshold = seconds
	e.log.Info("Expiration threshold updated", "seconds", seconds)
	return nil
}

// SetProtocolFeeBasePercentage adjusts the protocol fee in basis points.
func (e *Engine) SetProtocolFeeBasePercentage(sender common.Address, basisPoints uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(sender); err != nil {
		return fmt.Errorf("set protocol fee: %w", err)
	}
	e.config.ProtocolFeeBasePercentage = basisPoints
	e.log.Info("Protocol fee updated", "basisPoints", basisPoints)
	return nil
}

// SetCursedBondPercentage adjusts, in basis points of the digging fee, the
// bond locked per curse. Existing curses keep the bond computed at creation.
func (e *Engine) SetCursedBondPercentage(sender common.Address, basisPoints uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(sender); err != nil {
		return fmt.Errorf("set cursed bond percentage: %w", err)
	}
	e.config.CursedBondPercentage = basisPoints
	e.log.Info("Cursed bond percentage updated", "basisPoints", basisPoints)
	return nil
}

// WithdrawProtocolFees transfers the accumulated protocol fees to the given
// address. The pool is restored if the transfer fails.
func (e *Engine) WithdrawProtocolFees(sender, to common.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(sender); err != nil {
		return nil, fmt.Errorf("withdraw protocol fees: %w", err)
	}

	amount := e.ledger.DrainProtocolFees()
	if amount.Sign() == 0 {
		return amount, nil
	}
	if err := e.token.Transfer(to, amount); err != nil {
		e.ledger.AddProtocolFees(amount)
		return nil, fmt.Errorf("withdraw protocol fees: %w", err)
	}
	e.log.Info("Protocol fees withdrawn", "to", to, "amount", amount)
	return amount, nil
}
