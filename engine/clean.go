package engine

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sarcophagus-org/sarco-engine/interfaces"
)

// CleanSarcophagus sweeps a sarcophagus whose publish window has closed,
// slashing every archaeologist that neither published nor was accused. Each
// derelict forfeits their cursed bond and their held fee. The embalmer may
// clean during their claim window and receives the proceeds; afterwards only
// the admin may clean and the proceeds go to the protocol fee pool. A
// sarcophagus can be cleaned once.
func (e *Engine) CleanSarcophagus(sender common.Address, id interfaces.SarcophagusID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()

	sarco := e.store.Get(id)
	if !sarco.Exists() {
		return fmt.Errorf("clean %s: %w", id, interfaces.ErrSarcophagusDoesNotExist)
	}
	if sarco.IsCleaned {
		return fmt.Errorf("clean %s: %w", id, interfaces.ErrSarcophagusAlreadyCleaned)
	}
	if sarco.IsCompromised {
		return fmt.Errorf("clean %s: %w", id, interfaces.ErrSarcophagusCompromised)
	}
	if sarco.IsBuried() {
		return fmt.Errorf("clean %s: %w", id, interfaces.ErrSarcophagusBuried)
	}

	windowClose := sarco.ResurrectionTime + e.config.GracePeriod
	claimClose := windowClose + e.config.EmbalmerClaimWindow
	if now <= windowClose {
		return fmt.Errorf("clean %s: now %d, window closes %d: %w", id, now, windowClose, interfaces.ErrTooEarlyForClean)
	}

	toEmbalmer := false
	switch sender {
	case sarco.Embalmer:
		if now > claimClose {
			return fmt.Errorf("clean %s: claim window closed at %d: %w", id, claimClose, interfaces.ErrEmbalmerClaimWindowPassed)
		}
		toEmbalmer = true
	case e.admin:
		if now <= claimClose {
			return fmt.Errorf("clean %s: claim window open until %d: %w", id, claimClose, interfaces.ErrEmbalmerClaimWindowOpen)
		}
	default:
		return fmt.Errorf("clean %s: sender %s: %w", id, sender, interfaces.ErrSenderNotEmbalmerOrAdmin)
	}

	total := new(big.Int)
	var derelict []common.Address
	for _, addr := range sarco.Archaeologists {
		cursed := e.store.Cursed(id, addr)
		if cursed.IsAccused || cursed.HasPublished() {
			continue
		}
		total.Add(total, e.ledger.DecreaseCursedBond(addr, cursed.CursedBond))
		total.Add(total, heldFee(sarco, cursed))
		e.registry.RecordCleanup(addr, id)
		derelict = append(derelict, addr)
	}

	sarco.IsCleaned = true

	if total.Sign() > 0 {
		if toEmbalmer {
			if err := e.token.Transfer(sarco.Embalmer, total); err != nil {
				e.log.Error("Embalmer clean payout failed, crediting protocol fees", "sarcophagus", id, "err", err)
				e.ledger.AddProtocolFees(total)
			}
		} else {
			e.ledger.AddProtocolFees(total)
		}
	}

	e.log.Info("Sarcophagus cleaned",
		"sarcophagus", id,
		"derelict", len(derelict),
		"payout", total,
		"toEmbalmer", toEmbalmer,
	)
	e.sink.Emit(interfaces.SarcophagusCleaned{
		ID:             id,
		Cleaned:        derelict,
		Payout:         total,
		PaidToEmbalmer: toEmbalmer,
		CleanTime:      now,
	})
	return nil
}
