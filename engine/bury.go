package engine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sarcophagus-org/sarco-engine/interfaces"
)

// BurySarcophagus terminates a session early. The archaeologists are
// released from their obligation to publish: their bonds are freed and the
// fees held for the current period are paid out as rewards. A buried
// sarcophagus accepts no further transitions.
func (e *Engine) BurySarcophagus(sender common.Address, id interfaces.SarcophagusID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()

	sarco, err := e.liveSarcophagus(id)
	if err != nil {
		return fmt.Errorf("bury: %w", err)
	}
	if sender != sarco.Embalmer {
		return fmt.Errorf("bury %s: sender %s: %w", id, sender, interfaces.ErrSenderNotEmbalmer)
	}
	if now >= sarco.ResurrectionTime {
		return fmt.Errorf("bury %s: %w", id, interfaces.ErrSarcophagusExpired)
	}

	for _, addr := range sarco.Archaeologists {
		cursed := e.store.Cursed(id, addr)
		if cursed.IsAccused {
			continue
		}
		e.ledger.Free(addr, cursed.CursedBond)
		e.ledger.CreditReward(addr, heldFee(sarco, cursed))
	}

	sarco.ResurrectionTime = interfaces.MaxResurrectionTime

	e.log.Info("Sarcophagus buried", "sarcophagus", id, "embalmer", sender)
	e.sink.Emit(interfaces.SarcophagusBuried{ID: id, BuryTime: now})
	return nil
}
