package engine

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sarcophagus-org/sarco-engine/interfaces"
)

// RewrapSarcophagus extends the resurrection time before the current one
// passes. The fees held for the current period are released to the
// archaeologists as rewards and a fresh period's fees are collected from the
// embalmer, together with a new protocol fee.
func (e *Engine) RewrapSarcophagus(sender common.Address, id interfaces.SarcophagusID, newResurrectionTime int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()

	sarco, err := e.liveSarcophagus(id)
	if err != nil {
		return fmt.Errorf("rewrap: %w", err)
	}
	if sender != sarco.Embalmer {
		return fmt.Errorf("rewrap %s: sender %s: %w", id, sender, interfaces.ErrSenderNotEmbalmer)
	}
	if now >= sarco.ResurrectionTime {
		return fmt.Errorf("rewrap %s: %w", id, interfaces.ErrSarcophagusExpired)
	}
	if newResurrectionTime <= now {
		return fmt.Errorf("rewrap %s: %w", id, interfaces.ErrResurrectionTimeInPast)
	}
	if newResurrectionTime > now+sarco.MaximumRewrapInterval {
		return fmt.Errorf("rewrap %s: %w", id, interfaces.ErrResurrectionTimeTooFar)
	}

	// Held fees for the old period become rewards; accused archaeologists
	// forfeited theirs when they were slashed.
	type payout struct {
		archaeologist common.Address
		held          *big.Int
	}
	var payouts []payout
	newDiggingFees := new(big.Int)
	for _, addr := range sarco.Archaeologists {
		cursed := e.store.Cursed(id, addr)
		if cursed.IsAccused {
			continue
		}
		payouts = append(payouts, payout{addr, heldFee(sarco, cursed)})
		newDiggingFees.Add(newDiggingFees, periodFee(cursed.DiggingFeePerSecond, now, newResurrectionTime))
	}

	protocolFee := e.config.ProtocolFee(newDiggingFees)
	collected := new(big.Int).Add(newDiggingFees, protocolFee)
	if err := e.token.TransferFrom(sender, e.escrowAccount, collected); err != nil {
		return fmt.Errorf("rewrap %s: fee collection: %w", id, err)
	}

	for _, p := range payouts {
		e.ledger.CreditReward(p.archaeologist, p.held)
	}
	e.ledger.AddProtocolFees(protocolFee)

	sarco.ResurrectionTime = newResurrectionTime
	sarco.PreviousRewrapTime = now

	e.log.Info("Sarcophagus rewrapped",
		"sarcophagus", id,
		"newResurrectionTime", newResurrectionTime,
		"totalDiggingFees", newDiggingFees,
	)
	e.sink.Emit(interfaces.SarcophagusRewrapped{
		ID:                  id,
		NewResurrectionTime: newResurrectionTime,
		TotalDiggingFees:    newDiggingFees,
		ProtocolFee:         protocolFee,
		RewrapTime:          now,
	})
	return nil
}
