package engine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sarcophagus-org/sarco-engine/interfaces"
	"github.com/sarcophagus-org/sarco-engine/sigverify"
)

// PublishPrivateKey records an archaeologist's private key after the
// resurrection time. The key must match the public key committed at
// creation and arrive within the grace period. A successful publication
// frees the archaeologist's bond and releases their held fee as a reward.
func (e *Engine) PublishPrivateKey(sender common.Address, id interfaces.SarcophagusID, privateKey []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()

	sarco, err := e.liveSarcophagus(id)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	cursed := e.store.Cursed(id, sender)
	if !cursed.Exists() {
		return fmt.Errorf("publish %s: %s: %w", id, sender, interfaces.ErrArchaeologistNotOnSarcophagus)
	}
	if cursed.IsAccused {
		return fmt.Errorf("publish %s: %s: %w", id, sender, interfaces.ErrArchaeologistAccused)
	}
	if cursed.HasPublished() {
		return fmt.Errorf("publish %s: %s: %w", id, sender, interfaces.ErrAlreadyPublished)
	}
	if now < sarco.ResurrectionTime {
		return fmt.Errorf("publish %s: now %d, resurrection %d: %w", id, now, sarco.ResurrectionTime, interfaces.ErrTooEarlyForPublish)
	}
	if now > sarco.ResurrectionTime+e.config.GracePeriod {
		return fmt.Errorf("publish %s: now %d, deadline %d: %w", id, now, sarco.ResurrectionTime+e.config.GracePeriod, interfaces.ErrTooLateForPublish)
	}

	if !sigverify.PrivateKeyMatchesPublic(privateKey, cursed.PublicKey) {
		return fmt.Errorf("publish %s: %s: %w", id, sender, interfaces.ErrIncorrectPrivateKey)
	}

	cursed.PrivateKey = append([]byte(nil), privateKey...)
	e.ledger.Free(sender, cursed.CursedBond)
	fee := heldFee(sarco, cursed)
	e.ledger.CreditReward(sender, fee)
	e.registry.RecordSuccess(sender, id)

	e.log.Info("Private key published",
		"sarcophagus", id,
		"archaeologist", sender,
		"diggingFee", fee,
	)
	e.sink.Emit(interfaces.PrivateKeyPublished{
		ID:            id,
		Archaeologist: sender,
		PrivateKey:    append([]byte(nil), privateKey...),
		DiggingFee:    fee,
		PublishTime:   now,
	})
	return nil
}
