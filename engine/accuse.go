package engine

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sarcophagus-org/sarco-engine/interfaces"
	"github.com/sarcophagus-org/sarco-engine/sigverify"
)

// AccuseArchaeologists reports leaked private keys on or before the
// resurrection time. Each public key must be one committed on the
// sarcophagus, and its paired signature must have been produced with the
// matching private key over (sarcophagus ID, payment address), which is only
// possible if the key escaped custody.
//
// Newly proven archaeologists are slashed. Pairs pointing at already accused
// archaeologists are skipped, so repeating an accusal neither slashes twice
// nor errors. When the accused count reaches the threshold the sarcophagus
// is compromised: the never-accused archaeologists get their bonds back and
// keep their held fees, the embalmer is refunded half the slashed bonds plus
// the accused archaeologists' held fees, and the accuser's payment address
// receives the other half of the slashed bonds.
func (e *Engine) AccuseArchaeologists(id interfaces.SarcophagusID, paymentAddress common.Address, publicKeys, signatures [][]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()

	sarco, err := e.liveSarcophagus(id)
	if err != nil {
		return fmt.Errorf("accuse: %w", err)
	}
	if now > sarco.ResurrectionTime {
		return fmt.Errorf("accuse %s: %w", id, interfaces.ErrTooLateToAccuse)
	}
	if len(signatures) == 0 || len(publicKeys) != len(signatures) {
		return fmt.Errorf("accuse %s: %d keys, %d signatures: %w", id, len(publicKeys), len(signatures), interfaces.ErrSignatureListMismatch)
	}

	message, err := sigverify.AccuseMessage(id, paymentAddress)
	if err != nil {
		return fmt.Errorf("accuse %s: %w", id, err)
	}

	// Resolve every pair to a cursed archaeologist before applying
	// anything, so one bad pair rejects the whole call.
	cursedByKey := func(publicKey []byte) (common.Address, bool) {
		for _, addr := range sarco.Archaeologists {
			if bytes.Equal(e.store.Cursed(id, addr).PublicKey, publicKey) {
				return addr, true
			}
		}
		return common.Address{}, false
	}

	seen := make(map[common.Address]bool, len(signatures))
	var newlyAccused []common.Address
	for i, publicKey := range publicKeys {
		addr, ok := cursedByKey(publicKey)
		if !ok {
			return fmt.Errorf("accuse %s: unknown public key: %w", id, interfaces.ErrArchaeologistNotOnSarcophagus)
		}
		keyAddr, err := sigverify.AddressFromPublicKey(publicKey)
		if err != nil {
			return fmt.Errorf("accuse %s: %w", id, interfaces.ErrInvalidSignature)
		}
		signer, err := e.verifier.Verify(message, signatures[i])
		if err != nil || signer != keyAddr {
			return fmt.Errorf("accuse %s: signature does not match key %d: %w", id, i, interfaces.ErrInvalidSignature)
		}
		if seen[addr] || e.store.Cursed(id, addr).IsAccused {
			continue
		}
		seen[addr] = true
		newlyAccused = append(newlyAccused, addr)
	}
	if len(newlyAccused) == 0 {
		return nil
	}

	slashTotal := new(big.Int)
	accusedHeldFees := new(big.Int)
	for _, addr := range newlyAccused {
		cursed := e.store.Cursed(id, addr)
		cursed.IsAccused = true
		slashTotal.Add(slashTotal, e.ledger.DecreaseCursedBond(addr, cursed.CursedBond))
		accusedHeldFees.Add(accusedHeldFees, heldFee(sarco, cursed))
		e.registry.RecordAccusal(addr, id)
	}

	accusedCount := 0
	for _, addr := range sarco.Archaeologists {
		if e.store.Cursed(id, addr).IsAccused {
			accusedCount++
		}
	}
	compromised := accusedCount >= sarco.Threshold
	if compromised {
		sarco.IsCompromised = true
		for _, addr := range sarco.Archaeologists {
			cursed := e.store.Cursed(id, addr)
			if cursed.IsAccused {
				continue
			}
			e.ledger.Free(addr, cursed.CursedBond)
			e.ledger.CreditReward(addr, heldFee(sarco, cursed))
		}
	}

	half := new(big.Int).Rsh(slashTotal, 1)
	embalmerPayout := new(big.Int).Add(half, accusedHeldFees)
	accuserPayout := new(big.Int).Sub(slashTotal, half)

	if embalmerPayout.Sign() > 0 {
		if err := e.token.Transfer(sarco.Embalmer, embalmerPayout); err != nil {
			e.log.Error("Embalmer accusal payout failed, crediting protocol fees", "sarcophagus", id, "err", err)
			e.ledger.AddProtocolFees(embalmerPayout)
		}
	}
	if accuserPayout.Sign() > 0 {
		if err := e.token.Transfer(paymentAddress, accuserPayout); err != nil {
			e.log.Error("Accuser payout failed, crediting protocol fees", "sarcophagus", id, "err", err)
			e.ledger.AddProtocolFees(accuserPayout)
		}
	}

	e.log.Info("Sarcophagus accused",
		"sarcophagus", id,
		"accused", len(newlyAccused),
		"compromised", compromised,
		"slashed", slashTotal,
	)
	e.sink.Emit(interfaces.SarcophagusAccused{
		ID:             id,
		Accused:        newlyAccused,
		IsCompromised:  compromised,
		SlashedBond:    slashTotal,
		EmbalmerPayout: embalmerPayout,
		AccuserPayout:  accuserPayout,
		PaymentAddress: paymentAddress,
		AccuseTime:     now,
	})
	return nil
}
