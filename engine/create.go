package engine

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sarcophagus-org/sarco-engine/interfaces"
	"github.com/sarcophagus-org/sarco-engine/sigverify"
)

// SelectedArchaeologist carries one archaeologist's negotiated curse terms
// and the signature binding the archaeologist to them.
type SelectedArchaeologist struct {
	Address common.Address

	// PublicKey is the 65-byte uncompressed secp256k1 key whose private
	// half must be published after the resurrection time.
	PublicKey []byte

	DiggingFeePerSecond *big.Int

	// Signature is the archaeologist's signature over the curse terms,
	// produced off-chain during negotiation.
	Signature []byte
}

// CreateParams carries the embalmer's creation request.
type CreateParams struct {
	ID   interfaces.SarcophagusID
	Name string

	// ResurrectionTime is the first deadline after which archaeologists
	// must publish their keys unless the sarcophagus is rewrapped.
	ResurrectionTime int64

	// CreationTime is the agreed negotiation timestamp the archaeologists
	// signed over. Creation is rejected once it is older than the
	// expiration threshold.
	CreationTime int64

	// MaximumRewrapInterval bounds every future rewrap. Fixed for the
	// sarcophagus's lifetime.
	MaximumRewrapInterval int64

	// Threshold is the number of accusals that marks the sarcophagus
	// compromised.
	Threshold int

	// ArweaveTxIDs locate the encrypted payload and the encrypted key
	// shards. The second locator is part of every curse signature.
	ArweaveTxIDs [2]string

	Recipient common.Address

	Archaeologists []SelectedArchaeologist
}

// CreateSarcophagus validates the embalmer's request and every selected
// archaeologist's commitment, locks the archaeologists' bonds, collects the
// digging and protocol fees, and persists the new session. Any failure,
// including a fee collection failure, leaves no trace.
func (e *Engine) CreateSarcophagus(embalmer common.Address, params CreateParams) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()

	if e.store.Exists(params.ID) {
		return fmt.Errorf("create %s: %w", params.ID, interfaces.ErrSarcophagusAlreadyExists)
	}
	if now > params.CreationTime+e.config.ExpirationThreshold {
		return fmt.Errorf("create %s: negotiated at %d, now %d: %w", params.ID, params.CreationTime, now, interfaces.ErrSarcophagusParametersExpired)
	}
	if params.ResurrectionTime <= now {
		return fmt.Errorf("create %s: %w", params.ID, interfaces.ErrResurrectionTimeInPast)
	}
	if params.ResurrectionTime > now+params.MaximumRewrapInterval {
		return fmt.Errorf("create %s: %w", params.ID, interfaces.ErrResurrectionTimeTooFar)
	}
	if len(params.Archaeologists) == 0 {
		return fmt.Errorf("create %s: %w", params.ID, interfaces.ErrNoArchaeologistsProvided)
	}
	if params.Threshold <= 0 || params.Threshold > len(params.Archaeologists) {
		return fmt.Errorf("create %s: threshold %d of %d: %w", params.ID, params.Threshold, len(params.Archaeologists), interfaces.ErrInvalidThreshold)
	}

	// Validate every archaeologist before touching any state.
	cursed := make(map[common.Address]*interfaces.CursedArchaeologist, len(params.Archaeologists))
	addresses := make([]common.Address, 0, len(params.Archaeologists))
	totalDiggingFees := new(big.Int)

	for _, selected := range params.Archaeologists {
		if _, ok := cursed[selected.Address]; ok {
			return fmt.Errorf("create %s: %s: %w", params.ID, selected.Address, interfaces.ErrDuplicateArchaeologist)
		}
		if selected.DiggingFeePerSecond == nil || selected.DiggingFeePerSecond.Sign() < 0 {
			return fmt.Errorf("create %s: %s digging fee: %w", params.ID, selected.Address, interfaces.ErrInvalidAmount)
		}

		profile, ok := e.registry.Profile(selected.Address)
		if !ok {
			return fmt.Errorf("create %s: %s: %w", params.ID, selected.Address, interfaces.ErrArchaeologistNotRegistered)
		}
		if selected.DiggingFeePerSecond.Cmp(profile.MinimumDiggingFeePerSecond) < 0 {
			return fmt.Errorf("create %s: %s offers %v, minimum %v: %w", params.ID, selected.Address, selected.DiggingFeePerSecond, profile.MinimumDiggingFeePerSecond, interfaces.ErrDiggingFeeTooLow)
		}
		if params.MaximumRewrapInterval > profile.MaximumRewrapInterval {
			return fmt.Errorf("create %s: %s: %w", params.ID, selected.Address, interfaces.ErrRewrapIntervalTooLong)
		}

		message, err := sigverify.CurseMessage(
			selected.PublicKey,
			params.ArweaveTxIDs[1],
			params.MaximumRewrapInterval,
			params.CreationTime,
			selected.DiggingFeePerSecond,
			selected.Address,
		)
		if err != nil {
			return fmt.Errorf("create %s: curse message for %s: %w", params.ID, selected.Address, err)
		}
		signer, err := e.verifier.Verify(message, selected.Signature)
		if err != nil || signer != selected.Address {
			return fmt.Errorf("create %s: curse signature for %s: %w", params.ID, selected.Address, interfaces.ErrInvalidSignature)
		}

		diggingFee := periodFee(selected.DiggingFeePerSecond, params.CreationTime, params.ResurrectionTime)
		cursedBond := e.config.CursedBond(diggingFee)
		if e.ledger.FreeBond(selected.Address).Cmp(cursedBond) < 0 {
			return fmt.Errorf("create %s: %s needs %v cursed bond: %w", params.ID, selected.Address, cursedBond, interfaces.ErrInsufficientFreeBond)
		}

		totalDiggingFees.Add(totalDiggingFees, diggingFee)
		addresses = append(addresses, selected.Address)
		cursed[selected.Address] = &interfaces.CursedArchaeologist{
			PublicKey:           append([]byte(nil), selected.PublicKey...),
			DiggingFeePerSecond: new(big.Int).Set(selected.DiggingFeePerSecond),
			CursedBond:          cursedBond,
		}
	}

	protocolFee := e.config.ProtocolFee(totalDiggingFees)

	// Collect fees before mutating local state so a token failure rejects
	// cleanly.
	collected := new(big.Int).Add(totalDiggingFees, protocolFee)
	if err := e.token.TransferFrom(embalmer, e.escrowAccount, collected); err != nil {
		return fmt.Errorf("create %s: fee collection: %w", params.ID, err)
	}

	for _, addr := range addresses {
		if err := e.ledger.Curse(addr, cursed[addr].CursedBond); err != nil {
			// A concurrent bond withdrawal can invalidate the free-bond
			// pre-check; unwind the curses applied so far and refund the
			// collected fees so the rejection leaves no trace.
			for _, applied := range addresses {
				if applied == addr {
					break
				}
				e.ledger.Free(applied, cursed[applied].CursedBond)
			}
			if refundErr := e.token.Transfer(embalmer, collected); refundErr != nil {
				e.log.Error("Fee refund failed, crediting protocol fees", "sarcophagus", params.ID, "err", refundErr)
				e.ledger.AddProtocolFees(collected)
			}
			return fmt.Errorf("create %s: cursing %s: %w", params.ID, addr, err)
		}
	}
	e.ledger.AddProtocolFees(protocolFee)

	sarco := &interfaces.Sarcophagus{
		ID:                    params.ID,
		Name:                  params.Name,
		ResurrectionTime:      params.ResurrectionTime,
		Threshold:             params.Threshold,
		MaximumRewrapInterval: params.MaximumRewrapInterval,
		ArweaveTxIDs:          params.ArweaveTxIDs,
		Embalmer:              embalmer,
		Recipient:             params.Recipient,
		Archaeologists:        addresses,
		CreationTime:          params.CreationTime,
		PreviousRewrapTime:    params.CreationTime,
	}
	e.store.Put(sarco, cursed)

	e.log.Info("Sarcophagus created",
		"sarcophagus", params.ID,
		"embalmer", embalmer,
		"archaeologists", len(addresses),
		"resurrectionTime", params.ResurrectionTime,
		"totalDiggingFees", totalDiggingFees,
	)
	e.sink.Emit(interfaces.SarcophagusCreated{
		ID:               params.ID,
		Name:             params.Name,
		Embalmer:         embalmer,
		Recipient:        params.Recipient,
		Archaeologists:   addresses,
		ResurrectionTime: params.ResurrectionTime,
		TotalDiggingFees: totalDiggingFees,
		ProtocolFee:      protocolFee,
		ArweaveTxIDs:     params.ArweaveTxIDs,
		CreationTime:     params.CreationTime,
	})
	return nil
}
