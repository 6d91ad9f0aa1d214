package engine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sarcophagus-org/sarco-engine/interfaces"
)

// SarcophagusDetails bundles a sarcophagus with its per-archaeologist curse
// records, as copies safe to hand out.
type SarcophagusDetails struct {
	Sarcophagus interfaces.Sarcophagus                            `json:"sarcophagus"`
	Cursed      map[common.Address]interfaces.CursedArchaeologist `json:"cursed_archaeologists"`
}

// Sarcophagus returns one sarcophagus and its curse records.
func (e *Engine) Sarcophagus(id interfaces.SarcophagusID) (*SarcophagusDetails, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sarco := e.store.Get(id)
	if !sarco.Exists() {
		return nil, fmt.Errorf("sarcophagus %s: %w", id, interfaces.ErrSarcophagusDoesNotExist)
	}

	details := &SarcophagusDetails{
		Sarcophagus: *sarco,
		Cursed:      make(map[common.Address]interfaces.CursedArchaeologist, len(sarco.Archaeologists)),
	}
	details.Sarcophagus.Archaeologists = append([]common.Address(nil), sarco.Archaeologists...)
	for _, addr := range sarco.Archaeologists {
		details.Cursed[addr] = *e.store.Cursed(id, addr)
	}
	return details, nil
}

// SarcophagiByEmbalmer lists the IDs created by an embalmer.
func (e *Engine) SarcophagiByEmbalmer(embalmer common.Address) []interfaces.SarcophagusID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.IDsByEmbalmer(embalmer)
}

// SarcophagiByRecipient lists the IDs addressed to a recipient.
func (e *Engine) SarcophagiByRecipient(recipient common.Address) []interfaces.SarcophagusID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.IDsByRecipient(recipient)
}

// SarcophagiByArchaeologist lists the IDs an archaeologist is cursed on.
func (e *Engine) SarcophagiByArchaeologist(archaeologist common.Address) []interfaces.SarcophagusID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.IDsByArchaeologist(archaeologist)
}
