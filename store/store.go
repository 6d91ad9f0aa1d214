package store

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sarcophagus-org/sarco-engine/interfaces"
)

// Store is the canonical in-memory sarcophagus state. Engines hold the only
// write path and serialize their calls, so records returned by Get and
// Cursed are live pointers mutated in place under the engine lock; read-only
// consumers go through the ID index methods and copy what they need.
type Store struct {
	mu         sync.RWMutex
	sarcophagi map[interfaces.SarcophagusID]*interfaces.Sarcophagus
	cursed     map[interfaces.SarcophagusID]map[common.Address]*interfaces.CursedArchaeologist

	byEmbalmer      map[common.Address][]interfaces.SarcophagusID
	byRecipient     map[common.Address][]interfaces.SarcophagusID
	byArchaeologist map[common.Address][]interfaces.SarcophagusID
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		sarcophagi:      make(map[interfaces.SarcophagusID]*interfaces.Sarcophagus),
		cursed:          make(map[interfaces.SarcophagusID]map[common.Address]*interfaces.CursedArchaeologist),
		byEmbalmer:      make(map[common.Address][]interfaces.SarcophagusID),
		byRecipient:     make(map[common.Address][]interfaces.SarcophagusID),
		byArchaeologist: make(map[common.Address][]interfaces.SarcophagusID),
	}
}

// Exists reports whether a sarcophagus has been created under id.
func (s *Store) Exists(id interfaces.SarcophagusID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sarco, ok := s.sarcophagi[id]
	return ok && sarco.Exists()
}

// Get returns the live sarcophagus record, or nil when absent.
func (s *Store) Get(id interfaces.SarcophagusID) *interfaces.Sarcophagus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sarcophagi[id]
}

// Put inserts a new sarcophagus with its cursed archaeologist records and
// maintains the embalmer/recipient/archaeologist indexes.
func (s *Store) Put(sarco *interfaces.Sarcophagus, cursed map[common.Address]*interfaces.CursedArchaeologist) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sarcophagi[sarco.ID] = sarco
	s.cursed[sarco.ID] = cursed

	s.byEmbalmer[sarco.Embalmer] = append(s.byEmbalmer[sarco.Embalmer], sarco.ID)
	s.byRecipient[sarco.Recipient] = append(s.byRecipient[sarco.Recipient], sarco.ID)
	for _, arch := range sarco.Archaeologists {
		s.byArchaeologist[arch] = append(s.byArchaeologist[arch], sarco.ID)
	}
}

// Cursed returns the live per-archaeologist curse record, or nil when the
// archaeologist is not cursed on the sarcophagus.
func (s *Store) Cursed(id interfaces.SarcophagusID, archaeologist common.Address) *interfaces.CursedArchaeologist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if records, ok := s.cursed[id]; ok {
		return records[archaeologist]
	}
	return nil
}

// IDsByEmbalmer returns the sessions created by an embalmer.
func (s *Store) IDsByEmbalmer(embalmer common.Address) []interfaces.SarcophagusID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]interfaces.SarcophagusID(nil), s.byEmbalmer[embalmer]...)
}

// IDsByRecipient returns the sessions naming an address as recipient.
func (s *Store) IDsByRecipient(recipient common.Address) []interfaces.SarcophagusID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]interfaces.SarcophagusID(nil), s.byRecipient[recipient]...)
}

// IDsByArchaeologist returns the sessions an archaeologist is cursed on.
func (s *Store) IDsByArchaeologist(archaeologist common.Address) []interfaces.SarcophagusID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]interfaces.SarcophagusID(nil), s.byArchaeologist[archaeologist]...)
}

// Export returns deep copies of all records for snapshot persistence.
func (s *Store) Export() (map[interfaces.SarcophagusID]*interfaces.Sarcophagus, map[interfaces.SarcophagusID]map[common.Address]*interfaces.CursedArchaeologist) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sarcophagi := make(map[interfaces.SarcophagusID]*interfaces.Sarcophagus, len(s.sarcophagi))
	for id, sarco := range s.sarcophagi {
		sarcophagi[id] = copySarcophagus(sarco)
	}
	cursed := make(map[interfaces.SarcophagusID]map[common.Address]*interfaces.CursedArchaeologist, len(s.cursed))
	for id, records := range s.cursed {
		cp := make(map[common.Address]*interfaces.CursedArchaeologist, len(records))
		for arch, record := range records {
			cp[arch] = copyCursed(record)
		}
		cursed[id] = cp
	}
	return sarcophagi, cursed
}

// Restore replaces the store's state with a previously exported snapshot and
// rebuilds the lookup indexes.
func (s *Store) Restore(sarcophagi map[interfaces.SarcophagusID]*interfaces.Sarcophagus, cursed map[interfaces.SarcophagusID]map[common.Address]*interfaces.CursedArchaeologist) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sarcophagi = make(map[interfaces.SarcophagusID]*interfaces.Sarcophagus, len(sarcophagi))
	s.cursed = make(map[interfaces.SarcophagusID]map[common.Address]*interfaces.CursedArchaeologist, len(cursed))
	s.byEmbalmer = make(map[common.Address][]interfaces.SarcophagusID)
	s.byRecipient = make(map[common.Address][]interfaces.SarcophagusID)
	s.byArchaeologist = make(map[common.Address][]interfaces.SarcophagusID)

	for id, sarco := range sarcophagi {
		cp := copySarcophagus(sarco)
		s.sarcophagi[id] = cp
		s.byEmbalmer[cp.Embalmer] = append(s.byEmbalmer[cp.Embalmer], id)
		s.byRecipient[cp.Recipient] = append(s.byRecipient[cp.Recipient], id)
		for _, arch := range cp.Archaeologists {
			s.byArchaeologist[arch] = append(s.byArchaeologist[arch], id)
		}
	}
	for id, records := range cursed {
		cp := make(map[common.Address]*interfaces.CursedArchaeologist, len(records))
		for arch, record := range records {
			cp[arch] = copyCursed(record)
		}
		s.cursed[id] = cp
	}
}

func copySarcophagus(sarco *interfaces.Sarcophagus) *interfaces.Sarcophagus {
	cp := *sarco
	cp.Archaeologists = append([]common.Address(nil), sarco.Archaeologists...)
	return &cp
}

func copyCursed(record *interfaces.CursedArchaeologist) *interfaces.CursedArchaeologist {
	cp := *record
	cp.PublicKey = append([]byte(nil), record.PublicKey...)
	cp.PrivateKey = append([]byte(nil), record.PrivateKey...)
	if record.DiggingFeePerSecond != nil {
		cp.DiggingFeePerSecond = new(big.Int).Set(record.DiggingFeePerSecond)
	}
	if record.CursedBond != nil {
		cp.CursedBond = new(big.Int).Set(record.CursedBond)
	}
	return &cp
}
