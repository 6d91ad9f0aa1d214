package engine

import (
	"fmt"

	"github.com/sarcophagus-org/sarco-engine/store"
)

// SaveState writes the engine's full state to a snapshot file.
func (e *Engine) SaveState(path string) error {
	e.mu.Lock()
	snapshot := &store.Snapshot{
		SavedAt: e.now(),
		Admin:   e.admin,
		Config:  e.config,
	}
	snapshot.Sarcophagi, snapshot.Cursed = e.store.Export()
	snapshot.Accounts, snapshot.ProtocolFees = e.ledger.Export()
	snapshot.Profiles, snapshot.Stats = e.registry.Export()
	e.mu.Unlock()

	if err := store.WriteSnapshot(path, snapshot); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	e.log.Info("State saved", "path", path, "sarcophagi", len(snapshot.Sarcophagi))
	return nil
}

// LoadState replaces the engine's state with the contents of a snapshot
// file.
func (e *Engine) LoadState(path string) error {
	snapshot, err := store.ReadSnapshot(path)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.admin = snapshot.Admin
	e.config = snapshot.Config
	e.store.Restore(snapshot.Sarcophagi, snapshot.Cursed)
	e.ledger.Restore(snapshot.Accounts, snapshot.ProtocolFees)
	e.registry.Restore(snapshot.Profiles, snapshot.Stats)

	e.log.Info("State loaded", "path", path, "sarcophagi", len(snapshot.Sarcophagi))
	return nil
}
