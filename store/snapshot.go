package store

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sarcophagus-org/sarco-engine/interfaces"
	"github.com/sarcophagus-org/sarco-engine/ledger"
)

// Snapshot is the persisted form of the full engine state. Components export
// deep copies into it; restoring one replaces the components' state entirely.
type Snapshot struct {
	SavedAt int64                     `json:"saved_at"`
	Admin   common.Address            `json:"admin"`
	Config  interfaces.ProtocolConfig `json:"config"`

	Sarcophagi map[interfaces.SarcophagusID]*interfaces.Sarcophagus                            `json:"sarcophagi"`
	Cursed     map[interfaces.SarcophagusID]map[common.Address]*interfaces.CursedArchaeologist `json:"cursed_archaeologists"`

	Accounts     map[common.Address]*ledger.Account `json:"accounts"`
	ProtocolFees *big.Int                           `json:"protocol_fees"`

	Profiles map[common.Address]*interfaces.ArchaeologistProfile `json:"profiles"`
	Stats    map[common.Address]*interfaces.ArchaeologistStats   `json:"stats"`
}

// WriteSnapshot persists a snapshot as JSON, atomically via a temp file
// rename so a crash mid-write never leaves a truncated snapshot behind.
func WriteSnapshot(path string, snapshot *Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	return nil
}

// ReadSnapshot loads a previously written snapshot. A missing file returns
// os.ErrNotExist for the caller to treat as a cold start.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, nil
}
