package interfaces

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// SarcophagusID uniquely identifies one escrow session. It is chosen by the
// embalmer off-chain (typically a keccak hash of the session negotiation) and
// is immutable once a sarcophagus is created under it.
type SarcophagusID [32]byte

// MaxResurrectionTime is the sentinel deadline marking a buried sarcophagus.
// No rewrap, publish, accusal or clean is possible past this point.
const MaxResurrectionTime = int64(math.MaxInt64)

// NewSarcophagusIDFromBytes creates a sarcophagus ID from a 32-byte slice.
func NewSarcophagusIDFromBytes(source []byte) (SarcophagusID, error) {
	if len(source) != 32 {
		return SarcophagusID{}, errors.New("invalid sarcophagus ID length: must be 32 bytes")
	}

	var id SarcophagusID
	copy(id[:], source)
	return id, nil
}

// NewSarcophagusIDFromHex creates a sarcophagus ID from a 64-character hex
// string, with or without a 0x prefix.
func NewSarcophagusIDFromHex(source string) (SarcophagusID, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 64 {
		return SarcophagusID{}, errors.New("invalid sarcophagus ID length: hex string must be 64 characters")
	}

	idBytes, err := hex.DecodeString(clean)
	if err != nil {
		return SarcophagusID{}, fmt.Errorf("invalid hex format: %w", err)
	}

	return NewSarcophagusIDFromBytes(idBytes)
}

// String returns the hex string representation of the sarcophagus ID.
func (id SarcophagusID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the raw 32-byte ID.
func (id SarcophagusID) Bytes() []byte {
	return id[:]
}

// MarshalText encodes the ID as hex, making it usable as a JSON map key.
func (id SarcophagusID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes a hex-encoded ID.
func (id *SarcophagusID) UnmarshalText(text []byte) error {
	decoded, err := NewSarcophagusIDFromHex(string(text))
	if err != nil {
		return err
	}
	*id = decoded
	return nil
}

// Sarcophagus is the canonical state of one escrow session. A sarcophagus
// exists iff ResurrectionTime is non-zero; a ResurrectionTime of
// MaxResurrectionTime marks a buried (terminated) session.
type Sarcophagus struct {
	ID               SarcophagusID
	Name             string
	ResurrectionTime int64
	IsCompromised    bool
	IsCleaned        bool

	// Threshold is the minimum number of accused archaeologists that marks
	// the session compromised. Always 0 < Threshold <= len(Archaeologists).
	Threshold int

	// MaximumRewrapInterval bounds how far into the future any rewrap may
	// push the resurrection time. Fixed at creation.
	MaximumRewrapInterval int64

	// ArweaveTxIDs locate the encrypted payload and the encrypted key
	// shards off-chain. The engine never dereferences them.
	ArweaveTxIDs [2]string

	Embalmer  common.Address
	Recipient common.Address

	// Archaeologists lists the cursed archaeologists in selection order.
	Archaeologists []common.Address

	CreationTime int64

	// PreviousRewrapTime is the start of the current fee accrual period:
	// creation time initially, then the timestamp of each successful rewrap.
	PreviousRewrapTime int64
}

// Exists reports whether the record denotes a created sarcophagus.
func (s *Sarcophagus) Exists() bool {
	return s != nil && s.ResurrectionTime != 0
}

// IsBuried reports whether the sarcophagus has been terminated by its
// embalmer.
func (s *Sarcophagus) IsBuried() bool {
	return s.ResurrectionTime == MaxResurrectionTime
}

// CursedArchaeologist is the per-sarcophagus record of one bonded
// archaeologist. The record exists iff PublicKey is non-empty.
type CursedArchaeologist struct {
	// PublicKey is the committed key material: the 65-byte uncompressed
	// secp256k1 public key whose private half the archaeologist must
	// publish after the resurrection time.
	PublicKey []byte

	// PrivateKey is empty until the archaeologist publishes it.
	PrivateKey []byte

	IsAccused bool

	// DiggingFeePerSecond is the fee rate the archaeologist committed to
	// for this sarcophagus.
	DiggingFeePerSecond *big.Int

	// CursedBond is the exact collateral locked for this curse, recorded
	// at creation so releases and slashes are unaffected by later changes
	// to the cursed bond percentage.
	CursedBond *big.Int
}

// Exists reports whether the archaeologist is cursed on the sarcophagus.
func (c *CursedArchaeologist) Exists() bool {
	return c != nil && len(c.PublicKey) > 0
}

// HasPublished reports whether the private key has been published.
func (c *CursedArchaeologist) HasPublished() bool {
	return c != nil && len(c.PrivateKey) > 0
}

// ArchaeologistProfile is the public registry entry gating an archaeologist's
// eligibility for selection. Bond balances live in the bonding ledger and are
// only reported alongside the profile; they never change through it.
type ArchaeologistProfile struct {
	Exists bool

	// PeerID identifies the archaeologist on the off-chain p2p network.
	PeerID string

	// MinimumDiggingFeePerSecond is the lowest fee rate the archaeologist
	// accepts.
	MinimumDiggingFeePerSecond *big.Int

	// MaximumRewrapInterval is the longest rewrap interval the
	// archaeologist accepts for new sarcophagi.
	MaximumRewrapInterval int64
}

// ArchaeologistStats tracks the reputation history of one archaeologist:
// which sarcophagi it unwrapped successfully, was accused on, and failed
// without excuse (cleaned).
type ArchaeologistStats struct {
	Successes []SarcophagusID
	Accusals  []SarcophagusID
	Cleanups  []SarcophagusID
}

// ProtocolConfig holds the admin-tunable protocol parameters. Percentages are
// expressed in basis points (10000 = 100%).
type ProtocolConfig struct {
	// GracePeriod is the window after the resurrection time during which
	// archaeologists may publish their private keys.
	GracePeriod int64

	// EmbalmerClaimWindow is the window after the grace period during
	// which only the embalmer may clean the sarcophagus.
	EmbalmerClaimWindow int64

	// ExpirationThreshold bounds how stale the off-chain negotiation may
	// be at creation: now must not exceed creationTime + threshold.
	ExpirationThreshold int64

	// ProtocolFeeBasePercentage is charged on top of digging fees at
	// creation and rewrap.
	ProtocolFeeBasePercentage uint64

	// CursedBondPercentage scales the bond locked per digging fee.
	CursedBondPercentage uint64
}

// ProtocolFee computes the protocol's cut on top of totalDiggingFees,
// rounding down.
func (c ProtocolConfig) ProtocolFee(totalDiggingFees *big.Int) *big.Int {
	fee := new(big.Int).Mul(totalDiggingFees, new(big.Int).SetUint64(c.ProtocolFeeBasePercentage))
	return fee.Div(fee, big.NewInt(10000))
}

// CursedBond computes the bond locked for a digging fee, rounding down.
func (c ProtocolConfig) CursedBond(diggingFee *big.Int) *big.Int {
	bond := new(big.Int).Mul(diggingFee, new(big.Int).SetUint64(c.CursedBondPercentage))
	return bond.Div(bond, big.NewInt(10000))
}
