package registry

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sarcophagus-org/sarco-engine/interfaces"
	"github.com/sarcophagus-org/sarco-engine/ledger"
)

// Registry tracks archaeologist profiles and reputation, and mediates all
// value movement between archaeologists and the bonding ledger.
type Registry struct {
	mu       sync.RWMutex
	profiles map[common.Address]*interfaces.ArchaeologistProfile
	stats    map[common.Address]*interfaces.ArchaeologistStats

	ledger *ledger.BondingLedger
	token  interfaces.Token

	// escrowAccount is the token account holding all staked collateral and
	// escrowed fees on behalf of the protocol.
	escrowAccount common.Address

	log *slog.Logger
}

// NewRegistry creates a registry backed by the given ledger and token.
// escrowAccount is the token account deposits are pulled into and
// withdrawals are paid out of.
func NewRegistry(l *ledger.BondingLedger, token interfaces.Token, escrowAccount common.Address, log *slog.Logger) *Registry {
	return &Registry{
		profiles:      make(map[common.Address]*interfaces.ArchaeologistProfile),
		stats:         make(map[common.Address]*interfaces.ArchaeologistStats),
		ledger:        l,
		token:         token,
		escrowAccount: escrowAccount,
		log:           log,
	}
}

// Register creates an archaeologist profile, optionally staking an initial
// free bond in the same call.
func (r *Registry) Register(archaeologist common.Address, peerID string, minimumDiggingFeePerSecond *big.Int, maximumRewrapInterval int64, freeBondDeposit *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if profile, ok := r.profiles[archaeologist]; ok && profile.Exists {
		return fmt.Errorf("register %s: %w", archaeologist, interfaces.ErrArchaeologistRegistered)
	}
	if minimumDiggingFeePerSecond == nil || minimumDiggingFeePerSecond.Sign() < 0 {
		return fmt.Errorf("register %s: minimum digging fee: %w", archaeologist, interfaces.ErrInvalidAmount)
	}
	if freeBondDeposit != nil && freeBondDeposit.Sign() < 0 {
		return fmt.Errorf("register %s: free bond deposit: %w", archaeologist, interfaces.ErrInvalidAmount)
	}

	if freeBondDeposit != nil && freeBondDeposit.Sign() > 0 {
		// Inbound transfer before any local mutation; a token failure is a
		// clean rejection.
		if err := r.token.TransferFrom(archaeologist, r.escrowAccount, freeBondDeposit); err != nil {
			return fmt.Errorf("free bond deposit: %w", err)
		}
		r.ledger.Deposit(archaeologist, freeBondDeposit)
	}

	r.profiles[archaeologist] = &interfaces.ArchaeologistProfile{
		Exists:                     true,
		PeerID:                     peerID,
		MinimumDiggingFeePerSecond: new(big.Int).Set(minimumDiggingFeePerSecond),
		MaximumRewrapInterval:      maximumRewrapInterval,
	}

	r.log.Info("Archaeologist registered", "archaeologist", archaeologist, "peerID", peerID)
	return nil
}

// Update replaces the negotiable terms of an existing profile.
func (r *Registry) Update(archaeologist common.Address, peerID string, minimumDiggingFeePerSecond *big.Int, maximumRewrapInterval int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.profiles[archaeologist]
	if !ok || !profile.Exists {
		return fmt.Errorf("update %s: %w", archaeologist, interfaces.ErrArchaeologistNotRegistered)
	}
	if minimumDiggingFeePerSecond == nil || minimumDiggingFeePerSecond.Sign() < 0 {
		return fmt.Errorf("update %s: minimum digging fee: %w", archaeologist, interfaces.ErrInvalidAmount)
	}

	profile.PeerID = peerID
	profile.MinimumDiggingFeePerSecond = new(big.Int).Set(minimumDiggingFeePerSecond)
	profile.MaximumRewrapInterval = maximumRewrapInterval
	return nil
}

// DepositFreeBond stakes additional collateral for an archaeologist.
func (r *Registry) DepositFreeBond(archaeologist common.Address, amount *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if profile, ok := r.profiles[archaeologist]; !ok || !profile.Exists {
		return fmt.Errorf("deposit for %s: %w", archaeologist, interfaces.ErrArchaeologistNotRegistered)
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("deposit for %s: %w", archaeologist, interfaces.ErrInvalidAmount)
	}

	if err := r.token.TransferFrom(archaeologist, r.escrowAccount, amount); err != nil {
		return fmt.Errorf("free bond deposit: %w", err)
	}
	r.ledger.Deposit(archaeologist, amount)
	return nil
}

// WithdrawFreeBond pays out part of an archaeologist's free bond. Cursed
// bond can never be withdrawn.
func (r *Registry) WithdrawFreeBond(archaeologist common.Address, amount *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("withdrawal for %s: %w", archaeologist, interfaces.ErrInvalidAmount)
	}
	if err := r.ledger.WithdrawFree(archaeologist, amount); err != nil {
		return err
	}
	if err := r.token.Transfer(archaeologist, amount); err != nil {
		// Restore the ledger so the failed withdrawal has zero effect.
		r.ledger.Deposit(archaeologist, amount)
		return fmt.Errorf("free bond withdrawal transfer: %w", err)
	}
	return nil
}

// WithdrawReward pays out the archaeologist's entire accrued reward balance
// and returns the amount paid.
func (r *Registry) WithdrawReward(archaeologist common.Address) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	amount := r.ledger.Reward(archaeologist)
	if amount.Sign() == 0 {
		return new(big.Int), nil
	}
	if err := r.ledger.DebitReward(archaeologist, amount); err != nil {
		return nil, err
	}
	if err := r.token.Transfer(archaeologist, amount); err != nil {
		r.ledger.CreditReward(archaeologist, amount)
		return nil, fmt.Errorf("reward withdrawal transfer: %w", err)
	}
	return amount, nil
}

// Profile returns a copy of the archaeologist's profile and whether it
// exists.
func (r *Registry) Profile(archaeologist common.Address) (interfaces.ArchaeologistProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.profiles[archaeologist]
	if !ok || !profile.Exists {
		return interfaces.ArchaeologistProfile{}, false
	}
	cp := *profile
	cp.MinimumDiggingFeePerSecond = new(big.Int).Set(profile.MinimumDiggingFeePerSecond)
	return cp, true
}

// Stats returns a copy of the archaeologist's reputation history.
func (r *Registry) Stats(archaeologist common.Address) interfaces.ArchaeologistStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats, ok := r.stats[archaeologist]
	if !ok {
		return interfaces.ArchaeologistStats{}
	}
	return interfaces.ArchaeologistStats{
		Successes: append([]interfaces.SarcophagusID(nil), stats.Successes...),
		Accusals:  append([]interfaces.SarcophagusID(nil), stats.Accusals...),
		Cleanups:  append([]interfaces.SarcophagusID(nil), stats.Cleanups...),
	}
}

func (r *Registry) statsFor(archaeologist common.Address) *interfaces.ArchaeologistStats {
	stats, ok := r.stats[archaeologist]
	if !ok {
		stats = &interfaces.ArchaeologistStats{}
		r.stats[archaeologist] = stats
	}
	return stats
}

// RecordSuccess marks a successful private key publication.
func (r *Registry) RecordSuccess(archaeologist common.Address, id interfaces.SarcophagusID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := r.statsFor(archaeologist)
	stats.Successes = append(stats.Successes, id)
}

// RecordAccusal marks a proven early leak.
func (r *Registry) RecordAccusal(archaeologist common.Address, id interfaces.SarcophagusID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := r.statsFor(archaeologist)
	stats.Accusals = append(stats.Accusals, id)
}

// RecordCleanup marks a cleanup strike: the archaeologist neither published
// nor was accused by the deadline.
func (r *Registry) RecordCleanup(archaeologist common.Address, id interfaces.SarcophagusID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := r.statsFor(archaeologist)
	stats.Cleanups = append(stats.Cleanups, id)
}

// Export returns deep copies of all profiles and stats for snapshot
// persistence.
func (r *Registry) Export() (map[common.Address]*interfaces.ArchaeologistProfile, map[common.Address]*interfaces.ArchaeologistStats) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profiles := make(map[common.Address]*interfaces.ArchaeologistProfile, len(r.profiles))
	for addr, profile := range r.profiles {
		cp := *profile
		cp.MinimumDiggingFeePerSecond = new(big.Int).Set(profile.MinimumDiggingFeePerSecond)
		profiles[addr] = &cp
	}
	stats := make(map[common.Address]*interfaces.ArchaeologistStats, len(r.stats))
	for addr, s := range r.stats {
		stats[addr] = &interfaces.ArchaeologistStats{
			Successes: append([]interfaces.SarcophagusID(nil), s.Successes...),
			Accusals:  append([]interfaces.SarcophagusID(nil), s.Accusals...),
			Cleanups:  append([]interfaces.SarcophagusID(nil), s.Cleanups...),
		}
	}
	return profiles, stats
}

// Restore replaces the registry's state with a previously exported snapshot.
func (r *Registry) Restore(profiles map[common.Address]*interfaces.ArchaeologistProfile, stats map[common.Address]*interfaces.ArchaeologistStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles = make(map[common.Address]*interfaces.ArchaeologistProfile, len(profiles))
	for addr, profile := range profiles {
		cp := *profile
		cp.MinimumDiggingFeePerSecond = new(big.Int)
		if profile.MinimumDiggingFeePerSecond != nil {
			cp.MinimumDiggingFeePerSecond.Set(profile.MinimumDiggingFeePerSecond)
		}
		r.profiles[addr] = &cp
	}
	r.stats = make(map[common.Address]*interfaces.ArchaeologistStats, len(stats))
	for addr, s := range stats {
		r.stats[addr] = &interfaces.ArchaeologistStats{
			Successes: append([]interfaces.SarcophagusID(nil), s.Successes...),
			Accusals:  append([]interfaces.SarcophagusID(nil), s.Accusals...),
			Cleanups:  append([]interfaces.SarcophagusID(nil), s.Cleanups...),
		}
	}
}
