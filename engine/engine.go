package engine

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"

	"github.com/sarcophagus-org/sarco-engine/interfaces"
	"github.com/sarcophagus-org/sarco-engine/ledger"
	"github.com/sarcophagus-org/sarco-engine/registry"
	"github.com/sarcophagus-org/sarco-engine/store"
)

// Config assembles the engine's collaborators. Token and Verifier are
// required; Clock and Sink default to the real clock and a no-op sink.
type Config struct {
	// Token is the external account-balance service holding SARCO.
	Token interfaces.Token

	// Verifier recovers signer addresses for curse and accusal signatures.
	Verifier interfaces.SignatureVerifier

	// Clock supplies the current time; swap in a mock for deadline tests.
	Clock clock.Clock

	// Sink receives the emitted audit events.
	Sink interfaces.EventSink

	// EscrowAccount is the token account holding staked collateral and
	// escrowed digging fees on behalf of the protocol.
	EscrowAccount common.Address

	// Admin is the initial protocol admin.
	Admin common.Address

	// Protocol holds the initial protocol parameters.
	Protocol interfaces.ProtocolConfig

	Log *slog.Logger
}

// Engine owns the sarcophagus store, the bonding ledger and the registry,
// and applies every lifecycle state transition against them.
type Engine struct {
	mu sync.Mutex

	store    *store.Store
	ledger   *ledger.BondingLedger
	registry *registry.Registry

	token    interfaces.Token
	verifier interfaces.SignatureVerifier
	clock    clock.Clock
	sink     interfaces.EventSink
	log      *slog.Logger

	escrowAccount common.Address
	admin         common.Address
	config        interfaces.ProtocolConfig
}

type noopSink struct{}

func (noopSink) Emit(interfaces.Event) {}

// New creates an engine with a fresh store, ledger and registry.
func New(cfg *Config) *Engine {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	sink := cfg.Sink
	if sink == nil {
		sink = noopSink{}
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	l := ledger.NewBondingLedger()
	return &Engine{
		store:         store.NewStore(),
		ledger:        l,
		registry:      registry.NewRegistry(l, cfg.Token, cfg.EscrowAccount, log),
		token:         cfg.Token,
		verifier:      cfg.Verifier,
		clock:         clk,
		sink:          sink,
		log:           log,
		escrowAccount: cfg.EscrowAccount,
		admin:         cfg.Admin,
		config:        cfg.Protocol,
	}
}

// Registry exposes the archaeologist registry for profile management and
// withdrawals.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Ledger exposes the bonding ledger for balance queries.
func (e *Engine) Ledger() *ledger.BondingLedger {
	return e.ledger
}

// Config returns the current protocol parameters.
func (e *Engine) Config() interfaces.ProtocolConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// Admin returns the current admin address.
func (e *Engine) Admin() common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.admin
}

func (e *Engine) now() int64 {
	return e.clock.Now().Unix()
}

// liveSarcophagus fetches a sarcophagus and rejects the transition when it
// does not exist, is compromised, or has been buried.
func (e *Engine) liveSarcophagus(id interfaces.SarcophagusID) (*interfaces.Sarcophagus, error) {
	sarco := e.store.Get(id)
	if !sarco.Exists() {
		return nil, fmt.Errorf("sarcophagus %s: %w", id, interfaces.ErrSarcophagusDoesNotExist)
	}
	if sarco.IsCompromised {
		return nil, fmt.Errorf("sarcophagus %s: %w", id, interfaces.ErrSarcophagusCompromised)
	}
	if sarco.IsBuried() {
		return nil, fmt.Errorf("sarcophagus %s: %w", id, interfaces.ErrSarcophagusBuried)
	}
	return sarco, nil
}

// periodFee computes the digging fee accrued at rate over [from, to].
func periodFee(rate *big.Int, from, to int64) *big.Int {
	if to <= from {
		return new(big.Int)
	}
	return new(big.Int).Mul(rate, big.NewInt(to-from))
}

// heldFee is the fee collected up front for the sarcophagus's current
// accrual period, still held in escrow for the archaeologist.
func heldFee(sarco *interfaces.Sarcophagus, cursed *interfaces.CursedArchaeologist) *big.Int {
	return periodFee(cursed.DiggingFeePerSecond, sarco.PreviousRewrapTime, sarco.ResurrectionTime)
}
