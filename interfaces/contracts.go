package interfaces

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Token is the external account-balance service holding SARCO. Both methods
// follow standard debit/credit semantics and return an error on insufficient
// balance or missing allowance. The engine treats the token as an arbitrary
// external call: local state is always committed (or restored) around it.
type Token interface {
	// Transfer moves amount from the engine's own account to `to`.
	Transfer(to common.Address, amount *big.Int) error

	// TransferFrom moves amount from `from` to `to` using the allowance
	// granted to the engine.
	TransferFrom(from, to common.Address, amount *big.Int) error
}

// SignatureVerifier recovers the signer of a message. Implementations hash
// the message internally; the engine never deals with digests directly.
type SignatureVerifier interface {
	// Verify returns the address that produced signature over message, or
	// an error when the signature is malformed or unrecoverable.
	Verify(message []byte, signature []byte) (common.Address, error)
}

// Event is a structured record emitted by a successful state transition.
// Events are the system's only externally observable audit trail.
type Event interface {
	// EventType returns a stable name for off-chain indexers.
	EventType() string

	// SarcophagusID returns the session the event belongs to.
	SarcophagusID() SarcophagusID
}

// EventSink receives emitted events. Emit is called with the engine lock
// held, strictly after the corresponding state has been committed, so sinks
// observe events in transition order.
type EventSink interface {
	Emit(event Event)
}
