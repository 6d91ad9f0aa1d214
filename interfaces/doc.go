// Package interfaces defines core interfaces and types for the sarcophagus
// escrow engine, separating interface definitions from implementations.
//
// The package provides the contracts between the system's components:
//
// # Escrow Types
//
// Sarcophagus: One escrow session protecting a secret via threshold
// key-sharing. Holds the resurrection deadline, the selected archaeologists
// and the session-wide parameters fixed at creation.
//
// CursedArchaeologist: The per-session record of one bonded archaeologist,
// keyed by sarcophagus and address. Carries the committed public key, the
// published private key once released, and the accusal flag.
//
// ArchaeologistProfile: The public registry entry an archaeologist exposes to
// be eligible for selection: peer identity, minimum fee rate and maximum
// rewrap interval.
//
// # Component Contracts
//
// Token: The external account-balance service holding SARCO. The engine only
// ever calls Transfer and TransferFrom; the ledger itself is out of scope.
//
// SignatureVerifier: Recovers the signer address for a message/signature
// pair. Swappable for a deterministic stub in tests.
//
// EventSink: Receives the structured records emitted by every successful
// state transition. Events are the system's only audit trail.
//
// # Error Taxonomy
//
// Every rejected transition surfaces one of the sentinel errors defined in
// errors.go, wrapped with call-site context. See the taxonomy comment there.
package interfaces
