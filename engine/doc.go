// Package engine implements the sarcophagus lifecycle state machine: session
// creation with multi-party signature verification, renewal (rewrap), early
// termination (bury), deadline-gated key publication, leak accusal with
// threshold compromise detection, and the punitive cleanup sweep.
//
// Every state-mutating operation is serialized behind one mutex and either
// fully commits or fully rejects. Validation precedes mutation; inbound token
// collection precedes local mutation (a collection failure is a clean
// reject); outbound transfers happen only after all records are committed,
// and the operations with direct outbound payouts restore their pre-call
// snapshot if the transfer reports failure. No code path performs an
// external transfer before its corresponding state commit.
//
// Deadline-gated transitions are driven by callers polling after the
// deadline; the engine never self-invokes.
package engine
