// Package store holds the canonical sarcophagus state: one record per escrow
// session plus the cursed archaeologist records keyed by sarcophagus and
// address, with lookup indexes by embalmer, recipient and archaeologist.
//
// The store exclusively owns CursedArchaeologist records. Engines read and
// mutate through accessor methods; the indexes are maintained on insert and
// never separately, so the query surface in §views is always derived from the
// same maps the engines mutate.
//
// Snapshot/LoadSnapshot persist the full engine state (store, ledger,
// registry, protocol config) as a single JSON document written atomically via
// a temp file rename.
package store
