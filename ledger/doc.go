// Package ledger implements the bonding ledger: per-archaeologist free bond,
// cursed (locked) bond and reward balances, plus the protocol fee pool.
//
// Free bond is collateral an archaeologist has staked but not committed;
// cursing a sarcophagus moves collateral from free to cursed, and releasing
// or slashing the curse moves it back or burns it. The sum of free and cursed
// bond only ever changes through Deposit, WithdrawFree and DecreaseCursedBond;
// regular curse bookkeeping is always a move between the two buckets.
//
// Every method is atomic with respect to a single call. Callers needing
// multi-step atomicity (the engines) serialize around the ledger with their
// own lock.
package ledger
