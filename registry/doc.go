// Package registry maintains the public archaeologist profiles that gate
// eligibility for curse selection, together with each archaeologist's
// reputation history and the deposit/withdrawal paths for free bond and
// rewards.
//
// Profiles advertise a peer identity, a minimum acceptable digging fee rate
// and a maximum acceptable rewrap interval. The creation engine checks every
// selected archaeologist against its profile before cursing its bond.
//
// Collateral and reward balances live in the bonding ledger; the registry
// is the only component that moves value between the ledger and the external
// token (deposits in, withdrawals out). Withdrawals follow state-then-transfer
// ordering and restore the ledger when the outbound transfer fails.
package registry
