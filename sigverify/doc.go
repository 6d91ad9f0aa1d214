// Package sigverify binds off-chain commitments to archaeologist addresses.
//
// Archaeologists negotiate curse terms off-chain and hand the embalmer a
// signature over those terms. At creation the engine rebuilds the signed
// message from the submitted parameters and recovers the signer; a mismatch
// against the expected archaeologist address rejects the whole creation.
// Accusals work the same way: a signature over (sarcophagus id, payment
// address) proves possession of a committed private key.
//
// Messages are ABI-packed and hashed with keccak256 under the standard
// Ethereum signed-message prefix, so signatures produced by any Ethereum
// wallet verify here unchanged.
//
// The EthereumVerifier implements interfaces.SignatureVerifier; tests swap in
// the deterministic StubVerifier.
package sigverify
