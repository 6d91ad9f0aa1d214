package sigverify

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// StubVerifier maps signatures to fixed addresses, ignoring the message.
// Engine tests that are not about cryptography use it to avoid real key
// handling.
type StubVerifier struct {
	// Signers maps the string form of a signature to the address Verify
	// reports for it.
	Signers map[string]common.Address
}

// NewStubVerifier returns an empty stub; add signers via Allow.
func NewStubVerifier() *StubVerifier {
	return &StubVerifier{Signers: make(map[string]common.Address)}
}

// Allow registers signature as belonging to signer.
func (v *StubVerifier) Allow(signature []byte, signer common.Address) {
	v.Signers[string(signature)] = signer
}

// Verify returns the registered signer for signature, or an error when the
// signature is unknown.
func (v *StubVerifier) Verify(message []byte, signature []byte) (common.Address, error) {
	signer, ok := v.Signers[string(signature)]
	if !ok {
		return common.Address{}, errors.New("stub verifier: unknown signature")
	}
	return signer, nil
}
