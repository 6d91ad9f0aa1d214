package sigverify

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sarcophagus-org/sarco-engine/interfaces"
)

// ErrMalformedSignature is returned for signatures that are not 65 bytes or
// whose recovery id is out of range.
var ErrMalformedSignature = errors.New("malformed signature: want 65 bytes [R || S || V]")

// CurseMessage builds the message an archaeologist signs to commit to a
// curse: the key-share public key, the shard payload locator, the session's
// maximum rewrap interval, the negotiated creation time, the per-second
// digging fee, and the archaeologist's own address.
func CurseMessage(publicKey []byte, shardTxID string, maximumRewrapInterval, creationTime int64, diggingFeePerSecond *big.Int, archaeologist common.Address) ([]byte, error) {
	bytesTy, _ := abi.NewType("bytes", "", nil)
	stringTy, _ := abi.NewType("string", "", nil)
	uint256Ty, _ := abi.NewType("uint256", "", nil)
	addressTy, _ := abi.NewType("address", "", nil)

	arguments := abi.Arguments{
		{Type: bytesTy},
		{Type: stringTy},
		{Type: uint256Ty},
		{Type: uint256Ty},
		{Type: uint256Ty},
		{Type: addressTy},
	}

	return arguments.Pack(
		publicKey,
		shardTxID,
		big.NewInt(maximumRewrapInterval),
		big.NewInt(creationTime),
		diggingFeePerSecond,
		archaeologist,
	)
}

// AccuseMessage builds the message whose signature proves a leaked key
// share: the sarcophagus id and the address the accuser wants paid. Binding
// the payment address into the signed message keeps relayed accusals safe
// from payout redirection.
func AccuseMessage(id interfaces.SarcophagusID, paymentAddress common.Address) ([]byte, error) {
	bytes32Ty, _ := abi.NewType("bytes32", "", nil)
	addressTy, _ := abi.NewType("address", "", nil)

	arguments := abi.Arguments{
		{Type: bytes32Ty},
		{Type: addressTy},
	}

	return arguments.Pack([32]byte(id), paymentAddress)
}

// EthereumVerifier recovers signer addresses from secp256k1 signatures over
// prefixed keccak256 message hashes.
type EthereumVerifier struct{}

// NewEthereumVerifier returns a verifier for Ethereum wallet signatures.
func NewEthereumVerifier() *EthereumVerifier {
	return &EthereumVerifier{}
}

// Verify recovers the address that signed message. The signature is the
// usual 65-byte [R || S || V] form with V either 0/1 or 27/28.
func (v *EthereumVerifier) Verify(message []byte, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, ErrMalformedSignature
	}

	// Normalize the recovery id: wallets emit 27/28, crypto wants 0/1.
	sig := make([]byte, crypto.SignatureLength)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return common.Address{}, ErrMalformedSignature
	}

	pubkey, err := crypto.SigToPub(prefixedHash(message), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("signature recovery failed: %w", err)
	}
	return crypto.PubkeyToAddress(*pubkey), nil
}

// Sign produces a signature over message that Verify recovers to the
// signer's address. Used by tests and by the off-chain tooling.
func Sign(message []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	return crypto.Sign(prefixedHash(message), key)
}

// PrivateKeyMatchesPublic reports whether the 32-byte private key derives
// the committed 65-byte uncompressed public key.
func PrivateKeyMatchesPublic(privateKey, publicKey []byte) bool {
	key, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return false
	}
	return bytes.Equal(crypto.FromECDSAPub(&key.PublicKey), publicKey)
}

// AddressFromPublicKey derives the Ethereum address of a 65-byte
// uncompressed public key.
func AddressFromPublicKey(publicKey []byte) (common.Address, error) {
	pubkey, err := crypto.UnmarshalPubkey(publicKey)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pubkey), nil
}

func prefixedHash(message []byte) []byte {
	digest := crypto.Keccak256(message)
	return crypto.Keccak256([]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(digest))), digest)
}
