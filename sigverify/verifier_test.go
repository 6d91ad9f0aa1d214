package sigverify

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarcophagus-org/sarco-engine/interfaces"
)

func TestVerifyCurseMessage_RecoversSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)

	shareKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	message, err := CurseMessage(
		crypto.FromECDSAPub(&shareKey.PublicKey),
		"ar://shard-tx",
		7*24*3600,
		1700000000,
		big.NewInt(11),
		signer,
	)
	require.NoError(t, err)

	sig, err := Sign(message, key)
	require.NoError(t, err)

	recovered, err := NewEthereumVerifier().Verify(message, sig)
	require.NoError(t, err)
	assert.Equal(t, signer, recovered)
}

func TestVerify_WrongMessageRecoversDifferentAddress(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)

	message, err := AccuseMessage(interfaces.SarcophagusID{1}, signer)
	require.NoError(t, err)
	sig, err := Sign(message, key)
	require.NoError(t, err)

	// Tampering with the payment address must change the recovered signer.
	tampered, err := AccuseMessage(interfaces.SarcophagusID{1}, common.Address{0xff})
	require.NoError(t, err)

	recovered, err := NewEthereumVerifier().Verify(tampered, sig)
	require.NoError(t, err)
	assert.NotEqual(t, signer, recovered)
}

func TestVerify_WalletStyleRecoveryID(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)

	message := []byte("resurrection")
	sig, err := Sign(message, key)
	require.NoError(t, err)

	// Wallets report V as 27/28 rather than 0/1.
	sig[64] += 27

	recovered, err := NewEthereumVerifier().Verify(message, sig)
	require.NoError(t, err)
	assert.Equal(t, signer, recovered)
}

func TestVerify_MalformedSignature(t *testing.T) {
	_, err := NewEthereumVerifier().Verify([]byte("m"), []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrMalformedSignature)

	sig := make([]byte, 65)
	sig[64] = 9
	_, err = NewEthereumVerifier().Verify([]byte("m"), sig)
	assert.ErrorIs(t, err, ErrMalformedSignature)
}

func TestPrivateKeyMatchesPublic(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	pub := crypto.FromECDSAPub(&key.PublicKey)

	assert.True(t, PrivateKeyMatchesPublic(crypto.FromECDSA(key), pub))

	other, err := crypto.GenerateKey()
	require.NoError(t, err)
	assert.False(t, PrivateKeyMatchesPublic(crypto.FromECDSA(other), pub))
	assert.False(t, PrivateKeyMatchesPublic([]byte{1, 2}, pub))
}

func TestAddressFromPublicKey(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	addr, err := AddressFromPublicKey(crypto.FromECDSAPub(&key.PublicKey))
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), addr)

	_, err = AddressFromPublicKey([]byte{4, 2})
	assert.Error(t, err)
}
