package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sarcophagus-org/sarco-engine/interfaces"
	"github.com/sarcophagus-org/sarco-engine/sigverify"
	"github.com/sarcophagus-org/sarco-engine/token"
)

// accusalProof signs the accusal message with the given archaeologists'
// sarcophagus private keys, proving the keys leaked.
func accusalProof(t *testing.T, id interfaces.SarcophagusID, paymentAddress common.Address, archs ...*testArchaeologist) (publicKeys, signatures [][]byte) {
	t.Helper()
	message, err := sigverify.AccuseMessage(id, paymentAddress)
	require.NoError(t, err)

	for _, arch := range archs {
		sig, err := sigverify.Sign(message, arch.sarcoKey)
		require.NoError(t, err)
		publicKeys = append(publicKeys, crypto.FromECDSAPub(&arch.sarcoKey.PublicKey))
		signatures = append(signatures, sig)
	}
	return publicKeys, signatures
}

func TestAccuseBelowThreshold(t *testing.T) {
	h := newTestHarness(t, 5)
	id := sarcoID(20)
	h.create(t, id, 3)

	accuser := common.HexToAddress("0x000000000000000000000000000000000000acc0")
	perArchFee := big.NewInt(testFeePerSecond * testResurrectIn)

	keys, sigs := accusalProof(t, id, accuser, h.archs[0], h.archs[1])
	embalmerBefore := h.bank.BalanceOf(h.embalmer)
	require.NoError(t, h.engine.AccuseArchaeologists(id, accuser, keys, sigs))

	details, err := h.engine.Sarcophagus(id)
	require.NoError(t, err)
	require.False(t, details.Sarcophagus.IsCompromised)
	require.True(t, details.Cursed[h.archs[0].address].IsAccused)
	require.True(t, details.Cursed[h.archs[1].address].IsAccused)
	require.False(t, details.Cursed[h.archs[2].address].IsAccused)

	// Both accused lose bond equal to their digging fee; half the slash
	// goes to the accuser, the embalmer gets the rest plus the accused
	// archaeologists' escrowed fees.
	slashTotal := new(big.Int).Mul(perArchFee, big.NewInt(2))
	half := new(big.Int).Rsh(slashTotal, 1)
	expectedEmbalmer := new(big.Int).Add(half, slashTotal)
	require.Equal(t, new(big.Int).Sub(slashTotal, half), h.bank.BalanceOf(accuser))
	require.Equal(t, new(big.Int).Add(embalmerBefore, expectedEmbalmer), h.bank.BalanceOf(h.embalmer))

	for _, arch := range h.archs[:2] {
		require.Zero(t, h.engine.Ledger().CursedBond(arch.address).Sign())
		require.Equal(t, []interfaces.SarcophagusID{id}, h.engine.Registry().Stats(arch.address).Accusals)
	}
	// Untouched archaeologists stay bonded below the threshold.
	require.Equal(t, perArchFee, h.engine.Ledger().CursedBond(h.archs[2].address))

	t.Run("repeat accusal is a no-op", func(t *testing.T) {
		accuserBefore := h.bank.BalanceOf(accuser)
		require.NoError(t, h.engine.AccuseArchaeologists(id, accuser, keys, sigs))
		require.Equal(t, accuserBefore, h.bank.BalanceOf(accuser))
		require.Zero(t, h.engine.Ledger().CursedBond(h.archs[0].address).Sign())
		require.Equal(t, []interfaces.SarcophagusID{id}, h.engine.Registry().Stats(h.archs[0].address).Accusals)
		require.Empty(t, h.sink.EventsFor(id)[2:], "no event for a zero-accusal call")
	})

	t.Run("rewrap continues with the remaining archaeologists", func(t *testing.T) {
		require.NoError(t, h.engine.RewrapSarcophagus(h.embalmer, id, h.now()+5_000))
		// Accused archaeologists earn nothing on rewrap.
		require.Zero(t, h.engine.Ledger().Reward(h.archs[0].address).Sign())
		require.Equal(t, perArchFee, h.engine.Ledger().Reward(h.archs[2].address))
	})
}

func TestAccuseReachesThreshold(t *testing.T) {
	h := newTestHarness(t, 5)
	id := sarcoID(21)
	h.create(t, id, 3)

	accuser := common.HexToAddress("0x000000000000000000000000000000000000acc1")
	perArchFee := big.NewInt(testFeePerSecond * testResurrectIn)

	keys, sigs := accusalProof(t, id, accuser, h.archs[0], h.archs[1])
	require.NoError(t, h.engine.AccuseArchaeologists(id, accuser, keys, sigs))
	keys, sigs = accusalProof(t, id, accuser, h.archs[2])
	require.NoError(t, h.engine.AccuseArchaeologists(id, accuser, keys, sigs))

	details, err := h.engine.Sarcophagus(id)
	require.NoError(t, err)
	require.True(t, details.Sarcophagus.IsCompromised)

	// The never-accused archaeologists get their bonds back and keep the
	// fees already escrowed for the period.
	for _, arch := range h.archs[3:] {
		require.Zero(t, h.engine.Ledger().CursedBond(arch.address).Sign())
		require.Equal(t, perArchFee, h.engine.Ledger().Reward(arch.address))
	}

	t.Run("compromised accepts no transitions", func(t *testing.T) {
		err := h.engine.RewrapSarcophagus(h.embalmer, id, h.now()+5_000)
		require.ErrorIs(t, err, interfaces.ErrSarcophagusCompromised)

		keys, sigs := accusalProof(t, id, accuser, h.archs[4])
		err = h.engine.AccuseArchaeologists(id, accuser, keys, sigs)
		require.ErrorIs(t, err, interfaces.ErrSarcophagusCompromised)
	})
}

func TestAccuseRejections(t *testing.T) {
	h := newTestHarness(t, 2)
	id := sarcoID(22)
	h.create(t, id, 2)
	accuser := common.HexToAddress("0x000000000000000000000000000000000000acc2")

	t.Run("empty signature list", func(t *testing.T) {
		err := h.engine.AccuseArchaeologists(id, accuser, nil, nil)
		require.ErrorIs(t, err, interfaces.ErrSignatureListMismatch)
	})

	t.Run("mismatched array lengths", func(t *testing.T) {
		keys, sigs := accusalProof(t, id, accuser, h.archs[0])
		err := h.engine.AccuseArchaeologists(id, accuser, keys, append(sigs, sigs[0]))
		require.ErrorIs(t, err, interfaces.ErrSignatureListMismatch)
	})

	t.Run("public key not cursed on the sarcophagus", func(t *testing.T) {
		outsider := newTestHarness(t, 1).archs[0]
		keys, sigs := accusalProof(t, id, accuser, outsider)
		err := h.engine.AccuseArchaeologists(id, accuser, keys, sigs)
		require.ErrorIs(t, err, interfaces.ErrArchaeologistNotOnSarcophagus)
	})

	t.Run("signature bound to another payment address", func(t *testing.T) {
		other := common.HexToAddress("0x0000000000000000000000000000000000000bad")
		keys, sigs := accusalProof(t, id, other, h.archs[0])
		err := h.engine.AccuseArchaeologists(id, accuser, keys, sigs)
		require.ErrorIs(t, err, interfaces.ErrInvalidSignature)
	})

	t.Run("still allowed at the resurrection time", func(t *testing.T) {
		h.advance(testResurrectIn)
		keys, sigs := accusalProof(t, id, accuser, h.archs[0])
		require.NoError(t, h.engine.AccuseArchaeologists(id, accuser, keys, sigs))
	})

	t.Run("too late once the resurrection time passed", func(t *testing.T) {
		h.advance(1)
		keys, sigs := accusalProof(t, id, accuser, h.archs[1])
		err := h.engine.AccuseArchaeologists(id, accuser, keys, sigs)
		require.ErrorIs(t, err, interfaces.ErrTooLateToAccuse)
	})
}

// Slashing cannot be unwound once committed, so when the payout transfer
// itself fails the amount is parked in the protocol fee pool instead.
func TestAccusePayoutFailureFundsProtocolPool(t *testing.T) {
	mockToken := new(token.MockToken)
	mockToken.On("TransferFrom", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	mockToken.On("Transfer", mock.Anything, mock.Anything).Return(errors.New("token paused"))

	clk := clock.NewMock()
	clk.Set(time.Unix(testBaseTime, 0))
	embalmer := common.HexToAddress("0x000000000000000000000000000000000000e4ba")
	eng := New(&Config{
		Token:         mockToken,
		Verifier:      sigverify.NewEthereumVerifier(),
		Clock:         clk,
		Sink:          NewMemorySink(8),
		EscrowAccount: testEscrow,
		Admin:         common.HexToAddress("0x0000000000000000000000000000000000000add"),
		Protocol: interfaces.ProtocolConfig{
			GracePeriod:               testGracePeriod,
			EmbalmerClaimWindow:       testClaimWindow,
			ExpirationThreshold:       testExpiration,
			ProtocolFeeBasePercentage: testProtocolFeeBP,
			CursedBondPercentage:      10_000,
		},
		Log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	var archs []*testArchaeologist
	for i := 0; i < 2; i++ {
		wallet, err := crypto.GenerateKey()
		require.NoError(t, err)
		sarcoKey, err := crypto.GenerateKey()
		require.NoError(t, err)
		arch := &testArchaeologist{
			wallet:   wallet,
			address:  crypto.PubkeyToAddress(wallet.PublicKey),
			sarcoKey: sarcoKey,
		}
		require.NoError(t, eng.Registry().Register(
			arch.address, fmt.Sprintf("peer-%d", i), big.NewInt(1), testRewrapMax, big.NewInt(1_000_000)))
		archs = append(archs, arch)
	}

	id := sarcoID(40)
	params := CreateParams{
		ID:                    id,
		Name:                  "test sarcophagus",
		ResurrectionTime:      clk.Now().Unix() + testResurrectIn,
		CreationTime:          clk.Now().Unix(),
		MaximumRewrapInterval: testRewrapMax,
		Threshold:             2,
		ArweaveTxIDs:          [2]string{"payload-tx", "shards-tx"},
		Recipient:             common.HexToAddress("0x0000000000000000000000000000000000007ec1"),
	}
	for _, arch := range archs {
		params.Archaeologists = append(params.Archaeologists, selectedArchaeologist(t, arch, params))
	}
	require.NoError(t, eng.CreateSarcophagus(embalmer, params))

	accuser := common.HexToAddress("0x000000000000000000000000000000000000acc3")
	keys, sigs := accusalProof(t, id, accuser, archs[0])
	require.NoError(t, eng.AccuseArchaeologists(id, accuser, keys, sigs))

	// Creation fee plus the bounced embalmer and accuser payouts, which
	// together equal the slashed bond and the accused held fee.
	perArchFee := big.NewInt(testFeePerSecond * testResurrectIn)
	totalFees := new(big.Int).Mul(perArchFee, big.NewInt(2))
	createFee := new(big.Int).Div(new(big.Int).Mul(totalFees, big.NewInt(int64(testProtocolFeeBP))), big.NewInt(10_000))
	expected := new(big.Int).Add(createFee, new(big.Int).Mul(perArchFee, big.NewInt(2)))
	require.Equal(t, expected, eng.Ledger().ProtocolFees())
	mockToken.AssertExpectations(t)
}
