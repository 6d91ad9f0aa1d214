package engine

import (
	"crypto/ecdsa"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/sarcophagus-org/sarco-engine/interfaces"
	"github.com/sarcophagus-org/sarco-engine/sigverify"
	"github.com/sarcophagus-org/sarco-engine/token"
)

const (
	testBaseTime      = int64(1_700_000_000)
	testGracePeriod   = int64(3600)
	testClaimWindow   = int64(86_400)
	testExpiration    = int64(3600)
	testRewrapMax     = int64(1_000_000)
	testResurrectIn   = int64(10_000)
	testFeePerSecond  = int64(2)
	testProtocolFeeBP = uint64(100)
)

var testEscrow = common.HexToAddress("0x00000000000000000000000000000000000e5c20")

type testArchaeologist struct {
	wallet   *ecdsa.PrivateKey
	address  common.Address
	sarcoKey *ecdsa.PrivateKey
}

type testHarness struct {
	engine   *Engine
	bank     *token.Bank
	clock    *clock.Mock
	sink     *MemorySink
	admin    common.Address
	embalmer common.Address
	archs    []*testArchaeologist
}

func newTestHarness(t *testing.T, archCount int) *testHarness {
	return newTestHarnessWithToken(t, archCount, nil)
}

// newTestHarnessWithToken optionally wraps the bank so a test can observe or
// interleave token calls.
func newTestHarnessWithToken(t *testing.T, archCount int, wrap func(interfaces.Token) interfaces.Token) *testHarness {
	t.Helper()

	clk := clock.NewMock()
	clk.Set(time.Unix(testBaseTime, 0))

	bank := token.NewBank(testEscrow)
	var tok interfaces.Token = bank
	if wrap != nil {
		tok = wrap(bank)
	}
	sink := NewMemorySink(64)
	admin := common.HexToAddress("0x0000000000000000000000000000000000000add")
	embalmer := common.HexToAddress("0x000000000000000000000000000000000000e4ba")

	eng := New(&Config{
		Token:         tok,
		Verifier:      sigverify.NewEthereumVerifier(),
		Clock:         clk,
		Sink:          sink,
		EscrowAccount: testEscrow,
		Admin:         admin,
		Protocol: interfaces.ProtocolConfig{
			GracePeriod:               testGracePeriod,
			EmbalmerClaimWindow:       testClaimWindow,
			ExpirationThreshold:       testExpiration,
			ProtocolFeeBasePercentage: testProtocolFeeBP,
			CursedBondPercentage:      10_000,
		},
		Log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	h := &testHarness{
		engine:   eng,
		bank:     bank,
		clock:    clk,
		sink:     sink,
		admin:    admin,
		embalmer: embalmer,
	}

	funds := big.NewInt(1_000_000_000)
	bank.Mint(embalmer, funds)
	bank.Approve(embalmer, funds)

	for i := 0; i < archCount; i++ {
		wallet, err := crypto.GenerateKey()
		require.NoError(t, err)
		sarcoKey, err := crypto.GenerateKey()
		require.NoError(t, err)

		arch := &testArchaeologist{
			wallet:   wallet,
			address:  crypto.PubkeyToAddress(wallet.PublicKey),
			sarcoKey: sarcoKey,
		}
		bank.Mint(arch.address, funds)
		bank.Approve(arch.address, funds)
		require.NoError(t, eng.Registry().Register(
			arch.address,
			fmt.Sprintf("peer-%d", i),
			big.NewInt(1),
			testRewrapMax,
			big.NewInt(1_000_000),
		))
		h.archs = append(h.archs, arch)
	}
	return h
}

func (h *testHarness) now() int64 {
	return h.clock.Now().Unix()
}

func (h *testHarness) advance(seconds int64) {
	h.clock.Add(time.Duration(seconds) * time.Second)
}

// createParams builds a fully signed creation request for all harness
// archaeologists with a k-of-n threshold.
func (h *testHarness) createParams(t *testing.T, id interfaces.SarcophagusID, threshold int) CreateParams {
	t.Helper()

	params := CreateParams{
		ID:                    id,
		Name:                  "test sarcophagus",
		ResurrectionTime:      h.now() + testResurrectIn,
		CreationTime:          h.now(),
		MaximumRewrapInterval: testRewrapMax,
		Threshold:             threshold,
		ArweaveTxIDs:          [2]string{"payload-tx", "shards-tx"},
		Recipient:             common.HexToAddress("0x0000000000000000000000000000000000007ec1"),
	}
	for _, arch := range h.archs {
		params.Archaeologists = append(params.Archaeologists, selectedArchaeologist(t, arch, params))
	}
	return params
}

func selectedArchaeologist(t *testing.T, arch *testArchaeologist, params CreateParams) SelectedArchaeologist {
	t.Helper()

	publicKey := crypto.FromECDSAPub(&arch.sarcoKey.PublicKey)
	fee := big.NewInt(testFeePerSecond)
	message, err := sigverify.CurseMessage(
		publicKey,
		params.ArweaveTxIDs[1],
		params.MaximumRewrapInterval,
		params.CreationTime,
		fee,
		arch.address,
	)
	require.NoError(t, err)
	signature, err := sigverify.Sign(message, arch.wallet)
	require.NoError(t, err)

	return SelectedArchaeologist{
		Address:             arch.address,
		PublicKey:           publicKey,
		DiggingFeePerSecond: fee,
		Signature:           signature,
	}
}

func (h *testHarness) create(t *testing.T, id interfaces.SarcophagusID, threshold int) CreateParams {
	t.Helper()
	params := h.createParams(t, id, threshold)
	require.NoError(t, h.engine.CreateSarcophagus(h.embalmer, params))
	return params
}

func sarcoID(seed byte) interfaces.SarcophagusID {
	var id interfaces.SarcophagusID
	id[0] = seed
	id[31] = seed
	return id
}

func TestCreateSarcophagus(t *testing.T) {
	h := newTestHarness(t, 3)
	id := sarcoID(1)

	embalmerBefore := h.bank.BalanceOf(h.embalmer)
	escrowBefore := h.bank.BalanceOf(testEscrow)
	freeBefore := h.engine.Ledger().FreeBond(h.archs[0].address)

	h.create(t, id, 2)

	perArchFee := big.NewInt(testFeePerSecond * testResurrectIn)
	totalFees := new(big.Int).Mul(perArchFee, big.NewInt(3))
	protocolFee := new(big.Int).Div(new(big.Int).Mul(totalFees, big.NewInt(int64(testProtocolFeeBP))), big.NewInt(10_000))
	collected := new(big.Int).Add(totalFees, protocolFee)

	require.Equal(t, new(big.Int).Sub(embalmerBefore, collected), h.bank.BalanceOf(h.embalmer))
	require.Equal(t, new(big.Int).Add(escrowBefore, collected), h.bank.BalanceOf(testEscrow))
	require.Equal(t, protocolFee, h.engine.Ledger().ProtocolFees())

	// At a 100% cursed bond percentage each archaeologist locks exactly
	// their digging fee.
	for _, arch := range h.archs {
		require.Equal(t, perArchFee, h.engine.Ledger().CursedBond(arch.address))
		require.Equal(t, new(big.Int).Sub(freeBefore, perArchFee), h.engine.Ledger().FreeBond(arch.address))
	}

	details, err := h.engine.Sarcophagus(id)
	require.NoError(t, err)
	require.Equal(t, h.embalmer, details.Sarcophagus.Embalmer)
	require.Equal(t, 2, details.Sarcophagus.Threshold)
	require.Len(t, details.Cursed, 3)
	require.Equal(t, perArchFee, details.Cursed[h.archs[0].address].CursedBond)

	require.Contains(t, h.engine.SarcophagiByEmbalmer(h.embalmer), id)
	require.Contains(t, h.engine.SarcophagiByArchaeologist(h.archs[1].address), id)

	events := h.sink.EventsFor(id)
	require.Len(t, events, 1)
	require.Equal(t, interfaces.EventTypeCreated, events[0].EventType())
}

func TestCreateValidation(t *testing.T) {
	h := newTestHarness(t, 3)
	id := sarcoID(2)
	h.create(t, id, 2)

	t.Run("duplicate id", func(t *testing.T) {
		err := h.engine.CreateSarcophagus(h.embalmer, h.createParams(t, id, 2))
		require.ErrorIs(t, err, interfaces.ErrSarcophagusAlreadyExists)
	})

	t.Run("expired parameters", func(t *testing.T) {
		params := h.createParams(t, sarcoID(3), 2)
		params.CreationTime = h.now() - testExpiration - 1
		err := h.engine.CreateSarcophagus(h.embalmer, params)
		require.ErrorIs(t, err, interfaces.ErrSarcophagusParametersExpired)
	})

	t.Run("resurrection in past", func(t *testing.T) {
		params := h.createParams(t, sarcoID(3), 2)
		params.ResurrectionTime = h.now()
		err := h.engine.CreateSarcophagus(h.embalmer, params)
		require.ErrorIs(t, err, interfaces.ErrResurrectionTimeInPast)
	})

	t.Run("resurrection too far", func(t *testing.T) {
		params := h.createParams(t, sarcoID(3), 2)
		params.ResurrectionTime = h.now() + testRewrapMax + 1
		err := h.engine.CreateSarcophagus(h.embalmer, params)
		require.ErrorIs(t, err, interfaces.ErrResurrectionTimeTooFar)
	})

	t.Run("no archaeologists", func(t *testing.T) {
		params := h.createParams(t, sarcoID(3), 2)
		params.Archaeologists = nil
		err := h.engine.CreateSarcophagus(h.embalmer, params)
		require.ErrorIs(t, err, interfaces.ErrNoArchaeologistsProvided)
	})

	t.Run("threshold out of range", func(t *testing.T) {
		params := h.createParams(t, sarcoID(3), 4)
		err := h.engine.CreateSarcophagus(h.embalmer, params)
		require.ErrorIs(t, err, interfaces.ErrInvalidThreshold)

		params = h.createParams(t, sarcoID(3), 0)
		err = h.engine.CreateSarcophagus(h.embalmer, params)
		require.ErrorIs(t, err, interfaces.ErrInvalidThreshold)
	})

	t.Run("duplicate archaeologist", func(t *testing.T) {
		params := h.createParams(t, sarcoID(3), 2)
		params.Archaeologists = append(params.Archaeologists, params.Archaeologists[0])
		err := h.engine.CreateSarcophagus(h.embalmer, params)
		require.ErrorIs(t, err, interfaces.ErrDuplicateArchaeologist)
	})

	t.Run("unregistered archaeologist", func(t *testing.T) {
		params := h.createParams(t, sarcoID(3), 2)
		params.Archaeologists[0].Address = common.HexToAddress("0x00000000000000000000000000000000000000ff")
		err := h.engine.CreateSarcophagus(h.embalmer, params)
		require.ErrorIs(t, err, interfaces.ErrArchaeologistNotRegistered)
	})

	t.Run("nil digging fee", func(t *testing.T) {
		params := h.createParams(t, sarcoID(3), 2)
		params.Archaeologists[0].DiggingFeePerSecond = nil
		err := h.engine.CreateSarcophagus(h.embalmer, params)
		require.ErrorIs(t, err, interfaces.ErrInvalidAmount)
	})

	t.Run("tampered signature", func(t *testing.T) {
		params := h.createParams(t, sarcoID(3), 2)
		params.Archaeologists[0].DiggingFeePerSecond = big.NewInt(testFeePerSecond + 5)
		err := h.engine.CreateSarcophagus(h.embalmer, params)
		require.ErrorIs(t, err, interfaces.ErrInvalidSignature)
	})

	t.Run("digging fee below minimum", func(t *testing.T) {
		require.NoError(t, h.engine.Registry().Update(h.archs[0].address, "peer-0", big.NewInt(100), testRewrapMax))
		params := h.createParams(t, sarcoID(3), 2)
		err := h.engine.CreateSarcophagus(h.embalmer, params)
		require.ErrorIs(t, err, interfaces.ErrDiggingFeeTooLow)
		require.NoError(t, h.engine.Registry().Update(h.archs[0].address, "peer-0", big.NewInt(1), testRewrapMax))
	})

	t.Run("insufficient free bond", func(t *testing.T) {
		free := h.engine.Ledger().FreeBond(h.archs[0].address)
		require.NoError(t, h.engine.Registry().WithdrawFreeBond(h.archs[0].address, free))
		params := h.createParams(t, sarcoID(3), 2)
		err := h.engine.CreateSarcophagus(h.embalmer, params)
		require.ErrorIs(t, err, interfaces.ErrInsufficientFreeBond)
		require.NoError(t, h.engine.Registry().DepositFreeBond(h.archs[0].address, free))
	})
}

func TestRewrapSarcophagus(t *testing.T) {
	h := newTestHarness(t, 2)
	id := sarcoID(4)
	params := h.create(t, id, 1)

	h.advance(4_000)
	rewrapTime := h.now()
	newResurrection := rewrapTime + 20_000

	embalmerBefore := h.bank.BalanceOf(h.embalmer)
	require.NoError(t, h.engine.RewrapSarcophagus(h.embalmer, id, newResurrection))

	// The full first period fee is released as a reward, even though the
	// rewrap happened partway through it.
	heldPerArch := big.NewInt(testFeePerSecond * testResurrectIn)
	for _, arch := range h.archs {
		require.Equal(t, heldPerArch, h.engine.Ledger().Reward(arch.address))
	}

	newPerArch := big.NewInt(testFeePerSecond * 20_000)
	newTotal := new(big.Int).Mul(newPerArch, big.NewInt(2))
	protocolFee := new(big.Int).Div(new(big.Int).Mul(newTotal, big.NewInt(int64(testProtocolFeeBP))), big.NewInt(10_000))
	collected := new(big.Int).Add(newTotal, protocolFee)
	require.Equal(t, new(big.Int).Sub(embalmerBefore, collected), h.bank.BalanceOf(h.embalmer))

	details, err := h.engine.Sarcophagus(id)
	require.NoError(t, err)
	require.Equal(t, newResurrection, details.Sarcophagus.ResurrectionTime)
	require.Equal(t, rewrapTime, details.Sarcophagus.PreviousRewrapTime)
	require.Equal(t, params.CreationTime, details.Sarcophagus.CreationTime)

	t.Run("only embalmer", func(t *testing.T) {
		err := h.engine.RewrapSarcophagus(h.archs[0].address, id, h.now()+5_000)
		require.ErrorIs(t, err, interfaces.ErrSenderNotEmbalmer)
	})

	t.Run("new time too far", func(t *testing.T) {
		err := h.engine.RewrapSarcophagus(h.embalmer, id, h.now()+testRewrapMax+1)
		require.ErrorIs(t, err, interfaces.ErrResurrectionTimeTooFar)
	})

	t.Run("after expiry", func(t *testing.T) {
		h.advance(20_001)
		err := h.engine.RewrapSarcophagus(h.embalmer, id, h.now()+5_000)
		require.ErrorIs(t, err, interfaces.ErrSarcophagusExpired)
	})
}

func TestBurySarcophagus(t *testing.T) {
	h := newTestHarness(t, 2)
	id := sarcoID(5)
	h.create(t, id, 1)

	t.Run("only embalmer", func(t *testing.T) {
		err := h.engine.BurySarcophagus(h.archs[0].address, id)
		require.ErrorIs(t, err, interfaces.ErrSenderNotEmbalmer)
	})

	require.NoError(t, h.engine.BurySarcophagus(h.embalmer, id))

	heldPerArch := big.NewInt(testFeePerSecond * testResurrectIn)
	for _, arch := range h.archs {
		require.Zero(t, h.engine.Ledger().CursedBond(arch.address).Sign())
		require.Equal(t, heldPerArch, h.engine.Ledger().Reward(arch.address))
		// A bury is no unwrapping; the success history stays empty.
		require.Empty(t, h.engine.Registry().Stats(arch.address).Successes)
	}

	t.Run("buried accepts no transitions", func(t *testing.T) {
		err := h.engine.RewrapSarcophagus(h.embalmer, id, h.now()+5_000)
		require.ErrorIs(t, err, interfaces.ErrSarcophagusBuried)

		err = h.engine.BurySarcophagus(h.embalmer, id)
		require.ErrorIs(t, err, interfaces.ErrSarcophagusBuried)

		err = h.engine.PublishPrivateKey(h.archs[0].address, id, crypto.FromECDSA(h.archs[0].sarcoKey))
		require.ErrorIs(t, err, interfaces.ErrSarcophagusBuried)
	})

	t.Run("unknown sarcophagus", func(t *testing.T) {
		err := h.engine.BurySarcophagus(h.embalmer, sarcoID(99))
		require.ErrorIs(t, err, interfaces.ErrSarcophagusDoesNotExist)
	})
}

func TestRewardWithdrawal(t *testing.T) {
	h := newTestHarness(t, 1)
	id := sarcoID(6)
	h.create(t, id, 1)
	require.NoError(t, h.engine.BurySarcophagus(h.embalmer, id))

	arch := h.archs[0]
	reward := h.engine.Ledger().Reward(arch.address)
	require.Positive(t, reward.Sign())

	balanceBefore := h.bank.BalanceOf(arch.address)
	withdrawn, err := h.engine.Registry().WithdrawReward(arch.address)
	require.NoError(t, err)
	require.Equal(t, reward, withdrawn)
	require.Equal(t, new(big.Int).Add(balanceBefore, reward), h.bank.BalanceOf(arch.address))
	require.Zero(t, h.engine.Ledger().Reward(arch.address).Sign())
}

// hookedToken lets a test interleave a call between a token transfer and the
// engine logic that follows it.
type hookedToken struct {
	interfaces.Token
	beforeTransferFrom func(from, to common.Address, amount *big.Int)
}

func (h *hookedToken) TransferFrom(from, to common.Address, amount *big.Int) error {
	if h.beforeTransferFrom != nil {
		h.beforeTransferFrom(from, to, amount)
	}
	return h.Token.TransferFrom(from, to, amount)
}

// A bond withdrawal racing the fee collection invalidates the free-bond
// pre-check. The rejected creation must refund the embalmer in full.
func TestCreateRefundsFeesOnConcurrentBondWithdrawal(t *testing.T) {
	hook := &hookedToken{}
	h := newTestHarnessWithToken(t, 1, func(tok interfaces.Token) interfaces.Token {
		hook.Token = tok
		return hook
	})
	arch := h.archs[0]
	id := sarcoID(60)
	params := h.createParams(t, id, 1)

	// Drain the archaeologist's free bond while the fee collection is in
	// flight, after the pre-check has already passed.
	hook.beforeTransferFrom = func(from, to common.Address, amount *big.Int) {
		if from != h.embalmer {
			return
		}
		hook.beforeTransferFrom = nil
		free := h.engine.Ledger().FreeBond(arch.address)
		require.NoError(t, h.engine.Registry().WithdrawFreeBond(arch.address, free))
	}

	embalmerBefore := h.bank.BalanceOf(h.embalmer)
	err := h.engine.CreateSarcophagus(h.embalmer, params)
	require.ErrorIs(t, err, interfaces.ErrInsufficientFreeBond)

	require.Equal(t, embalmerBefore, h.bank.BalanceOf(h.embalmer))
	require.Zero(t, h.bank.BalanceOf(testEscrow).Sign())
	require.Zero(t, h.engine.Ledger().CursedBond(arch.address).Sign())
	require.Zero(t, h.engine.Ledger().ProtocolFees().Sign())
	_, err = h.engine.Sarcophagus(id)
	require.ErrorIs(t, err, interfaces.ErrSarcophagusDoesNotExist)
}
