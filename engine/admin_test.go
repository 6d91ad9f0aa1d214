package engine

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/sarcophagus-org/sarco-engine/interfaces"
)

func TestAdminSetters(t *testing.T) {
	h := newTestHarness(t, 0)
	outsider := common.HexToAddress("0x0000000000000000000000000000000000000bbb")

	t.Run("non-admin rejected", func(t *testing.T) {
		require.ErrorIs(t, h.engine.SetGracePeriod(outsider, 60), interfaces.ErrSenderNotAdmin)
		require.ErrorIs(t, h.engine.SetEmbalmerClaimWindow(outsider, 60), interfaces.ErrSenderNotAdmin)
		require.ErrorIs(t, h.engine.SetExpirationThreshold(outsider, 60), interfaces.ErrSenderNotAdmin)
		require.ErrorIs(t, h.engine.SetProtocolFeeBasePercentage(outsider, 1), interfaces.ErrSenderNotAdmin)
		require.ErrorIs(t, h.engine.SetCursedBondPercentage(outsider, 1), interfaces.ErrSenderNotAdmin)
		require.ErrorIs(t, h.engine.TransferAdmin(outsider, outsider), interfaces.ErrSenderNotAdmin)
		_, err := h.engine.WithdrawProtocolFees(outsider, outsider)
		require.ErrorIs(t, err, interfaces.ErrSenderNotAdmin)
	})

	require.NoError(t, h.engine.SetGracePeriod(h.admin, 120))
	require.NoError(t, h.engine.SetEmbalmerClaimWindow(h.admin, 240))
	require.NoError(t, h.engine.SetExpirationThreshold(h.admin, 480))
	require.NoError(t, h.engine.SetProtocolFeeBasePercentage(h.admin, 250))
	require.NoError(t, h.engine.SetCursedBondPercentage(h.admin, 15_000))

	cfg := h.engine.Config()
	require.Equal(t, int64(120), cfg.GracePeriod)
	require.Equal(t, int64(240), cfg.EmbalmerClaimWindow)
	require.Equal(t, int64(480), cfg.ExpirationThreshold)
	require.Equal(t, uint64(250), cfg.ProtocolFeeBasePercentage)
	require.Equal(t, uint64(15_000), cfg.CursedBondPercentage)

	t.Run("admin transfer", func(t *testing.T) {
		newAdmin := common.HexToAddress("0x0000000000000000000000000000000000000ccc")
		require.NoError(t, h.engine.TransferAdmin(h.admin, newAdmin))
		require.Equal(t, newAdmin, h.engine.Admin())
		require.ErrorIs(t, h.engine.SetGracePeriod(h.admin, 60), interfaces.ErrSenderNotAdmin)
		require.NoError(t, h.engine.SetGracePeriod(newAdmin, 60))
	})
}

func TestWithdrawProtocolFees(t *testing.T) {
	h := newTestHarness(t, 2)
	h.create(t, sarcoID(50), 1)

	fees := h.engine.Ledger().ProtocolFees()
	require.Positive(t, fees.Sign())

	treasury := common.HexToAddress("0x000000000000000000000000000000000000feee")
	withdrawn, err := h.engine.WithdrawProtocolFees(h.admin, treasury)
	require.NoError(t, err)
	require.Equal(t, fees, withdrawn)
	require.Equal(t, fees, h.bank.BalanceOf(treasury))
	require.Zero(t, h.engine.Ledger().ProtocolFees().Sign())

	t.Run("empty pool withdraws zero", func(t *testing.T) {
		withdrawn, err := h.engine.WithdrawProtocolFees(h.admin, treasury)
		require.NoError(t, err)
		require.Zero(t, withdrawn.Sign())
	})
}

func TestSaveLoadState(t *testing.T) {
	h := newTestHarness(t, 2)
	id := sarcoID(51)
	h.create(t, id, 1)

	path := t.TempDir() + "/state.json"
	require.NoError(t, h.engine.SaveState(path))

	// A fresh engine sharing the same bank picks up where the first one
	// left off.
	restored := New(&Config{
		Token:         h.bank,
		Verifier:      h.engine.verifier,
		Clock:         h.clock,
		EscrowAccount: testEscrow,
	})
	require.NoError(t, restored.LoadState(path))

	require.Equal(t, h.admin, restored.Admin())
	require.Equal(t, h.engine.Config(), restored.Config())

	details, err := restored.Sarcophagus(id)
	require.NoError(t, err)
	require.Equal(t, h.embalmer, details.Sarcophagus.Embalmer)
	require.Len(t, details.Cursed, 2)

	for _, arch := range h.archs {
		require.Equal(t, h.engine.Ledger().FreeBond(arch.address), restored.Ledger().FreeBond(arch.address))
		require.Equal(t, h.engine.Ledger().CursedBond(arch.address), restored.Ledger().CursedBond(arch.address))
		profile, ok := restored.Registry().Profile(arch.address)
		require.True(t, ok)
		require.Equal(t, big.NewInt(1), profile.MinimumDiggingFeePerSecond)
	}
	require.Equal(t, h.engine.Ledger().ProtocolFees(), restored.Ledger().ProtocolFees())

	t.Run("missing file is a cold start", func(t *testing.T) {
		err := restored.LoadState(t.TempDir() + "/absent.json")
		require.Error(t, err)
	})

	t.Run("restored engine keeps operating", func(t *testing.T) {
		require.NoError(t, restored.RewrapSarcophagus(h.embalmer, id, h.now()+5_000))
	})
}
