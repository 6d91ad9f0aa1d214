package token

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarcophagus-org/sarco-engine/interfaces"
)

var (
	operator = common.HexToAddress("0x00000000000000000000000000000000000000e5")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob      = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func TestTransferFromRequiresAllowance(t *testing.T) {
	bank := NewBank(operator)
	bank.Mint(alice, big.NewInt(100))

	err := bank.TransferFrom(alice, operator, big.NewInt(10))
	require.ErrorIs(t, err, interfaces.ErrInsufficientBalance)

	bank.Approve(alice, big.NewInt(30))
	require.NoError(t, bank.TransferFrom(alice, operator, big.NewInt(10)))
	assert.Equal(t, big.NewInt(90), bank.BalanceOf(alice))
	assert.Equal(t, big.NewInt(10), bank.BalanceOf(operator))

	// Allowance is consumed.
	require.NoError(t, bank.TransferFrom(alice, operator, big.NewInt(20)))
	err = bank.TransferFrom(alice, operator, big.NewInt(1))
	assert.ErrorIs(t, err, interfaces.ErrInsufficientBalance)
}

func TestTransferInsufficientBalance(t *testing.T) {
	bank := NewBank(operator)
	bank.Mint(operator, big.NewInt(5))

	err := bank.Transfer(bob, big.NewInt(6))
	require.ErrorIs(t, err, interfaces.ErrInsufficientBalance)
	assert.Equal(t, big.NewInt(5), bank.BalanceOf(operator))
	assert.Equal(t, big.NewInt(0), bank.BalanceOf(bob))

	require.NoError(t, bank.Transfer(bob, big.NewInt(5)))
	assert.Equal(t, big.NewInt(5), bank.BalanceOf(bob))
}
