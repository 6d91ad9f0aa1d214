package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
)

// MockToken mocks the interfaces.Token interface
type MockToken struct {
	mock.Mock
}

// Transfer mocks the Transfer method
func (m *MockToken) Transfer(to common.Address, amount *big.Int) error {
	args := m.Called(to, amount)
	return args.Error(0)
}

// TransferFrom mocks the TransferFrom method
func (m *MockToken) TransferFrom(from, to common.Address, amount *big.Int) error {
	args := m.Called(from, to, amount)
	return args.Error(0)
}
