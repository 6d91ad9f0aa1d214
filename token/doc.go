// Package token provides implementations of the external account-balance
// service behind interfaces.Token.
//
// The fungible-token ledger itself is an external collaborator; the engine
// only ever performs transfer and transferFrom against it. Bank is an
// in-memory implementation with standard allowance semantics for development
// and tests, and MockToken is a testify mock for failure-path tests.
package token
