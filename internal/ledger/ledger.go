// Package ledger implements the escrow accounting for a single bounty:
// the reward pool funded at creation plus the stakes held for open
// submissions. All amounts are wei-denominated 256-bit integers. Every
// movement either succeeds completely or leaves the account untouched.
package ledger

import (
	"errors"

	"github.com/holiman/uint256"
)

// Common ledger errors.
var (
	ErrInsufficientFunds = errors.New("insufficient escrowed funds")
	ErrStakeNotHeld      = errors.New("stake not held in escrow")
)

// Account tracks the funds escrowed for one bounty.
type Account struct {
	// Pool is the remaining reward pool. It only decreases, via
	// settlement or the owner return on a zero-winner close.
	Pool *uint256.Int

	// Held is the sum of stakes currently deposited and unresolved.
	Held *uint256.Int
}

// NewAccount creates an account funded with the given reward pool.
func NewAccount(reward *uint256.Int) *Account {
	return &Account{
		Pool: new(uint256.Int).Set(reward),
		Held: new(uint256.Int),
	}
}

// DepositStake adds a researcher stake to the held balance.
func (a *Account) DepositStake(amount *uint256.Int) {
	a.Held.Add(a.Held, amount)
}

// ReleaseStake removes a stake from the held balance, for transfer to
// either the researcher (refund, payout) or the owner (slash).
func (a *Account) ReleaseStake(amount *uint256.Int) error {
	if a.Held.Lt(amount) {
		return ErrStakeNotHeld
	}
	a.Held.Sub(a.Held, amount)
	return nil
}

// PayFromPool removes amount from the reward pool.
func (a *Account) PayFromPool(amount *uint256.Int) error {
	if a.Pool.Lt(amount) {
		return ErrInsufficientFunds
	}
	a.Pool.Sub(a.Pool, amount)
	return nil
}

// Balance returns the total funds the account currently escrows.
func (a *Account) Balance() *uint256.Int {
	return new(uint256.Int).Add(a.Pool, a.Held)
}
