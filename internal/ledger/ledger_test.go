package ledger

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wei(s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestAccount_StakeAccounting(t *testing.T) {
	acct := NewAccount(wei("1000000000000000000")) // 1 ETH

	stake := wei("20000000000000000") // 0.02 ETH
	acct.DepositStake(stake)
	acct.DepositStake(stake)
	assert.Equal(t, wei("40000000000000000"), acct.Held)
	assert.Equal(t, wei("1040000000000000000"), acct.Balance())

	require.NoError(t, acct.ReleaseStake(stake))
	assert.Equal(t, wei("20000000000000000"), acct.Held)

	// Releasing more than held must fail without mutation.
	err := acct.ReleaseStake(wei("999000000000000000"))
	assert.ErrorIs(t, err, ErrStakeNotHeld)
	assert.Equal(t, wei("20000000000000000"), acct.Held)
}

func TestAccount_PayFromPool(t *testing.T) {
	acct := NewAccount(wei("100"))

	require.NoError(t, acct.PayFromPool(wei("60")))
	assert.Equal(t, wei("40"), acct.Pool)

	err := acct.PayFromPool(wei("41"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, wei("40"), acct.Pool)
}

func TestSettle_SingleWinner(t *testing.T) {
	acct := NewAccount(wei("1000000000000000000"))
	stake := wei("20000000000000000")
	acct.DepositStake(stake)

	s, err := Settle(acct, "0xowner", []Stakeholder{{Researcher: "0xaaa", Stake: stake}}, nil)
	require.NoError(t, err)

	require.Len(t, s.Payouts, 1)
	assert.Equal(t, "0xaaa", s.Payouts[0].Recipient)
	assert.Equal(t, wei("1020000000000000000"), s.Payouts[0].Amount)
	assert.Equal(t, wei("1020000000000000000"), s.TotalPaid)
	assert.True(t, s.Dust.IsZero())
	assert.Nil(t, s.OwnerReturn)

	// Account drained.
	assert.True(t, acct.Pool.IsZero())
	assert.True(t, acct.Held.IsZero())
}

func TestSettle_EqualSplitWithDust(t *testing.T) {
	acct := NewAccount(wei("100"))
	stake := wei("7")
	winners := []Stakeholder{
		{Researcher: "0xa", Stake: new(uint256.Int).Set(stake)},
		{Researcher: "0xb", Stake: new(uint256.Int).Set(stake)},
		{Researcher: "0xc", Stake: new(uint256.Int).Set(stake)},
	}
	for range winners {
		acct.DepositStake(stake)
	}

	s, err := Settle(acct, "0xowner", winners, nil)
	require.NoError(t, err)

	assert.Equal(t, wei("33"), s.Share)
	assert.Equal(t, wei("1"), s.Dust)
	for _, p := range s.Payouts {
		assert.Equal(t, wei("40"), p.Amount) // 33 + 7 stake
	}
	assert.Equal(t, wei("120"), s.TotalPaid)

	// Dust stays in the pool, held stakes fully released.
	assert.Equal(t, wei("1"), acct.Pool)
	assert.True(t, acct.Held.IsZero())
}

func TestSettle_RefundsPending(t *testing.T) {
	acct := NewAccount(wei("500"))
	stake := wei("10")
	acct.DepositStake(stake)
	acct.DepositStake(stake)

	s, err := Settle(acct, "0xowner",
		[]Stakeholder{{Researcher: "0xa", Stake: new(uint256.Int).Set(stake)}},
		[]Stakeholder{{Researcher: "0xb", Stake: new(uint256.Int).Set(stake)}},
	)
	require.NoError(t, err)

	require.Len(t, s.Refunds, 1)
	assert.Equal(t, "0xb", s.Refunds[0].Recipient)
	assert.Equal(t, wei("10"), s.Refunds[0].Amount)

	require.Len(t, s.Payouts, 1)
	assert.Equal(t, wei("510"), s.Payouts[0].Amount)
}

func TestSettle_NoWinnersReturnsPoolToOwner(t *testing.T) {
	acct := NewAccount(wei("1000"))
	stake := wei("10")
	acct.DepositStake(stake)

	s, err := Settle(acct, "0xowner", nil,
		[]Stakeholder{{Researcher: "0xb", Stake: new(uint256.Int).Set(stake)}})
	require.NoError(t, err)

	require.NotNil(t, s.OwnerReturn)
	assert.Equal(t, wei("1000"), s.OwnerReturn)
	assert.Empty(t, s.Payouts)
	require.Len(t, s.Refunds, 1)
	assert.True(t, acct.Pool.IsZero())
	assert.True(t, acct.Held.IsZero())
}

func TestSettle_ZeroPool(t *testing.T) {
	acct := NewAccount(new(uint256.Int))
	s, err := Settle(acct, "0xowner", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, s.OwnerReturn)
	assert.Empty(t, s.Payouts)
	assert.Empty(t, s.Refunds)
}

// Conservation: funded amount equals everything distributed plus what
// remains in the account, across a mix of outcomes.
func TestSettle_Conservation(t *testing.T) {
	initial := wei("1000000000000000001") // odd to force dust
	acct := NewAccount(initial)
	stake := wei("20000000000000000")

	var winners, pending []Stakeholder
	for _, r := range []string{"0xa", "0xb"} {
		acct.DepositStake(stake)
		winners = append(winners, Stakeholder{Researcher: r, Stake: new(uint256.Int).Set(stake)})
	}
	acct.DepositStake(stake)
	pending = append(pending, Stakeholder{Researcher: "0xc", Stake: new(uint256.Int).Set(stake)})

	funded := new(uint256.Int).Add(initial, new(uint256.Int).Mul(stake, uint256.NewInt(3)))

	s, err := Settle(acct, "0xowner", winners, pending)
	require.NoError(t, err)

	out := new(uint256.Int).Set(s.TotalPaid)
	for _, r := range s.Refunds {
		out.Add(out, r.Amount)
	}
	out.Add(out, acct.Balance())

	assert.Equal(t, funded, out)
	assert.Equal(t, wei("1"), s.Dust)
}
