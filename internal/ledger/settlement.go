package ledger

import "github.com/holiman/uint256"

// Transfer is a single outbound payment computed by settlement.
type Transfer struct {
	Recipient string
	Amount    *uint256.Int
	// Stake is the portion of Amount that is the recipient's own
	// stake coming back, as opposed to reward share.
	Stake *uint256.Int
}

// Settlement is the result of closing a bounty: the payments to make,
// the refunds for untouched submissions, and what stays behind.
type Settlement struct {
	// Payouts pays each accepted researcher share+stake.
	Payouts []Transfer
	// Refunds returns stakes for submissions still pending at close.
	Refunds []Transfer
	// OwnerReturn is the pool handed back to the owner when nobody
	// was accepted. Nil when there is at least one winner.
	OwnerReturn *uint256.Int
	// Share is the per-winner reward cut, floor(pool/winners).
	Share *uint256.Int
	// Dust is pool mod winners, left in escrow permanently.
	Dust *uint256.Int
	// TotalPaid is the sum of all payout amounts (stakes included).
	TotalPaid *uint256.Int
}

// Stakeholder is a submission's researcher and held stake, as seen by
// settlement.
type Stakeholder struct {
	Researcher string
	Stake      *uint256.Int
}

// Settle computes the close-time distribution for a bounty. winners are
// the accepted submissions, pending the ones never resolved, owner the
// recipient of the pool when winners is empty. The account is mutated:
// on return its pool holds only dust and its held balance is zero for
// every stake passed in.
//
// The division is integer floor division. With N winners and pool P,
// each winner receives floor(P/N) plus their own stake; P mod N stays
// in the account.
func Settle(acct *Account, owner string, winners, pending []Stakeholder) (*Settlement, error) {
	s := &Settlement{
		Share:     new(uint256.Int),
		Dust:      new(uint256.Int),
		TotalPaid: new(uint256.Int),
	}

	for _, p := range pending {
		if err := acct.ReleaseStake(p.Stake); err != nil {
			return nil, err
		}
		s.Refunds = append(s.Refunds, Transfer{
			Recipient: p.Researcher,
			Amount:    new(uint256.Int).Set(p.Stake),
			Stake:     new(uint256.Int).Set(p.Stake),
		})
	}

	if len(winners) == 0 {
		if !acct.Pool.IsZero() {
			s.OwnerReturn = new(uint256.Int).Set(acct.Pool)
			if err := acct.PayFromPool(s.OwnerReturn); err != nil {
				return nil, err
			}
		}
		return s, nil
	}

	n := uint256.NewInt(uint64(len(winners)))
	s.Share.Div(acct.Pool, n)
	distributed := new(uint256.Int).Mul(s.Share, n)
	s.Dust.Sub(acct.Pool, distributed)

	for _, w := range winners {
		if err := acct.ReleaseStake(w.Stake); err != nil {
			return nil, err
		}
		amount := new(uint256.Int).Add(s.Share, w.Stake)
		s.Payouts = append(s.Payouts, Transfer{
			Recipient: w.Researcher,
			Amount:    amount,
			Stake:     new(uint256.Int).Set(w.Stake),
		})
		s.TotalPaid.Add(s.TotalPaid, amount)
	}
	if err := acct.PayFromPool(distributed); err != nil {
		return nil, err
	}

	return s, nil
}
