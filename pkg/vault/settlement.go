package vault

import (
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
)

// MaxFeeBps is the fee rate that sends every non-principal inflow to the operator.
const MaxFeeBps = 10_000

var (
	// ValidatorDepositUnit is the capital backing one validator, 32 ether in wei.
	ValidatorDepositUnit = new(uint256.Int).Mul(uint256.NewInt(32), uint256.NewInt(1e18))

	bpsDenominator = uint256.NewInt(MaxFeeBps)
)

// Settlement classifies every wei that reached the vault into fees, rewards or
// principal. Fees, rewards and ready principal always sum to the last
// observed balance.
type Settlement struct {
	UnclaimedFees        *uint256.Int
	UnclaimedRewards     *uint256.Int
	PrincipalReady       *uint256.Int
	PrincipalOutstanding *uint256.Int
	LastObservedBalance  *uint256.Int
}

func newSettlement() *Settlement {
	return &Settlement{
		UnclaimedFees:        new(uint256.Int),
		UnclaimedRewards:     new(uint256.Int),
		PrincipalReady:       new(uint256.Int),
		PrincipalOutstanding: new(uint256.Int),
		LastObservedBalance:  new(uint256.Int),
	}
}

func (s *Settlement) clone() *Settlement {
	return &Settlement{
		UnclaimedFees:        new(uint256.Int).Set(s.UnclaimedFees),
		UnclaimedRewards:     new(uint256.Int).Set(s.UnclaimedRewards),
		PrincipalReady:       new(uint256.Int).Set(s.PrincipalReady),
		PrincipalOutstanding: new(uint256.Int).Set(s.PrincipalOutstanding),
		LastObservedBalance:  new(uint256.Int).Set(s.LastObservedBalance),
	}
}

// Observe runs the waterfall for the increment between balance and the last
// observed balance. Outstanding principal is filled first; the rest is split
// into fees at feeBps and rewards.
func (s *Settlement) Observe(balance *uint256.Int, feeBps uint64) {
	if balance.Lt(s.LastObservedBalance) {
		log.WithFields(logrus.Fields{
			"balance":       balance.Dec(),
			"last_observed": s.LastObservedBalance.Dec(),
		}).Warn("Vault balance dropped below the last observed balance")

		return
	}

	inc := new(uint256.Int).Sub(balance, s.LastObservedBalance)
	if inc.IsZero() {
		return
	}

	consumed := inc
	if s.PrincipalOutstanding.Lt(inc) {
		consumed = s.PrincipalOutstanding
	}

	s.PrincipalReady.Add(s.PrincipalReady, consumed)

	remaining := new(uint256.Int).Sub(inc, consumed)
	fees := splitFee(remaining, feeBps)

	s.UnclaimedFees.Add(s.UnclaimedFees, fees)
	s.UnclaimedRewards.Add(s.UnclaimedRewards, remaining.Sub(remaining, fees))
	s.LastObservedBalance.Set(balance)
}

// Sweep reserves up to added wei of unclaimed fees and rewards as principal.
// When the buckets hold more than added, each gives up a share proportional
// to its size, fees rounded down.
func (s *Settlement) Sweep(added *uint256.Int) *uint256.Int {
	sweepable := new(uint256.Int).Add(s.UnclaimedFees, s.UnclaimedRewards)
	if sweepable.IsZero() {
		return sweepable
	}

	if !added.Lt(sweepable) {
		s.PrincipalReady.Add(s.PrincipalReady, sweepable)
		s.UnclaimedFees.Clear()
		s.UnclaimedRewards.Clear()

		return sweepable
	}

	moved := new(uint256.Int).Set(added)

	// moved < sweepable, so the quotient is below fees and cannot overflow.
	fromFees, _ := new(uint256.Int).MulDivOverflow(moved, s.UnclaimedFees, sweepable)
	fromRewards := new(uint256.Int).Sub(moved, fromFees)

	s.UnclaimedFees.Sub(s.UnclaimedFees, fromFees)
	s.UnclaimedRewards.Sub(s.UnclaimedRewards, fromRewards)
	s.PrincipalReady.Add(s.PrincipalReady, moved)

	return moved
}

// pay removes amount from the last observed balance after a payout.
func (s *Settlement) pay(amount *uint256.Int) {
	s.LastObservedBalance.Sub(s.LastObservedBalance, amount)
}

func splitFee(amount *uint256.Int, feeBps uint64) *uint256.Int {
	fees, _ := new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(feeBps), bpsDenominator)

	return fees
}
