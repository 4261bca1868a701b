package vault

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/validator-vault/pkg/access"
	"github.com/ethpandaops/validator-vault/pkg/chain"
)

// ClaimableRewards returns the rewards the staker could claim now.
func (v *Vault) ClaimableRewards() *uint256.Int {
	return v.Settlement().UnclaimedRewards
}

// ClaimableFees returns the fees the fee recipient could be paid now.
func (v *Vault) ClaimableFees() *uint256.Int {
	return v.Settlement().UnclaimedFees
}

// WithdrawablePrincipal returns the principal the staker could withdraw now.
func (v *Vault) WithdrawablePrincipal() *uint256.Int {
	return v.Settlement().PrincipalReady
}

// PrincipalOutstanding returns the principal requested back from exits and
// not yet withdrawn.
func (v *Vault) PrincipalOutstanding() *uint256.Int {
	return v.Settlement().PrincipalOutstanding
}

// Settlement returns the settlement state as it would be after observing the
// current vault balance.
func (v *Vault) Settlement() *Settlement {
	var out *Settlement

	v.view(func(s *state) {
		out = s.settlement
	})

	return out
}

// ClaimRewards pays the unclaimed rewards to the staker and returns the amount paid.
func (v *Vault) ClaimRewards(caller common.Address) (*uint256.Int, error) {
	var paid *uint256.Int

	err := v.execute("claim_rewards", func(tx *chain.Tx, s *state) error {
		if err := v.requireRole(access.Staker, caller); err != nil {
			return err
		}

		amount, err := v.payout(tx, s, "rewards", s.settlement.UnclaimedRewards, v.Staker())
		if err != nil {
			return err
		}

		paid = amount

		return nil
	})

	return paid, err
}

// ClaimFees pays the unclaimed fees to the fee recipient and returns the
// amount paid. Only the operator may trigger it.
func (v *Vault) ClaimFees(caller common.Address) (*uint256.Int, error) {
	var paid *uint256.Int

	err := v.execute("claim_fees", func(tx *chain.Tx, s *state) error {
		if err := v.requireRole(access.Operator, caller); err != nil {
			return err
		}

		amount, err := v.payout(tx, s, "fees", s.settlement.UnclaimedFees, v.FeeRecipient())
		if err != nil {
			return err
		}

		paid = amount

		return nil
	})

	return paid, err
}

// WithdrawPrincipal pays the ready principal to the staker and lowers the
// outstanding principal by the amount paid.
func (v *Vault) WithdrawPrincipal(caller common.Address) (*uint256.Int, error) {
	var paid *uint256.Int

	err := v.execute("withdraw_principal", func(tx *chain.Tx, s *state) error {
		if err := v.requireRole(access.Staker, caller); err != nil {
			return err
		}

		amount, err := v.payout(tx, s, "principal", s.settlement.PrincipalReady, v.Staker())
		if err != nil {
			return err
		}

		outstanding := s.settlement.PrincipalOutstanding
		if outstanding.Lt(amount) {
			outstanding.Clear()
		} else {
			outstanding.Sub(outstanding, amount)
		}

		paid = amount

		return nil
	})

	return paid, err
}

// payout transfers the whole of bucket to recipient and empties the bucket.
func (v *Vault) payout(tx *chain.Tx, s *state, kind string, bucket *uint256.Int, recipient common.Address) (*uint256.Int, error) {
	amount := new(uint256.Int).Set(bucket)
	if amount.IsZero() {
		return amount, nil
	}

	if err := tx.Transfer(v.address, recipient, amount); err != nil {
		return nil, errors.Wrapf(ErrTransferFailed, "%s payout to %s: %v", kind, recipient.Hex(), err)
	}

	bucket.Clear()
	s.settlement.pay(amount)

	payouts.WithLabelValues(kind).Inc()

	v.logger().WithFields(logrus.Fields{
		"kind":      kind,
		"recipient": recipient.Hex(),
		"amount":    amount.Dec(),
	}).Info("Payout made")

	return amount, nil
}
