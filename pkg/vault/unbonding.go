package vault

import (
	"bytes"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/validator-vault/pkg/access"
	"github.com/ethpandaops/validator-vault/pkg/chain"
)

// fullExit is the withdrawal request amount that exits a validator.
const fullExit = 0

// RequestUnbondings asks the withdrawal request sink to exit each validator
// in pubkeys. The exited capital becomes outstanding principal, and unclaimed
// fees and rewards up to that amount are reserved as principal. fee is taken
// from caller and split evenly across the requests; the indivisible remainder
// is refunded.
func (v *Vault) RequestUnbondings(caller common.Address, pubkeys [][]byte, fee *uint256.Int) error {
	return v.execute("request_unbondings", func(tx *chain.Tx, s *state) error {
		if err := v.requireRole(access.Staker, caller); err != nil {
			return err
		}

		if len(pubkeys) == 0 {
			return errors.Wrap(ErrInvalidAmount, "no validators to unbond")
		}

		if fee == nil {
			fee = new(uint256.Int)
		}

		if v.withdrawalSink == nil {
			return errors.Wrap(ErrExternalSinkUnavailable, "no withdrawal request sink configured")
		}

		for _, pubkey := range pubkeys {
			key := hex.EncodeToString(pubkey)

			if !s.deposited(pubkey) {
				return errors.Wrapf(ErrUnknownValidator, "0x%s", key)
			}

			if s.exits[key] {
				return errors.Wrapf(ErrExitAlreadyRequested, "0x%s", key)
			}

			s.exits[key] = true
		}

		n := uint256.NewInt(uint64(len(pubkeys)))
		added := new(uint256.Int).Mul(ValidatorDepositUnit, n)

		s.settlement.PrincipalOutstanding.Add(s.settlement.PrincipalOutstanding, added)
		swept := s.settlement.Sweep(added)

		if err := tx.Transfer(caller, v.address, fee); err != nil {
			return errors.Wrap(ErrTransferFailed, err.Error())
		}

		share, dust := new(uint256.Int), new(uint256.Int)
		share.DivMod(fee, n, dust)

		for _, pubkey := range pubkeys {
			if err := v.withdrawalSink.AddRequest(tx, v.address, pubkey, fullExit, share); err != nil {
				return errors.Wrapf(ErrExternalCallFailed, "withdrawal request for 0x%x: %v", pubkey, err)
			}

			unbondingRequests.Inc()
		}

		if err := tx.Transfer(v.address, caller, dust); err != nil {
			return errors.Wrap(ErrTransferFailed, err.Error())
		}

		v.logger().WithFields(logrus.Fields{
			"validators":  len(pubkeys),
			"outstanding": s.settlement.PrincipalOutstanding.Dec(),
			"swept":       swept.Dec(),
			"fee":         fee.Dec(),
		}).Info("Unbondings requested")

		return nil
	})
}

// ExitRequested reports whether an exit was already requested for pubkey.
func (v *Vault) ExitRequested(pubkey []byte) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.state.exits[hex.EncodeToString(pubkey)]
}

// RecommendedWithdrawalRequestsFee returns the value to attach to
// RequestUnbondings for n validators included in the current block.
func (v *Vault) RecommendedWithdrawalRequestsFee(n uint64) (*uint256.Int, error) {
	return v.estimator.RecommendedFee(n)
}

// ProjectedWithdrawalRequestsFee returns the value to attach to
// RequestUnbondings for n validators included in the next block.
func (v *Vault) ProjectedWithdrawalRequestsFee(n uint64) (*uint256.Int, error) {
	return v.estimator.ProjectedFee(n)
}

func (s *state) deposited(pubkey []byte) bool {
	for _, r := range s.records[:s.consumed] {
		if bytes.Equal(r.Pubkey, pubkey) {
			return true
		}
	}

	return false
}
