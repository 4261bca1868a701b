package vault

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/validator-vault/pkg/access"
	"github.com/ethpandaops/validator-vault/pkg/chain"
	"github.com/ethpandaops/validator-vault/pkg/deposit"
)

// RequestStakeQuota raises the staker's capital limit to quota. The new quota
// must be a positive multiple of ValidatorDepositUnit above the current one.
func (v *Vault) RequestStakeQuota(caller common.Address, quota *uint256.Int) error {
	return v.execute("request_stake_quota", func(_ *chain.Tx, s *state) error {
		if err := v.requireRole(access.Staker, caller); err != nil {
			return err
		}

		if quota.IsZero() || !new(uint256.Int).Mod(quota, ValidatorDepositUnit).IsZero() {
			return errors.Wrapf(ErrInvalidAmount, "quota %s is not a positive multiple of %s", quota.Dec(), ValidatorDepositUnit.Dec())
		}

		if !s.quota.Lt(quota) {
			return errors.Wrapf(ErrInvalidAmount, "quota %s does not exceed current quota %s", quota.Dec(), s.quota.Dec())
		}

		s.quota.Set(quota)

		v.logger().WithField("quota", quota.Dec()).Info("Stake quota requested")

		return nil
	})
}

// ApproveStakeQuota appends records to the pending queue. The batch must cover
// exactly the quota not yet backed by approved records.
func (v *Vault) ApproveStakeQuota(caller common.Address, records []*deposit.Record) error {
	return v.execute("approve_stake_quota", func(_ *chain.Tx, s *state) error {
		if err := v.requireRole(access.Operator, caller); err != nil {
			return err
		}

		for i, r := range records {
			if r == nil {
				return errors.Wrapf(ErrInvalidDepositRecord, "record %d is nil", i)
			}

			if err := r.Validate(); err != nil {
				return errors.Wrapf(ErrInvalidDepositRecord, "record %d: %v", i, err)
			}
		}

		// Approvals fill the whole gap at once. A partial batch is rejected;
		// a staker growing in steps requests quota again for each batch.
		gap := new(uint256.Int).Sub(s.quota, s.approved)
		total := deposit.TotalValue(records)

		if len(records) == 0 || !total.Eq(gap) {
			return errors.Wrapf(ErrQuotaMismatch, "batch of %d records worth %s, gap is %s", len(records), total.Dec(), gap.Dec())
		}

		s.records = append(s.records, records...)
		s.approved.Add(s.approved, total)

		v.logger().WithFields(logrus.Fields{
			"records":  len(records),
			"value":    total.Dec(),
			"approved": s.approved.Dec(),
		}).Info("Stake quota approved")

		return nil
	})
}

// Fund moves value from caller into the vault and forwards it to the deposit
// sink, one deposit per pending record. value must equal the value of the
// next k >= 1 pending records.
func (v *Vault) Fund(caller common.Address, value *uint256.Int) error {
	return v.execute("fund", func(tx *chain.Tx, s *state) error {
		if !v.isDepositor(s, caller) {
			return errors.Wrapf(ErrUnauthorized, "%s is not a depositor", caller.Hex())
		}

		if v.depositSink == nil {
			return errors.Wrap(ErrExternalSinkUnavailable, "no deposit sink configured")
		}

		k, err := alignedPrefix(s.pending(), value)
		if err != nil {
			return err
		}

		if err := tx.Transfer(caller, v.address, value); err != nil {
			return errors.Wrap(ErrTransferFailed, err.Error())
		}

		for _, r := range s.pending()[:k] {
			if err := v.depositSink.Deposit(tx, v.address, r.Value(), r); err != nil {
				return errors.Wrapf(ErrExternalCallFailed, "deposit for %s: %v", r.PubkeyHex(), err)
			}

			depositsForwarded.Inc()
		}

		s.consumed += k

		v.logger().WithFields(logrus.Fields{
			"depositor": caller.Hex(),
			"value":     value.Dec(),
			"deposits":  k,
		}).Info("Vault funded")

		return nil
	})
}

// StakeQuota returns the staker's current capital limit.
func (v *Vault) StakeQuota() *uint256.Int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return new(uint256.Int).Set(v.state.quota)
}

// ApprovedValue returns the total value of every record ever approved.
func (v *Vault) ApprovedValue() *uint256.Int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return new(uint256.Int).Set(v.state.approved)
}

// PendingRecords returns the approved records not yet funded, in queue order.
func (v *Vault) PendingRecords() []*deposit.Record {
	v.mu.Lock()
	defer v.mu.Unlock()

	return append([]*deposit.Record(nil), v.state.pending()...)
}

// ConsumedRecords returns the records already forwarded to the deposit sink.
func (v *Vault) ConsumedRecords() []*deposit.Record {
	v.mu.Lock()
	defer v.mu.Unlock()

	return append([]*deposit.Record(nil), v.state.records[:v.state.consumed]...)
}

// DepositData returns the longest prefix of the pending queue whose total
// value does not exceed upTo.
func (v *Vault) DepositData(upTo *uint256.Int) []*deposit.Record {
	v.mu.Lock()
	defer v.mu.Unlock()

	pending := v.state.pending()
	total := new(uint256.Int)

	var n int

	for ; n < len(pending); n++ {
		total.Add(total, pending[n].Value())

		if upTo.Lt(total) {
			break
		}
	}

	return append([]*deposit.Record(nil), pending[:n]...)
}

func (s *state) pending() []*deposit.Record {
	return s.records[s.consumed:]
}

// alignedPrefix returns k such that the first k records are worth exactly value.
func alignedPrefix(records []*deposit.Record, value *uint256.Int) (int, error) {
	if value.IsZero() {
		return 0, errors.Wrap(ErrInvalidStakeAmount, "zero value")
	}

	total := new(uint256.Int)

	for i, r := range records {
		total.Add(total, r.Value())

		if total.Eq(value) {
			return i + 1, nil
		}

		if value.Lt(total) {
			break
		}
	}

	return 0, errors.Wrapf(ErrInvalidStakeAmount, "%s wei is not the value of a prefix of %d pending records", value.Dec(), len(records))
}
