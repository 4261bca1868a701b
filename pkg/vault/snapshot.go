package vault

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/ethpandaops/validator-vault/pkg/chain"
	"github.com/ethpandaops/validator-vault/pkg/deposit"
)

// RecordSnapshot is the persisted form of a deposit record.
type RecordSnapshot struct {
	Pubkey                []byte
	WithdrawalCredentials []byte
	Signature             []byte
	Amount                uint64
	DataRoot              common.Hash
}

// Snapshot is the persisted form of a vault. Field order is part of the RLP
// encoding.
type Snapshot struct {
	Address      common.Address
	Admin        common.Address
	Staker       common.Address
	Operator     common.Address
	FeeRecipient common.Address
	FeeBps       uint64

	Quota    *big.Int
	Approved *big.Int
	Records  []RecordSnapshot
	Consumed uint64

	Depositors []common.Address
	Exits      [][]byte

	UnclaimedFees        *big.Int
	UnclaimedRewards     *big.Int
	PrincipalReady       *big.Int
	PrincipalOutstanding *big.Int
	LastObservedBalance  *big.Int
}

// Snapshot captures the vault's committed state.
func (v *Vault) Snapshot() *Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := v.state

	snap := &Snapshot{
		Address:      v.address,
		Admin:        v.Admin(),
		Staker:       v.Staker(),
		Operator:     v.Operator(),
		FeeRecipient: v.FeeRecipient(),
		FeeBps:       v.feeBps,

		Quota:    s.quota.ToBig(),
		Approved: s.approved.ToBig(),
		Records:  make([]RecordSnapshot, 0, len(s.records)),
		Consumed: uint64(s.consumed),

		Depositors: sortedAddresses(s.depositors),
		Exits:      make([][]byte, 0, len(s.exits)),

		UnclaimedFees:        s.settlement.UnclaimedFees.ToBig(),
		UnclaimedRewards:     s.settlement.UnclaimedRewards.ToBig(),
		PrincipalReady:       s.settlement.PrincipalReady.ToBig(),
		PrincipalOutstanding: s.settlement.PrincipalOutstanding.ToBig(),
		LastObservedBalance:  s.settlement.LastObservedBalance.ToBig(),
	}

	for _, r := range s.records {
		snap.Records = append(snap.Records, RecordSnapshot{
			Pubkey:                r.Pubkey,
			WithdrawalCredentials: r.WithdrawalCredentials,
			Signature:             r.Signature,
			Amount:                r.Amount,
			DataRoot:              r.DataRoot,
		})
	}

	for key := range s.exits {
		pubkey, _ := hex.DecodeString(key)
		snap.Exits = append(snap.Exits, pubkey)
	}

	sort.Slice(snap.Exits, func(i, j int) bool {
		return bytes.Compare(snap.Exits[i], snap.Exits[j]) < 0
	})

	return snap
}

// FromSnapshot rebuilds a vault on st from a snapshot taken with Snapshot.
func FromSnapshot(st *chain.State, snap *Snapshot, depositSink DepositSink, withdrawalSink WithdrawalRequestSink) (*Vault, error) {
	if snap.Consumed > uint64(len(snap.Records)) {
		return nil, errors.Errorf("snapshot of %s consumed %d of %d records", snap.Address.Hex(), snap.Consumed, len(snap.Records))
	}

	s := newState()
	s.consumed = int(snap.Consumed)

	amounts := []struct {
		dst *uint256.Int
		src *big.Int
	}{
		{s.quota, snap.Quota},
		{s.approved, snap.Approved},
		{s.settlement.UnclaimedFees, snap.UnclaimedFees},
		{s.settlement.UnclaimedRewards, snap.UnclaimedRewards},
		{s.settlement.PrincipalReady, snap.PrincipalReady},
		{s.settlement.PrincipalOutstanding, snap.PrincipalOutstanding},
		{s.settlement.LastObservedBalance, snap.LastObservedBalance},
	}

	for _, a := range amounts {
		if a.src == nil {
			continue
		}

		if a.src.Sign() < 0 || a.dst.SetFromBig(a.src) {
			return nil, errors.Errorf("snapshot of %s holds out of range amount %s", snap.Address.Hex(), a.src)
		}
	}

	for _, r := range snap.Records {
		s.records = append(s.records, &deposit.Record{
			Pubkey:                r.Pubkey,
			WithdrawalCredentials: r.WithdrawalCredentials,
			Signature:             r.Signature,
			Amount:                r.Amount,
			DataRoot:              r.DataRoot,
		})
	}

	for _, addr := range snap.Depositors {
		s.depositors[addr] = true
	}

	for _, pubkey := range snap.Exits {
		s.exits[hex.EncodeToString(pubkey)] = true
	}

	return newVault(st, &Config{
		Address:        snap.Address,
		Admin:          snap.Admin,
		Staker:         snap.Staker,
		Operator:       snap.Operator,
		FeeRecipient:   snap.FeeRecipient,
		FeeBps:         snap.FeeBps,
		DepositSink:    depositSink,
		WithdrawalSink: withdrawalSink,
	}, s)
}

func sortedAddresses(set map[common.Address]bool) []common.Address {
	out := make([]common.Address, 0, len(set))

	for addr := range set {
		out = append(out, addr)
	}

	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})

	return out
}
