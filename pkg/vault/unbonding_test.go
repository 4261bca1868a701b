package vault_test

import (
	"bytes"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/validator-vault/pkg/deposit"
	"github.com/ethpandaops/validator-vault/pkg/sink"
	"github.com/ethpandaops/validator-vault/pkg/vault"
	"github.com/ethpandaops/validator-vault/pkg/withdrawalfee"
)

func TestRequestUnbondings(t *testing.T) {
	t.Run("rejected requests", func(t *testing.T) {
		f := newFixture(t, 1000)
		records := f.stake(t, 1, 2)
		f.chain.Credit(staker, ether(1))

		unknown := bytes.Repeat([]byte{0xee}, deposit.PubkeyLength)

		tests := []struct {
			name    string
			pubkeys [][]byte
			wantErr error
		}{
			{name: "empty", wantErr: vault.ErrInvalidAmount},
			{name: "unknown validator", pubkeys: [][]byte{records[0].Pubkey, unknown}, wantErr: vault.ErrUnknownValidator},
			{name: "duplicate within the call", pubkeys: [][]byte{records[0].Pubkey, records[0].Pubkey}, wantErr: vault.ErrExitAlreadyRequested},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := f.vault.RequestUnbondings(staker, tt.pubkeys, uint256.NewInt(2))
				require.ErrorIs(t, err, tt.wantErr)
				assert.True(t, f.vault.PrincipalOutstanding().IsZero())
				assert.False(t, f.vault.ExitRequested(records[0].Pubkey))
				assert.Empty(t, f.withdrawals.Pending())
				assert.Equal(t, ether(1), f.chain.Balance(staker))
			})
		}

		require.ErrorIs(t, f.vault.RequestUnbondings(operator, [][]byte{records[0].Pubkey}, uint256.NewInt(1)), vault.ErrUnauthorized)
	})

	t.Run("pending records cannot be unbonded", func(t *testing.T) {
		f := newFixture(t, 1000)
		require.NoError(t, f.vault.RequestStakeQuota(staker, validators(1)))

		records := fullRecords(t, 1, 1)
		require.NoError(t, f.vault.ApproveStakeQuota(operator, records))

		err := f.vault.RequestUnbondings(staker, [][]byte{records[0].Pubkey}, uint256.NewInt(1))
		require.ErrorIs(t, err, vault.ErrUnknownValidator)
	})

	t.Run("each validator exits once", func(t *testing.T) {
		f := newFixture(t, 1000)
		records := f.stake(t, 1, 2)
		f.chain.Credit(staker, ether(1))

		require.NoError(t, f.vault.RequestUnbondings(staker, [][]byte{records[0].Pubkey}, uint256.NewInt(1)))
		assert.True(t, f.vault.ExitRequested(records[0].Pubkey))
		assert.False(t, f.vault.ExitRequested(records[1].Pubkey))

		err := f.vault.RequestUnbondings(staker, [][]byte{records[1].Pubkey, records[0].Pubkey}, uint256.NewInt(2))
		require.ErrorIs(t, err, vault.ErrExitAlreadyRequested)
		assert.False(t, f.vault.ExitRequested(records[1].Pubkey))
		assert.Equal(t, validators(1), f.vault.PrincipalOutstanding())
	})

	t.Run("the fee is split across requests and the remainder refunded", func(t *testing.T) {
		f := newFixture(t, 1000)
		records := f.stake(t, 1, 3)
		f.chain.Credit(staker, uint256.NewInt(100))

		pubkeys := [][]byte{records[0].Pubkey, records[1].Pubkey, records[2].Pubkey}
		require.NoError(t, f.vault.RequestUnbondings(staker, pubkeys, uint256.NewInt(10)))

		pending := f.withdrawals.Pending()
		require.Len(t, pending, 3)

		for i, r := range pending {
			assert.Equal(t, vaultAddr, r.Source)
			assert.Equal(t, pubkeys[i], r.Pubkey)
			assert.Zero(t, r.Amount)
		}

		assert.Equal(t, uint256.NewInt(9), f.chain.Balance(f.withdrawals.Address()))
		assert.Equal(t, uint256.NewInt(91), f.chain.Balance(staker))
		assert.True(t, f.vault.Balance().IsZero())
		assert.Equal(t, validators(3), f.vault.PrincipalOutstanding())
		f.requireConserved(t)
	})

	t.Run("the fee never counts as an inflow", func(t *testing.T) {
		f := newFixture(t, 1000)
		records := f.stake(t, 1, 1)
		f.chain.Credit(staker, ether(1))

		require.NoError(t, f.vault.RequestUnbondings(staker, [][]byte{records[0].Pubkey}, uint256.NewInt(1)))

		s := f.vault.Settlement()
		assert.True(t, s.LastObservedBalance.IsZero())
		assert.True(t, s.PrincipalReady.IsZero())
		assert.True(t, s.UnclaimedRewards.IsZero())
	})

	t.Run("partial sweep draws proportionally", func(t *testing.T) {
		f := newFixture(t, 1000)
		records := f.stake(t, 1, 1)
		f.chain.Credit(staker, uint256.NewInt(1))

		f.chain.SetBalance(vaultAddr, ether(40))
		require.NoError(t, f.vault.RequestUnbondings(staker, [][]byte{records[0].Pubkey}, uint256.NewInt(1)))

		// 4 ether fees and 36 ether rewards, 32 ether reserved as principal
		assert.Equal(t, milliEther(800), f.vault.ClaimableFees())
		assert.Equal(t, milliEther(7200), f.vault.ClaimableRewards())
		assert.Equal(t, validators(1), f.vault.WithdrawablePrincipal())
		f.requireConserved(t)
	})

	t.Run("a rejected request rolls back everything", func(t *testing.T) {
		f := newFixture(t, 1000)
		records := f.stake(t, 1, 2)
		f.chain.Credit(staker, uint256.NewInt(100))
		f.chain.SetBalance(vaultAddr, ether(1))

		f.withdrawals.SetExcess(64)
		fee, err := f.vault.RecommendedWithdrawalRequestsFee(2)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(84), fee)

		before := f.vault.Settlement()

		// one wei short leaves each request underpaid
		err = f.vault.RequestUnbondings(staker, [][]byte{records[0].Pubkey, records[1].Pubkey}, uint256.NewInt(83))
		require.ErrorIs(t, err, vault.ErrExternalCallFailed)

		assert.Equal(t, before, f.vault.Settlement())
		assert.Empty(t, f.withdrawals.Pending())
		assert.False(t, f.vault.ExitRequested(records[0].Pubkey))
		assert.Equal(t, uint256.NewInt(100), f.chain.Balance(staker))

		require.NoError(t, f.vault.RequestUnbondings(staker, [][]byte{records[0].Pubkey, records[1].Pubkey}, fee))
		assert.Len(t, f.withdrawals.Pending(), 2)
	})

	t.Run("inactive withdrawal request contract", func(t *testing.T) {
		f := newFixture(t, 1000)
		records := f.stake(t, 1, 1)
		f.chain.Credit(staker, uint256.NewInt(1))
		f.withdrawals.SetExcess(sink.ExcessInhibitor)

		err := f.vault.RequestUnbondings(staker, [][]byte{records[0].Pubkey}, uint256.NewInt(1))
		require.ErrorIs(t, err, vault.ErrExternalCallFailed)
		assert.True(t, f.vault.PrincipalOutstanding().IsZero())
	})
}

func TestWithdrawalRequestsFee(t *testing.T) {
	f := newFixture(t, 1000)

	for _, excess := range []uint64{0, 16, 64, 256} {
		f.withdrawals.SetExcess(excess)

		perRequest, err := f.withdrawals.Fee()
		require.NoError(t, err)

		for _, n := range []uint64{1, 2, 16} {
			fee, err := f.vault.RecommendedWithdrawalRequestsFee(n)
			require.NoError(t, err)
			assert.Equal(t, new(uint256.Int).Mul(perRequest, uint256.NewInt(n)), fee)

			projected, err := f.vault.ProjectedWithdrawalRequestsFee(n)
			require.NoError(t, err)

			next, err := withdrawalfee.RequestFee(max(excess, withdrawalfee.NextExcess(excess, n)))
			require.NoError(t, err)
			assert.Equal(t, new(uint256.Int).Mul(next, uint256.NewInt(n)), projected)
			assert.False(t, projected.Lt(fee), "excess %d n %d", excess, n)
		}
	}

	t.Run("a projected fee is accepted by the current block", func(t *testing.T) {
		f := newFixture(t, 1000)
		records := f.stake(t, 1, 1)
		f.withdrawals.SetExcess(100)

		fee, err := f.vault.ProjectedWithdrawalRequestsFee(1)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(357), fee)

		f.chain.Credit(staker, fee)
		require.NoError(t, f.vault.RequestUnbondings(staker, [][]byte{records[0].Pubkey}, fee))
	})

	f.withdrawals.SetExcess(sink.ExcessInhibitor)

	_, err := f.vault.RecommendedWithdrawalRequestsFee(1)
	require.ErrorIs(t, err, vault.ErrExternalSinkUnavailable)

	_, err = f.vault.ProjectedWithdrawalRequestsFee(1)
	require.ErrorIs(t, err, vault.ErrExternalSinkUnavailable)

	v, err := vault.New(f.chain, &vault.Config{
		Address:      vaultAddr,
		Staker:       staker,
		Operator:     operator,
		FeeRecipient: feeRecipient,
	})
	require.NoError(t, err)

	_, err = v.RecommendedWithdrawalRequestsFee(1)
	require.ErrorIs(t, err, vault.ErrExternalSinkUnavailable)

	err = v.RequestUnbondings(staker, [][]byte{bytes.Repeat([]byte{1}, deposit.PubkeyLength)}, uint256.NewInt(1))
	require.ErrorIs(t, err, vault.ErrExternalSinkUnavailable)
}
