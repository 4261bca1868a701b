package store_test

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/validator-vault/pkg/chain"
	"github.com/ethpandaops/validator-vault/pkg/factory"
	"github.com/ethpandaops/validator-vault/pkg/store"
	"github.com/ethpandaops/validator-vault/pkg/vault"
)

var (
	admin    = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	operator = common.HexToAddress("0x000000000000000000000000000000000000090e")
	stakerA  = common.HexToAddress("0x000000000000000000000000000000000000000a")
	stakerB  = common.HexToAddress("0x000000000000000000000000000000000000000b")
)

func newFactory(t *testing.T, st *chain.State) *factory.Factory {
	t.Helper()

	f, err := factory.New(st, admin, nil, nil, factory.Defaults{Operator: operator, FeeRecipient: operator, FeeBps: 250})
	require.NoError(t, err)

	return f
}

func TestStore_Empty(t *testing.T) {
	s, err := store.OpenMem()
	require.NoError(t, err)

	defer s.Close()

	_, err = s.LoadMeta()
	require.ErrorIs(t, err, store.ErrNotFound)

	vaults, err := s.LoadVaults()
	require.NoError(t, err)
	assert.Empty(t, vaults)

	balances, err := s.LoadBalances()
	require.NoError(t, err)
	assert.Empty(t, balances)
}

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")

	st := chain.New()
	f := newFactory(t, st)

	a, err := f.CreateVault(stakerA)
	require.NoError(t, err)
	require.NoError(t, a.RequestStakeQuota(stakerA, vault.ValidatorDepositUnit))
	require.NoError(t, a.AddDepositor(stakerA, stakerB))

	_, err = f.CreateVault(stakerB)
	require.NoError(t, err)

	st.Credit(a.Address(), uint256.NewInt(1_000_000))
	st.Credit(stakerB, uint256.NewInt(42))

	s, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(f, st.Balances()))
	require.NoError(t, s.Close())

	s, err = store.Open(path)
	require.NoError(t, err)

	defer s.Close()

	meta, err := s.LoadMeta()
	require.NoError(t, err)
	assert.Equal(t, f.Meta(), meta)

	balances, err := s.LoadBalances()
	require.NoError(t, err)
	assert.Equal(t, st.Balances(), balances)

	snaps, err := s.LoadVaults()
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	restoredChain := chain.New()
	restoredChain.Restore(balances)

	restored := newFactory(t, restoredChain)
	require.NoError(t, restored.RestoreMeta(meta))

	for _, snap := range snaps {
		_, err := restored.Restore(snap)
		require.NoError(t, err)
	}

	ra, err := restored.Vault(stakerA)
	require.NoError(t, err)
	assert.Equal(t, a.Snapshot(), ra.Snapshot())
	assert.Equal(t, a.ClaimableRewards(), ra.ClaimableRewards())
	assert.True(t, ra.IsDepositor(stakerB))
}

func TestStore_SaveIndividually(t *testing.T) {
	s, err := store.OpenMem()
	require.NoError(t, err)

	defer s.Close()

	st := chain.New()
	f := newFactory(t, st)

	v, err := f.CreateVault(stakerA)
	require.NoError(t, err)

	require.NoError(t, s.SaveMeta(f.Meta()))
	require.NoError(t, s.SaveVault(v.Snapshot()))
	require.NoError(t, s.SaveBalances(map[common.Address]*uint256.Int{stakerA: uint256.NewInt(7)}))

	// saving again overwrites
	require.NoError(t, v.RequestStakeQuota(stakerA, vault.ValidatorDepositUnit))
	require.NoError(t, s.SaveVault(v.Snapshot()))

	snaps, err := s.LoadVaults()
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Zero(t, vault.ValidatorDepositUnit.ToBig().Cmp(snaps[0].Quota))

	balances, err := s.LoadBalances()
	require.NoError(t, err)
	assert.Equal(t, map[common.Address]*uint256.Int{stakerA: uint256.NewInt(7)}, balances)
}
