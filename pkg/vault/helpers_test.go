package vault_test

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/validator-vault/pkg/chain"
	"github.com/ethpandaops/validator-vault/pkg/deposit"
	"github.com/ethpandaops/validator-vault/pkg/sink"
	"github.com/ethpandaops/validator-vault/pkg/vault"
)

var (
	admin        = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	staker       = common.HexToAddress("0x0000000000000000000000000000000000005a4e")
	operator     = common.HexToAddress("0x000000000000000000000000000000000000090e")
	feeRecipient = common.HexToAddress("0x000000000000000000000000000000000000fee0")
	stranger     = common.HexToAddress("0x0000000000000000000000000000000000000bad")
	vaultAddr    = common.HexToAddress("0x000000000000000000000000000000000000ca5e")
)

// milliEther returns n thousandths of an ether in wei.
func milliEther(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1e15))
}

func ether(n uint64) *uint256.Int {
	return milliEther(n * 1000)
}

func validators(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(vault.ValidatorDepositUnit, uint256.NewInt(n))
}

type fixture struct {
	chain       *chain.State
	deposits    *sink.DepositContract
	withdrawals *sink.WithdrawalRequestContract
	vault       *vault.Vault
}

func newFixture(t *testing.T, feeBps uint64) *fixture {
	t.Helper()

	f := &fixture{
		chain:       chain.New(),
		deposits:    sink.NewDepositContract(sink.MainnetDepositContract),
		withdrawals: sink.NewWithdrawalRequestContract(sink.WithdrawalRequestPredeploy),
	}

	v, err := vault.New(f.chain, &vault.Config{
		Address:        vaultAddr,
		Admin:          admin,
		Staker:         staker,
		Operator:       operator,
		FeeRecipient:   feeRecipient,
		FeeBps:         feeBps,
		DepositSink:    f.deposits,
		WithdrawalSink: f.withdrawals,
	})
	require.NoError(t, err)

	f.vault = v

	return f
}

// newRecord returns a well formed deposit record for a validator derived from seed.
func newRecord(t *testing.T, seed byte, amountGwei uint64) *deposit.Record {
	t.Helper()

	r := &deposit.Record{
		Pubkey:                bytes.Repeat([]byte{seed}, deposit.PubkeyLength),
		WithdrawalCredentials: deposit.WithdrawalCredentials(vaultAddr),
		Signature:             bytes.Repeat([]byte{seed ^ 0xaa}, deposit.SignatureLength),
		Amount:                amountGwei,
	}

	root, err := r.ComputeDataRoot()
	require.NoError(t, err)

	r.DataRoot = root

	return r
}

func fullRecords(t *testing.T, first byte, n int) []*deposit.Record {
	t.Helper()

	out := make([]*deposit.Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, newRecord(t, first+byte(i), 32_000_000_000))
	}

	return out
}

// stake requests quota for n validators, approves them and funds them from the staker.
func (f *fixture) stake(t *testing.T, first byte, n int) []*deposit.Record {
	t.Helper()

	quota := new(uint256.Int).Add(f.vault.StakeQuota(), validators(uint64(n)))
	records := fullRecords(t, first, n)

	require.NoError(t, f.vault.RequestStakeQuota(staker, quota))
	require.NoError(t, f.vault.ApproveStakeQuota(operator, records))

	f.chain.Credit(staker, validators(uint64(n)))
	require.NoError(t, f.vault.Fund(staker, validators(uint64(n))))

	return records
}

// requireConserved checks that the settlement buckets account for the whole vault balance.
func (f *fixture) requireConserved(t *testing.T) {
	t.Helper()

	s := f.vault.Settlement()

	sum := new(uint256.Int).Add(s.UnclaimedFees, s.UnclaimedRewards)
	sum.Add(sum, s.PrincipalReady)

	require.Equal(t, f.vault.Balance(), sum)
	require.Equal(t, f.vault.Balance(), s.LastObservedBalance)
}

type failingDepositSink struct {
	inner   vault.DepositSink
	failAt  int
	calls   int
	failErr error
}

func (s *failingDepositSink) Deposit(tx *chain.Tx, from common.Address, value *uint256.Int, record *deposit.Record) error {
	s.calls++
	if s.calls == s.failAt {
		return s.failErr
	}

	return s.inner.Deposit(tx, from, value, record)
}

var errSinkDown = errors.New("sink down")
