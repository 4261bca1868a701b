package cmd

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/validator-vault/pkg/config"
	"github.com/ethpandaops/validator-vault/pkg/vault"
)

const (
	testAdmin    = "0x00000000000000000000000000000000000000ad"
	testStaker   = "0x0000000000000000000000000000000000005a4e"
	testOperator = "0x000000000000000000000000000000000000090e"
)

func setupWorkspace(t *testing.T) {
	t.Helper()

	cfg = config.Default()
	cfg.DataDir = filepath.Join(t.TempDir(), "vaults")
	cfg.Admin = testAdmin
	cfg.Defaults = config.Defaults{
		Operator:     testOperator,
		FeeRecipient: testOperator,
		FeeBps:       500,
	}

	vaultDataDir, vaultFrom, vaultStaker = "", "", ""

	t.Cleanup(func() {
		cfg = config.Default()
		vaultDataDir, vaultFrom, vaultStaker = "", "", ""
		requestQuotaWei, requestQuotaValidators = "", 0
	})
}

func TestWorkspace_Persists(t *testing.T) {
	setupWorkspace(t)

	vaultFrom = testStaker
	require.NoError(t, withWorkspace(createVault))

	requestQuotaValidators = 2
	require.NoError(t, withWorkspace(requestQuota))

	w, err := openWorkspace()
	require.NoError(t, err)
	defer w.close()

	v, err := w.vault()
	require.NoError(t, err)

	assert.Equal(t, common.HexToAddress(testOperator), v.Operator())
	assert.Equal(t, uint64(500), v.FeeBps())
	assert.Equal(t, new(uint256.Int).Mul(vault.ValidatorDepositUnit, uint256.NewInt(2)), v.StakeQuota())
	assert.Equal(t, w.factory.Address(), w.factory.Meta().Address)
}

func TestWorkspace_FailedOperationIsNotSaved(t *testing.T) {
	setupWorkspace(t)

	vaultFrom = testStaker
	require.NoError(t, withWorkspace(createVault))

	// the operator may not request quota
	vaultFrom, vaultStaker = testOperator, testStaker
	requestQuotaWei = vault.ValidatorDepositUnit.Dec()
	require.ErrorIs(t, withWorkspace(requestQuota), vault.ErrUnauthorized)

	w, err := openWorkspace()
	require.NoError(t, err)
	defer w.close()

	v, err := w.vault()
	require.NoError(t, err)
	assert.True(t, v.StakeQuota().IsZero())
}

func TestWorkspace_NeedsAdminForNewFactory(t *testing.T) {
	setupWorkspace(t)
	cfg.Admin = ""

	_, err := openWorkspace()
	require.Error(t, err)
}

func TestParseWei(t *testing.T) {
	amount, err := parseWei("quota", "32000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, vault.ValidatorDepositUnit, amount)

	_, err = parseWei("quota", "-1")
	require.Error(t, err)

	_, err = parseWei("quota", "0x20")
	require.Error(t, err)
}

func TestVaultCommands(t *testing.T) {
	var names []string
	for _, c := range vaultCmd.Commands() {
		names = append(names, c.Name())
	}

	assert.ElementsMatch(t, []string{
		"create", "status", "request-quota", "approve", "deposit-data",
		"add-depositor", "remove-depositor", "validators",
	}, names)
}
