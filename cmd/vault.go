package cmd

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/validator-vault/pkg/chain"
	"github.com/ethpandaops/validator-vault/pkg/factory"
	"github.com/ethpandaops/validator-vault/pkg/sink"
	"github.com/ethpandaops/validator-vault/pkg/store"
	"github.com/ethpandaops/validator-vault/pkg/vault"
)

var (
	vaultDataDir string
	vaultFrom    string
	vaultStaker  string
)

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Administer staking vaults",
	Long: `Creates and administers per-staker vaults kept in a local data directory.

Covers vault creation, stake quota requests, deposit data approval and the
depositor allow-list. Funding, claims, principal withdrawal and unbonding move
value and are only available through the pkg/vault API.`,
}

func init() {
	rootCmd.AddCommand(vaultCmd)

	vaultCmd.PersistentFlags().StringVar(&vaultDataDir, "data-dir", "", "Vault data directory (defaults to the configured data_dir)")
	vaultCmd.PersistentFlags().StringVar(&vaultFrom, "from", "", "Address the operation is sent from")
	vaultCmd.PersistentFlags().StringVar(&vaultStaker, "staker", "", "Staker whose vault to use (defaults to --from)")
}

// workspace is the factory, its vaults and the ledger loaded from the data
// directory.
type workspace struct {
	store   *store.Store
	chain   *chain.State
	factory *factory.Factory
}

func openWorkspace() (*workspace, error) {
	dir := vaultDataDir
	if dir == "" {
		dir = cfg.DataDir
	}

	db, err := store.Open(dir)
	if err != nil {
		return nil, err
	}

	w := &workspace{
		store: db,
		chain: chain.New(),
	}

	if err := w.load(); err != nil {
		db.Close()

		return nil, err
	}

	log.WithFields(logrus.Fields{
		"data_dir": dir,
		"factory":  w.factory.Address().Hex(),
		"vaults":   len(w.factory.Vaults()),
	}).Debug("Opened vault data directory")

	return w, nil
}

func (w *workspace) load() error {
	balances, err := w.store.LoadBalances()
	if err != nil {
		return err
	}

	w.chain.Restore(balances)

	deposits := sink.NewDepositContract(sink.MainnetDepositContract)
	withdrawals := sink.NewWithdrawalRequestContract(sink.WithdrawalRequestPredeploy)

	meta, err := w.store.LoadMeta()

	switch {
	case errors.Is(err, store.ErrNotFound):
		admin, err := cfg.AdminAddress()
		if err != nil {
			return errors.Wrap(err, "no factory in data directory, config needs an admin")
		}

		defaults, err := cfg.FactoryDefaults()
		if err != nil {
			return errors.Wrap(err, "no factory in data directory, config needs vault defaults")
		}

		w.factory, err = factory.New(w.chain, admin, deposits, withdrawals, defaults)
		if err != nil {
			return err
		}

		log.WithField("factory", w.factory.Address().Hex()).Info("Initialised new factory")

		return nil
	case err != nil:
		return err
	}

	w.factory, err = factory.New(w.chain, meta.Admin, deposits, withdrawals, meta.Defaults)
	if err != nil {
		return err
	}

	if err := w.factory.RestoreMeta(meta); err != nil {
		return err
	}

	snaps, err := w.store.LoadVaults()
	if err != nil {
		return err
	}

	for _, snap := range snaps {
		if _, err := w.factory.Restore(snap); err != nil {
			return errors.Wrapf(err, "restore vault %s", snap.Address.Hex())
		}
	}

	return nil
}

// commit persists the factory, every vault and the ledger.
func (w *workspace) commit() error {
	return w.store.Save(w.factory, w.chain.Balances())
}

func (w *workspace) close() {
	if err := w.store.Close(); err != nil {
		log.WithError(err).Warn("Failed to close vault data directory")
	}
}

// vault returns the vault selected with --staker, or the one of --from.
func (w *workspace) vault() (*vault.Vault, error) {
	staker := vaultStaker
	if staker == "" {
		staker = vaultFrom
	}

	addr, err := parseAddressFlag("staker", staker)
	if err != nil {
		return nil, err
	}

	return w.factory.Vault(addr)
}

// withWorkspace opens the data directory, runs fn and commits when fn
// succeeds.
func withWorkspace(fn func(w *workspace) error) error {
	w, err := openWorkspace()
	if err != nil {
		return err
	}
	defer w.close()

	if err := fn(w); err != nil {
		return err
	}

	return w.commit()
}

func caller() (common.Address, error) {
	return parseAddressFlag("from", vaultFrom)
}

func parseAddressFlag(name, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, errors.Errorf("--%s: invalid address %q", name, value)
	}

	return common.HexToAddress(value), nil
}

func parseWei(name, value string) (*uint256.Int, error) {
	amount, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, errors.Wrapf(err, "--%s: invalid wei amount %q", name, value)
	}

	return amount, nil
}
