package cmd

import (
	"encoding/hex"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/validator-vault/pkg/deposit"
)

var approveDepositDataPath string

var vaultApproveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Approve the requested quota with deposit data",
	Long: `Appends the records of a deposit data file to the vault's queue. Sent by the
operator; the file must cover exactly the gap between the quota and the approved value
and every deposit must withdraw to the vault.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(approveQuota)
	},
	SilenceUsage: true,
}

func init() {
	vaultCmd.AddCommand(vaultApproveCmd)

	vaultApproveCmd.Flags().StringVar(&approveDepositDataPath, "deposit-data", "", "Path to deposit data JSON file")

	if err := vaultApproveCmd.MarkFlagRequired("deposit-data"); err != nil {
		panic(err)
	}
}

func approveQuota(w *workspace) error {
	from, err := caller()
	if err != nil {
		return err
	}

	v, err := w.vault()
	if err != nil {
		return err
	}

	if err := deposit.SetNetwork(cfg.Network); err != nil {
		return err
	}

	creds := hex.EncodeToString(deposit.WithdrawalCredentials(v.Address()))

	data, err := deposit.NewDepositData(approveDepositDataPath, cfg.Network, creds, 0, 0)
	if err != nil {
		return errors.Wrap(err, "failed to load deposit data")
	}

	if err := data.Validate(); err != nil {
		return errors.Wrap(err, "deposit data does not withdraw to the vault")
	}

	if err := data.Verify(); err != nil {
		return errors.Wrap(err, "failed to verify deposit data")
	}

	if err := v.ApproveStakeQuota(from, data.Records()); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"vault":   v.Address().Hex(),
		"records": len(data.DepositData),
	}).Info("✅ Approved deposit data")

	return nil
}
