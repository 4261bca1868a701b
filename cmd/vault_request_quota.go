package cmd

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/validator-vault/pkg/vault"
)

var (
	requestQuotaWei        string
	requestQuotaValidators uint64
)

var vaultRequestQuotaCmd = &cobra.Command{
	Use:   "request-quota",
	Short: "Raise the stake quota of the staker's vault",
	Long:  `Sets a new, higher stake quota. Sent by the staker; pass either --quota in wei or --validators.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(requestQuota)
	},
	SilenceUsage: true,
}

func init() {
	vaultCmd.AddCommand(vaultRequestQuotaCmd)

	vaultRequestQuotaCmd.Flags().StringVar(&requestQuotaWei, "quota", "", "New total stake quota in wei")
	vaultRequestQuotaCmd.Flags().Uint64Var(&requestQuotaValidators, "validators", 0, "New total stake quota in 32 ETH validators")
	vaultRequestQuotaCmd.MarkFlagsMutuallyExclusive("quota", "validators")
}

func requestQuota(w *workspace) error {
	from, err := caller()
	if err != nil {
		return err
	}

	v, err := w.vault()
	if err != nil {
		return err
	}

	var quota *uint256.Int

	switch {
	case requestQuotaWei != "":
		quota, err = parseWei("quota", requestQuotaWei)
		if err != nil {
			return err
		}
	case requestQuotaValidators > 0:
		quota = new(uint256.Int).Mul(vault.ValidatorDepositUnit, uint256.NewInt(requestQuotaValidators))
	default:
		return errors.New("one of --quota or --validators is required")
	}

	return v.RequestStakeQuota(from, quota)
}
