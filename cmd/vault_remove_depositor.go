package cmd

import (
	"github.com/spf13/cobra"
)

var vaultRemoveDepositorCmd = &cobra.Command{
	Use:   "remove-depositor",
	Short: "Revoke an address's permission to fund the vault",
	Long:  `Removes --address from the vault's depositor allow-list. Sent by the staker; the staker itself cannot be removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(func(w *workspace) error {
			return updateDepositor(w, false)
		})
	},
	SilenceUsage: true,
}

func init() {
	vaultCmd.AddCommand(vaultRemoveDepositorCmd)

	vaultRemoveDepositorCmd.Flags().StringVar(&depositorAddress, "address", "", "Depositor address")

	if err := vaultRemoveDepositorCmd.MarkFlagRequired("address"); err != nil {
		panic(err)
	}
}
