package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var vaultCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the vault of a staker",
	Long:  `Creates a vault for --staker (or --from) using the factory's current defaults.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(createVault)
	},
	SilenceUsage: true,
}

func init() {
	vaultCmd.AddCommand(vaultCreateCmd)
}

func createVault(w *workspace) error {
	staker := vaultStaker
	if staker == "" {
		staker = vaultFrom
	}

	addr, err := parseAddressFlag("staker", staker)
	if err != nil {
		return err
	}

	v, err := w.factory.CreateVault(addr)
	if err != nil {
		return err
	}

	fmt.Printf("Vault: %s\n", v.Address().Hex())

	return nil
}
