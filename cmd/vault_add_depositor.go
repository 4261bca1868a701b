package cmd

import (
	"github.com/spf13/cobra"
)

var depositorAddress string

var vaultAddDepositorCmd = &cobra.Command{
	Use:   "add-depositor",
	Short: "Allow an address to fund the vault",
	Long:  `Adds --address to the vault's depositor allow-list. Sent by the staker.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(func(w *workspace) error {
			return updateDepositor(w, true)
		})
	},
	SilenceUsage: true,
}

func init() {
	vaultCmd.AddCommand(vaultAddDepositorCmd)

	vaultAddDepositorCmd.Flags().StringVar(&depositorAddress, "address", "", "Depositor address")

	if err := vaultAddDepositorCmd.MarkFlagRequired("address"); err != nil {
		panic(err)
	}
}

func updateDepositor(w *workspace, add bool) error {
	from, err := caller()
	if err != nil {
		return err
	}

	addr, err := parseAddressFlag("address", depositorAddress)
	if err != nil {
		return err
	}

	v, err := w.vault()
	if err != nil {
		return err
	}

	if add {
		return v.AddDepositor(from, addr)
	}

	return v.RemoveDepositor(from, addr)
}
