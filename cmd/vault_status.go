package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/validator-vault/pkg/vault"
)

var vaultStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a vault",
	Long:  `Prints the roles, stake queue and settlement buckets of a vault.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWorkspace()
		if err != nil {
			return err
		}
		defer w.close()

		v, err := w.vault()
		if err != nil {
			return err
		}

		printVault(v)

		return nil
	},
	SilenceUsage: true,
}

func init() {
	vaultCmd.AddCommand(vaultStatusCmd)
}

func printVault(v *vault.Vault) {
	s := v.Settlement()

	fmt.Printf("Vault:                  %s\n", v.Address().Hex())
	fmt.Printf("Staker:                 %s\n", v.Staker().Hex())
	fmt.Printf("Operator:               %s\n", v.Operator().Hex())
	fmt.Printf("Fee recipient:          %s\n", v.FeeRecipient().Hex())
	fmt.Printf("Fee:                    %d bps\n", v.FeeBps())
	fmt.Printf("Stake quota:            %s wei\n", v.StakeQuota().Dec())
	fmt.Printf("Approved:               %s wei\n", v.ApprovedValue().Dec())
	fmt.Printf("Pending records:        %d\n", len(v.PendingRecords()))
	fmt.Printf("Deposited records:      %d\n", len(v.ConsumedRecords()))
	fmt.Printf("Depositors:             %d\n", len(v.Depositors()))
	fmt.Printf("Balance:                %s wei\n", v.Balance().Dec())
	fmt.Printf("Claimable rewards:      %s wei\n", s.UnclaimedRewards.Dec())
	fmt.Printf("Claimable fees:         %s wei\n", s.UnclaimedFees.Dec())
	fmt.Printf("Withdrawable principal: %s wei\n", s.PrincipalReady.Dec())
	fmt.Printf("Principal outstanding:  %s wei\n", s.PrincipalOutstanding.Dec())
}
