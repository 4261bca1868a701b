package cmd

import (
	"github.com/spf13/cobra"
)

var feeCmd = &cobra.Command{
	Use:   "fee",
	Short: "Withdrawal request fee tools",
	Long:  `Estimates the fee to attach to execution layer triggered withdrawal requests.`,
}

func init() {
	rootCmd.AddCommand(feeCmd)
}
