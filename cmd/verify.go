package cmd

import (
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify various validator data",
	Long:  `Verify deposit data before it is approved into a vault.`,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
