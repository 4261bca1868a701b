package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/validator-vault/pkg/deposit"
)

var depositDataUpTo string

var vaultDepositDataCmd = &cobra.Command{
	Use:   "deposit-data",
	Short: "Print the pending deposit data of a vault",
	Long: `Prints, in deposit data file format, the pending records that a funding of
--up-to wei would consume. Without --up-to every pending record is printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWorkspace()
		if err != nil {
			return err
		}
		defer w.close()

		return printDepositData(w)
	},
	SilenceUsage: true,
}

func init() {
	vaultCmd.AddCommand(vaultDepositDataCmd)

	vaultDepositDataCmd.Flags().StringVar(&depositDataUpTo, "up-to", "", "Funding amount in wei")
}

func printDepositData(w *workspace) error {
	v, err := w.vault()
	if err != nil {
		return err
	}

	records := v.PendingRecords()

	if depositDataUpTo != "" {
		var upTo *uint256.Int

		upTo, err = parseWei("up-to", depositDataUpTo)
		if err != nil {
			return err
		}

		records = v.DepositData(upTo)
	}

	out := make([]*deposit.Deposit, len(records))
	for i, r := range records {
		out[i] = &deposit.Deposit{
			PubKey:                hex.EncodeToString(r.Pubkey),
			WithdrawalCredentials: hex.EncodeToString(r.WithdrawalCredentials),
			Amount:                r.Amount,
			Signature:             hex.EncodeToString(r.Signature),
			DepositDataRoot:       hex.EncodeToString(r.DataRoot[:]),
			NetworkName:           cfg.Network,
		}
	}

	enc, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(enc))

	return nil
}
