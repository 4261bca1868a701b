package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/validator-vault/pkg/beacon"
)

var validatorsBeaconURL string

var vaultValidatorsCmd = &cobra.Command{
	Use:   "validators",
	Short: "Show the beacon chain status of a vault's validators",
	Long:  `Looks up every deposited validator of the vault on a beacon node and prints its status and whether an exit was requested.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWorkspace()
		if err != nil {
			return err
		}
		defer w.close()

		return printValidators(w)
	},
	SilenceUsage: true,
}

func init() {
	vaultCmd.AddCommand(vaultValidatorsCmd)

	vaultValidatorsCmd.Flags().StringVar(&validatorsBeaconURL, "beacon-url", "", "Beacon node URL")

	if err := vaultValidatorsCmd.MarkFlagRequired("beacon-url"); err != nil {
		panic(err)
	}
}

func printValidators(w *workspace) error {
	v, err := w.vault()
	if err != nil {
		return err
	}

	records := v.ConsumedRecords()
	if len(records) == 0 {
		fmt.Println("No deposited validators")

		return nil
	}

	pubkeys := make([]string, len(records))
	for i, r := range records {
		pubkeys[i] = hexutil.Encode(r.Pubkey)
	}

	found, err := beacon.NewClient(validatorsBeaconURL).Validators(pubkeys)
	if err != nil {
		return errors.Wrap(err, "failed to fetch validators")
	}

	byPubkey := make(map[string]*beacon.Validator, len(found))
	for _, val := range found {
		byPubkey[val.Pubkey] = val
	}

	for i, r := range records {
		status, index, exited := "unknown", "-", false
		if val, ok := byPubkey[pubkeys[i]]; ok {
			status, index, exited = val.Status, val.Index, val.Exited()
		}

		fmt.Printf("%s index=%s status=%s exited=%t exit_requested=%t\n", pubkeys[i], index, status, exited, v.ExitRequested(r.Pubkey))
	}

	return nil
}
