package cmd

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/validator-vault/pkg/beacon"
	"github.com/ethpandaops/validator-vault/pkg/deposit"
)

var (
	verifyDepositDataPath        string
	verifyExpectedNetwork        string
	verifyExpectedAmount         uint64
	verifyExpectedWithdrawalCred string
	verifyExpectedCount          int
	verifyBeaconURL              string
)

var verifyDepositDataCmd = &cobra.Command{
	Use:   "deposit_data",
	Short: "Verify deposit data",
	Long:  `Verifies and validates deposit data file format and contents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return verifyDepositData()
	},
	// Don't show usage on error
	SilenceUsage: true,
}

func init() {
	verifyCmd.AddCommand(verifyDepositDataCmd)

	verifyDepositDataCmd.Flags().StringVar(&verifyDepositDataPath, "deposit-data", "", "Path to deposit data JSON file")
	verifyDepositDataCmd.Flags().StringVar(&verifyExpectedNetwork, "network", "", "Expected network (defaults to the configured network)")
	verifyDepositDataCmd.Flags().Uint64Var(&verifyExpectedAmount, "amount", 32000000000, "Expected deposit amount in Gwei")
	verifyDepositDataCmd.Flags().StringVar(&verifyExpectedWithdrawalCred, "withdrawal-credentials", "", "Expected withdrawal credentials (hex)")
	verifyDepositDataCmd.Flags().IntVar(&verifyExpectedCount, "count", 0, "Expected number of deposits")
	verifyDepositDataCmd.Flags().StringVar(&verifyBeaconURL, "beacon-url", "", "Beacon node to cross check the genesis fork version against")

	err := verifyDepositDataCmd.MarkFlagRequired("deposit-data")
	if err != nil {
		log.WithError(err).Fatalf("Failed to mark flag %s as required", "deposit-data")
	}
}

func verifyDepositData() error {
	network := verifyExpectedNetwork
	if network == "" {
		network = cfg.Network
	}

	if err := deposit.SetNetwork(network); err != nil {
		return err
	}

	depositData, err := deposit.NewDepositData(
		verifyDepositDataPath,
		network,
		verifyExpectedWithdrawalCred,
		verifyExpectedAmount,
		verifyExpectedCount,
	)
	if err != nil {
		return errors.Wrap(err, "failed to load deposit data")
	}

	if err := depositData.Validate(); err != nil {
		return errors.Wrap(err, "failed to validate deposit data")
	}

	if err := depositData.Verify(); err != nil {
		return errors.Wrap(err, "failed to verify deposit data")
	}

	if verifyBeaconURL != "" {
		if err := checkForkVersion(depositData); err != nil {
			return err
		}
	}

	pubkeys := make([]string, len(depositData.DepositData))
	for i, d := range depositData.DepositData {
		pubkeys[i] = "0x" + strings.TrimPrefix(d.Deposit.PubKey, "0x")
	}

	log.WithFields(logrus.Fields{
		"deposit_count": len(depositData.DepositData),
		"network":       network,
	}).Info("✅ Successfully verified deposit data")

	fmt.Printf("[\"%s\"]\n", strings.Join(pubkeys, "\", \""))

	return nil
}

func checkForkVersion(depositData *deposit.Data) error {
	forkVersion, err := beacon.NewClient(verifyBeaconURL).GenesisForkVersion()
	if err != nil {
		return errors.Wrap(err, "failed to fetch genesis fork version")
	}

	want := strings.TrimPrefix(strings.ToLower(forkVersion), "0x")

	for i, d := range depositData.DepositData {
		if got := strings.TrimPrefix(strings.ToLower(d.Deposit.ForkVersion), "0x"); got != want {
			return errors.Errorf("deposit %d: fork version %s does not match beacon node %s", i, got, want)
		}
	}

	return nil
}
