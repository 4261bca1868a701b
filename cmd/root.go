package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/validator-vault/pkg/beacon"
	"github.com/ethpandaops/validator-vault/pkg/chain"
	"github.com/ethpandaops/validator-vault/pkg/config"
	"github.com/ethpandaops/validator-vault/pkg/deposit"
	"github.com/ethpandaops/validator-vault/pkg/factory"
	"github.com/ethpandaops/validator-vault/pkg/sink"
	"github.com/ethpandaops/validator-vault/pkg/vault"
)

var (
	log = logrus.New()

	cfg        = config.Default()
	configPath string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "validator-vault",
	Short: "Runs staking vault tools.",
	Long:  `Manages per-staker validator vaults: deposit data checks, withdrawal request fees and vault administration.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initCommon(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
}

func initCommon(cmd *cobra.Command) error {
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}

		cfg = loaded
	}

	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, "invalid log level")
	}

	log.SetLevel(lvl)

	for _, set := range []func(string) error{
		beacon.SetLogLevel,
		chain.SetLogLevel,
		deposit.SetLogLevel,
		factory.SetLogLevel,
		sink.SetLogLevel,
		vault.SetLogLevel,
	} {
		if err := set(cfg.LogLevel); err != nil {
			return err
		}
	}

	return nil
}
