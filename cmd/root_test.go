package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/validator-vault/pkg/beacon"
	"github.com/ethpandaops/validator-vault/pkg/chain"
	"github.com/ethpandaops/validator-vault/pkg/config"
	"github.com/ethpandaops/validator-vault/pkg/deposit"
	"github.com/ethpandaops/validator-vault/pkg/factory"
	"github.com/ethpandaops/validator-vault/pkg/sink"
	"github.com/ethpandaops/validator-vault/pkg/vault"
)

func TestInitCommon_SetsEveryLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network: holesky\nlog_level: debug\n"), 0o600))

	configPath = path

	t.Cleanup(func() {
		configPath = ""
		cfg = config.Default()
		require.NoError(t, initCommon(rootCmd))
	})

	require.NoError(t, initCommon(rootCmd))
	assert.Equal(t, "holesky", cfg.Network)

	loggers := map[string]*logrus.Logger{
		"cmd":     log,
		"beacon":  beacon.GetLogger(),
		"chain":   chain.GetLogger(),
		"deposit": deposit.GetLogger(),
		"factory": factory.GetLogger(),
		"sink":    sink.GetLogger(),
		"vault":   vault.GetLogger(),
	}

	for name, logger := range loggers {
		assert.Equal(t, logrus.DebugLevel, logger.GetLevel(), name)
	}
}
