package deposit

import (
	"fmt"

	"github.com/prysmaticlabs/prysm/v5/config/params"
)

// SetNetwork selects the beacon chain config used for deposit domains.
func SetNetwork(network string) error {
	switch network {
	case "mainnet":
		params.OverrideBeaconConfig(params.MainnetConfig())
	case "holesky":
		params.OverrideBeaconConfig(params.HoleskyConfig())
	case "sepolia":
		params.OverrideBeaconConfig(params.SepoliaConfig())
	default:
		return fmt.Errorf("unknown network: %s", network)
	}

	return nil
}
