package solana

import "github.com/pkg/errors"

type Environment string

const (
	EnvironmentDev  Environment = "https://api.devnet.solana.com"
	EnvironmentTest Environment = "https://api.testnet.solana.com"
	EnvironmentProd Environment = "https://api.mainnet-beta.solana.com"
)

// Cluster names a Solana network. It selects the default RPC endpoint and is
// passed through to explorer links.
type Cluster string

const (
	ClusterDevnet      Cluster = "devnet"
	ClusterTestnet     Cluster = "testnet"
	ClusterMainnetBeta Cluster = "mainnet-beta"
)

var ErrUnknownCluster = errors.New("unknown cluster")

// ParseCluster accepts the cluster names used by the Solana CLI.
func ParseCluster(value string) (Cluster, error) {
	switch Cluster(value) {
	case ClusterDevnet, ClusterTestnet, ClusterMainnetBeta:
		return Cluster(value), nil
	case "mainnet":
		return ClusterMainnetBeta, nil
	}
	return "", errors.Wrap(ErrUnknownCluster, value)
}

// Environment returns the public RPC endpoint for the cluster.
func (c Cluster) Environment() Environment {
	switch c {
	case ClusterTestnet:
		return EnvironmentTest
	case ClusterMainnetBeta:
		return EnvironmentProd
	default:
		return EnvironmentDev
	}
}

// IsMainnet is used to refuse airdrops and to drop the cluster query
// parameter from explorer links.
func (c Cluster) IsMainnet() bool {
	return c == ClusterMainnetBeta
}
