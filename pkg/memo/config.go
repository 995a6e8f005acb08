package memo

import (
	"context"

	"github.com/mr-tron/base58"

	"github.com/code-payments/memo-server/pkg/config"
	"github.com/code-payments/memo-server/pkg/config/env"
	"github.com/code-payments/memo-server/pkg/config/memory"
	"github.com/code-payments/memo-server/pkg/config/wrapper"
	"github.com/code-payments/memo-server/pkg/solana"
	"github.com/code-payments/memo-server/pkg/solana/anchormemo"
)

const (
	envConfigPrefix = "MEMO_"

	ClusterConfigEnvName = envConfigPrefix + "CLUSTER"
	defaultCluster       = string(solana.ClusterDevnet)

	ExplorerURLConfigEnvName = envConfigPrefix + "EXPLORER_URL"
	defaultExplorerURL       = "https://explorer.solana.com"

	ProgramIDConfigEnvName = envConfigPrefix + "PROGRAM_ID"
)

var defaultProgramID = base58.Encode(anchormemo.PROGRAM_ID)

type conf struct {
	cluster     config.String
	explorerURL config.String
	programID   config.String
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			cluster:     env.NewStringConfig(ClusterConfigEnvName, defaultCluster),
			explorerURL: env.NewStringConfig(ExplorerURLConfigEnvName, defaultExplorerURL),
			programID:   env.NewStringConfig(ProgramIDConfigEnvName, defaultProgramID),
		}
	}
}

type testOverrides struct {
	cluster     string
	explorerURL string
	programID   string
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			cluster:     wrapper.NewStringConfig(memory.NewConfig(nilIfEmpty(overrides.cluster)), defaultCluster),
			explorerURL: wrapper.NewStringConfig(memory.NewConfig(nilIfEmpty(overrides.explorerURL)), defaultExplorerURL),
			programID:   wrapper.NewStringConfig(memory.NewConfig(nilIfEmpty(overrides.programID)), defaultProgramID),
		}
	}
}

func nilIfEmpty(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

// ConfiguredCluster returns the cluster selected by configProvider, which
// wallets use to pick a default RPC endpoint.
func ConfiguredCluster(ctx context.Context, configProvider ConfigProvider) (solana.Cluster, error) {
	return solana.ParseCluster(configProvider().cluster.Get(ctx))
}
