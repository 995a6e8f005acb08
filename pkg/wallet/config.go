package wallet

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/memo-server/pkg/config"
	"github.com/code-payments/memo-server/pkg/config/env"
	"github.com/code-payments/memo-server/pkg/config/memory"
	"github.com/code-payments/memo-server/pkg/config/wrapper"
	"github.com/code-payments/memo-server/pkg/solana"
)

const (
	envConfigPrefix = "MEMO_"

	// An empty endpoint selects the cluster's public RPC node
	RpcEndpointConfigEnvName = envConfigPrefix + "RPC_ENDPOINT"
	defaultRpcEndpoint       = ""

	CommitmentConfigEnvName = envConfigPrefix + "COMMITMENT"
	defaultCommitment       = "confirmed"

	SkipPreflightConfigEnvName = envConfigPrefix + "SKIP_PREFLIGHT"
	defaultSkipPreflight       = false

	KeypairPathConfigEnvName = envConfigPrefix + "KEYPAIR_PATH"

	SubmitTimeoutConfigEnvName = envConfigPrefix + "SUBMIT_TIMEOUT"

	AwaitConfirmationConfigEnvName = envConfigPrefix + "AWAIT_CONFIRMATION"
	defaultAwaitConfirmation       = false
)

type conf struct {
	rpcEndpoint       config.String
	commitment        config.String
	skipPreflight     config.Bool
	keypairPath       config.String
	submitTimeout     config.Duration
	awaitConfirmation config.Bool
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			rpcEndpoint:       env.NewStringConfig(RpcEndpointConfigEnvName, defaultRpcEndpoint),
			commitment:        env.NewStringConfig(CommitmentConfigEnvName, defaultCommitment),
			skipPreflight:     env.NewBoolConfig(SkipPreflightConfigEnvName, defaultSkipPreflight),
			keypairPath:       env.NewStringConfig(KeypairPathConfigEnvName, DefaultKeyfilePath()),
			submitTimeout:     env.NewDurationConfig(SubmitTimeoutConfigEnvName, defaultSubmitTimeout),
			awaitConfirmation: env.NewBoolConfig(AwaitConfirmationConfigEnvName, defaultAwaitConfirmation),
		}
	}
}

type testOverrides struct {
	rpcEndpoint       string
	commitment        string
	keypairPath       string
	awaitConfirmation bool
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			rpcEndpoint:       wrapper.NewStringConfig(memory.NewConfig(overrides.rpcEndpoint), defaultRpcEndpoint),
			commitment:        wrapper.NewStringConfig(memory.NewConfig(nilIfEmpty(overrides.commitment)), defaultCommitment),
			skipPreflight:     wrapper.NewBoolConfig(memory.NewConfig(defaultSkipPreflight), defaultSkipPreflight),
			keypairPath:       wrapper.NewStringConfig(memory.NewConfig(nilIfEmpty(overrides.keypairPath)), DefaultKeyfilePath()),
			submitTimeout:     wrapper.NewDurationConfig(memory.NewConfig(defaultSubmitTimeout), defaultSubmitTimeout),
			awaitConfirmation: wrapper.NewBoolConfig(memory.NewConfig(overrides.awaitConfirmation), defaultAwaitConfirmation),
		}
	}
}

func nilIfEmpty(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

// Settings is the resolved configuration of a keypair wallet
type Settings struct {
	RpcEndpoint       string
	Commitment        solana.Commitment
	SkipPreflight     bool
	KeypairPath       string
	SubmitTimeout     time.Duration
	AwaitConfirmation bool
}

// LoadSettings resolves configuration for cluster, which provides the RPC
// endpoint when none is configured.
func LoadSettings(ctx context.Context, configProvider ConfigProvider, cluster solana.Cluster) (*Settings, error) {
	c := configProvider()

	commitment, err := solana.ParseCommitment(c.commitment.Get(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "invalid commitment")
	}

	endpoint := c.rpcEndpoint.Get(ctx)
	if endpoint == "" {
		endpoint = string(cluster.Environment())
	}

	return &Settings{
		RpcEndpoint:       endpoint,
		Commitment:        commitment,
		SkipPreflight:     c.skipPreflight.Get(ctx),
		KeypairPath:       c.keypairPath.Get(ctx),
		SubmitTimeout:     c.submitTimeout.Get(ctx),
		AwaitConfirmation: c.awaitConfirmation.Get(ctx),
	}, nil
}

// KeypairOptions translates the settings into Keypair options
func (s *Settings) KeypairOptions() []KeypairOption {
	opts := []KeypairOption{
		WithPreflight(s.SkipPreflight, s.Commitment),
		WithSubmitTimeout(s.SubmitTimeout),
	}
	if s.AwaitConfirmation {
		opts = append(opts, WithConfirmation(s.Commitment))
	}
	return opts
}

// NewKeypairFromSettings loads the configured keypair file and returns a
// Keypair submitting through the configured endpoint.
func NewKeypairFromSettings(s *Settings, opts ...KeypairOption) (*Keypair, solana.Client, error) {
	key, err := LoadKeyfile(s.KeypairPath)
	if err != nil {
		return nil, nil, err
	}

	client := solana.New(s.RpcEndpoint)

	kp, err := NewKeypair(client, key, append(s.KeypairOptions(), opts...)...)
	if err != nil {
		return nil, nil, err
	}
	return kp, client, nil
}
