package presenter

import (
	"time"

	"github.com/code-payments/memo-server/pkg/config"
	"github.com/code-payments/memo-server/pkg/config/env"
	"github.com/code-payments/memo-server/pkg/config/memory"
	"github.com/code-payments/memo-server/pkg/config/wrapper"
)

const (
	envConfigPrefix = "MEMO_"

	SuccessDisplayDurationConfigEnvName = envConfigPrefix + "SUCCESS_DISPLAY_DURATION"
	defaultSuccessDisplayDuration       = 5 * time.Second
)

type conf struct {
	successDisplayDuration config.Duration
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			successDisplayDuration: env.NewDurationConfig(SuccessDisplayDurationConfigEnvName, defaultSuccessDisplayDuration),
		}
	}
}

type testOverrides struct {
	successDisplayDuration time.Duration
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			successDisplayDuration: wrapper.NewDurationConfig(memory.NewConfig(overrides.successDisplayDuration), defaultSuccessDisplayDuration),
		}
	}
}
