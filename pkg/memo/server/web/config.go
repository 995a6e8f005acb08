package web

import (
	"github.com/code-payments/memo-server/pkg/config"
	"github.com/code-payments/memo-server/pkg/config/env"
	"github.com/code-payments/memo-server/pkg/config/memory"
	"github.com/code-payments/memo-server/pkg/config/wrapper"
)

const (
	envConfigPrefix = "MEMO_"

	SessionBudgetConfigEnvName = envConfigPrefix + "SESSION_BUDGET"
	defaultSessionBudget       = 1000

	RequestsPerSecondConfigEnvName = envConfigPrefix + "REQUESTS_PER_SECOND"
	defaultRequestsPerSecond       = 5.0

	AllowedOriginsConfigEnvName = envConfigPrefix + "ALLOWED_ORIGINS"
)

var defaultAllowedOrigins = []string{"*"}

type conf struct {
	sessionBudget     config.Uint64
	requestsPerSecond config.Float64
	allowedOrigins    config.StringSlice
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			sessionBudget:     env.NewUint64Config(SessionBudgetConfigEnvName, defaultSessionBudget),
			requestsPerSecond: env.NewFloat64Config(RequestsPerSecondConfigEnvName, defaultRequestsPerSecond),
			allowedOrigins:    env.NewStringSliceConfig(AllowedOriginsConfigEnvName, defaultAllowedOrigins),
		}
	}
}

type testOverrides struct {
	sessionBudget     uint64
	requestsPerSecond float64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			sessionBudget:     wrapper.NewUint64Config(memory.NewConfig(overrides.sessionBudget), defaultSessionBudget),
			requestsPerSecond: wrapper.NewFloat64Config(memory.NewConfig(overrides.requestsPerSecond), defaultRequestsPerSecond),
			allowedOrigins:    wrapper.NewStringSliceConfig(memory.NewConfig(defaultAllowedOrigins), defaultAllowedOrigins),
		}
	}
}
