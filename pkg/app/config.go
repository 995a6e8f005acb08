package app

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the application specific configuration.
// It is passed to the App.Init function, and is optional.
type Config map[string]interface{}

// BaseConfig contains the base configuration for services, as well as the
// application itself.
type BaseConfig struct {
	LogLevel string `mapstructure:"log_level"`

	AppName string `mapstructure:"app_name"`

	// ListenAddress serves the application's HTTP API
	ListenAddress string `mapstructure:"listen_address"`
	// HealthListenAddress serves the gRPC health checking protocol
	HealthListenAddress string `mapstructure:"health_listen_address"`
	DebugListenAddress  string `mapstructure:"debug_listen_address"`

	// TLSCertificate is an optional URL that specified a TLS certificate to be
	// used for the HTTP API. If no scheme is specified, file is used.
	TLSCertificate string `mapstructure:"tls_certificate"`
	// TLSKey is an optional URL that specifies a TLS Private Key to be used
	// for the HTTP API. If no scheme is specified, file is used.
	TLSKey string `mapstructure:"tls_private_key"`

	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`

	EnablePprof   bool `mapstructure:"enable_pprof"`
	EnableExpvar  bool `mapstructure:"enable_expvar"`
	EnableMetrics bool `mapstructure:"enable_metrics"`

	// Ballast for improving Go GC performance. Note that capacity will be
	// limited to 50% of the total memory.
	// https://blog.twitch.tv/en/2019/04/10/go-memory-ballast-how-i-learnt-to-stop-worrying-and-love-the-heap/
	EnableBallast   bool    `mapstructure:"enable_ballast"`
	BallastCapacity float32 `mapstructure:"ballast_capacity"`

	// Periodically terminate the application when there's a memory leak
	EnableMemoryLeakCron   bool   `mapstructure:"enable_memory_leak_cron"`
	MemoryLeakCronSchedule string `mapstructure:"memory_leak_cron_schedule"`

	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`

	// Arbitrary configuration that the service can define / implement.
	//
	// Users should use mapstructure.Decode for AppConfig.
	AppConfig Config `mapstructure:"app"`
}

var defaultConfig = BaseConfig{
	LogLevel: "info",

	AppName: "memo-server",

	ListenAddress:       ":8080",
	HealthListenAddress: "localhost:8086",
	DebugListenAddress:  ":8123",

	ShutdownGracePeriod: 30 * time.Second,

	EnablePprof:   false,
	EnableExpvar:  true,
	EnableMetrics: true,

	EnableBallast:   false,
	BallastCapacity: 0.333,

	EnableMemoryLeakCron:   false,
	MemoryLeakCronSchedule: "0 5 * * *",
}

var envBindings = map[string]string{
	"log_level": "LOG_LEVEL",

	"app_name": "APP_NAME",

	"listen_address":        "LISTEN_ADDRESS",
	"health_listen_address": "HEALTH_LISTEN_ADDRESS",
	"debug_listen_address":  "DEBUG_LISTEN_ADDRESS",

	"tls_certificate": "TLS_CERTIFICATE",
	"tls_private_key": "TLS_PRIVATE_KEY",

	"shutdown_grace_period": "SHUTDOWN_GRACE_PERIOD",

	"enable_pprof":   "ENABLE_PPROF",
	"enable_expvar":  "ENABLE_EXPVAR",
	"enable_metrics": "ENABLE_METRICS",

	"enable_ballast":   "ENABLE_BALLAST",
	"ballast_capacity": "BALLAST_CAPACITY",

	"enable_memory_leak_cron":   "ENABLE_MEMORY_LEAK_CRON",
	"memory_leak_cron_schedule": "MEMORY_LEAK_CRON_SCHEDULE",

	"new_relic_license_key": "NEW_RELIC_LICENSE_KEY",
}

// LoadConfig reads the config file at path, if it exists, with environment
// variables taking precedence over file values.
func LoadConfig(path string) (BaseConfig, error) {
	v := viper.New()
	for key, envName := range envBindings {
		if err := v.BindEnv(key, envName); err != nil {
			return BaseConfig{}, errors.Wrapf(err, "failed to bind %s", envName)
		}
	}

	// viper.ReadInConfig only returns ConfigFileNotFoundError if it has to
	// search for a default config file because one hasn't been explicitly set.
	// An explicitly set file that does not exist is treated the same way here.
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return BaseConfig{}, errors.Wrap(err, "failed to load config")
			}
		} else if !os.IsNotExist(err) {
			return BaseConfig{}, errors.Wrap(err, "failed to check if config exists")
		}
	}

	config := defaultConfig
	if err := v.Unmarshal(&config); err != nil {
		return BaseConfig{}, errors.Wrap(err, "failed to unmarshal config")
	}

	if len(config.AppName) == 0 {
		return BaseConfig{}, errors.New("must specify an application name")
	}
	if config.TLSCertificate != "" && config.TLSKey == "" {
		return BaseConfig{}, errors.New("tls key must be provided if certificate is specified")
	}

	return config, nil
}
