package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/mr-tron/base58"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/memo-server/pkg/app"
	"github.com/code-payments/memo-server/pkg/memo"
	"github.com/code-payments/memo-server/pkg/memo/presenter"
	"github.com/code-payments/memo-server/pkg/memo/server/web"
	"github.com/code-payments/memo-server/pkg/wallet"
)

// appConfig is decoded from the app section of the config file and takes
// precedence over the equivalent MEMO_ environment variables.
type appConfig struct {
	KeypairPath string `mapstructure:"keypair_path"`
	RpcEndpoint string `mapstructure:"rpc_endpoint"`
}

// App serves the memo HTTP API, relaying every session's memos through the
// configured keypair.
type App struct {
	log *logrus.Entry

	workflowConfig  memo.ConfigProvider
	walletConfig    wallet.ConfigProvider
	webConfig       web.ConfigProvider
	presenterConfig presenter.ConfigProvider

	server  *web.Server
	handler http.Handler

	stopOnce   sync.Once
	shutdownCh chan struct{}
}

func NewApp() *App {
	return &App{
		log:             logrus.StandardLogger().WithField("type", "memo/server/app"),
		workflowConfig:  memo.WithEnvConfigs(),
		walletConfig:    wallet.WithEnvConfigs(),
		webConfig:       web.WithEnvConfigs(),
		presenterConfig: presenter.WithEnvConfigs(),
		shutdownCh:      make(chan struct{}),
	}
}

// Init implements app.App.Init
func (a *App) Init(config app.Config, metricsProvider *newrelic.Application) error {
	ctx := context.Background()

	var overrides appConfig
	if err := mapstructure.Decode(config, &overrides); err != nil {
		return errors.Wrap(err, "invalid app config")
	}

	cluster, err := memo.ConfiguredCluster(ctx, a.workflowConfig)
	if err != nil {
		return err
	}

	settings, err := wallet.LoadSettings(ctx, a.walletConfig, cluster)
	if err != nil {
		return err
	}
	if overrides.KeypairPath != "" {
		settings.KeypairPath = overrides.KeypairPath
	}
	if overrides.RpcEndpoint != "" {
		settings.RpcEndpoint = overrides.RpcEndpoint
	}

	relay, _, err := wallet.NewKeypairFromSettings(settings)
	if err != nil {
		return errors.Wrap(err, "failed to load relay keypair")
	}

	a.server = web.NewServer(relay, a.webConfig, a.workflowConfig, a.presenterConfig)
	a.handler = a.server.Handler(metricsProvider)

	a.log.WithFields(logrus.Fields{
		"cluster":  cluster,
		"endpoint": settings.RpcEndpoint,
		"relay":    base58.Encode(relay.PublicKey()),
	}).Info("memo server initialized")

	return nil
}

// HTTPHandler implements app.App.HTTPHandler
func (a *App) HTTPHandler() http.Handler {
	return a.handler
}

// ShutdownChan implements app.App.ShutdownChan
func (a *App) ShutdownChan() <-chan struct{} {
	return a.shutdownCh
}

// Stop implements app.App.Stop
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		if a.server != nil {
			a.server.Close()
		}
		close(a.shutdownCh)
	})
}
