package commands

import (
	"context"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/code-payments/memo-server/pkg/memo"
	"github.com/code-payments/memo-server/pkg/memo/localization"
	"github.com/code-payments/memo-server/pkg/solana"
	"github.com/code-payments/memo-server/pkg/wallet"
)

// rootOptions are the persistent flags shared by every command
type rootOptions struct {
	envFile     string
	keypairPath string
	rpcEndpoint string
	cluster     string
	logLevel    string
}

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}

	root := &cobra.Command{
		Use:           "memo",
		Short:         "Send text memos as Solana transactions",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.apply(cmd)
		},
	}

	root.PersistentFlags().StringVar(&o.envFile, "env-file", ".env", "dotenv file loaded before reading MEMO_ variables")
	root.PersistentFlags().StringVarP(&o.keypairPath, "keypair", "k", "", "keypair file (default "+wallet.DefaultKeyfilePath()+")")
	root.PersistentFlags().StringVarP(&o.rpcEndpoint, "url", "u", "", "RPC endpoint (default: the cluster's public endpoint)")
	root.PersistentFlags().StringVar(&o.cluster, "cluster", "", "cluster: devnet, testnet or mainnet-beta")
	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		serveCmd(),
		tuiCmd(),
		sendCmd(),
		keygenCmd(),
		recoverCmd(),
		airdropCmd(),
		balanceCmd(),
		addressCmd(),
	)
	return root
}

// apply loads the dotenv file and lets explicit flags override MEMO_
// environment variables, which every component reads its config from.
func (o *rootOptions) apply(cmd *cobra.Command) error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Wrapf(err, "failed to load %s", o.envFile)
		}
	}

	level, err := logrus.ParseLevel(o.logLevel)
	if err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	logrus.SetLevel(level)

	overrides := map[string]string{
		wallet.KeypairPathConfigEnvName: o.keypairPath,
		wallet.RpcEndpointConfigEnvName: o.rpcEndpoint,
		memo.ClusterConfigEnvName:       o.cluster,
	}
	for name, value := range overrides {
		if value == "" {
			continue
		}
		if err := os.Setenv(name, value); err != nil {
			return errors.Wrapf(err, "failed to set %s", name)
		}
	}

	if o.cluster != "" {
		if _, err := solana.ParseCluster(o.cluster); err != nil {
			return err
		}
	}
	return nil
}

// walletEnv is everything a command needs to submit through the configured
// keypair.
type walletEnv struct {
	cluster  solana.Cluster
	settings *wallet.Settings
}

func loadWalletEnv(ctx context.Context) (*walletEnv, error) {
	cluster, err := memo.ConfiguredCluster(ctx, memo.WithEnvConfigs())
	if err != nil {
		return nil, err
	}

	settings, err := wallet.LoadSettings(ctx, wallet.WithEnvConfigs(), cluster)
	if err != nil {
		return nil, err
	}

	return &walletEnv{
		cluster:  cluster,
		settings: settings,
	}, nil
}

// localeFromEnv reads POSIX locale variables such as LANG=es_ES.UTF-8
func localeFromEnv() language.Tag {
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		value := os.Getenv(name)
		if value == "" || value == "C" || value == "POSIX" {
			continue
		}

		value, _, _ = strings.Cut(value, ".")
		value, _, _ = strings.Cut(value, "@")
		return localization.ParseLocale(strings.ReplaceAll(value, "_", "-"))
	}
	return localization.ParseLocale("")
}
