package commands

import (
	"github.com/spf13/cobra"

	"github.com/code-payments/memo-server/pkg/memo"
	"github.com/code-payments/memo-server/pkg/memo/presenter"
	"github.com/code-payments/memo-server/pkg/memo/tui"
	"github.com/code-payments/memo-server/pkg/wallet"
)

func tuiCmd() *cobra.Command {
	var connect bool

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Compose and send memos interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			env, err := loadWalletEnv(ctx)
			if err != nil {
				return err
			}

			kp, _, err := wallet.NewKeypairFromSettings(env.settings)
			if err != nil {
				return err
			}

			session := wallet.NewSession(kp)
			if connect {
				if _, err := session.Connect(); err != nil {
					return err
				}
			}

			locale := localeFromEnv()
			workflow := memo.NewWorkflow(session, memo.WithEnvConfigs(), memo.WithLocale(locale))
			p := presenter.New(workflow, session, presenter.WithEnvConfigs())
			defer p.Close()

			return tui.Run(ctx, p, session, locale)
		},
	}
	cmd.Flags().BoolVar(&connect, "connect", false, "connect the wallet on start")
	return cmd
}
