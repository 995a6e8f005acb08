package commands

import (
	"bufio"
	"crypto/ed25519"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/memo-server/pkg/memo"
	"github.com/code-payments/memo-server/pkg/wallet"
)

func sendCmd() *cobra.Command {
	var (
		signerPaths []string
		confirm     bool
		await       bool
	)

	cmd := &cobra.Command{
		Use:   "send <text>...",
		Short: "Send a single memo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			in := bufio.NewReader(cmd.InOrStdin())

			env, err := loadWalletEnv(ctx)
			if err != nil {
				return err
			}
			if await {
				env.settings.AwaitConfirmation = true
			}

			var (
				cosigners   []ed25519.PrivateKey
				cosignerPub []ed25519.PublicKey
			)
			for _, path := range signerPaths {
				key, err := wallet.LoadKeyfile(path)
				if err != nil {
					return errors.Wrapf(err, "failed to load signer %s", path)
				}
				cosigners = append(cosigners, key)
				cosignerPub = append(cosignerPub, key.Public().(ed25519.PublicKey))
			}

			opts := []wallet.KeypairOption{wallet.WithCosigners(cosigners...)}
			if confirm {
				opts = append(opts, wallet.WithApprover(confirmApprover(in, out)))
			}

			kp, _, err := wallet.NewKeypairFromSettings(env.settings, opts...)
			if err != nil {
				return err
			}

			workflow := memo.NewWorkflow(
				kp,
				memo.WithEnvConfigs(),
				memo.WithLocale(localeFromEnv()),
				memo.WithCosigners(cosignerPub...),
			)

			state, err := workflow.AttemptSend(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printOutcome(out, state)
		},
	}

	cmd.Flags().StringArrayVar(&signerPaths, "signer", nil, "additional signer keypair file (repeatable)")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "review and approve the transaction before signing")
	cmd.Flags().BoolVar(&await, "await", false, "wait for the transaction to reach the configured commitment")
	return cmd
}

// printOutcome writes the receipt, or returns the submission error
func printOutcome(w io.Writer, state memo.State) error {
	switch state.Kind {
	case memo.KindSucceeded:
		fmt.Fprintf(w, "Signature: %s\n", state.Receipt.TransactionID)
		fmt.Fprintf(w, "Explorer:  %s\n", state.Receipt.ConfirmationURL)
		return nil
	case memo.KindFailed:
		return state.Err
	}
	return errors.Errorf("unexpected state: %s", state.Kind)
}
