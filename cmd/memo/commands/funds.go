package commands

import (
	"crypto/ed25519"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/memo-server/pkg/solana"
	"github.com/code-payments/memo-server/pkg/wallet"
)

const (
	lamportsPerSol = 1_000_000_000

	defaultAirdropLamports = lamportsPerSol
)

var errMainnetAirdrop = errors.New("airdrops are not available on mainnet-beta")

func airdropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "airdrop [lamports]",
		Short: "Request test SOL for the configured keypair",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			lamports := uint64(defaultAirdropLamports)
			if len(args) > 0 {
				parsed, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil || parsed == 0 {
					return errors.Errorf("invalid lamport amount: %s", args[0])
				}
				lamports = parsed
			}

			env, err := loadWalletEnv(ctx)
			if err != nil {
				return err
			}
			if env.cluster.IsMainnet() {
				return errMainnetAirdrop
			}

			pub, client, err := loadAccount(env)
			if err != nil {
				return err
			}

			sig, err := client.RequestAirdrop(ctx, pub, lamports, env.settings.Commitment)
			if err != nil {
				return errors.Wrap(err, "airdrop request failed")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Requested %s SOL: %s\n", formatSol(lamports), sig.String())
			return nil
		},
	}
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Print the configured keypair's SOL balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			env, err := loadWalletEnv(ctx)
			if err != nil {
				return err
			}

			pub, client, err := loadAccount(env)
			if err != nil {
				return err
			}

			balance, err := client.GetBalance(ctx, pub, env.settings.Commitment)
			if err != nil {
				return errors.Wrap(err, "failed to get balance")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s SOL\n", formatSol(balance))
			return nil
		},
	}
}

func loadAccount(env *walletEnv) (ed25519.PublicKey, solana.Client, error) {
	key, err := wallet.LoadKeyfile(env.settings.KeypairPath)
	if err != nil {
		return nil, nil, err
	}
	return key.Public().(ed25519.PublicKey), solana.New(env.settings.RpcEndpoint), nil
}

func formatSol(lamports uint64) string {
	whole := lamports / lamportsPerSol
	frac := lamports % lamportsPerSol
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}

	s := fmt.Sprintf("%d.%09d", whole, frac)
	for s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	return s
}
