package commands

import (
	"bufio"
	"crypto/ed25519"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/memo-server/pkg/wallet"
)

type keyfileOptions struct {
	outfile    string
	force      bool
	passphrase bool
}

func (o *keyfileOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.outfile, "outfile", "o", "", "keypair file to write (default: the configured keypair path)")
	cmd.Flags().BoolVarP(&o.force, "force", "f", false, "overwrite an existing keypair file")
	cmd.Flags().BoolVar(&o.passphrase, "passphrase", false, "prompt for a BIP39 passphrase")
}

func (o *keyfileOptions) path(cmd *cobra.Command) (string, error) {
	if o.outfile != "" {
		return o.outfile, nil
	}

	env, err := loadWalletEnv(cmd.Context())
	if err != nil {
		return "", err
	}
	return env.settings.KeypairPath, nil
}

func (o *keyfileOptions) save(cmd *cobra.Command, key ed25519.PrivateKey) error {
	path, err := o.path(cmd)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "failed to create keypair directory")
	}
	if err := wallet.SaveKeyfile(path, key, o.force); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote keypair to %s\n", path)
	fmt.Fprintf(cmd.OutOrStdout(), "pubkey: %s\n", base58.Encode(key.Public().(ed25519.PublicKey)))
	return nil
}

func keygenCmd() *cobra.Command {
	o := &keyfileOptions{}

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new keypair from a fresh BIP39 mnemonic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			in := bufio.NewReader(cmd.InOrStdin())

			mnemonic, err := wallet.NewMnemonic()
			if err != nil {
				return err
			}

			var passphrase string
			if o.passphrase {
				if passphrase, err = promptPassphrase(in, out, true); err != nil {
					return err
				}
			}

			key, err := wallet.KeypairFromMnemonic(mnemonic, passphrase)
			if err != nil {
				return err
			}

			if err := o.save(cmd, key); err != nil {
				return err
			}

			fmt.Fprintf(out, "Save this seed phrase to recover your keypair:\n%s\n", mnemonic)
			return nil
		},
	}
	o.register(cmd)
	return cmd
}

func recoverCmd() *cobra.Command {
	o := &keyfileOptions{}

	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Recover a keypair from a BIP39 mnemonic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			in := bufio.NewReader(cmd.InOrStdin())

			mnemonic, err := promptSecret(in, out, "Seed phrase: ")
			if err != nil {
				return err
			}

			var passphrase string
			if o.passphrase {
				if passphrase, err = promptPassphrase(in, out, false); err != nil {
					return err
				}
			}

			key, err := wallet.KeypairFromMnemonic(mnemonic, passphrase)
			if err != nil {
				return err
			}
			return o.save(cmd, key)
		},
	}
	o.register(cmd)
	return cmd
}

func addressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the configured keypair's public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadWalletEnv(cmd.Context())
			if err != nil {
				return err
			}

			key, err := wallet.LoadKeyfile(env.settings.KeypairPath)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), base58.Encode(key.Public().(ed25519.PublicKey)))
			return nil
		},
	}
}
