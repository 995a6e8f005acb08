package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/code-payments/memo-server/pkg/solana"
	"github.com/code-payments/memo-server/pkg/solana/anchormemo"
	splmemo "github.com/code-payments/memo-server/pkg/solana/memo"
	"github.com/code-payments/memo-server/pkg/wallet"
)

// Test seams for the terminal
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// promptLine prints prompt to w and reads one trimmed line from r
func promptLine(r *bufio.Reader, w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}

	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads a line without echo when stdin is a terminal
func promptSecret(r *bufio.Reader, w io.Writer, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		return promptLine(r, w, prompt)
	}

	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	secret, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(secret), nil
}

// promptPassphrase asks for a BIP-39 passphrase twice when confirm is set
func promptPassphrase(r *bufio.Reader, w io.Writer, confirm bool) (string, error) {
	passphrase, err := promptSecret(r, w, "BIP39 passphrase (empty for none): ")
	if err != nil {
		return "", err
	}
	if !confirm || passphrase == "" {
		return passphrase, nil
	}

	again, err := promptSecret(r, w, "Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if again != passphrase {
		return "", errors.New("passphrases do not match")
	}
	return passphrase, nil
}

// confirmApprover shows the memo about to be signed and asks for approval,
// the way a browser wallet does.
func confirmApprover(r *bufio.Reader, w io.Writer) wallet.Approver {
	return func(_ context.Context, txn *solana.Transaction) (bool, error) {
		fmt.Fprintf(w, "Fee payer: %s\n", base58.Encode(txn.Message.Accounts[0]))

		for i := range txn.Message.Instructions {
			if decompiled, err := anchormemo.DecompileSendMemo(txn.Message, i); err == nil {
				fmt.Fprintf(w, "Memo (%d bytes): %q\n", len(decompiled.Args.Memo), decompiled.Args.Memo)
				continue
			}
			if decompiled, err := splmemo.DecompileMemo(txn.Message, i); err == nil {
				fmt.Fprintf(w, "Memo (%d bytes): %q\n", len(decompiled.Data), decompiled.Data)
			}
		}

		answer, err := promptLine(r, w, "Approve transaction? [y/N] ")
		if err != nil {
			return false, err
		}

		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}
