package wallet

import (
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/memo-server/pkg/solana"
)

var (
	// ErrUserRejected is returned when the holder of the key declines to sign.
	// The message matches what browser wallets report.
	ErrUserRejected = errors.New("User rejected the request.")

	ErrNotConnected        = errors.New("wallet not connected")
	ErrInvalidIdentity     = errors.New("wallet identity is not a valid ed25519 point")
	ErrConfirmationTimeout = errors.New("transaction confirmation timeout")
)

// Wallet exposes an active identity and the ability to sign and send a
// transaction containing a single instruction.
type Wallet interface {
	// ActiveIdentity returns the fee payer, or false when nothing is connected
	ActiveIdentity() (ed25519.PublicKey, bool)

	// SignAndSend builds, signs and submits a transaction carrying ix,
	// returning its signature.
	SignAndSend(ctx context.Context, ix solana.Instruction) (solana.Signature, error)
}

// ValidateIdentity rejects keys that cannot sign, such as program derived
// addresses.
func ValidateIdentity(pub ed25519.PublicKey) error {
	if len(pub) != ed25519.PublicKeySize || !solana.IsOnCurve(pub) {
		return ErrInvalidIdentity
	}
	return nil
}
