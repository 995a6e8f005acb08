package solana

import (
	"crypto/ed25519"

	"github.com/jdgcs/ed25519/edwards25519"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

var ErrInvalidPublicKey = errors.New("invalid public key")

// PublicKeyFromBase58 decodes a base58 account address. The decoded value
// must be exactly 32 bytes.
func PublicKeyFromBase58(value string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(value)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidPublicKey, err.Error())
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, errors.Wrapf(ErrInvalidPublicKey, "invalid length: %d", len(decoded))
	}
	return decoded, nil
}

// IsOnCurve reports whether pub is a valid compressed ed25519 point. Only
// on-curve keys have a private key and can sign. Program derived addresses
// are deliberately off-curve.
//
// The edwards25519 group element used by crypto/ed25519 is internal, so the
// check relies on github.com/jdgcs/ed25519.
func IsOnCurve(pub ed25519.PublicKey) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}

	var compressed [32]byte
	copy(compressed[:], pub)

	var A edwards25519.ExtendedGroupElement
	return A.FromBytes(&compressed)
}
