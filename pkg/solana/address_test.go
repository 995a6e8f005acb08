package solana

import (
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicKeyFromBase58(t *testing.T) {
	keys := generateKeys(t, 1)

	decoded, err := PublicKeyFromBase58(base58.Encode(public(keys[0])))
	require.NoError(t, err)
	assert.Equal(t, public(keys[0]), decoded)

	for _, invalid := range []string{
		"",
		"0OIl",
		base58.Encode(make([]byte, 31)),
		base58.Encode(make([]byte, 33)),
	} {
		_, err := PublicKeyFromBase58(invalid)
		assert.ErrorIs(t, err, ErrInvalidPublicKey, invalid)
	}
}

func TestIsOnCurve(t *testing.T) {
	for _, key := range generateKeys(t, 16) {
		assert.True(t, IsOnCurve(public(key)))
	}

	// Program derived addresses
	for _, pda := range []string{
		"3gF2KMe9KiC6FNVBmfg9i267aMPvK37FewCip4eGBFcT",
		"7ytmC1nT1xY4RfxCV2ZgyA7UakC93do5ZdyhdF3EtPj7",
		"HwRVBufQ4haG5XSgpspwKtNd3PC9GM9m1196uJW36vds",
		"GUs5qLUfsEHkcMB9T38vjr18ypEhRuNWiePW2LoK4E3K",
	} {
		pub, err := PublicKeyFromBase58(pda)
		require.NoError(t, err)
		assert.False(t, IsOnCurve(pub), pda)
	}

	assert.False(t, IsOnCurve(nil))
	assert.False(t, IsOnCurve(make(ed25519.PublicKey, 31)))
}
