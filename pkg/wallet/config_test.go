package wallet

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/memo-server/pkg/solana"
	"github.com/code-payments/memo-server/pkg/testutil"
)

func TestLoadSettings(t *testing.T) {
	ctx := context.Background()

	settings, err := LoadSettings(ctx, withManualTestOverrides(&testOverrides{}), solana.ClusterTestnet)
	require.NoError(t, err)
	assert.Equal(t, string(solana.EnvironmentTest), settings.RpcEndpoint)
	assert.Equal(t, solana.CommitmentConfirmed, settings.Commitment)
	assert.Equal(t, DefaultKeyfilePath(), settings.KeypairPath)
	assert.Equal(t, defaultSubmitTimeout, settings.SubmitTimeout)
	assert.Len(t, settings.KeypairOptions(), 2)

	settings, err = LoadSettings(ctx, withManualTestOverrides(&testOverrides{
		rpcEndpoint:       "http://localhost:8899",
		commitment:        "finalized",
		awaitConfirmation: true,
	}), solana.ClusterDevnet)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8899", settings.RpcEndpoint)
	assert.Equal(t, solana.CommitmentFinalized, settings.Commitment)
	assert.Len(t, settings.KeypairOptions(), 3)

	_, err = LoadSettings(ctx, withManualTestOverrides(&testOverrides{commitment: "recent"}), solana.ClusterDevnet)
	assert.Error(t, err)
}

func TestNewKeypairFromSettings(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "id.json")

	key := testutil.GenerateSolanaKeypair(t)
	require.NoError(t, SaveKeyfile(path, key, false))

	settings, err := LoadSettings(ctx, withManualTestOverrides(&testOverrides{keypairPath: path}), solana.ClusterDevnet)
	require.NoError(t, err)

	kp, client, err := NewKeypairFromSettings(settings)
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.EqualValues(t, key.Public(), kp.PublicKey())

	settings.KeypairPath = filepath.Join(t.TempDir(), "missing.json")
	_, _, err = NewKeypairFromSettings(settings)
	assert.Error(t, err)
}
