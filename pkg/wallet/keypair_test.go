package wallet

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/memo-server/pkg/solana"
	"github.com/code-payments/memo-server/pkg/solana/anchormemo"
	"github.com/code-payments/memo-server/pkg/testutil"
)

type testEnv struct {
	rpc     *testutil.RPCServer
	client  solana.Client
	key     ed25519.PrivateKey
	payer   ed25519.PublicKey
	hash    solana.Blockhash
	sentTxn chan solana.Transaction
}

func setup(t *testing.T) *testEnv {
	env := &testEnv{
		rpc:     testutil.NewRPCServer(t),
		key:     testutil.GenerateSolanaKeypair(t),
		sentTxn: make(chan solana.Transaction, 1),
	}
	env.payer = env.key.Public().(ed25519.PublicKey)
	env.hash[0] = 7
	env.client = solana.New(env.rpc.URL(), solana.WithSignaturePolling(time.Millisecond, 5))

	env.rpc.Handle("getLatestBlockhash", func(_ []json.RawMessage) (interface{}, interface{}) {
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 1},
			"value": map[string]interface{}{
				"blockhash":            base58.Encode(env.hash[:]),
				"lastValidBlockHeight": 100,
			},
		}, nil
	})
	env.rpc.Handle("sendTransaction", func(params []json.RawMessage) (interface{}, interface{}) {
		var encoded string
		require.NoError(t, json.Unmarshal(params[0], &encoded))
		raw, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)

		var txn solana.Transaction
		require.NoError(t, txn.Unmarshal(raw))
		env.sentTxn <- txn

		return txn.Signature().String(), nil
	})

	return env
}

func sendMemo(payer ed25519.PublicKey, memo string, signers ...ed25519.PublicKey) solana.Instruction {
	return anchormemo.NewSendMemoInstruction(
		anchormemo.PROGRAM_ID,
		&anchormemo.SendMemoInstructionAccounts{Payer: payer, Signers: signers},
		&anchormemo.SendMemoInstructionArgs{Memo: memo},
	)
}

func TestKeypair_SignAndSend(t *testing.T) {
	env := setup(t)

	kp, err := NewKeypair(env.client, env.key)
	require.NoError(t, err)

	identity, ok := kp.ActiveIdentity()
	require.True(t, ok)
	assert.EqualValues(t, env.payer, identity)

	sig, err := kp.SignAndSend(context.Background(), sendMemo(env.payer, "hello"))
	require.NoError(t, err)

	txn := <-env.sentTxn
	assert.Equal(t, txn.Signature(), sig)
	assert.Equal(t, env.hash, txn.Message.RecentBlockhash)
	assert.EqualValues(t, env.payer, txn.Message.Accounts[0])
	assert.True(t, ed25519.Verify(env.payer, txn.Message.Marshal(), sig[:]))

	decompiled, err := anchormemo.DecompileSendMemo(txn.Message, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", decompiled.Args.Memo)
}

func TestKeypair_Cosigners(t *testing.T) {
	env := setup(t)
	cosigner := testutil.GenerateSolanaKeypair(t)

	kp, err := NewKeypair(env.client, env.key, WithCosigners(cosigner))
	require.NoError(t, err)
	require.Len(t, kp.Cosigners(), 1)

	_, err = kp.SignAndSend(context.Background(), sendMemo(env.payer, "hello", kp.Cosigners()...))
	require.NoError(t, err)

	txn := <-env.sentTxn
	require.Len(t, txn.Signatures, 2)
	for i, signer := range txn.Signers() {
		assert.True(t, ed25519.Verify(signer, txn.Message.Marshal(), txn.Signatures[i][:]))
	}
}

func TestKeypair_ApproverRejects(t *testing.T) {
	env := setup(t)

	var seen *solana.Transaction
	kp, err := NewKeypair(env.client, env.key, WithApprover(func(_ context.Context, txn *solana.Transaction) (bool, error) {
		seen = txn
		return false, nil
	}))
	require.NoError(t, err)

	_, err = kp.SignAndSend(context.Background(), sendMemo(env.payer, "hello"))
	assert.Equal(t, ErrUserRejected, err)
	assert.Equal(t, "User rejected the request.", err.Error())
	require.NotNil(t, seen)
	assert.Equal(t, env.hash, seen.Message.RecentBlockhash)
	assert.Zero(t, env.rpc.CallCount("sendTransaction"))
}

func TestKeypair_TransactionTooLarge(t *testing.T) {
	env := setup(t)

	kp, err := NewKeypair(env.client, env.key)
	require.NoError(t, err)

	_, err = kp.SignAndSend(context.Background(), sendMemo(env.payer, strings.Repeat("a", solana.MaxTransactionSize)))
	assert.True(t, errors.Is(err, solana.ErrTransactionTooLarge))
	assert.Zero(t, env.rpc.CallCount("getLatestBlockhash"))
}

func TestKeypair_InsufficientFunds(t *testing.T) {
	env := setup(t)
	env.rpc.Handle("sendTransaction", func(_ []json.RawMessage) (interface{}, interface{}) {
		return nil, map[string]interface{}{
			"code":    -32002,
			"message": "Transaction simulation failed: Attempt to debit an account but found no record of a prior credit.",
			"data": map[string]interface{}{
				"err":  "AccountNotFound",
				"logs": []string{},
			},
		}
	})

	kp, err := NewKeypair(env.client, env.key)
	require.NoError(t, err)

	_, err = kp.SignAndSend(context.Background(), sendMemo(env.payer, "hello"))
	require.Error(t, err)

	var txErr *solana.TransactionError
	require.True(t, errors.As(err, &txErr))
	assert.True(t, txErr.IsInsufficientFunds())
}

func TestKeypair_Confirmation(t *testing.T) {
	env := setup(t)

	var mu sync.Mutex
	var status map[string]interface{}
	setStatus := func(s map[string]interface{}) {
		mu.Lock()
		status = s
		mu.Unlock()
	}
	env.rpc.Handle("getSignatureStatuses", func(_ []json.RawMessage) (interface{}, interface{}) {
		mu.Lock()
		defer mu.Unlock()
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 1},
			"value":   []interface{}{status},
		}, nil
	})

	kp, err := NewKeypair(env.client, env.key, WithConfirmation(solana.CommitmentConfirmed))
	require.NoError(t, err)

	setStatus(map[string]interface{}{"slot": 5, "confirmations": 1, "confirmationStatus": "confirmed", "err": nil})
	_, err = kp.SignAndSend(context.Background(), sendMemo(env.payer, "hello"))
	require.NoError(t, err)
	<-env.sentTxn

	setStatus(map[string]interface{}{"slot": 5, "confirmations": 1, "confirmationStatus": "confirmed", "err": "AccountNotFound"})
	_, err = kp.SignAndSend(context.Background(), sendMemo(env.payer, "hello"))
	require.Error(t, err)
	<-env.sentTxn

	var txErr *solana.TransactionError
	require.True(t, errors.As(err, &txErr))

	// Never observed within the polling budget
	setStatus(nil)
	_, err = kp.SignAndSend(context.Background(), sendMemo(env.payer, "hello"))
	assert.Equal(t, ErrConfirmationTimeout, err)
	assert.Contains(t, err.Error(), "timeout")
	<-env.sentTxn
}

func TestNewKeypair_InvalidKey(t *testing.T) {
	_, err := NewKeypair(nil, ed25519.PrivateKey(bytes.Repeat([]byte{1}, 10)))
	assert.Error(t, err)
}
