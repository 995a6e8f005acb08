package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/memo-server/pkg/testutil"
)

func TestSignatureStatus(t *testing.T) {
	zero, one := 0, 1

	testCases := []struct {
		s         SignatureStatus
		confirmed bool
		finalized bool
	}{
		{
			s: SignatureStatus{Confirmations: &zero},
		},
		{
			s: SignatureStatus{Confirmations: &zero, ConfirmationStatus: confirmationStatusProcessed},
		},
		{
			s:         SignatureStatus{Confirmations: &one},
			confirmed: true,
		},
		{
			s:         SignatureStatus{Confirmations: &zero, ConfirmationStatus: confirmationStatusConfirmed},
			confirmed: true,
		},
		{
			s:         SignatureStatus{ConfirmationStatus: confirmationStatusFinalized},
			confirmed: true,
			finalized: true,
		},
		{
			s:         SignatureStatus{},
			confirmed: true,
			finalized: true,
		},
	}

	for i, tc := range testCases {
		assert.Equal(t, tc.confirmed, tc.s.Confirmed(), i)
		assert.Equal(t, tc.finalized, tc.s.Finalized(), i)
	}
}

func newTestClient(t *testing.T, opts ...ClientOption) (Client, *testutil.RPCServer) {
	s := testutil.NewRPCServer(t)
	opts = append([]ClientOption{WithSignaturePolling(time.Millisecond, 10)}, opts...)
	return New(s.URL(), opts...), s
}

func TestClient_GetLatestBlockhash(t *testing.T) {
	c, s := newTestClient(t)

	var expected Blockhash
	expected[0] = 1
	expected[31] = 2

	s.Handle("getLatestBlockhash", func(_ []json.RawMessage) (interface{}, interface{}) {
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 10},
			"value": map[string]interface{}{
				"blockhash":            base58.Encode(expected[:]),
				"lastValidBlockHeight": 100,
			},
		}, nil
	})

	actual, err := c.GetLatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, expected, actual)

	// Served from the cache
	actual, err = c.GetLatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, expected, actual)
	assert.Equal(t, 1, s.CallCount("getLatestBlockhash"))
}

func TestClient_GetBalance(t *testing.T) {
	c, s := newTestClient(t)
	account := public(generateKeys(t, 1)[0])

	s.Handle("getBalance", func(params []json.RawMessage) (interface{}, interface{}) {
		require.Len(t, params, 2)

		var address string
		require.NoError(t, json.Unmarshal(params[0], &address))
		assert.Equal(t, base58.Encode(account), address)

		var commitment Commitment
		require.NoError(t, json.Unmarshal(params[1], &commitment))
		assert.Equal(t, CommitmentConfirmed, commitment)

		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 10},
			"value":   1500000,
		}, nil
	})

	balance, err := c.GetBalance(context.Background(), account, CommitmentConfirmed)
	require.NoError(t, err)
	assert.EqualValues(t, 1500000, balance)

	s.Handle("getBalance", func(_ []json.RawMessage) (interface{}, interface{}) {
		return nil, map[string]interface{}{"code": invalidParamCode, "message": "Invalid param"}
	})
	_, err = c.GetBalance(context.Background(), account, CommitmentConfirmed)
	assert.Equal(t, ErrNoBalance, err)
}

func TestClient_SubmitTransaction(t *testing.T) {
	c, s := newTestClient(t)

	keys := generateKeys(t, 2)
	txn := NewTransaction(public(keys[0]), NewInstruction(public(keys[1]), []byte("memo")))
	require.NoError(t, txn.Sign(keys[0]))

	s.Handle("sendTransaction", func(params []json.RawMessage) (interface{}, interface{}) {
		require.Len(t, params, 2)

		var encoded string
		require.NoError(t, json.Unmarshal(params[0], &encoded))
		raw, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)
		assert.Equal(t, txn.Marshal(), raw)

		var config map[string]interface{}
		require.NoError(t, json.Unmarshal(params[1], &config))
		assert.Equal(t, "base64", config["encoding"])
		assert.Equal(t, false, config["skipPreflight"])
		assert.Equal(t, "confirmed", config["preflightCommitment"])

		return txn.Signature().String(), nil
	})

	sig, err := c.SubmitTransaction(context.Background(), txn, SubmitOptions{})
	require.NoError(t, err)
	assert.Equal(t, txn.Signature(), sig)
}

func TestClient_SubmitTransaction_PreflightFailure(t *testing.T) {
	c, s := newTestClient(t)

	keys := generateKeys(t, 2)
	txn := NewTransaction(public(keys[0]), NewInstruction(public(keys[1]), []byte("memo")))
	require.NoError(t, txn.Sign(keys[0]))

	s.Handle("sendTransaction", func(_ []json.RawMessage) (interface{}, interface{}) {
		return nil, map[string]interface{}{
			"code":    -32002,
			"message": "Transaction simulation failed: Attempt to debit an account but found no record of a prior credit.",
			"data": map[string]interface{}{
				"accounts": nil,
				"err":      "AccountNotFound",
				"logs":     []string{},
			},
		}
	})

	_, err := c.SubmitTransaction(context.Background(), txn, SubmitOptions{})
	require.Error(t, err)

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	require.NotNil(t, rpcErr.TxErr)
	assert.True(t, rpcErr.TxErr.IsInsufficientFunds())
	assert.Contains(t, err.Error(), "found no record of a prior credit")

	// Errors without transaction data must still fail the submission.
	s.Handle("sendTransaction", func(_ []json.RawMessage) (interface{}, interface{}) {
		return nil, map[string]interface{}{
			"code":    -32003,
			"message": "Transaction signature verification failure",
		}
	})

	_, err = c.SubmitTransaction(context.Background(), txn, SubmitOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature verification failure")
}

func TestClient_GetSignatureStatus(t *testing.T) {
	c, s := newTestClient(t)

	var sig Signature
	sig[0] = 1

	var calls int
	s.Handle("getSignatureStatuses", func(params []json.RawMessage) (interface{}, interface{}) {
		var sigs []string
		require.NoError(t, json.Unmarshal(params[0], &sigs))
		assert.Equal(t, []string{sig.String()}, sigs)

		calls++
		switch calls {
		case 1:
			return map[string]interface{}{"context": map[string]interface{}{"slot": 1}, "value": []interface{}{nil}}, nil
		case 2:
			return map[string]interface{}{
				"context": map[string]interface{}{"slot": 1},
				"value": []interface{}{
					map[string]interface{}{"slot": 5, "confirmations": 0, "confirmationStatus": "processed", "err": nil},
				},
			}, nil
		default:
			return map[string]interface{}{
				"context": map[string]interface{}{"slot": 1},
				"value": []interface{}{
					map[string]interface{}{"slot": 5, "confirmations": 2, "confirmationStatus": "confirmed", "err": nil},
				},
			}, nil
		}
	})

	status, err := c.GetSignatureStatus(context.Background(), sig, CommitmentConfirmed)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.True(t, status.Confirmed())
	assert.Nil(t, status.ErrorResult)
	assert.Equal(t, 3, calls)
}

func TestClient_GetSignatureStatus_Failed(t *testing.T) {
	c, s := newTestClient(t)

	s.Handle("getSignatureStatuses", func(_ []json.RawMessage) (interface{}, interface{}) {
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 1},
			"value": []interface{}{
				map[string]interface{}{
					"slot":               5,
					"confirmations":      0,
					"confirmationStatus": "processed",
					"err":                map[string]interface{}{"InstructionError": []interface{}{0, "InsufficientFunds"}},
				},
			},
		}, nil
	})

	status, err := c.GetSignatureStatus(context.Background(), Signature{}, CommitmentFinalized)
	require.NoError(t, err)
	require.NotNil(t, status.ErrorResult)
	assert.True(t, status.ErrorResult.IsInsufficientFunds())
	assert.Equal(t, 1, s.CallCount("getSignatureStatuses"))
}

func TestClient_GetSignatureStatus_NotFound(t *testing.T) {
	c, s := newTestClient(t)

	s.Handle("getSignatureStatuses", func(_ []json.RawMessage) (interface{}, interface{}) {
		return map[string]interface{}{"context": map[string]interface{}{"slot": 1}, "value": []interface{}{nil}}, nil
	})

	_, err := c.GetSignatureStatus(context.Background(), Signature{}, CommitmentConfirmed)
	assert.Equal(t, ErrSignatureNotFound, err)
	assert.Equal(t, 10, s.CallCount("getSignatureStatuses"))
}

func TestClient_RequestAirdrop(t *testing.T) {
	c, s := newTestClient(t)
	account := public(generateKeys(t, 1)[0])

	var expected Signature
	expected[63] = 9

	s.Handle("requestAirdrop", func(params []json.RawMessage) (interface{}, interface{}) {
		require.Len(t, params, 3)

		var lamports uint64
		require.NoError(t, json.Unmarshal(params[1], &lamports))
		assert.EqualValues(t, 1_000_000_000, lamports)

		return expected.String(), nil
	})

	sig, err := c.RequestAirdrop(context.Background(), account, 1_000_000_000, CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, expected, sig)
}

func TestClient_GetAccountInfo(t *testing.T) {
	c, s := newTestClient(t)
	keys := generateKeys(t, 2)

	s.Handle("getAccountInfo", func(_ []json.RawMessage) (interface{}, interface{}) {
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 1},
			"value": map[string]interface{}{
				"lamports":   42,
				"owner":      base58.Encode(public(keys[1])),
				"data":       []string{base64.StdEncoding.EncodeToString([]byte{1, 2, 3}), "base64"},
				"executable": true,
				"rentEpoch":  0,
			},
		}, nil
	})

	info, err := c.GetAccountInfo(context.Background(), public(keys[0]), CommitmentConfirmed)
	require.NoError(t, err)
	assert.EqualValues(t, 42, info.Lamports)
	assert.Equal(t, public(keys[1]), info.Owner)
	assert.Equal(t, []byte{1, 2, 3}, info.Data)
	assert.True(t, info.Executable)

	s.Handle("getAccountInfo", func(_ []json.RawMessage) (interface{}, interface{}) {
		return map[string]interface{}{"context": map[string]interface{}{"slot": 1}, "value": nil}, nil
	})
	_, err = c.GetAccountInfo(context.Background(), public(keys[0]), CommitmentConfirmed)
	assert.Equal(t, ErrNoAccountInfo, err)
}

func TestClient_GetTransaction(t *testing.T) {
	c, s := newTestClient(t)

	keys := generateKeys(t, 2)
	txn := NewTransaction(public(keys[0]), NewInstruction(public(keys[1]), []byte("memo")))
	require.NoError(t, txn.Sign(keys[0]))

	s.Handle("getTransaction", func(_ []json.RawMessage) (interface{}, interface{}) {
		return map[string]interface{}{
			"slot":      77,
			"blockTime": 1700000000,
			"transaction": []string{
				base64.StdEncoding.EncodeToString(txn.Marshal()),
				"base64",
			},
			"meta": map[string]interface{}{
				"err":         nil,
				"fee":         5000,
				"logMessages": []string{"Program log: Memo (len 4): \"memo\""},
			},
		}, nil
	})

	confirmed, err := c.GetTransaction(context.Background(), txn.Signature(), CommitmentConfirmed)
	require.NoError(t, err)
	assert.EqualValues(t, 77, confirmed.Slot)
	require.NotNil(t, confirmed.BlockTime)
	assert.EqualValues(t, 1700000000, confirmed.BlockTime.Unix())
	assert.Equal(t, txn.Signature(), confirmed.Transaction.Signature())
	assert.Nil(t, confirmed.Err)
	require.NotNil(t, confirmed.Meta)
	assert.EqualValues(t, 5000, confirmed.Meta.Fee)

	s.Handle("getTransaction", func(_ []json.RawMessage) (interface{}, interface{}) {
		return nil, nil
	})
	_, err = c.GetTransaction(context.Background(), txn.Signature(), CommitmentConfirmed)
	assert.Equal(t, ErrSignatureNotFound, err)
}

func TestClient_ContextDeadline(t *testing.T) {
	release := make(chan struct{})

	c, s := newTestClient(t)
	t.Cleanup(func() { close(release) })

	s.Handle("getBalance", func(_ []json.RawMessage) (interface{}, interface{}) {
		<-release
		return map[string]interface{}{"context": map[string]interface{}{"slot": 1}, "value": 1}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.GetBalance(ctx, public(generateKeys(t, 1)[0]), CommitmentConfirmed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, time.Since(start) < 5*time.Second)
}

func TestClient_RequestTimeout(t *testing.T) {
	release := make(chan struct{})

	c, s := newTestClient(t, WithRequestTimeout(50*time.Millisecond))
	t.Cleanup(func() { close(release) })

	s.Handle("getBalance", func(_ []json.RawMessage) (interface{}, interface{}) {
		<-release
		return map[string]interface{}{"context": map[string]interface{}{"slot": 1}, "value": 1}, nil
	})

	_, err := c.GetBalance(context.Background(), public(generateKeys(t, 1)[0]), CommitmentConfirmed)
	assert.ErrorIs(t, err, ErrRequestTimeout)
	assert.Contains(t, err.Error(), "timeout")
}

func TestClient_RateLimitedRetried(t *testing.T) {
	c, s := newTestClient(t, WithRetryLimit(2))

	var calls int
	s.Handle("getBalance", func(_ []json.RawMessage) (interface{}, interface{}) {
		calls++
		if calls == 1 {
			return nil, map[string]interface{}{"code": http.StatusTooManyRequests, "message": "Too many requests"}
		}
		return map[string]interface{}{"context": map[string]interface{}{"slot": 1}, "value": 7}, nil
	})

	balance, err := c.GetBalance(context.Background(), public(generateKeys(t, 1)[0]), CommitmentConfirmed)
	require.NoError(t, err)
	assert.EqualValues(t, 7, balance)
	assert.Equal(t, 2, calls)
}
