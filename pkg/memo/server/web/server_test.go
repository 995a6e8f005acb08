package web

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/memo-server/pkg/memo"
	"github.com/code-payments/memo-server/pkg/memo/presenter"
	"github.com/code-payments/memo-server/pkg/solana"
	"github.com/code-payments/memo-server/pkg/testutil"
)

type relayWallet struct {
	mu       sync.Mutex
	identity ed25519.PublicKey
	errs     []error
	calls    int
}

func (w *relayWallet) ActiveIdentity() (ed25519.PublicKey, bool) {
	return w.identity, true
}

func (w *relayWallet) SignAndSend(_ context.Context, _ solana.Instruction) (solana.Signature, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.calls++
	if len(w.errs) > 0 {
		var err error
		err, w.errs = w.errs[0], w.errs[1:]
		return solana.Signature{}, err
	}

	var sig solana.Signature
	sig[0] = 1
	return sig, nil
}

type testEnv struct {
	relay  *relayWallet
	server *Server
	http   *httptest.Server
}

func setup(t *testing.T, overrides *testOverrides) *testEnv {
	if overrides == nil {
		overrides = &testOverrides{sessionBudget: 10}
	}

	env := &testEnv{
		relay: &relayWallet{identity: testutil.GenerateSolanaKeys(t, 1)[0]},
	}
	env.server = NewServer(env.relay, withManualTestOverrides(overrides), memo.WithEnvConfigs(), presenter.WithEnvConfigs())
	env.http = httptest.NewServer(env.server.Handler(nil))

	t.Cleanup(func() {
		env.http.Close()
		env.server.Close()
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (int, map[string]interface{}) {
	var reader *bytes.Reader
	if body != nil {
		marshalled, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(marshalled)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.http.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func (e *testEnv) createSession(t *testing.T) string {
	status, body := e.do(t, http.MethodPost, "/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, true, body["success"])

	id, ok := body["session_id"].(string)
	require.True(t, ok)
	return id
}

func snapshotOf(t *testing.T, body map[string]interface{}) map[string]interface{} {
	snapshot, ok := body["snapshot"].(map[string]interface{})
	require.True(t, ok, "missing snapshot in %v", body)
	return snapshot
}

func stateKind(t *testing.T, body map[string]interface{}) string {
	state, ok := snapshotOf(t, body)["state"].(map[string]interface{})
	require.True(t, ok)
	return state["kind"].(string)
}

func TestServer_HappyPath(t *testing.T) {
	env := setup(t, nil)
	id := env.createSession(t)
	base := "/v1/sessions/" + id

	status, body := env.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "idle", stateKind(t, body))
	assert.Nil(t, snapshotOf(t, body)["wallet_address"])

	status, body = env.do(t, http.MethodPost, base+"/wallet/connect", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, base58.Encode(env.relay.identity), snapshotOf(t, body)["wallet_address"])

	status, body = env.do(t, http.MethodPut, base+"/draft", map[string]string{"text": "gm"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["accepted"])
	assert.Equal(t, "gm", snapshotOf(t, body)["draft"])

	status, body = env.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "succeeded", stateKind(t, body))
	assert.Equal(t, "", snapshotOf(t, body)["draft"])

	result := body["result"].(map[string]interface{})
	receipt := result["receipt"].(map[string]interface{})
	assert.True(t, strings.HasPrefix(receipt["confirmation_url"].(string), "https://explorer.solana.com/tx/"))

	status, body = env.do(t, http.MethodDelete, base+"/receipt", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "idle", stateKind(t, body))
	assert.Equal(t, 1, env.relay.calls)
}

func TestServer_ConcurrentEdits(t *testing.T) {
	env := setup(t, nil)
	base := "/v1/sessions/" + env.createSession(t)

	drafts := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel"}

	var wg sync.WaitGroup
	for _, draft := range drafts {
		wg.Add(1)
		go func(draft string) {
			defer wg.Done()

			marshalled, _ := json.Marshal(map[string]string{"text": draft})
			req, err := http.NewRequest(http.MethodPut, env.http.URL+base+"/draft", bytes.NewReader(marshalled))
			if !assert.NoError(t, err) {
				return
			}
			resp, err := env.http.Client().Do(req)
			if !assert.NoError(t, err) {
				return
			}
			resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		}(draft)
	}
	wg.Wait()

	status, body := env.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, drafts, snapshotOf(t, body)["draft"])
}

func TestServer_NoWallet(t *testing.T) {
	env := setup(t, nil)
	base := "/v1/sessions/" + env.createSession(t)

	env.do(t, http.MethodPut, base+"/draft", map[string]string{"text": "gm"})

	status, body := env.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Please connect your wallet to send memos", body["error"])
	assert.Equal(t, "failed", stateKind(t, body))
	assert.Equal(t, true, snapshotOf(t, body)["can_retry"])

	// Connecting and retrying succeeds with the same draft
	env.do(t, http.MethodPost, base+"/wallet/connect", nil)
	status, body = env.do(t, http.MethodPost, base+"/retry", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "succeeded", stateKind(t, body))
}

func TestServer_RetryAfterEdit(t *testing.T) {
	env := setup(t, nil)
	base := "/v1/sessions/" + env.createSession(t)

	env.do(t, http.MethodPut, base+"/draft", map[string]string{"text": "gm"})
	_, body := env.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, "failed", stateKind(t, body))

	_, body = env.do(t, http.MethodPut, base+"/draft", map[string]string{"text": "gn"})
	assert.Equal(t, false, snapshotOf(t, body)["can_retry"])

	env.do(t, http.MethodPost, base+"/wallet/connect", nil)
	status, _ := env.do(t, http.MethodPost, base+"/retry", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, 0, env.relay.calls)

	status, body = env.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "succeeded", stateKind(t, body))
	assert.Equal(t, 1, env.relay.calls)
}

func TestServer_ValidationAndErrors(t *testing.T) {
	env := setup(t, nil)
	base := "/v1/sessions/" + env.createSession(t)
	env.do(t, http.MethodPost, base+"/wallet/connect", nil)

	status, body := env.do(t, http.MethodPut, base+"/draft", map[string]string{"text": strings.Repeat("x", memo.MaxMemoLength+1)})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["accepted"])
	assert.Equal(t, "", snapshotOf(t, body)["draft"])

	status, body = env.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Please enter some text for your memo", body["error"])

	// Empty memo failures are not retriable
	status, body = env.do(t, http.MethodPost, base+"/retry", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, false, body["success"])

	status, body = env.do(t, http.MethodDelete, base+"/error", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "idle", stateKind(t, body))

	status, _ = env.do(t, http.MethodPut, base+"/draft", "not an object")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestServer_SessionNotFound(t *testing.T) {
	env := setup(t, nil)

	status, body := env.do(t, http.MethodGet, "/v1/sessions/unknown", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, ErrSessionNotFound.Error(), body["error"])

	status, _ = env.do(t, http.MethodPost, "/v1/sessions/unknown/submit", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_SessionEviction(t *testing.T) {
	env := setup(t, &testOverrides{sessionBudget: 1})

	first := env.createSession(t)
	second := env.createSession(t)

	status, _ := env.do(t, http.MethodGet, "/v1/sessions/"+first, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodGet, "/v1/sessions/"+second, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_RateLimit(t *testing.T) {
	env := setup(t, &testOverrides{sessionBudget: 10, requestsPerSecond: 1})

	status, _ := env.do(t, http.MethodGet, "/v1/sessions/unknown", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body := env.do(t, http.MethodGet, "/v1/sessions/unknown", nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, ErrRateLimited.Error(), body["error"])
}

func TestServer_Locale(t *testing.T) {
	env := setup(t, nil)

	req, err := http.NewRequest(http.MethodPost, env.http.URL+"/v1/sessions", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Language", "es-ES,es;q=0.9")
	resp, err := env.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	base := "/v1/sessions/" + body["session_id"].(string)

	_, body = env.do(t, http.MethodPost, base+"/submit", nil)
	assert.Equal(t, "Conecta tu billetera para enviar memos", body["error"])
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1", getClientIP(r))

	r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	assert.Equal(t, "1.2.3.4", getClientIP(r))
}
