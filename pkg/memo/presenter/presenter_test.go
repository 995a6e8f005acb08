package presenter

import (
	"context"
	"crypto/ed25519"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/memo-server/pkg/memo"
	"github.com/code-payments/memo-server/pkg/solana"
	"github.com/code-payments/memo-server/pkg/testutil"
)

type fakeWallet struct {
	mu       sync.Mutex
	identity ed25519.PublicKey
	errs     []error
	block    chan struct{}
	calls    int
}

func (w *fakeWallet) ActiveIdentity() (ed25519.PublicKey, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.identity, w.identity != nil
}

func (w *fakeWallet) SignAndSend(ctx context.Context, _ solana.Instruction) (solana.Signature, error) {
	w.mu.Lock()
	w.calls++
	block := w.block
	var err error
	if len(w.errs) > 0 {
		err, w.errs = w.errs[0], w.errs[1:]
	}
	w.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return solana.Signature{}, ctx.Err()
		}
	}

	var sig solana.Signature
	sig[0] = 7
	return sig, err
}

type testEnv struct {
	wallet    *fakeWallet
	workflow  *memo.Workflow
	presenter *Presenter

	mu        sync.Mutex
	snapshots []Snapshot
}

func setup(t *testing.T, displayDuration time.Duration) *testEnv {
	env := &testEnv{
		wallet: &fakeWallet{identity: testutil.GenerateSolanaKeys(t, 1)[0]},
	}
	env.workflow = memo.NewWorkflow(env.wallet, memo.WithEnvConfigs())
	env.presenter = New(env.workflow, env.wallet, withManualTestOverrides(&testOverrides{
		successDisplayDuration: displayDuration,
	}))
	env.presenter.Subscribe(func(s Snapshot) {
		env.mu.Lock()
		env.snapshots = append(env.snapshots, s)
		env.mu.Unlock()
	})
	t.Cleanup(env.presenter.Close)
	return env
}

func (e *testEnv) kinds() []memo.Kind {
	e.mu.Lock()
	defer e.mu.Unlock()

	var kinds []memo.Kind
	for _, s := range e.snapshots {
		kinds = append(kinds, s.State.Kind)
	}
	return kinds
}

func TestPresenter_EditDraft(t *testing.T) {
	env := setup(t, time.Minute)
	p := env.presenter

	assert.True(t, p.EditDraft("hello"))
	snapshot := p.Snapshot()
	assert.Equal(t, "hello", snapshot.Draft)
	assert.Equal(t, 5, snapshot.Length)
	assert.Equal(t, memo.MaxMemoLength, snapshot.MaxLength)
	assert.Equal(t, CounterNormal, snapshot.CounterLevel)
	assert.True(t, snapshot.CanSubmit)
	assert.False(t, snapshot.CanRetry)
	assert.Equal(t, base58.Encode(env.wallet.identity), snapshot.WalletAddress)

	full := strings.Repeat("a", memo.MaxMemoLength)
	assert.True(t, p.EditDraft(full))
	assert.Equal(t, CounterAtLimit, p.Snapshot().CounterLevel)

	// Growing past the limit is rejected, shrinking is always allowed
	assert.False(t, p.EditDraft(full+"b"))
	assert.Equal(t, full, p.Snapshot().Draft)

	assert.True(t, p.EditDraft(strings.Repeat("a", 252)))
	assert.Equal(t, CounterNearLimit, p.Snapshot().CounterLevel)
	assert.True(t, p.EditDraft(strings.Repeat("a", 251)))
	assert.Equal(t, CounterNormal, p.Snapshot().CounterLevel)

	p.ClearDraft()
	assert.Empty(t, p.Snapshot().Draft)
}

func TestPresenter_EditClearsValidationError(t *testing.T) {
	env := setup(t, time.Minute)
	p := env.presenter

	state, err := p.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, memo.KindFailed, state.Kind)
	assert.Equal(t, memo.CodeEmptyMemo, state.Err.Code)

	assert.True(t, p.EditDraft("h"))
	assert.Equal(t, memo.KindIdle, p.Snapshot().State.Kind)
}

func TestPresenter_EditKeepsSubmissionError(t *testing.T) {
	env := setup(t, time.Minute)
	p := env.presenter
	env.wallet.errs = []error{errors.New("User rejected the request.")}

	require.True(t, p.EditDraft("hello"))
	state, err := p.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, memo.CodeUserCancelled, state.Err.Code)

	assert.True(t, p.EditDraft("hello there"))
	snapshot := p.Snapshot()
	assert.Equal(t, memo.KindFailed, snapshot.State.Kind)
	assert.Equal(t, memo.CodeUserCancelled, snapshot.State.Err.Code)
	assert.False(t, snapshot.CanRetry)
}

func TestPresenter_RetryAfterEdit(t *testing.T) {
	env := setup(t, time.Minute)
	p := env.presenter
	env.wallet.errs = []error{errors.New("transaction confirmation timeout")}

	require.True(t, p.EditDraft("hello"))
	state, err := p.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, memo.CodeTimeout, state.Err.Code)

	// The failed attempt no longer matches what is on screen
	require.True(t, p.EditDraft("goodbye"))
	assert.False(t, p.Snapshot().CanRetry)

	state, err = p.Retry(context.Background())
	assert.Equal(t, memo.ErrNotRetriable, err)
	assert.Equal(t, memo.KindFailed, state.Kind)
	assert.Equal(t, 1, env.wallet.calls)

	// Undoing the edit makes the failure retriable again
	require.True(t, p.EditDraft("hello"))
	assert.True(t, p.Snapshot().CanRetry)

	// Submitting sends the edited draft instead
	require.True(t, p.EditDraft("goodbye"))
	state, err = p.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, memo.KindSucceeded, state.Kind)
	assert.Equal(t, "goodbye", env.workflow.LastDraft())
	assert.Equal(t, 2, env.wallet.calls)
}

func TestPresenter_SubmitSuccess(t *testing.T) {
	env := setup(t, time.Minute)
	p := env.presenter

	require.True(t, p.EditDraft("hello"))
	state, err := p.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, memo.KindSucceeded, state.Kind)

	snapshot := p.Snapshot()
	assert.Empty(t, snapshot.Draft)
	assert.Equal(t, memo.KindSucceeded, snapshot.State.Kind)
	require.NotNil(t, snapshot.State.Receipt)
	assert.Contains(t, snapshot.State.Receipt.ConfirmationURL, snapshot.State.Receipt.TransactionID)

	assert.Equal(t, []memo.Kind{memo.KindValidating, memo.KindSubmitting, memo.KindSucceeded}, env.kinds())

	p.DismissSuccess()
	assert.Equal(t, memo.KindIdle, p.Snapshot().State.Kind)
}

func TestPresenter_AutoDismiss(t *testing.T) {
	env := setup(t, 50*time.Millisecond)
	p := env.presenter

	require.True(t, p.EditDraft("hello"))
	_, err := p.Submit(context.Background())
	require.NoError(t, err)

	require.NoError(t, testutil.WaitFor(time.Second, 10*time.Millisecond, func() bool {
		return p.Snapshot().State.Kind == memo.KindIdle
	}))
}

func TestPresenter_AutoDismissSuperseded(t *testing.T) {
	env := setup(t, 100*time.Millisecond)
	p := env.presenter

	require.True(t, p.EditDraft("first"))
	_, err := p.Submit(context.Background())
	require.NoError(t, err)

	// A new failure before the timer fires must not be dismissed by it
	env.wallet.errs = []error{errors.New("insufficient funds for rent")}
	require.True(t, p.EditDraft("second"))
	state, err := p.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, memo.CodeInsufficientFunds, state.Err.Code)

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, memo.KindFailed, p.Snapshot().State.Kind)
}

func TestPresenter_CloseStopsTimer(t *testing.T) {
	env := setup(t, 50*time.Millisecond)
	p := env.presenter

	require.True(t, p.EditDraft("hello"))
	_, err := p.Submit(context.Background())
	require.NoError(t, err)

	p.Close()
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, memo.KindSucceeded, env.workflow.State().Kind)
}

func TestPresenter_Retry(t *testing.T) {
	env := setup(t, time.Minute)
	p := env.presenter
	env.wallet.errs = []error{errors.New("transaction confirmation timeout")}

	require.True(t, p.EditDraft("hello"))
	state, err := p.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, memo.CodeTimeout, state.Err.Code)
	assert.True(t, p.Snapshot().CanRetry)

	state, err = p.Retry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, memo.KindSucceeded, state.Kind)
	assert.Equal(t, 2, env.wallet.calls)
}

func TestPresenter_NoEditsWhileSubmitting(t *testing.T) {
	env := setup(t, time.Minute)
	p := env.presenter

	block := make(chan struct{})
	env.wallet.mu.Lock()
	env.wallet.block = block
	env.wallet.mu.Unlock()

	require.True(t, p.EditDraft("hello"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.Submit(context.Background())
	}()

	require.NoError(t, testutil.WaitFor(time.Second, 5*time.Millisecond, func() bool {
		return p.Snapshot().State.IsSubmitting()
	}))

	assert.False(t, p.Snapshot().CanSubmit)
	assert.False(t, p.EditDraft("changed"))

	_, err := p.Submit(context.Background())
	assert.ErrorIs(t, err, memo.ErrSubmissionInFlight)

	close(block)
	<-done
	assert.Equal(t, memo.KindSucceeded, p.Snapshot().State.Kind)
}

func TestPresenter_Unsubscribe(t *testing.T) {
	env := setup(t, time.Minute)
	p := env.presenter

	var calls int
	unsubscribe := p.Subscribe(func(Snapshot) { calls++ })
	require.True(t, p.EditDraft("a"))
	unsubscribe()
	require.True(t, p.EditDraft("ab"))
	assert.Equal(t, 1, calls)
}
