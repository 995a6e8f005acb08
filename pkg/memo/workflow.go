package memo

import (
	"context"
	"crypto/ed25519"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"github.com/code-payments/memo-server/pkg/metrics"
	"github.com/code-payments/memo-server/pkg/solana"
	"github.com/code-payments/memo-server/pkg/solana/anchormemo"
)

const (
	metricsStructName = "memo.workflow"

	outcomeSucceeded = "succeeded"
	outcomeFailed    = "failed"
	outcomeRejected  = "rejected"
)

var errAttemptAborted = errors.New("submission aborted")

// Wallet is the capability required to submit memos: an optional active
// identity, and signing plus sending of a single instruction.
type Wallet interface {
	ActiveIdentity() (ed25519.PublicKey, bool)
	SignAndSend(ctx context.Context, ix solana.Instruction) (solana.Signature, error)
}

// Observer is notified, outside of any workflow lock, after every state
// change.
type Observer func(State)

type Option func(*Workflow)

// WithLocale selects the language of SubmissionError messages
func WithLocale(locale language.Tag) Option {
	return func(w *Workflow) {
		w.locale = locale
	}
}

// WithCosigners forwards additional signers to send_memo. The wallet must be
// able to sign for each of them.
func WithCosigners(cosigners ...ed25519.PublicKey) Option {
	return func(w *Workflow) {
		w.cosigners = append(w.cosigners, cosigners...)
	}
}

// Workflow is the memo submission state machine. It holds at most one
// in-flight submission.
type Workflow struct {
	log       *logrus.Entry
	conf      *conf
	wallet    Wallet
	locale    language.Tag
	cosigners []ed25519.PublicKey

	observersMu sync.RWMutex
	observers   []Observer

	stateMu   sync.Mutex
	state     State
	inFlight  bool
	discard   bool
	lastDraft string
}

func NewWorkflow(wallet Wallet, configProvider ConfigProvider, opts ...Option) *Workflow {
	w := &Workflow{
		log:    logrus.StandardLogger().WithField("type", "memo/workflow"),
		conf:   configProvider(),
		wallet: wallet,
		locale: language.English,
		state:  idleState(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// AddObserver registers fn for all subsequent state changes
func (w *Workflow) AddObserver(fn Observer) {
	w.observersMu.Lock()
	w.observers = append(w.observers, fn)
	w.observersMu.Unlock()
}

func (w *Workflow) State() State {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.state
}

func (w *Workflow) InFlight() bool {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.inFlight
}

// LastDraft is the draft of the most recent attempt, reused by Retry
func (w *Workflow) LastDraft() string {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.lastDraft
}

// AttemptSend validates draft and submits it through the wallet. Failures are
// reported in the returned State. The only error is ErrSubmissionInFlight,
// returned with the current state when another attempt has not finished.
func (w *Workflow) AttemptSend(ctx context.Context, draft string) (state State, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "AttemptSend")
	defer tracer.End()

	w.stateMu.Lock()
	if w.inFlight {
		current := w.state
		w.stateMu.Unlock()
		return current, ErrSubmissionInFlight
	}
	w.inFlight = true
	w.lastDraft = draft
	w.state = State{Kind: KindValidating}
	w.stateMu.Unlock()

	w.notify(State{Kind: KindValidating})

	// finish runs exactly once per attempt, even if the wallet panics
	next := failedState(newSubmissionError(w.locale, CodeUnknown, errAttemptAborted))
	defer func() {
		state = w.finish(next)
	}()

	next = w.submit(ctx, draft)
	return next, nil
}

func (w *Workflow) submit(ctx context.Context, draft string) State {
	identity, ok := w.wallet.ActiveIdentity()
	if !ok {
		return w.reject(ctx, CodeNoWallet)
	}

	switch Validate(draft) {
	case ErrEmptyInput:
		return w.reject(ctx, CodeEmptyMemo)
	case ErrTooLong:
		return w.reject(ctx, CodeTooLong)
	}

	w.setState(State{Kind: KindSubmitting})

	ix := anchormemo.NewSendMemoInstruction(
		w.programID(ctx),
		&anchormemo.SendMemoInstructionAccounts{
			Payer:   identity,
			Signers: w.cosigners,
		},
		&anchormemo.SendMemoInstructionArgs{
			Memo: draft,
		},
	)

	log := w.log.WithFields(logrus.Fields{
		"method":   "AttemptSend",
		"identity": base58.Encode(identity),
		"length":   Length(draft),
	})

	start := time.Now()
	sig, err := w.wallet.SignAndSend(ctx, ix)
	elapsed := time.Since(start)

	if err != nil {
		submissionErr := classify(w.locale, err)

		log.WithError(err).WithField("code", submissionErr.Code).Info("memo submission failed")
		w.record(ctx, outcomeFailed, submissionErr.Code, elapsed)

		return failedState(submissionErr)
	}

	receipt := NewReceipt(w.conf.explorerURL.Get(ctx), w.conf.cluster.Get(ctx), sig.String())

	log.WithField("signature", receipt.TransactionID).Debug("memo submitted")
	w.record(ctx, outcomeSucceeded, "", elapsed)

	return succeededState(receipt)
}

// Retry re-runs the last attempt with the same draft. It is only allowed
// from a Failed state holding a retriable error.
func (w *Workflow) Retry(ctx context.Context) (State, error) {
	w.stateMu.Lock()
	current, draft, inFlight := w.state, w.lastDraft, w.inFlight
	w.stateMu.Unlock()

	if inFlight {
		return current, ErrSubmissionInFlight
	}
	if !current.CanRetry() {
		return current, ErrNotRetriable
	}

	w.log.WithField("code", current.Err.Code).Debug("retrying memo submission")
	return w.AttemptSend(ctx, draft)
}

// ClearError returns a Failed workflow to Idle. It is a no-op otherwise.
func (w *Workflow) ClearError() {
	w.resetFrom(KindFailed)
}

// DismissSuccess returns a Succeeded workflow to Idle. It is a no-op
// otherwise.
func (w *Workflow) DismissSuccess() {
	w.resetFrom(KindSucceeded)
}

// Clear returns the workflow to Idle from any state. An in-flight submission
// cannot be aborted, so its outcome is discarded once it completes.
func (w *Workflow) Clear() {
	w.stateMu.Lock()
	if w.inFlight {
		w.discard = true
		w.stateMu.Unlock()
		return
	}

	changed := w.state.Kind != KindIdle
	w.state = idleState()
	w.lastDraft = ""
	w.stateMu.Unlock()

	if changed {
		w.notify(idleState())
	}
}

func (w *Workflow) resetFrom(kind Kind) {
	w.stateMu.Lock()
	if w.state.Kind != kind {
		w.stateMu.Unlock()
		return
	}
	w.state = idleState()
	w.stateMu.Unlock()

	w.notify(idleState())
}

func (w *Workflow) setState(next State) {
	w.stateMu.Lock()
	w.state = next
	w.stateMu.Unlock()

	w.notify(next)
}

func (w *Workflow) finish(next State) State {
	w.stateMu.Lock()
	if w.discard {
		next = idleState()
		w.discard = false
		w.lastDraft = ""
	}
	previous := w.state
	w.state = next
	w.inFlight = false
	w.stateMu.Unlock()

	w.log.WithFields(logrus.Fields{
		"from": previous.Kind.String(),
		"to":   next.Kind.String(),
	}).Trace("attempt finished")

	w.notify(next)
	return next
}

func (w *Workflow) reject(ctx context.Context, code Code) State {
	w.record(ctx, outcomeRejected, code, 0)
	return failedState(newSubmissionError(w.locale, code, nil))
}

func (w *Workflow) record(ctx context.Context, outcome string, code Code, elapsed time.Duration) {
	metrics.RecordSubmission(ctx, outcome, string(code), elapsed)
}

func (w *Workflow) programID(ctx context.Context) ed25519.PublicKey {
	value := w.conf.programID.Get(ctx)

	decoded, err := base58.Decode(value)
	if err != nil || len(decoded) != ed25519.PublicKeySize {
		w.log.WithField("program_id", value).Warn("invalid program id, using default")
		return anchormemo.PROGRAM_ID
	}
	return decoded
}

func (w *Workflow) notify(state State) {
	w.observersMu.RLock()
	observers := make([]Observer, len(w.observers))
	copy(observers, w.observers)
	w.observersMu.RUnlock()

	for _, fn := range observers {
		fn(state)
	}
}
