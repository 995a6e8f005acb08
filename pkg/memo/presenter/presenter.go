package presenter

import (
	"context"
	"crypto/ed25519"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/memo-server/pkg/memo"
)

// CounterLevel drives how the character counter is rendered
type CounterLevel string

const (
	CounterNormal    CounterLevel = "normal"
	CounterNearLimit CounterLevel = "near-limit"
	CounterAtLimit   CounterLevel = "at-limit"
)

// nearLimitRatio is the fraction of the maximum length at which the counter
// starts warning.
const nearLimitRatio = 0.9

// Workflow is the subset of memo.Workflow driven by the presenter
type Workflow interface {
	AttemptSend(ctx context.Context, draft string) (memo.State, error)
	Retry(ctx context.Context) (memo.State, error)
	ClearError()
	DismissSuccess()
	State() memo.State
	LastDraft() string
	AddObserver(memo.Observer)
}

// IdentityProvider reports the connected wallet, if any
type IdentityProvider interface {
	ActiveIdentity() (ed25519.PublicKey, bool)
}

// Snapshot is everything a renderer needs to draw the memo form
type Snapshot struct {
	Draft         string       `json:"draft"`
	Length        int          `json:"length"`
	MaxLength     int          `json:"max_length"`
	CounterLevel  CounterLevel `json:"counter_level"`
	State         memo.State   `json:"state"`
	CanSubmit     bool         `json:"can_submit"`
	CanRetry      bool         `json:"can_retry"`
	WalletAddress string       `json:"wallet_address,omitempty"`
}

// Listener receives a Snapshot after every change
type Listener func(Snapshot)

// Presenter owns the draft and turns user intents into workflow calls.
// Successful submissions are dismissed automatically after the configured
// display duration.
type Presenter struct {
	log      *logrus.Entry
	conf     *conf
	workflow Workflow
	identity IdentityProvider

	mu           sync.Mutex
	draft        string
	dismissTimer *time.Timer
	timerGen     uint64
	closed       bool

	listenersMu sync.RWMutex
	listeners   map[uint64]Listener
	nextID      uint64
}

func New(workflow Workflow, identity IdentityProvider, configProvider ConfigProvider) *Presenter {
	p := &Presenter{
		log:       logrus.StandardLogger().WithField("type", "memo/presenter"),
		conf:      configProvider(),
		workflow:  workflow,
		identity:  identity,
		listeners: make(map[uint64]Listener),
	}
	workflow.AddObserver(p.onTransition)
	return p
}

// Subscribe registers l and returns a function removing it
func (p *Presenter) Subscribe(l Listener) (unsubscribe func()) {
	p.listenersMu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = l
	p.listenersMu.Unlock()

	return func() {
		p.listenersMu.Lock()
		delete(p.listeners, id)
		p.listenersMu.Unlock()
	}
}

// EditDraft replaces the draft. Edits past memo.MaxMemoLength, or made while
// a submission is in progress, are rejected. An edit clears validation
// errors, since it invalidates their cause.
func (p *Presenter) EditDraft(text string) bool {
	state := p.workflow.State()
	if state.IsSubmitting() || state.Kind == memo.KindValidating {
		return false
	}

	p.mu.Lock()
	next, ok := memo.ClampEdit(p.draft, text)
	changed := ok && next != p.draft
	p.draft = next
	p.mu.Unlock()

	if !ok {
		return false
	}

	if isValidationFailure(state) {
		// Notifies through onTransition
		p.workflow.ClearError()
	} else if changed {
		p.notify(p.Snapshot())
	}
	return true
}

// ClearDraft empties the draft, as the Escape key does
func (p *Presenter) ClearDraft() {
	p.EditDraft("")
}

// Submit attempts to send the current draft
func (p *Presenter) Submit(ctx context.Context) (memo.State, error) {
	p.mu.Lock()
	draft := p.draft
	p.mu.Unlock()

	return p.workflow.AttemptSend(ctx, draft)
}

// Retry re-sends the draft of the failed attempt. Once the draft has been
// edited the failure no longer describes it, and Retry returns
// memo.ErrNotRetriable.
func (p *Presenter) Retry(ctx context.Context) (memo.State, error) {
	p.mu.Lock()
	draft := p.draft
	p.mu.Unlock()

	if draft != p.workflow.LastDraft() {
		return p.workflow.State(), memo.ErrNotRetriable
	}
	return p.workflow.Retry(ctx)
}

func (p *Presenter) ClearError() {
	p.workflow.ClearError()
}

// DismissSuccess hides the success notification before its timer fires
func (p *Presenter) DismissSuccess() {
	p.mu.Lock()
	p.stopTimerLocked()
	p.mu.Unlock()

	p.workflow.DismissSuccess()
}

// Close stops the auto-dismiss timer. Listeners are not notified after Close.
func (p *Presenter) Close() {
	p.mu.Lock()
	p.closed = true
	p.stopTimerLocked()
	p.mu.Unlock()

	p.listenersMu.Lock()
	p.listeners = make(map[uint64]Listener)
	p.listenersMu.Unlock()
}

func (p *Presenter) Snapshot() Snapshot {
	return p.snapshot(p.workflow.State())
}

func (p *Presenter) snapshot(state memo.State) Snapshot {
	p.mu.Lock()
	draft := p.draft
	p.mu.Unlock()

	length := memo.Length(draft)

	snapshot := Snapshot{
		Draft:        draft,
		Length:       length,
		MaxLength:    memo.MaxMemoLength,
		CounterLevel: counterLevel(length),
		State:        state,
		CanSubmit:    !state.IsSubmitting() && state.Kind != memo.KindValidating,
		CanRetry:     state.CanRetry() && draft == p.workflow.LastDraft(),
	}

	if p.identity != nil {
		if pub, ok := p.identity.ActiveIdentity(); ok {
			snapshot.WalletAddress = base58.Encode(pub)
		}
	}

	return snapshot
}

func (p *Presenter) onTransition(state memo.State) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}

	// Any transition supersedes a pending auto-dismiss
	p.stopTimerLocked()

	if state.Kind == memo.KindSucceeded {
		p.draft = ""
		p.startTimerLocked()
	}
	p.mu.Unlock()

	p.notify(p.snapshot(state))
}

// startTimerLocked must be called with p.mu held
func (p *Presenter) startTimerLocked() {
	duration := p.conf.successDisplayDuration.Get(context.Background())

	p.timerGen++
	gen := p.timerGen
	p.dismissTimer = time.AfterFunc(duration, func() {
		p.mu.Lock()
		current := gen == p.timerGen && !p.closed
		p.mu.Unlock()

		if !current {
			return
		}

		p.log.Trace("auto-dismissing success notification")
		p.workflow.DismissSuccess()
	})
}

// stopTimerLocked must be called with p.mu held
func (p *Presenter) stopTimerLocked() {
	p.timerGen++
	if p.dismissTimer != nil {
		p.dismissTimer.Stop()
		p.dismissTimer = nil
	}
}

func (p *Presenter) notify(snapshot Snapshot) {
	p.listenersMu.RLock()
	listeners := make([]Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.listenersMu.RUnlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

func counterLevel(length int) CounterLevel {
	switch {
	case length >= memo.MaxMemoLength:
		return CounterAtLimit
	case float64(length) >= float64(memo.MaxMemoLength)*nearLimitRatio:
		return CounterNearLimit
	default:
		return CounterNormal
	}
}

func isValidationFailure(state memo.State) bool {
	if state.Kind != memo.KindFailed || state.Err == nil {
		return false
	}
	return state.Err.Code == memo.CodeEmptyMemo || state.Err.Code == memo.CodeTooLong
}
