package tui

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"github.com/code-payments/memo-server/pkg/memo"
	"github.com/code-payments/memo-server/pkg/memo/localization"
	"github.com/code-payments/memo-server/pkg/memo/presenter"
)

const (
	copiedDisplayDuration   = 2 * time.Second
	shakeDuration           = 500 * time.Millisecond
	walletHighlightDuration = 3 * time.Second
)

// Connector toggles the wallet connection, as wallet.Session does
type Connector interface {
	Connect() (ed25519.PublicKey, error)
	Disconnect()
	Connected() bool
}

type (
	// changedMsg signals that the presenter has a new snapshot
	changedMsg struct{}

	submittedMsg struct {
		state memo.State
		err   error
	}

	copyResetMsg      struct{ gen int }
	shakeResetMsg     struct{ gen int }
	highlightResetMsg struct{ gen int }
)

type model struct {
	ctx       context.Context
	log       *logrus.Entry
	locale    language.Tag
	presenter *presenter.Presenter
	connector Connector
	copy      func(string) error

	// Presenter listeners must never block the event loop, so they only
	// signal this channel and Update pulls the latest snapshot.
	changed chan struct{}

	snapshot presenter.Snapshot
	input    textinput.Model
	spinner  spinner.Model
	notice   string

	copied       bool
	copyGen      int
	shaking      bool
	shakeGen     int
	highlighted  bool
	highlightGen int
}

func newModel(ctx context.Context, p *presenter.Presenter, connector Connector, locale language.Tag) model {
	ti := textinput.New()
	ti.Placeholder = localization.Localize(locale, localization.PlaceholderMemo)
	ti.CharLimit = memo.MaxMemoLength
	ti.Width = 60
	ti.Prompt = ""
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return model{
		ctx:       ctx,
		log:       logrus.StandardLogger().WithField("type", "memo/tui"),
		locale:    locale,
		presenter: p,
		connector: connector,
		copy:      clipboard.WriteAll,
		changed:   make(chan struct{}, 1),
		snapshot:  p.Snapshot(),
		input:     ti,
		spinner:   s,
	}
}

// onChange is the presenter listener
func (m model) onChange(presenter.Snapshot) {
	select {
	case m.changed <- struct{}{}:
	default:
	}
}

func (m model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		<-m.changed
		return changedMsg{}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForChange())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case changedMsg:
		m = m.refresh()
		cmds := []tea.Cmd{m.waitForChange()}
		if m.snapshot.State.IsSubmitting() {
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case submittedMsg:
		m = m.refresh()
		return m.feedback(msg.state)

	case copyResetMsg:
		if msg.gen == m.copyGen {
			m.copied = false
		}
		return m, nil

	case shakeResetMsg:
		if msg.gen == m.shakeGen {
			m.shaking = false
		}
		return m, nil

	case highlightResetMsg:
		if msg.gen == m.highlightGen {
			m.highlighted = false
		}
		return m, nil

	case spinner.TickMsg:
		if !m.snapshot.State.IsSubmitting() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""

	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyEnter:
		if !m.snapshot.CanSubmit {
			return m, nil
		}
		return m, m.submit(m.presenter.Submit)

	case tea.KeyCtrlR:
		if !m.snapshot.CanRetry || !m.snapshot.CanSubmit {
			return m, nil
		}
		return m, m.submit(m.presenter.Retry)

	case tea.KeyEsc:
		m.presenter.ClearDraft()
		return m.refresh(), nil

	case tea.KeyCtrlD:
		switch m.snapshot.State.Kind {
		case memo.KindSucceeded:
			m.presenter.DismissSuccess()
		case memo.KindFailed:
			m.presenter.ClearError()
		}
		return m.refresh(), nil

	case tea.KeyCtrlY:
		return m.copyTransactionID()

	case tea.KeyCtrlW:
		return m.toggleWallet()
	}

	if !m.snapshot.CanSubmit {
		// Input is locked while a submission is in progress
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if !m.presenter.EditDraft(m.input.Value()) {
		m.input.SetValue(m.presenter.Snapshot().Draft)
	}
	return m.refresh(), cmd
}

func (m model) submit(fn func(context.Context) (memo.State, error)) tea.Cmd {
	ctx := m.ctx
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		state, err := fn(ctx)
		return submittedMsg{state: state, err: err}
	})
}

// feedback starts the one-shot indicators for a finished submission
func (m model) feedback(state memo.State) (tea.Model, tea.Cmd) {
	if state.Kind != memo.KindFailed || state.Err == nil {
		return m, nil
	}

	switch state.Err.Code {
	case memo.CodeEmptyMemo:
		m.shaking = true
		m.shakeGen++
		gen := m.shakeGen
		return m, tea.Tick(shakeDuration, func(time.Time) tea.Msg { return shakeResetMsg{gen} })

	case memo.CodeNoWallet:
		m.highlighted = true
		m.highlightGen++
		gen := m.highlightGen
		return m, tea.Tick(walletHighlightDuration, func(time.Time) tea.Msg { return highlightResetMsg{gen} })
	}

	return m, nil
}

func (m model) copyTransactionID() (tea.Model, tea.Cmd) {
	receipt := m.snapshot.State.Receipt
	if m.snapshot.State.Kind != memo.KindSucceeded || receipt == nil {
		return m, nil
	}

	if err := m.copy(receipt.TransactionID); err != nil {
		m.log.WithError(err).Warn("failed to copy transaction id")
		m.notice = err.Error()
		return m, nil
	}

	m.copied = true
	m.copyGen++
	gen := m.copyGen
	return m, tea.Tick(copiedDisplayDuration, func(time.Time) tea.Msg { return copyResetMsg{gen} })
}

func (m model) toggleWallet() (tea.Model, tea.Cmd) {
	if m.connector == nil {
		return m, nil
	}

	if m.connector.Connected() {
		m.connector.Disconnect()
		return m.refresh(), nil
	}

	if _, err := m.connector.Connect(); err != nil {
		m.log.WithError(err).Info("failed to connect wallet")
		m.notice = err.Error()
		return m, nil
	}

	m.highlighted = false
	return m.refresh(), nil
}

// refresh pulls the latest snapshot and keeps the input in sync with the
// draft, which the presenter clears after a successful submission.
func (m model) refresh() model {
	m.snapshot = m.presenter.Snapshot()
	if m.input.Value() != m.snapshot.Draft {
		m.input.SetValue(m.snapshot.Draft)
	}
	return m
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.localize(localization.TitleApp)))
	b.WriteString("\n\n")

	b.WriteString(m.walletView())
	b.WriteString("\n\n")

	style := inputStyle
	if m.shaking {
		style = shakingInputStyle
	}
	b.WriteString(style.Render(m.input.View()))
	b.WriteString("\n")

	counter := fmt.Sprintf("%d/%d", m.snapshot.Length, m.snapshot.MaxLength)
	b.WriteString(counterStyles[m.snapshot.CounterLevel].Render(counter))
	b.WriteString("  ")
	b.WriteString(hintStyle.Render(m.localize(localization.SubtitleKeyboard)))
	b.WriteString("\n\n")

	b.WriteString(m.stateView())

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.notice))
	}

	b.WriteString("\n")
	return b.String()
}

func (m model) walletView() string {
	if m.snapshot.WalletAddress != "" {
		address := localization.LocalizeWithData(m.locale, localization.SubtitleConnected, map[string]interface{}{
			"Address": shortAddress(m.snapshot.WalletAddress),
		})
		return walletStyle.Render(address)
	}

	text := fmt.Sprintf("%s (ctrl+w: %s)",
		m.localize(localization.SubtitleNoWallet),
		m.localize(localization.ActionConnectWallet),
	)
	if m.highlighted {
		return highlightedWalletStyle.Render(text)
	}
	return hintStyle.Render(text)
}

func (m model) stateView() string {
	state := m.snapshot.State

	switch state.Kind {
	case memo.KindValidating, memo.KindSubmitting:
		return fmt.Sprintf("%s %s", m.spinner.View(), m.localize(localization.SubtitleSending))

	case memo.KindSucceeded:
		if state.Receipt == nil {
			return ""
		}

		copyHint := "ctrl+y: " + m.localize(localization.ActionCopyID)
		if m.copied {
			copyHint = m.localize(localization.SubtitleCopied)
		}

		return fmt.Sprintf("%s\n%s\n%s: %s\n%s",
			successStyle.Render(m.localize(localization.TitleMemoSent)),
			state.Receipt.TransactionID,
			m.localize(localization.ActionViewTx),
			linkStyle.Render(state.Receipt.ConfirmationURL),
			hintStyle.Render(copyHint),
		)

	case memo.KindFailed:
		if state.Err == nil {
			return ""
		}

		text := severityStyle(state.Err.Severity).Render(state.Err.Message)
		if m.snapshot.CanRetry {
			text += "  " + hintStyle.Render("ctrl+r: "+m.localize(localization.ActionRetry))
		}
		return text
	}

	return hintStyle.Render("enter: " + m.localize(localization.ActionSend))
}

func (m model) localize(key string) string {
	return localization.Localize(m.locale, key)
}

func shortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:4] + "..." + address[len(address)-4:]
}

