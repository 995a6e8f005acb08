package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/text/language"

	"github.com/code-payments/memo-server/pkg/memo/presenter"
)

// Run drives p from the terminal until the user quits or ctx is done. A nil
// connector hides wallet connection toggling.
func Run(ctx context.Context, p *presenter.Presenter, connector Connector, locale language.Tag) error {
	m := newModel(ctx, p, connector, locale)

	unsubscribe := p.Subscribe(m.onChange)
	defer unsubscribe()

	_, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	return err
}
