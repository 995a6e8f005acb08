package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/code-payments/memo-server/pkg/memo"
	"github.com/code-payments/memo-server/pkg/memo/presenter"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#9945FF"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f8c8d"))
	walletStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#14F195"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3498db"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2ecc71"))
	linkStyle    = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("#3498db"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f39c12"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e74c3c"))

	highlightedWalletStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#f1c40f")).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("#f1c40f")).
				Padding(0, 1)

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#9945FF")).
			Padding(0, 1)
	shakingInputStyle = inputStyle.
				BorderForeground(lipgloss.Color("#e74c3c")).
				MarginLeft(2)

	counterStyles = map[presenter.CounterLevel]lipgloss.Style{
		presenter.CounterNormal:    hintStyle,
		presenter.CounterNearLimit: warningStyle,
		presenter.CounterAtLimit:   errorStyle,
	}
)

func severityStyle(severity memo.Severity) lipgloss.Style {
	if severity == memo.SeverityWarning {
		return warningStyle
	}
	return errorStyle
}
