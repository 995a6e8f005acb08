package web

import (
	"github.com/code-payments/memo-server/pkg/memo"
	"github.com/code-payments/memo-server/pkg/memo/presenter"
	"github.com/code-payments/memo-server/pkg/wallet"
)

// session is one browser client's memo form
type session struct {
	id        string
	wallet    *wallet.Session
	workflow  *memo.Workflow
	presenter *presenter.Presenter
}

func (s *session) close() {
	s.presenter.Close()
	s.workflow.Clear()
	s.wallet.Disconnect()
}
