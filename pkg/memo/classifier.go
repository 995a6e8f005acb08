package memo

import (
	"context"
	"net"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/language"

	"github.com/code-payments/memo-server/pkg/memo/localization"
	"github.com/code-payments/memo-server/pkg/solana"
	"github.com/code-payments/memo-server/pkg/wallet"
)

// Classify maps a wallet or ledger failure onto a SubmissionError with
// English messages. Rules are checked in order and the first match wins.
func Classify(err error) *SubmissionError {
	return classify(language.English, err)
}

func classify(locale language.Tag, err error) *SubmissionError {
	if err == nil {
		return nil
	}

	switch {
	case isInsufficientFunds(err):
		return newSubmissionError(locale, CodeInsufficientFunds, err)
	case isUserRejection(err):
		return newSubmissionError(locale, CodeUserCancelled, err)
	case isTimeout(err):
		return newSubmissionError(locale, CodeTimeout, err)
	case errors.Is(err, solana.ErrTransactionTooLarge):
		return newSubmissionError(locale, CodeTooLong, err)
	default:
		return newSubmissionError(locale, CodeUnknown, err)
	}
}

func isInsufficientFunds(err error) bool {
	if strings.Contains(err.Error(), "insufficient funds") {
		return true
	}

	var txErr *solana.TransactionError
	return errors.As(err, &txErr) && txErr.IsInsufficientFunds()
}

func isUserRejection(err error) bool {
	return strings.Contains(err.Error(), "User rejected") || errors.Is(err, wallet.ErrUserRejected)
}

func isTimeout(err error) bool {
	if strings.Contains(err.Error(), "timeout") {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, wallet.ErrConfirmationTimeout) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

type classification struct {
	severity    Severity
	retriable   bool
	messageKey  string
	messageData map[string]interface{}
}

var classifications = map[Code]classification{
	CodeNoWallet:          {SeverityWarning, true, localization.ErrorNoWallet, nil},
	CodeEmptyMemo:         {SeverityWarning, false, localization.ErrorEmptyMemo, nil},
	CodeTooLong:           {SeverityWarning, false, localization.ErrorTooLong, map[string]interface{}{"Max": MaxMemoLength}},
	CodeInsufficientFunds: {SeverityError, false, localization.ErrorInsufficientFunds, nil},
	CodeUserCancelled:     {SeverityWarning, true, localization.ErrorUserCancelled, nil},
	CodeTimeout:           {SeverityError, true, localization.ErrorTimeout, nil},
	CodeUnknown:           {SeverityError, true, localization.ErrorUnknown, nil},
}

func newSubmissionError(locale language.Tag, code Code, cause error) *SubmissionError {
	c, ok := classifications[code]
	if !ok {
		c = classifications[CodeUnknown]
		code = CodeUnknown
	}

	return &SubmissionError{
		Message:     localization.LocalizeWithData(locale, c.messageKey, c.messageData),
		Severity:    c.severity,
		Code:        code,
		IsRetriable: c.retriable,
		cause:       cause,
	}
}
