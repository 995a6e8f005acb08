package memo

import (
	"github.com/pkg/errors"
)

var (
	ErrNotRetriable       = errors.New("no retriable failure to retry")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
)

// Code identifies the cause of a failed submission
type Code string

const (
	CodeNoWallet          Code = "NO_WALLET"
	CodeEmptyMemo         Code = "EMPTY_MEMO"
	CodeTooLong           Code = "TOO_LONG"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeUserCancelled     Code = "USER_CANCELLED"
	CodeTimeout           Code = "TIMEOUT"
	CodeUnknown           Code = "UNKNOWN_ERROR"
)

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// SubmissionError is a user-facing submission failure
type SubmissionError struct {
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	Code        Code     `json:"code"`
	IsRetriable bool     `json:"is_retriable"`

	cause error
}

func (e *SubmissionError) Error() string {
	return e.Message
}

// Unwrap returns the error reported by the wallet or ledger, if any
func (e *SubmissionError) Unwrap() error {
	return e.cause
}
