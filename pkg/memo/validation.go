package memo

import (
	"strings"
	"unicode/utf16"

	"github.com/pkg/errors"
)

// MaxMemoLength is the maximum memo length, in characters
const MaxMemoLength = 280

var (
	ErrEmptyInput = errors.New("memo is empty")
	ErrTooLong    = errors.New("memo exceeds maximum length")
)

// Validate checks a draft before submission. Whitespace-only drafts are
// empty. The draft itself is submitted untrimmed.
func Validate(draft string) error {
	if strings.TrimSpace(draft) == "" {
		return ErrEmptyInput
	}
	if Length(draft) > MaxMemoLength {
		return ErrTooLong
	}
	return nil
}

// Length counts UTF-16 code units, the way a browser text input measures
// maxLength. Characters outside the Basic Multilingual Plane count twice, so
// a full-length memo encodes to at most 840 bytes.
func Length(draft string) int {
	var n int
	for _, r := range draft {
		// Ranging over a string never yields surrogates, so RuneLen is 1 or 2
		n += utf16.RuneLen(r)
	}
	return n
}

// ClampEdit applies the length cap at input time. An edit that would exceed
// MaxMemoLength is rejected and current is kept.
func ClampEdit(current, next string) (string, bool) {
	if Length(next) > MaxMemoLength {
		return current, false
	}
	return next, true
}
