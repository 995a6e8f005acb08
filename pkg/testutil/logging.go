package testutil

import (
	"io"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// Test output stays quiet unless MEMO_TEST_LOGS is set
func init() {
	logrus.SetLevel(logrus.TraceLevel)

	if os.Getenv("MEMO_TEST_LOGS") == "" {
		logrus.StandardLogger().SetOutput(io.Discard)
	}
}

// CaptureLogs records every entry written to the standard logger until the
// test ends.
func CaptureLogs(t *testing.T) *test.Hook {
	hook := test.NewLocal(logrus.StandardLogger())
	t.Cleanup(func() {
		logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))
	})
	return hook
}
