package log_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/cipherscore/cipherscore-node/log"
)

func TestLeveledHelpers(t *testing.T) {
	c := qt.New(t)

	logFile := filepath.Join(t.TempDir(), "out.log")
	log.Init(log.LogLevelDebug, logFile)
	defer log.Init(log.LogLevelError, "stderr")

	c.Assert(log.Level(), qt.Equals, log.LogLevelDebug)

	log.Debug("debug message")
	log.Info("info message")
	log.Warn("warn message")
	log.Error("error message")
	log.Debugf("formatted %s", "debug")
	log.Infof("formatted %s", "info")
	log.Warnf("formatted %s", "warn")
	log.Errorf("formatted %s", "error")
	log.Debugw("keyed debug", "k", "v")
	log.Infow("keyed info", "k", "v")
	log.Warnw("keyed warn", "k", "v")
	log.Errorw(os.ErrNotExist, "keyed error")

	data, err := os.ReadFile(logFile)
	c.Assert(err, qt.IsNil)
	out := string(data)
	for _, want := range []string{
		"debug message", "info message", "warn message", "error message",
		"formatted debug", "formatted info", "formatted warn", "formatted error",
		"keyed debug", "keyed info", "keyed warn", "keyed error",
	} {
		c.Assert(strings.Contains(out, want), qt.IsTrue, qt.Commentf("missing %q in log output", want))
	}
}

func TestLevelFiltering(t *testing.T) {
	c := qt.New(t)

	logFile := filepath.Join(t.TempDir(), "out.log")
	log.Init(log.LogLevelWarn, logFile)
	defer log.Init(log.LogLevelError, "stderr")

	log.Info("below threshold")
	log.Warn("above threshold")

	data, err := os.ReadFile(logFile)
	c.Assert(err, qt.IsNil)
	c.Assert(strings.Contains(string(data), "below threshold"), qt.IsFalse)
	c.Assert(strings.Contains(string(data), "above threshold"), qt.IsTrue)
}
