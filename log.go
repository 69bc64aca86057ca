package minlp

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger constructs the single *logrus.Logger instance a solve should
// use. Like Options, this is built once at startup (by the CLI or by the
// caller of this package) and passed down explicitly; nothing in this
// package reaches for a package-level logger.
func NewLogger(level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return l
}

// nopLogger is handed to components in tests that don't care about log
// output but still need a non-nil *logrus.Logger.
func nopLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(nopWriter{})
	return l
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
