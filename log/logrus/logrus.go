// Package logrus adapts a logrus entry to the cascade.Logger interface.
package logrus

import (
	"github.com/sirupsen/logrus"
	"github.com/veiloq/cascade"
)

var _ cascade.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New wraps a root logger; use the struct directly to carry preset fields.
func New(l *logrus.Logger) LogrusLogger {
	return LogrusLogger{E: logrus.NewEntry(l)}
}

func (l LogrusLogger) Debug(msg string, f cascade.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}
func (l LogrusLogger) Info(msg string, f cascade.Fields) { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l LogrusLogger) Warn(msg string, f cascade.Fields) { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l LogrusLogger) Error(msg string, f cascade.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}
