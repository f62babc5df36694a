package support

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

var logrusLevels = [...]logrus.Level{
	LevelTrace: logrus.TraceLevel,
	LevelDebug: logrus.DebugLevel,
	LevelInfo:  logrus.InfoLevel,
	LevelWarn:  logrus.WarnLevel,
	LevelError: logrus.ErrorLevel,
}

type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger adapts a logrus logger. Events carry component=engine.
func NewLogrusLogger(l *logrus.Logger) Logger {
	return &logrusLogger{entry: l.WithField("component", "engine")}
}

func (l *logrusLogger) Enabled(level Level) bool {
	return int(level) < len(logrusLevels) && l.entry.Logger.IsLevelEnabled(logrusLevels[level])
}

func (l *logrusLogger) Log(level Level, msg string, kv ...any) {
	if !l.Enabled(level) {
		return
	}
	fields := make(logrus.Fields, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields[key] = kv[i+1]
	}
	if len(kv)%2 == 1 {
		fields["!BADKEY"] = kv[len(kv)-1]
	}
	l.entry.WithFields(fields).Log(logrusLevels[level], msg)
}
