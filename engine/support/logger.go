package support

// Level is the severity of a log event.
type Level uint8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return "unknown"
}

// Logger is a structured event sink. kv alternates keys (strings) and values.
// Callers guard calls with Enabled so that disabled levels cost no allocation:
//
//	if log.Enabled(support.LevelDebug) {
//		log.Log(support.LevelDebug, "sample done", "nodes", n)
//	}
type Logger interface {
	Enabled(Level) bool
	Log(level Level, msg string, kv ...any)
}

type nop struct{}

func (nop) Enabled(Level) bool { return false }
func (nop) Log(Level, string, ...any) {}

// Nop discards everything.
var Nop Logger = nop{}

// OrNop returns l, or Nop when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop
	}
	return l
}
