// Package progress carries status messages from the orchestrators to
// whatever front-end is driving them (the CLI logger or the TUI).
package progress

import "fmt"

// Level indicates the severity/type of a progress message.
type Level int

const (
	LevelInfo Level = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// String returns the lower-case level name.
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelVerbose:
		return "verbose"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelSuccess:
		return "success"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Event represents a progress update.
type Event struct {
	Message string
	Level   Level
}

// Func receives progress events. A nil Func discards them.
type Func func(Event)

// Emit sends a formatted event to fn if fn is set.
func (fn Func) Emit(level Level, format string, args ...any) {
	if fn == nil {
		return
	}
	fn(Event{Message: fmt.Sprintf(format, args...), Level: level})
}
