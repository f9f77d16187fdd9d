package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/op/go-logging"
)

type Level logging.Level

// Supported verbosity levels, from the most to the least verbose.
const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

var levels = []struct {
	names   []string
	backend logging.Level
}{
	Debug:   {[]string{"debug"}, logging.DEBUG},
	Info:    {[]string{"info"}, logging.INFO},
	Notice:  {[]string{"notice"}, logging.NOTICE},
	Warning: {[]string{"warning", "warn"}, logging.WARNING},
	Error:   {[]string{"error"}, logging.ERROR},
}

var format = logging.MustStringFormatter(
	`%{color}%{time:15:04:05.000} %{level:.4s} [%{module}]%{color:reset} %{message}`,
)

var (
	leveledBackend logging.LeveledBackend
	defaultLevel   = Notice
)

// The logger interface
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Notice(v ...interface{})
	Noticef(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

// Create a new named logger. The name is used as the module for per-module
// level overrides.
func New(name string) Logger {
	return logging.MustGetLogger(name)
}

// Redirect log output to sink. Per-module level overrides are reset while
// the default level is kept.
func SetSink(sink io.Writer) {
	backend := logging.NewLogBackend(sink, "", 0)
	leveledBackend = logging.AddModuleLevel(logging.NewBackendFormatter(backend, format))
	leveledBackend.SetLevel(defaultLevel.backendLevel(), "")
	logging.SetBackend(leveledBackend)
}

// Set the default verbosity for all loggers.
func SetLevel(level Level) {
	defaultLevel = level
	leveledBackend.SetLevel(level.backendLevel(), "")
}

// Set the verbosity of a single named logger.
func SetModuleLevel(module string, level Level) {
	leveledBackend.SetLevel(level.backendLevel(), module)
}

// Parse a level name such as "debug" or "warn".
func ParseLevel(name string) (Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for level, def := range levels {
		for _, alias := range def.names {
			if alias == name {
				return Level(level), nil
			}
		}
	}
	return Notice, fmt.Errorf("log: unknown level %q", name)
}

func (l Level) String() string {
	if int(l) < 0 || int(l) >= len(levels) {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levels[l].names[0]
}

func (l Level) backendLevel() logging.Level {
	if int(l) < 0 || int(l) >= len(levels) {
		return logging.NOTICE
	}
	return levels[l].backend
}

func init() {
	SetSink(os.Stderr)
}
