package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/lni/dragonboat/v4/logger"
)

// LoggerNames lists the package loggers configured by InitLoggers
var LoggerNames = []string{"reactor", "stream", "wire", "transport", "vshd", "vsh"}

// --------------------------------------------------------------------------
// Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// levelTags are the single letter markers written in front of every line
var levelTags = map[logger.LogLevel]byte{
	logger.CRITICAL: 'C',
	logger.ERROR:    'E',
	logger.WARNING:  'W',
	logger.INFO:     'I',
	logger.DEBUG:    'D',
}

// vshLogger writes "<tag> <pid> <component>: <message>" lines. Logs go to
// stderr, stdout belongs to the session a vsh client is relaying.
type vshLogger struct {
	name   string
	pid    int
	level  logger.LogLevel
	logger *log.Logger
}

func (l *vshLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *vshLogger) Debugf(format string, args ...interface{}) {
	l.logf(logger.DEBUG, format, args...)
}

func (l *vshLogger) Infof(format string, args ...interface{}) {
	l.logf(logger.INFO, format, args...)
}

func (l *vshLogger) Warningf(format string, args ...interface{}) {
	l.logf(logger.WARNING, format, args...)
}

func (l *vshLogger) Errorf(format string, args ...interface{}) {
	l.logf(logger.ERROR, format, args...)
}

// Panicf records the message and panics with it, independent of the level
func (l *vshLogger) Panicf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.write(logger.CRITICAL, message)
	panic(fmt.Sprintf("%s: %s", l.name, message))
}

func (l *vshLogger) logf(level logger.LogLevel, format string, args ...interface{}) {
	if l.level < level {
		return
	}
	l.write(level, fmt.Sprintf(format, args...))
}

func (l *vshLogger) write(level logger.LogLevel, message string) {
	l.logger.Printf("%c %d %s: %s", levelTags[level], l.pid, l.name, message)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger implements the dragonboat logger.Factory
func CreateLogger(pkgName string) logger.ILogger {
	return newLogger(pkgName, os.Stderr)
}

func newLogger(name string, out io.Writer) *vshLogger {
	return &vshLogger{
		name:   name,
		pid:    os.Getpid(),
		level:  logger.INFO,
		logger: log.New(out, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// InitLoggers installs the custom format and sets every vsh logger to level
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)

	for _, name := range LoggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
