package common

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/scallionDB/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

// loggerNames lists every named logger of the application
var loggerNames = []string{
	"broker",
	"worker",
	"saver",
	"loader",
	"rpc",
	"transport/rpc",
	"client",
	"commands",
	"admin",
}

// --------------------------------------------------------------------------
// Output
// --------------------------------------------------------------------------

// sink is shared by all loggers so that lines of concurrent components
// never interleave.
var sink = struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}{out: os.Stdout, now: time.Now}

// SetLogOutput redirects all loggers to w.
func SetLogOutput(w io.Writer) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.out = w
}

// nameWidth aligns the component column to the longest logger name
var nameWidth = func() int {
	width := 0
	for _, name := range loggerNames {
		width = max(width, len(name))
	}
	return width
}()

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// scallionLogger writes "<time> LEVEL | component | message" lines.
// Messages whose arguments carry a TimeoutError are written at debug
// level, whatever level they were logged at.
type scallionLogger struct {
	mu    sync.RWMutex
	name  string
	level logger.LogLevel
}

func (l *scallionLogger) SetLevel(level logger.LogLevel) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *scallionLogger) Debugf(format string, args ...interface{}) {
	l.log(logger.DEBUG, format, args)
}

func (l *scallionLogger) Infof(format string, args ...interface{}) {
	l.log(logger.INFO, format, args)
}

func (l *scallionLogger) Warningf(format string, args ...interface{}) {
	l.log(logger.WARNING, format, args)
}

func (l *scallionLogger) Errorf(format string, args ...interface{}) {
	l.log(logger.ERROR, format, args)
}

func (l *scallionLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.write(logger.CRITICAL, msg)
	panic(msg)
}

func (l *scallionLogger) log(level logger.LogLevel, format string, args []interface{}) {
	if level < logger.DEBUG && hasTimeout(args) {
		level = logger.DEBUG
	}
	l.mu.RLock()
	enabled := l.level >= level
	l.mu.RUnlock()
	if enabled {
		l.write(level, fmt.Sprintf(format, args...))
	}
}

func (l *scallionLogger) write(level logger.LogLevel, msg string) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	fmt.Fprintf(sink.out, "%s %-5s | %-*s | %s\n",
		sink.now().Format("2006/01/02 15:04:05"), levelName(level), nameWidth, l.name, msg)
}

func hasTimeout(args []interface{}) bool {
	for _, arg := range args {
		if err, ok := arg.(error); ok && store.CodeOf(err) == store.RetCTimeout {
			return true
		}
	}
	return false
}

func levelName(level logger.LogLevel) string {
	switch level {
	case logger.DEBUG:
		return "DEBUG"
	case logger.INFO:
		return "INFO"
	case logger.WARNING:
		return "WARN"
	case logger.ERROR:
		return "ERROR"
	default:
		return "CRIT"
	}
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger implements the dragonboat logger.Factory
func CreateLogger(pkgName string) logger.ILogger {
	return &scallionLogger{
		name:  pkgName,
		level: logger.INFO,
	}
}

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

// InitLoggers installs the custom logger factory and sets the level of all
// named loggers. It panics on an unknown level.
func InitLoggers(level string) {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		panic(err.Error())
	}

	logger.SetLoggerFactory(CreateLogger)
	for _, name := range loggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
}
