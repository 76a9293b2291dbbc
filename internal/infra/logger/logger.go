package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "FATAL"
	}
}

type Logger struct {
	mu            sync.Mutex
	file          io.WriteCloser
	stdout        io.Writer
	level         atomic.Int32
	includeStdout bool
}

// New opens filePath for appending. An empty filePath logs to stdout only,
// in which case includeStdout is forced on.
func New(filePath string, level Level, includeStdout bool) (*Logger, error) {
	l := &Logger{stdout: os.Stdout, includeStdout: includeStdout}
	l.level.Store(int32(level))

	if filePath == "" {
		l.includeStdout = true
		return l, nil
	}

	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", filePath, err)
	}
	l.file = f

	return l, nil
}

// NewWriter logs everything at or above level to w. Used by tests and
// commands that want log output captured.
func NewWriter(w io.Writer, level Level) *Logger {
	l := &Logger{stdout: w, includeStdout: true}
	l.level.Store(int32(level))
	return l
}

func (l *Logger) log(lvl Level, format string, v ...interface{}) {
	if lvl < l.Level() {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, v...)
	fullMsg := fmt.Sprintf("%s [%s] %s\n", timestamp, lvl, msg)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		io.WriteString(l.file, fullMsg)
	}

	if l.includeStdout {
		io.WriteString(l.stdout, fullMsg)
	}
}

// Level reports the current threshold.
func (l *Logger) Level() Level { return Level(l.level.Load()) }

// SetLevel changes the threshold while the logger is in use.
func (l *Logger) SetLevel(lvl Level) { l.level.Store(int32(lvl)) }

func ParseLevel(lvl string) Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l *Logger) Debug(f string, v ...any) { l.log(LevelDebug, f, v...) }
func (l *Logger) Info(f string, v ...any)  { l.log(LevelInfo, f, v...) }
func (l *Logger) Warn(f string, v ...any)  { l.log(LevelWarn, f, v...) }
func (l *Logger) Error(f string, v ...any) { l.log(LevelError, f, v...) }
func (l *Logger) Fatal(f string, v ...any) { l.log(LevelFatal, f, v...); os.Exit(1) }

func (l *Logger) Write(p []byte) (n int, err error) {
	// net/http and other libraries often include a newline at the end
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		l.Info("%s", msg)
	}
	return len(p), nil
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
