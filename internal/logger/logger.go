package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a LOG_LEVEL value to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes category-tagged lines to the console and, optionally, to a log file.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	file  *os.File
	level Level

	debug   *color.Color
	info    *color.Color
	warn    *color.Color
	err     *color.Color
	process *color.Color
	db      *color.Color
	kafka   *color.Color
	api     *color.Color
	sec     *color.Color
	pay     *color.Color
	order   *color.Color
}

func NewLogger() *Logger {
	l := NewLoggerWithWriter(os.Stdout)

	if path := os.Getenv("LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			l.Warn("LOGGER", fmt.Sprintf("Could not open log file %s: %v", path, err))
		} else {
			l.file = f
		}
	}
	l.level = ParseLevel(os.Getenv("LOG_LEVEL"))
	return l
}

// NewLoggerWithWriter builds a logger that writes only to w. Colour is disabled
// unless w is stdout.
func NewLoggerWithWriter(w io.Writer) *Logger {
	l := &Logger{
		out:     w,
		level:   LevelInfo,
		debug:   color.New(color.FgHiBlack),
		info:    color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		err:     color.New(color.FgRed, color.Bold),
		process: color.New(color.FgCyan),
		db:      color.New(color.FgBlue),
		kafka:   color.New(color.FgMagenta),
		api:     color.New(color.FgHiCyan),
		sec:     color.New(color.FgHiRed),
		pay:     color.New(color.FgHiGreen),
		order:   color.New(color.FgHiYellow),
	}
	if w != os.Stdout {
		for _, c := range []*color.Color{l.debug, l.info, l.warn, l.err, l.process, l.db, l.kafka, l.api, l.sec, l.pay, l.order} {
			c.DisableColor()
		}
	}
	return l
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	return NewLoggerWithWriter(io.Discard)
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *Logger) write(level Level, c *color.Color, tag, category, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	ts := time.Now().Format("2006-01-02 15:04:05.000")
	line := fmt.Sprintf("%s [%-7s] [%s] %s", ts, tag, category, msg)
	c.Fprintln(l.out, line)

	if l.file != nil {
		fmt.Fprintln(l.file, line)
	}
}

func (l *Logger) Debug(category, msg string) { l.write(LevelDebug, l.debug, "DEBUG", category, msg) }
func (l *Logger) Info(category, msg string)  { l.write(LevelInfo, l.info, "INFO", category, msg) }
func (l *Logger) Warn(category, msg string)  { l.write(LevelWarn, l.warn, "WARN", category, msg) }
func (l *Logger) Error(category, msg string) { l.write(LevelError, l.err, "ERROR", category, msg) }

// Fatal logs and exits the process.
func (l *Logger) Fatal(category, msg string) {
	l.write(LevelError, l.err, "FATAL", category, msg)
	l.Close()
	os.Exit(1)
}

func (l *Logger) LogProcess(category, msg string) {
	l.write(LevelInfo, l.process, "PROCESS", category, msg)
}

func (l *Logger) LogDatabase(operation, db, msg string) {
	l.write(LevelDebug, l.db, "DB", db+":"+operation, msg)
}

func (l *Logger) LogKafka(operation, topic, msg string) {
	l.write(LevelInfo, l.kafka, "KAFKA", topic+":"+operation, msg)
}

func (l *Logger) LogAPI(method, path, status, duration string) {
	l.write(LevelInfo, l.api, "API", method, fmt.Sprintf("%s -> %s (%s)", path, status, duration))
}

func (l *Logger) LogSecurity(event, msg string) {
	l.write(LevelWarn, l.sec, "SECURITY", event, msg)
}

func (l *Logger) LogPayment(operation, id, msg string) {
	l.write(LevelInfo, l.pay, "PAYMENT", operation+":"+id, msg)
}

func (l *Logger) LogOrder(operation, orderID, msg string) {
	l.write(LevelInfo, l.order, "ORDER", operation+":"+orderID, msg)
}

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
