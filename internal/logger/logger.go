// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// Logger writes leveled lines to stdout (and optionally a file) and fans every
// line out to live subscribers such as the log stream endpoints.
type Logger struct {
	file        *os.File
	logger      *log.Logger
	broadcast   chan string
	subscribers map[chan string]bool
	subMu       sync.RWMutex
	mu          sync.RWMutex
	closed      bool
}

var (
	defaultLogger *Logger
	defaultMu     sync.Mutex
)

// Init opens logFile and installs the result as the default logger.
// An empty logFile logs to stdout only.
func Init(logFile string) (*Logger, error) {
	l, err := NewLogger(logFile)
	if err != nil {
		return nil, err
	}
	SetDefault(l)
	return l, nil
}

// NewLogger creates a logger writing to stdout and, when logFile is set, appending to it.
func NewLogger(logFile string) (*Logger, error) {
	if logFile == "" {
		return New(os.Stdout), nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := New(io.MultiWriter(os.Stdout, file))
	l.file = file
	return l, nil
}

// New creates a logger writing to w.
func New(w io.Writer) *Logger {
	l := &Logger{
		logger:      log.New(w, "", log.LstdFlags),
		broadcast:   make(chan string, 100),
		subscribers: make(map[chan string]bool),
	}
	go l.broadcastLoop()
	return l
}

// SetDefault replaces the logger used by the package-level helpers.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// GetDefault returns the default logger, falling back to a stdout logger when
// none was installed or the installed one was closed.
func GetDefault() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultLogger == nil || defaultLogger.isClosed() {
		defaultLogger = New(os.Stdout)
	}
	return defaultLogger
}

func (l *Logger) isClosed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.closed
}

// Subscribe registers a new subscriber channel. It returns nil when the logger is closed.
func (l *Logger) Subscribe() chan string {
	if l == nil || l.isClosed() {
		return nil
	}

	ch := make(chan string, 10)
	l.subMu.Lock()
	l.subscribers[ch] = true
	l.subMu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (l *Logger) Unsubscribe(ch chan string) {
	if ch == nil {
		return
	}

	l.subMu.Lock()
	defer l.subMu.Unlock()

	if l.subscribers[ch] {
		delete(l.subscribers, ch)
		close(ch)
	}
}

func (l *Logger) broadcastLoop() {
	defer func() {
		l.subMu.Lock()
		for ch := range l.subscribers {
			close(ch)
		}
		l.subscribers = make(map[chan string]bool)
		l.subMu.Unlock()
	}()

	for line := range l.broadcast {
		l.subMu.RLock()
		for ch := range l.subscribers {
			// Slow subscribers drop lines rather than stall logging.
			select {
			case ch <- line:
			default:
			}
		}
		l.subMu.RUnlock()
	}
}

func (l *Logger) logMessage(level, format string, v ...interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return
	}

	line := fmt.Sprintf("[%s] %s", level, fmt.Sprintf(format, v...))
	l.logger.Output(3, line)

	select {
	case l.broadcast <- time.Now().Format("2006-01-02 15:04:05") + " " + line:
	default:
	}
}

// Printf logs a message at INFO level
func (l *Logger) Printf(format string, v ...interface{}) {
	l.logMessage("INFO", format, v...)
}

// Errorf logs a message at ERROR level
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.logMessage("ERROR", format, v...)
}

// Warnf logs a message at WARN level
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.logMessage("WARN", format, v...)
}

// Debugf logs a message at DEBUG level
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.logMessage("DEBUG", format, v...)
}

// Fatalf logs a message at FATAL level and exits
func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.logMessage("FATAL", format, v...)
	os.Exit(1)
}

// Close stops broadcasting and closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true
	close(l.broadcast)

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Package-level convenience functions
func Printf(format string, v ...interface{}) {
	GetDefault().Printf(format, v...)
}

func Errorf(format string, v ...interface{}) {
	GetDefault().Errorf(format, v...)
}

func Warnf(format string, v ...interface{}) {
	GetDefault().Warnf(format, v...)
}

func Debugf(format string, v ...interface{}) {
	GetDefault().Debugf(format, v...)
}

func Fatalf(format string, v ...interface{}) {
	GetDefault().Fatalf(format, v...)
}
