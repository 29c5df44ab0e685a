// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLogger_LevelsWritten(t *testing.T) {
	var out syncBuffer
	l := New(&out)
	defer l.Close()

	l.Printf("hello %s", "world")
	l.Warnf("careful")
	l.Errorf("broken: %d", 7)

	got := out.String()
	for _, want := range []string{"[INFO] hello world", "[WARN] careful", "[ERROR] broken: 7"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected output to contain %q, got %q", want, got)
		}
	}
}

func TestLogger_SubscribeReceivesLines(t *testing.T) {
	var out syncBuffer
	l := New(&out)
	defer l.Close()

	ch := l.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe returned nil channel")
	}
	defer l.Unsubscribe(ch)

	l.Printf("streamed line")

	select {
	case line := <-ch:
		if !strings.Contains(line, "[INFO] streamed line") {
			t.Errorf("unexpected line %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func TestLogger_ClosedLoggerDropsMessages(t *testing.T) {
	var out syncBuffer
	l := New(&out)
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	l.Printf("after close")
	if strings.Contains(out.String(), "after close") {
		t.Error("closed logger should not write")
	}
	if ch := l.Subscribe(); ch != nil {
		t.Error("closed logger should refuse subscribers")
	}
}

func TestNewLogger_AppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatch.log")
	l, err := NewLogger(path)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	l.Printf("to file")
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), "[INFO] to file") {
		t.Errorf("log file missing line, got %q", string(data))
	}
}

func TestGetDefault_ReplacesClosedLogger(t *testing.T) {
	var out syncBuffer
	l := New(&out)
	SetDefault(l)
	l.Close()

	if GetDefault() == l {
		t.Error("expected a fresh default logger after close")
	}
}
