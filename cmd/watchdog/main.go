// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

var (
	logFile = flag.String("log", "dispatch-server.log", "Server log file to watch")
	expect  = flag.Int("expect", 1, "Handler lines to see before reporting success")
	timeout = flag.Duration("timeout", 30*time.Second, "Give up after this long")
)

const (
	successMsg = " Payload "
	failureMsg = "[ERROR]"
)

func main() {
	flag.Parse()
	os.Exit(run(*logFile, *expect, *timeout))
}

// run tails path from its current end and returns the process exit code.
func run(path string, expect int, timeout time.Duration) int {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create watcher: %v\n", err)
		return 1
	}
	defer watcher.Close()

	// Watch the directory so the file may be created or rotated after startup.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to watch %s: %v\n", filepath.Dir(path), err)
		return 1
	}

	t := &tail{path: path}
	t.skipToEnd()

	fmt.Printf("🔍 Watchdog monitoring %s for %d handler line(s)...\n", path, expect)
	fmt.Printf("⏱️  Timeout: %v\n", timeout)

	seen := 0
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return 1
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				t.offset = 0
				continue
			}
			for _, line := range t.readNew() {
				if strings.Contains(line, failureMsg) {
					fmt.Printf("❌ FAILURE DETECTED: %s\n", line)
					return 1
				}
				if strings.Contains(line, successMsg) {
					seen++
					if seen >= expect {
						fmt.Printf("✅ SUCCESS: %d handler line(s), last: %s\n", seen, line)
						return 0
					}
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return 1
			}
			fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
		case <-deadline:
			fmt.Printf("⏰ Timeout after %v - saw %d of %d handler line(s)\n", timeout, seen, expect)
			return 1
		}
	}
}

type tail struct {
	path    string
	offset  int64
	partial string
}

func (t *tail) skipToEnd() {
	if info, err := os.Stat(t.path); err == nil {
		t.offset = info.Size()
	}
}

// readNew returns complete lines appended since the last call.
func (t *tail) readNew() []string {
	f, err := os.Open(t.path)
	if err != nil {
		return nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil
	}
	if info.Size() < t.offset {
		// Truncated: start over.
		t.offset = 0
		t.partial = ""
	}
	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return nil
	}

	var lines []string
	reader := bufio.NewReader(f)
	for {
		chunk, err := reader.ReadString('\n')
		t.offset += int64(len(chunk))
		if err != nil {
			t.partial += chunk
			break
		}
		lines = append(lines, strings.TrimRight(t.partial+chunk, "\r\n"))
		t.partial = ""
	}
	return lines
}
