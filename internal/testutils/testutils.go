// Package testutils provides simplified testing utilities and helper functions
package testutils

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// DefaultTimeout bounds every blocking call made from a test
const DefaultTimeout = 5 * time.Second

// Context returns a context that is cancelled when the test ends or after
// DefaultTimeout, whichever comes first
func Context(t testing.TB) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	t.Cleanup(cancel)
	return ctx
}

// SafeBuffer is an io.Writer that can be written by many goroutines and read
// by the test at the same time
type SafeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write implements io.Writer
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything written so far
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Lines returns the non-empty lines written so far
func (b *SafeBuffer) Lines() []string {
	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// CountContaining counts lines containing every one of the given substrings
func (b *SafeBuffer) CountContaining(substrs ...string) int {
	n := 0
	for _, line := range b.Lines() {
		if containsAll(line, substrs) {
			n++
		}
	}
	return n
}

func containsAll(line string, substrs []string) bool {
	for _, s := range substrs {
		if !strings.Contains(line, s) {
			return false
		}
	}
	return true
}
