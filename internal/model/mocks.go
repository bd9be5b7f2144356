package model

import (
	"fmt"
	"strings"
	"sync"
)

// TestLogger is a [Logger] that collects lines. It is safe to use from
// multiple goroutines, since process output is logged asynchronously.
type TestLogger struct {
	mu    sync.Mutex
	lines []string
}

var _ Logger = &TestLogger{}

func (tl *TestLogger) append(msg string) {
	tl.mu.Lock()
	tl.lines = append(tl.lines, msg)
	tl.mu.Unlock()
}

func (tl *TestLogger) Debug(msg string) {
	tl.append(msg)
}
func (tl *TestLogger) Debugf(format string, v ...any) {
	tl.append(fmt.Sprintf(format, v...))
}
func (tl *TestLogger) Info(msg string) {
	tl.append(msg)
}
func (tl *TestLogger) Infof(format string, v ...any) {
	tl.append(fmt.Sprintf(format, v...))
}
func (tl *TestLogger) Warn(msg string) {
	tl.append(msg)
}
func (tl *TestLogger) Warnf(format string, v ...any) {
	tl.append(fmt.Sprintf(format, v...))
}

// Lines returns a copy of the collected lines.
func (tl *TestLogger) Lines() []string {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	out := make([]string, len(tl.lines))
	copy(out, tl.lines)
	return out
}

// Contains returns whether any collected line contains substr.
func (tl *TestLogger) Contains(substr string) bool {
	for _, line := range tl.Lines() {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func NewTestLogger() *TestLogger {
	return &TestLogger{
		lines: make([]string, 0),
	}
}

// StaticInstanceID is an [InstanceIDProvider] returning a fixed value.
type StaticInstanceID string

// InstanceID implements InstanceIDProvider.
func (s StaticInstanceID) InstanceID() (string, error) {
	return string(s), nil
}
