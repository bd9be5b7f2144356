package supervisor

import (
	"bytes"
	"strings"
	"sync"
)

// maxLineLength bounds the output we buffer while waiting for a newline.
const maxLineLength = 4096

// lineWriter is an io.Writer calling onLine for each line written to it.
type lineWriter struct {
	mu     sync.Mutex
	buf    []byte
	onLine func(line string)
}

func newLineWriter(onLine func(line string)) *lineWriter {
	return &lineWriter{onLine: onLine}
}

// Write implements io.Writer.
func (w *lineWriter) Write(data []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, data...)
	for {
		idx := bytes.IndexByte(w.buf, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimRight(string(w.buf[:idx]), "\r")
		w.buf = w.buf[idx+1:]
		w.onLine(line)
	}
	if len(w.buf) >= maxLineLength {
		w.onLine(string(w.buf))
		w.buf = nil
	}
	return len(data), nil
}

// Flush emits any buffered partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.onLine(string(w.buf))
		w.buf = nil
	}
}
