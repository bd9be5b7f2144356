package main

import (
	"fmt"
	"io"
	"time"

	"github.com/apex/log"
)

var startTime = time.Now()

// logHandler writes log entries prefixed by the elapsed time.
type logHandler struct {
	io.Writer
}

// HandleLog implements log.Handler.
func (h *logHandler) HandleLog(e *log.Entry) (err error) {
	var s string
	switch e.Level {
	case log.DebugLevel:
		s = e.Message
	case log.ErrorLevel:
		s = fmt.Sprintf("[%14.6f] <!err> %s", time.Since(startTime).Seconds(), e.Message)
	default:
		s = fmt.Sprintf("[%14.6f] <%s> %s", time.Since(startTime).Seconds(), e.Level, e.Message)
	}
	if len(e.Fields) > 0 {
		s += fmt.Sprintf(": %+v", e.Fields)
	}
	_, err = fmt.Fprintln(h.Writer, s)
	return
}
