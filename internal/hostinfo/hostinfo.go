// Package hostinfo contains facts about the host process and platform.
package hostinfo

import (
	"os"
	"runtime"

	"github.com/ooni/minipt/internal/optional"
)

// PID returns the PID of the current process, if known.
func PID() optional.Value[int] {
	if pid := os.Getpid(); pid > 0 {
		return optional.Some(pid)
	}
	return optional.None[int]()
}

// IsWindows returns whether goos is a Windows flavour.
func IsWindows(goos string) bool {
	return goos == "windows"
}

// GOOS returns the operating system we are running on.
func GOOS() string {
	return runtime.GOOS
}
