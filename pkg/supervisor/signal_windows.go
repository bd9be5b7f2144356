//go:build windows

package supervisor

import (
	"errors"
	"os"
)

// terminate is not supported on Windows, where we cannot deliver signals
// to other processes. Helpers running there either watch their parent PID
// or exit when stdin is closed; otherwise we kill them after the grace period.
func terminate(p *os.Process) error {
	return errors.New("graceful termination not supported on windows")
}
