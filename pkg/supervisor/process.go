package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/ooni/minipt/internal/model"
	"github.com/ooni/minipt/pkg/config"
)

// Process is a running helper. A Process only exists after the OS
// created the child process successfully.
//
// The nil *Process is a valid, stopped process.
type Process struct {
	name   string
	cmd    *exec.Cmd
	logger model.Logger
	grace  time.Duration

	// stdin is closed once when stopping.
	stdin     io.Closer
	stdinOnce sync.Once

	// done is closed when the process has exited.
	done chan struct{}

	// reportsAddr is set when the helper output may replace addr.
	reportsAddr bool

	mu   sync.Mutex
	addr string
	err  error
}

func newProcess(name string, cmd *exec.Cmd, stdin io.Closer, addr string, cfg *config.Config) *Process {
	return &Process{
		name:   name,
		cmd:    cmd,
		logger: cfg.Logger(),
		grace:  cfg.GracePeriod(),
		stdin:  stdin,
		done:   make(chan struct{}),
		addr:   addr,
	}
}

// wait reaps the process and must run in its own goroutine.
func (p *Process) wait() {
	err := p.cmd.Wait()
	for _, w := range []io.Writer{p.cmd.Stdout, p.cmd.Stderr} {
		if lw, ok := w.(*lineWriter); ok {
			lw.Flush()
		}
	}
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	if err != nil {
		p.logger.Infof("supervisor: %s (pid %d) exited: %s", p.name, p.PID(), err)
	} else {
		p.logger.Infof("supervisor: %s (pid %d) exited", p.name, p.PID())
	}
	close(p.done)
}

// Name returns the transport name.
func (p *Process) Name() string {
	if p == nil {
		return ""
	}
	return p.name
}

// PID returns the process ID or zero for a nil process.
func (p *Process) PID() int {
	if p == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Addr returns the address the helper listens on. This is the address
// passed to Start, unless the helper reported a different one.
func (p *Process) Addr() string {
	if p == nil {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addr
}

func (p *Process) setAddr(addr string) {
	p.mu.Lock()
	changed := p.addr != addr
	p.addr = addr
	p.mu.Unlock()
	if changed {
		p.logger.Infof("supervisor: %s listens on %s", p.name, addr)
	}
}

var closedChannel = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Done returns a channel closed when the process has exited.
func (p *Process) Done() <-chan struct{} {
	if p == nil {
		return closedChannel
	}
	return p.done
}

// Err returns the result of waiting for the process. It is only
// meaningful after Done has been closed.
func (p *Process) Err() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// IsRunning returns whether the process is alive. It does not block.
func (p *Process) IsRunning() bool {
	if p == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Stop asks the process to terminate and kills it if it is still alive
// after the grace period, or as soon as ctx is done. Stop is idempotent
// and safe to call from several goroutines.
func (p *Process) Stop(ctx context.Context) error {
	if !p.IsRunning() {
		return nil
	}
	p.logger.Infof("supervisor: stopping %s (pid %d)", p.name, p.PID())
	p.stdinOnce.Do(func() {
		p.stdin.Close()
	})
	if err := terminate(p.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Debugf("supervisor: cannot terminate %s gracefully: %s", p.name, err)
	}
	timer := time.NewTimer(p.grace)
	defer timer.Stop()
	select {
	case <-p.done:
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}
	return p.kill()
}

func (p *Process) kill() error {
	p.logger.Warnf("supervisor: killing %s (pid %d)", p.name, p.PID())
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		select {
		case <-p.done:
			return nil
		default:
			return fmt.Errorf("%w: %s (pid %d): %s", ErrKill, p.name, p.PID(), err)
		}
	}
	<-p.done
	return nil
}
