// Package supervisor runs pluggable transport helpers as child processes.
//
// A [Supervisor] is transport-agnostic: it asks a [transport.Descriptor]
// for the command line, resolves the helper binary, spawns it and returns
// a [Process] as soon as the OS has created the process. It does not wait
// for the helper to bind its listener; use [Process.WaitReady] for that.
//
// Each [Process] is owned by whoever started it. Use [Manager] to track
// several helpers and to tear them all down on shutdown.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ooni/minipt/internal/hostinfo"
	"github.com/ooni/minipt/internal/model"
	"github.com/ooni/minipt/internal/runtimex"
	"github.com/ooni/minipt/pkg/config"
	"github.com/ooni/minipt/pkg/transport"
)

var (
	// ErrExecutableNotFound means we cannot find the helper binary.
	ErrExecutableNotFound = errors.New("supervisor: executable not found")

	// ErrSpawn means the OS failed to create the helper process.
	ErrSpawn = errors.New("supervisor: cannot spawn process")

	// ErrKill means we could not kill a helper that ignored termination.
	ErrKill = errors.New("supervisor: cannot kill process")

	// ErrExited means the helper exited while we were waiting for it.
	ErrExited = errors.New("supervisor: process exited")

	// ErrNotReady means the helper did not accept connections in time.
	ErrNotReady = errors.New("supervisor: process not ready")
)

// Supervisor starts helpers for a given transport.
//
// The zero value is invalid; use [New].
type Supervisor struct {
	cfg        *config.Config
	descriptor transport.Descriptor
	logger     model.Logger

	// goos selects the binary name.
	goos string

	// lookPath searches the binary in the PATH.
	lookPath func(file string) (string, error)
}

// New creates a [Supervisor] for the given transport.
func New(cfg *config.Config, descriptor transport.Descriptor) *Supervisor {
	runtimex.PanicIfTrue(cfg == nil, "nil config")
	runtimex.PanicIfNil(descriptor, "nil descriptor")
	return &Supervisor{
		cfg:        cfg,
		descriptor: descriptor,
		logger:     cfg.Logger(),
		goos:       hostinfo.GOOS(),
		lookPath:   exec.LookPath,
	}
}

// Descriptor returns the transport this supervisor runs.
func (s *Supervisor) Descriptor() transport.Descriptor {
	return s.descriptor
}

// Executable returns the path of the helper binary. We look inside the
// transport directory below the config root first, then in the PATH.
func (s *Supervisor) Executable() (string, error) {
	exe := s.descriptor.Executable()
	name := exe.NameFor(s.goos)
	candidate := filepath.Join(s.cfg.ConfigRoot(), exe.Dir, name)
	if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
		return candidate, nil
	}
	if path, err := s.lookPath(name); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("%w: %s is neither in %s nor in PATH",
		ErrExecutableNotFound, name, filepath.Dir(candidate))
}

// Start starts the helper in the given role. For clients, listen is the
// local address to accept connections on and forward is the local proxy
// the helper should use, if any. For servers, listen selects the port to
// expose and forward is where to send deobfuscated traffic, if needed.
//
// Start blocks while building the command, which for servers includes
// a bounded country lookup, and returns once the process exists.
func (s *Supervisor) Start(ctx context.Context, role model.TransportRole,
	listen, forward model.Endpoint) (*Process, error) {
	command, err := s.command(ctx, role, listen, forward)
	if err != nil {
		return nil, err
	}
	path, err := s.Executable()
	if err != nil {
		return nil, err
	}
	return s.spawn(path, command, listen)
}

// command delegates all the role specific logic to the descriptor.
func (s *Supervisor) command(ctx context.Context, role model.TransportRole,
	listen, forward model.Endpoint) (*transport.Command, error) {
	switch role {
	case model.RoleClient:
		return s.descriptor.ClientCommand(ctx, transport.ClientParams{
			Listen: listen,
			Proxy:  forward,
		})
	case model.RoleServer:
		return s.descriptor.ServerCommand(ctx, transport.ServerParams{
			IP:         listen.Host,
			ListenPort: listen.Port,
			Forward:    forward,
		})
	default:
		return nil, fmt.Errorf("%w: %d", model.ErrBadRole, role)
	}
}

func (s *Supervisor) spawn(path string, command *transport.Command, listen model.Endpoint) (*Process, error) {
	name := s.descriptor.Name()
	cmd := exec.Command(path, command.Args...)
	cmd.Env = append(os.Environ(), command.Env...)
	cmd.WaitDelay = s.cfg.GracePeriod()

	// we keep stdin open for the lifetime of the helper: some helpers
	// exit when it is closed, which we use when stopping them
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSpawn, err)
	}

	p := newProcess(name, cmd, stdin, listen.String(), s.cfg)
	reporter, _ := s.descriptor.(transport.AddrReporter)
	p.reportsAddr = reporter != nil
	cmd.Stdout = newLineWriter(func(line string) {
		s.logger.Debugf("%s: %s", name, line)
		if reporter == nil {
			return
		}
		if addr, found := reporter.ReportedAddr(line); found {
			p.setAddr(addr)
		}
	})
	cmd.Stderr = newLineWriter(func(line string) {
		s.logger.Debugf("%s: %s", name, line)
	})

	s.logger.Debugf("supervisor: exec %s %v", path, command.Args)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrSpawn, path, err)
	}
	s.logger.Infof("supervisor: started %s (pid %d)", name, cmd.Process.Pid)
	go p.wait()
	return p, nil
}

// Stop stops the given process. It is a no-op if p is nil or if
// the process is not running.
func (s *Supervisor) Stop(ctx context.Context, p *Process) error {
	return p.Stop(ctx)
}

// IsRunning returns whether the given process is alive.
func (s *Supervisor) IsRunning(p *Process) bool {
	return p.IsRunning()
}
