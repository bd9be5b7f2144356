package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ooni/minipt/internal/model"
)

var (
	// ErrShutdown is returned when starting a helper after shutdown began.
	ErrShutdown = errors.New("supervisor: shutting down")

	// ErrAlreadyRunning is returned when a key is already in use.
	ErrAlreadyRunning = errors.New("supervisor: already running")
)

// Manager tracks the helpers we are running, by key, and coordinates
// their shutdown. Processes are independent of each other: the manager
// only holds references to them. The zero value is invalid; use [NewManager].
type Manager struct {
	logger model.Logger

	// shouldShutdown is closed to signal shutdown.
	shouldShutdown chan any

	// shutdownOnce ensures we close shouldShutdown once.
	shutdownOnce sync.Once

	mu        sync.Mutex
	processes map[string]*Process
}

// NewManager creates a new manager.
func NewManager(logger model.Logger) *Manager {
	return &Manager{
		logger:         logger,
		shouldShutdown: make(chan any),
		shutdownOnce:   sync.Once{},
		processes:      make(map[string]*Process),
	}
}

// Start starts a helper using s and registers it under key. If StopAll is
// called while Start is in flight, the new helper is stopped as soon as it
// exists and Start returns [ErrShutdown].
func (m *Manager) Start(ctx context.Context, key string, s *Supervisor,
	role model.TransportRole, listen, forward model.Endpoint) (*Process, error) {
	if m.isShuttingDown() {
		return nil, ErrShutdown
	}
	p, err := s.Start(ctx, role, listen, forward)
	if err != nil {
		return nil, err
	}
	if err := m.register(key, p); err != nil {
		if stopErr := p.Stop(context.Background()); stopErr != nil {
			m.logger.Warnf("supervisor: %s", stopErr)
		}
		return nil, err
	}
	return p, nil
}

func (m *Manager) register(key string, p *Process) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isShuttingDown() {
		return ErrShutdown
	}
	if prev, found := m.processes[key]; found && prev.IsRunning() {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, key)
	}
	m.processes[key] = p
	return nil
}

// Get returns the process registered under key.
func (m *Manager) Get(key string) (*Process, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, found := m.processes[key]
	return p, found
}

// Stop stops and forgets the process registered under key. Stopping an
// unknown key is a no-op.
func (m *Manager) Stop(ctx context.Context, key string) error {
	m.mu.Lock()
	p := m.processes[key]
	delete(m.processes, key)
	m.mu.Unlock()
	return p.Stop(ctx)
}

// StopAll initiates shutdown and stops all the processes concurrently.
func (m *Manager) StopAll(ctx context.Context) error {
	m.shutdownOnce.Do(func() {
		close(m.shouldShutdown)
	})
	m.mu.Lock()
	processes := m.processes
	m.processes = make(map[string]*Process)
	m.mu.Unlock()

	var group errgroup.Group
	for _, p := range processes {
		p := p
		group.Go(func() error {
			return p.Stop(ctx)
		})
	}
	return group.Wait()
}

// ShouldShutdown returns the channel closed when shutdown begins.
func (m *Manager) ShouldShutdown() <-chan any {
	return m.shouldShutdown
}

func (m *Manager) isShuttingDown() bool {
	select {
	case <-m.shouldShutdown:
		return true
	default:
		return false
	}
}
