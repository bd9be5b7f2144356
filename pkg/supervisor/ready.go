package supervisor

import (
	"context"
	"fmt"
	"net"
	"time"
)

// DefaultPollInterval is how often we check whether a helper is ready.
const DefaultPollInterval = 100 * time.Millisecond

// WaitListening waits until addr accepts TCP connections or ctx is done.
// An addr with port zero cannot be probed and fails with [ErrNotReady].
func WaitListening(ctx context.Context, addr string, interval time.Duration) error {
	if ephemeralPort(addr) {
		return fmt.Errorf("%w: %s: no port to probe", ErrNotReady, addr)
	}
	return poll(ctx, interval, func() (string, error) {
		return addr, nil
	})
}

// WaitReady waits until the helper accepts connections on [Process.Addr].
// It fails early with [ErrExited] if the helper exits, and with
// [ErrNotReady] if the helper was asked to bind port zero and its
// transport cannot report the port it chose.
func (p *Process) WaitReady(ctx context.Context, interval time.Duration) error {
	return poll(ctx, interval, func() (string, error) {
		if !p.IsRunning() {
			return "", fmt.Errorf("%w: %s", ErrExited, p.Name())
		}
		addr := p.Addr()
		if !p.reportsAddr && ephemeralPort(addr) {
			return "", fmt.Errorf("%w: %s: %s does not report its port", ErrNotReady, addr, p.Name())
		}
		return addr, nil
	})
}

// ephemeralPort tells whether addr asks the kernel to pick the port.
func ephemeralPort(addr string) bool {
	_, port, err := net.SplitHostPort(addr)
	return err == nil && port == "0"
}

func poll(ctx context.Context, interval time.Duration, next func() (string, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	dialer := &net.Dialer{Timeout: interval}
	for {
		addr, err := next()
		if err != nil {
			return err
		}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			conn.Close()
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %s", ErrNotReady, addr, ctx.Err())
		case <-ticker.C:
		}
	}
}
