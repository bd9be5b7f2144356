package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ooni/minipt/internal/model"
)

func TestManager(t *testing.T) {
	skipIfWindows(t)

	t.Run("StopAll stops every process", func(t *testing.T) {
		logger := model.NewTestLogger()
		s := newTestSupervisor(t, &fakeDescriptor{mode: "serve"}, logger, 5*time.Second)
		m := NewManager(logger)
		var procs []*Process
		for _, key := range []string{"client-a", "client-b"} {
			p, err := m.Start(context.Background(), key, s, model.RoleClient, loopback(), model.Endpoint{})
			if err != nil {
				t.Fatal(err)
			}
			procs = append(procs, p)
		}
		if p, found := m.Get("client-a"); !found || p != procs[0] {
			t.Fatal("expected to find client-a")
		}
		if err := m.StopAll(context.Background()); err != nil {
			t.Fatal(err)
		}
		for _, p := range procs {
			if p.IsRunning() {
				t.Errorf("expected pid %d to be stopped", p.PID())
			}
		}
		select {
		case <-m.ShouldShutdown():
		default:
			t.Fatal("expected shutdown to be signalled")
		}
		if _, found := m.Get("client-a"); found {
			t.Error("expected processes to be forgotten")
		}
	})

	t.Run("Start after shutdown fails without spawning", func(t *testing.T) {
		logger := model.NewTestLogger()
		s := newTestSupervisor(t, &fakeDescriptor{mode: "serve"}, logger, 5*time.Second)
		m := NewManager(logger)
		if err := m.StopAll(context.Background()); err != nil {
			t.Fatal(err)
		}
		p, err := m.Start(context.Background(), "late", s, model.RoleClient, loopback(), model.Endpoint{})
		if !errors.Is(err, ErrShutdown) || p != nil {
			t.Fatalf("expected ErrShutdown, got %v", err)
		}
	})

	t.Run("a process registered during shutdown is stopped", func(t *testing.T) {
		logger := model.NewTestLogger()
		s := newTestSupervisor(t, &fakeDescriptor{mode: "serve"}, logger, 5*time.Second)
		m := NewManager(logger)
		p, err := s.Start(context.Background(), model.RoleClient, loopback(), model.Endpoint{})
		if err != nil {
			t.Fatal(err)
		}
		defer p.Stop(context.Background())
		m.StopAll(context.Background())
		if err := m.register("in-flight", p); !errors.Is(err, ErrShutdown) {
			t.Fatalf("expected ErrShutdown, got %v", err)
		}
	})

	t.Run("duplicate keys are rejected", func(t *testing.T) {
		logger := model.NewTestLogger()
		s := newTestSupervisor(t, &fakeDescriptor{mode: "serve"}, logger, 5*time.Second)
		m := NewManager(logger)
		defer m.StopAll(context.Background())
		if _, err := m.Start(context.Background(), "dup", s, model.RoleClient, loopback(), model.Endpoint{}); err != nil {
			t.Fatal(err)
		}
		p, err := m.Start(context.Background(), "dup", s, model.RoleClient, loopback(), model.Endpoint{})
		if !errors.Is(err, ErrAlreadyRunning) || p != nil {
			t.Fatalf("expected ErrAlreadyRunning, got %v", err)
		}
	})

	t.Run("Stop of an unknown key is a no-op", func(t *testing.T) {
		m := NewManager(model.NewTestLogger())
		if err := m.Stop(context.Background(), "nope"); err != nil {
			t.Fatal(err)
		}
	})
}
