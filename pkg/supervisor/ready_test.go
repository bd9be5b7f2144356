package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/net/nettest"
)

func TestWaitListening(t *testing.T) {
	t.Run("returns once the address accepts connections", func(t *testing.T) {
		ln, err := nettest.NewLocalListener("tcp")
		if err != nil {
			t.Fatal(err)
		}
		defer ln.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := WaitListening(ctx, ln.Addr().String(), 10*time.Millisecond); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("fails when nobody listens", func(t *testing.T) {
		ln, err := nettest.NewLocalListener("tcp")
		if err != nil {
			t.Fatal(err)
		}
		addr := ln.Addr().String()
		ln.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		if err := WaitListening(ctx, addr, 10*time.Millisecond); !errors.Is(err, ErrNotReady) {
			t.Fatalf("expected ErrNotReady, got %v", err)
		}
	})

	t.Run("port zero fails without polling", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := WaitListening(ctx, "127.0.0.1:0", 10*time.Millisecond)
		if !errors.Is(err, ErrNotReady) {
			t.Fatalf("expected ErrNotReady, got %v", err)
		}
		if ctx.Err() != nil {
			t.Fatal("expected to fail before the deadline")
		}
	})
}

func TestEphemeralPort(t *testing.T) {
	for addr, want := range map[string]bool{
		"127.0.0.1:0":    true,
		"[::1]:0":        true,
		":0":             true,
		"127.0.0.1:8787": false,
		"nope":           false,
	} {
		if got := ephemeralPort(addr); got != want {
			t.Errorf("ephemeralPort(%q): expected %v, got %v", addr, want, got)
		}
	}
}

func TestLineWriter(t *testing.T) {
	var lines []string
	w := newLineWriter(func(line string) {
		lines = append(lines, line)
	})
	w.Write([]byte("CMETHOD obfs4 socks5 "))
	w.Write([]byte("127.0.0.1:1\r\nCMETHODS DONE\npartial"))
	w.Flush()
	want := []string{"CMETHOD obfs4 socks5 127.0.0.1:1", "CMETHODS DONE", "partial"}
	if len(lines) != len(want) {
		t.Fatalf("expected %v, got %v", want, lines)
	}
	for idx := range want {
		if lines[idx] != want[idx] {
			t.Errorf("expected %q, got %q", want[idx], lines[idx])
		}
	}
}
