package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apex/log"

	"github.com/ooni/minipt/internal/model"
	"github.com/ooni/minipt/pkg/supervisor"
	"github.com/ooni/minipt/pkg/transport"
)

func newTestLogger(buf *bytes.Buffer) *log.Logger {
	return &log.Logger{Level: log.DebugLevel, Handler: &logHandler{Writer: buf}}
}

func TestLogHandler(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newTestLogger(buf)
	logger.Debug("plain")
	logger.WithField("pid", 42).Info("started")
	logger.Error("bad")
	out := buf.String()
	for _, want := range []string{"plain\n", "<info> started: map[pid:42]", "<!err> bad"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}

func TestVerbosityLevel(t *testing.T) {
	if verbosityLevel(1) != log.FatalLevel || verbosityLevel(4) != log.InfoLevel || verbosityLevel(9) != log.DebugLevel {
		t.Fatal("unexpected level mapping")
	}
}

func TestRunErrors(t *testing.T) {
	base := func() *options {
		return &options{
			transport:  transport.FlashlightName,
			role:       "client",
			listen:     "127.0.0.1:8787",
			configRoot: t.TempDir(),
		}
	}
	tests := []struct {
		name    string
		mutate  func(o *options)
		wantErr error
	}{
		{"bad args", func(o *options) { o.args = "server" }, transport.ErrBadConfig},
		{"bad role", func(o *options) { o.role = "relay" }, model.ErrBadRole},
		{"bad listen", func(o *options) { o.listen = "nope" }, model.ErrBadEndpoint},
		{"bad forward", func(o *options) { o.forward = "nope" }, model.ErrBadEndpoint},
		{"unknown transport", func(o *options) { o.transport = "meek" }, transport.ErrUnknownTransport},
		{"missing client config", func(o *options) {}, transport.ErrMissingConfig},
		{"missing binary", func(o *options) {
			o.args = "server=s1.example;masquerade=cdn.example.com"
			t.Setenv("PATH", t.TempDir())
		}, supervisor.ErrExecutableNotFound},
		{"missing cacert", func(o *options) { o.printCACert = true }, transport.ErrTrustMaterial},
		{"bridge and args", func(o *options) {
			o.bridge = "obfs4://192.0.2.1:443?cert=abc"
			o.args = "cert=abc"
		}, errBridgeAndArgs},
		{"bad bridge", func(o *options) { o.bridge = "meek://example.com" }, transport.ErrUnknownTransport},
		{"bridge selects the transport", func(o *options) {
			o.transport = "meek"
			o.bridge = "obfs4://192.0.2.1:443?cert=abc&iat-mode=0"
		}, transport.ErrBadConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := base()
			tt.mutate(o)
			err := run(o, newTestLogger(&bytes.Buffer{}))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRunPrintCACert(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "pt", "flashlight")
	os.MkdirAll(dir, 0700)
	// a certificate that is not valid X.509 must be rejected
	os.WriteFile(filepath.Join(dir, "cacert.pem"), []byte("-----BEGIN CERTIFICATE-----\nbm9wZQ==\n-----END CERTIFICATE-----\n"), 0600)
	o := &options{transport: transport.FlashlightName, role: "client", listen: "127.0.0.1:8787", configRoot: root, printCACert: true}
	if err := run(o, newTestLogger(&bytes.Buffer{})); !errors.Is(err, transport.ErrTrustMaterial) {
		t.Fatalf("expected ErrTrustMaterial, got %v", err)
	}
}
