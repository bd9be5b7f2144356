package transport

import (
	"context"
	"strconv"

	"github.com/ooni/minipt/internal/hostinfo"
	"github.com/ooni/minipt/internal/model"
	"github.com/ooni/minipt/internal/optional"
)

// Descriptor describes a kind of pluggable transport.
type Descriptor interface {
	// Name returns the transport name (e.g., "flashlight").
	Name() string

	// Executable returns where the helper binary lives.
	Executable() Executable

	// ConfigDir returns the directory holding the helper's binary and state.
	ConfigDir() string

	// ClientCommand builds the command for running the helper as a client.
	ClientCommand(ctx context.Context, params ClientParams) (*Command, error)

	// ServerCommand builds the command for running the helper as a server.
	ServerCommand(ctx context.Context, params ServerParams) (*Command, error)

	// SuppliesEncryption returns whether the transport encrypts traffic
	// itself, in which case callers must not wrap connections in TLS.
	SuppliesEncryption() bool

	// LocalCACert returns the PEM encoded root CA that clients must trust.
	LocalCACert() ([]byte, error)
}

// AddrReporter is optionally implemented by descriptors whose helper
// chooses its own listening address and prints it on the standard output.
type AddrReporter interface {
	// ReportedAddr parses a line of output and returns the address
	// the helper is listening on, if the line carries it.
	ReportedAddr(line string) (string, bool)
}

// Executable tells where a helper binary lives.
type Executable struct {
	// Dir is the directory containing the binary, relative to the
	// config root (e.g., "pt/flashlight").
	Dir string

	// Posix is the binary name on Unix-like systems.
	Posix string

	// Windows is the binary name on Windows.
	Windows string
}

// NameFor returns the binary name for the given GOOS.
func (e Executable) NameFor(goos string) string {
	if hostinfo.IsWindows(goos) {
		return e.Windows
	}
	return e.Posix
}

// Command is the command line and the additional environment
// variables with which to run a helper.
type Command struct {
	// Args does not include the program name.
	Args []string

	// Env contains KEY=VALUE entries to add to our own environment.
	Env []string
}

// ClientParams contains the addresses relevant to the client role.
type ClientParams struct {
	// Listen is where the helper accepts local connections.
	Listen model.Endpoint

	// Relay is where the helper relays traffic, if applicable.
	Relay model.Endpoint

	// Proxy is the local upstream proxy, if applicable.
	Proxy model.Endpoint
}

// ServerParams contains the addresses relevant to the server role.
type ServerParams struct {
	// IP is the address we have been told to listen on.
	IP string

	// ListenPort is the port on which the obfuscated listener is exposed.
	ListenPort int

	// Forward is where to send deobfuscated traffic, if applicable.
	Forward model.Endpoint
}

// appendParentPID appends the watchdog argument when the PID is known,
// so that the helper can exit if we die without stopping it.
func appendParentPID(argv []string, pid optional.Value[int]) []string {
	if pid.IsNone() {
		return argv
	}
	return append(argv, "-parentpid", strconv.Itoa(pid.Unwrap()))
}
