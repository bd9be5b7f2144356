package transport

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"

	"gitlab.com/yawning/obfs4.git/transports/obfs4"

	"github.com/ooni/minipt/pkg/config"
)

const (
	// Obfs4Name is the name of the obfs4 transport.
	Obfs4Name = "obfs4"

	// KeyCert is the obfs4 server certificate (node id and public key).
	KeyCert = "cert"

	// KeyIATMode is the obfs4 inter-arrival time obfuscation mode.
	KeyIATMode = "iat-mode"

	// defaultIATMode disables inter-arrival time obfuscation on servers.
	defaultIATMode = "0"
)

// Obfs4 runs obfs4proxy as a managed Tor pluggable transport. The helper
// is configured through TOR_PT_* environment variables and prints the
// address it listens on, which callers obtain through [AddrReporter].
//
// Clients pass the bridge arguments (cert, iat-mode) to the helper's
// SOCKS listener for each connection, using [Args.String]. We nonetheless
// validate them before spawning, so configuration errors surface early.
//
// The zero value is invalid; use [NewObfs4].
type Obfs4 struct {
	cfg  *config.Config
	args Args
}

var (
	_ Descriptor   = &Obfs4{}
	_ AddrReporter = &Obfs4{}
)

// NewObfs4 creates a new [Obfs4].
func NewObfs4(cfg *config.Config, args Args) *Obfs4 {
	return &Obfs4{cfg: cfg, args: args}
}

// Name implements Descriptor.
func (o *Obfs4) Name() string {
	return Obfs4Name
}

// Executable implements Descriptor.
func (o *Obfs4) Executable() Executable {
	return Executable{
		Dir:     filepath.Join("pt", "obfs4"),
		Posix:   "obfs4proxy",
		Windows: "obfs4proxy.exe",
	}
}

// ConfigDir implements Descriptor.
func (o *Obfs4) ConfigDir() string {
	return filepath.Join(o.cfg.ConfigRoot(), o.Executable().Dir)
}

// managedEnv returns the environment shared by both roles. Closing the
// helper's stdin makes it exit, which is how obfs4proxy implements the
// parent watchdog.
func (o *Obfs4) managedEnv() []string {
	return []string{
		"TOR_PT_MANAGED_TRANSPORT_VER=1",
		"TOR_PT_STATE_LOCATION=" + o.ConfigDir(),
		"TOR_PT_EXIT_ON_STDIN_CLOSE=1",
	}
}

func (o *Obfs4) argv() []string {
	return []string{"-enableLogging", "-logLevel", "INFO"}
}

// ClientCommand implements Descriptor. The helper picks its own SOCKS
// port, so params.Listen is only used as a placeholder until the helper
// reports its address. When params.Proxy is set, the helper connects
// through that SOCKS5 proxy.
func (o *Obfs4) ClientCommand(ctx context.Context, params ClientParams) (*Command, error) {
	if err := o.validateClientArgs(); err != nil {
		return nil, err
	}
	env := append(o.managedEnv(), "TOR_PT_CLIENT_TRANSPORTS="+Obfs4Name)
	if !params.Proxy.IsZero() {
		env = append(env, "TOR_PT_PROXY=socks5://"+params.Proxy.String())
	}
	return &Command{Args: o.argv(), Env: env}, nil
}

// validateClientArgs checks the bridge arguments using obfs4's own parser.
func (o *Obfs4) validateClientArgs() error {
	if _, err := o.args.require(KeyCert, KeyIATMode); err != nil {
		return fmt.Errorf("obfs4 client: %w", err)
	}
	cf, err := (&obfs4.Transport{}).ClientFactory(o.ConfigDir())
	if err != nil {
		return fmt.Errorf("obfs4 client: %w", err)
	}
	ptArgs := o.args.ptArgs()
	if _, err := cf.ParseArgs(&ptArgs); err != nil {
		return fmt.Errorf("%w: obfs4 client: %s", ErrBadConfig, err)
	}
	return nil
}

// ServerCommand implements Descriptor. The helper listens on all the
// interfaces at params.ListenPort and forwards to params.Forward.
func (o *Obfs4) ServerCommand(ctx context.Context, params ServerParams) (*Command, error) {
	if params.Forward.IsZero() {
		return nil, fmt.Errorf("obfs4 server: %w: forward address", ErrMissingConfig)
	}
	env := append(o.managedEnv(),
		"TOR_PT_SERVER_TRANSPORTS="+Obfs4Name,
		"TOR_PT_SERVER_BINDADDR="+Obfs4Name+"-"+net.JoinHostPort("0.0.0.0", strconv.Itoa(params.ListenPort)),
		"TOR_PT_ORPORT="+params.Forward.String(),
	)
	mode := o.args.lookup(KeyIATMode).UnwrapOr(defaultIATMode)
	if n, err := strconv.Atoi(mode); err != nil || n < 0 || n > 2 {
		return nil, fmt.Errorf("%w: obfs4 server: iat-mode %q", ErrBadConfig, mode)
	}
	env = append(env, "TOR_PT_SERVER_TRANSPORT_OPTIONS="+Obfs4Name+":"+KeyIATMode+"="+mode)
	return &Command{Args: o.argv(), Env: env}, nil
}

// ReportedAddr implements AddrReporter. It recognizes the CMETHOD and
// SMETHOD lines of the managed transport protocol.
func (o *Obfs4) ReportedAddr(line string) (string, bool) {
	fields := strings.Fields(line)
	switch {
	case len(fields) >= 4 && fields[0] == "CMETHOD" && fields[1] == Obfs4Name:
		return fields[3], true
	case len(fields) >= 3 && fields[0] == "SMETHOD" && fields[1] == Obfs4Name:
		return fields[2], true
	default:
		return "", false
	}
}

// SuppliesEncryption implements Descriptor.
func (o *Obfs4) SuppliesEncryption() bool {
	return true
}

// LocalCACert implements Descriptor. obfs4 authenticates servers using
// the cert argument, so there is no root CA.
func (o *Obfs4) LocalCACert() ([]byte, error) {
	return nil, ErrNoTrustMaterial
}
