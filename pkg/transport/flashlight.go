package transport

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/ooni/minipt/pkg/config"
)

const (
	// FlashlightName is the name of the flashlight transport.
	FlashlightName = "flashlight"

	// KeyServer is the server network identity.
	KeyServer = "server"

	// KeyMasquerade is the decoy host clients pretend to talk to.
	KeyMasquerade = "masquerade"

	// KeyRootCA is the optional root CA the client passes to the helper.
	KeyRootCA = "rootca"

	// StatsAddr is where a flashlight server exposes its statistics.
	StatsAddr = "127.0.0.1:15670"

	// caCertFile is the root CA file name inside the config dir.
	caCertFile = "cacert.pem"
)

// Flashlight runs a standalone flashlight process, which masquerades
// proxy traffic as HTTPS traffic towards a decoy host.
//
// The zero value is invalid; use [NewFlashlight].
type Flashlight struct {
	cfg    *config.Config
	args   Args
	cacert *trustStore
}

var _ Descriptor = &Flashlight{}

// NewFlashlight creates a new [Flashlight].
func NewFlashlight(cfg *config.Config, args Args) *Flashlight {
	f := &Flashlight{
		cfg:  cfg,
		args: args,
	}
	f.cacert = newTrustStore(filepath.Join(f.ConfigDir(), caCertFile))
	return f
}

// Name implements Descriptor.
func (f *Flashlight) Name() string {
	return FlashlightName
}

// Executable implements Descriptor.
func (f *Flashlight) Executable() Executable {
	return Executable{
		Dir:     filepath.Join("pt", "flashlight"),
		Posix:   "flashlight",
		Windows: "flashlight.exe",
	}
}

// ConfigDir implements Descriptor.
func (f *Flashlight) ConfigDir() string {
	return filepath.Join(f.cfg.ConfigRoot(), f.Executable().Dir)
}

// ClientCommand implements Descriptor. The relay and proxy addresses
// are not used by flashlight.
func (f *Flashlight) ClientCommand(ctx context.Context, params ClientParams) (*Command, error) {
	values, err := f.args.require(KeyServer, KeyMasquerade)
	if err != nil {
		return nil, fmt.Errorf("flashlight client: %w", err)
	}
	argv := []string{
		"-role", "client",
		"-server", values[0],
		"-masquerade", values[1],
	}
	if rootCA := f.args.lookup(KeyRootCA); !rootCA.IsNone() {
		argv = append(argv, "-rootca", rootCA.Unwrap())
	}
	argv = append(argv,
		"-configdir", f.ConfigDir(),
		"-addr", params.Listen.String(),
	)
	argv = appendParentPID(argv, f.cfg.HostPID())
	return &Command{Args: argv}, nil
}

// ServerCommand implements Descriptor. It blocks while resolving our
// public IP and its country, which is bounded by the configured geo
// timeout. The IP and forward address are not used by flashlight.
func (f *Flashlight) ServerCommand(ctx context.Context, params ServerParams) (*Command, error) {
	values, err := f.args.require(KeyServer)
	if err != nil {
		return nil, fmt.Errorf("flashlight server: %w", err)
	}
	instanceID, err := f.cfg.InstanceIDProvider().InstanceID()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInstanceID, err)
	}
	country, err := f.country(ctx)
	if err != nil {
		return nil, err
	}
	argv := []string{
		"-role", "server",
		"-server", values[0],
		"-configdir", f.ConfigDir(),
		"-addr", ":" + strconv.Itoa(params.ListenPort),
		"-instanceid", instanceID,
		"-country", country,
		"-statsaddr", StatsAddr,
	}
	argv = appendParentPID(argv, f.cfg.HostPID())
	return &Command{Args: argv}, nil
}

func (f *Flashlight) country(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.GeoTimeout())
	defer cancel()
	country, err := f.cfg.Locator().Country(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCountry, err)
	}
	return country, nil
}

// SuppliesEncryption implements Descriptor.
func (f *Flashlight) SuppliesEncryption() bool {
	return true
}

// LocalCACert implements Descriptor. It reads <configdir>/cacert.pem the
// first time it is called and fails if the file is missing or invalid.
func (f *Flashlight) LocalCACert() ([]byte, error) {
	return f.cacert.Load()
}
