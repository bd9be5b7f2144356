package transport

import (
	"fmt"

	"github.com/ooni/minipt/pkg/config"
)

// Names returns the names of the available transports.
func Names() []string {
	return []string{FlashlightName, Obfs4Name}
}

// New returns the [Descriptor] for the transport with the given name.
func New(name string, cfg *config.Config, args Args) (Descriptor, error) {
	switch name {
	case FlashlightName:
		return NewFlashlight(cfg, args), nil
	case Obfs4Name:
		return NewObfs4(cfg, args), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, name)
	}
}
