package model

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// ErrBadEndpoint is returned when an endpoint cannot be parsed.
var ErrBadEndpoint = errors.New("bad endpoint")

// Endpoint is a (host, port) pair. We use it both for the address the
// helper must listen on and for the address traffic is forwarded to.
type Endpoint struct {
	// Host is an IP address or a hostname. It may be empty, meaning
	// all the interfaces.
	Host string

	// Port is the TCP port.
	Port int
}

// NewEndpoint creates an [Endpoint].
func NewEndpoint(host string, port int) Endpoint {
	return Endpoint{Host: host, Port: port}
}

// ParseEndpoint parses a host:port string.
func ParseEndpoint(s string) (Endpoint, error) {
	host, sport, err := net.SplitHostPort(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %s", ErrBadEndpoint, err)
	}
	port, err := strconv.Atoi(sport)
	if err != nil || port < 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("%w: invalid port %q", ErrBadEndpoint, sport)
	}
	return Endpoint{Host: host, Port: port}, nil
}

// IsZero returns whether this is the zero value.
func (e Endpoint) IsZero() bool {
	return e.Host == "" && e.Port == 0
}

// String returns the endpoint in host:port form.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}
