package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadRole is returned when parsing an unknown role.
var ErrBadRole = errors.New("unknown transport role")

// TransportRole selects which side of the pluggable transport we run.
type TransportRole int

const (
	// RoleClient runs the helper as the censored-side client.
	RoleClient = TransportRole(iota)

	// RoleServer runs the helper as the uncensored-side server.
	RoleServer
)

// String maps a [TransportRole] to the value the helpers expect for -role.
func (r TransportRole) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleServer:
		return "server"
	default:
		return "invalid"
	}
}

// ParseRole parses "client" or "server".
func ParseRole(s string) (TransportRole, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "client":
		return RoleClient, nil
	case "server":
		return RoleServer, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrBadRole, s)
	}
}
