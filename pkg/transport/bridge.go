package transport

import (
	"fmt"
	"net/url"
)

// Bridge is a transport reference written as a URL, where the scheme
// names the transport and the query carries its [Args]. For example:
//
//	obfs4://192.0.2.1:443?cert=...&iat-mode=0
//	flashlight://?server=s1.example&masquerade=cdn.example.com
type Bridge struct {
	// Name is the transport name.
	Name string

	// Addr is the remote host:port, which may be empty.
	Addr string

	// Args contains the transport arguments.
	Args Args
}

// ParseBridge parses a bridge URL. Unknown schemes wrap [ErrUnknownTransport]
// and malformed URLs wrap [ErrBadConfig].
func ParseBridge(s string) (*Bridge, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: bridge: %s", ErrBadConfig, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: bridge %q has no transport", ErrBadConfig, s)
	}
	if !knownTransport(u.Scheme) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, u.Scheme)
	}
	if u.Opaque != "" {
		return nil, fmt.Errorf("%w: bridge %q is not scheme://host?args", ErrBadConfig, s)
	}
	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: bridge: %s", ErrBadConfig, err)
	}
	return &Bridge{Name: u.Scheme, Addr: u.Host, Args: ArgsFromValues(query)}, nil
}

func knownTransport(name string) bool {
	for _, candidate := range Names() {
		if candidate == name {
			return true
		}
	}
	return false
}
