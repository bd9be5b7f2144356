package transport

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	pt "git.torproject.org/pluggable-transports/goptlib.git"

	"github.com/ooni/minipt/internal/optional"
)

// Args is the key/value configuration of a transport (e.g., server,
// masquerade, rootca). It is immutable once constructed.
type Args struct {
	values pt.Args
}

// NewArgs creates [Args] from a map.
func NewArgs(kv map[string]string) Args {
	values := pt.Args{}
	for key, value := range kv {
		values.Add(key, value)
	}
	return Args{values}
}

// ArgsFromValues creates [Args] from URL query values, as found in
// bridge lines such as obfs4://host:port?cert=...&iat-mode=0.
func ArgsFromValues(v url.Values) Args {
	values := pt.Args{}
	for key, list := range v {
		for _, value := range list {
			values.Add(key, value)
		}
	}
	return Args{values}
}

// ParseArgs parses a "k=v;k=v" string, where backslash escapes the
// next character. This is the format pluggable transports use to pass
// per-connection arguments.
func ParseArgs(s string) (Args, error) {
	values := pt.Args{}
	var (
		key, buf strings.Builder
		inValue  bool
		escaped  bool
	)
	flush := func() error {
		if !inValue {
			if key.Len() == 0 && buf.Len() == 0 {
				return nil
			}
			return fmt.Errorf("%w: %q has no value", ErrBadConfig, key.String()+buf.String())
		}
		if key.Len() == 0 {
			return fmt.Errorf("%w: empty key", ErrBadConfig)
		}
		values.Add(key.String(), buf.String())
		key.Reset()
		buf.Reset()
		inValue = false
		return nil
	}
	for _, c := range s {
		switch {
		case escaped:
			buf.WriteRune(c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == '=' && !inValue:
			key.WriteString(buf.String())
			buf.Reset()
			inValue = true
		case c == ';':
			if err := flush(); err != nil {
				return Args{}, err
			}
		default:
			buf.WriteRune(c)
		}
	}
	if escaped {
		return Args{}, fmt.Errorf("%w: trailing backslash", ErrBadConfig)
	}
	if err := flush(); err != nil {
		return Args{}, err
	}
	return Args{values}, nil
}

// Get returns the first value for key.
func (a Args) Get(key string) (string, bool) {
	if a.values == nil {
		return "", false
	}
	return a.values.Get(key)
}

// lookup returns the first value for key, treating empty values as absent.
func (a Args) lookup(key string) optional.Value[string] {
	if value, found := a.Get(key); found && value != "" {
		return optional.Some(value)
	}
	return optional.None[string]()
}

// require returns the values of keys in order or an error wrapping
// [ErrMissingConfig] naming the first missing key.
func (a Args) require(keys ...string) ([]string, error) {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		value := a.lookup(key)
		if value.IsNone() {
			return nil, fmt.Errorf("%w: %q", ErrMissingConfig, key)
		}
		out = append(out, value.Unwrap())
	}
	return out, nil
}

// ptArgs returns a copy of the underlying goptlib args.
func (a Args) ptArgs() pt.Args {
	out := pt.Args{}
	for key, list := range a.values {
		for _, value := range list {
			out.Add(key, value)
		}
	}
	return out
}

// String encodes the args in the "k=v;k=v" format accepted by [ParseArgs],
// with keys in lexicographic order.
func (a Args) String() string {
	keys := make([]string, 0, len(a.values))
	for key := range a.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var parts []string
	for _, key := range keys {
		for _, value := range a.values[key] {
			parts = append(parts, escapeArg(key)+"="+escapeArg(value))
		}
	}
	return strings.Join(parts, ";")
}

var argEscaper = strings.NewReplacer(`\`, `\\`, `=`, `\=`, `;`, `\;`)

func escapeArg(s string) string {
	return argEscaper.Replace(s)
}
