// Package geoip resolves the public IP address of this host and maps it
// to an ISO 3166 alpha-2 country code.
//
// Servers pass the country code to the helper, and downstream policy
// depends on it. Therefore, every failure here is reported to the caller
// and we never fall back to a default country.
package geoip

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/ooni/minipt/internal/model"
)

var (
	// ErrPublicIP indicates we could not discover our public IP address.
	ErrPublicIP = errors.New("geoip: cannot resolve public IP")

	// ErrGeoLookup indicates we could not map the IP to a country.
	ErrGeoLookup = errors.New("geoip: country lookup failed")
)

// PublicIPResolver discovers the public IP address of this host.
type PublicIPResolver interface {
	PublicIP(ctx context.Context) (net.IP, error)
}

// CountryLookup maps an IP address to a country code.
type CountryLookup interface {
	CountryCode(ctx context.Context, ip net.IP) (string, error)
}

// Locator combines a [PublicIPResolver] and a [CountryLookup].
//
// The zero value is invalid; use [NewLocator].
type Locator struct {
	resolver PublicIPResolver
	lookup   CountryLookup
	logger   model.Logger
}

var _ model.CountryLocator = &Locator{}

// NewLocator creates a new [Locator].
func NewLocator(resolver PublicIPResolver, lookup CountryLookup, logger model.Logger) *Locator {
	return &Locator{
		resolver: resolver,
		lookup:   lookup,
		logger:   logger,
	}
}

// Country implements model.CountryLocator. The context bounds the whole
// operation, including both network round trips.
func (l *Locator) Country(ctx context.Context) (string, error) {
	ip, err := l.resolver.PublicIP(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrPublicIP, err)
	}
	code, err := l.lookup.CountryCode(ctx, ip)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrGeoLookup, err)
	}
	code, err = normalizeCountryCode(code)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrGeoLookup, err)
	}
	l.logger.Debugf("geoip: %s is in %s", ip, code)
	return code, nil
}

// normalizeCountryCode returns the upper case version of code if it
// looks like an alpha-2 code.
func normalizeCountryCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return "", fmt.Errorf("invalid country code %q", code)
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return "", fmt.Errorf("invalid country code %q", code)
		}
	}
	return code, nil
}
