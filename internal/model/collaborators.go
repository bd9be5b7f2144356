package model

import "context"

// InstanceIDProvider returns the stable identifier of this installation.
type InstanceIDProvider interface {
	InstanceID() (string, error)
}

// CountryLocator returns the ISO 3166 alpha-2 code of the country
// where this host's public IP address is located.
type CountryLocator interface {
	Country(ctx context.Context) (string, error)
}

// CountryLocatorFunc adapts a function to a [CountryLocator].
type CountryLocatorFunc func(ctx context.Context) (string, error)

// Country implements CountryLocator.
func (f CountryLocatorFunc) Country(ctx context.Context) (string, error) {
	return f(ctx)
}
