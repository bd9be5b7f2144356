package transport

import "errors"

var (
	// ErrMissingConfig means a required configuration key is missing. We
	// always detect this condition before spawning any process.
	ErrMissingConfig = errors.New("transport: missing required config")

	// ErrBadConfig means a configuration value is invalid.
	ErrBadConfig = errors.New("transport: invalid config")

	// ErrUnknownTransport means there is no transport with the given name.
	ErrUnknownTransport = errors.New("transport: unknown transport")

	// ErrInstanceID means we could not obtain the server instance id.
	ErrInstanceID = errors.New("transport: cannot obtain instance id")

	// ErrCountry means we could not classify our public IP. Servers cannot
	// start without a country, hence this error is fatal.
	ErrCountry = errors.New("transport: cannot determine country")

	// ErrTrustMaterial means the root CA certificate is missing or invalid.
	// This error is not retryable: a client cannot proceed without it.
	ErrTrustMaterial = errors.New("transport: cannot load root CA certificate")

	// ErrNoTrustMaterial means the transport does not use a root CA.
	ErrNoTrustMaterial = errors.New("transport: no root CA for this transport")
)
