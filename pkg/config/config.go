// Package config contains the options shared by the pluggable transport
// descriptors and the process supervisor.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"

	"github.com/ooni/minipt/internal/geoip"
	"github.com/ooni/minipt/internal/hostinfo"
	"github.com/ooni/minipt/internal/identity"
	"github.com/ooni/minipt/internal/model"
	"github.com/ooni/minipt/internal/optional"
	"github.com/ooni/minipt/internal/runtimex"
)

const (
	// DefaultGracePeriod is how long we wait for a helper to exit after
	// asking it to terminate, before killing it.
	DefaultGracePeriod = 5 * time.Second

	// DefaultGeoTimeout bounds the public IP and country lookups.
	DefaultGeoTimeout = 10 * time.Second

	// instanceIDFile is the name of the file, inside the config root,
	// where we persist the instance id.
	instanceIDFile = "instanceid"
)

// Config contains options to run pluggable transport helpers.
type Config struct {
	// configRoot is the directory below which each transport keeps its
	// binary and its state (e.g., <root>/pt/flashlight).
	configRoot string

	// logger will be used to log events.
	logger model.Logger

	// gracePeriod is the time we give a helper to exit cleanly.
	gracePeriod time.Duration

	// geoTimeout bounds the country lookup performed by servers.
	geoTimeout time.Duration

	// hostPID returns the PID handed to helpers as a watchdog.
	hostPID func() optional.Value[int]

	// identity provides the server instance id.
	identity model.InstanceIDProvider

	// locator provides the server country code.
	locator model.CountryLocator
}

// NewConfig returns a Config ready to run pluggable transports.
func NewConfig(options ...Option) *Config {
	cfg := &Config{
		configRoot:  defaultConfigRoot(),
		logger:      log.Log,
		gracePeriod: DefaultGracePeriod,
		geoTimeout:  DefaultGeoTimeout,
		hostPID:     hostinfo.PID,
	}
	for _, opt := range options {
		opt(cfg)
	}
	// the collaborators below depend on other options
	if cfg.identity == nil {
		cfg.identity = identity.NewFileProvider(filepath.Join(cfg.configRoot, instanceIDFile))
	}
	if cfg.locator == nil {
		cfg.locator = geoip.NewLocator(
			&geoip.HTTPResolver{URL: geoip.DefaultPublicIPURL},
			&geoip.HTTPCountryLookup{URL: geoip.DefaultCountryURL},
			cfg.logger,
		)
	}
	return cfg
}

// defaultConfigRoot returns the per-user configuration directory.
func defaultConfigRoot() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".minipt"
	}
	return filepath.Join(dir, "minipt")
}

// Option is an option you can pass to initialize minipt.
type Option func(config *Config)

// WithLogger configures the passed [Logger].
func WithLogger(logger model.Logger) Option {
	return func(config *Config) {
		runtimex.PanicIfNil(logger, "nil logger")
		config.logger = logger
	}
}

// Logger returns the configured logger.
func (c *Config) Logger() model.Logger {
	return c.logger
}

// WithConfigRoot configures the root configuration directory.
func WithConfigRoot(dir string) Option {
	return func(config *Config) {
		config.configRoot = dir
	}
}

// ConfigRoot returns the root configuration directory.
func (c *Config) ConfigRoot() string {
	return c.configRoot
}

// WithGracePeriod configures how long we wait before killing a helper.
func WithGracePeriod(d time.Duration) Option {
	return func(config *Config) {
		config.gracePeriod = d
	}
}

// GracePeriod returns the configured grace period.
func (c *Config) GracePeriod() time.Duration {
	return c.gracePeriod
}

// WithGeoTimeout configures the timeout of the country lookup. A zero
// or negative value selects [DefaultGeoTimeout].
func WithGeoTimeout(d time.Duration) Option {
	return func(config *Config) {
		if d <= 0 {
			d = DefaultGeoTimeout
		}
		config.geoTimeout = d
	}
}

// GeoTimeout returns the configured country lookup timeout.
func (c *Config) GeoTimeout() time.Duration {
	return c.geoTimeout
}

// WithHostPID configures the function returning the watchdog PID. Passing
// a function that returns [optional.None] disables the watchdog argument.
func WithHostPID(fx func() optional.Value[int]) Option {
	return func(config *Config) {
		runtimex.PanicIfTrue(fx == nil, "nil host pid func")
		config.hostPID = fx
	}
}

// HostPID returns the PID to hand to helpers, if any.
func (c *Config) HostPID() optional.Value[int] {
	return c.hostPID()
}

// WithInstanceIDProvider configures the [model.InstanceIDProvider].
func WithInstanceIDProvider(provider model.InstanceIDProvider) Option {
	return func(config *Config) {
		config.identity = provider
	}
}

// InstanceIDProvider returns the configured instance id provider.
func (c *Config) InstanceIDProvider() model.InstanceIDProvider {
	return c.identity
}

// WithLocator configures the [model.CountryLocator].
func WithLocator(locator model.CountryLocator) Option {
	return func(config *Config) {
		config.locator = locator
	}
}

// Locator returns the configured country locator.
func (c *Config) Locator() model.CountryLocator {
	return c.locator
}
