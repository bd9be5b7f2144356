// Command minipt runs a pluggable transport helper until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/pborman/getopt/v2"

	"github.com/ooni/minipt/internal/geoip"
	"github.com/ooni/minipt/internal/model"
	"github.com/ooni/minipt/pkg/config"
	"github.com/ooni/minipt/pkg/supervisor"
	"github.com/ooni/minipt/pkg/transport"
)

// options contains the command line options.
type options struct {
	transport    string
	role         string
	listen       string
	forward      string
	args         string
	bridge       string
	configRoot   string
	mmdb         string
	readyTimeout uint16
	printCACert  bool
	verbosity    uint16
}

func main() {
	opts := &options{
		transport:    transport.FlashlightName,
		role:         "client",
		listen:       "127.0.0.1:8787",
		readyTimeout: 30,
		verbosity:    4,
	}
	getopt.FlagLong(&opts.transport, "transport", 't', "Pluggable transport ("+strings.Join(transport.Names(), ", ")+")")
	getopt.FlagLong(&opts.role, "role", 'r', "Role: client or server")
	getopt.FlagLong(&opts.listen, "listen", 'l', "Address the helper listens on (host:port)")
	getopt.FlagLong(&opts.forward, "forward", 'f', "Local proxy (client) or upstream (server) address")
	getopt.FlagLong(&opts.args, "args", 'a', "Transport arguments as k=v;k=v")
	getopt.FlagLong(&opts.bridge, "bridge", 'b', "Transport and arguments as a URL, e.g. obfs4://host:port?cert=...&iat-mode=0")
	getopt.FlagLong(&opts.configRoot, "configroot", 'c', "Configuration root directory")
	getopt.FlagLong(&opts.mmdb, "mmdb", 'm', "MaxMind country database used by servers")
	getopt.FlagLong(&opts.readyTimeout, "ready-timeout", 'w', "Seconds to wait for the listener, 0 to skip")
	getopt.FlagLong(&opts.printCACert, "print-cacert", 0, "Print the root CA clients must trust and exit")
	getopt.FlagLong(&opts.verbosity, "verbosity", 'v', "Verbosity level (1 to 5, 1 is lowest)")
	helpFlag := getopt.Bool('h', "Display help")

	getopt.Parse()
	if *helpFlag || len(getopt.Args()) != 0 {
		getopt.Usage()
		os.Exit(0)
	}

	logger := &log.Logger{Level: verbosityLevel(opts.verbosity), Handler: &logHandler{Writer: os.Stderr}}
	if err := run(opts, logger); err != nil {
		logger.WithError(err).Error("minipt")
		os.Exit(1)
	}
}

func verbosityLevel(verbosity uint16) log.Level {
	switch verbosity {
	case 1:
		return log.FatalLevel
	case 2:
		return log.ErrorLevel
	case 3:
		return log.WarnLevel
	case 4:
		return log.InfoLevel
	default:
		return log.DebugLevel
	}
}

// errBridgeAndArgs indicates that both -bridge and -args were given.
var errBridgeAndArgs = errors.New("use either -bridge or -args")

func run(opts *options, logger *log.Logger) error {
	name, args, err := transportArgs(opts, logger)
	if err != nil {
		return err
	}
	role, err := model.ParseRole(opts.role)
	if err != nil {
		return err
	}
	listen, err := model.ParseEndpoint(opts.listen)
	if err != nil {
		return err
	}
	var forward model.Endpoint
	if opts.forward != "" {
		if forward, err = model.ParseEndpoint(opts.forward); err != nil {
			return err
		}
	}

	cfgOptions := []config.Option{config.WithLogger(logger)}
	if opts.configRoot != "" {
		cfgOptions = append(cfgOptions, config.WithConfigRoot(opts.configRoot))
	}
	if opts.mmdb != "" {
		lookup, err := geoip.OpenMMDB(opts.mmdb)
		if err != nil {
			return err
		}
		defer lookup.Close()
		resolver := &geoip.HTTPResolver{URL: geoip.DefaultPublicIPURL}
		cfgOptions = append(cfgOptions, config.WithLocator(geoip.NewLocator(resolver, lookup, logger)))
	}
	cfg := config.NewConfig(cfgOptions...)

	descriptor, err := transport.New(name, cfg, args)
	if err != nil {
		return err
	}
	if opts.printCACert {
		pem, err := descriptor.LocalCACert()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(pem)
		return err
	}
	logger.Infof("%s: supplies encryption: %v", descriptor.Name(), descriptor.SuppliesEncryption())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := supervisor.NewManager(logger)
	defer func() {
		if err := manager.StopAll(context.Background()); err != nil {
			logger.WithError(err).Error("stop")
		}
	}()

	p, err := manager.Start(ctx, descriptor.Name(), supervisor.New(cfg, descriptor), role, listen, forward)
	if err != nil {
		return err
	}
	if opts.readyTimeout > 0 {
		readyCtx, cancel := context.WithTimeout(ctx, time.Duration(opts.readyTimeout)*time.Second)
		err := p.WaitReady(readyCtx, supervisor.DefaultPollInterval)
		cancel()
		if err != nil {
			return err
		}
		logger.Infof("%s %s ready on %s", descriptor.Name(), role, p.Addr())
	}

	select {
	case <-ctx.Done():
		logger.Info("interrupted, shutting down")
		return nil
	case <-p.Done():
		if err := p.Err(); err != nil {
			return fmt.Errorf("%w: %s", supervisor.ErrExited, err)
		}
		return errors.New("helper exited unexpectedly")
	}
}

// transportArgs returns the transport name and arguments, taken from
// -bridge when present and from -transport and -args otherwise.
func transportArgs(opts *options, logger model.Logger) (string, transport.Args, error) {
	if opts.bridge == "" {
		args, err := transport.ParseArgs(opts.args)
		return opts.transport, args, err
	}
	if opts.args != "" {
		return "", transport.Args{}, errBridgeAndArgs
	}
	bridge, err := transport.ParseBridge(opts.bridge)
	if err != nil {
		return "", transport.Args{}, err
	}
	if bridge.Addr != "" {
		logger.Infof("%s: bridge at %s", bridge.Name, bridge.Addr)
	}
	return bridge.Name, bridge.Args, nil
}
