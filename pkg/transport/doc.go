// Package transport describes the pluggable transports we know how to run.
//
// A [Descriptor] knows where the helper binary lives, how to build the
// command line (and environment) for the client and for the server role,
// and which capabilities the transport has. Descriptors do not spawn
// anything: that is the job of the supervisor package, which is
// transport-agnostic and only consumes the [Command] built here.
//
// Client and server commands are built from disjoint sets of configuration
// keys. Building a client command never reads server-only state (instance
// id, country) and vice versa.
//
// Two variants are available:
//
//   - [Flashlight], a masquerading HTTPS transport that supplies its own
//     encryption and requires clients to trust a local root CA;
//
//   - [Obfs4], which runs obfs4proxy as a managed Tor pluggable transport.
package transport
