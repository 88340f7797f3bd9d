package dialer

import (
	"github.com/frankli0324/go-xhr/internal/dialer"
)

// Dialers are responsible for creating underlying streams that requests could
// be written to and responses could be read from. for example, opening a raw TCP
// connection for HTTP/1.1 requests.
//
// A Dialer MUST NOT hold the state of a single exchange, which means one
// Dialer is shared by every handle a factory creates. Like [net/http.Transport],
// it SHOULD hold the connection related configs like [ProxyConfig] or
// *[crypto/tls.Config].
type Dialer = dialer.Dialer

// CoreDialer is the default implementation of the [Dialer] interface. It would
// be used by a handle without a Dialer.
type CoreDialer = dialer.CoreDialer

type ProxyConfig = dialer.ProxyConfig

// we need a dedicated resolver for two scenarios:
//
//  1. Resolve remote address locally in proxied requests
//  2. to customize the DNS server used for resolving hostname
//
// the standard library didn't provide a intuitive way of
// setting DNS server addresses since it only follows the
// system configuration (e.g. /etc/resolv.conf), leaving us only
// one option of using [net.Resolver.Dial] hook with a Go Resolver.
//
// this part of code tries to take advantage of that
// only option as far as possible to provide a relativly
// intuitive configuration API.
type ResolveConfig = dialer.ResolveConfig

var (
	FixedProxy           = dialer.FixedProxy
	ProxyFromEnvironment = dialer.ProxyFromEnvironment
)
