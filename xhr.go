// Package xhr maps request descriptions onto XMLHttpRequest-style handles.
//
// A [Config] is turned into exactly one handle from a [HandleFactory]: the
// handle is opened asynchronously with the upper cased method, the headers
// are set (a Content-Type is dropped when there is no body) and the body is
// sent. Completion is reported by the handle, not by [Dispatch].
package xhr

import (
	"context"

	"github.com/frankli0324/go-xhr/internal/dispatcher"
	"github.com/frankli0324/go-xhr/internal/handle"
	"github.com/frankli0324/go-xhr/internal/model"
	"github.com/frankli0324/go-xhr/internal/wire"
)

type Config = model.Config

type Handle = handle.Handle
type HandleFactory = handle.Factory
type HandleError = handle.Error

type Dispatcher = dispatcher.Dispatcher
type Middleware = dispatcher.Middleware

type WireHandle = wire.Handle
type WireFactory = wire.Factory
type Future = handle.Future
type Response = handle.Response

// NoBody marks a Config without a body, like a nil Data.
var NoBody = model.NoBody

var (
	ErrInvalidState = handle.ErrInvalidState
	ErrSyntax       = handle.ErrSyntax
	ErrSecurity     = handle.ErrSecurity
	ErrAborted      = handle.ErrAborted
	ErrTimeout      = handle.ErrTimeout
	ErrNetwork      = handle.ErrNetwork
)

// Dispatch sends cfg through one handle created by factory. Errors raised by
// the factory or the handle are returned unchanged.
func Dispatch(ctx context.Context, factory HandleFactory, cfg *Config) error {
	return dispatcher.Dispatch(ctx, factory, cfg)
}

var (
	Logging        = dispatcher.Logging
	Metrics        = dispatcher.Metrics
	RateLimit      = dispatcher.RateLimit
	DefaultHeaders = dispatcher.DefaultHeaders
)

// NewWireFactory returns a factory of native handles dialing through d.
func NewWireFactory(d Dialer) HandleFactory {
	return wire.NewFactory(d)
}
