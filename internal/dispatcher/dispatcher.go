package dispatcher

import (
	"context"

	"github.com/frankli0324/go-xhr/internal/handle"
	"github.com/frankli0324/go-xhr/internal/model"
)

type Handler = func(ctx context.Context, p *model.Prepared) error
type Middleware func(next Handler) Handler

// Dispatcher maps request configs onto handles created by Factory.
// A zero Dispatcher uses the platform's default handle factory.
type Dispatcher struct {
	Factory handle.Factory

	middlewares []Middleware
}

// Use appends mws to the chain. Middlewares run in the order they were added,
// the first one sees the request first.
func (d *Dispatcher) Use(mws ...Middleware) {
	d.middlewares = append(d.middlewares, mws...)
}

func (d *Dispatcher) factory() handle.Factory {
	if d.Factory != nil {
		return d.Factory
	}
	return defaultFactory()
}

// Dispatch opens a new handle, sets the filtered headers on it and sends the
// body. It returns as soon as the handle accepted the request; errors raised
// by the handle are returned unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, cfg *model.Config) error {
	p, err := cfg.Prepare()
	if err != nil {
		return err
	}
	factory := d.factory()
	next := func(ctx context.Context, p *model.Prepared) error {
		return send(factory, p)
	}
	for i := len(d.middlewares) - 1; i >= 0; i-- {
		next = d.middlewares[i](next)
	}
	return next(ctx, p)
}

// Dispatch sends cfg through a handle created by factory.
func Dispatch(ctx context.Context, factory handle.Factory, cfg *model.Config) error {
	return (&Dispatcher{Factory: factory}).Dispatch(ctx, cfg)
}

func send(factory handle.Factory, p *model.Prepared) error {
	h, err := factory()
	if err != nil {
		return err
	}
	if err := h.Open(p.Method, p.URL, true); err != nil {
		return err
	}
	for _, name := range p.HeaderNames() {
		if err := h.SetRequestHeader(name, p.Headers[name]); err != nil {
			return err
		}
	}
	return h.Send(p.Body)
}
