package wire

import (
	"net/http/httptrace"
	"net/url"
	"time"

	"github.com/frankli0324/go-xhr/internal/dialer"
	"github.com/frankli0324/go-xhr/internal/handle"
)

var defaultDialer dialer.Dialer = &dialer.CoreDialer{}

// Factory creates wire handles sharing one configuration.
type Factory struct {
	Dialer    dialer.Dialer
	Timeout   time.Duration
	UserAgent string
	BaseURL   *url.URL
	Trace     *httptrace.ClientTrace

	// OnCreate, when set, sees every handle before it is returned.
	OnCreate func(*Handle)
}

// NewHandle satisfies [handle.Factory].
func (f *Factory) NewHandle() (handle.Handle, error) {
	h := &Handle{
		Dialer:    f.Dialer,
		Timeout:   f.Timeout,
		UserAgent: f.UserAgent,
		BaseURL:   f.BaseURL,
		Trace:     f.Trace,
	}
	if f.OnCreate != nil {
		f.OnCreate(h)
	}
	return h, nil
}

// NewFactory returns a [handle.Factory] issuing requests through d.
func NewFactory(d dialer.Dialer) handle.Factory {
	return (&Factory{Dialer: d}).NewHandle
}

// NewHandle creates a handle on the process wide dialer.
func NewHandle() (handle.Handle, error) {
	return &Handle{}, nil
}
