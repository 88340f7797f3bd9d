package handle

import (
	"context"
	"net/http"
	"sync"
)

// Response is what a completed exchange produced. The body is read in full.
type Response struct {
	Proto      string
	Status     string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Future is completed exactly once when a handle's exchange finishes,
// either with a response or with the error that ended it.
type Future struct {
	ch   chan struct{} // closed when completed
	resp *Response
	err  error

	once sync.Once
	mu   sync.Mutex
}

// NewFuture returns a pending Future.
func NewFuture() *Future {
	return &Future{ch: make(chan struct{})}
}

// Complete settles f. Only the first call has an effect.
func (f *Future) Complete(resp *Response, err error) {
	f.once.Do(func() {
		f.mu.Lock()
		f.resp, f.err = resp, err
		f.mu.Unlock()
		close(f.ch)
	})
}

func (f *Future) result() (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resp, f.err
}

// Done returns a channel that is closed once the exchange finished.
func (f *Future) Done() <-chan struct{} {
	return f.ch
}

// Wait blocks until the exchange finished or ctx is done, whichever
// happens first. A done ctx does not abort the exchange.
func (f *Future) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-f.ch:
		return f.result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the response and whether the exchange finished. A
// finished exchange may still have failed, see [Future.Err].
func (f *Future) Result() (*Response, bool) {
	select {
	case <-f.ch:
		resp, _ := f.result()
		return resp, true
	default:
		return nil, false
	}
}

// Err returns the error that ended the exchange, nil while it runs.
func (f *Future) Err() error {
	select {
	case <-f.ch:
		_, err := f.result()
		return err
	default:
		return nil
	}
}

// OnDone runs cb in a new goroutine once the exchange finished.
func (f *Future) OnDone(cb func(*Response, error)) {
	go func() {
		<-f.ch
		cb(f.result())
	}()
}
