// Package handletest provides a recording handle.Handle for tests.
package handletest

import (
	"fmt"
	"sync"

	"github.com/frankli0324/go-xhr/internal/handle"
)

// Recorder records every call made on it. The XxxFunc fields, when set,
// decide the returned error.
type Recorder struct {
	OpenFunc             func(method, url string, async bool) error
	SetRequestHeaderFunc func(name, value string) error
	SendFunc             func(body []byte) error

	Calls   []string
	Method  string
	URL     string
	Async   bool
	Headers map[string]string
	Body    []byte
	Sent    bool
}

var _ handle.Handle = (*Recorder)(nil)

func (r *Recorder) Open(method, url string, async bool) error {
	r.Calls = append(r.Calls, fmt.Sprintf("open %s %s %t", method, url, async))
	r.Method, r.URL, r.Async = method, url, async
	r.Headers = map[string]string{}
	if r.OpenFunc != nil {
		return r.OpenFunc(method, url, async)
	}
	return nil
}

func (r *Recorder) SetRequestHeader(name, value string) error {
	r.Calls = append(r.Calls, fmt.Sprintf("header %s: %s", name, value))
	if r.Headers == nil {
		return handle.ErrInvalidState.With("header set before open", nil)
	}
	if r.SetRequestHeaderFunc != nil {
		if err := r.SetRequestHeaderFunc(name, value); err != nil {
			return err
		}
	}
	r.Headers[name] = value
	return nil
}

func (r *Recorder) Send(body []byte) error {
	r.Calls = append(r.Calls, fmt.Sprintf("send %q", body))
	r.Body, r.Sent = body, true
	if r.SendFunc != nil {
		return r.SendFunc(body)
	}
	return nil
}

// Recorders hands out a new Recorder per Factory call and keeps them.
type Recorders struct {
	mu      sync.Mutex
	Handles []*Recorder

	// Prototype, when set, is copied into every new Recorder so its
	// XxxFunc fields apply.
	Prototype *Recorder
}

func (rs *Recorders) Factory() (handle.Handle, error) {
	r := &Recorder{}
	if rs.Prototype != nil {
		r.OpenFunc = rs.Prototype.OpenFunc
		r.SetRequestHeaderFunc = rs.Prototype.SetRequestHeaderFunc
		r.SendFunc = rs.Prototype.SendFunc
	}
	rs.mu.Lock()
	rs.Handles = append(rs.Handles, r)
	rs.mu.Unlock()
	return r, nil
}

// Last returns the most recently created Recorder, or nil.
func (rs *Recorders) Last() *Recorder {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if len(rs.Handles) == 0 {
		return nil
	}
	return rs.Handles[len(rs.Handles)-1]
}
