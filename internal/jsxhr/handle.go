//go:build js && wasm

package jsxhr

import (
	"fmt"
	"sync"
	"syscall/js"
	"time"

	"github.com/frankli0324/go-xhr/internal/handle"
)

// Handle wraps one browser XMLHttpRequest object per Open.
type Handle struct {
	Timeout time.Duration

	mu     sync.Mutex
	xhr    js.Value
	async  bool
	future *handle.Future
	funcs  []js.Func
}

var _ handle.Handle = (*Handle)(nil)

func (h *Handle) Open(method, url string, async bool) (err error) {
	defer recoverJS(&err)
	h.mu.Lock()
	defer h.mu.Unlock()

	x := js.Global().Get("XMLHttpRequest").New()
	x.Call("open", method, url, async)
	if async {
		x.Set("responseType", "arraybuffer")
		if h.Timeout > 0 {
			x.Set("timeout", h.Timeout.Milliseconds())
		}
	}
	h.xhr, h.async, h.future = x, async, nil
	return nil
}

func (h *Handle) SetRequestHeader(name, value string) (err error) {
	defer recoverJS(&err)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.xhr.IsUndefined() {
		return handle.ErrInvalidState.With("header set before open", nil)
	}
	h.xhr.Call("setRequestHeader", name, value)
	return nil
}

func (h *Handle) Send(body []byte) (err error) {
	var fut *handle.Future
	defer func() {
		if err != nil && fut != nil {
			fut.Complete(nil, err)
		}
	}()
	defer recoverJS(&err)
	h.mu.Lock()
	if h.xhr.IsUndefined() {
		h.mu.Unlock()
		return handle.ErrInvalidState.With("send before open", nil)
	}
	x := h.xhr
	fut = handle.NewFuture()
	h.future = fut
	async := h.async
	h.listen(x, fut, async)
	h.mu.Unlock()

	payload := js.Null()
	if body != nil {
		payload = js.Global().Get("Uint8Array").New(len(body))
		js.CopyBytesToJS(payload, body)
	}
	x.Call("send", payload)
	if !async {
		// no-op when load already fired
		fut.Complete(response(x, false), nil)
		return fut.Err()
	}
	return nil
}

func (h *Handle) listen(x js.Value, fut *handle.Future, async bool) {
	settle := func(err error) js.Func {
		return js.FuncOf(func(js.Value, []js.Value) interface{} {
			if err != nil {
				fut.Complete(nil, err)
			} else {
				fut.Complete(response(x, async), nil)
			}
			go h.release()
			return nil
		})
	}
	for _, l := range []struct {
		event string
		err   error
	}{
		{"load", nil},
		{"error", handle.ErrNetwork},
		{"timeout", handle.ErrTimeout},
		{"abort", handle.ErrAborted},
	} {
		fn := settle(l.err)
		h.funcs = append(h.funcs, fn)
		x.Call("addEventListener", l.event, fn)
	}
}

func (h *Handle) release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, fn := range h.funcs {
		fn.Release()
	}
	h.funcs = nil
}

// Abort aborts the browser request, the exchange completes with
// [handle.ErrAborted].
func (h *Handle) Abort() {
	h.mu.Lock()
	x := h.xhr
	h.mu.Unlock()
	if !x.IsUndefined() {
		x.Call("abort")
	}
}

// Future returns the completion of the last Send, or nil before it.
func (h *Handle) Future() *handle.Future {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.future
}

func response(x js.Value, binary bool) *handle.Response {
	status := x.Get("status").Int()
	resp := &handle.Response{
		Proto:      "HTTP/1.1",
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, x.Get("statusText").String()),
		Header:     parseHeaders(x.Call("getAllResponseHeaders").String()),
	}
	if binary {
		if buf := x.Get("response"); buf.Truthy() {
			arr := js.Global().Get("Uint8Array").New(buf)
			resp.Body = make([]byte, arr.Get("length").Int())
			js.CopyBytesToGo(resp.Body, arr)
		}
	} else {
		resp.Body = []byte(x.Get("responseText").String())
	}
	return resp
}

// recoverJS turns exceptions thrown by the browser into handle errors.
func recoverJS(err *error) {
	r := recover()
	if r == nil {
		return
	}
	jsErr, ok := r.(js.Error)
	if !ok {
		panic(r)
	}
	kind := errorKind(jsErr.Get("name").String())
	*err = kind.With(jsErr.Get("message").String(), nil)
}

// Factory creates browser handles.
type Factory struct {
	Timeout time.Duration
}

func (f *Factory) NewHandle() (handle.Handle, error) {
	if js.Global().Get("XMLHttpRequest").IsUndefined() {
		return nil, handle.ErrInvalidState.With("XMLHttpRequest is not available", nil)
	}
	return &Handle{Timeout: f.Timeout}, nil
}
