// Package handle defines the request object a dispatcher drives: one
// handle per request, opened, given headers and sent, in that order.
package handle

// Handle is a single in-flight request, shaped after the browser's
// XMLHttpRequest. Completion is reported by the implementation, not
// through these calls.
type Handle interface {
	// Open initializes the request. async is true for every dispatch.
	Open(method, url string, async bool) error
	SetRequestHeader(name, value string) error
	// Send starts the request. A nil body means an empty body.
	Send(body []byte) error
}

// Factory creates a fresh Handle for every call.
type Factory func() (Handle, error)
