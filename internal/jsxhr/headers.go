// Package jsxhr drives the browser's XMLHttpRequest from js/wasm builds.
package jsxhr

import (
	"net/http"
	"net/textproto"
	"strings"

	"github.com/frankli0324/go-xhr/internal/handle"
)

// parseHeaders reads the CRLF separated block getAllResponseHeaders returns.
func parseHeaders(raw string) http.Header {
	h := http.Header{}
	for _, line := range strings.Split(raw, "\r\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		h.Add(textproto.TrimString(name), textproto.TrimString(value))
	}
	return h
}

// errorKind maps a DOMException name onto a handle error.
func errorKind(name string) *handle.Error {
	switch name {
	case "SyntaxError":
		return handle.ErrSyntax
	case "SecurityError":
		return handle.ErrSecurity
	case "InvalidStateError":
		return handle.ErrInvalidState
	case "TimeoutError":
		return handle.ErrTimeout
	case "AbortError":
		return handle.ErrAborted
	}
	return handle.ErrNetwork
}
