package jsxhr

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/frankli0324/go-xhr/internal/handle"
)

func TestParseHeaders(t *testing.T) {
	raw := "content-type: text/plain\r\nx-multi: a\r\nX-Multi: b\r\ndate: Mon, 01 Jan 2024 00:00:00 GMT\r\n"
	assert.Equal(t, http.Header{
		"Content-Type": {"text/plain"},
		"X-Multi":      {"a", "b"},
		"Date":         {"Mon, 01 Jan 2024 00:00:00 GMT"},
	}, parseHeaders(raw))
	assert.Empty(t, parseHeaders(""))
}

func TestErrorKind(t *testing.T) {
	for name, want := range map[string]error{
		"SyntaxError":       handle.ErrSyntax,
		"SecurityError":     handle.ErrSecurity,
		"InvalidStateError": handle.ErrInvalidState,
		"TimeoutError":      handle.ErrTimeout,
		"AbortError":        handle.ErrAborted,
		"NetworkError":      handle.ErrNetwork,
	} {
		assert.ErrorIs(t, errorKind(name), want, name)
	}
}
