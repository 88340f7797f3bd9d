package wire

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/frankli0324/go-xhr/internal/dialer"
	"github.com/frankli0324/go-xhr/internal/handle"
	"github.com/frankli0324/go-xhr/netpool"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// echo reports the request line, headers and body back, one per line.
func echo(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	names := make([]string, 0, len(r.Header))
	for k := range r.Header {
		names = append(names, k)
	}
	sort.Strings(names)
	fmt.Fprintf(w, "%s %s\n", r.Method, r.URL.RequestURI())
	for _, k := range names {
		fmt.Fprintf(w, "%s: %s\n", k, strings.Join(r.Header[k], "|"))
	}
	fmt.Fprintf(w, "\n%s", body)
}

func newHandle() *Handle {
	return &Handle{Dialer: &dialer.CoreDialer{ConnPool: netpool.NewGroup(0, 0)}}
}

func wait(t *testing.T, h *Handle) (*handle.Response, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NotNil(t, h.Future())
	return h.Future().Wait(ctx)
}

func TestOpenValidation(t *testing.T) {
	for name, c := range map[string]struct {
		method, url string
		want        error
	}{
		"EmptyMethod":     {"", "http://a/", handle.ErrSyntax},
		"MethodNotToken":  {"GE T", "http://a/", handle.ErrSyntax},
		"Connect":         {"connect", "http://a/", handle.ErrSecurity},
		"Trace":           {"TRACE", "http://a/", handle.ErrSecurity},
		"Track":           {"track", "http://a/", handle.ErrSecurity},
		"RelativeNoBase":  {"GET", "/a", handle.ErrSyntax},
		"BadScheme":       {"GET", "ftp://a/", handle.ErrSyntax},
		"NoHost":          {"GET", "http:///a", handle.ErrSyntax},
		"Unparseable":     {"GET", "http://a b/%zz", handle.ErrSyntax},
		"InvalidIDNAHost": {"GET", "http://a b.example/", handle.ErrSyntax},
	} {
		c := c
		t.Run(name, func(t *testing.T) {
			err := newHandle().Open(c.method, c.url, true)
			assert.ErrorIs(t, err, c.want)
		})
	}
}

func TestOpenNormalizes(t *testing.T) {
	h := newHandle()
	require.NoError(t, h.Open("get", "http://Bücher.example:8080/p#frag", true))
	assert.Equal(t, "GET", h.method)
	assert.Equal(t, "xn--bcher-kva.example:8080", h.u.Host)
	assert.Empty(t, h.u.Fragment)

	require.NoError(t, h.Open("patch", "http://127.0.0.1/", true))
	assert.Equal(t, "patch", h.method, "only the standard methods are upper cased")

	h.BaseURL, _ = url.Parse("https://example.com/api/")
	require.NoError(t, h.Open("GET", "v1/items?x=1", true))
	assert.Equal(t, "https://example.com/api/v1/items?x=1", h.u.String())
}

func TestAsyncSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(echo))
	defer srv.Close()

	h := newHandle()
	h.UserAgent = "go-xhr-test"
	require.NoError(t, h.Open("POST", srv.URL+"/echo?q=1", true))
	require.NoError(t, h.SetRequestHeader("X-Multi", "1"))
	require.NoError(t, h.SetRequestHeader("x-multi", " 2 "))
	require.NoError(t, h.SetRequestHeader("Host", "evil.example"))
	require.NoError(t, h.SetRequestHeader("Content-Length", "999"))
	require.NoError(t, h.Send([]byte(`{"a":1}`)))

	resp, err := wait(t, h)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "HTTP/1.1", resp.Proto)
	assert.Equal(t, "200 OK", resp.Status)
	body := string(resp.Body)
	assert.True(t, strings.HasPrefix(body, "POST /echo?q=1\n"), body)
	assert.Contains(t, body, "X-Multi: 1, 2\n")
	assert.Contains(t, body, "User-Agent: go-xhr-test\n")
	assert.True(t, strings.HasSuffix(body, "\n\n"+`{"a":1}`), body)
}

func TestUserAgentNotOverridden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(echo))
	defer srv.Close()

	h := newHandle()
	h.UserAgent = "default"
	require.NoError(t, h.Open("GET", srv.URL, false))
	require.NoError(t, h.SetRequestHeader("user-agent", "mine"))
	require.NoError(t, h.Send(nil))
	resp, err := wait(t, h)
	require.NoError(t, err)
	assert.Contains(t, string(resp.Body), "User-Agent: mine\n")
}

func TestSyncSendAndGetDropsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(echo))
	defer srv.Close()

	h := newHandle()
	require.NoError(t, h.Open("GET", srv.URL+"/g", false))
	require.NoError(t, h.Send([]byte("ignored")))

	resp, ok := h.Future().Result()
	require.True(t, ok, "a sync send returns after completion")
	require.NoError(t, h.Future().Err())
	assert.True(t, strings.HasSuffix(string(resp.Body), "\n\n"), string(resp.Body))
}

func TestInvalidState(t *testing.T) {
	h := newHandle()
	assert.ErrorIs(t, h.Send(nil), handle.ErrInvalidState)
	assert.ErrorIs(t, h.SetRequestHeader("X", "1"), handle.ErrInvalidState)

	srv := httptest.NewServer(http.HandlerFunc(echo))
	defer srv.Close()
	require.NoError(t, h.Open("GET", srv.URL, false))
	require.NoError(t, h.Send(nil))
	assert.ErrorIs(t, h.Send(nil), handle.ErrInvalidState)
	assert.ErrorIs(t, h.SetRequestHeader("X", "1"), handle.ErrInvalidState)

	require.NoError(t, h.Open("GET", srv.URL, false), "a finished handle can be opened again")
	assert.Empty(t, h.header)
}

func TestInvalidHeaders(t *testing.T) {
	h := newHandle()
	require.NoError(t, h.Open("GET", "http://127.0.0.1/", true))
	assert.ErrorIs(t, h.SetRequestHeader("Bad Name", "1"), handle.ErrSyntax)
	assert.ErrorIs(t, h.SetRequestHeader("X", "a\x00b"), handle.ErrSyntax)
	assert.ErrorIs(t, h.SetRequestHeader("", "1"), handle.ErrSyntax)
}

func blockingServer(t *testing.T) (*httptest.Server, func()) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	return srv, func() {
		close(release)
		srv.Close()
	}
}

func TestTimeout(t *testing.T) {
	srv, stop := blockingServer(t)
	defer stop()

	h := newHandle()
	h.Timeout = 50 * time.Millisecond
	require.NoError(t, h.Open("GET", srv.URL, true))
	require.NoError(t, h.Send(nil))
	_, err := wait(t, h)
	assert.ErrorIs(t, err, handle.ErrTimeout)
}

func TestAbort(t *testing.T) {
	srv, stop := blockingServer(t)
	defer stop()

	h := newHandle()
	require.NoError(t, h.Open("GET", srv.URL, true))
	require.NoError(t, h.Send(nil))
	fut := h.Future()
	h.Abort()

	done := make(chan error, 1)
	fut.OnDone(func(_ *handle.Response, err error) { done <- err })
	select {
	case err := <-done:
		assert.ErrorIs(t, err, handle.ErrAborted)
	case <-time.After(5 * time.Second):
		t.Fatal("abort did not complete the exchange")
	}
	assert.ErrorIs(t, h.Send(nil), handle.ErrInvalidState, "an aborted handle must be opened again")
}

func TestNetworkError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	h := newHandle()
	require.NoError(t, h.Open("GET", "http://"+addr+"/", false))
	err = h.Send(nil)
	assert.ErrorIs(t, err, handle.ErrNetwork)
	assert.Contains(t, err.Error(), addr)
}

func TestTruncatedBody(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 4096)
		c.Read(buf)
		io.WriteString(c, "HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\nabc")
	}()

	h := newHandle()
	require.NoError(t, h.Open("GET", "http://"+ln.Addr().String()+"/short", true))
	require.NoError(t, h.Send(nil))
	resp, err := wait(t, h)
	assert.ErrorIs(t, err, handle.ErrNetwork)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Nil(t, resp)
}

func TestFactory(t *testing.T) {
	var created []*Handle
	base, _ := url.Parse("http://example.com/")
	f := &Factory{
		Timeout:   time.Second,
		UserAgent: "ua",
		BaseURL:   base,
		OnCreate:  func(h *Handle) { created = append(created, h) },
	}
	h1, err := f.NewHandle()
	require.NoError(t, err)
	h2, err := f.NewHandle()
	require.NoError(t, err)

	require.Len(t, created, 2)
	assert.NotSame(t, created[0], created[1])
	assert.Same(t, h1, handle.Handle(created[0]))
	assert.Same(t, h2, handle.Handle(created[1]))
	assert.Equal(t, time.Second, created[0].Timeout)
	assert.Equal(t, "ua", created[0].UserAgent)
	assert.Same(t, base, created[0].BaseURL)
}
