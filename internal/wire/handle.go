package wire

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/net/http/httpguts"
	"golang.org/x/net/idna"

	"github.com/frankli0324/go-xhr/internal/dialer"
	"github.com/frankli0324/go-xhr/internal/handle"
	"github.com/frankli0324/go-xhr/internal/log"
	"github.com/frankli0324/go-xhr/internal/model"
	"github.com/frankli0324/go-xhr/internal/transport"
)

type state uint8

const (
	stateUnsent state = iota
	stateOpened
	stateSending
	stateDone
)

var h1 = transport.HTTP1{}

// Handle issues a single HTTP/1.1 exchange per Send in the manner of a
// browser XMLHttpRequest. The exported fields must be set before Open.
type Handle struct {
	Dialer    dialer.Dialer
	Timeout   time.Duration // zero means no timeout
	UserAgent string        // sent unless a User-Agent header was set
	BaseURL   *url.URL      // relative URLs passed to Open resolve against it
	Trace     *httptrace.ClientTrace

	mu     sync.Mutex
	state  state
	method string
	u      *url.URL
	async  bool
	header http.Header
	names  map[string]string // lower case name to the name as first set
	cancel context.CancelCauseFunc
	future *handle.Future
}

var _ handle.Handle = (*Handle)(nil)

// Open initializes a request. Calling it again discards everything set
// since the previous Open. It fails while a request is in flight.
func (h *Handle) Open(method, rawURL string, async bool) error {
	m, err := normalizeMethod(method)
	if err != nil {
		return err
	}
	u, err := h.parseURL(rawURL)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == stateSending {
		return handle.ErrInvalidState.With("open while a request is in flight", nil)
	}
	h.state, h.method, h.u, h.async = stateOpened, m, u, async
	h.header, h.names = http.Header{}, map[string]string{}
	h.future, h.cancel = nil, nil
	return nil
}

func normalizeMethod(method string) (string, error) {
	if method == "" || strings.IndexFunc(method, func(r rune) bool { return !httpguts.IsTokenRune(r) }) >= 0 {
		return "", handle.ErrSyntax.With("invalid method "+strconv.Quote(method), nil)
	}
	upper := strings.ToUpper(method)
	switch upper {
	case http.MethodConnect, http.MethodTrace, "TRACK":
		return "", handle.ErrSecurity.With("forbidden method "+upper, nil)
	case http.MethodDelete, http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPost, http.MethodPut:
		return upper, nil
	}
	return method, nil
}

func (h *Handle) parseURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, handle.ErrSyntax.With("invalid url", err)
	}
	if h.BaseURL != nil {
		u = h.BaseURL.ResolveReference(u)
	}
	switch {
	case !u.IsAbs():
		return nil, handle.ErrSyntax.With("relative url without a base "+strconv.Quote(rawURL), nil)
	case u.Scheme != "http" && u.Scheme != "https":
		return nil, handle.ErrSyntax.With("unsupported scheme "+strconv.Quote(u.Scheme), nil)
	case u.Hostname() == "":
		return nil, handle.ErrSyntax.With("missing host in "+strconv.Quote(rawURL), nil)
	}
	u.Fragment, u.RawFragment = "", ""

	host := u.Hostname()
	if !isASCII(host) {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return nil, handle.ErrSyntax.With("invalid host "+strconv.Quote(host), err)
		}
		if port := u.Port(); port != "" {
			u.Host = ascii + ":" + port
		} else {
			u.Host = ascii
		}
	}
	return u, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// transport controlled
var ignoredHeaders = map[string]bool{
	"host": true, "content-length": true, "connection": true, "transfer-encoding": true,
}

// SetRequestHeader adds a header to the opened request. Setting a name
// again appends the value, separated by ", ".
func (h *Handle) SetRequestHeader(name, value string) error {
	value = strings.Trim(value, " \t\r\n")
	if !httpguts.ValidHeaderFieldName(name) {
		return handle.ErrSyntax.With("invalid header name "+strconv.Quote(name), nil)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return handle.ErrSyntax.With("invalid value for header "+name, nil)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != stateOpened {
		return handle.ErrInvalidState.With("header set before open or after send", nil)
	}
	lower := strings.ToLower(name)
	if ignoredHeaders[lower] {
		log.Debug("Ignoring transport controlled header", "name", name)
		return nil
	}
	if first, ok := h.names[lower]; ok {
		h.header[first][0] += ", " + value
		return nil
	}
	h.names[lower] = name
	h.header[name] = []string{value}
	return nil
}

// Send starts the exchange. For an async handle it returns immediately and
// the outcome is reported through [Handle.Future]; otherwise it blocks and
// returns the error that ended the exchange. GET and HEAD never carry a body.
func (h *Handle) Send(body []byte) error {
	h.mu.Lock()
	if h.state != stateOpened {
		h.mu.Unlock()
		return handle.ErrInvalidState.With("send before open or twice", nil)
	}
	if h.method == http.MethodGet || h.method == http.MethodHead {
		body = nil
	}
	req := h.newRequest(body)

	ctx, cancel := context.WithCancelCause(context.Background())
	if h.Trace != nil {
		ctx = httptrace.WithClientTrace(ctx, h.Trace)
	}
	stopTimeout := func() bool { return false }
	if h.Timeout > 0 {
		t := time.AfterFunc(h.Timeout, func() { cancel(handle.ErrTimeout) })
		stopTimeout = t.Stop
	}
	fut := handle.NewFuture()
	h.state, h.cancel, h.future = stateSending, cancel, fut
	async := h.async
	h.mu.Unlock()

	go func() {
		resp, err := h.roundTrip(ctx, req)
		stopTimeout()
		if err != nil {
			err = classify(ctx, req, err)
		}
		cancel(nil)

		h.mu.Lock()
		if h.future == fut && h.state == stateSending {
			h.state = stateDone
		}
		h.mu.Unlock()
		if err != nil {
			log.Debug(ctx, "Exchange failed", "method", req.Method, "url", req.U.Redacted(), err)
		}
		fut.Complete(resp, err)
	}()

	if async {
		return nil
	}
	<-fut.Done()
	return fut.Err()
}

func (h *Handle) newRequest(body []byte) *model.Request {
	header := make(http.Header, len(h.header)+1)
	for k, v := range h.header {
		header[k] = append([]string(nil), v...)
	}
	if _, ok := h.names["user-agent"]; !ok && h.UserAgent != "" {
		header["User-Agent"] = []string{h.UserAgent}
	}
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(bytes.Clone(body))
	}
	u := *h.u
	return model.NewRequest(h.method, &u, header, r)
}

func (h *Handle) dialer() dialer.Dialer {
	if h.Dialer != nil {
		return h.Dialer
	}
	return defaultDialer
}

func (h *Handle) roundTrip(ctx context.Context, req *model.Request) (*handle.Response, error) {
	traceGetConn(ctx, req.U.Host)
	conn, err := h.dialer().Dial(ctx, req)
	if err != nil {
		return nil, err
	}
	traceGotConn(ctx, conn)
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	err = h1.Write(ctx, conn, req)
	traceWroteRequest(ctx, err)
	if err != nil {
		conn.Close()
		return nil, err
	}
	r := &model.Response{}
	if err := h1.Read(ctx, conn, req, r); err != nil {
		conn.Close()
		return nil, err
	}
	traceGotResponse(ctx)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if !stop() {
		return nil, context.Cause(ctx)
	}
	if transport.KeepAlive(r) && conn.SetDeadline(time.Time{}) == nil {
		conn.Release()
	} else {
		conn.Close()
	}
	return &handle.Response{
		Proto: r.Proto, Status: r.Status, StatusCode: r.StatusCode,
		Header: r.Header, Body: body,
	}, nil
}

func classify(ctx context.Context, req *model.Request, err error) error {
	if cause := context.Cause(ctx); cause != nil {
		var he *handle.Error
		if errors.As(cause, &he) {
			return he
		}
	}
	var he *handle.Error
	if errors.As(err, &he) {
		return err
	}
	return handle.ErrNetwork.With(req.U.Host, err)
}

// Abort cancels the exchange in flight, which then completes with
// [handle.ErrAborted]. The handle has to be opened again before reuse.
func (h *Handle) Abort() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == stateSending && h.cancel != nil {
		h.cancel(handle.ErrAborted)
	}
	h.state = stateUnsent
}

// Future returns the completion of the last Send, or nil before it.
func (h *Handle) Future() *handle.Future {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.future
}
