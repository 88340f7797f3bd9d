package wire

import (
	"context"
	"io"
	"net"
	"net/http/httptrace"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-xhr/internal/model"
	"github.com/frankli0324/go-xhr/netpool"
)

type pipeConn struct {
	io.Reader
	io.Writer
	closer io.Closer

	closed, released atomic.Bool
}

func (c *pipeConn) Close() error {
	c.closed.Store(true)
	return c.closer.Close()
}

func (c *pipeConn) Release() {
	c.released.Store(true)
	c.closer.Close()
}

func (c *pipeConn) Raw() net.Conn                 { return nil }
func (c *pipeConn) SetDeadline(t time.Time) error { return nil }
func (c *pipeConn) Reused() bool                  { return false }

type pipeDialer struct {
	conn *pipeConn
}

func (d *pipeDialer) Dial(context.Context, *model.Request) (netpool.Conn, error) {
	return d.conn, nil
}

// sendSingleRequest serves response to whatever h sends and returns the
// raw request bytes, which end once h is done with the connection.
func sendSingleRequest(h *Handle, response string) (io.Reader, *pipeConn) {
	readResponse, writeResponse := io.Pipe()
	go io.Copy(writeResponse, strings.NewReader(response))

	readRequest, writeRequest := io.Pipe()
	conn := &pipeConn{Reader: readResponse, Writer: writeRequest, closer: writeRequest}
	h.Dialer = &pipeDialer{conn}
	return readRequest, conn
}

type tCase struct {
	open    func(h *Handle) error
	body    []byte
	data    string
	reuse   bool
	respond string
}

var reqShouldBe = map[string]tCase{
	"BasicRequest": {
		open: func(h *Handle) error { return h.Open("get", "http://www.example.com", true) },
		data: "GET / HTTP/1.1\r\nHost: www.example.com\r\n\r\n",
	},
	"HeaderNotCanonicalized": {
		open: func(h *Handle) error {
			if err := h.Open("GET", "http://www.example.com/", true); err != nil {
				return err
			}
			return h.SetRequestHeader("x-123-vv", "1")
		},
		data: "GET / HTTP/1.1\r\nHost: www.example.com\r\nx-123-vv: 1\r\n\r\n",
	},
	"URIFragmentNotIncluded": {
		open: func(h *Handle) error { return h.Open("GET", "http://www.example.com/?test=1#frag", true) },
		data: "GET /?test=1 HTTP/1.1\r\nHost: www.example.com\r\n\r\n",
	},
	"PostBody": {
		open: func(h *Handle) error { return h.Open("post", "http://www.example.com:8080/p", true) },
		body: []byte("{}"),
		data: "POST /p HTTP/1.1\r\nHost: www.example.com:8080\r\nContent-Length: 2\r\n\r\n{}",
	},
	"PostNilBody": {
		open: func(h *Handle) error { return h.Open("POST", "http://www.example.com/p", true) },
		data: "POST /p HTTP/1.1\r\nHost: www.example.com\r\nContent-Length: 0\r\n\r\n",
	},
	"HeadDropsBody": {
		open: func(h *Handle) error { return h.Open("HEAD", "http://www.example.com/h", true) },
		body: []byte("dropped"),
		data: "HEAD /h HTTP/1.1\r\nHost: www.example.com\r\n\r\n",
	},
	"KeepAliveReleases": {
		open:    func(h *Handle) error { return h.Open("GET", "http://www.example.com/k", true) },
		data:    "GET /k HTTP/1.1\r\nHost: www.example.com\r\n\r\n",
		respond: "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok",
		reuse:   true,
	},
}

func TestRequestSerialize(t *testing.T) {
	for name, cas := range reqShouldBe {
		tCase := cas
		t.Run(name, func(t *testing.T) {
			respond := tCase.respond
			if respond == "" {
				respond = "HTTP/1.1 200 OK\r\nContent-Length: 0\r\nConnection: close\r\n\r\n"
			}
			h := &Handle{}
			req, conn := sendSingleRequest(h, respond)
			require.NoError(t, tCase.open(h))
			require.NoError(t, h.Send(tCase.body))

			if err := iotest.TestReader(req, []byte(tCase.data)); err != nil {
				t.Error(err)
			}
			_, err := wait(t, h)
			require.NoError(t, err)
			assert.Equal(t, tCase.reuse, conn.released.Load())
			assert.Equal(t, !tCase.reuse, conn.closed.Load())
		})
	}
}

func TestTraceHooks(t *testing.T) {
	var events []string
	h := &Handle{Trace: &httptrace.ClientTrace{
		GetConn:              func(hostPort string) { events = append(events, "get "+hostPort) },
		GotConn:              func(info httptrace.GotConnInfo) { events = append(events, "got") },
		WroteRequest:         func(info httptrace.WroteRequestInfo) { events = append(events, "wrote") },
		GotFirstResponseByte: func() { events = append(events, "response") },
	}}
	req, _ := sendSingleRequest(h, "HTTP/1.1 204 No Content\r\n\r\n")
	require.NoError(t, h.Open("GET", "http://www.example.com/t", true))
	require.NoError(t, h.Send(nil))
	_, err := io.Copy(io.Discard, req)
	require.NoError(t, err)

	resp, err := wait(t, h)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
	assert.Equal(t, []string{"get www.example.com", "got", "wrote", "response"}, events)
}
