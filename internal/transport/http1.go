package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/frankli0324/go-xhr/internal/model"
	"github.com/frankli0324/go-xhr/internal/transport/chunked"
)

type HTTP1 struct{}

type deadliner interface {
	SetDeadline(t time.Time) error
}

func applyDeadline(ctx context.Context, c interface{}) {
	if d, ok := c.(deadliner); ok {
		if dl, ok := ctx.Deadline(); ok {
			_ = d.SetDeadline(dl)
		} else {
			_ = d.SetDeadline(time.Time{})
		}
	}
}

func (t HTTP1) Write(ctx context.Context, w io.Writer, r *model.Request) error {
	applyDeadline(ctx, w)
	body, err := r.GetBody()
	if err != nil {
		return err
	}
	if body != nil {
		defer body.Close() // request body is ALWAYS closed
	}

	bw := bufio.NewWriter(w) // default bufsize is 4096
	if err := t.writeHeader(bw, r); err != nil {
		return err
	}
	if body != nil && body != http.NoBody {
		if r.ContentLength < 0 {
			if _, err := chunked.Copy(bw, body); err != nil {
				return err
			}
		} else if _, err := io.CopyN(bw, body, r.ContentLength); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// writeHeader writes the request line and header part of an http 1.1 request
// e.g.:
//
//	GET / HTTP/1.1\r\n
//	Host: www.google.com\r\n
//	X-Xx-Yy: cccccc\r\n
//	\r\n
func (t HTTP1) writeHeader(w *bufio.Writer, r *model.Request) error {
	uri := r.U.RequestURI()
	if r.Method == http.MethodConnect {
		uri = r.U.Host
	}
	w.WriteString(r.Method)
	w.WriteByte(' ')
	w.WriteString(uri)
	w.WriteString(" HTTP/1.1\r\n")

	w.WriteString("Host: ")
	w.WriteString(r.HeaderHost)
	w.WriteString("\r\n")
	switch {
	case r.ContentLength < 0:
		w.WriteString("Transfer-Encoding: chunked\r\n")
	case shouldSendContentLength(r):
		w.WriteString("Content-Length: ")
		w.WriteString(strconv.FormatInt(r.ContentLength, 10))
		w.WriteString("\r\n")
	}
	for k, v := range r.Header {
		for _, v := range v {
			w.WriteString(k)
			w.WriteString(": ")
			w.WriteString(v)
			if _, err := w.WriteString("\r\n"); err != nil {
				return err
			}
		}
	}
	_, err := w.WriteString("\r\n")
	return err
}

// shouldSendContentLength follows net/http: a zero length is only sent
// for methods that are expected to carry a body.
func shouldSendContentLength(r *model.Request) bool {
	if r.ContentLength > 0 {
		return true
	}
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// Read parses a response for req from r. The returned body must be drained
// before the connection can be reused, see [KeepAlive].
func (t HTTP1) Read(ctx context.Context, r io.Reader, req *model.Request, resp *model.Response) (err error) {
	applyDeadline(ctx, r)
	tp := textproto.NewReader(bufio.NewReader(r))

	for {
		if err := t.readHead(tp, resp); err != nil {
			return err
		}
		// 1xx interim responses are skipped, 101 is final
		if resp.StatusCode < 100 || resp.StatusCode > 199 || resp.StatusCode == http.StatusSwitchingProtocols {
			break
		}
	}
	return t.readTransfer(tp.R, req, resp)
}

func (t HTTP1) readHead(tp *textproto.Reader, resp *model.Response) error {
	line, err := tp.ReadLine()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	proto, status, ok := strings.Cut(line, " ")
	if !ok {
		return errors.New("malformed HTTP response " + strconv.Quote(line))
	}
	resp.Proto = proto
	resp.Status = strings.TrimLeft(status, " ")

	statusCode, _, _ := strings.Cut(resp.Status, " ")
	if len(statusCode) != 3 {
		return errors.New("malformed HTTP status code " + statusCode)
	}
	resp.StatusCode, err = strconv.Atoi(statusCode)
	if err != nil || resp.StatusCode < 0 {
		return errors.New("malformed HTTP status code " + statusCode)
	}

	// Parse the response headers.
	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	if hp, ok := mimeHeader["Pragma"]; ok && len(hp) > 0 && hp[0] == "no-cache" {
		if _, presentcc := mimeHeader["Cache-Control"]; !presentcc {
			mimeHeader["Cache-Control"] = []string{"no-cache"}
		}
	}
	resp.Header = http.Header(mimeHeader)
	return nil
}

func (t HTTP1) readTransfer(r *bufio.Reader, req *model.Request, resp *model.Response) error {
	contentLens := resp.Header["Content-Length"]

	// Hardening against HTTP request smuggling, taken from standard library
	if len(contentLens) > 1 {
		// Per RFC 7230 Section 3.3.2
		first := textproto.TrimString(contentLens[0])
		for _, ct := range contentLens[1:] {
			if first != textproto.TrimString(ct) {
				return fmt.Errorf("http: message cannot contain multiple Content-Length headers; got %q", contentLens)
			}
		}

		// deduplicate Content-Length
		resp.Header.Del("Content-Length")
		resp.Header.Add("Content-Length", first)

		contentLens = resp.Header["Content-Length"]
	}

	cl := int64(-1)
	if len(contentLens) > 0 {
		n, err := strconv.ParseUint(textproto.TrimString(contentLens[0]), 10, 63)
		if err != nil {
			return fmt.Errorf("http: bad Content-Length %q", contentLens[0])
		}
		cl = int64(n)
	}

	if !bodyAllowed(req, resp) {
		resp.ContentLength = 0
		resp.Body = http.NoBody
		return nil
	}

	if chunkedEncoding(resp.Header) {
		resp.Header.Del("Content-Length")
		resp.ContentLength = -1
		resp.Body = io.NopCloser(chunked.NewChunkedReader(r))
		return nil
	}

	resp.ContentLength = cl
	switch {
	case cl > 0:
		resp.Body = io.NopCloser(&lengthReader{r: r, n: cl})
	case cl == 0:
		resp.Body = http.NoBody
	default: // delimited by connection close
		resp.Body = io.NopCloser(r)
	}
	return nil
}

// lengthReader stops after n bytes and reports io.ErrUnexpectedEOF when
// the stream ends before that.
type lengthReader struct {
	r io.Reader
	n int64
}

func (l *lengthReader) Read(p []byte) (int, error) {
	if l.n <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > l.n {
		p = p[:l.n]
	}
	n, err := l.r.Read(p)
	l.n -= int64(n)
	if err == io.EOF && l.n > 0 {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

func bodyAllowed(req *model.Request, resp *model.Response) bool {
	if req != nil && req.Method == http.MethodHead {
		return false
	}
	if req != nil && req.Method == http.MethodConnect && resp.StatusCode/100 == 2 {
		return false
	}
	switch {
	case resp.StatusCode/100 == 1,
		resp.StatusCode == http.StatusNoContent,
		resp.StatusCode == http.StatusNotModified:
		return false
	}
	return true
}

func chunkedEncoding(h http.Header) bool {
	te := h.Values("Transfer-Encoding")
	return len(te) > 0 && strings.EqualFold(textproto.TrimString(te[len(te)-1]), "chunked")
}

// KeepAlive reports whether the connection resp was read from may carry
// another request once resp.Body has been fully consumed.
func KeepAlive(resp *model.Response) bool {
	if resp.Proto != "HTTP/1.1" {
		return false
	}
	for _, v := range resp.Header.Values("Connection") {
		for _, tok := range strings.Split(v, ",") {
			if strings.EqualFold(textproto.TrimString(tok), "close") {
				return false
			}
		}
	}
	// close-delimited bodies end with the connection
	return resp.ContentLength >= 0 || chunkedEncoding(resp.Header) || resp.Body == http.NoBody
}
