package netpool

import (
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/frankli0324/go-xhr/internal/log"
)

// Conn is a connection leased from a [Pool]. Exactly one of Release or
// Close must be called once the caller is done with it.
type Conn interface {
	io.ReadWriteCloser
	// Release hands the connection back for reuse. The next request must be
	// able to start right where the last response ended.
	Release()
	Raw() net.Conn
	SetDeadline(t time.Time) error
	// Reused reports whether the connection served a previous lease.
	Reused() bool
}

type conn struct {
	net.Conn
	closed   atomic.Bool
	lastIdle time.Time
}

func (c *conn) available() bool {
	return !c.closed.Load()
}

func (c *conn) Write(p []byte) (n int, err error) {
	n, err = c.Conn.Write(p)
	if err != nil {
		if err != io.EOF {
			log.Debug("netpool: error on write", "remote", c.RemoteAddr(), err)
		}
		c.Close()
	}
	return
}

func (c *conn) Read(p []byte) (n int, err error) {
	n, err = c.Conn.Read(p)
	if err != nil {
		if err != io.EOF {
			log.Debug("netpool: error on read", "remote", c.RemoteAddr(), err)
		}
		c.Close()
	}
	return
}

func (c *conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.Conn.Close()
}

type lease struct {
	*conn
	p      *Pool
	reused bool
	done   atomic.Bool
}

func (l *lease) Reused() bool {
	return l.reused
}

func (l *lease) Raw() net.Conn {
	return l.conn.Conn
}

func (l *lease) Release() {
	if !l.done.CompareAndSwap(false, true) {
		return
	}
	defer l.p.free()
	l.p.put(l.conn)
}

func (l *lease) Close() error {
	if !l.done.CompareAndSwap(false, true) {
		return nil
	}
	defer l.p.free()
	return l.conn.Close()
}
