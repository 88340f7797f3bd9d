package netpool

import (
	"context"
	"net"
	"time"
)

// Pool keeps idle connections to a single destination. At most maxConn
// connections are leased at any time, zero means no limit.
type Pool struct {
	connTicket chan struct{}
	idle       chan *conn

	// IdleTimeout closes idle connections older than this instead of reusing them.
	IdleTimeout time.Duration
}

func NewPool(maxIdle, maxConn uint) *Pool {
	p := &Pool{idle: make(chan *conn, maxIdle)}
	if maxConn > 0 {
		p.connTicket = make(chan struct{}, maxConn)
	}
	return p
}

// Connect leases an idle connection if a live one is available and calls
// dial otherwise. It blocks while all tickets are taken.
func (p *Pool) Connect(ctx context.Context, dial func(ctx context.Context) (net.Conn, error)) (Conn, error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	if c := p.takeIdle(); c != nil {
		return &lease{conn: c, p: p, reused: true}, nil
	}
	raw, err := dial(ctx)
	if err != nil {
		p.free()
		return nil, err
	}
	return &lease{conn: &conn{Conn: raw}, p: p}, nil
}

func (p *Pool) takeIdle() *conn {
	for {
		select {
		case c := <-p.idle:
			if p.IdleTimeout != 0 && time.Since(c.lastIdle) > p.IdleTimeout {
				c.Close()
			} else if c.available() && alive(c.Conn) {
				return c
			} else {
				c.Close()
			}
		default:
			return nil
		}
	}
}

func (p *Pool) acquire(ctx context.Context) error {
	if p.connTicket == nil {
		return nil
	}
	select {
	case p.connTicket <- struct{}{}:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

func (p *Pool) free() {
	if p.connTicket != nil {
		<-p.connTicket
	}
}

func (p *Pool) put(c *conn) {
	if !c.available() {
		return
	}
	c.lastIdle = time.Now()
	select {
	case p.idle <- c:
	default:
		c.Close()
	}
}

// CloseIdle closes every connection currently waiting for reuse.
func (p *Pool) CloseIdle() {
	for {
		select {
		case c := <-p.idle:
			c.Close()
		default:
			return
		}
	}
}
