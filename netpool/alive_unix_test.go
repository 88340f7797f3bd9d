//go:build darwin || linux

package netpool

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeerClosedConnIsNotReused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 2)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			accepted <- c
		}
	}()

	dials := 0
	dial := func(ctx context.Context) (net.Conn, error) {
		dials++
		var d net.Dialer
		return d.DialContext(ctx, "tcp", ln.Addr().String())
	}
	p := NewPool(1, 0)
	defer p.CloseIdle()

	c1, err := p.Connect(context.Background(), dial)
	require.NoError(t, err)
	assert.True(t, alive(c1.Raw()))
	c1.Release()

	peer := <-accepted
	require.NoError(t, peer.Close())
	require.Eventually(t, func() bool { return !alive(c1.Raw()) }, time.Second, 5*time.Millisecond)

	c2, err := p.Connect(context.Background(), dial)
	require.NoError(t, err)
	assert.Equal(t, 2, dials)
	c2.Close()
	(<-accepted).Close()
}
