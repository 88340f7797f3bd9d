package netpool

import (
	"context"
	"net"
	"sync"
	"time"
)

// PoolGroup holds one [Pool] per destination key.
type PoolGroup struct {
	sync.RWMutex
	pools map[string]*Pool

	maxConnsPerHost, maxIdlePerHost uint
	IdleTimeout                     time.Duration
}

func NewGroup(maxConnsPerHost, maxIdlePerHost uint) *PoolGroup {
	return &PoolGroup{
		pools:           map[string]*Pool{},
		maxConnsPerHost: maxConnsPerHost, maxIdlePerHost: maxIdlePerHost,
	}
}

// NewEmpty returns a group with the same limits and no connections.
func (g *PoolGroup) NewEmpty() *PoolGroup {
	if g == nil {
		return nil
	}
	ng := NewGroup(g.maxConnsPerHost, g.maxIdlePerHost)
	ng.IdleTimeout = g.IdleTimeout
	return ng
}

func (g *PoolGroup) Connect(ctx context.Context, key string, dial func(ctx context.Context) (net.Conn, error)) (Conn, error) {
	g.RLock()
	p, ok := g.pools[key]
	g.RUnlock()
	if ok {
		return p.Connect(ctx, dial)
	}
	g.Lock()
	if p, ok = g.pools[key]; !ok {
		p = NewPool(g.maxIdlePerHost, g.maxConnsPerHost)
		p.IdleTimeout = g.IdleTimeout
		g.pools[key] = p
	}
	g.Unlock()
	return p.Connect(ctx, dial)
}

func (g *PoolGroup) CloseIdle() {
	g.RLock()
	defer g.RUnlock()
	for _, p := range g.pools {
		p.CloseIdle()
	}
}
