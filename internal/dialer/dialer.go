package dialer

import (
	"context"
	"crypto/tls"

	"github.com/frankli0324/go-xhr/internal/model"
	"github.com/frankli0324/go-xhr/netpool"
)

// Dialers handle pretty much everything related to the actual connection,
// including setting a proxy for each request, setting resolvers, etc.
type Dialer interface {
	// Dial returns a leased stream for writing the request and reading the response.
	Dial(ctx context.Context, r *model.Request) (netpool.Conn, error)
}

type CoreDialer struct {
	ResolveConfig *ResolveConfig

	TLSConfig *tls.Config // the config to use

	ConnPool    *netpool.PoolGroup // nil means the process wide pool
	GetProxy    func(ctx context.Context, r *model.Request) (string, error)
	ProxyConfig *ProxyConfig
}

func (d *CoreDialer) Clone() *CoreDialer {
	return &CoreDialer{
		ResolveConfig: d.ResolveConfig.Clone(),
		TLSConfig:     d.TLSConfig.Clone(),
		ConnPool:      d.ConnPool.NewEmpty(),
		GetProxy:      d.GetProxy,
		ProxyConfig:   d.ProxyConfig.Clone(),
	}
}

func (d *CoreDialer) pool() *netpool.PoolGroup {
	if d.ConnPool != nil {
		return d.ConnPool
	}
	return defaultPool
}

// CloseIdle closes the idle connections kept for d.
func (d *CoreDialer) CloseIdle() {
	d.pool().CloseIdle()
}
