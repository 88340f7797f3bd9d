package dialer

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"

	"github.com/frankli0324/go-xhr/internal/log"
	"github.com/frankli0324/go-xhr/internal/model"
	"github.com/frankli0324/go-xhr/netpool"
)

var defaultPool = netpool.NewGroup(100, 80)

var schemes = map[string]string{
	"http": "80", "https": "443", "socks": "1080", "socks5": "1080", "socks5h": "1080",
}

func splitHostPort(u *url.URL) (host, port string) {
	host, port = u.Hostname(), u.Port()
	if port == "" {
		port = schemes[u.Scheme]
	}
	return
}

func (d *CoreDialer) Dial(ctx context.Context, r *model.Request) (netpool.Conn, error) {
	proxyU, err := d.proxyFor(ctx, r)
	if err != nil {
		return nil, err
	}
	addr, port := splitHostPort(r.U)
	hp := net.JoinHostPort(addr, port)
	key := r.U.Scheme + "://" + hp
	if proxyU != nil {
		key += "|" + proxyU.String()
	}
	return d.pool().Connect(ctx, key, func(ctx context.Context) (conn net.Conn, err error) {
		if proxyU != nil {
			log.Trace(ctx, "Dialing over proxy", "remote", hp, "proxy", proxyU.Redacted())
			conn, err = d.DialContextOverProxy(ctx, r.U, proxyU)
		} else {
			log.Trace(ctx, "Dialing", "remote", hp)
			conn, err = dialTCP(ctx, d.ResolveConfig, addr, port)
		}
		if err != nil {
			return nil, err
		}
		if r.U.Scheme == "https" {
			c := tls.Client(conn, d.tlsConfig(d.TLSConfig, r.U.Hostname()))
			if err := c.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			conn = c
		}
		return conn, nil
	})
}

// tlsConfig never offers h2, responses are always read as HTTP/1.1.
func (d *CoreDialer) tlsConfig(base *tls.Config, serverName string) *tls.Config {
	config := base.Clone()
	if config == nil {
		config = &tls.Config{}
	}
	if config.ServerName == "" {
		config.ServerName = serverName
	}
	config.NextProtos = []string{"http/1.1"}
	return config
}
