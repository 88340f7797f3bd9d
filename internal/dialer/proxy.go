package dialer

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http/httpproxy"
	"golang.org/x/net/proxy"

	"github.com/frankli0324/go-xhr/internal/model"
	"github.com/frankli0324/go-xhr/internal/transport"
)

type ProxyConfig struct {
	TLSConfig      *tls.Config // the [*tls.Config] to use with proxy, if nil, *[CoreDialer.TLSConfig] will be used
	ResolveLocally bool
	ResolveConfig  *ResolveConfig // overrides the resolver config for dialer for proxy
}

func (c *ProxyConfig) Clone() *ProxyConfig {
	if c == nil {
		return nil
	}
	return &ProxyConfig{
		TLSConfig:      c.TLSConfig.Clone(),
		ResolveLocally: c.ResolveLocally,
		ResolveConfig:  c.ResolveConfig.Clone(),
	}
}

var (
	h1Transport = transport.HTTP1{}
)

// FixedProxy routes every request through rawURL.
func FixedProxy(rawURL string) func(context.Context, *model.Request) (string, error) {
	return func(context.Context, *model.Request) (string, error) {
		return rawURL, nil
	}
}

// ProxyFromEnvironment picks the proxy from HTTP_PROXY, HTTPS_PROXY and
// NO_PROXY the way net/http does. The environment is read once.
func ProxyFromEnvironment() func(context.Context, *model.Request) (string, error) {
	fn := httpproxy.FromEnvironment().ProxyFunc()
	return func(_ context.Context, r *model.Request) (string, error) {
		u, err := fn(r.U)
		if err != nil || u == nil {
			return "", err
		}
		return u.String(), nil
	}
}

func (d *CoreDialer) proxyFor(ctx context.Context, r *model.Request) (*url.URL, error) {
	if d.GetProxy == nil {
		return nil, nil
	}
	p, err := d.GetProxy(ctx, r)
	if err != nil || p == "" {
		return nil, err
	}
	return url.Parse(p)
}

func (d *CoreDialer) proxyConfig() *ProxyConfig {
	if d.ProxyConfig != nil {
		return d.ProxyConfig
	}
	return &ProxyConfig{}
}

// resolveForProxy returns the address the proxy should connect to.
func (d *CoreDialer) resolveForProxy(ctx context.Context, host string) (string, error) {
	pc := d.proxyConfig()
	if !pc.ResolveLocally {
		return host, nil
	}
	dnsCfg := pc.ResolveConfig.Merge(d.ResolveConfig)
	if res, ok := dnsCfg.static(host); ok {
		return res, nil
	}
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}
	ips, err := d.lookup(ctx, dnsCfg, host)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	return ips[rand.Intn(len(ips))].String(), nil
}

// DialContextOverProxy creates a connection over http/socks proxy.
// This part of logic may be reused when wrapping *[CoreDialer] into
// a new custom [Dialer]
func (d *CoreDialer) DialContextOverProxy(ctx context.Context, remote, proxyU *url.URL) (net.Conn, error) {
	addr, port := splitHostPort(remote)
	addr, err := d.resolveForProxy(ctx, addr)
	if err != nil {
		return nil, err
	}
	target := net.JoinHostPort(addr, port)

	switch proxyU.Scheme {
	case "http", "https":
		return d.dialConnect(ctx, remote, proxyU, target)
	case "socks", "socks5", "socks5h":
		return d.dialSOCKS5(ctx, proxyU, target)
	}
	return nil, fmt.Errorf("unsupported proxy scheme: %q", proxyU.Scheme)
}

type forwardDialer struct {
	cfg *ResolveConfig
}

func (f forwardDialer) Dial(network, addr string) (net.Conn, error) {
	return f.DialContext(context.Background(), network, addr)
}

func (f forwardDialer) DialContext(ctx context.Context, _, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	return dialTCP(ctx, f.cfg, host, port)
}

func (d *CoreDialer) dialSOCKS5(ctx context.Context, proxyU *url.URL, target string) (net.Conn, error) {
	var auth *proxy.Auth
	if proxyU.User != nil {
		pass, _ := proxyU.User.Password()
		auth = &proxy.Auth{User: proxyU.User.Username(), Password: pass}
	}
	host, port := splitHostPort(proxyU)
	pd, err := proxy.SOCKS5("tcp", net.JoinHostPort(host, port), auth, forwardDialer{d.ResolveConfig})
	if err != nil {
		return nil, err
	}
	if cd, ok := pd.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, "tcp", target)
	}
	return pd.Dial("tcp", target)
}

func (d *CoreDialer) dialConnect(ctx context.Context, remote, proxyU *url.URL, target string) (net.Conn, error) {
	host, port := splitHostPort(proxyU)
	conn, err := dialTCP(ctx, d.ResolveConfig, host, port)
	if err != nil {
		return nil, err
	}

	if proxyU.Scheme == "https" {
		tlsCfg := d.proxyConfig().TLSConfig
		if tlsCfg == nil {
			tlsCfg = d.TLSConfig
		}
		c := tls.Client(conn, d.tlsConfig(tlsCfg, host))
		if err := c.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		conn = c
	}

	connReq := &model.Request{
		Method:     http.MethodConnect,
		HeaderHost: net.JoinHostPort(splitHostPort(remote)),
		U:          &url.URL{Host: target},
		Header:     http.Header{},
		GetBody:    func() (io.ReadCloser, error) { return http.NoBody, nil },
	}
	if u := proxyU.User; u != nil {
		pass, _ := u.Password()
		connReq.Header.Set("Proxy-Authorization",
			"Basic "+base64.StdEncoding.EncodeToString([]byte(u.Username()+":"+pass)))
	}
	if err := h1Transport.Write(ctx, conn, connReq); err != nil {
		conn.Close()
		return nil, err
	}
	resp := &model.Response{}
	if err := h1Transport.Read(ctx, conn, connReq, resp); err != nil {
		conn.Close()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		s, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		conn.Close()
		return nil, fmt.Errorf("proxy server returned error. status:%d, body:%s", resp.StatusCode, string(s))
	}
	// the tunnel outlives the exchange, clear what Read set for it
	_ = conn.SetDeadline(time.Time{})
	return conn, nil
}
