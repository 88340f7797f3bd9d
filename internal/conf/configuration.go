package conf

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/frankli0324/go-xhr/internal/dialer"
	"github.com/frankli0324/go-xhr/internal/log"
	"github.com/frankli0324/go-xhr/internal/wire"
	"github.com/frankli0324/go-xhr/netpool"
)

type configOptions struct {
	ConfigFile      string
	LogLevel        string
	Timeout         time.Duration
	UserAgent       string
	BaseURL         string
	MaxConnsPerHost uint
	MaxIdlePerHost  uint
	IdleTimeout     time.Duration
	Proxy           string // a proxy URL, or "env" for HTTP_PROXY and friends
	StaticHosts     map[string]string
	DNSServer       string
	Network         string
	RateLimit       float64 // requests per second, zero means unlimited
	RateLimitBurst  int
	Metrics         bool
}

var Server = &configOptions{}

func setDefaults(v *viper.Viper) {
	v.SetDefault("configfile", "")
	v.SetDefault("loglevel", "info")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("useragent", "go-xhr")
	v.SetDefault("baseurl", "")
	v.SetDefault("maxconnsperhost", 100)
	v.SetDefault("maxidleperhost", 80)
	v.SetDefault("idletimeout", 90*time.Second)
	v.SetDefault("proxy", "")
	v.SetDefault("statichosts", map[string]string{})
	v.SetDefault("dnsserver", "")
	v.SetDefault("network", "")
	v.SetDefault("ratelimit", 0)
	v.SetDefault("ratelimitburst", 1)
	v.SetDefault("metrics", false)
}

// Load reads cfgFile, or ./xhr.{yaml,toml,json} when cfgFile is empty,
// applies XHR_* environment overrides and replaces Server.
func Load(cfgFile string) error {
	// static host names contain dots, keep them out of the key path
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	setDefaults(v)
	v.SetEnvPrefix("XHR")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("xhr")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config file %q: %w", cfgFile, err)
		}
	}

	opts := &configOptions{}
	if err := v.Unmarshal(opts); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	opts.ConfigFile = v.ConfigFileUsed()
	if err := opts.validate(); err != nil {
		return err
	}
	if err := log.SetLevel(opts.LogLevel); err != nil {
		return err
	}
	Server = opts
	log.Debug("Loaded configuration", "file", opts.ConfigFile, "timeout", opts.Timeout, "proxy", opts.Proxy)
	return nil
}

func (c *configOptions) validate() error {
	switch c.Network {
	case "", "ip", "ip4", "ip6":
	default:
		return fmt.Errorf("invalid network %q, must be one of ip, ip4 or ip6", c.Network)
	}
	if c.Proxy != "" && c.Proxy != "env" {
		u, err := url.Parse(c.Proxy)
		if err != nil {
			return fmt.Errorf("invalid proxy: %w", err)
		}
		switch u.Scheme {
		case "http", "https", "socks", "socks5", "socks5h":
		default:
			return fmt.Errorf("invalid proxy scheme %q", u.Scheme)
		}
	}
	if c.BaseURL != "" {
		if _, err := url.Parse(c.BaseURL); err != nil {
			return fmt.Errorf("invalid baseurl: %w", err)
		}
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("invalid ratelimit %v", c.RateLimit)
	}
	if c.RateLimitBurst < 1 {
		c.RateLimitBurst = 1
	}
	return nil
}

// Dialer builds a dialer with its own connection pool.
func (c *configOptions) Dialer() *dialer.CoreDialer {
	pool := netpool.NewGroup(c.MaxConnsPerHost, c.MaxIdlePerHost)
	pool.IdleTimeout = c.IdleTimeout
	d := &dialer.CoreDialer{
		ConnPool: pool,
		ResolveConfig: &dialer.ResolveConfig{
			CustomDNSServer: c.DNSServer,
			Network:         c.Network,
			StaticHosts:     c.StaticHosts,
		},
	}
	switch c.Proxy {
	case "":
	case "env":
		d.GetProxy = dialer.ProxyFromEnvironment()
	default:
		d.GetProxy = dialer.FixedProxy(c.Proxy)
	}
	return d
}

// HandleFactory returns a wire handle factory dialing through d.
func (c *configOptions) HandleFactory(d dialer.Dialer) *wire.Factory {
	f := &wire.Factory{Dialer: d, Timeout: c.Timeout, UserAgent: c.UserAgent}
	if c.BaseURL != "" {
		f.BaseURL, _ = url.Parse(c.BaseURL) // checked by validate
	}
	return f
}

// Limiter returns nil when no rate limit is configured.
func (c *configOptions) Limiter() *rate.Limiter {
	if c.RateLimit <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(c.RateLimit), c.RateLimitBurst)
}
