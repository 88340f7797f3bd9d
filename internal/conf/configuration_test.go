package conf

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-xhr/internal/log"
	"github.com/frankli0324/go-xhr/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xhr.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func resetServer(t *testing.T) {
	prev := Server
	t.Cleanup(func() {
		Server = prev
		_ = log.SetLevel("info")
	})
}

func TestLoadDefaults(t *testing.T) {
	resetServer(t)
	t.Chdir(t.TempDir()) // no xhr.yaml around
	require.NoError(t, Load(""))

	assert.Equal(t, "info", Server.LogLevel)
	assert.Equal(t, 30*time.Second, Server.Timeout)
	assert.EqualValues(t, 100, Server.MaxConnsPerHost)
	assert.EqualValues(t, 80, Server.MaxIdlePerHost)
	assert.Equal(t, "go-xhr", Server.UserAgent)
	assert.Nil(t, Server.Limiter())
	assert.Empty(t, Server.ConfigFile)
}

func TestLoadFileAndEnv(t *testing.T) {
	resetServer(t)
	path := writeConfig(t, `
loglevel: debug
timeout: 5s
useragent: custom
baseurl: http://api.example.com/v1/
proxy: socks5://127.0.0.1:1080
statichosts:
  api.example.com: 127.0.0.1
ratelimit: 2.5
ratelimitburst: 0
`)
	t.Setenv("XHR_TIMEOUT", "7s")
	require.NoError(t, Load(path))

	assert.Equal(t, path, Server.ConfigFile)
	assert.Equal(t, 7*time.Second, Server.Timeout, "environment wins over the file")
	assert.Equal(t, "debug", log.CurrentLevel())
	assert.Equal(t, map[string]string{"api.example.com": "127.0.0.1"}, Server.StaticHosts)

	lim := Server.Limiter()
	require.NotNil(t, lim)
	assert.EqualValues(t, 2.5, lim.Limit())
	assert.Equal(t, 1, lim.Burst())

	d := Server.Dialer()
	require.NotNil(t, d.GetProxy)
	p, err := d.GetProxy(context.Background(), &model.Request{})
	require.NoError(t, err)
	assert.Equal(t, "socks5://127.0.0.1:1080", p)
	assert.Equal(t, "127.0.0.1", d.ResolveConfig.StaticHosts["api.example.com"])

	f := Server.HandleFactory(d)
	assert.Equal(t, "custom", f.UserAgent)
	assert.Equal(t, 7*time.Second, f.Timeout)
	assert.Equal(t, "http://api.example.com/v1/", f.BaseURL.String())
	assert.Same(t, d, f.Dialer)
}

func TestLoadErrors(t *testing.T) {
	for name, content := range map[string]string{
		"LogLevel":    "loglevel: loud\n",
		"Network":     "network: ipx\n",
		"ProxyScheme": "proxy: ftp://127.0.0.1\n",
		"RateLimit":   "ratelimit: -1\n",
		"Malformed":   "timeout: [\n",
		"BadDuration": "timeout: soon\n",
	} {
		t.Run(name, func(t *testing.T) {
			resetServer(t)
			before := Server
			assert.Error(t, Load(writeConfig(t, content)))
			assert.Same(t, before, Server, "a failed load keeps the previous config")
		})
	}
}

func TestMissingExplicitFile(t *testing.T) {
	resetServer(t)
	assert.Error(t, Load(filepath.Join(t.TempDir(), "missing.yaml")))
}
