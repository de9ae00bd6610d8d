package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "serve.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadServeConfigDefaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := loadServeConfig(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.Addr)
	require.Equal(t, "echo", cfg.Mode)
	require.Zero(t, cfg.ReadTimeout)
	require.Zero(t, cfg.MaxConns)
}

func TestLoadServeConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
addr = "127.0.0.1:7777"
mode = "reverse"
read_timeout = "2s"
write_timeout = "3s"
idle_timeout = "1m"
max_conns = 128
max_handlers = 16
`)

	cfg, err := loadServeConfig(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:7777", cfg.Addr)
	require.Equal(t, "reverse", cfg.Mode)
	require.Equal(t, 2*time.Second, cfg.ReadTimeout)
	require.Equal(t, 3*time.Second, cfg.WriteTimeout)
	require.Equal(t, time.Minute, cfg.IdleTimeout)
	require.Equal(t, 128, cfg.MaxConns)
	require.Equal(t, 16, cfg.MaxHandlers)
}

func TestLoadServeConfigBlankAddrKeepsDefault(t *testing.T) {
	path := writeConfig(t, `addr = "  "`)

	cfg, err := loadServeConfig(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.Addr)
}

func TestLoadServeConfigBadDuration(t *testing.T) {
	path := writeConfig(t, `read_timeout = "soon"`)

	_, err := loadServeConfig(path)
	require.ErrorContains(t, err, "parse read_timeout")
}

func TestLoadServeConfigMissingFile(t *testing.T) {
	_, err := loadServeConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestServerConfigTLSRequiresBoth(t *testing.T) {
	cfg := defaultServeConfig()
	cfg.TLSCert = "cert.pem"

	_, err := cfg.serverConfig()
	require.ErrorContains(t, err, "tls requires both")
}

func TestHandlerForMode(t *testing.T) {
	echo, err := handlerForMode("echo")
	require.NoError(t, err)

	out, err := echo.HandleMessage(nil, []byte("abc"))
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), out)

	reverse, err := handlerForMode("reverse")
	require.NoError(t, err)

	out, err = reverse.HandleMessage(nil, []byte("abc"))
	require.NoError(t, err)
	require.Equal(t, []byte("cba"), out)

	_, err = handlerForMode("shout")
	require.Error(t, err)
}
