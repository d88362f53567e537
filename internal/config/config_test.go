package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	path := write(t, "sceneweaver.yaml", `
version: 1
store:
  backend: remote
  base_url: https://stories.example.org/api
  timeout: 3s
auth:
  user_id: "42"
drafts:
  backend: redis
  redis:
    addr: redis:6379
    ttl: 3600
layout:
  node_sep: 80
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "remote", cfg.Store.Backend)
	assert.Equal(t, "https://stories.example.org/api", cfg.Store.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Store.Timeout)
	assert.Equal(t, "42", cfg.Auth.UserID)
	assert.Equal(t, "redis", cfg.Drafts.Backend)
	assert.Equal(t, "redis:6379", cfg.Drafts.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Drafts.Redis.TTL)
	assert.Equal(t, "sceneweaver:draft:", cfg.Drafts.Redis.Prefix, "unset keys keep their default")
	assert.Equal(t, 80.0, cfg.Layout.NodeSep)
	assert.Equal(t, 50.0, cfg.Layout.RankSep)
}

func TestLoad_JSON(t *testing.T) {
	path := write(t, "sceneweaver.json", `{"version": 1, "server": {"port": 9000}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", "version: 1\nstroe: {}\n", "invalid config"},
		{"bad version", "version: 2\n", "unsupported config version"},
		{"bad yaml", "version: [\n", "failed to parse"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(write(t, "c.yaml", tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvToken, "secret")
	t.Setenv(EnvStoreURL, "http://override")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Auth.Token)
	assert.Equal(t, "http://override", cfg.Store.BaseURL)
}
