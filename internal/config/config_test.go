package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Config.Database.URL (required)")
}

func TestLoadAppliesDefaultsAndEnvironment(t *testing.T) {
	t.Setenv("QUERYSTUDY_DATABASE__URL", "postgres://localhost/querystudy")
	t.Setenv("QUERYSTUDY_DATABASE__MAX_CONNS", "4")
	t.Setenv("QUERYSTUDY_SERVER__READ_TIMEOUT", "3s")
	t.Setenv("QUERYSTUDY_LOG__LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Env)
	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	require.Equal(t, 10*time.Second, cfg.Server.WriteTimeout)
	require.Equal(t, "postgres://localhost/querystudy", cfg.Database.URL)
	require.Equal(t, int32(4), cfg.Database.MaxConns)
	require.Equal(t, int32(2), cfg.Database.MinConns)
	require.Equal(t, "debug", cfg.Log.Level)
	require.True(t, cfg.Development())
}

func TestLoadReadsYAMLBelowEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "querystudy.yaml")
	body := `env: prod
server:
  addr: ":9090"
database:
  url: postgres://file/querystudy
  auto_migrate: true
log:
  level: warn
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("QUERYSTUDY_DATABASE__URL", "postgres://env/querystudy")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "prod", cfg.Env)
	require.False(t, cfg.Development())
	require.Equal(t, ":9090", cfg.Server.Addr)
	require.Equal(t, "postgres://env/querystudy", cfg.Database.URL)
	require.True(t, cfg.Database.AutoMigrate)
	require.Equal(t, "json", cfg.Log.Format)
}

func TestLoadKeepsEveryDefault(t *testing.T) {
	t.Setenv("QUERYSTUDY_DATABASE__URL", "postgres://localhost/querystudy")

	cfg, err := Load("")
	require.NoError(t, err)
	want := Defaults()
	want.Database.URL = "postgres://localhost/querystudy"
	require.Equal(t, want, *cfg)
}

func TestLoadLayersDefaultsFileAndEnvironment(t *testing.T) {
	doc, err := yaml.Marshal(map[string]any{
		"server":   map[string]any{"read_timeout": "5s", "write_timeout": "7s"},
		"database": map[string]any{"url": "postgres://file/querystudy", "max_conns": 6, "identity_map_size": 64},
		"tracing":  map[string]any{"enabled": true, "sample_ratio": 0.5},
	})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "querystudy.yaml")
	require.NoError(t, os.WriteFile(path, doc, 0o600))
	t.Setenv("QUERYSTUDY_SERVER__WRITE_TIMEOUT", "9s")
	t.Setenv("QUERYSTUDY_DATABASE__MAX_CONNS", "8")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Server.Addr, "default")
	require.Equal(t, 60*time.Second, cfg.Server.IdleTimeout, "default")
	require.Equal(t, 5*time.Second, cfg.Server.ReadTimeout, "file over default")
	require.Equal(t, 9*time.Second, cfg.Server.WriteTimeout, "environment over file")
	require.Equal(t, int32(8), cfg.Database.MaxConns, "environment over file")
	require.Equal(t, int32(2), cfg.Database.MinConns, "default")
	require.Equal(t, 64, cfg.Database.IdentityMapSize)
	require.True(t, cfg.Tracing.Enabled)
	require.InDelta(t, 0.5, cfg.Tracing.SampleRatio, 1e-9)
	require.True(t, cfg.Metrics.Enabled, "default")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Database.URL = "postgres://localhost/querystudy"
	require.NoError(t, Validate(&cfg))

	cfg.Env = "moon"
	require.ErrorContains(t, Validate(&cfg), "Config.Env (oneof)")

	cfg = Defaults()
	cfg.Database.URL = "postgres://localhost/querystudy"
	cfg.Database.MinConns = 20
	require.ErrorContains(t, Validate(&cfg), "exceeds database.max_conns")

	require.Error(t, Validate(nil))
}
