package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadEffectiveConfigPrecedence(t *testing.T) {
	fileCfg := &Config{}
	fileCfg.Server.Address = "10.0.0.1"
	fileCfg.Server.Port = 9000
	fileCfg.Server.DBPath = "/data/file"

	envCfg := &Config{}
	envCfg.Server.Address = "10.0.0.2"
	envCfg.Server.Port = 9100
	envCfg.Server.DBPath = "/data/env"

	t.Run("explicit config flag uses the file only", func(t *testing.T) {
		flags := Flags{Config: "cfg.yaml", Set: map[string]bool{"config": true}}
		eff, err := LoadEffectiveConfig(flags, fileCfg, true, envCfg, EnvResult{})
		require.NoError(t, err)
		assert.Equal(t, "config", eff.Source)
		assert.Equal(t, "10.0.0.1:9000", eff.Addr)
		assert.Equal(t, "/data/file", eff.DBPath)
	})

	t.Run("explicit config flag with missing file fails", func(t *testing.T) {
		flags := Flags{Config: "missing.yaml", Set: map[string]bool{"config": true}}
		_, err := LoadEffectiveConfig(flags, &Config{}, false, envCfg, EnvResult{})
		assert.Error(t, err)
	})

	t.Run("addr and db flags win", func(t *testing.T) {
		flags := Flags{Addr: ":7070", DB: "/data/flag", Set: map[string]bool{"addr": true, "db": true}}
		eff, err := LoadEffectiveConfig(flags, fileCfg, true, envCfg, EnvResult{})
		require.NoError(t, err)
		assert.Equal(t, "flags", eff.Source)
		assert.Equal(t, ":7070", eff.Addr)
		assert.Equal(t, "/data/flag", eff.DBPath)
	})

	t.Run("partial flags backfill from env then file", func(t *testing.T) {
		flags := Flags{Addr: ":7070", Set: map[string]bool{"addr": true}}
		eff, err := LoadEffectiveConfig(flags, fileCfg, true, envCfg, EnvResult{})
		require.NoError(t, err)
		assert.Equal(t, ":7070", eff.Addr)
		assert.Equal(t, "/data/env", eff.DBPath)
	})

	t.Run("present file beats env when no flags set", func(t *testing.T) {
		eff, err := LoadEffectiveConfig(Flags{Set: map[string]bool{}}, fileCfg, true, envCfg, EnvResult{})
		require.NoError(t, err)
		assert.Equal(t, "config", eff.Source)
		assert.Equal(t, "/data/file", eff.DBPath)
	})

	t.Run("env is the fallback", func(t *testing.T) {
		eff, err := LoadEffectiveConfig(Flags{Set: map[string]bool{}}, &Config{}, false, envCfg, EnvResult{EnvUsed: true})
		require.NoError(t, err)
		assert.Equal(t, "env", eff.Source)
		assert.Equal(t, "10.0.0.2:9100", eff.Addr)
	})
}

func TestParseConfigEnvs(t *testing.T) {
	t.Setenv("ARENACHAT_ADDR", "127.0.0.1:9999")
	t.Setenv("ARENACHAT_DB_PATH", "/data/env")
	t.Setenv("ARENACHAT_API_BACKEND_KEYS", "bk1, bk2,")
	t.Setenv("ARENACHAT_RATE_RPS", "2.5")

	envCfg, res := ParseConfigEnvs()
	assert.True(t, res.EnvUsed)
	assert.Equal(t, "127.0.0.1:9999", envCfg.Addr())
	assert.Equal(t, "/data/env", envCfg.Server.DBPath)
	assert.Equal(t, 2.5, envCfg.Security.RateLimit.RPS)
	assert.Len(t, res.BackendKeys, 2)
	// backend keys double as signing keys
	assert.Len(t, res.SigningKeys, 2)
}

func TestYAMLSizeAndDuration(t *testing.T) {
	var cfg Config
	raw := `
server:
  max_body_bytes: 1MB
delivery:
  settle_timeout: 250ms
  slow_request_threshold: 2
retention:
  period: 720h
`
	require.NoError(t, yaml.Unmarshal([]byte(raw), &cfg))
	assert.Equal(t, int64(1000000), cfg.Server.MaxBodyBytes.Int64())
	assert.Equal(t, 250*time.Millisecond, cfg.Delivery.SettleTimeout.Duration())
	// bare numbers are seconds
	assert.Equal(t, 2*time.Second, cfg.Delivery.SlowRequestThreshold.Duration())
	assert.Equal(t, 720*time.Hour, cfg.Retention.Period.Duration())
}

func TestRuntimeFromConfigFoldsEnvKeys(t *testing.T) {
	cfg := &Config{}
	cfg.Security.APIKeys.Backend = []string{"bk-file"}
	cfg.Security.APIKeys.Admin = []string{"ak-file"}

	rc := RuntimeFromConfig(cfg, EnvResult{BackendKeys: KeySet([]string{"bk-env"})})
	assert.Len(t, rc.BackendKeys, 2)
	assert.Len(t, rc.AdminKeys, 1)
	// signing keys mirror the merged backend set
	assert.Equal(t, rc.BackendKeys, rc.SigningKeys)
}

func TestAddrDefaults(t *testing.T) {
	c := &Config{}
	assert.Equal(t, "0.0.0.0:8080", c.Addr())
}
