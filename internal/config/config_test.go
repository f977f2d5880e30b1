// Package config tests.
package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, ":8090", cfg.ListenAddr)
	assert.Equal(t, durationSeconds(120), cfg.ReadinessTimeout)
	assert.Equal(t, durationSeconds(3), cfg.ReadinessPollInterval)
}

func TestLoad_CustomPort(t *testing.T) {
	os.Clearenv()
	t.Setenv("HTTP_PORT", "9090")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
}

func TestAPIKeys(t *testing.T) {
	cfg := &Config{APIKeysRaw: "abc:alice, def:bob"}
	keys, err := cfg.APIKeys()
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, APIKey{Key: "abc", UserID: "alice"}, keys[0])
	assert.Equal(t, APIKey{Key: "def", UserID: "bob"}, keys[1])
}

func TestAPIKeys_Empty(t *testing.T) {
	cfg := &Config{}
	keys, err := cfg.APIKeys()
	require.NoError(t, err)
	assert.Nil(t, keys)
}

func TestAPIKeys_Invalid(t *testing.T) {
	cfg := &Config{APIKeysRaw: "no-colon-here"}
	_, err := cfg.APIKeys()
	assert.Error(t, err)
}

func TestIngressEnabled(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.IngressEnabled())
	cfg.BaseDomain = "agents.example.com"
	assert.True(t, cfg.IngressEnabled())
}
