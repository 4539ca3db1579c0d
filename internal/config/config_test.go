package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localbridge-dev/localbridge/pkg/types"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9120, cfg.Port)
	assert.Equal(t, 60, cfg.DefaultTTLMinutes)
	assert.Equal(t, 300, cfg.DecisionTimeoutSeconds)
	assert.Equal(t, 5000, cfg.AuditCapacity)
	assert.Contains(t, cfg.DeniedExtensions, ".env")
	assert.Contains(t, cfg.DeniedExtensions, ".pem")
}

func TestLoad_JSONCFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.jsonc")
	content := `{
		// workspace served to the agent
		"workspaceRoots": ["/home/u/project"],
		"port": 9200,
		"defaultTtlMinutes": 30,
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/home/u/project"}, cfg.WorkspaceRoots)
	assert.Equal(t, 9200, cfg.Port)
	assert.Equal(t, 30, cfg.DefaultTTLMinutes)
	// Untouched fields keep their defaults.
	assert.Equal(t, "127.0.0.1", cfg.Host)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.yaml")
	content := "workspaceRoots:\n  - /home/u/code\nport: 9300\ntoken: sekrit\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/home/u/code"}, cfg.WorkspaceRoots)
	assert.Equal(t, 9300, cfg.Port)
	assert.Equal(t, "sekrit", cfg.Token)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BRIDGE_PORT", "9999")
	t.Setenv("BRIDGE_WORKSPACE_ROOTS", "/a,/b")
	t.Setenv("BRIDGE_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, []string{"/a", "/b"}, cfg.WorkspaceRoots)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_GeneratesToken(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Token)

	other, err := Load("")
	require.NoError(t, err)
	assert.NotEqual(t, cfg.Token, other.Token)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.Config)
		ok     bool
	}{
		{"valid", func(c *types.Config) { c.WorkspaceRoots = []string{"/w"} }, true},
		{"no roots", func(c *types.Config) {}, false},
		{"bad port", func(c *types.Config) {
			c.WorkspaceRoots = []string{"/w"}
			c.Port = 0
		}, false},
		{"negative ttl", func(c *types.Config) {
			c.WorkspaceRoots = []string{"/w"}
			c.DefaultTTLMinutes = -1
		}, false},
		{"zero decision timeout", func(c *types.Config) {
			c.WorkspaceRoots = []string{"/w"}
			c.DecisionTimeoutSeconds = 0
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, types.IsValidationError(err))
			}
		})
	}
}
