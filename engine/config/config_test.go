package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spartan.toml")
	content := `
[application]
name = "Demo"
width = 1920
height = 1080

[renderer]
backend = "opengl"
validation = false
adapter_preference = "radeon"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Demo", cfg.Application.Name)
	assert.Equal(t, uint32(1920), cfg.Application.Width)
	assert.Equal(t, "opengl", cfg.Renderer.Backend)
	assert.False(t, cfg.Renderer.Validation)
	assert.Equal(t, "radeon", cfg.Renderer.AdapterPreference)
	// Untouched keys keep their defaults.
	assert.Equal(t, "assets/shaders", cfg.Renderer.ShaderDir)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("[application\nname="), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
