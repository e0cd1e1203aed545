package config

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

type ApplicationConfig struct {
	Name   string `toml:"name"`
	X      uint32 `toml:"x"`
	Y      uint32 `toml:"y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	// Backend selects the graphics backend: "vulkan" or "opengl".
	Backend string `toml:"backend"`
	// Validation enables the backend debug/validation layer when available.
	Validation bool `toml:"validation"`
	// AdapterPreference is a case-insensitive substring matched against
	// adapter names. Empty means "first viable".
	AdapterPreference string `toml:"adapter_preference"`
	// ShaderDir is watched for shader source changes (hot reload).
	ShaderDir string `toml:"shader_dir"`
}

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Renderer    RendererConfig    `toml:"renderer"`
}

func Default() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:   "Spartan",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			Backend:    "vulkan",
			Validation: true,
			ShaderDir:  "assets/shaders",
		},
	}
}

// Load reads a TOML config file. A missing file is not an error: defaults
// are returned instead.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}
