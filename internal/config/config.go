// Package config loads optional YAML settings for the plot command.
// Values on the command line take precedence over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultYAML documents every setting with its default value.
const DefaultYAML = `# learningcurves plot configuration
version: 1

# x axis: iterations or time (minutes)
x_axis: iterations

# plot primal and dual objective instead of primal suboptimality
dual: false

# add the training error chart, relative to the best loss unless absolute_loss is set
loss: false
absolute_loss: false

# output
format: png
width: 800
height: 480

# colors: named (eight fixed colors) or halton (any number of runs)
palette: named
color_offset: 0

# address of the interactive viewer when no save prefix is given
addr: 127.0.0.1:8080
`

// PlotConfig models the plot settings file.
type PlotConfig struct {
	Version      int    `yaml:"version"`
	XAxis        string `yaml:"x_axis"`
	Dual         bool   `yaml:"dual"`
	Loss         bool   `yaml:"loss"`
	AbsoluteLoss bool   `yaml:"absolute_loss"`
	Format       string `yaml:"format"`
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	Palette      string `yaml:"palette"`
	ColorOffset  int    `yaml:"color_offset"`
	Addr         string `yaml:"addr"`
	Save         string `yaml:"save,omitempty"`
}

// Default returns the built-in settings.
func Default() PlotConfig {
	return PlotConfig{
		Version: 1,
		XAxis:   "iterations",
		Format:  "png",
		Width:   800,
		Height:  480,
		Palette: "named",
		Addr:    "127.0.0.1:8080",
	}
}

// Load reads path on top of the defaults. An empty path or a missing file
// yields the defaults.
func Load(path string) (PlotConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated values and sizes.
func (c PlotConfig) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported version %d", c.Version)
	}
	switch c.XAxis {
	case "iterations", "time":
	default:
		return fmt.Errorf("x_axis must be iterations or time, got %q", c.XAxis)
	}
	switch c.Palette {
	case "named", "halton":
	default:
		return fmt.Errorf("palette must be named or halton, got %q", c.Palette)
	}
	switch c.Format {
	case "png", "svg":
	default:
		return fmt.Errorf("format must be png or svg, got %q", c.Format)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("width and height must be positive")
	}
	if c.ColorOffset < 0 {
		return fmt.Errorf("color_offset cannot be negative")
	}
	return nil
}

// WriteDefault writes DefaultYAML to path unless a file already exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config %s already exists", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(DefaultYAML), 0644)
}
