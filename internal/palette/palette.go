// Package palette assigns visually distinct colors to runs.
//
// Two strategies share the Assigner contract: a Halton low-discrepancy
// sequence, which spreads any number of colors evenly over the RGB cube, and
// a short named palette of eight familiar colors.
package palette

import (
	"fmt"
	"image/color"
	"math"
)

// RGB is a color with channels in [0, 1].
type RGB struct {
	R, G, B float64
}

// RGBA implements color.Color.
func (c RGB) RGBA() (r, g, b, a uint32) {
	return uint32(channel8(c.R)) * 0x101, uint32(channel8(c.G)) * 0x101, uint32(channel8(c.B)) * 0x101, 0xffff
}

// NRGBA converts the color to 8-bit channels.
func (c RGB) NRGBA() color.NRGBA {
	return color.NRGBA{R: channel8(c.R), G: channel8(c.G), B: channel8(c.B), A: 0xff}
}

// Hex returns the color as #rrggbb.
func (c RGB) Hex() string {
	n := c.NRGBA()
	return fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B)
}

func channel8(v float64) uint8 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(v * 255))
}

// Assigner maps a run's position in a comparison to its color.
type Assigner interface {
	Assign(runIndex int) RGB
}

// NamedPalette is a fixed list of colors, cycled when there are more runs
// than entries.
type NamedPalette struct {
	Names  []string
	Colors []RGB
}

// Named returns the default eight-color palette: blue, red, green, cyan,
// magenta, dark orange, yellow and black.
func Named() *NamedPalette {
	return &NamedPalette{
		Names: []string{"blue", "red", "green", "cyan", "magenta", "darkorange", "yellow", "black"},
		Colors: []RGB{
			{0, 0, 1},
			{1, 0, 0},
			{0, 0.5, 0},
			{0, 0.75, 0.75},
			{0.75, 0, 0.75},
			{1, 140.0 / 255, 0},
			{0.75, 0.75, 0},
			{0, 0, 0},
		},
	}
}

// Assign implements Assigner.
func (p *NamedPalette) Assign(runIndex int) RGB {
	if len(p.Colors) == 0 {
		return RGB{}
	}
	i := runIndex % len(p.Colors)
	if i < 0 {
		i += len(p.Colors)
	}
	return p.Colors[i]
}

// New returns the assigner for a strategy name: "halton" or "named".
func New(strategy string, offset int) (Assigner, error) {
	switch strategy {
	case "", "named":
		return Named(), nil
	case "halton":
		return NewHalton(offset), nil
	default:
		return nil, fmt.Errorf("unknown palette %q (want halton or named)", strategy)
	}
}
