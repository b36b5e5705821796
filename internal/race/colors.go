package race

import (
	"image/color"
	"math/rand/v2"
)

// PaletteSize is the number of distinct track colors; ids wrap modulo this size.
const PaletteSize = 100

// ColorTable maps track ids to display colors. It is built once and only read afterwards.
type ColorTable [PaletteSize]color.RGBA

// NewColorTable builds a deterministic palette from seed.
func NewColorTable(seed uint64) *ColorTable {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	var t ColorTable
	for i := range t {
		t[i] = color.RGBA{
			R: uint8(rng.IntN(256)),
			G: uint8(rng.IntN(256)),
			B: uint8(rng.IntN(256)),
			A: 255,
		}
	}
	return &t
}

// Color returns the color for trackID mod PaletteSize.
func (t *ColorTable) Color(trackID int) color.RGBA {
	i := trackID % PaletteSize
	if i < 0 {
		i += PaletteSize
	}
	return t[i]
}
