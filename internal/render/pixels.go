// Package render turns model cell classes into pixels.
package render

import "image/color"

// Palette maps a cell class to a color. Classes past the end use the last
// entry.
type Palette []color.RGBA

var (
	// Empty cells dark; classes 1.. are model specific.
	schellingPalette = Palette{
		{R: 16, G: 16, B: 20, A: 255},
		{R: 70, G: 130, B: 220, A: 255},
		{R: 230, G: 150, B: 50, A: 255},
		{R: 35, G: 60, B: 110, A: 255},
		{R: 120, G: 70, B: 20, A: 255},
	}
	wolfsheepPalette = Palette{
		{R: 110, G: 80, B: 50, A: 255},
		{R: 60, G: 150, B: 60, A: 255},
		{R: 235, G: 235, B: 235, A: 255},
		{R: 200, G: 50, B: 50, A: 255},
	}
	defaultPalette = Palette{
		{R: 0, G: 0, B: 0, A: 255},
		{R: 80, G: 80, B: 80, A: 255},
		{R: 140, G: 140, B: 140, A: 255},
		{R: 200, G: 200, B: 200, A: 255},
		{R: 255, G: 255, B: 255, A: 255},
	}
)

// PaletteFor returns the palette registered for a model name. Models without
// one get a grayscale ramp, which suits count-valued cells.
func PaletteFor(model string) Palette {
	switch model {
	case "schelling":
		return schellingPalette
	case "wolfsheep":
		return wolfsheepPalette
	default:
		return defaultPalette
	}
}

// fillPaletteRGBA converts cell values into RGBA pixels using a palette. When
// the palette is empty the buffer is cleared to transparent black.
func fillPaletteRGBA(buf []byte, cells []uint8, palette Palette) {
	if len(palette) == 0 {
		clear(buf[:4*len(cells)])
		return
	}
	last := len(palette) - 1
	for i, c := range cells {
		col := palette[min(int(c), last)]
		base := i * 4
		buf[base+0] = col.R
		buf[base+1] = col.G
		buf[base+2] = col.B
		buf[base+3] = col.A
	}
}
