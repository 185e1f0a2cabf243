package render

import (
	"image/color"
	"slices"
	"testing"
)

func TestFillPaletteRGBA(t *testing.T) {
	p := Palette{{R: 1, A: 255}, {G: 2, A: 255}}
	buf := make([]byte, 12)
	fillPaletteRGBA(buf, []uint8{0, 1, 9}, p)
	want := []byte{1, 0, 0, 255, 0, 2, 0, 255, 0, 2, 0, 255}
	if !slices.Equal(buf, want) {
		t.Fatalf("buf = %v, want %v", buf, want)
	}

	fillPaletteRGBA(buf, []uint8{1, 1, 1}, nil)
	if !slices.Equal(buf, make([]byte, 12)) {
		t.Fatalf("empty palette left %v", buf)
	}
}

func TestPaletteFor(t *testing.T) {
	if got := PaletteFor("wolfsheep"); len(got) != 4 || got[3] != (color.RGBA{R: 200, G: 50, B: 50, A: 255}) {
		t.Fatalf("wolfsheep palette = %v", got)
	}
	if len(PaletteFor("schelling")) != 5 || len(PaletteFor("wealth")) == 0 {
		t.Fatal("missing palettes")
	}
}
