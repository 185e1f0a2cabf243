//go:build ebiten

package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"gridabm/pkg/core"
)

const (
	panelPadding = 10
	lineHeight   = 15
)

// HUD renders the status panel to the right of the grid view.
type HUD struct {
	width int
	panel *ebiten.Image
	lines []string
}

// NewHUD constructs a HUD of the given panel width.
func NewHUD(width int) *HUD {
	return &HUD{width: max(width, 0)}
}

// Width returns the panel width in pixels.
func (h *HUD) Width() int { return h.width }

// Update refreshes the panel text from the model.
func (h *HUD) Update(m core.Model, paused bool, tps int) {
	h.lines = StatusLines(m, paused, tps)
}

// Draw paints the panel at offsetX with the given height.
func (h *HUD) Draw(screen *ebiten.Image, offsetX, height int) {
	if h.width <= 0 || height <= 0 {
		return
	}
	if h.panel == nil || h.panel.Bounds().Dy() != height {
		h.panel = ebiten.NewImage(h.width, height)
	}
	h.panel.Fill(color.RGBA{R: 16, G: 16, B: 20, A: 255})

	face := basicfont.Face7x13
	title := color.RGBA{R: 200, G: 200, B: 210, A: 255}
	body := color.RGBA{R: 220, G: 220, B: 230, A: 255}
	dim := color.RGBA{R: 160, G: 160, B: 170, A: 255}
	y := panelPadding + lineHeight
	for i, line := range h.lines {
		if y > height-len(Keys)*lineHeight-panelPadding {
			break
		}
		clr := body
		if i == 0 {
			clr = title
		}
		text.Draw(h.panel, line, face, panelPadding, y, clr)
		y += lineHeight
	}
	y = height - panelPadding - (len(Keys)-1)*lineHeight
	for _, k := range Keys {
		text.Draw(h.panel, k, face, panelPadding, y, dim)
		y += lineHeight
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(offsetX), 0)
	screen.DrawImage(h.panel, op)
}
