//go:build ebiten

package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"gridabm/internal/render"
	"gridabm/internal/ui"
	"gridabm/pkg/core"
)

// Game adapts a model to the ebiten.Game interface.
type Game struct {
	cfg     *Config
	log     *slog.Logger
	model   core.Model
	painter *render.GridPainter
	hud     *ui.HUD
	pace    *core.FixedStep

	tps      int
	paused   bool
	tickOnce bool
	seed     int64
}

// New builds the configured model and wraps it in a Game.
func New(cfg *Config, log *slog.Logger) (*Game, error) {
	g := &Game{
		cfg:  cfg,
		log:  log,
		hud:  ui.NewHUD(cfg.Panel),
		pace: core.NewFixedStep(cfg.TPS),
		tps:  cfg.TPS,
	}
	if err := g.Reset(cfg.Seed); err != nil {
		return nil, err
	}
	return g, nil
}

// Model returns the model currently shown.
func (g *Game) Model() core.Model { return g.model }

// Reset rebuilds the model from scratch with the provided seed.
func (g *Game) Reset(seed int64) error {
	m, err := g.cfg.Build(seed, core.Options{Logger: g.log})
	if err != nil {
		return err
	}
	g.model = m
	g.seed = seed
	grid := m.Sim().Grid()
	g.painter = render.NewGridPainter(grid.Width(), grid.Height(), render.PaletteFor(m.Name()))
	g.tickOnce = false
	return nil
}

// Update handles per-frame input and advances the simulation at its own pace.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		g.tickOnce = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		if err := g.Reset(g.seed); err != nil {
			return err
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		if err := g.Reset(time.Now().UnixNano()); err != nil {
			return err
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) || inpututil.IsKeyJustPressed(ebiten.KeyKPAdd) {
		g.setTPS(g.tps * 2)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) || inpututil.IsKeyJustPressed(ebiten.KeyKPSubtract) {
		g.setTPS(g.tps / 2)
	}

	sim := g.model.Sim()
	due := g.pace.ShouldStep()
	if sim.State() != core.Terminated && (g.tickOnce || (!g.paused && due)) {
		g.tickOnce = false
		if err := sim.Step(context.Background()); err != nil {
			// The run is over; keep the window up so the error shows in the panel.
			g.log.Error("step failed", "step", sim.Steps(), "err", err)
			g.paused = true
		}
	}
	g.hud.Update(g.model, g.paused, g.tps)
	return nil
}

func (g *Game) setTPS(tps int) {
	g.tps = min(max(tps, 1), 960)
	g.pace.SetTPS(g.tps)
}

// Draw renders the grid and the status panel.
func (g *Game) Draw(screen *ebiten.Image) {
	g.painter.Blit(screen, g.model.Cells(), g.cfg.Scale)
	w, h := g.painter.Size()
	g.hud.Draw(screen, w*g.cfg.Scale, h*g.cfg.Scale)
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	w, h := g.painter.Size()
	return w*g.cfg.Scale + g.hud.Width(), h * g.cfg.Scale
}
