//go:build ebiten

package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"gridabm/internal/app"
	"gridabm/internal/logging"
	_ "gridabm/internal/sims/schelling"
	_ "gridabm/internal/sims/wealth"
	_ "gridabm/internal/sims/wolfsheep"
)

func main() {
	cfg := app.NewConfig()
	cfg.Bind(flag.CommandLine)
	level := flag.String("log-level", "info", "log level: error, warn, info, debug, trace")
	flag.Parse()

	game, err := app.New(cfg, logging.NewLogger(*level, os.Stderr))
	if err != nil {
		log.Fatal(err)
	}
	w, h := game.Layout(0, 0)

	ebiten.SetWindowTitle("gridabm: " + game.Model().Name())
	ebiten.SetTPS(60)
	ebiten.SetWindowSize(w, h)

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}
}
