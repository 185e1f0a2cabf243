package stream

import (
	"context"
	"time"

	"gridabm/pkg/core"
)

// Drive steps m at tps steps per second, publishing a frame before the first
// step and after every step. It returns when the run terminates or ctx ends,
// with the simulation's fatal error if it had one.
func Drive(ctx context.Context, m core.Model, hub *Hub, tps int) error {
	if err := hub.Publish(ctx, FrameOf(m)); err != nil {
		return err
	}
	pace := core.NewFixedStep(tps)
	ticker := time.NewTicker(max(pace.Interval()/4, time.Millisecond))
	defer ticker.Stop()

	sim := m.Sim()
	for sim.State() != core.Terminated {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if !pace.ShouldStep() {
			continue
		}
		if err := sim.Step(ctx); err != nil {
			return err
		}
		if err := hub.Publish(ctx, FrameOf(m)); err != nil {
			return err
		}
	}
	return sim.Err()
}
