package engine

import (
	"github.com/Garsondee/tilestage/internal/actor"
	"github.com/Garsondee/tilestage/internal/world"
)

// runScript walks steps in order with player input suspended. A step whose
// target cannot be reached is logged and skipped. Activating another map
// abandons the script.
func (g *Game) runScript(steps []world.ScriptStep) {
	g.scriptGen++
	gen := g.scriptGen
	g.scripting = true
	g.stage.SuspendInput()

	var next func(i int)
	next = func(i int) {
		if gen != g.scriptGen {
			return
		}
		if i >= len(steps) {
			g.scripting = false
			g.stage.ResumeInput()
			g.log.Debug("script finished", "steps", len(steps))
			return
		}
		step := steps[i]
		a := g.scriptActor(step.Actor)
		if a == nil {
			g.log.Warn("script actor not found", "actor", step.Actor, "step", i)
			next(i + 1)
			return
		}
		if !g.current.Contains(step.Tile) {
			g.log.Warn("script step outside the map", "actor", a.ID(), "tile", step.Tile, "step", i)
			next(i + 1)
			return
		}
		reached := func() {
			if gen != g.scriptGen {
				return
			}
			if step.Face != nil {
				a.Face(*step.Face)
			}
			next(i + 1)
		}
		failed := func() {
			g.log.Warn("script step unreachable", "actor", a.ID(), "tile", step.Tile, "step", i)
			next(i + 1)
		}
		if !a.MoveToThen(step.Tile, reached, failed) {
			failed()
		}
	}
	next(0)
}

// ScriptRunning reports whether a start script still holds the input.
func (g *Game) ScriptRunning() bool { return g.scripting }

func (g *Game) scriptActor(id string) *actor.Actor {
	if id == "" || (g.player != nil && id == g.player.ID()) {
		return g.player
	}
	a, _ := g.actors.Get(id)
	return a
}
