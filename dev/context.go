package dev

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/crucible/components"
	"github.com/pthm-cable/crucible/grid"
	"github.com/pthm-cable/crucible/sensors"
)

// buildContext assembles the sensor view for one cell: its own state, the
// hosting grid cell's fields, and the immediate neighborhood. The maps are
// shared by reference; conditions only read.
func (e *Engine) buildContext(o *Organism, ent ecs.Entity) sensors.Context {
	st := e.stateMap.Get(ent)
	pos := e.posMap.Get(ent)

	ctx := sensors.Context{
		Energy: st.Energy,
		Health: st.Health,
		Age:    float64(st.Age),

		Memory:  st.Memory,
		Timers:  st.Timers,
		Signals: st.SignalsIn,

		Light:       e.grid.Get(grid.FieldLight, pos.X, pos.Y),
		Minerals:    e.grid.Get(grid.FieldMinerals, pos.X, pos.Y),
		Water:       e.grid.Get(grid.FieldWater, pos.X, pos.Y),
		Temperature: e.grid.Get(grid.FieldTemperature, pos.X, pos.Y),
		Detritus:    e.grid.Get(grid.FieldDetritus, pos.X, pos.Y),
	}

	e.nbuf = e.grid.Neighbors(e.nbuf[:0], pos.X, pos.Y)
	for _, p := range e.nbuf {
		i := p.Y*e.grid.W + p.X
		if !e.occupied[i] {
			ctx.FreeSpace++
			continue
		}
		nEnt := e.occ[i]
		nst := e.stateMap.Get(nEnt)
		nmem := e.memMap.Get(nEnt)
		foreign := nmem.Organism != o.Slot
		if foreign && nst.Active(components.StatusCamouflaged) {
			// Camouflaged foreigners read as empty space.
			ctx.FreeSpace++
			continue
		}
		ctx.Neighbors = append(ctx.Neighbors, sensors.NeighborState{
			Energy:  nst.Energy,
			Health:  nst.Health,
			Foreign: foreign,
		})
	}
	return ctx
}
