// Package dev is the developmental engine: it grows an organism from a
// single zygote by repeatedly evaluating the genome's regulatory rules
// against local sensor readings and executing the winning actions.
//
// A step is synchronous and four-phased. Signals propagate first, then every
// rule is evaluated against the phase-start state, then matched actions
// execute sequentially in priority order with intra-step visibility, and
// finally timers decay and metabolism settles energy and health. The same
// genome, grid seed, and step budget always produce the same phenotype.
package dev

import (
	"math/rand/v2"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/crucible/chem"
	"github.com/pthm-cable/crucible/components"
	"github.com/pthm-cable/crucible/config"
	"github.com/pthm-cable/crucible/genome"
	"github.com/pthm-cable/crucible/grid"
	"github.com/pthm-cable/crucible/sensors"
)

// metabolic tuning constants; property values scale on top of these.
const (
	upkeepRate     = 0.1  // energy per unit mass per step
	hibernateRate  = 0.25 // upkeep multiplier while hibernating
	photosynthGain = 0.5  // energy per unit light per photosynthesis point
	chemosynthGain = 0.8  // energy per mined mineral per chemosynthesis point
)

// Engine hosts cell entities in an ECS world over a resource grid and runs
// developmental steps and lifetime ticks. One engine per worker; an engine
// is never shared across goroutines.
type Engine struct {
	world  *ecs.World
	grid   *grid.Grid
	chems  *chem.Registry
	senses *sensors.Registry

	physics config.PhysicsConfig
	devCfg  config.DevelopmentConfig

	cellMapper *ecs.Map3[components.Position, components.State, components.Membership]
	posMap     *ecs.Map1[components.Position]
	stateMap   *ecs.Map1[components.State]
	memMap     *ecs.Map1[components.Membership]

	// Occupancy board: at most one cell per grid position.
	occ      []ecs.Entity
	occupied []bool

	// organisms present in the world, in registration order. In reset mode
	// there is one; in persist mode earlier slots remain as live structures.
	organisms []*Organism

	rng  *rand.Rand
	nbuf []grid.Point
}

// New builds an engine over its own ECS world and the given grid.
func New(g *grid.Grid, chems *chem.Registry, senses *sensors.Registry,
	physics config.PhysicsConfig, devCfg config.DevelopmentConfig) *Engine {
	world := ecs.NewWorld()
	return &Engine{
		world:  world,
		grid:   g,
		chems:  chems,
		senses: senses,

		physics: physics,
		devCfg:  devCfg,

		cellMapper: ecs.NewMap3[components.Position, components.State, components.Membership](world),
		posMap:     ecs.NewMap1[components.Position](world),
		stateMap:   ecs.NewMap1[components.State](world),
		memMap:     ecs.NewMap1[components.Membership](world),

		occ:      make([]ecs.Entity, g.W*g.H),
		occupied: make([]bool, g.W*g.H),
	}
}

// Grid returns the engine's resource grid.
func (e *Engine) Grid() *grid.Grid { return e.grid }

// Physics returns the engine's physical constants.
func (e *Engine) Physics() config.PhysicsConfig { return e.physics }

// SetPhysics replaces the physical constants (physics drift).
func (e *Engine) SetPhysics(p config.PhysicsConfig) { e.physics = p }

// Clear removes every cell and organism and restores the grid to its
// initial fields. Reset mode calls this between evaluations.
func (e *Engine) Clear() {
	for _, o := range e.organisms {
		for _, c := range o.Cells {
			e.cellMapper.Remove(c)
		}
		o.Cells = nil
		o.Alive = false
	}
	e.organisms = e.organisms[:0]
	for i := range e.occupied {
		e.occupied[i] = false
	}
	e.grid.Reset()
}

// Develop validates the genome, places its zygote, and runs the full
// developmental step budget. The returned organism stays registered in the
// engine (its cells remain on the grid) until Clear or RemoveOrganism.
func (e *Engine) Develop(g *genome.Genotype, slot int, rng *rand.Rand) (*Organism, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	e.rng = rng

	o := newOrganism(slot, g)
	x, y, ok := e.findSpawn(rng)
	if !ok {
		o.Alive = false
		return o, nil
	}
	e.spawnCell(o, 0, x, y, e.devCfg.ZygoteEnergy)
	e.organisms = append(e.organisms, o)

	// A genome with no rules cannot grow; development ends after step zero
	// with the lone zygote in place.
	if len(g.Rules) == 0 {
		o.Developed = true
		o.FinalEnergy = e.sumEnergy(o)
		return o, nil
	}

	for step := 0; step < e.devCfg.Steps && o.Alive; step++ {
		e.Step(o, false)
		if o.Alive {
			o.Steps++
		}
	}
	o.Developed = o.Alive
	o.FinalEnergy = e.sumEnergy(o)
	return o, nil
}

func (e *Engine) sumEnergy(o *Organism) float64 {
	sum := 0.0
	for _, c := range o.Cells {
		sum += e.stateMap.Get(c).Energy
	}
	return sum
}

// Lifetime runs post-development ticks for the organism. Growth and rule
// rewiring are frozen; metabolism, combat, movement, and signaling continue.
func (e *Engine) Lifetime(o *Organism, ticks int) {
	for t := 0; t < ticks && o.Alive; t++ {
		e.Step(o, true)
		if o.Alive {
			o.Lifespan++
		}
	}
	o.FinalEnergy = e.sumEnergy(o)
}

// RemoveOrganism deletes the organism's remaining cells from the world.
func (e *Engine) RemoveOrganism(o *Organism) {
	for _, c := range o.Cells {
		e.clearOccupancy(c)
		e.cellMapper.Remove(c)
	}
	o.Cells = nil
	o.Alive = false
	for i, reg := range e.organisms {
		if reg == o {
			e.organisms = append(e.organisms[:i], e.organisms[i+1:]...)
			break
		}
	}
}

// findSpawn picks a free position: a few seeded random probes, then a linear
// scan. Returns false only on a completely full grid.
func (e *Engine) findSpawn(rng *rand.Rand) (int, int, bool) {
	for try := 0; try < 16; try++ {
		x, y := rng.IntN(e.grid.W), rng.IntN(e.grid.H)
		if !e.occupied[y*e.grid.W+x] {
			return x, y, true
		}
	}
	for i, used := range e.occupied {
		if !used {
			return i % e.grid.W, i / e.grid.W, true
		}
	}
	return 0, 0, false
}

// spawnCell creates a cell entity and claims its grid position.
func (e *Engine) spawnCell(o *Organism, component int, x, y int, energy float64) ecs.Entity {
	props := &o.Genome.Components[component].Props
	pos := components.Position{X: x, Y: y}
	st := components.NewState(component, energy, props.Integrity)
	mem := components.Membership{Organism: o.Slot}
	ent := e.cellMapper.NewEntity(&pos, &st, &mem)

	e.occ[y*e.grid.W+x] = ent
	e.occupied[y*e.grid.W+x] = true
	o.Cells = append(o.Cells, ent)
	return ent
}

// killCell removes a cell, depositing part of its remains as detritus.
func (e *Engine) killCell(o *Organism, ent ecs.Entity) {
	st := e.stateMap.Get(ent)
	pos := e.posMap.Get(ent)
	props := &o.Genome.Components[st.Component].Props

	carcass := props.Mass * e.physics.CarcassFraction
	if st.Energy > 0 {
		carcass += st.Energy * e.physics.CarcassFraction
	}
	e.grid.Deposit(grid.FieldDetritus, pos.X, pos.Y, carcass)

	e.clearOccupancy(ent)
	o.removeCell(ent)
	e.cellMapper.Remove(ent)
}

func (e *Engine) clearOccupancy(ent ecs.Entity) {
	pos := e.posMap.Get(ent)
	i := pos.Y*e.grid.W + pos.X
	if e.occupied[i] && e.occ[i] == ent {
		e.occupied[i] = false
	}
}

// organismBySlot resolves a slot id to a registered organism, nil if gone.
func (e *Engine) organismBySlot(slot int) *Organism {
	for _, o := range e.organisms {
		if o.Slot == slot {
			return o
		}
	}
	return nil
}

// pending is one matched rule awaiting execution.
type pending struct {
	org      *Organism
	cell     ecs.Entity
	rule     int
	priority float64
	seq      int
}

// Step runs one synchronous simulation step. Only the active organism's
// cells evaluate rules; every registered organism's cells metabolize.
// lifetime restricts the action set to the post-development subset.
func (e *Engine) Step(active *Organism, lifetime bool) {
	e.propagateSignals()
	queue := e.evaluateRules(active, lifetime)

	// Descending priority; stable, so equal priorities keep queue insertion
	// order (cell insertion order, then genome rule order).
	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].priority > queue[j].priority
	})
	for i := range queue {
		p := &queue[i]
		if !e.world.Alive(p.cell) {
			continue // killed earlier this step
		}
		e.execute(p.org, p.cell, &p.org.Genome.Rules[p.rule].Action, lifetime)
	}

	e.decayAndMetabolize()
	e.grid.Step()
}

// propagateSignals sets every cell's incoming signals to the per-key mean of
// what its neighbors emitted last step, then clears outgoing buffers for the
// new step. Two passes so mid-pass clears cannot leak.
func (e *Engine) propagateSignals() {
	type inbox struct {
		ent ecs.Entity
		in  map[string]float64
	}
	inboxes := make([]inbox, 0, 64)

	for _, o := range e.organisms {
		for _, ent := range o.Cells {
			pos := e.posMap.Get(ent)
			in := make(map[string]float64)
			counts := make(map[string]int)

			e.nbuf = e.grid.Neighbors(e.nbuf[:0], pos.X, pos.Y)
			for _, p := range e.nbuf {
				i := p.Y*e.grid.W + p.X
				if !e.occupied[i] {
					continue
				}
				nst := e.stateMap.Get(e.occ[i])
				for _, k := range sensors.SortedKeys(nst.SignalsOut) {
					in[k] += nst.SignalsOut[k]
					counts[k]++
				}
			}
			for k, n := range counts {
				in[k] /= float64(n)
			}
			inboxes = append(inboxes, inbox{ent, in})
		}
	}
	for _, ib := range inboxes {
		st := e.stateMap.Get(ib.ent)
		st.SignalsIn = ib.in
		st.SignalsOut = make(map[string]float64)
	}
}

// evaluateRules builds the action queue: every enabled rule of every active
// cell whose condition holds against the phase-start state. Hibernating
// cells sit steps out.
func (e *Engine) evaluateRules(active *Organism, lifetime bool) []pending {
	var queue []pending
	seq := 0
	rules := active.Genome.Rules

	for _, ent := range active.Cells {
		st := e.stateMap.Get(ent)
		if st.Active(components.StatusHibernating) {
			continue
		}
		ctx := e.buildContext(active, ent)
		for ri := range rules {
			if !active.RuleEnabled(ri) {
				continue
			}
			if lifetime && !rules[ri].Action.Kind.LifetimeRestricted() {
				continue
			}
			if !rules[ri].Condition.Eval(e.senses, &ctx) {
				continue
			}
			queue = append(queue, pending{
				org:      active,
				cell:     ent,
				rule:     ri,
				priority: rules[ri].Priority,
				seq:      seq,
			})
			seq++
		}
	}
	return queue
}

// decayAndMetabolize is phase four: ages cells, counts down timers and
// statuses (never below zero), applies poison, photosynthesis, and upkeep,
// and removes cells whose energy or health is exhausted.
func (e *Engine) decayAndMetabolize() {
	for _, o := range e.organisms {
		// killCell mutates o.Cells; collect first.
		var dead []ecs.Entity

		for _, ent := range o.Cells {
			st := e.stateMap.Get(ent)
			pos := e.posMap.Get(ent)
			props := &o.Genome.Components[st.Component].Props
			st.Age++

			for _, k := range sensors.SortedKeys(st.Timers) {
				if st.Timers[k] > 0 {
					st.Timers[k]--
				}
				if st.Timers[k] <= 0 {
					delete(st.Timers, k)
				}
			}
			for s := range st.Statuses {
				if st.Statuses[s] > 0 {
					st.Statuses[s]--
				}
			}
			if st.Active(components.StatusPoisoned) {
				st.Energy -= st.PoisonPerStep
				o.EnergyConsumed += st.PoisonPerStep
			} else {
				st.PoisonPerStep = 0
			}

			hibernating := st.Active(components.StatusHibernating)

			if props.Photosynthesis > 0 {
				gain := e.grid.Get(grid.FieldLight, pos.X, pos.Y) *
					props.Photosynthesis * photosynthGain * e.physics.PhotosynthesisScale
				if hibernating {
					gain *= 0.5
				}
				st.Energy += gain
				o.EnergyProduced += gain
			}

			upkeep := props.Mass * upkeepRate * e.physics.MetabolicScale
			if hibernating {
				upkeep *= hibernateRate
			}
			st.Energy -= upkeep
			o.EnergyConsumed += upkeep

			limit := 2 + props.Storage*4
			if st.Energy > limit {
				st.Energy = limit
			}
			if st.Energy <= 0 || st.Health <= 0 {
				dead = append(dead, ent)
			}
		}
		for _, ent := range dead {
			e.killCell(o, ent)
		}
	}
}
