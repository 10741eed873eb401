package dev

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/crucible/genome"
)

// Organism is one developing or living lifeform: a genome plus the ordered
// set of cell entities it has grown. Cells is insertion-ordered and owns all
// per-organism iteration; nothing iterates the ECS world directly.
type Organism struct {
	Slot   int // evaluation slot within the current generation
	Genome *genome.Genotype

	Cells []ecs.Entity
	Alive bool

	// Developed reports whether the organism was still alive when its
	// developmental step budget ended. A false value means development
	// failed and the organism scores the fitness floor.
	Developed bool

	// Development and lifetime accounting for fitness.
	Steps          int // developmental steps survived
	Lifespan       int // lifetime ticks survived
	EnergyProduced float64
	EnergyConsumed float64
	FinalEnergy    float64 // summed cell energy when evaluation ended
	Offspring      int

	// MutationBoost accumulates MUTATE_SELF activations; variation reads it
	// as an additive bump on the genome's own mutation rate.
	MutationBoost float64

	// ruleEnabled is the organism-local copy of each rule's enabled flag,
	// taken at development start. ENABLE_RULE / DISABLE_RULE flip these;
	// the genome itself is never written during a lifetime.
	ruleEnabled []bool
}

func newOrganism(slot int, g *genome.Genotype) *Organism {
	o := &Organism{
		Slot:        slot,
		Genome:      g,
		Alive:       true,
		ruleEnabled: make([]bool, len(g.Rules)),
	}
	for i := range g.Rules {
		o.ruleEnabled[i] = g.Rules[i].Enabled
	}
	return o
}

// RuleEnabled reports whether rule i currently fires for this organism.
func (o *Organism) RuleEnabled(i int) bool {
	return i >= 0 && i < len(o.ruleEnabled) && o.ruleEnabled[i]
}

// CellCount returns the number of live cells.
func (o *Organism) CellCount() int { return len(o.Cells) }

// removeCell drops an entity from the ordered cell list.
func (o *Organism) removeCell(e ecs.Entity) {
	for i, c := range o.Cells {
		if c == e {
			o.Cells = append(o.Cells[:i], o.Cells[i+1:]...)
			break
		}
	}
	if len(o.Cells) == 0 {
		o.Alive = false
	}
}
