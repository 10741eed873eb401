package dev

import (
	"math/rand/v2"
	"testing"

	"github.com/pthm-cable/crucible/chem"
	"github.com/pthm-cable/crucible/components"
	"github.com/pthm-cable/crucible/config"
	"github.com/pthm-cable/crucible/genome"
	"github.com/pthm-cable/crucible/grid"
	"github.com/pthm-cable/crucible/sensors"
)

func testPhysics() config.PhysicsConfig {
	return config.PhysicsConfig{
		PhotosynthesisScale: 1,
		ChemosynthesisScale: 1,
		MetabolicScale:      1,
		BlastScale:          1,
		CarcassFraction:     0.5,
	}
}

func testEngine(w, h, steps int, zygote float64) *Engine {
	g := grid.New(w, h, 1, grid.DefaultOptions())
	return New(g, chem.NewRegistry(), sensors.NewRegistry(),
		testPhysics(),
		config.DevelopmentConfig{Steps: steps, ZygoteEnergy: zygote})
}

// stemGenome is the canonical single-component grower: one photosynthetic
// stem and one energy-gated growth rule.
func stemGenome(threshold float64) *genome.Genotype {
	return &genome.Genotype{
		Kingdom: chem.KingdomCarbon,
		Components: []genome.ComponentGene{{
			Name:    "Stem",
			Kingdom: chem.KingdomCarbon,
			Props:   chem.Properties{Mass: 1, Integrity: 3, Photosynthesis: 2, Storage: 1.5},
		}},
		Rules: []genome.RuleGene{{
			Condition: genome.Compare("energy", genome.CmpGT, threshold),
			Action:    genome.Action{Kind: genome.ActionGrow, Component: "Stem"},
			Priority:  1,
			Enabled:   true,
		}},
	}
}

func devRNG() *rand.Rand {
	return rand.New(rand.NewPCG(99, 0))
}

func TestZeroRuleGenomeStaysSingleCell(t *testing.T) {
	eng := testEngine(10, 10, 40, 4)
	g := stemGenome(5)
	g.Rules = nil

	o, err := eng.Develop(g, 0, devRNG())
	if err != nil {
		t.Fatalf("Develop failed: %v", err)
	}
	if o.CellCount() != 1 {
		t.Errorf("cell count = %d, want exactly the zygote", o.CellCount())
	}
	if o.Steps != 0 {
		t.Errorf("steps = %d, want development terminated after step 0", o.Steps)
	}
	if !o.Alive {
		t.Error("zygote should be alive at termination")
	}
}

func TestDevelopRejectsInvalidGenome(t *testing.T) {
	eng := testEngine(10, 10, 40, 4)
	g := stemGenome(5)
	g.Rules[0].Action.Component = "Missing"

	if _, err := eng.Develop(g, 0, devRNG()); err == nil {
		t.Error("expected validation error for unknown component reference")
	}
}

func TestDevelopmentIsDeterministic(t *testing.T) {
	run := func() *Organism {
		eng := testEngine(10, 10, 20, 6)
		o, err := eng.Develop(stemGenome(5), 0, devRNG())
		if err != nil {
			t.Fatalf("Develop failed: %v", err)
		}
		return o
	}
	a, b := run(), run()

	if a.CellCount() != b.CellCount() {
		t.Errorf("cell counts differ: %d vs %d", a.CellCount(), b.CellCount())
	}
	if a.Steps != b.Steps {
		t.Errorf("steps differ: %d vs %d", a.Steps, b.Steps)
	}
	if a.FinalEnergy != b.FinalEnergy {
		t.Errorf("final energy differs: %v vs %v", a.FinalEnergy, b.FinalEnergy)
	}
	if a.EnergyProduced != b.EnergyProduced {
		t.Errorf("energy produced differs: %v vs %v", a.EnergyProduced, b.EnergyProduced)
	}
}

// The canonical growth scenario: a 10x10 grid, a 5-step budget, and an
// energy-gated stem. Growth must happen but stays bounded by the budget.
func TestStemGrowthScenario(t *testing.T) {
	eng := testEngine(10, 10, 5, 6)
	o, err := eng.Develop(stemGenome(5), 0, devRNG())
	if err != nil {
		t.Fatalf("Develop failed: %v", err)
	}
	if o.CellCount() < 2 {
		t.Errorf("cell count = %d, want growth beyond the zygote", o.CellCount())
	}
	if o.CellCount() > 5 {
		t.Errorf("cell count = %d, want at most 5 after a 5-step budget", o.CellCount())
	}
}

func TestGrowConflictLoserFailsSilently(t *testing.T) {
	// A 3x1 strip: cells at both ends, one shared free position between.
	g := grid.New(3, 1, 1, grid.DefaultOptions())
	eng := New(g, chem.NewRegistry(), sensors.NewRegistry(),
		testPhysics(), config.DevelopmentConfig{Steps: 1, ZygoteEnergy: 10})

	gen := stemGenome(0)
	gen.Rules[0].Condition = genome.Always()
	o := newOrganism(0, gen)
	eng.organisms = append(eng.organisms, o)
	eng.spawnCell(o, 0, 0, 0, 10)
	eng.spawnCell(o, 0, 2, 0, 10)

	eng.Step(o, false)

	if o.CellCount() != 3 {
		t.Fatalf("cell count = %d, want 3 (one GROW wins, one fails silently)", o.CellCount())
	}
	seen := make(map[components.Position]bool)
	for _, c := range o.Cells {
		pos := *eng.posMap.Get(c)
		if seen[pos] {
			t.Fatalf("two cells share position %+v", pos)
		}
		seen[pos] = true
	}
}

func TestOccupancyStaysUniqueUnderAggressiveGrowth(t *testing.T) {
	eng := testEngine(6, 6, 10, 8)
	gen := stemGenome(0)
	gen.Rules[0].Condition = genome.Always()

	o, err := eng.Develop(gen, 0, devRNG())
	if err != nil {
		t.Fatalf("Develop failed: %v", err)
	}
	seen := make(map[components.Position]bool)
	for _, c := range o.Cells {
		pos := *eng.posMap.Get(c)
		if seen[pos] {
			t.Fatalf("two cells share position %+v", pos)
		}
		seen[pos] = true
	}
}

func TestTimersNeverGoNegative(t *testing.T) {
	eng := testEngine(5, 5, 0, 10)
	gen := stemGenome(0)
	gen.Rules = []genome.RuleGene{{
		// Re-arm the timer only once it has fully expired.
		Condition: genome.Compare("timer:stage", genome.CmpLE, 0),
		Action:    genome.Action{Kind: genome.ActionSetTimer, Key: "stage", Duration: 2},
		Priority:  1,
		Enabled:   true,
	}}

	o, err := eng.Develop(gen, 0, devRNG())
	if err != nil {
		t.Fatalf("Develop failed: %v", err)
	}
	for step := 0; step < 8; step++ {
		eng.Step(o, false)
		if !o.Alive {
			break
		}
		for _, c := range o.Cells {
			st := eng.stateMap.Get(c)
			for k, v := range st.Timers {
				if v < 0 {
					t.Fatalf("timer %q went negative (%d) at step %d", k, v, step)
				}
			}
		}
	}
}

func TestLifetimeFreezesGrowth(t *testing.T) {
	eng := testEngine(8, 8, 5, 8)
	gen := stemGenome(0)
	gen.Rules[0].Condition = genome.Always()

	o, err := eng.Develop(gen, 0, devRNG())
	if err != nil {
		t.Fatalf("Develop failed: %v", err)
	}
	grown := o.CellCount()
	eng.Lifetime(o, 3)
	if o.CellCount() > grown {
		t.Errorf("cell count grew during lifetime: %d -> %d", grown, o.CellCount())
	}
}

func TestDieDepositsDetritus(t *testing.T) {
	eng := testEngine(5, 5, 1, 10)
	gen := stemGenome(0)
	gen.Rules = []genome.RuleGene{{
		Condition: genome.Always(),
		Action:    genome.Action{Kind: genome.ActionDie},
		Priority:  1,
		Enabled:   true,
	}}

	o, err := eng.Develop(gen, 0, devRNG())
	if err != nil {
		t.Fatalf("Develop failed: %v", err)
	}
	if o.Alive {
		t.Error("organism should be dead after its only cell executed DIE")
	}
	if o.Developed {
		t.Error("death during development must not count as developed")
	}
	if total := eng.Grid().Total(grid.FieldDetritus); total <= 0 {
		t.Errorf("detritus total = %v, want a carcass deposit", total)
	}
}

func TestHibernatingCellsSitOutSteps(t *testing.T) {
	eng := testEngine(5, 5, 0, 10)
	gen := stemGenome(0)
	gen.Rules = []genome.RuleGene{{
		Condition: genome.Always(),
		Action:    genome.Action{Kind: genome.ActionEmitSignal, Key: "beacon", Value: 1},
		Priority:  1,
		Enabled:   true,
	}}

	o, err := eng.Develop(gen, 0, devRNG())
	if err != nil {
		t.Fatalf("Develop failed: %v", err)
	}
	cell := o.Cells[0]
	eng.stateMap.Get(cell).Statuses[components.StatusHibernating] = 3

	eng.Step(o, false)

	if out := eng.stateMap.Get(cell).SignalsOut; len(out) != 0 {
		t.Errorf("hibernating cell emitted %v, want nothing", out)
	}
}

func TestRuleToggleIsOrganismLocal(t *testing.T) {
	eng := testEngine(5, 5, 0, 10)
	gen := stemGenome(0)
	gen.Rules = []genome.RuleGene{
		{
			Condition: genome.Always(),
			Action:    genome.Action{Kind: genome.ActionDisableRule, Rule: 1},
			Priority:  2,
			Enabled:   true,
		},
		{
			Condition: genome.Always(),
			Action:    genome.Action{Kind: genome.ActionEmitSignal, Key: "beacon", Value: 1},
			Priority:  1,
			Enabled:   true,
		},
	}

	o, err := eng.Develop(gen, 0, devRNG())
	if err != nil {
		t.Fatalf("Develop failed: %v", err)
	}
	eng.Step(o, false)

	if o.RuleEnabled(1) {
		t.Error("rule 1 should be disabled for this organism")
	}
	if !gen.Rules[1].Enabled {
		t.Error("genome's own enabled flag must never be written during a lifetime")
	}
}

func TestClearRemovesEverything(t *testing.T) {
	eng := testEngine(8, 8, 5, 6)
	if _, err := eng.Develop(stemGenome(5), 0, devRNG()); err != nil {
		t.Fatalf("Develop failed: %v", err)
	}
	eng.Clear()

	if len(eng.organisms) != 0 {
		t.Errorf("organisms after Clear = %d, want 0", len(eng.organisms))
	}
	for i, used := range eng.occupied {
		if used {
			t.Fatalf("occupancy index %d still set after Clear", i)
		}
	}
}
