package fitness

import (
	"math/rand/v2"
	"testing"

	"github.com/pthm-cable/crucible/chem"
	"github.com/pthm-cable/crucible/config"
	"github.com/pthm-cable/crucible/dev"
	"github.com/pthm-cable/crucible/genome"
	"github.com/pthm-cable/crucible/grid"
	"github.com/pthm-cable/crucible/sensors"
)

func testEvaluator() *Evaluator {
	return NewEvaluator(
		config.FitnessConfig{
			Floor:            1e-9,
			LifetimeTicks:    60,
			ReproThreshold:   20,
			WeightLifespan:   0.25,
			WeightEfficiency: 0.25,
			WeightRepro:      0.25,
			WeightComplexity: 0.25,
		},
		config.DevelopmentConfig{Steps: 40, ZygoteEnergy: 4},
	)
}

func testGenome(t *testing.T) *genome.Genotype {
	t.Helper()
	g := genome.Protocell(chem.NewRegistry(), chem.KingdomCarbon, 1)
	if err := g.Validate(); err != nil {
		t.Fatalf("test genome invalid: %v", err)
	}
	return g
}

func TestFloorCases(t *testing.T) {
	ev := testEvaluator()
	g := testGenome(t)
	ruleless := g.Clone()
	ruleless.Rules = nil

	tests := []struct {
		name string
		org  *dev.Organism
	}{
		{"nil organism", nil},
		{"nil genome", &dev.Organism{Steps: 10}},
		{"no rules", &dev.Organism{Genome: ruleless, Steps: 10}},
		{"dead on arrival", &dev.Organism{Genome: g, Steps: 0, Lifespan: 0}},
		{"died during development", &dev.Organism{Genome: g, Steps: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ev.Score(tt.org); got != ev.Floor() {
				t.Errorf("Score = %v, want floor %v", got, ev.Floor())
			}
		})
	}
}

func TestSurvivorScoresAboveFloor(t *testing.T) {
	ev := testEvaluator()
	o := &dev.Organism{
		Genome:         testGenome(t),
		Developed:      true,
		Steps:          40,
		Lifespan:       60,
		EnergyProduced: 50,
		EnergyConsumed: 30,
		FinalEnergy:    8,
	}
	if got := ev.Score(o); got <= ev.Floor() {
		t.Errorf("Score = %v, want above floor", got)
	}
}

func TestWeightsPreferGenomeObjectives(t *testing.T) {
	ev := testEvaluator()
	g := testGenome(t)

	w := ev.Weights(g)
	if w.Lifespan != 0.25 || w.Efficiency != 0.25 {
		t.Errorf("config weights not applied: %+v", w)
	}

	g.Objectives = &genome.Weights{Lifespan: 0.9, Efficiency: 0.1}
	w = ev.Weights(g)
	if w.Lifespan != 0.9 || w.Efficiency != 0.1 {
		t.Errorf("genome objectives not preferred: %+v", w)
	}
}

func TestTermsAreBounded(t *testing.T) {
	ev := testEvaluator()
	// Pathological inputs: enormous production, full budget, huge bank.
	o := &dev.Organism{
		Genome:         testGenome(t),
		Developed:      true,
		Steps:          40,
		Lifespan:       60,
		EnergyProduced: 1e9,
		EnergyConsumed: 0.001,
		FinalEnergy:    1e9,
		Offspring:      1000,
	}
	// lifespan<=1, efficiency<=10, repro<=1, complexity<=1, equal weights 0.25.
	if got, max := ev.Score(o), 0.25*(1+10+1+1); got > max {
		t.Errorf("Score = %v, exceeds bound %v", got, max)
	}
}

func TestReproProxyCountsBankAndOffspring(t *testing.T) {
	ev := NewEvaluator(
		config.FitnessConfig{
			Floor:          1e-9,
			LifetimeTicks:  0,
			ReproThreshold: 20,
			WeightRepro:    1,
		},
		config.DevelopmentConfig{Steps: 10},
	)
	g := testGenome(t)

	half := &dev.Organism{Genome: g, Developed: true, Steps: 10, FinalEnergy: 10}
	full := &dev.Organism{Genome: g, Developed: true, Steps: 10, FinalEnergy: 10, Offspring: 1}

	if hs, fs := ev.Score(half), ev.Score(full); hs >= fs {
		t.Errorf("offspring did not raise repro score: %v vs %v", hs, fs)
	}
	if got := ev.Score(full); got > 1 {
		t.Errorf("repro term exceeded cap: %v", got)
	}
}

func testDevEngine(w, h, steps int, zygote float64) *dev.Engine {
	g := grid.New(w, h, 1, grid.DefaultOptions())
	return dev.New(g, chem.NewRegistry(), sensors.NewRegistry(),
		config.PhysicsConfig{
			PhotosynthesisScale: 1,
			ChemosynthesisScale: 1,
			MetabolicScale:      1,
			BlastScale:          1,
			CarcassFraction:     0.5,
		},
		config.DevelopmentConfig{Steps: steps, ZygoteEnergy: zygote})
}

// An organism whose only rule kills it partway through its developmental
// budget must score exactly the floor, no matter what it banked first.
func TestDeathDuringDevelopmentScoresFloor(t *testing.T) {
	ev := testEvaluator()
	eng := testDevEngine(10, 10, 40, 4)
	g := &genome.Genotype{
		Kingdom: chem.KingdomCarbon,
		Components: []genome.ComponentGene{{
			Name:    "Stem",
			Kingdom: chem.KingdomCarbon,
			Props:   chem.Properties{Mass: 1, Integrity: 3, Photosynthesis: 2, Storage: 1.5},
		}},
		Rules: []genome.RuleGene{{
			Condition: genome.Compare("age", genome.CmpGE, 3),
			Action:    genome.Action{Kind: genome.ActionDie},
			Priority:  1,
			Enabled:   true,
		}},
	}

	o, err := eng.Develop(g, 0, rand.New(rand.NewPCG(99, 0)))
	if err != nil {
		t.Fatalf("Develop failed: %v", err)
	}
	if o.Alive {
		t.Fatal("organism should have died during development")
	}
	if o.CellCount() != 0 {
		t.Fatalf("cell count = %d, want 0 after death", o.CellCount())
	}
	if got := ev.Score(o); got != ev.Floor() {
		t.Errorf("Score = %v, want floor %v", got, ev.Floor())
	}
}

// The canonical grower, run through a real engine, must land strictly above
// the floor once development succeeds.
func TestStemScenarioScoresAboveFloor(t *testing.T) {
	ev := NewEvaluator(
		config.FitnessConfig{
			Floor:            1e-9,
			LifetimeTicks:    0,
			ReproThreshold:   20,
			WeightLifespan:   0.25,
			WeightEfficiency: 0.25,
			WeightRepro:      0.25,
			WeightComplexity: 0.25,
		},
		config.DevelopmentConfig{Steps: 5, ZygoteEnergy: 6},
	)
	eng := testDevEngine(10, 10, 5, 6)
	g := &genome.Genotype{
		Kingdom: chem.KingdomCarbon,
		Components: []genome.ComponentGene{{
			Name:    "Stem",
			Kingdom: chem.KingdomCarbon,
			Props:   chem.Properties{Mass: 1, Integrity: 3, Photosynthesis: 2, Storage: 1.5},
		}},
		Rules: []genome.RuleGene{{
			Condition: genome.Compare("energy", genome.CmpGT, 5),
			Action:    genome.Action{Kind: genome.ActionGrow, Component: "Stem"},
			Priority:  1,
			Enabled:   true,
		}},
	}

	o, err := eng.Develop(g, 0, rand.New(rand.NewPCG(99, 0)))
	if err != nil {
		t.Fatalf("Develop failed: %v", err)
	}
	if !o.Developed {
		t.Fatal("stem grower should survive its developmental budget")
	}
	if got := ev.Score(o); got <= ev.Floor() {
		t.Errorf("Score = %v, want strictly above floor %v", got, ev.Floor())
	}
}
