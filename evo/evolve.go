// Package evo runs the generational loop: evaluate every genome, apply
// co-evolutionary pressures, select parents by tournament, produce mutated
// offspring, and advance. A run is deterministic in its seed: evaluation
// randomness is keyed by (seed, generation, slot), never by worker identity
// or scheduling order.
package evo

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sync"

	"github.com/pthm-cable/crucible/chem"
	"github.com/pthm-cable/crucible/config"
	"github.com/pthm-cable/crucible/dev"
	"github.com/pthm-cable/crucible/fitness"
	"github.com/pthm-cable/crucible/genome"
	"github.com/pthm-cable/crucible/grid"
	"github.com/pthm-cable/crucible/sensors"
	"github.com/pthm-cable/crucible/telemetry"
)

// Member is one population slot: a genome and its last-computed outcomes.
type Member struct {
	Genome     *genome.Genotype
	Fitness    float64
	Complexity float64
	// Boost carries MUTATE_SELF activations from the evaluated phenotype
	// into the variation of this member's offspring.
	Boost float64
}

// Event is one entry of the accumulated run log.
type Event struct {
	Generation int    `json:"generation"`
	Message    string `json:"message"`
}

// Engine is the evolutionary loop.
type Engine struct {
	cfg    *config.Config
	chems  *chem.Registry
	senses *sensors.Registry

	// physics is the current set of physical constants; meta-innovation
	// drifts it, and it rides along in snapshots.
	physics config.PhysicsConfig
	eval    *fitness.Evaluator

	pop        []Member
	generation int
	seed       uint64
	rng        *rand.Rand

	hyperRemaining int
	events         []Event
	genEvents      []string // events of the generation in flight

	// last evaluated generation's aggregates; offspring after ADVANCE have
	// no fitness until the next EVALUATE.
	lastBest float64
	lastMean float64

	recorder *telemetry.Recorder
	log      *slog.Logger

	// shared is the single engine used in persist (shared-occupancy) mode,
	// where earlier organisms' cells remain on the grid as live structures.
	shared *dev.Engine
}

// New builds an engine with a protocell population cycling through the
// chemical kingdoms. recorder may be nil.
func New(cfg *config.Config, seed uint64, recorder *telemetry.Recorder, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	chems := chem.NewRegistry()
	e := &Engine{
		cfg:      cfg,
		chems:    chems,
		senses:   sensors.NewRegistry(),
		physics:  cfg.Physics,
		eval:     fitness.NewEvaluator(cfg.Fitness, cfg.Development),
		seed:     seed,
		rng:      rand.New(rand.NewPCG(seed, 0)),
		recorder: recorder,
		log:      log,
	}

	kingdoms := chems.Kingdoms()
	e.pop = make([]Member, cfg.Evolution.Population)
	for i := range e.pop {
		k := kingdoms[i%len(kingdoms)]
		g := genome.Protocell(chems, k, uint64(i))
		if cfg.Evolution.Autotelic {
			g.Objectives = &genome.Weights{
				Lifespan:   cfg.Fitness.WeightLifespan,
				Efficiency: cfg.Fitness.WeightEfficiency,
				Repro:      cfg.Fitness.WeightRepro,
				Complexity: cfg.Fitness.WeightComplexity,
			}
		}
		g.MutationRate = cfg.Evolution.MutationRate
		g.InnovationRate = cfg.Evolution.InnovationRate
		e.pop[i] = Member{Genome: g}
	}
	return e
}

// Population returns the current members. Not safe to hold across
// RunGeneration calls.
func (e *Engine) Population() []Member { return e.pop }

// Generation returns the current generation counter.
func (e *Engine) Generation() int { return e.generation }

// Physics returns the current physical constants.
func (e *Engine) Physics() config.PhysicsConfig { return e.physics }

// Events returns the accumulated run log.
func (e *Engine) Events() []Event { return e.events }

// Run executes n generations.
func (e *Engine) Run(n int) {
	for i := 0; i < n; i++ {
		e.RunGeneration()
	}
}

// RunGeneration advances the loop one full cycle:
// EVALUATE, COEVOLVE, SELECT+VARY, CATACLYSM, ADVANCE.
func (e *Engine) RunGeneration() {
	e.genEvents = e.genEvents[:0]
	if e.hyperRemaining > 0 {
		e.hyperRemaining--
	}

	e.evaluate()
	e.applyRedQueen()
	e.applyGroupSelection()

	offspring := e.breed()
	e.maybeCataclysm(offspring)

	e.emitTelemetry()
	e.pop = offspring
	e.generation++
}

// hyperMultiplier is the current mutation scale: elevated while a
// post-cataclysm hypermutation window is open.
func (e *Engine) hyperMultiplier() float64 {
	if e.hyperRemaining > 0 {
		return e.cfg.Cataclysm.Hypermutation
	}
	return 1
}

func (e *Engine) event(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	e.genEvents = append(e.genEvents, msg)
	e.events = append(e.events, Event{Generation: e.generation, Message: msg})
	e.log.Info(msg, "generation", e.generation)
}

// orgRNG derives the deterministic RNG for one organism's evaluation.
func (e *Engine) orgRNG(slot int) *rand.Rand {
	return rand.New(rand.NewPCG(e.seed, uint64(e.generation)<<20|uint64(slot)))
}

func (e *Engine) newGrid() *grid.Grid {
	gc := e.cfg.Grid
	return grid.New(gc.Width, gc.Height, gc.Seed, grid.Options{
		Octaves:      gc.Octaves,
		Scale:        gc.Scale,
		Lacunarity:   gc.Lacunarity,
		Gain:         gc.Gain,
		Diffusion:    gc.Diffusion,
		Decay:        gc.Decay,
		Regen:        gc.Regen,
		Neighborhood: gc.Neighborhood,
	})
}

// evaluate runs development and lifetime for every member and caches
// fitness. Reset mode fans slots out over a worker pool, each worker with
// its own isolated engine and grid; persist mode is inherently serial.
func (e *Engine) evaluate() {
	if e.cfg.Grid.Persist {
		e.evaluateShared()
		return
	}

	workers := e.cfg.Evolution.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(e.pop) {
		workers = len(e.pop)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			eng := dev.New(e.newGrid(), e.chems, e.senses, e.physics, e.cfg.Development)
			for slot := range jobs {
				eng.Clear()
				fit, comp, boost := e.evaluateOne(eng, slot)
				e.pop[slot].Fitness = fit
				e.pop[slot].Complexity = comp
				e.pop[slot].Boost = boost
			}
		}()
	}
	for slot := range e.pop {
		jobs <- slot
	}
	close(jobs)
	wg.Wait()
}

func (e *Engine) newSharedEngine() *dev.Engine {
	return dev.New(e.newGrid(), e.chems, e.senses, e.physics, e.cfg.Development)
}

// evaluateShared evaluates slots in order on one persistent engine. Earlier
// organisms' cells stay on the grid, so later organisms develop among, and
// fight, established structures.
func (e *Engine) evaluateShared() {
	if e.shared == nil {
		e.shared = e.newSharedEngine()
	}
	e.shared.SetPhysics(e.physics)
	e.shared.Clear()
	for slot := range e.pop {
		fit, comp, boost := e.evaluateOne(e.shared, slot)
		e.pop[slot].Fitness = fit
		e.pop[slot].Complexity = comp
		e.pop[slot].Boost = boost
	}
}

// evaluateOne develops and scores a single genome. Any panic inside the
// developmental engine is absorbed here and scored as the floor: a defective
// organism must never abort the generation.
func (e *Engine) evaluateOne(eng *dev.Engine, slot int) (fit, comp float64, boost float64) {
	m := &e.pop[slot]
	comp = m.Genome.Complexity()
	fit = e.eval.Floor()

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("organism evaluation panicked",
				"generation", e.generation, "slot", slot, "panic", r)
			fit = e.eval.Floor()
		}
	}()

	rng := e.orgRNG(slot)
	o, err := eng.Develop(m.Genome, slot, rng)
	if err != nil {
		e.log.Debug("genome failed validation", "slot", slot, "err", err)
		return fit, comp, 0
	}
	if o.Alive && len(m.Genome.Rules) > 0 {
		eng.Lifetime(o, e.cfg.Fitness.LifetimeTicks)
	}
	return e.eval.Score(o), comp, o.MutationBoost
}

// breed produces the next generation: tournament-selected parents, optional
// crossover, then the three mutation tiers.
func (e *Engine) breed() []Member {
	offspring := make([]Member, len(e.pop))
	for i := range offspring {
		pi := e.tournament()
		parent := &e.pop[pi]

		var child *genome.Genotype
		if e.rng.Float64() < e.cfg.Evolution.CrossoverRate {
			qi := e.tournament()
			child = e.crossover(parent, &e.pop[qi])
		} else {
			child = parent.Genome.Clone()
		}
		child.Generation = e.generation + 1
		e.mutate(child, parent.Boost)
		offspring[i] = Member{Genome: child}
	}
	return offspring
}

// tournament samples max(1, pressure*N) members with replacement and returns
// the index of the fittest. Pressure 1 scans the whole population (argmax);
// pressure near 0 degenerates to a uniform random pick.
func (e *Engine) tournament() int {
	n := len(e.pop)
	size := int(e.cfg.Evolution.Pressure * float64(n))
	if size < 1 {
		size = 1
	}
	if size >= n {
		// Full-population tournament is just argmax; don't let sampling
		// with replacement miss the champion.
		best := 0
		for i := 1; i < n; i++ {
			if e.pop[i].Fitness > e.pop[best].Fitness {
				best = i
			}
		}
		return best
	}
	best := e.rng.IntN(n)
	for i := 1; i < size; i++ {
		c := e.rng.IntN(n)
		if e.pop[c].Fitness > e.pop[best].Fitness {
			best = c
		}
	}
	return best
}

// BestFitness returns the best fitness of the last evaluated generation.
func (e *Engine) BestFitness() float64 { return e.lastBest }

// MeanFitness returns the mean fitness of the last evaluated generation.
func (e *Engine) MeanFitness() float64 { return e.lastMean }

// emitTelemetry builds and hands off the generation record; Emit never
// blocks the loop.
func (e *Engine) emitTelemetry() {
	rec := telemetry.Record{Generation: e.generation}
	fitnesses := make([]float64, len(e.pop))
	complexities := make([]float64, len(e.pop))
	for i := range e.pop {
		fitnesses[i] = e.pop[i].Fitness
		complexities[i] = e.pop[i].Complexity
		switch e.pop[i].Genome.Kingdom {
		case chem.KingdomCarbon:
			rec.CountCarbon++
		case chem.KingdomSilicon:
			rec.CountSilicon++
		case chem.KingdomFerrous:
			rec.CountFerrous++
		case chem.KingdomPlasma:
			rec.CountPlasma++
		}
	}
	rec.Summarize(fitnesses, complexities)
	rec.SetEvents(e.genEvents)
	e.lastBest = rec.BestFitness
	e.lastMean = rec.MeanFitness
	if e.recorder != nil {
		e.recorder.Emit(rec)
	}
}
