// Package fitness scores developed organisms. The score is a weighted sum of
// lifespan, metabolic efficiency, reproductive success, and structural
// complexity; weights come from configuration, or from the genome itself
// when autotelic evolution is enabled.
package fitness

import (
	"github.com/pthm-cable/crucible/config"
	"github.com/pthm-cable/crucible/dev"
	"github.com/pthm-cable/crucible/genome"
)

const efficiencyEpsilon = 1e-6

// Evaluator scores organisms against a fixed configuration.
type Evaluator struct {
	cfg config.FitnessConfig
	// lifeBudget is the total step budget a perfect survivor reaches:
	// developmental steps plus lifetime ticks.
	lifeBudget float64
}

// NewEvaluator builds an evaluator from fitness and development settings.
func NewEvaluator(cfg config.FitnessConfig, devCfg config.DevelopmentConfig) *Evaluator {
	return &Evaluator{
		cfg:        cfg,
		lifeBudget: float64(devCfg.Steps + cfg.LifetimeTicks),
	}
}

// Floor is the score assigned to organisms that failed validation, died
// before evaluation, or panicked the engine. Strictly positive so selection
// probabilities stay well-defined.
func (ev *Evaluator) Floor() float64 { return ev.cfg.Floor }

// Weights resolves the effective weights for a genome: the genome's own
// objectives when it carries them, global configuration otherwise.
func (ev *Evaluator) Weights(g *genome.Genotype) genome.Weights {
	if g.Objectives != nil {
		return *g.Objectives
	}
	return genome.Weights{
		Lifespan:   ev.cfg.WeightLifespan,
		Efficiency: ev.cfg.WeightEfficiency,
		Repro:      ev.cfg.WeightRepro,
		Complexity: ev.cfg.WeightComplexity,
	}
}

// Score computes the fitness of a developed organism. A dead-on-arrival or
// rule-less organism scores the floor. Every term is bounded, so no single
// objective can dominate through runaway values.
func (ev *Evaluator) Score(o *dev.Organism) float64 {
	if o == nil || o.Genome == nil || len(o.Genome.Rules) == 0 {
		return ev.cfg.Floor
	}
	// Dead at the end of development means zero cells and no evaluation;
	// death during the lifetime loop keeps partial lifespan credit.
	if !o.Developed {
		return ev.cfg.Floor
	}
	survived := float64(o.Steps + o.Lifespan)
	if survived <= 0 {
		return ev.cfg.Floor
	}
	w := ev.Weights(o.Genome)

	lifespan := survived / ev.lifeBudget
	efficiency := o.EnergyProduced / (o.EnergyConsumed + efficiencyEpsilon)
	if efficiency > 10 {
		efficiency = 10
	}
	// Reproduction proxy: energy banked toward the reproduction threshold,
	// with each completed REPRODUCE counting as a full threshold.
	banked := o.FinalEnergy + float64(o.Offspring)*ev.cfg.ReproThreshold
	repro := banked / ev.cfg.ReproThreshold
	if repro > 1 {
		repro = 1
	}
	complexity := o.Genome.Complexity() / 100
	if complexity > 1 {
		complexity = 1
	}

	score := w.Lifespan*lifespan +
		w.Efficiency*efficiency +
		w.Repro*repro +
		w.Complexity*complexity

	if score < ev.cfg.Floor {
		return ev.cfg.Floor
	}
	return score
}
