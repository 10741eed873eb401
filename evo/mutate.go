package evo

import (
	"math"
	"math/rand/v2"

	"github.com/pthm-cable/crucible/chem"
	"github.com/pthm-cable/crucible/genome"
	"github.com/pthm-cable/crucible/sensors"
)

// Perturbation scales. Masses drift lognormally so they stay positive and
// scale-relative; everything else gets bounded gaussian noise.
const (
	massSigma      = 0.15
	propSigma      = 0.25
	thresholdSigma = 0.5
	prioritySigma  = 0.5
	valueSigma     = 0.3
	rateSigma      = 0.1
	weightSigma    = 0.1
)

// mutate applies the three variation tiers in order: parametric noise,
// structural edits, then meta-innovation. boost is the phenotype-earned
// addition to the genome's own mutation rate; an open hypermutation window
// multiplies both rates.
func (e *Engine) mutate(g *genome.Genotype, boost float64) {
	hyper := e.hyperMultiplier()
	rate := clamp01((g.MutationRate + boost) * hyper)
	rng := e.rng

	e.mutateParametric(g, rate, rng)

	if rng.Float64() < clamp01(g.InnovationRate*hyper) {
		e.mutateStructural(g, rng)
	}
	if rng.Float64() < e.cfg.Evolution.MetaRate {
		e.mutateMeta(g, rng)
	}
}

// mutateParametric perturbs continuous values: rule thresholds and
// priorities, action parameters, component properties, and the genome's own
// evolvable hyperparameters.
func (e *Engine) mutateParametric(g *genome.Genotype, rate float64, rng *rand.Rand) {
	for i := range g.Rules {
		r := &g.Rules[i]
		if rng.Float64() < rate {
			perturbCondition(&r.Condition, rng)
		}
		if rng.Float64() < rate {
			r.Priority += rng.NormFloat64() * prioritySigma
		}
		if rng.Float64() < rate && r.Action.Value != 0 {
			r.Action.Value *= math.Exp(rng.NormFloat64() * valueSigma)
		}
		if rng.Float64() < rate && r.Action.Duration > 0 {
			r.Action.Duration += rng.IntN(3) - 1
			if r.Action.Duration < 1 {
				r.Action.Duration = 1
			}
		}
	}
	for i := range g.Components {
		if rng.Float64() >= rate {
			continue
		}
		p := &g.Components[i].Props
		p.Mass *= math.Exp(rng.NormFloat64() * massSigma)
		p.Integrity += rng.NormFloat64() * propSigma
		p.Photosynthesis += rng.NormFloat64() * propSigma
		p.Chemosynthesis += rng.NormFloat64() * propSigma
		p.Compute += rng.NormFloat64() * propSigma
		p.Armor += rng.NormFloat64() * propSigma
		p.Conductivity += rng.NormFloat64() * propSigma
		p.Storage += rng.NormFloat64() * propSigma
		p.Clamp()
	}

	if rng.Float64() < rate {
		g.MutationRate = clampRange(g.MutationRate*math.Exp(rng.NormFloat64()*rateSigma), 0.01, 1)
	}
	if rng.Float64() < rate {
		g.InnovationRate = clampRange(g.InnovationRate*math.Exp(rng.NormFloat64()*rateSigma), 0.001, 1)
	}
	if e.cfg.Evolution.Autotelic && g.Objectives != nil && rng.Float64() < rate {
		w := g.Objectives
		w.Lifespan = clampRange(w.Lifespan+rng.NormFloat64()*weightSigma, 0, 10)
		w.Efficiency = clampRange(w.Efficiency+rng.NormFloat64()*weightSigma, 0, 10)
		w.Repro = clampRange(w.Repro+rng.NormFloat64()*weightSigma, 0, 10)
		w.Complexity = clampRange(w.Complexity+rng.NormFloat64()*weightSigma, 0, 10)
	}
}

func perturbCondition(c *genome.Condition, rng *rand.Rand) {
	if c.Op == genome.CondCmp {
		c.Threshold += rng.NormFloat64() * thresholdSigma
		return
	}
	for i := range c.Children {
		perturbCondition(&c.Children[i], rng)
	}
}

// mutateStructural adds or removes one gene: a rule, or a component sampled
// from a chemical-base template under an invented name.
func (e *Engine) mutateStructural(g *genome.Genotype, rng *rand.Rand) {
	switch rng.IntN(4) {
	case 0: // add rule
		g.Rules = append(g.Rules, genome.RuleGene{
			Condition: e.randomCondition(rng, 0),
			Action:    e.randomAction(g, rng),
			Priority:  rng.Float64() * 5,
			Enabled:   true,
		})
	case 1: // remove rule
		if len(g.Rules) > 1 {
			i := rng.IntN(len(g.Rules))
			g.Rules = append(g.Rules[:i], g.Rules[i+1:]...)
			fixRuleIndices(g, i)
		}
	case 2: // invent component
		tmpl := e.chems.PickTemplate(g.Kingdom, rng)
		props := tmpl.Sample(rng)
		name := chem.InventName(rng)
		if g.ComponentIndex(name) < 0 {
			g.Components = append(g.Components, genome.ComponentGene{
				Name:    name,
				Kingdom: tmpl.Kingdom,
				Props:   props,
			})
		}
	default: // remove an unreferenced component
		if len(g.Components) > 1 {
			i := rng.IntN(len(g.Components))
			if i > 0 && !componentReferenced(g, g.Components[i].Name) {
				g.Components = append(g.Components[:i], g.Components[i+1:]...)
			}
		}
	}
}

// fixRuleIndices repairs ENABLE_RULE / DISABLE_RULE targets after rule
// removal so the genome stays valid.
func fixRuleIndices(g *genome.Genotype, removed int) {
	for i := range g.Rules {
		a := &g.Rules[i].Action
		if a.Kind != genome.ActionEnableRule && a.Kind != genome.ActionDisableRule {
			continue
		}
		if a.Rule == removed || a.Rule >= len(g.Rules) {
			a.Rule = 0
		} else if a.Rule > removed {
			a.Rule--
		}
	}
}

func componentReferenced(g *genome.Genotype, name string) bool {
	for i := range g.Rules {
		if g.Rules[i].Action.Component == name {
			return true
		}
	}
	// The zygote is always built from component 0.
	return len(g.Components) > 0 && g.Components[0].Name == name
}

// mutateMeta is the rarest tier: invent a new sensory modality for the whole
// run, or drift a physical constant of the universe.
func (e *Engine) mutateMeta(g *genome.Genotype, rng *rand.Rand) {
	if rng.Float64() < 0.5 {
		ev := e.senses.Invent(rng)
		e.event("evolved sensor %q", ev.Name)
		return
	}
	e.driftPhysics(rng)
}

func (e *Engine) driftPhysics(rng *rand.Rand) {
	drift := func(v float64) float64 {
		return clampRange(v*math.Exp(rng.NormFloat64()*0.05), 0.1, 10)
	}
	p := &e.physics
	switch rng.IntN(4) {
	case 0:
		p.PhotosynthesisScale = drift(p.PhotosynthesisScale)
		e.event("physics drift: photosynthesis scale %.3f", p.PhotosynthesisScale)
	case 1:
		p.ChemosynthesisScale = drift(p.ChemosynthesisScale)
		e.event("physics drift: chemosynthesis scale %.3f", p.ChemosynthesisScale)
	case 2:
		p.MetabolicScale = drift(p.MetabolicScale)
		e.event("physics drift: metabolic scale %.3f", p.MetabolicScale)
	default:
		p.BlastScale = drift(p.BlastScale)
		e.event("physics drift: blast scale %.3f", p.BlastScale)
	}
}

// randomCondition samples the condition grammar: mostly comparison leaves,
// occasionally a shallow conjunction or disjunction.
func (e *Engine) randomCondition(rng *rand.Rand, depth int) genome.Condition {
	if depth < 2 && rng.Float64() < 0.25 {
		a := e.randomCondition(rng, depth+1)
		b := e.randomCondition(rng, depth+1)
		if rng.Float64() < 0.5 {
			return genome.All(a, b)
		}
		return genome.Any(a, b)
	}
	name := e.randomSensor(rng)
	ops := []genome.CmpOp{genome.CmpGT, genome.CmpLT, genome.CmpGE, genome.CmpLE}
	return genome.Compare(name, ops[rng.IntN(len(ops))], rng.Float64()*5)
}

func (e *Engine) randomSensor(rng *rand.Rand) string {
	base := sensors.BaseSensors()
	evolved := e.senses.Names()
	i := rng.IntN(len(base) + len(evolved))
	if i < len(base) {
		return base[i]
	}
	return evolved[i-len(base)]
}

// mutationActionKinds are the kinds structural mutation may mint rules for.
var mutationActionKinds = []genome.ActionKind{
	genome.ActionGrow, genome.ActionDifferentiate, genome.ActionDie,
	genome.ActionSplit, genome.ActionReproduce,
	genome.ActionSetState, genome.ActionSetTimer, genome.ActionEmitSignal,
	genome.ActionNetwork, genome.ActionTransferEnergy,
	genome.ActionAttack, genome.ActionSteal, genome.ActionPoison,
	genome.ActionAbsorb, genome.ActionDetonate, genome.ActionRadiate,
	genome.ActionFortify, genome.ActionCamouflage, genome.ActionHibernate,
	genome.ActionSpore, genome.ActionRegenerate, genome.ActionMutateSelf,
	genome.ActionMove, genome.ActionMineResource, genome.ActionHarvestCorpse,
	genome.ActionTerraform, genome.ActionEmitLight, genome.ActionAdapt,
	genome.ActionEnableRule, genome.ActionDisableRule, genome.ActionSymbiote,
	genome.ActionModifyTimer,
}

var mutationKeys = []string{"drive", "stage", "mood", "charge", "beacon"}

var terraformKeys = []string{"light", "minerals", "water", "temperature"}

// randomAction builds a parameterized action referencing only genes present
// in this genome, so structural mutation never produces an invalid genome.
func (e *Engine) randomAction(g *genome.Genotype, rng *rand.Rand) genome.Action {
	kind := mutationActionKinds[rng.IntN(len(mutationActionKinds))]
	a := genome.Action{Kind: kind}

	switch kind {
	case genome.ActionGrow, genome.ActionDifferentiate, genome.ActionSplit, genome.ActionSpore:
		a.Component = g.Components[rng.IntN(len(g.Components))].Name
	case genome.ActionEnableRule, genome.ActionDisableRule:
		if len(g.Rules) > 0 {
			a.Rule = rng.IntN(len(g.Rules))
		}
	case genome.ActionSetState, genome.ActionEmitSignal:
		a.Key = mutationKeys[rng.IntN(len(mutationKeys))]
		a.Value = rng.Float64() * 2
	case genome.ActionSetTimer, genome.ActionModifyTimer:
		a.Key = mutationKeys[rng.IntN(len(mutationKeys))]
		a.Duration = 1 + rng.IntN(5)
		a.Value = float64(rng.IntN(5) - 2)
	case genome.ActionNetwork:
		a.Key = mutationKeys[rng.IntN(len(mutationKeys))]
	case genome.ActionTerraform:
		a.Key = terraformKeys[rng.IntN(len(terraformKeys))]
		a.Value = rng.Float64() * 0.5
	case genome.ActionAttack, genome.ActionSteal, genome.ActionPoison,
		genome.ActionRadiate, genome.ActionRegenerate, genome.ActionTransferEnergy,
		genome.ActionMineResource, genome.ActionHarvestCorpse, genome.ActionEmitLight:
		a.Value = 0.25 + rng.Float64()*2
	case genome.ActionFortify, genome.ActionCamouflage, genome.ActionHibernate,
		genome.ActionSymbiote:
		a.Duration = 1 + rng.IntN(6)
	case genome.ActionReproduce:
		a.Value = 2 + rng.Float64()*8
	}
	return a
}

// crossover recombines two parents: matched genes are averaged, and the
// fitter parent contributes everything beyond the shared prefix.
func (e *Engine) crossover(a, b *Member) *genome.Genotype {
	fitter, other := a, b
	if b.Fitness > a.Fitness {
		fitter, other = b, a
	}
	child := fitter.Genome.Clone()
	og := other.Genome

	// Average properties of components the parents share by name.
	for i := range child.Components {
		j := og.ComponentIndex(child.Components[i].Name)
		if j < 0 {
			continue
		}
		cp := &child.Components[i].Props
		op := &og.Components[j].Props
		cp.Mass = (cp.Mass + op.Mass) / 2
		cp.Integrity = (cp.Integrity + op.Integrity) / 2
		cp.Photosynthesis = (cp.Photosynthesis + op.Photosynthesis) / 2
		cp.Chemosynthesis = (cp.Chemosynthesis + op.Chemosynthesis) / 2
		cp.Compute = (cp.Compute + op.Compute) / 2
		cp.Armor = (cp.Armor + op.Armor) / 2
		cp.Conductivity = (cp.Conductivity + op.Conductivity) / 2
		cp.Storage = (cp.Storage + op.Storage) / 2
		cp.Clamp()
	}

	// Average priorities of index-matched rules; conditions and actions
	// keep the fitter parent's structure.
	n := len(child.Rules)
	if len(og.Rules) < n {
		n = len(og.Rules)
	}
	for i := 0; i < n; i++ {
		child.Rules[i].Priority = (child.Rules[i].Priority + og.Rules[i].Priority) / 2
	}

	child.MutationRate = (child.MutationRate + og.MutationRate) / 2
	child.InnovationRate = (child.InnovationRate + og.InnovationRate) / 2
	return child
}

func clamp01(v float64) float64 { return clampRange(v, 0, 1) }

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
