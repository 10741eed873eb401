package evo

import (
	"github.com/pthm-cable/crucible/chem"
)

// applyRedQueen maintains the parasite profile: the currently dominant
// kingdom takes a fitness penalty proportional to virulence and its
// population share, which keeps any single lineage from converging into a
// monoculture. Recomputed every generation.
func (e *Engine) applyRedQueen() {
	if !e.cfg.RedQueen.Enabled || e.cfg.RedQueen.Virulence <= 0 {
		return
	}
	counts := make(map[chem.Kingdom]int)
	for i := range e.pop {
		counts[e.pop[i].Genome.Kingdom]++
	}

	var dominant chem.Kingdom
	best := 0
	for _, k := range e.chems.Kingdoms() {
		if counts[k] > best {
			dominant, best = k, counts[k]
		}
	}
	if best == 0 {
		return
	}
	share := float64(best) / float64(len(e.pop))
	penalty := 1 - e.cfg.RedQueen.Virulence*share

	for i := range e.pop {
		if e.pop[i].Genome.Kingdom == dominant {
			e.pop[i].Fitness *= penalty
			if e.pop[i].Fitness < e.eval.Floor() {
				e.pop[i].Fitness = e.eval.Floor()
			}
		}
	}
	e.event("red queen: %s dominant (share %.2f, penalty %.2f)", dominant, share, penalty)
}

// applyGroupSelection blends each member's fitness with its colony's mean.
// Colonies are consecutive slots of the configured size, so colony identity
// is stable within a generation and heritable by slot position.
func (e *Engine) applyGroupSelection() {
	if !e.cfg.Group.Enabled || e.cfg.Group.Weight <= 0 {
		return
	}
	size := e.cfg.Group.ColonySize
	if size < 2 {
		size = 2
	}
	w := e.cfg.Group.Weight

	for start := 0; start < len(e.pop); start += size {
		end := start + size
		if end > len(e.pop) {
			end = len(e.pop)
		}
		sum := 0.0
		for i := start; i < end; i++ {
			sum += e.pop[i].Fitness
		}
		mean := sum / float64(end-start)
		for i := start; i < end; i++ {
			e.pop[i].Fitness = (1-w)*e.pop[i].Fitness + w*mean
		}
	}
}

// maybeCataclysm triggers a mass extinction on the configured schedule:
// a random fraction of the offspring is replaced by hypermutated clones of
// random survivors, and the hypermutation window opens to speed niche refill.
func (e *Engine) maybeCataclysm(offspring []Member) {
	c := e.cfg.Cataclysm
	if !c.Enabled {
		return
	}
	periodic := c.Period > 0 && (e.generation+1)%c.Period == 0
	chance := c.Probability > 0 && e.rng.Float64() < c.Probability
	if !periodic && !chance {
		return
	}

	kills := int(c.KillFraction * float64(len(offspring)))
	if kills <= 0 {
		return
	}
	if kills >= len(offspring) {
		kills = len(offspring) - 1
	}

	doomed := e.rng.Perm(len(offspring))[:kills]
	e.hyperRemaining = c.HyperGenerations

	for _, i := range doomed {
		// Survivors are the slots not marked doomed; sampling offspring
		// uniformly and skipping doomed slots keeps it simple and unbiased
		// enough for a refill.
		src := e.rng.IntN(len(offspring))
		child := offspring[src].Genome.Clone()
		e.mutate(child, 0)
		offspring[i] = Member{Genome: child}
	}
	e.event("cataclysm: replaced %d of %d, hypermutation x%.1f for %d generations",
		kills, len(offspring), c.Hypermutation, c.HyperGenerations)
}
