package evo

import (
	"fmt"

	"github.com/pthm-cable/crucible/config"
	"github.com/pthm-cable/crucible/genome"
	"github.com/pthm-cable/crucible/grid"
	"github.com/pthm-cable/crucible/sensors"
)

// SnapshotVersion guards restores across incompatible layout changes.
const SnapshotVersion = 1

// Snapshot is the complete checkpoint of a run: population with cached
// fitness, grid fields, generation counter, evolved sensors, drifted
// physics, and the accumulated event log. The on-disk encoding is the
// caller's concern; this is plain serializable data.
type Snapshot struct {
	Version    int    `json:"version"`
	Seed       uint64 `json:"seed"`
	Generation int    `json:"generation"`

	Population []MemberSnapshot `json:"population"`
	Grid       grid.State       `json:"grid"`

	Sensors        []sensors.Evolved    `json:"sensors"`
	Physics        config.PhysicsConfig `json:"physics"`
	Events         []Event              `json:"events"`
	HyperRemaining int                  `json:"hyper_remaining"`
}

// MemberSnapshot is one population slot at checkpoint time.
type MemberSnapshot struct {
	Genome  *genome.Genotype `json:"genome"`
	Fitness float64          `json:"fitness"`
}

// SerializeState captures the engine's full state. The grid snapshot comes
// from the persistent shared engine when one exists, otherwise from a fresh
// reference grid (reset-mode worker grids are ephemeral and identical).
func (e *Engine) SerializeState() *Snapshot {
	s := &Snapshot{
		Version:        SnapshotVersion,
		Seed:           e.seed,
		Generation:     e.generation,
		Population:     make([]MemberSnapshot, len(e.pop)),
		Sensors:        append([]sensors.Evolved(nil), e.senses.Evolved()...),
		Physics:        e.physics,
		Events:         append([]Event(nil), e.events...),
		HyperRemaining: e.hyperRemaining,
	}
	for i := range e.pop {
		s.Population[i] = MemberSnapshot{
			Genome:  e.pop[i].Genome.Clone(),
			Fitness: e.pop[i].Fitness,
		}
	}
	if e.shared != nil {
		s.Grid = e.shared.Grid().Snapshot()
	} else {
		s.Grid = e.newGrid().Snapshot()
	}
	return s
}

// RestoreState replaces the engine's population, generation counter, evolved
// sensors, physics, and event log from a snapshot.
func (e *Engine) RestoreState(s *Snapshot) error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("snapshot version %d, want %d", s.Version, SnapshotVersion)
	}
	if len(s.Population) == 0 {
		return fmt.Errorf("snapshot has an empty population")
	}
	for i, m := range s.Population {
		if m.Genome == nil {
			return fmt.Errorf("snapshot member %d has no genome", i)
		}
		if err := m.Genome.Validate(); err != nil {
			return fmt.Errorf("snapshot member %d: %w", i, err)
		}
	}

	e.seed = s.Seed
	e.generation = s.Generation
	e.physics = s.Physics
	e.hyperRemaining = s.HyperRemaining
	e.events = append([]Event(nil), s.Events...)
	e.senses.Restore(s.Sensors)

	e.pop = make([]Member, len(s.Population))
	for i, m := range s.Population {
		e.pop[i] = Member{Genome: m.Genome.Clone(), Fitness: m.Fitness}
	}

	if e.cfg.Grid.Persist {
		if e.shared == nil {
			e.shared = e.newSharedEngine()
		}
		e.shared.Grid().Restore(s.Grid)
	}
	return nil
}
