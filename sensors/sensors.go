// Package sensors resolves sensor names to values for rule conditions.
//
// Built-in sensors read the evaluating cell's state, its hosting grid cell,
// and its neighborhood. Evolved sensors are invented at runtime by
// meta-innovation, but only from a closed combinator grammar
// (threshold-compare, neighbor-aggregate, self-state-lookup), so the
// extension mechanism stays verifiable: no sensor is arbitrary code.
package sensors

import (
	"math/rand/v2"
	"sort"
	"strings"
)

// NeighborState is the read-only view of one adjacent cell.
type NeighborState struct {
	Energy  float64
	Health  float64
	Foreign bool // owned by a different organism
}

// Context is everything a condition may observe for one cell at one step.
// All values describe the previous step's world; the developmental engine
// builds contexts from its phase-1 snapshot.
type Context struct {
	Energy float64
	Health float64
	Age    float64

	Memory  map[string]float64
	Timers  map[string]int
	Signals map[string]float64 // incoming, already averaged over neighbors

	Light       float64
	Minerals    float64
	Water       float64
	Temperature float64
	Detritus    float64

	Neighbors []NeighborState
	FreeSpace int // unoccupied adjacent grid cells
}

// Sensor name prefixes for namespaced lookups.
const (
	PrefixSignal = "signal:"
	PrefixMemory = "mem:"
	PrefixTimer  = "timer:"
)

// Combinator identifies which rule of the grammar built an evolved sensor.
type Combinator string

const (
	CombThreshold Combinator = "threshold" // 1 if source sensor > threshold, else 0
	CombNeighbor  Combinator = "neighbor"  // aggregate over neighbor states
	CombSelf      Combinator = "self"      // memory lookup with scale/offset
)

// Aggregate selects the neighbor reduction for CombNeighbor sensors.
type Aggregate string

const (
	AggMeanEnergy Aggregate = "mean_energy"
	AggMaxEnergy  Aggregate = "max_energy"
	AggMinHealth  Aggregate = "min_health"
	AggForeign    Aggregate = "foreign_count"
)

// Evolved is an invented sensory modality. It is data, not code, so it
// survives snapshot round-trips unchanged.
type Evolved struct {
	Name      string     `json:"name"`
	Comb      Combinator `json:"combinator"`
	Source    string     `json:"source,omitempty"`    // base sensor for threshold
	Agg       Aggregate  `json:"aggregate,omitempty"` // reduction for neighbor
	Key       string     `json:"key,omitempty"`       // memory key for self
	Threshold float64    `json:"threshold,omitempty"`
	Scale     float64    `json:"scale,omitempty"`
}

// Registry resolves sensor names. Built-ins are fixed; evolved sensors are
// appended by meta-innovation and shared read-only during evaluation.
type Registry struct {
	evolved []Evolved
	byName  map[string]int
}

// NewRegistry creates a registry with no evolved sensors.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Evolved returns the evolved sensor specs in invention order.
func (r *Registry) Evolved() []Evolved {
	return r.evolved
}

// Names returns the evolved sensor names in invention order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.evolved))
	for i, e := range r.evolved {
		names[i] = e.Name
	}
	return names
}

// Add registers an evolved sensor. Re-registering a name is a no-op so that
// snapshot restores and repeated inventions stay idempotent.
func (r *Registry) Add(e Evolved) {
	if _, ok := r.byName[e.Name]; ok {
		return
	}
	r.byName[e.Name] = len(r.evolved)
	r.evolved = append(r.evolved, e)
}

// Restore replaces the evolved set wholesale (snapshot restore path).
func (r *Registry) Restore(evolved []Evolved) {
	r.evolved = nil
	r.byName = make(map[string]int, len(evolved))
	for _, e := range evolved {
		r.Add(e)
	}
}

// baseSensors are the built-in names eligible as threshold sources.
var baseSensors = []string{
	"energy", "health", "age",
	"light", "minerals", "water", "temperature", "detritus",
	"neighbors", "allies", "enemies", "free_space",
}

// BaseSensors returns the built-in sensor names.
func BaseSensors() []string {
	return baseSensors
}

// Invent builds a fresh evolved sensor from the combinator grammar.
// The name encodes the construction, so identical inventions collide
// into one registry entry.
func (r *Registry) Invent(rng *rand.Rand) Evolved {
	var e Evolved
	switch rng.IntN(3) {
	case 0:
		src := baseSensors[rng.IntN(len(baseSensors))]
		th := rng.Float64() * 5
		e = Evolved{
			Name:      "sense_" + src + "_gate",
			Comb:      CombThreshold,
			Source:    src,
			Threshold: th,
		}
	case 1:
		aggs := []Aggregate{AggMeanEnergy, AggMaxEnergy, AggMinHealth, AggForeign}
		agg := aggs[rng.IntN(len(aggs))]
		e = Evolved{
			Name: "sense_nbr_" + string(agg),
			Comb: CombNeighbor,
			Agg:  agg,
		}
	default:
		keys := []string{"drive", "stage", "mood", "charge"}
		key := keys[rng.IntN(len(keys))]
		e = Evolved{
			Name:  "sense_self_" + key,
			Comb:  CombSelf,
			Key:   key,
			Scale: 0.5 + rng.Float64(),
		}
	}
	r.Add(e)
	return e
}

// Value resolves a sensor name against a context. Unknown names read as
// (0, false); a condition over an unknown sensor simply never fires, which
// keeps old genomes valid when the registry they evolved with is gone.
func (r *Registry) Value(name string, ctx *Context) (float64, bool) {
	switch name {
	case "energy":
		return ctx.Energy, true
	case "health":
		return ctx.Health, true
	case "age":
		return ctx.Age, true
	case "light":
		return ctx.Light, true
	case "minerals":
		return ctx.Minerals, true
	case "water":
		return ctx.Water, true
	case "temperature":
		return ctx.Temperature, true
	case "detritus":
		return ctx.Detritus, true
	case "neighbors":
		return float64(len(ctx.Neighbors)), true
	case "allies":
		n := 0
		for _, nb := range ctx.Neighbors {
			if !nb.Foreign {
				n++
			}
		}
		return float64(n), true
	case "enemies":
		n := 0
		for _, nb := range ctx.Neighbors {
			if nb.Foreign {
				n++
			}
		}
		return float64(n), true
	case "free_space":
		return float64(ctx.FreeSpace), true
	}

	if rest, ok := strings.CutPrefix(name, PrefixSignal); ok {
		v, ok := ctx.Signals[rest]
		return v, ok
	}
	if rest, ok := strings.CutPrefix(name, PrefixMemory); ok {
		return ctx.Memory[rest], true // absent memory reads as zero
	}
	if rest, ok := strings.CutPrefix(name, PrefixTimer); ok {
		return float64(ctx.Timers[rest]), true
	}

	if i, ok := r.byName[name]; ok {
		return r.evalEvolved(&r.evolved[i], ctx), true
	}
	return 0, false
}

func (r *Registry) evalEvolved(e *Evolved, ctx *Context) float64 {
	switch e.Comb {
	case CombThreshold:
		v, ok := r.Value(e.Source, ctx)
		if ok && v > e.Threshold {
			return 1
		}
		return 0
	case CombNeighbor:
		return aggregateNeighbors(e.Agg, ctx.Neighbors)
	case CombSelf:
		return ctx.Memory[e.Key] * e.Scale
	}
	return 0
}

func aggregateNeighbors(agg Aggregate, nbs []NeighborState) float64 {
	if len(nbs) == 0 {
		return 0
	}
	switch agg {
	case AggMeanEnergy:
		sum := 0.0
		for _, nb := range nbs {
			sum += nb.Energy
		}
		return sum / float64(len(nbs))
	case AggMaxEnergy:
		best := nbs[0].Energy
		for _, nb := range nbs[1:] {
			if nb.Energy > best {
				best = nb.Energy
			}
		}
		return best
	case AggMinHealth:
		worst := nbs[0].Health
		for _, nb := range nbs[1:] {
			if nb.Health < worst {
				worst = nb.Health
			}
		}
		return worst
	case AggForeign:
		n := 0
		for _, nb := range nbs {
			if nb.Foreign {
				n++
			}
		}
		return float64(n)
	}
	return 0
}

// SortedKeys returns a map's keys in sorted order. Simulation state must
// never depend on Go map iteration order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
