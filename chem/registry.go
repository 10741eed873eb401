// Package chem defines the chemical-base template registry.
//
// A Registry is immutable after construction and shared by handle with every
// component that needs it: mutation samples component templates from it, and
// the developmental engine reads per-kingdom baselines from it.
package chem

import (
	"math/rand/v2"
	"sort"
)

// Kingdom is a chemical-base lineage tag carried by genomes and organisms.
type Kingdom string

const (
	KingdomCarbon  Kingdom = "Carbon"
	KingdomSilicon Kingdom = "Silicon"
	KingdomFerrous Kingdom = "Ferrous"
	KingdomPlasma  Kingdom = "Plasma"
)

// Properties is the fixed numeric property set of a component.
// All values are bounded; Clamp enforces the bounds after perturbation.
type Properties struct {
	Mass           float64 `json:"mass"`
	Integrity      float64 `json:"integrity"`
	Photosynthesis float64 `json:"photosynthesis"`
	Chemosynthesis float64 `json:"chemosynthesis"`
	Compute        float64 `json:"compute"`
	Armor          float64 `json:"armor"`
	Conductivity   float64 `json:"conductivity"`
	Storage        float64 `json:"storage"`
}

// PropertyMax bounds each property from above; the lower bound is zero
// except Mass, which never drops below MinMass.
const (
	PropertyMax = 10.0
	MinMass     = 0.05
)

// Clamp forces every property into its valid range.
func (p *Properties) Clamp() {
	p.Mass = clamp(p.Mass, MinMass, PropertyMax)
	p.Integrity = clamp(p.Integrity, 0, PropertyMax)
	p.Photosynthesis = clamp(p.Photosynthesis, 0, PropertyMax)
	p.Chemosynthesis = clamp(p.Chemosynthesis, 0, PropertyMax)
	p.Compute = clamp(p.Compute, 0, PropertyMax)
	p.Armor = clamp(p.Armor, 0, PropertyMax)
	p.Conductivity = clamp(p.Conductivity, 0, PropertyMax)
	p.Storage = clamp(p.Storage, 0, PropertyMax)
}

// Template is a base component blueprint: a property range to sample from.
type Template struct {
	Name    string
	Kingdom Kingdom
	Min     Properties
	Max     Properties
}

// Sample draws a concrete property set uniformly from the template's ranges.
func (t *Template) Sample(rng *rand.Rand) Properties {
	p := Properties{
		Mass:           lerp(t.Min.Mass, t.Max.Mass, rng.Float64()),
		Integrity:      lerp(t.Min.Integrity, t.Max.Integrity, rng.Float64()),
		Photosynthesis: lerp(t.Min.Photosynthesis, t.Max.Photosynthesis, rng.Float64()),
		Chemosynthesis: lerp(t.Min.Chemosynthesis, t.Max.Chemosynthesis, rng.Float64()),
		Compute:        lerp(t.Min.Compute, t.Max.Compute, rng.Float64()),
		Armor:          lerp(t.Min.Armor, t.Max.Armor, rng.Float64()),
		Conductivity:   lerp(t.Min.Conductivity, t.Max.Conductivity, rng.Float64()),
		Storage:        lerp(t.Min.Storage, t.Max.Storage, rng.Float64()),
	}
	p.Clamp()
	return p
}

// Registry holds the chemical-base templates, loaded once at startup.
type Registry struct {
	kingdoms  []Kingdom
	templates map[Kingdom][]Template
}

// NewRegistry builds the default registry.
func NewRegistry() *Registry {
	r := &Registry{templates: make(map[Kingdom][]Template)}

	r.add(Template{
		Name: "Stem", Kingdom: KingdomCarbon,
		Min: Properties{Mass: 0.5, Integrity: 1, Photosynthesis: 0.5, Storage: 0.5},
		Max: Properties{Mass: 1.5, Integrity: 3, Photosynthesis: 2, Storage: 1.5},
	})
	r.add(Template{
		Name: "Chloroplast", Kingdom: KingdomCarbon,
		Min: Properties{Mass: 0.3, Integrity: 0.5, Photosynthesis: 2},
		Max: Properties{Mass: 1, Integrity: 1.5, Photosynthesis: 5},
	})
	r.add(Template{
		Name: "Membrane", Kingdom: KingdomCarbon,
		Min: Properties{Mass: 0.2, Integrity: 1.5, Armor: 0.5},
		Max: Properties{Mass: 0.8, Integrity: 4, Armor: 2},
	})
	r.add(Template{
		Name: "CrystalLattice", Kingdom: KingdomSilicon,
		Min: Properties{Mass: 1, Integrity: 3, Chemosynthesis: 0.5, Compute: 0.5},
		Max: Properties{Mass: 2.5, Integrity: 6, Chemosynthesis: 2, Compute: 2},
	})
	r.add(Template{
		Name: "PhotonGate", Kingdom: KingdomSilicon,
		Min: Properties{Mass: 0.4, Integrity: 1, Compute: 2, Conductivity: 1},
		Max: Properties{Mass: 1, Integrity: 2, Compute: 5, Conductivity: 4},
	})
	r.add(Template{
		Name: "OrePump", Kingdom: KingdomFerrous,
		Min: Properties{Mass: 1.5, Integrity: 2, Chemosynthesis: 2, Armor: 1},
		Max: Properties{Mass: 3, Integrity: 5, Chemosynthesis: 5, Armor: 3},
	})
	r.add(Template{
		Name: "HullPlate", Kingdom: KingdomFerrous,
		Min: Properties{Mass: 2, Integrity: 4, Armor: 3},
		Max: Properties{Mass: 4, Integrity: 8, Armor: 6},
	})
	r.add(Template{
		Name: "ArcCore", Kingdom: KingdomPlasma,
		Min: Properties{Mass: 0.2, Integrity: 0.5, Chemosynthesis: 1, Conductivity: 3},
		Max: Properties{Mass: 0.6, Integrity: 1.5, Chemosynthesis: 3, Conductivity: 7},
	})

	return r
}

func (r *Registry) add(t Template) {
	if _, ok := r.templates[t.Kingdom]; !ok {
		r.kingdoms = append(r.kingdoms, t.Kingdom)
		sort.Slice(r.kingdoms, func(i, j int) bool { return r.kingdoms[i] < r.kingdoms[j] })
	}
	r.templates[t.Kingdom] = append(r.templates[t.Kingdom], t)
}

// Kingdoms returns the known kingdoms in sorted order.
func (r *Registry) Kingdoms() []Kingdom {
	return r.kingdoms
}

// Templates returns the templates of a kingdom, in declaration order.
func (r *Registry) Templates(k Kingdom) []Template {
	return r.templates[k]
}

// PickTemplate returns a random template of the given kingdom.
// Falls back to Carbon if the kingdom has no templates.
func (r *Registry) PickTemplate(k Kingdom, rng *rand.Rand) *Template {
	ts := r.templates[k]
	if len(ts) == 0 {
		ts = r.templates[KingdomCarbon]
	}
	return &ts[rng.IntN(len(ts))]
}

// Invention name grammar: prefix x function, the way new organ families
// appeared in the ancestral lineages.
var (
	inventionPrefixes = []string{
		"Photo", "Chemo", "Cryo", "Thermo", "Radio", "Neuro",
		"Structural", "Hydro", "Aero", "Silico", "Ferro", "Quantum",
	}
	inventionFunctions = []string{
		"Receptor", "Processor", "Actuator", "Capacitor", "Generator",
		"Modulator", "Filter", "Membrane", "Core", "Pump", "Girder", "Shield",
	}
)

// InventName produces a fresh component name from the invention grammar.
func InventName(rng *rand.Rand) string {
	return inventionPrefixes[rng.IntN(len(inventionPrefixes))] +
		inventionFunctions[rng.IntN(len(inventionFunctions))]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
