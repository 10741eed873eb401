// Package genome defines the genetic encoding: component genes, rule genes,
// condition expressions, and the genotype that bundles them with evolvable
// hyperparameters.
package genome

import (
	"fmt"

	"github.com/pthm-cable/crucible/chem"
)

// ComponentGene encodes one cell component type available to the genome.
// Immutable once attached to a genome generation; offspring hold evolved copies.
type ComponentGene struct {
	Name    string          `json:"name"`
	Kingdom chem.Kingdom    `json:"kingdom"`
	Props   chem.Properties `json:"props"`
}

// RuleGene is one conditional developmental instruction of the regulatory
// network. Rules are ordered within the genome; order affects only
// tie-breaking between equal priorities, never eligibility.
type RuleGene struct {
	Condition Condition `json:"condition"`
	Action    Action    `json:"action"`
	Priority  float64   `json:"priority"`
	Enabled   bool      `json:"enabled"`
}

// Weights are the fitness term weights. Global configuration supplies one
// set; with autotelic evolution enabled every genome evolves its own.
type Weights struct {
	Lifespan   float64 `json:"lifespan"`
	Efficiency float64 `json:"efficiency"`
	Repro      float64 `json:"repro"`
	Complexity float64 `json:"complexity"`
}

// Genotype is the complete heritable blueprint of one lifeform.
type Genotype struct {
	Kingdom    chem.Kingdom    `json:"kingdom"`
	Components []ComponentGene `json:"components"`
	Rules      []RuleGene      `json:"rules"`

	// Evolvable hyperparameters
	MutationRate   float64  `json:"mutation_rate"`
	InnovationRate float64  `json:"innovation_rate"`
	Objectives     *Weights `json:"objectives,omitempty"` // autotelic weights, nil when disabled

	Lineage    uint64 `json:"lineage"`
	Generation int    `json:"generation"`
}

// Clone deep-copies the genotype. The copy is the offspring's to mutate;
// the parent stays untouched.
func (g *Genotype) Clone() *Genotype {
	out := &Genotype{
		Kingdom:        g.Kingdom,
		Components:     make([]ComponentGene, len(g.Components)),
		Rules:          make([]RuleGene, len(g.Rules)),
		MutationRate:   g.MutationRate,
		InnovationRate: g.InnovationRate,
		Lineage:        g.Lineage,
		Generation:     g.Generation,
	}
	copy(out.Components, g.Components)
	for i := range g.Rules {
		out.Rules[i] = g.Rules[i]
		out.Rules[i].Condition = g.Rules[i].Condition.Clone()
	}
	if g.Objectives != nil {
		w := *g.Objectives
		out.Objectives = &w
	}
	return out
}

// ComponentIndex returns the index of the named component, or -1.
func (g *Genotype) ComponentIndex(name string) int {
	for i := range g.Components {
		if g.Components[i].Name == name {
			return i
		}
	}
	return -1
}

// Validate checks the structural invariants a genome must satisfy before
// development: at least one component to seed the zygote, and every rule
// action that references a component must reference one present in this
// genome. A failing genome is scored at the fitness floor, never run.
func (g *Genotype) Validate() error {
	if len(g.Components) == 0 {
		return fmt.Errorf("genome has no components")
	}
	for i := range g.Rules {
		a := &g.Rules[i].Action
		if a.ReferencesComponent() && g.ComponentIndex(a.Component) < 0 {
			return fmt.Errorf("rule %d: action %s references unknown component %q",
				i, a.Kind, a.Component)
		}
		if a.Kind == ActionEnableRule || a.Kind == ActionDisableRule {
			if a.Rule < 0 || a.Rule >= len(g.Rules) {
				return fmt.Errorf("rule %d: action %s targets rule %d of %d",
					i, a.Kind, a.Rule, len(g.Rules))
			}
		}
	}
	return nil
}

// Complexity is the structural complexity measure: rule count plus component
// count plus total condition nesting depth. It feeds the complexity fitness
// term scaled by the configured weight.
func (g *Genotype) Complexity() float64 {
	c := float64(len(g.Rules)) + float64(len(g.Components))
	for i := range g.Rules {
		c += float64(g.Rules[i].Condition.Depth())
	}
	return c
}

// TotalMass sums component masses; it scales metabolic upkeep.
func (g *Genotype) TotalMass() float64 {
	m := 0.0
	for i := range g.Components {
		m += g.Components[i].Props.Mass
	}
	return m
}

// Protocell builds the simplest viable genome of a kingdom: the kingdom's
// first component template at midpoint properties and a single growth rule.
// Population initialization seeds every lineage with one.
func Protocell(reg *chem.Registry, kingdom chem.Kingdom, lineage uint64) *Genotype {
	ts := reg.Templates(kingdom)
	if len(ts) == 0 {
		kingdom = chem.KingdomCarbon
		ts = reg.Templates(kingdom)
	}
	stem := ts[0]
	mid := chem.Properties{
		Mass:           (stem.Min.Mass + stem.Max.Mass) / 2,
		Integrity:      (stem.Min.Integrity + stem.Max.Integrity) / 2,
		Photosynthesis: (stem.Min.Photosynthesis + stem.Max.Photosynthesis) / 2,
		Chemosynthesis: (stem.Min.Chemosynthesis + stem.Max.Chemosynthesis) / 2,
		Storage:        (stem.Min.Storage + stem.Max.Storage) / 2,
	}
	mid.Clamp()
	g := &Genotype{
		Kingdom: kingdom,
		Components: []ComponentGene{
			{Name: stem.Name, Kingdom: stem.Kingdom, Props: mid},
		},
		Rules: []RuleGene{
			{
				Condition: Compare("energy", CmpGT, 2.0),
				Action:    Action{Kind: ActionGrow, Component: stem.Name},
				Priority:  1,
				Enabled:   true,
			},
		},
		MutationRate:   0.1,
		InnovationRate: 0.05,
		Lineage:        lineage,
	}
	return withForaging(g, mid)
}

// withForaging appends a mining rule for chemosynthetic protocells so
// non-photosynthetic kingdoms can feed from generation zero.
func withForaging(g *Genotype, props chem.Properties) *Genotype {
	if props.Chemosynthesis > 0 {
		g.Rules = append(g.Rules, RuleGene{
			Condition: Compare("minerals", CmpGT, 0.05),
			Action:    Action{Kind: ActionMineResource, Value: 0.5},
			Priority:  2,
			Enabled:   true,
		})
	}
	return g
}
