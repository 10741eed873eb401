// Package components defines the ECS components attached to living cells.
// Cells are entities; organisms hold ordered entity lists and own all
// iteration order, so nothing here depends on world traversal order.
package components

// Position is a cell's grid coordinate.
type Position struct {
	X, Y int
}

// Status indexes the timed status effects a cell can carry. Each effect is a
// remaining-step counter; zero means inactive.
type Status int

const (
	StatusHibernating Status = iota
	StatusCamouflaged
	StatusFortified
	StatusSymbiote
	StatusPoisoned
	NumStatuses
)

var statusNames = [NumStatuses]string{
	"hibernating", "camouflaged", "fortified", "symbiote", "poisoned",
}

func (s Status) String() string { return statusNames[s] }

// State is the mutable per-cell simulation state.
type State struct {
	Component int // index into the owning genome's component genes
	Energy    float64
	Health    float64
	Age       int

	// Statuses holds remaining durations; decremented once per step,
	// never below zero.
	Statuses [NumStatuses]int

	// PoisonPerStep is the energy drain applied while StatusPoisoned > 0.
	PoisonPerStep float64

	Memory map[string]float64
	Timers map[string]int

	// SignalsOut is what this cell emits during the current step;
	// SignalsIn is the neighbor-averaged snapshot it reads next step.
	SignalsOut map[string]float64
	SignalsIn  map[string]float64
}

// NewState builds a cell state with allocated maps.
func NewState(component int, energy, health float64) State {
	return State{
		Component:  component,
		Energy:     energy,
		Health:     health,
		Memory:     make(map[string]float64),
		Timers:     make(map[string]int),
		SignalsOut: make(map[string]float64),
		SignalsIn:  make(map[string]float64),
	}
}

// Active reports whether a status effect is currently in force.
func (s *State) Active(st Status) bool { return s.Statuses[st] > 0 }

// Membership ties a cell to its organism. Organism is the evaluation slot
// index within the current generation.
type Membership struct {
	Organism int
}
