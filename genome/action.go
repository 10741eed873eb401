package genome

// ActionKind is the closed enumeration of developmental actions.
// Dispatch is an exhaustive switch in the developmental engine, so adding a
// kind without handling it is a compile-visible hole, not a silent string miss.
type ActionKind uint8

const (
	// Growth / lifecycle
	ActionGrow ActionKind = iota
	ActionDifferentiate
	ActionDie
	ActionSplit
	ActionReproduce

	// Computation
	ActionEnableRule
	ActionDisableRule
	ActionSetState
	ActionSetTimer
	ActionModifyTimer

	// Communication
	ActionEmitSignal
	ActionNetwork
	ActionTransferEnergy
	ActionSymbiote

	// Combat
	ActionAttack
	ActionSteal
	ActionPoison
	ActionAbsorb
	ActionDetonate
	ActionRadiate

	// Defense
	ActionFortify
	ActionCamouflage
	ActionHibernate
	ActionSpore
	ActionRegenerate
	ActionMutateSelf

	// Environment
	ActionMove
	ActionMineResource
	ActionHarvestCorpse
	ActionTerraform
	ActionEmitLight
	ActionAdapt

	numActionKinds
)

var actionNames = [numActionKinds]string{
	"GROW", "DIFFERENTIATE", "DIE", "SPLIT", "REPRODUCE",
	"ENABLE_RULE", "DISABLE_RULE", "SET_STATE", "SET_TIMER", "MODIFY_TIMER",
	"EMIT_SIGNAL", "NETWORK", "TRANSFER_ENERGY", "SYMBIOTE",
	"ATTACK", "STEAL", "POISON", "ABSORB", "DETONATE", "RADIATE",
	"FORTIFY", "CAMOUFLAGE", "HIBERNATE", "SPORE", "REGENERATE", "MUTATE_SELF",
	"MOVE", "MINE_RESOURCE", "HARVEST_CORPSE", "TERRAFORM", "EMIT_LIGHT", "ADAPT",
}

func (k ActionKind) String() string {
	if int(k) < len(actionNames) {
		return actionNames[k]
	}
	return "UNKNOWN"
}

// Action is a developmental instruction with typed parameters. Which fields
// matter depends on the kind; unused fields are zero.
type Action struct {
	Kind      ActionKind `json:"kind"`
	Component string     `json:"component,omitempty"` // GROW/DIFFERENTIATE/SPLIT/SPORE target type
	Key       string     `json:"key,omitempty"`       // state/timer/signal name
	Value     float64    `json:"value,omitempty"`     // amount, damage, emitted value
	Duration  int        `json:"duration,omitempty"`  // timer/status duration in steps
	Rule      int        `json:"rule,omitempty"`      // ENABLE_RULE/DISABLE_RULE target index
}

// ReferencesComponent reports whether the action names a component type
// that must exist in the holding genome.
func (a *Action) ReferencesComponent() bool {
	switch a.Kind {
	case ActionGrow, ActionDifferentiate, ActionSplit, ActionSpore:
		return a.Component != ""
	}
	return false
}

// LifetimeRestricted reports whether the action stays available during the
// post-development lifetime loop. Growth and rewiring are development-only;
// metabolism, combat, and movement keep running.
func (k ActionKind) LifetimeRestricted() bool {
	switch k {
	case ActionAttack, ActionSteal, ActionPoison, ActionAbsorb, ActionRadiate,
		ActionMove, ActionMineResource, ActionHarvestCorpse,
		ActionTransferEnergy, ActionEmitSignal, ActionRegenerate,
		ActionFortify, ActionCamouflage, ActionHibernate, ActionReproduce:
		return true
	}
	return false
}
