package genome

import (
	"testing"

	"github.com/pthm-cable/crucible/chem"
	"github.com/pthm-cable/crucible/sensors"
)

func TestProtocellValidates(t *testing.T) {
	reg := chem.NewRegistry()
	for _, k := range reg.Kingdoms() {
		g := Protocell(reg, k, 1)
		if err := g.Validate(); err != nil {
			t.Errorf("protocell of %s invalid: %v", k, err)
		}
		if g.Kingdom != k {
			t.Errorf("protocell kingdom = %s, want %s", g.Kingdom, k)
		}
		if len(g.Components) == 0 || len(g.Rules) == 0 {
			t.Errorf("protocell of %s has %d components, %d rules",
				k, len(g.Components), len(g.Rules))
		}
	}
}

func TestValidateRejectsUnknownComponent(t *testing.T) {
	reg := chem.NewRegistry()
	g := Protocell(reg, chem.KingdomCarbon, 1)
	g.Rules = append(g.Rules, RuleGene{
		Condition: Always(),
		Action:    Action{Kind: ActionGrow, Component: "Missing"},
		Enabled:   true,
	})
	if err := g.Validate(); err == nil {
		t.Error("expected error for action referencing unknown component")
	}
}

func TestValidateRejectsBadRuleIndex(t *testing.T) {
	reg := chem.NewRegistry()
	g := Protocell(reg, chem.KingdomCarbon, 1)
	g.Rules = append(g.Rules, RuleGene{
		Condition: Always(),
		Action:    Action{Kind: ActionDisableRule, Rule: 99},
		Enabled:   true,
	})
	if err := g.Validate(); err == nil {
		t.Error("expected error for rule toggle targeting out-of-range index")
	}
}

func TestValidateRejectsEmptyComponents(t *testing.T) {
	g := &Genotype{}
	if err := g.Validate(); err == nil {
		t.Error("expected error for genome with no components")
	}
}

func TestCloneIsDeep(t *testing.T) {
	reg := chem.NewRegistry()
	g := Protocell(reg, chem.KingdomCarbon, 1)
	g.Rules[0].Condition = All(
		Compare("energy", CmpGT, 2),
		Compare("light", CmpLT, 0.5),
	)
	g.Objectives = &Weights{Lifespan: 1}

	c := g.Clone()
	c.Components[0].Props.Mass = 99
	c.Rules[0].Condition.Children[0].Threshold = 99
	c.Objectives.Lifespan = 99

	if g.Components[0].Props.Mass == 99 {
		t.Error("clone shares component props with parent")
	}
	if g.Rules[0].Condition.Children[0].Threshold == 99 {
		t.Error("clone shares condition tree with parent")
	}
	if g.Objectives.Lifespan == 99 {
		t.Error("clone shares objectives with parent")
	}
}

func TestComplexityCountsDepth(t *testing.T) {
	reg := chem.NewRegistry()
	g := Protocell(reg, chem.KingdomCarbon, 1)
	base := g.Complexity()

	g.Rules[0].Condition = All(
		Compare("energy", CmpGT, 2),
		Not(Compare("light", CmpLT, 0.5)),
	)
	if g.Complexity() <= base {
		t.Errorf("complexity %v did not grow with deeper nesting (base %v)",
			g.Complexity(), base)
	}
}

func TestConditionEval(t *testing.T) {
	reg := sensors.NewRegistry()
	ctx := &sensors.Context{Energy: 5, Health: 1}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"always", Always(), true},
		{"gt true", Compare("energy", CmpGT, 3), true},
		{"gt false", Compare("energy", CmpGT, 5), false},
		{"ge boundary", Compare("energy", CmpGE, 5), true},
		{"lt", Compare("health", CmpLT, 2), true},
		{"le boundary", Compare("health", CmpLE, 1), true},
		{"all true", All(Compare("energy", CmpGT, 3), Compare("health", CmpLT, 2)), true},
		{"all short-circuits", All(Compare("energy", CmpGT, 9), Always()), false},
		{"any", Any(Compare("energy", CmpGT, 9), Compare("health", CmpGE, 1)), true},
		{"not", Not(Compare("energy", CmpGT, 9)), true},
		{"unknown sensor never fires", Compare("mystery", CmpGT, -100), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cond.Eval(reg, ctx); got != tt.want {
				t.Errorf("Eval = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestActionLifetimeRestriction(t *testing.T) {
	if ActionGrow.LifetimeRestricted() {
		t.Error("GROW must be development-only")
	}
	if ActionEnableRule.LifetimeRestricted() {
		t.Error("ENABLE_RULE must be development-only")
	}
	if !ActionAttack.LifetimeRestricted() {
		t.Error("ATTACK must stay available during lifetime")
	}
	if !ActionMove.LifetimeRestricted() {
		t.Error("MOVE must stay available during lifetime")
	}
}

func TestActionNames(t *testing.T) {
	for k := ActionKind(0); k < numActionKinds; k++ {
		if k.String() == "" || k.String() == "UNKNOWN" {
			t.Errorf("action kind %d has no name", k)
		}
	}
}
