package genome

import (
	"github.com/pthm-cable/crucible/sensors"
)

// CondOp is the node type of a condition expression.
type CondOp string

const (
	CondTrue CondOp = "true" // always fires
	CondCmp  CondOp = "cmp"  // sensor comparison leaf
	CondAll  CondOp = "all"  // conjunction
	CondAny  CondOp = "any"  // disjunction
	CondNot  CondOp = "not"  // negation of the single child
)

// CmpOp is a comparison operator for CondCmp leaves.
type CmpOp string

const (
	CmpGT CmpOp = ">"
	CmpLT CmpOp = "<"
	CmpGE CmpOp = ">="
	CmpLE CmpOp = "<="
)

// Condition is a boolean expression over sensor readings.
// The grammar is closed: comparisons at the leaves, all/any/not above them.
type Condition struct {
	Op        CondOp      `json:"op"`
	Sensor    string      `json:"sensor,omitempty"`
	Cmp       CmpOp       `json:"cmp,omitempty"`
	Threshold float64     `json:"threshold,omitempty"`
	Children  []Condition `json:"children,omitempty"`
}

// Compare builds a sensor-comparison leaf.
func Compare(sensor string, cmp CmpOp, threshold float64) Condition {
	return Condition{Op: CondCmp, Sensor: sensor, Cmp: cmp, Threshold: threshold}
}

// All builds a conjunction.
func All(children ...Condition) Condition {
	return Condition{Op: CondAll, Children: children}
}

// Any builds a disjunction.
func Any(children ...Condition) Condition {
	return Condition{Op: CondAny, Children: children}
}

// Not negates a condition.
func Not(child Condition) Condition {
	return Condition{Op: CondNot, Children: []Condition{child}}
}

// Always fires unconditionally.
func Always() Condition {
	return Condition{Op: CondTrue}
}

// Eval evaluates the condition against a sensor context.
// A comparison over an unknown sensor is false, never an error: stale
// genomes must remain runnable.
func (c *Condition) Eval(reg *sensors.Registry, ctx *sensors.Context) bool {
	switch c.Op {
	case CondTrue:
		return true
	case CondCmp:
		v, ok := reg.Value(c.Sensor, ctx)
		if !ok {
			return false
		}
		switch c.Cmp {
		case CmpGT:
			return v > c.Threshold
		case CmpLT:
			return v < c.Threshold
		case CmpGE:
			return v >= c.Threshold
		case CmpLE:
			return v <= c.Threshold
		}
		return false
	case CondAll:
		for i := range c.Children {
			if !c.Children[i].Eval(reg, ctx) {
				return false
			}
		}
		return true
	case CondAny:
		for i := range c.Children {
			if c.Children[i].Eval(reg, ctx) {
				return true
			}
		}
		return false
	case CondNot:
		if len(c.Children) != 1 {
			return false
		}
		return !c.Children[0].Eval(reg, ctx)
	}
	return false
}

// Depth returns the nesting depth of the expression tree.
// Leaves count 1; it feeds the structural complexity measure.
func (c *Condition) Depth() int {
	if len(c.Children) == 0 {
		return 1
	}
	deepest := 0
	for i := range c.Children {
		if d := c.Children[i].Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// Clone deep-copies the condition tree.
func (c *Condition) Clone() Condition {
	out := *c
	if len(c.Children) > 0 {
		out.Children = make([]Condition, len(c.Children))
		for i := range c.Children {
			out.Children[i] = c.Children[i].Clone()
		}
	}
	return out
}
