package dev

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/crucible/components"
	"github.com/pthm-cable/crucible/genome"
	"github.com/pthm-cable/crucible/grid"
)

// Action cost and effect tuning. Damage is reduced by target armor;
// transfers leak a fraction in transit.
const (
	buildCostPerMass  = 0.5
	moveCostPerMass   = 0.1
	attackCost        = 0.2
	attackDamage      = 1.0
	stealEfficiency   = 0.8
	absorbDrain       = 1.0
	absorbEfficiency  = 0.5
	harvestEfficiency = 0.8
	regenCostPerHeal  = 0.5
	defaultDuration   = 3
	mutateSelfStep    = 0.01
)

// execute applies one action for one cell. Failed preconditions (no free
// space, not enough energy, no valid target) fail silently: the rule simply
// does nothing this step. Executed sequentially, so each action observes the
// effects of every earlier action in the same step.
func (e *Engine) execute(o *Organism, ent ecs.Entity, a *genome.Action, lifetime bool) {
	st := e.stateMap.Get(ent)
	pos := e.posMap.Get(ent)

	switch a.Kind {
	// --- growth / lifecycle ---

	case genome.ActionGrow:
		if lifetime {
			return
		}
		ci := o.Genome.ComponentIndex(a.Component)
		if ci < 0 {
			return
		}
		cost := o.Genome.Components[ci].Props.Mass * buildCostPerMass
		if st.Energy <= cost {
			return
		}
		x, y, ok := e.firstFreeNeighbor(pos.X, pos.Y)
		if !ok {
			return
		}
		st.Energy -= cost
		o.EnergyConsumed += cost
		half := st.Energy / 2
		st.Energy -= half
		e.spawnCell(o, ci, x, y, half)

	case genome.ActionDifferentiate:
		if lifetime {
			return
		}
		ci := o.Genome.ComponentIndex(a.Component)
		if ci < 0 || ci == st.Component {
			return
		}
		props := &o.Genome.Components[ci].Props
		cost := props.Mass * buildCostPerMass * 0.5
		if st.Energy <= cost {
			return
		}
		st.Energy -= cost
		o.EnergyConsumed += cost
		st.Component = ci
		if st.Health > props.Integrity {
			st.Health = props.Integrity
		}

	case genome.ActionDie:
		e.killCell(o, ent)

	case genome.ActionSplit:
		if lifetime {
			return
		}
		props := &o.Genome.Components[st.Component].Props
		cost := props.Mass * buildCostPerMass
		if st.Energy <= cost*2 {
			return
		}
		x, y, ok := e.firstFreeNeighbor(pos.X, pos.Y)
		if !ok {
			return
		}
		st.Energy -= cost
		o.EnergyConsumed += cost
		half := st.Energy / 2
		st.Energy -= half
		child := e.spawnCell(o, st.Component, x, y, half)
		// A split copies working memory; signals and timers start clean.
		cst := e.stateMap.Get(child)
		for k, v := range st.Memory {
			cst.Memory[k] = v
		}

	case genome.ActionReproduce:
		threshold := a.Value
		if threshold <= 0 {
			threshold = 5
		}
		if st.Energy < threshold {
			return
		}
		spent := st.Energy / 2
		st.Energy -= spent
		o.EnergyConsumed += spent
		o.Offspring++

	// --- computation ---

	case genome.ActionEnableRule:
		if a.Rule >= 0 && a.Rule < len(o.ruleEnabled) {
			o.ruleEnabled[a.Rule] = true
		}

	case genome.ActionDisableRule:
		if a.Rule >= 0 && a.Rule < len(o.ruleEnabled) {
			o.ruleEnabled[a.Rule] = false
		}

	case genome.ActionSetState:
		if a.Key != "" {
			st.Memory[a.Key] = a.Value
		}

	case genome.ActionSetTimer:
		if a.Key != "" && a.Duration > 0 {
			st.Timers[a.Key] = a.Duration
		}

	case genome.ActionModifyTimer:
		if a.Key == "" {
			return
		}
		t := st.Timers[a.Key] + int(a.Value)
		if t < 0 {
			t = 0
		}
		if t == 0 {
			delete(st.Timers, a.Key)
		} else {
			st.Timers[a.Key] = t
		}

	// --- communication ---

	case genome.ActionEmitSignal:
		if a.Key != "" {
			st.SignalsOut[a.Key] = a.Value
		}

	case genome.ActionNetwork:
		if a.Key == "" {
			return
		}
		v, ok := st.Memory[a.Key]
		if !ok {
			return
		}
		for _, n := range e.alliedNeighbors(o, pos.X, pos.Y) {
			e.stateMap.Get(n).Memory[a.Key] = v
		}

	case genome.ActionTransferEnergy:
		amount := a.Value
		if amount <= 0 || amount > st.Energy/2 {
			amount = st.Energy / 2
		}
		if amount <= 0 {
			return
		}
		target, ok := e.weakestAlly(o, pos.X, pos.Y)
		if !ok {
			return
		}
		st.Energy -= amount
		e.stateMap.Get(target).Energy += amount * stealEfficiency

	case genome.ActionSymbiote:
		st.Statuses[components.StatusSymbiote] = duration(a)

	// --- combat ---

	case genome.ActionAttack:
		if st.Energy <= attackCost || st.Active(components.StatusSymbiote) {
			return
		}
		target, ok := e.firstEnemy(o, pos.X, pos.Y)
		if !ok {
			return
		}
		st.Energy -= attackCost
		o.EnergyConsumed += attackCost
		dmg := attackDamage
		if a.Value > 0 {
			dmg = a.Value
		}
		e.damage(target, dmg)

	case genome.ActionSteal:
		target, ok := e.firstEnemy(o, pos.X, pos.Y)
		if !ok {
			return
		}
		tst := e.stateMap.Get(target)
		amount := a.Value
		if amount <= 0 {
			amount = 1
		}
		if amount > tst.Energy {
			amount = tst.Energy
		}
		tst.Energy -= amount
		st.Energy += amount * stealEfficiency
		o.EnergyProduced += amount * stealEfficiency

	case genome.ActionPoison:
		target, ok := e.firstEnemy(o, pos.X, pos.Y)
		if !ok {
			return
		}
		tst := e.stateMap.Get(target)
		tst.Statuses[components.StatusPoisoned] = duration(a)
		drip := a.Value
		if drip <= 0 {
			drip = 0.25
		}
		if drip > tst.PoisonPerStep {
			tst.PoisonPerStep = drip
		}

	case genome.ActionAbsorb:
		target, ok := e.firstEnemy(o, pos.X, pos.Y)
		if !ok {
			return
		}
		tst := e.stateMap.Get(target)
		e.damage(target, absorbDrain)
		gain := absorbDrain * absorbEfficiency
		if tst.Energy < gain {
			gain = tst.Energy
		}
		if gain > 0 {
			tst.Energy -= gain
			st.Energy += gain
			o.EnergyProduced += gain
		}

	case genome.ActionDetonate:
		blast := st.Energy * e.physics.BlastScale
		e.nbuf = e.grid.Neighbors(e.nbuf[:0], pos.X, pos.Y)
		targets := make([]ecs.Entity, 0, len(e.nbuf))
		for _, p := range e.nbuf {
			i := p.Y*e.grid.W + p.X
			if e.occupied[i] {
				targets = append(targets, e.occ[i])
			}
		}
		e.killCell(o, ent)
		for _, t := range targets {
			e.damage(t, blast)
		}

	case genome.ActionRadiate:
		strength := a.Value
		if strength <= 0 {
			strength = 0.5
		}
		cost := strength * 0.2
		if st.Energy <= cost || st.Active(components.StatusSymbiote) {
			return
		}
		st.Energy -= cost
		o.EnergyConsumed += cost
		for _, t := range e.enemyNeighbors(o, pos.X, pos.Y) {
			e.damage(t, strength)
		}

	// --- defense ---

	case genome.ActionFortify:
		st.Statuses[components.StatusFortified] = duration(a)

	case genome.ActionCamouflage:
		st.Statuses[components.StatusCamouflaged] = duration(a)

	case genome.ActionHibernate:
		st.Statuses[components.StatusHibernating] = duration(a)

	case genome.ActionSpore:
		if lifetime {
			return
		}
		ci := o.Genome.ComponentIndex(a.Component)
		if ci < 0 {
			return
		}
		cost := o.Genome.Components[ci].Props.Mass * buildCostPerMass
		if st.Energy <= cost*2 {
			return
		}
		x, y, ok := e.firstFreeRing(pos.X, pos.Y, 2)
		if !ok {
			return
		}
		st.Energy -= cost
		o.EnergyConsumed += cost
		half := st.Energy / 2
		st.Energy -= half
		e.spawnCell(o, ci, x, y, half)

	case genome.ActionRegenerate:
		heal := a.Value
		if heal <= 0 {
			heal = 1
		}
		props := &o.Genome.Components[st.Component].Props
		if st.Health >= props.Integrity {
			return
		}
		cost := heal * regenCostPerHeal
		if st.Energy <= cost {
			return
		}
		st.Energy -= cost
		o.EnergyConsumed += cost
		st.Health += heal
		if st.Health > props.Integrity {
			st.Health = props.Integrity
		}

	case genome.ActionMutateSelf:
		o.MutationBoost += mutateSelfStep

	// --- environment ---

	case genome.ActionMove:
		props := &o.Genome.Components[st.Component].Props
		cost := props.Mass * moveCostPerMass
		if st.Energy <= cost {
			return
		}
		x, y, ok := e.firstFreeNeighbor(pos.X, pos.Y)
		if !ok {
			return
		}
		st.Energy -= cost
		o.EnergyConsumed += cost
		e.occupied[pos.Y*e.grid.W+pos.X] = false
		pos.X, pos.Y = x, y
		e.occ[y*e.grid.W+x] = ent
		e.occupied[y*e.grid.W+x] = true

	case genome.ActionMineResource:
		props := &o.Genome.Components[st.Component].Props
		if props.Chemosynthesis <= 0 {
			return
		}
		want := a.Value
		if want <= 0 {
			want = 0.5
		}
		mined := e.grid.Mine(pos.X, pos.Y, want)
		gain := mined * props.Chemosynthesis * chemosynthGain * e.physics.ChemosynthesisScale
		st.Energy += gain
		o.EnergyProduced += gain

	case genome.ActionHarvestCorpse:
		want := a.Value
		if want <= 0 {
			want = 1
		}
		got := e.grid.Consume(grid.FieldDetritus, pos.X, pos.Y, want)
		gain := got * harvestEfficiency
		st.Energy += gain
		o.EnergyProduced += gain

	case genome.ActionTerraform:
		f, ok := fieldByName(a.Key)
		if !ok {
			return
		}
		cost := a.Value * 0.5
		if a.Value <= 0 || st.Energy <= cost {
			return
		}
		st.Energy -= cost
		o.EnergyConsumed += cost
		e.grid.Deposit(f, pos.X, pos.Y, a.Value)

	case genome.ActionEmitLight:
		amount := a.Value
		if amount <= 0 {
			amount = 0.25
		}
		if st.Energy <= amount {
			return
		}
		st.Energy -= amount
		o.EnergyConsumed += amount
		e.grid.Deposit(grid.FieldLight, pos.X, pos.Y, amount)
		e.nbuf = e.grid.Neighbors(e.nbuf[:0], pos.X, pos.Y)
		for _, p := range e.nbuf {
			e.grid.Deposit(grid.FieldLight, p.X, p.Y, amount*0.25)
		}

	case genome.ActionAdapt:
		// Tune to the local climate; metabolism rewards a close match.
		st.Memory["adapted_temp"] = e.grid.Get(grid.FieldTemperature, pos.X, pos.Y)
	}
}

func duration(a *genome.Action) int {
	if a.Duration > 0 {
		return a.Duration
	}
	return defaultDuration
}

var terraformFields = map[string]grid.Field{
	"light":       grid.FieldLight,
	"minerals":    grid.FieldMinerals,
	"water":       grid.FieldWater,
	"temperature": grid.FieldTemperature,
	"detritus":    grid.FieldDetritus,
}

func fieldByName(name string) (grid.Field, bool) {
	f, ok := terraformFields[name]
	return f, ok
}

// damage applies armor- and fortification-reduced damage to a cell.
func (e *Engine) damage(ent ecs.Entity, amount float64) {
	st := e.stateMap.Get(ent)
	mem := e.memMap.Get(ent)
	owner := e.organismBySlot(mem.Organism)
	if owner == nil {
		return
	}
	armor := owner.Genome.Components[st.Component].Props.Armor
	if st.Active(components.StatusFortified) {
		armor += 2
	}
	st.Health -= amount / (1 + armor)
	if st.Health <= 0 {
		e.killCell(owner, ent)
	}
}

// firstFreeNeighbor scans the fixed neighborhood order for an empty position.
func (e *Engine) firstFreeNeighbor(x, y int) (int, int, bool) {
	e.nbuf = e.grid.Neighbors(e.nbuf[:0], x, y)
	for _, p := range e.nbuf {
		if !e.occupied[p.Y*e.grid.W+p.X] {
			return p.X, p.Y, true
		}
	}
	return 0, 0, false
}

// firstFreeRing scans the square ring at the given radius, row-major.
func (e *Engine) firstFreeRing(x, y, radius int) (int, int, bool) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx > -radius && dx < radius && dy > -radius && dy < radius {
				continue
			}
			nx, ny := x+dx, y+dy
			if e.grid.InBounds(nx, ny) && !e.occupied[ny*e.grid.W+nx] {
				return nx, ny, true
			}
		}
	}
	return 0, 0, false
}

// firstEnemy returns the first targetable foreign neighbor in scan order.
// Camouflaged and symbiotic cells cannot be targeted.
func (e *Engine) firstEnemy(o *Organism, x, y int) (ecs.Entity, bool) {
	ts := e.enemyNeighbors(o, x, y)
	if len(ts) == 0 {
		return ecs.Entity{}, false
	}
	return ts[0], true
}

func (e *Engine) enemyNeighbors(o *Organism, x, y int) []ecs.Entity {
	var out []ecs.Entity
	e.nbuf = e.grid.Neighbors(e.nbuf[:0], x, y)
	for _, p := range e.nbuf {
		i := p.Y*e.grid.W + p.X
		if !e.occupied[i] {
			continue
		}
		ent := e.occ[i]
		st := e.stateMap.Get(ent)
		mem := e.memMap.Get(ent)
		if mem.Organism == o.Slot {
			continue
		}
		if st.Active(components.StatusCamouflaged) || st.Active(components.StatusSymbiote) {
			continue
		}
		out = append(out, ent)
	}
	return out
}

func (e *Engine) alliedNeighbors(o *Organism, x, y int) []ecs.Entity {
	var out []ecs.Entity
	e.nbuf = e.grid.Neighbors(e.nbuf[:0], x, y)
	for _, p := range e.nbuf {
		i := p.Y*e.grid.W + p.X
		if !e.occupied[i] {
			continue
		}
		ent := e.occ[i]
		if e.memMap.Get(ent).Organism == o.Slot {
			out = append(out, ent)
		}
	}
	return out
}

// weakestAlly returns the adjacent allied cell with the lowest energy.
func (e *Engine) weakestAlly(o *Organism, x, y int) (ecs.Entity, bool) {
	var best ecs.Entity
	bestEnergy := 0.0
	found := false
	for _, ent := range e.alliedNeighbors(o, x, y) {
		en := e.stateMap.Get(ent).Energy
		if !found || en < bestEnergy {
			best, bestEnergy, found = ent, en, true
		}
	}
	return best, found
}
