package cff

import "chakravyuha/internal/ir"

// Demote performs both steps of spec.md §4.5 over fn: eliminate every
// ϕ-node (step 1), then spill every remaining value with a cross-block
// consumer to a stack slot (step 2). After Demote, no instruction's SSA
// value is referenced from a block other than the one defining it,
// except through memory — the precondition Flatten requires, since a
// CFG rewrite that scrambles block order cannot be trusted to preserve
// SSA dominance.
func Demote(m *ir.Module, fn *ir.Function) {
	demotePhis(m, fn)
	demoteCrossBlockValues(m, fn)
}

// demotePhis implements spec.md §4.5 step 1.
func demotePhis(m *ir.Module, fn *ir.Function) {
	entry := fn.Entry()

	for _, b := range fn.Blocks {
		for _, inst := range append([]ir.Instruction{}, b.Instructions...) {
			phi, ok := inst.(*ir.PhiInstruction)
			if !ok {
				continue
			}
			demoteOnePhi(m, fn, entry, b, phi)
		}
	}
}

func demoteOnePhi(m *ir.Module, fn *ir.Function, entry, owner *ir.BasicBlock, phi *ir.PhiInstruction) {
	eb := ir.NewBuilder(m, entry)
	slot := eb.Alloca(slotName("phi", phi))

	// Define the slot on every path that reaches owner without passing
	// through one of its predecessors (spec.md §4.5 step 1, second
	// bullet). The core's IR has no distinct "poison" value kind, so a
	// zero constant stands in for it here.
	poison := eb.Const(0, "undef")
	eb.Store(poison, slot)

	for idx, pred := range phi.Preds {
		v := phi.Values[idx]
		if v == nil {
			continue
		}
		ir.NewBuilder(m, pred).Store(v, slot)
	}

	for _, user := range distinctUsers(phi.Result) {
		loaded := ir.NewBuilderBefore(m, user).Load(slot, slotName("phi.reload", phi))
		ir.ReplaceOperand(user, phi.Result, loaded)
	}

	owner.EraseInstruction(phi)
}

// demoteCrossBlockValues implements spec.md §4.5 step 2.
func demoteCrossBlockValues(m *ir.Module, fn *ir.Function) {
	entry := fn.Entry()

	type target struct {
		inst  ir.Instruction
		block *ir.BasicBlock
	}
	var targets []target
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if !spillable(inst) {
				continue
			}
			result := inst.GetResult()
			if result == nil {
				continue
			}
			if hasCrossBlockUser(result, b) {
				targets = append(targets, target{inst: inst, block: b})
			}
		}
	}

	for _, t := range targets {
		result := t.inst.GetResult()
		slot := ir.NewBuilder(m, entry).Alloca(slotName("spill", t.inst))
		ir.NewBuilderAfter(m, t.inst).Store(result, slot)

		for _, user := range distinctUsers(result) {
			if user.GetBlock() == t.block {
				continue // intra-block uses may stay in SSA form (spec.md §4.5 step 2).
			}
			loaded := ir.NewBuilderBefore(m, user).Load(slot, slotName("reload", t.inst))
			ir.ReplaceOperand(user, result, loaded)
		}
	}
}

// spillable reports whether inst is a candidate for cross-block
// demotion: not a ϕ (already handled), not an alloca (already a
// memory slot), not a terminator (has no cross-block consumer by
// definition).
func spillable(inst ir.Instruction) bool {
	if inst.IsTerminator() {
		return false
	}
	switch inst.(type) {
	case *ir.PhiInstruction, *ir.AllocaInstruction:
		return false
	default:
		return true
	}
}

// hasCrossBlockUser reports whether any user of v sits outside owner.
func hasCrossBlockUser(v *ir.Value, owner *ir.BasicBlock) bool {
	for _, u := range v.Uses {
		if u.User().GetBlock() != owner {
			return true
		}
	}
	return false
}

// distinctUsers returns every instruction referencing v, in first-seen
// order, collapsing an instruction that uses v through more than one
// operand slot (e.g. add %x, %x) into a single entry — one redirect
// covers every occurrence (ReplaceOperand rewrites all matching
// operands of an instruction in one call).
func distinctUsers(v *ir.Value) []ir.Instruction {
	seen := make(map[ir.Instruction]bool)
	var out []ir.Instruction
	for _, u := range v.Uses {
		user := u.User()
		if seen[user] {
			continue
		}
		seen[user] = true
		out = append(out, user)
	}
	return out
}

func slotName(prefix string, inst ir.Instruction) string {
	if r := inst.GetResult(); r != nil && r.Name != "" {
		return prefix + "." + r.Name
	}
	return prefix
}
