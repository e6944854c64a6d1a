package cff

import (
	"fmt"

	"chakravyuha/internal/ir"
)

// Entropy is the randomness capability Flatten shuffles state-id
// assignment through (spec.md §9 "a block-order shuffle for CFF's id
// assignment"). Assigning ids in source order would make the
// dispatcher's case values a transparent map back to original block
// order, defeating the point of flattening.
type Entropy interface {
	Perm(n int) []int
}

// Flatten rewrites a gated, demoted function into a single dispatcher
// loop, per spec.md §4.6. It returns an error only when the entry
// block's own next-state cannot be computed (step 5's "abort this
// function's flattening") — every other un-computable case (an
// asymmetric conditional branch, a switch with no flattened successor)
// is handled by leaving that one block's terminator untouched, which
// may or may not survive the caller's post-flatten verification.
func Flatten(m *ir.Module, fn *ir.Function, entropy Entropy) error {
	entry := fn.Entry()
	flattenTargets := append([]*ir.BasicBlock{}, fn.Blocks[1:]...)

	blockID := make(map[*ir.BasicBlock]int, len(flattenTargets))
	perm := entropy.Perm(len(flattenTargets))
	for i, b := range flattenTargets {
		blockID[b] = perm[i] + 1
	}

	stateSlot := ir.NewBuilder(m, entry).AtBlockBegin(entry).Alloca("state")

	dispatch := ir.NewBlock(m, fn, "")
	def := ir.NewBlock(m, fn, "")
	def.SetUnreachable(m)

	entryNext, ok := nextStateExpr(m, entry, entry.Terminator, blockID)
	if !ok {
		return fmt.Errorf("cff: function %s: next-state computation impossible for entry terminator", fn.Name)
	}
	ir.NewBuilder(m, entry).Store(entryNext, stateSlot)
	entry.SetBranch(m, dispatch)

	db := ir.NewBuilder(m, dispatch)
	stateVal := db.Load(stateSlot, "state.val")
	cases := make([]ir.SwitchCase, len(flattenTargets))
	for i, b := range flattenTargets {
		cases[i] = ir.SwitchCase{Value: int64(blockID[b]), Target: b}
	}
	dispatch.SetSwitch(m, stateVal, def, cases)

	for _, bb := range flattenTargets {
		switch bb.Terminator.(type) {
		case *ir.ReturnTerminator, *ir.UnreachableTerminator:
			continue
		}
		next, ok := nextStateExpr(m, bb, bb.Terminator, blockID)
		if !ok {
			continue
		}
		ir.NewBuilder(m, bb).Store(next, stateSlot)
		bb.SetBranch(m, dispatch)
	}

	removeUnreachableBlocks(fn, entry)
	return nil
}

// nextStateExpr implements spec.md §4.6.1's per-terminator rule. The
// bool result is false exactly when the rule says "preserve the
// terminator unchanged" — an undefined target for a plain branch, an
// asymmetric conditional branch, or a switch with no flattened
// successor at all.
func nextStateExpr(m *ir.Module, block *ir.BasicBlock, term ir.Terminator, blockID map[*ir.BasicBlock]int) (*ir.Value, bool) {
	b := ir.NewBuilder(m, block)

	switch t := term.(type) {
	case *ir.BranchTerminator:
		id, ok := blockID[t.Target]
		if !ok {
			return nil, false
		}
		return constState(b, id), true

	case *ir.CondBranchTerminator:
		tid, tok := blockID[t.IfTrue]
		fid, fok := blockID[t.IfFalse]
		if !tok || !fok {
			return nil, false
		}
		return b.Select(t.Condition, constState(b, tid), constState(b, fid), "next.state"), true

	case *ir.SwitchTerminator:
		_, defOK := blockID[t.Default]
		anyFlattened := defOK
		for _, c := range t.Cases {
			if _, ok := blockID[c.Target]; ok {
				anyFlattened = true
				break
			}
		}
		if !anyFlattened {
			return nil, false
		}
		defID := 0
		if defOK {
			defID = blockID[t.Default]
		}
		acc := constState(b, defID)
		for _, c := range t.Cases {
			id, ok := blockID[c.Target]
			if !ok {
				continue
			}
			eq := b.ICmp(ir.ICmpEQ, t.Scrutinee, b.Const(c.Value, "case.val"), "case.eq")
			acc = b.Select(eq, constState(b, id), acc, "next.state")
		}
		return acc, true

	default:
		return nil, false
	}
}

func constState(b *ir.Builder, id int) *ir.Value {
	return b.Const(int64(id), "state.const")
}

// removeUnreachableBlocks deletes every block no longer reachable from
// entry, following each block's post-rewrite successor edges — spec.md
// §4.6 step 8.
func removeUnreachableBlocks(fn *ir.Function, entry *ir.BasicBlock) {
	reachable := map[*ir.BasicBlock]bool{entry: true}
	queue := []*ir.BasicBlock{entry}
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		for _, s := range b.Terminator.GetSuccessors() {
			if s != nil && !reachable[s] {
				reachable[s] = true
				queue = append(queue, s)
			}
		}
	}

	for _, b := range append([]*ir.BasicBlock{}, fn.Blocks...) {
		if !reachable[b] {
			b.ClearSuccessors()
			fn.RemoveBlock(b)
		}
	}
}
