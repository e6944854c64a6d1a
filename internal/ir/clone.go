package ir

// cloneInstruction produces a structural copy of inst attached to nb,
// remapping every *Value operand through remap so the clone's operand
// graph refers only to values owned by the clone. Used by
// Function.Clone for CFF's rollback-on-verification-failure path
// (spec.md §4.6.2).
func cloneInstruction(inst Instruction, nb *BasicBlock, remap func(*Value) *Value) Instruction {
	newResult := func(v *Value) *Value {
		if v == nil {
			return nil
		}
		return remap(v)
	}

	switch i := inst.(type) {
	case *PhiInstruction:
		vals := make([]*Value, len(i.Values))
		for idx, v := range i.Values {
			vals[idx] = newResult(v)
		}
		return &PhiInstruction{ID: i.ID, Result: newResult(i.Result), Block: nb, Preds: append([]*BasicBlock{}, i.Preds...), Values: vals}
	case *AllocaInstruction:
		return &AllocaInstruction{ID: i.ID, Result: newResult(i.Result), Block: nb, Name: i.Name, ArrayLen: i.ArrayLen}
	case *GlobalAddrInstruction:
		// Not registered on i.Global here: Function.Clone's caller
		// (CFF's rollback path) discards the clone outright far more
		// often than it swaps it back in via Module.ReplaceFunction,
		// which is what registers a surviving clone's addresses.
		// Registering unconditionally here would leave a stale addr
		// pointing into a dead function every time the clone is
		// discarded instead.
		return &GlobalAddrInstruction{ID: i.ID, Result: newResult(i.Result), Block: nb, Global: i.Global, Constant: i.Constant}
	case *LoadInstruction:
		return &LoadInstruction{ID: i.ID, Result: newResult(i.Result), Block: nb, Address: newResult(i.Address)}
	case *StoreInstruction:
		return &StoreInstruction{ID: i.ID, Block: nb, Address: newResult(i.Address), Val: newResult(i.Val)}
	case *GEPInstruction:
		return &GEPInstruction{ID: i.ID, Result: newResult(i.Result), Block: nb, Base: newResult(i.Base), Index: newResult(i.Index)}
	case *BitCastInstruction:
		return &BitCastInstruction{ID: i.ID, Result: newResult(i.Result), Block: nb, Val: newResult(i.Val)}
	case *CallInstruction:
		args := make([]*Value, len(i.Args))
		for idx, a := range i.Args {
			args[idx] = newResult(a)
		}
		return &CallInstruction{ID: i.ID, Result: newResult(i.Result), Block: nb, Callee: i.Callee, Args: args}
	case *BinaryInstruction:
		return &BinaryInstruction{ID: i.ID, Result: newResult(i.Result), Block: nb, Op: i.Op, Left: newResult(i.Left), Right: newResult(i.Right)}
	case *ICmpInstruction:
		return &ICmpInstruction{ID: i.ID, Result: newResult(i.Result), Block: nb, Pred: i.Pred, Left: newResult(i.Left), Right: newResult(i.Right)}
	case *SelectInstruction:
		return &SelectInstruction{ID: i.ID, Result: newResult(i.Result), Block: nb, Condition: newResult(i.Condition), IfTrue: newResult(i.IfTrue), IfFalse: newResult(i.IfFalse)}
	case *ConstantInstruction:
		return &ConstantInstruction{ID: i.ID, Result: newResult(i.Result), Block: nb, Val: i.Val}
	default:
		panic("ir: cloneInstruction: unhandled instruction kind")
	}
}

// cloneTerminator produces a structural copy of term attached to nb,
// remapping block references through blockCopy and value references
// through remap.
func cloneTerminator(term Terminator, nb *BasicBlock, blockCopy map[*BasicBlock]*BasicBlock, remap func(*Value) *Value) Terminator {
	rb := func(b *BasicBlock) *BasicBlock {
		if b == nil {
			return nil
		}
		return blockCopy[b]
	}

	switch t := term.(type) {
	case *ReturnTerminator:
		var v *Value
		if t.Val != nil {
			v = remap(t.Val)
		}
		return &ReturnTerminator{ID: t.ID, Block: nb, Val: v}
	case *UnreachableTerminator:
		return &UnreachableTerminator{ID: t.ID, Block: nb}
	case *BranchTerminator:
		return &BranchTerminator{ID: t.ID, Block: nb, Target: rb(t.Target)}
	case *CondBranchTerminator:
		return &CondBranchTerminator{ID: t.ID, Block: nb, Condition: remap(t.Condition), IfTrue: rb(t.IfTrue), IfFalse: rb(t.IfFalse)}
	case *SwitchTerminator:
		cases := make([]SwitchCase, len(t.Cases))
		for idx, c := range t.Cases {
			cases[idx] = SwitchCase{Value: c.Value, Target: rb(c.Target)}
		}
		return &SwitchTerminator{ID: t.ID, Block: nb, Scrutinee: remap(t.Scrutinee), Default: rb(t.Default), Cases: cases}
	default:
		panic("ir: cloneTerminator: unhandled terminator kind")
	}
}
