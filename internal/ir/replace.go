package ir

// ReplaceOperand redirects every operand of inst that currently points
// at old to instead point at newVal, updating both the typed operand
// field (Left, Address, Args[i], ...) and the def-use bookkeeping (Use
// is the bookkeeping half; the concrete field is the other half — see
// Use.Set). The Demoter is the primary caller: after spilling a value
// to a stack slot, every remaining SSA consumer gets redirected to the
// slot's load in one call each.
func ReplaceOperand(inst Instruction, old, newVal *Value) {
	if old == nil || old == newVal {
		return
	}
	for _, u := range append([]*Use{}, old.Uses...) {
		if u.User() == inst {
			u.Set(newVal)
		}
	}

	switch i := inst.(type) {
	case *PhiInstruction:
		for idx, v := range i.Values {
			if v == old {
				i.Values[idx] = newVal
			}
		}
	case *LoadInstruction:
		if i.Address == old {
			i.Address = newVal
		}
	case *StoreInstruction:
		if i.Address == old {
			i.Address = newVal
		}
		if i.Val == old {
			i.Val = newVal
		}
	case *GEPInstruction:
		if i.Base == old {
			i.Base = newVal
		}
		if i.Index == old {
			i.Index = newVal
		}
	case *BitCastInstruction:
		if i.Val == old {
			i.Val = newVal
		}
	case *CallInstruction:
		for idx, a := range i.Args {
			if a == old {
				i.Args[idx] = newVal
			}
		}
	case *BinaryInstruction:
		if i.Left == old {
			i.Left = newVal
		}
		if i.Right == old {
			i.Right = newVal
		}
	case *ICmpInstruction:
		if i.Left == old {
			i.Left = newVal
		}
		if i.Right == old {
			i.Right = newVal
		}
	case *SelectInstruction:
		if i.Condition == old {
			i.Condition = newVal
		}
		if i.IfTrue == old {
			i.IfTrue = newVal
		}
		if i.IfFalse == old {
			i.IfFalse = newVal
		}
	case *ReturnTerminator:
		if i.Val == old {
			i.Val = newVal
		}
	case *CondBranchTerminator:
		if i.Condition == old {
			i.Condition = newVal
		}
	case *SwitchTerminator:
		if i.Scrutinee == old {
			i.Scrutinee = newVal
		}
	}
}
