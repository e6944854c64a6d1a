package ir

import (
	"fmt"
	"strings"
)

// String implementations render one instruction as a single textual
// IR line, in the same spirit as the teacher's Instruction.String()
// methods — used both by Printer and by %v in diagnostic messages.

func (i *PhiInstruction) String() string {
	parts := make([]string, len(i.Preds))
	for idx := range i.Preds {
		parts[idx] = fmt.Sprintf("[%s, %%%s]", i.Values[idx], i.Preds[idx].Label)
	}
	return fmt.Sprintf("%s = phi %s", i.Result, strings.Join(parts, ", "))
}

func (i *AllocaInstruction) String() string {
	if i.ArrayLen > 0 {
		return fmt.Sprintf("%s = alloca [%d x i8] ; %s", i.Result, i.ArrayLen, i.Name)
	}
	return fmt.Sprintf("%s = alloca ; %s", i.Result, i.Name)
}

func (i *GlobalAddrInstruction) String() string {
	if i.Constant {
		return fmt.Sprintf("%s = global_addr @%s, constant", i.Result, i.Global.Name)
	}
	return fmt.Sprintf("%s = global_addr @%s", i.Result, i.Global.Name)
}

func (i *LoadInstruction) String() string {
	return fmt.Sprintf("%s = load %s", i.Result, i.Address)
}

func (i *StoreInstruction) String() string {
	return fmt.Sprintf("store %s, %s", i.Val, i.Address)
}

func (i *GEPInstruction) String() string {
	return fmt.Sprintf("%s = gep %s, %s", i.Result, i.Base, i.Index)
}

func (i *BitCastInstruction) String() string {
	return fmt.Sprintf("%s = bitcast %s", i.Result, i.Val)
}

func (i *CallInstruction) String() string {
	args := make([]string, len(i.Args))
	for idx, a := range i.Args {
		args[idx] = a.String()
	}
	if i.Result != nil {
		return fmt.Sprintf("%s = call %s(%s)", i.Result, i.Callee, strings.Join(args, ", "))
	}
	return fmt.Sprintf("call %s(%s)", i.Callee, strings.Join(args, ", "))
}

func (i *BinaryInstruction) String() string {
	return fmt.Sprintf("%s = %s %s, %s", i.Result, i.Op, i.Left, i.Right)
}

func (i *ICmpInstruction) String() string {
	return fmt.Sprintf("%s = icmp %s %s, %s", i.Result, i.Pred, i.Left, i.Right)
}

func (i *SelectInstruction) String() string {
	return fmt.Sprintf("%s = select %s, %s, %s", i.Result, i.Condition, i.IfTrue, i.IfFalse)
}

func (i *ConstantInstruction) String() string {
	return fmt.Sprintf("%s = const %d", i.Result, i.Val)
}

func (t *ReturnTerminator) String() string {
	if t.Val != nil {
		return fmt.Sprintf("ret %s", t.Val)
	}
	return "ret void"
}

func (t *UnreachableTerminator) String() string { return "unreachable" }

func (t *BranchTerminator) String() string {
	return fmt.Sprintf("br label %%%s", t.Target.Label)
}

func (t *CondBranchTerminator) String() string {
	return fmt.Sprintf("br %s, label %%%s, label %%%s", t.Condition, t.IfTrue.Label, t.IfFalse.Label)
}

func (t *SwitchTerminator) String() string {
	arms := make([]string, len(t.Cases))
	for idx, c := range t.Cases {
		arms[idx] = fmt.Sprintf("%d: label %%%s", c.Value, c.Target.Label)
	}
	return fmt.Sprintf("switch %s, label %%%s [%s]", t.Scrutinee, t.Default.Label, strings.Join(arms, ", "))
}
