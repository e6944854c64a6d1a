package irtext

import (
	"fmt"
	"strconv"
	"strings"

	"chakravyuha/internal/ir"
)

// pendingPhi remembers a phi instruction whose incoming values could
// not all be resolved on first pass (a loop header's back-edge operand
// names a value in a block body built later in the file).
type pendingPhi struct {
	inst  *ir.PhiInstruction
	pairs []phiPair
}

type phiPair struct {
	predLabel string
	valueName string // "undef" means no incoming value
}

// Lower builds an ir.Module from a parsed Program. Each function is
// lowered in two passes: the first builds every instruction in file
// order (phi nodes as placeholders, the way ir.Builder.Phi itself
// expects when a loop body comes after its header), the second
// resolves every phi's incoming values once every block's value names
// are known, via ir.SetPhiIncoming.
func Lower(prog *Program) (*ir.Module, error) {
	md := prog.Module
	m := ir.NewModule(md.Name)

	globals := make(map[string]*ir.GlobalVariable, len(md.Globals))
	for _, gd := range md.Globals {
		g := &ir.GlobalVariable{
			Name:     trimSigil(gd.Name),
			Constant: gd.Constant,
			Initializer: &ir.ConstantDataArray{
				ElementBits: 8,
				Data:        []byte(gd.Bytes),
			},
		}
		m.AddGlobal(g)
		if gd.Used {
			m.RetainCompilerUsed(g)
		}
		globals[g.Name] = g
	}

	for _, fd := range md.Funcs {
		declare := fd.Kind != nil && *fd.Kind == "declare"
		intrinsic := fd.Kind != nil && *fd.Kind == "intrinsic"
		fn := &ir.Function{
			Name:        trimSigil(fd.Name),
			Declaration: declare,
			Intrinsic:   intrinsic,
		}
		m.AddFunction(fn)
		if declare || intrinsic {
			continue
		}
		if err := lowerFunctionBody(m, fn, fd, globals); err != nil {
			return nil, fmt.Errorf("irtext: function %s: %w", fn.Name, err)
		}
	}

	return m, nil
}

func lowerFunctionBody(m *ir.Module, fn *ir.Function, fd *FuncDecl, globals map[string]*ir.GlobalVariable) error {
	blocks := make(map[string]*ir.BasicBlock, len(fd.Blocks))
	for _, bd := range fd.Blocks {
		blocks[bd.Label] = ir.NewBlock(m, fn, bd.Label)
	}

	env := make(map[string]*ir.Value)
	var pending []pendingPhi

	for _, bd := range fd.Blocks {
		block := blocks[bd.Label]
		b := ir.NewBuilder(m, block)

		for i, line := range bd.Lines {
			isLast := i == len(bd.Lines)-1
			if isTerminator(line) {
				if !isLast {
					return fmt.Errorf("block %s: a terminator is not the last line", bd.Label)
				}
				if err := lowerTerminator(m, block, line, env, blocks); err != nil {
					return fmt.Errorf("block %s: %w", bd.Label, err)
				}
				continue
			}
			if isLast {
				return fmt.Errorf("block %s: missing terminator", bd.Label)
			}
			if err := lowerInstruction(b, line, env, globals, blocks, &pending); err != nil {
				return fmt.Errorf("block %s: %w", bd.Label, err)
			}
		}
	}

	for _, p := range pending {
		for _, pair := range p.pairs {
			pred, ok := blocks[pair.predLabel]
			if !ok {
				return fmt.Errorf("phi %%%s: unknown predecessor block %q", p.inst.Result.Name, pair.predLabel)
			}
			if pair.valueName == "undef" {
				ir.SetPhiIncoming(p.inst, pred, nil)
				continue
			}
			v, ok := env[pair.valueName]
			if !ok {
				return fmt.Errorf("phi %%%s: unknown incoming value %%%s", p.inst.Result.Name, pair.valueName)
			}
			ir.SetPhiIncoming(p.inst, pred, v)
		}
	}

	return nil
}

func isTerminator(line *Line) bool {
	return line.Store == nil && (line.Br != nil || line.CondBr != nil || line.Switch != nil ||
		line.Ret != nil || line.Unreachable != nil)
}

func lowerInstruction(b *ir.Builder, line *Line, env map[string]*ir.Value, globals map[string]*ir.GlobalVariable, blocks map[string]*ir.BasicBlock, pending *[]pendingPhi) error {
	resolve := func(ref string) (*ir.Value, error) {
		name := trimSigil(ref)
		v, ok := env[name]
		if !ok {
			return nil, fmt.Errorf("unknown value %s", ref)
		}
		return v, nil
	}

	switch {
	case line.Alloca != nil:
		l := line.Alloca
		name := trimSigil(l.Result)
		if l.ArrayLen != "" {
			n, err := strconv.Atoi(l.ArrayLen)
			if err != nil {
				return fmt.Errorf("malformed alloca array length: %w", err)
			}
			env[name] = b.AllocaBuffer(name, n)
		} else {
			env[name] = b.Alloca(name)
		}

	case line.GlobalAddr != nil:
		l := line.GlobalAddr
		name := trimSigil(l.Result)
		g, ok := globals[trimSigil(l.Global)]
		if !ok {
			return fmt.Errorf("unknown global %s", l.Global)
		}
		env[name] = b.GlobalAddr(g, name, l.Constant)

	case line.Load != nil:
		l := line.Load
		addr, err := resolve(l.Address)
		if err != nil {
			return err
		}
		env[trimSigil(l.Result)] = b.Load(addr, trimSigil(l.Result))

	case line.GEP != nil:
		l := line.GEP
		base, err := resolve(l.Base)
		if err != nil {
			return err
		}
		index, err := resolve(l.Index)
		if err != nil {
			return err
		}
		name := trimSigil(l.Result)
		env[name] = b.GEP(base, index, name)

	case line.BitCast != nil:
		l := line.BitCast
		val, err := resolve(l.Val)
		if err != nil {
			return err
		}
		name := trimSigil(l.Result)
		env[name] = b.BitCast(val, name)

	case line.Call != nil:
		l := line.Call
		args, err := resolveAll(resolve, l.Args)
		if err != nil {
			return err
		}
		name := trimSigil(l.Result)
		env[name] = b.Call(l.Callee, args, name)

	case line.CallVoid != nil:
		l := line.CallVoid
		args, err := resolveAll(resolve, l.Args)
		if err != nil {
			return err
		}
		b.CallVoid(l.Callee, args)

	case line.Binary != nil:
		l := line.Binary
		left, err := resolve(l.Left)
		if err != nil {
			return err
		}
		right, err := resolve(l.Right)
		if err != nil {
			return err
		}
		name := trimSigil(l.Result)
		env[name] = b.Binary(ir.BinaryOp(l.Op), left, right, name)

	case line.ICmp != nil:
		l := line.ICmp
		left, err := resolve(l.Left)
		if err != nil {
			return err
		}
		right, err := resolve(l.Right)
		if err != nil {
			return err
		}
		name := trimSigil(l.Result)
		env[name] = b.ICmp(ir.ICmpPred(l.Pred), left, right, name)

	case line.Select != nil:
		l := line.Select
		cond, err := resolve(l.Cond)
		if err != nil {
			return err
		}
		ifTrue, err := resolve(l.IfTrue)
		if err != nil {
			return err
		}
		ifFalse, err := resolve(l.IfFalse)
		if err != nil {
			return err
		}
		name := trimSigil(l.Result)
		env[name] = b.Select(cond, ifTrue, ifFalse, name)

	case line.Const != nil:
		l := line.Const
		n, err := strconv.Atoi(l.Val)
		if err != nil {
			return fmt.Errorf("malformed const operand: %w", err)
		}
		name := trimSigil(l.Result)
		env[name] = b.Const(int64(n), name)

	case line.Store != nil:
		l := line.Store
		val, err := resolve(l.Val)
		if err != nil {
			return err
		}
		addr, err := resolve(l.Addr)
		if err != nil {
			return err
		}
		b.Store(val, addr)

	case line.Phi != nil:
		l := line.Phi
		name := trimSigil(l.Result)
		preds := make([]*ir.BasicBlock, 0, len(l.Pairs))
		pairs := make([]phiPair, 0, len(l.Pairs))
		for _, pair := range l.Pairs {
			predLabel := trimSigil(pair.Pred)
			pred, ok := blocks[predLabel]
			if !ok {
				return fmt.Errorf("phi: unknown predecessor block %q", predLabel)
			}
			valueName := "undef"
			if pair.Value != "undef" {
				valueName = trimSigil(pair.Value)
			}
			preds = append(preds, pred)
			pairs = append(pairs, phiPair{predLabel: predLabel, valueName: valueName})
		}
		placeholder := b.Phi(preds, make([]*ir.Value, len(preds)), name)
		env[name] = placeholder
		*pending = append(*pending, pendingPhi{inst: placeholder.DefInst.(*ir.PhiInstruction), pairs: pairs})

	default:
		return fmt.Errorf("line is neither a recognized instruction nor a terminator")
	}

	return nil
}

func lowerTerminator(m *ir.Module, block *ir.BasicBlock, line *Line, env map[string]*ir.Value, blocks map[string]*ir.BasicBlock) error {
	resolve := func(ref string) (*ir.Value, error) {
		name := trimSigil(ref)
		v, ok := env[name]
		if !ok {
			return nil, fmt.Errorf("unknown value %s", ref)
		}
		return v, nil
	}
	resolveBlock := func(label string) (*ir.BasicBlock, error) {
		name := trimSigil(label)
		bb, ok := blocks[name]
		if !ok {
			return nil, fmt.Errorf("unknown block %q", name)
		}
		return bb, nil
	}

	switch {
	case line.Br != nil:
		target, err := resolveBlock(line.Br.Target)
		if err != nil {
			return err
		}
		block.SetBranch(m, target)

	case line.CondBr != nil:
		l := line.CondBr
		cond, err := resolve(l.Cond)
		if err != nil {
			return err
		}
		ifTrue, err := resolveBlock(l.IfTrue)
		if err != nil {
			return err
		}
		ifFalse, err := resolveBlock(l.IfFalse)
		if err != nil {
			return err
		}
		block.SetCondBranch(m, cond, ifTrue, ifFalse)

	case line.Switch != nil:
		l := line.Switch
		scrutinee, err := resolve(l.Scrutinee)
		if err != nil {
			return err
		}
		def, err := resolveBlock(l.Default)
		if err != nil {
			return err
		}
		cases := make([]ir.SwitchCase, 0, len(l.Cases))
		for _, c := range l.Cases {
			val, err := strconv.Atoi(c.Value)
			if err != nil {
				return fmt.Errorf("malformed switch case value: %w", err)
			}
			target, err := resolveBlock(c.Target)
			if err != nil {
				return err
			}
			cases = append(cases, ir.SwitchCase{Value: int64(val), Target: target})
		}
		block.SetSwitch(m, scrutinee, def, cases)

	case line.Ret != nil:
		if line.Ret.Val == nil || *line.Ret.Val == "void" {
			block.SetReturn(m, nil)
			return nil
		}
		val, err := resolve(*line.Ret.Val)
		if err != nil {
			return err
		}
		block.SetReturn(m, val)

	case line.Unreachable != nil:
		block.SetUnreachable(m)

	default:
		return fmt.Errorf("line is not a terminator")
	}

	return nil
}

func resolveAll(resolve func(string) (*ir.Value, error), refs []string) ([]*ir.Value, error) {
	values := make([]*ir.Value, 0, len(refs))
	for _, ref := range refs {
		v, err := resolve(ref)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func trimSigil(s string) string {
	return strings.TrimLeft(s, "@%")
}
