package ir

import "strconv"

// Builder is an instruction-construction helper anchored at a cursor:
// a specific basic block, optionally positioned just before an
// existing instruction. It mirrors the host's instruction builder from
// spec.md §6: "insert at a builder cursor positioned by an instruction
// or a block-begin". A Builder's lifetime is meant to be shorter than
// the block it targets (spec.md §5 "Scoped acquisition of builders").
type Builder struct {
	module *Module
	block  *BasicBlock
	before Instruction // non-nil: insert immediately before this instruction
	after  Instruction // non-nil (and before nil): insert immediately after this instruction
}

// NewBuilder returns a builder that inserts at the end of block.
func NewBuilder(module *Module, block *BasicBlock) *Builder {
	return &Builder{module: module, block: block}
}

// NewBuilderBefore returns a builder that inserts immediately before
// marker within marker's own block.
func NewBuilderBefore(module *Module, marker Instruction) *Builder {
	return &Builder{module: module, block: marker.GetBlock(), before: marker}
}

// NewBuilderAfter returns a builder that inserts immediately after
// marker within marker's own block — the Demoter's "immediately after
// I, insert store(I, slot(I))" step (spec.md §4.5 step 2).
func NewBuilderAfter(module *Module, marker Instruction) *Builder {
	return &Builder{module: module, block: marker.GetBlock(), after: marker}
}

// AtBlockBegin repositions the builder to insert before block's first
// instruction (or at its end, if empty) — the "block-begin" cursor
// spec.md §6 names, used by the Flattener for its state slot and by
// UseRewriter for its per-use buffers, to place those entry allocas
// ahead of whatever the entry block already holds.
func (b *Builder) AtBlockBegin(block *BasicBlock) *Builder {
	b.block = block
	if len(block.Instructions) > 0 {
		b.before = block.Instructions[0]
	} else {
		b.before = nil
	}
	return b
}

func (b *Builder) insert(inst Instruction) {
	inst.SetBlock(b.block)
	switch {
	case b.before != nil:
		b.block.InsertInstructionBefore(b.before, inst)
	case b.after != nil:
		b.block.InsertInstructionAfter(b.after, inst)
		b.after = inst // chain so a second call on this builder lands right after the first
	default:
		b.block.AddInstruction(inst)
	}
}

func (b *Builder) newValue(name string) *Value {
	return &Value{ID: b.module.allocValueID(), Name: name, DefBlock: b.block}
}

// Alloca reserves a single-value stack slot named name and returns its
// address value.
func (b *Builder) Alloca(name string) *Value {
	return b.allocaSlot(name, 0)
}

// AllocaBuffer reserves a size-byte stack buffer named name — the
// per-use decrypted string buffer UseRewriter synthesizes (spec.md
// §4.3 step 2).
func (b *Builder) AllocaBuffer(name string, size int) *Value {
	return b.allocaSlot(name, size)
}

func (b *Builder) allocaSlot(name string, arrayLen int) *Value {
	result := b.newValue(name)
	inst := &AllocaInstruction{ID: b.module.allocInstID(), Result: result, Block: b.block, Name: name, ArrayLen: arrayLen}
	result.DefInst = inst
	b.insert(inst)
	return result
}

// Load reads the value at address.
func (b *Builder) Load(address *Value, name string) *Value {
	result := b.newValue(name)
	inst := &LoadInstruction{ID: b.module.allocInstID(), Result: result, Block: b.block, Address: address}
	result.DefInst = inst
	b.insert(inst)
	address.addUse(inst, b.block)
	return result
}

// Store writes val to address.
func (b *Builder) Store(val, address *Value) *StoreInstruction {
	inst := &StoreInstruction{ID: b.module.allocInstID(), Block: b.block, Address: address, Val: val}
	b.insert(inst)
	address.addUse(inst, b.block)
	if val != nil {
		val.addUse(inst, b.block)
	}
	return inst
}

// GEP computes the address of base[index].
func (b *Builder) GEP(base, index *Value, name string) *Value {
	result := b.newValue(name)
	inst := &GEPInstruction{ID: b.module.allocInstID(), Result: result, Block: b.block, Base: base, Index: index}
	result.DefInst = inst
	b.insert(inst)
	if base != nil {
		base.addUse(inst, b.block)
	}
	if index != nil {
		index.addUse(inst, b.block)
	}
	return result
}

// GlobalAddr materializes a pointer to g's first element as an
// ordinary value, recording the reference on g so UseRewriter can find
// it again. Pass constant=true when modeling a
// reference already folded into a constant expression by the host
// (spec.md §4.3 step 4, §9) — that reference cannot later be
// redirected in place.
func (b *Builder) GlobalAddr(g *GlobalVariable, name string, constant bool) *Value {
	result := b.newValue(name)
	inst := &GlobalAddrInstruction{ID: b.module.allocInstID(), Result: result, Block: b.block, Global: g, Constant: constant}
	result.DefInst = inst
	b.insert(inst)
	g.recordAddr(inst)
	return result
}

// BitCast reinterprets val's pointer type.
func (b *Builder) BitCast(val *Value, name string) *Value {
	result := b.newValue(name)
	inst := &BitCastInstruction{ID: b.module.allocInstID(), Result: result, Block: b.block, Val: val}
	result.DefInst = inst
	b.insert(inst)
	if val != nil {
		val.addUse(inst, b.block)
	}
	return result
}

// Call invokes callee with args, returning the call's result value (or
// nil for a void callee).
func (b *Builder) Call(callee string, args []*Value, resultName string) *Value {
	inst := &CallInstruction{ID: b.module.allocInstID(), Block: b.block, Callee: callee, Args: append([]*Value{}, args...)}
	var result *Value
	if resultName != "" {
		result = b.newValue(resultName)
		result.DefInst = inst
		inst.Result = result
	}
	b.insert(inst)
	for _, a := range args {
		if a != nil {
			a.addUse(inst, b.block)
		}
	}
	return result
}

// CallVoid invokes callee for its side effect only, with no result —
// the shape of every decrypt-stub call SE inserts.
func (b *Builder) CallVoid(callee string, args []*Value) *CallInstruction {
	inst := &CallInstruction{ID: b.module.allocInstID(), Block: b.block, Callee: callee, Args: append([]*Value{}, args...)}
	b.insert(inst)
	for _, a := range args {
		if a != nil {
			a.addUse(inst, b.block)
		}
	}
	return inst
}

// Binary emits op(left, right).
func (b *Builder) Binary(op BinaryOp, left, right *Value, name string) *Value {
	result := b.newValue(name)
	inst := &BinaryInstruction{ID: b.module.allocInstID(), Result: result, Block: b.block, Op: op, Left: left, Right: right}
	result.DefInst = inst
	b.insert(inst)
	left.addUse(inst, b.block)
	right.addUse(inst, b.block)
	return result
}

// ICmp emits an integer comparison.
func (b *Builder) ICmp(pred ICmpPred, left, right *Value, name string) *Value {
	result := b.newValue(name)
	inst := &ICmpInstruction{ID: b.module.allocInstID(), Result: result, Block: b.block, Pred: pred, Left: left, Right: right}
	result.DefInst = inst
	b.insert(inst)
	left.addUse(inst, b.block)
	right.addUse(inst, b.block)
	return result
}

// Select emits cond ? ifTrue : ifFalse.
func (b *Builder) Select(cond, ifTrue, ifFalse *Value, name string) *Value {
	result := b.newValue(name)
	inst := &SelectInstruction{ID: b.module.allocInstID(), Result: result, Block: b.block, Condition: cond, IfTrue: ifTrue, IfFalse: ifFalse}
	result.DefInst = inst
	b.insert(inst)
	cond.addUse(inst, b.block)
	ifTrue.addUse(inst, b.block)
	ifFalse.addUse(inst, b.block)
	return result
}

// Const materializes an integer literal.
func (b *Builder) Const(val int64, name string) *Value {
	result := b.newValue(name)
	inst := &ConstantInstruction{ID: b.module.allocInstID(), Result: result, Block: b.block, Val: val}
	result.DefInst = inst
	b.insert(inst)
	return result
}

// Phi emits a ϕ-node. Test fixtures constructing pre-demotion IR use
// this directly; the decrypt stub's induction variable is the one place
// the core itself still introduces one (every other ϕ the core
// produces is eliminated by the Demoter before it runs). A nil entry in
// values is a placeholder for a loop-carried value not yet built — fill
// it in afterwards with SetPhiIncoming.
func (b *Builder) Phi(preds []*BasicBlock, values []*Value, name string) *Value {
	result := b.newValue(name)
	inst := &PhiInstruction{ID: b.module.allocInstID(), Result: result, Block: b.block, Preds: append([]*BasicBlock{}, preds...), Values: append([]*Value{}, values...)}
	result.DefInst = inst
	b.insert(inst)
	for _, v := range values {
		if v != nil {
			v.addUse(inst, b.block)
		}
	}
	return result
}

// SetPhiIncoming back-patches phi's value for pred, the way building a
// loop's header phi before its body exists requires: construct the phi
// with a nil placeholder for the not-yet-built incoming value, build
// the loop body, then call this once the real value is known.
func SetPhiIncoming(phi *PhiInstruction, pred *BasicBlock, value *Value) {
	for i, p := range phi.Preds {
		if p == pred {
			phi.Values[i] = value
			if value != nil {
				value.addUse(phi, phi.Block)
			}
			return
		}
	}
}

// Terminator constructors operate on the block directly (terminators
// always sit at the end and define the block's successor edges) rather
// than through the cursor-based insert used for ordinary instructions.

// Return installs a return terminator.
func (b *BasicBlock) SetReturn(module *Module, val *Value) *ReturnTerminator {
	term := &ReturnTerminator{ID: module.allocInstID(), Block: b, Val: val}
	b.SetTerminator(term)
	if val != nil {
		val.addUse(term, b)
	}
	return term
}

// SetUnreachable installs an unreachable terminator.
func (b *BasicBlock) SetUnreachable(module *Module) *UnreachableTerminator {
	term := &UnreachableTerminator{ID: module.allocInstID(), Block: b}
	b.SetTerminator(term)
	return term
}

// SetBranch installs an unconditional branch to target.
func (b *BasicBlock) SetBranch(module *Module, target *BasicBlock) *BranchTerminator {
	term := &BranchTerminator{ID: module.allocInstID(), Block: b, Target: target}
	b.SetTerminator(term)
	return term
}

// SetCondBranch installs a conditional branch.
func (b *BasicBlock) SetCondBranch(module *Module, cond *Value, ifTrue, ifFalse *BasicBlock) *CondBranchTerminator {
	term := &CondBranchTerminator{ID: module.allocInstID(), Block: b, Condition: cond, IfTrue: ifTrue, IfFalse: ifFalse}
	b.SetTerminator(term)
	cond.addUse(term, b)
	return term
}

// SetSwitch installs a switch terminator.
func (b *BasicBlock) SetSwitch(module *Module, scrutinee *Value, def *BasicBlock, cases []SwitchCase) *SwitchTerminator {
	term := &SwitchTerminator{ID: module.allocInstID(), Block: b, Scrutinee: scrutinee, Default: def, Cases: append([]SwitchCase{}, cases...)}
	b.SetTerminator(term)
	scrutinee.addUse(term, b)
	return term
}

// NewParam declares fn's next formal parameter, named name, and
// returns the value its body references to read it. A parameter has
// no defining instruction: it is the call's actual argument, not any
// instruction inside the callee, that gives it a value, so the
// decrypt stub (the one function the core itself synthesizes with a
// signature, spec.md §4.2) reads dest/src/length directly rather than
// through an alloca a caller never stores into.
func NewParam(module *Module, fn *Function, name string) *Value {
	v := &Value{ID: module.allocValueID(), Name: name}
	fn.Params = append(fn.Params, v)
	return v
}

// NewBlock creates and appends a fresh block to fn, with a label
// scoped by the module's block counter so generated labels never
// collide with user-authored ones.
func NewBlock(module *Module, fn *Function, label string) *BasicBlock {
	if label == "" {
		label = fmtBlockLabel(module.allocBlockID())
	}
	b := &BasicBlock{Label: label}
	fn.AddBlock(b)
	return b
}

func fmtBlockLabel(id int) string {
	return "bb" + strconv.Itoa(id)
}
