package ir

import "fmt"

// Package ir is the abstract view of the host optimizer's mid-level IR
// that the obfuscation core operates on: modules, functions, basic
// blocks, terminators, instructions, values, and global variables.
// It mirrors only the surface spec.md §6 says the core consumes —
// it is not a general-purpose compiler IR.

// Linkage mirrors the handful of linkage kinds the core inspects or sets.
type Linkage string

const (
	LinkageExternal Linkage = "external"
	LinkageInternal Linkage = "internal"
	LinkagePrivate  Linkage = "private"
)

// Module is a collection of functions and global variables plus the
// module-wide "compiler-used" retention set. One Module is the unit
// a single pass invocation mutates in place.
type Module struct {
	Name      string
	Functions []*Function
	Globals   []*GlobalVariable

	// compilerUsed is the module-wide retention set (spec.md §3): globals
	// in this set survive later dead-global elimination even with no uses.
	compilerUsed map[*GlobalVariable]bool

	nextValueID int
	nextBlockID int
	nextInstID  int
}

// NewModule creates an empty module ready for construction or for a
// pass to mutate.
func NewModule(name string) *Module {
	return &Module{
		Name:         name,
		compilerUsed: make(map[*GlobalVariable]bool),
	}
}

// AddFunction appends a function owned by this module.
func (m *Module) AddFunction(f *Function) {
	f.module = m
	m.Functions = append(m.Functions, f)
}

// AddGlobal appends a global variable owned by this module.
func (m *Module) AddGlobal(g *GlobalVariable) { m.Globals = append(m.Globals, g) }

// EraseGlobal removes g from the module's global list. It does not
// check for remaining uses; callers (SE's UseRewriter) must establish
// that invariant first.
func (m *Module) EraseGlobal(g *GlobalVariable) {
	out := m.Globals[:0]
	for _, existing := range m.Globals {
		if existing != g {
			out = append(out, existing)
		}
	}
	m.Globals = out
	delete(m.compilerUsed, g)
}

// ReplaceFunction swaps old for replacement in the module's function
// list, preserving position — the CFF driver's rollback path (spec.md
// §4.6.2): restore the pre-transformation clone in place of a function
// whose flattening failed verification. It also reconciles each
// referenced global's address-taken bookkeeping: old's global_addr
// instructions are about to belong to a discarded function and must
// not linger in GlobalVariable.addrs, while replacement's were
// deliberately left unregistered at clone time (see cloneInstruction)
// and need registering now that it is becoming the live function.
func (m *Module) ReplaceFunction(old, replacement *Function) {
	replacement.module = m
	for i, f := range m.Functions {
		if f == old {
			m.Functions[i] = replacement
			reconcileGlobalAddrs(old, replacement)
			return
		}
	}
}

func reconcileGlobalAddrs(old, replacement *Function) {
	for _, b := range old.Blocks {
		for _, inst := range b.Instructions {
			if a, ok := inst.(*GlobalAddrInstruction); ok {
				a.Global.RemoveAddr(a)
			}
		}
	}
	for _, b := range replacement.Blocks {
		for _, inst := range b.Instructions {
			if a, ok := inst.(*GlobalAddrInstruction); ok {
				a.Global.recordAddr(a)
			}
		}
	}
}

// RetainCompilerUsed adds g to the module's "compiler-used" set so a
// later dead-global pass must not eliminate it even though nothing in
// the function bodies references it directly (e.g. it is only reached
// indirectly through a pointer computed at runtime).
func (m *Module) RetainCompilerUsed(g *GlobalVariable) { m.compilerUsed[g] = true }

// IsCompilerUsed reports whether g is in the retention set.
func (m *Module) IsCompilerUsed(g *GlobalVariable) bool { return m.compilerUsed[g] }

func (m *Module) allocValueID() int { m.nextValueID++; return m.nextValueID }
func (m *Module) allocBlockID() int { m.nextBlockID++; return m.nextBlockID }
func (m *Module) allocInstID() int  { m.nextInstID++; return m.nextInstID }

// Function is an ordered set of basic blocks with a distinguished entry.
type Function struct {
	Name        string
	Linkage     Linkage
	Declaration bool // true iff the function has no body
	Intrinsic   bool
	Params      []*Value // formal parameters, in call-argument order
	Blocks      []*BasicBlock

	module *Module
}

// Entry is the function's distinguished first block, or nil for a
// declaration.
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// AddBlock appends a block to the function and wires its parent.
func (f *Function) AddBlock(b *BasicBlock) {
	b.Parent = f
	f.Blocks = append(f.Blocks, b)
}

// RemoveBlock erases b from the function's block list. Callers must
// have already dropped every use of values b defines and cleared b's
// references from predecessor/successor lists.
func (f *Function) RemoveBlock(b *BasicBlock) {
	out := f.Blocks[:0]
	for _, existing := range f.Blocks {
		if existing != b {
			out = append(out, existing)
		}
	}
	f.Blocks = out
}

// Clone produces a deep structural copy of f, used by CFF to implement
// rollback on verification failure (spec.md §4.6.2): clone before
// transforming, swap the clone back in if verification fails.
func (f *Function) Clone() *Function {
	clone := &Function{
		Name:        f.Name,
		Linkage:     f.Linkage,
		Declaration: f.Declaration,
		Intrinsic:   f.Intrinsic,
		module:      f.module,
	}

	blockCopy := make(map[*BasicBlock]*BasicBlock, len(f.Blocks))
	valueCopy := make(map[*Value]*Value)

	for _, b := range f.Blocks {
		nb := &BasicBlock{Label: b.Label, Parent: clone, Pad: b.Pad}
		blockCopy[b] = nb
		clone.Blocks = append(clone.Blocks, nb)
	}

	remapValue := func(v *Value) *Value {
		if v == nil {
			return nil
		}
		if nv, ok := valueCopy[v]; ok {
			return nv
		}
		nv := &Value{ID: v.ID, Name: v.Name, DefBlock: blockCopy[v.DefBlock]}
		valueCopy[v] = nv
		return nv
	}

	for _, p := range f.Params {
		clone.Params = append(clone.Params, remapValue(p))
	}

	for _, b := range f.Blocks {
		nb := blockCopy[b]
		for _, inst := range b.Instructions {
			ni := cloneInstruction(inst, nb, remapValue)
			nb.Instructions = append(nb.Instructions, ni)
			if r := ni.GetResult(); r != nil {
				r.DefInst = ni
			}
		}
		if b.Terminator != nil {
			nb.Terminator = cloneTerminator(b.Terminator, nb, blockCopy, remapValue)
		}
	}

	for _, b := range f.Blocks {
		nb := blockCopy[b]
		for _, p := range b.Predecessors {
			nb.Predecessors = append(nb.Predecessors, blockCopy[p])
		}
		for _, s := range b.Successors {
			nb.Successors = append(nb.Successors, blockCopy[s])
		}
	}

	return clone
}

// BasicBlock is a maximal straight-line sequence of instructions ending
// in exactly one terminator.
type BasicBlock struct {
	Label        string
	Instructions []Instruction
	Terminator   Terminator
	Parent       *Function
	Predecessors []*BasicBlock
	Successors   []*BasicBlock
	Pad          bool // true iff this block is an exception-handling pad
}

// AddInstruction appends a non-terminator instruction to the block.
func (b *BasicBlock) AddInstruction(inst Instruction) {
	b.Instructions = append(b.Instructions, inst)
}

// InsertInstructionBefore inserts newInst immediately before the
// instruction at position identified by marker (by identity), or at
// the end if marker is not found.
func (b *BasicBlock) InsertInstructionBefore(marker, newInst Instruction) {
	for i, inst := range b.Instructions {
		if inst == marker {
			b.Instructions = append(b.Instructions[:i:i], append([]Instruction{newInst}, b.Instructions[i:]...)...)
			return
		}
	}
	b.Instructions = append(b.Instructions, newInst)
}

// InsertInstructionAfter inserts newInst immediately after the
// instruction at position identified by marker (by identity), or at
// the end if marker is not found.
func (b *BasicBlock) InsertInstructionAfter(marker, newInst Instruction) {
	for i, inst := range b.Instructions {
		if inst == marker {
			b.Instructions = append(b.Instructions[:i+1:i+1], append([]Instruction{newInst}, b.Instructions[i+1:]...)...)
			return
		}
	}
	b.Instructions = append(b.Instructions, newInst)
}

// EraseInstruction removes inst from the block's instruction list.
// It does not rewrite uses; callers must have already redirected them.
func (b *BasicBlock) EraseInstruction(inst Instruction) {
	out := b.Instructions[:0]
	for _, existing := range b.Instructions {
		if existing != inst {
			out = append(out, existing)
		}
	}
	b.Instructions = out
}

// AddSuccessor links b -> s and records b as one of s's predecessors.
func (b *BasicBlock) AddSuccessor(s *BasicBlock) {
	b.Successors = append(b.Successors, s)
	s.Predecessors = append(s.Predecessors, b)
}

// ClearSuccessors drops the successor edges recorded on b (and the
// matching predecessor entries on each former successor). Used before
// installing a new terminator whose successor set differs.
func (b *BasicBlock) ClearSuccessors() {
	for _, s := range b.Successors {
		out := s.Predecessors[:0]
		for _, p := range s.Predecessors {
			if p != b {
				out = append(out, p)
			}
		}
		s.Predecessors = out
	}
	b.Successors = nil
}

// SetTerminator installs term as b's terminator and recomputes
// successor/predecessor edges from it.
func (b *BasicBlock) SetTerminator(term Terminator) {
	b.ClearSuccessors()
	b.Terminator = term
	for _, s := range term.GetSuccessors() {
		if s != nil {
			b.AddSuccessor(s)
		}
	}
}

// ReplacePredecessor swaps oldPred for newPred in b's predecessor list,
// used when the dispatcher becomes a block's sole predecessor.
func (b *BasicBlock) ReplacePredecessor(oldPred, newPred *BasicBlock) {
	for i, p := range b.Predecessors {
		if p == oldPred {
			b.Predecessors[i] = newPred
			return
		}
	}
}

// Value represents an instruction's result: a typed SSA-form value
// with exactly one definition and a use list.
type Value struct {
	ID       int
	Name     string
	DefBlock *BasicBlock
	DefInst  Instruction
	Uses     []*Use
}

func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	if v.Name != "" {
		return "%" + v.Name
	}
	return fmt.Sprintf("%%v%d", v.ID)
}

// addUse records that user references v through the returned Use.
func (v *Value) addUse(user Instruction, block *BasicBlock) *Use {
	u := &Use{value: v, user: user, block: block}
	v.Uses = append(v.Uses, u)
	return u
}

// removeUse drops u from v's use list (called by Use.Set when it
// retargets away from v).
func (v *Value) removeUse(u *Use) {
	out := v.Uses[:0]
	for _, existing := range v.Uses {
		if existing != u {
			out = append(out, existing)
		}
	}
	v.Uses = out
}

// HasUsers reports whether v is referenced by anything at all.
func (v *Value) HasUsers() bool { return len(v.Uses) > 0 }

// Use is a directed, rewritable edge from a user instruction to a used
// value.
type Use struct {
	value *Value
	user  Instruction
	block *BasicBlock
}

// Value returns the value this use currently refers to.
func (u *Use) Value() *Value { return u.value }

// User returns the instruction that owns this use.
func (u *Use) User() Instruction { return u.user }

// Set rewrites this use to refer to newValue, maintaining both values'
// use lists. It does not touch the operand slot on the user
// instruction itself — callers whose instruction stores the operand in
// a typed field (most of them) must update that field too; Use is the
// bookkeeping half of that contract.
func (u *Use) Set(newValue *Value) {
	if u.value == newValue {
		return
	}
	u.value.removeUse(u)
	u.value = newValue
	if newValue != nil {
		newValue.Uses = append(newValue.Uses, u)
	}
}

// GlobalVariable is a named module-scope value: a global string table
// entry before and after encryption, in this codebase's use of the IR.
type GlobalVariable struct {
	Name        string
	Constant    bool
	Linkage     Linkage
	Initializer *ConstantDataArray

	// addrs tracks every GlobalAddrInstruction materializing a pointer
	// to this global. Globals are not SSA-numbered themselves — a
	// function reaches one only by first taking its address — so this
	// list, not Value.Uses, is what UseRewriter walks.
	addrs []*GlobalAddrInstruction
}

// ConstantDataArray is a constant byte-array initializer: the shape
// StringCollector looks for (spec.md §4.1).
type ConstantDataArray struct {
	ElementBits int // 8 for a string's byte elements
	Data        []byte
}

// IsNullTerminatedString reports whether the array's last byte is a
// NUL terminator over 8-bit elements — the StringCollector eligibility
// test from spec.md §4.1.
func (c *ConstantDataArray) IsNullTerminatedString() bool {
	return c.ElementBits == 8 && len(c.Data) > 0 && c.Data[len(c.Data)-1] == 0
}

// recordAddr registers addr as a reference to g. Called by the
// GlobalAddr builder method, never directly by passes.
func (g *GlobalVariable) recordAddr(addr *GlobalAddrInstruction) {
	g.addrs = append(g.addrs, addr)
}

// Addrs returns every GlobalAddrInstruction that takes g's address —
// the set StringCollector's eligibility test doesn't need but
// UseRewriter walks one global at a time.
func (g *GlobalVariable) Addrs() []*GlobalAddrInstruction { return g.addrs }

// RemoveAddr drops addr from g's address-taken list, once UseRewriter
// has erased that instruction from its block.
func (g *GlobalVariable) RemoveAddr(addr *GlobalAddrInstruction) {
	out := g.addrs[:0]
	for _, existing := range g.addrs {
		if existing != addr {
			out = append(out, existing)
		}
	}
	g.addrs = out
}
