package ir

// Instruction is a typed operation with zero or more operand uses. The
// core identifies special kinds by capability (terminator, ϕ-node,
// alloca, load, store, ...) via type switches rather than a class
// hierarchy — see spec.md §9 "Terminator polymorphism".
type Instruction interface {
	GetID() int
	GetResult() *Value
	GetOperands() []*Value
	GetBlock() *BasicBlock
	SetBlock(*BasicBlock)
	IsTerminator() bool
	String() string
}

// Terminator is the last instruction of a basic block; it determines
// the block's successors.
type Terminator interface {
	Instruction
	GetSuccessors() []*BasicBlock
}

// PhiInstruction selects a value based on which predecessor control
// arrived from. CFF's Demoter eliminates every one of these before the
// Flattener runs (spec.md §4.5, §8 "ϕ-freedom post-demotion").
type PhiInstruction struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	// Preds/Values are parallel slices, not a map: a map would make the
	// generated store order (and therefore, under a fixed seed, the
	// printed module) non-deterministic.
	Preds  []*BasicBlock
	Values []*Value
}

// AllocaInstruction reserves a stack slot. Both the ϕ-removal and
// cross-block spill steps of the Demoter synthesize these in the
// function entry (spec.md §4.5).
type AllocaInstruction struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	Name   string // slot's debug name, e.g. "phi.slot" or "state"

	// ArrayLen is 0 for a single-value slot (the common case: a ϕ spill
	// or the state variable) and the element count for a byte-buffer
	// slot (UseRewriter's per-use decrypted string buffer, spec.md §4.3
	// step 2).
	ArrayLen int
}

// GlobalAddrInstruction materializes a pointer to Global's first
// element as an ordinary Value. This is the only way a function body
// ever references a GlobalVariable: string literals, the decrypt
// stub's src argument, and everything else that touches module-scope
// data goes through one of these, so rewriting a global's uses reduces
// to redirecting this instruction's Result via the ordinary Use/Value
// machinery.
type GlobalAddrInstruction struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	Global *GlobalVariable

	// Constant marks a reference folded into a constant expression by
	// the host's own constant-propagation, rather than a plain
	// instruction operand. UseRewriter cannot redirect these in place
	// (spec.md §4.3 step 4, §9) and leaves the global unprocessed.
	Constant bool
}

// LoadInstruction reads the value currently stored at Address.
type LoadInstruction struct {
	ID      int
	Result  *Value
	Block   *BasicBlock
	Address *Value
}

// StoreInstruction writes Val to Address.
type StoreInstruction struct {
	ID      int
	Block   *BasicBlock
	Address *Value
	Val     *Value
}

// GEPInstruction (getelementptr) computes a pointer to the Index'th
// element of Base without dereferencing it. UseRewriter uses this to
// address G.enc[0] (spec.md §4.3 step 3).
type GEPInstruction struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	Base   *Value
	Index  *Value
}

// BitCastInstruction reinterprets a pointer's type without changing
// its bits.
type BitCastInstruction struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	Val    *Value
}

// CallInstruction invokes Callee (by name — the core never needs to
// resolve an indirect callee) with Args. Used both for the decrypt
// stub call SE inserts and for the runtime call a string literal feeds.
type CallInstruction struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	Callee string
	Args   []*Value
}

// BinaryOp enumerates the binary operators the core's synthesized code
// and test fixtures use.
type BinaryOp string

const (
	OpXor BinaryOp = "xor"
	OpAdd BinaryOp = "add"
	OpSub BinaryOp = "sub"
	OpMul BinaryOp = "mul"
)

// BinaryInstruction covers the arithmetic/bitwise ops the core
// generates directly: XOR (decrypt stub) and ADD (induction variable
// in the decrypt stub's loop), plus whatever arithmetic a test fixture
// needs to exercise demotion.
type BinaryInstruction struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	Op     BinaryOp
	Left   *Value
	Right  *Value
}

// ICmpPred enumerates the integer comparison predicates the core emits
// or consumes.
type ICmpPred string

const (
	ICmpEQ  ICmpPred = "eq"
	ICmpNE  ICmpPred = "ne"
	ICmpSLT ICmpPred = "slt"
	ICmpSLE ICmpPred = "sle"
	ICmpSGT ICmpPred = "sgt"
	ICmpSGE ICmpPred = "sge"
)

// ICmpInstruction computes a boolean comparison, feeding a conditional
// branch, a switch's scrutinee, or (post-flattening) a select chain.
type ICmpInstruction struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	Pred   ICmpPred
	Left   *Value
	Right  *Value
}

// SelectInstruction is the ternary the Flattener builds next-state
// expressions out of (spec.md §4.6.1).
type SelectInstruction struct {
	ID        int
	Result    *Value
	Block     *BasicBlock
	Condition *Value
	IfTrue    *Value
	IfFalse   *Value
}

// ConstantInstruction materializes an integer literal as a value. Kept
// as an instruction (not folded into operand literals) so every value
// the core touches has a uniform *Value identity, use list, and
// defining block — required for the Demoter's cross-block check.
type ConstantInstruction struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	Val    int64
}

// Instruction interface implementations. Each is a one-line
// projection; there is no shared base struct because the concrete
// instruction set is fixed and small (spec.md §9).

func (i *PhiInstruction) GetID() int             { return i.ID }
func (i *PhiInstruction) GetResult() *Value      { return i.Result }
func (i *PhiInstruction) GetOperands() []*Value  { return append([]*Value{}, i.Values...) }
func (i *PhiInstruction) GetBlock() *BasicBlock  { return i.Block }
func (i *PhiInstruction) SetBlock(b *BasicBlock) { i.Block = b }
func (i *PhiInstruction) IsTerminator() bool     { return false }

func (i *AllocaInstruction) GetID() int             { return i.ID }
func (i *AllocaInstruction) GetResult() *Value      { return i.Result }
func (i *AllocaInstruction) GetOperands() []*Value  { return nil }
func (i *AllocaInstruction) GetBlock() *BasicBlock  { return i.Block }
func (i *AllocaInstruction) SetBlock(b *BasicBlock) { i.Block = b }
func (i *AllocaInstruction) IsTerminator() bool     { return false }

func (i *GlobalAddrInstruction) GetID() int             { return i.ID }
func (i *GlobalAddrInstruction) GetResult() *Value      { return i.Result }
func (i *GlobalAddrInstruction) GetOperands() []*Value  { return nil }
func (i *GlobalAddrInstruction) GetBlock() *BasicBlock  { return i.Block }
func (i *GlobalAddrInstruction) SetBlock(b *BasicBlock) { i.Block = b }
func (i *GlobalAddrInstruction) IsTerminator() bool     { return false }

func (i *LoadInstruction) GetID() int             { return i.ID }
func (i *LoadInstruction) GetResult() *Value      { return i.Result }
func (i *LoadInstruction) GetOperands() []*Value  { return []*Value{i.Address} }
func (i *LoadInstruction) GetBlock() *BasicBlock  { return i.Block }
func (i *LoadInstruction) SetBlock(b *BasicBlock) { i.Block = b }
func (i *LoadInstruction) IsTerminator() bool     { return false }

func (i *StoreInstruction) GetID() int             { return i.ID }
func (i *StoreInstruction) GetResult() *Value      { return nil }
func (i *StoreInstruction) GetOperands() []*Value  { return []*Value{i.Address, i.Val} }
func (i *StoreInstruction) GetBlock() *BasicBlock  { return i.Block }
func (i *StoreInstruction) SetBlock(b *BasicBlock) { i.Block = b }
func (i *StoreInstruction) IsTerminator() bool     { return false }

func (i *GEPInstruction) GetID() int             { return i.ID }
func (i *GEPInstruction) GetResult() *Value      { return i.Result }
func (i *GEPInstruction) GetOperands() []*Value  { return []*Value{i.Base, i.Index} }
func (i *GEPInstruction) GetBlock() *BasicBlock  { return i.Block }
func (i *GEPInstruction) SetBlock(b *BasicBlock) { i.Block = b }
func (i *GEPInstruction) IsTerminator() bool     { return false }

func (i *BitCastInstruction) GetID() int             { return i.ID }
func (i *BitCastInstruction) GetResult() *Value      { return i.Result }
func (i *BitCastInstruction) GetOperands() []*Value  { return []*Value{i.Val} }
func (i *BitCastInstruction) GetBlock() *BasicBlock  { return i.Block }
func (i *BitCastInstruction) SetBlock(b *BasicBlock) { i.Block = b }
func (i *BitCastInstruction) IsTerminator() bool     { return false }

func (i *CallInstruction) GetID() int             { return i.ID }
func (i *CallInstruction) GetResult() *Value      { return i.Result }
func (i *CallInstruction) GetOperands() []*Value  { return append([]*Value{}, i.Args...) }
func (i *CallInstruction) GetBlock() *BasicBlock  { return i.Block }
func (i *CallInstruction) SetBlock(b *BasicBlock) { i.Block = b }
func (i *CallInstruction) IsTerminator() bool     { return false }

func (i *BinaryInstruction) GetID() int             { return i.ID }
func (i *BinaryInstruction) GetResult() *Value      { return i.Result }
func (i *BinaryInstruction) GetOperands() []*Value  { return []*Value{i.Left, i.Right} }
func (i *BinaryInstruction) GetBlock() *BasicBlock  { return i.Block }
func (i *BinaryInstruction) SetBlock(b *BasicBlock) { i.Block = b }
func (i *BinaryInstruction) IsTerminator() bool     { return false }

func (i *ICmpInstruction) GetID() int             { return i.ID }
func (i *ICmpInstruction) GetResult() *Value      { return i.Result }
func (i *ICmpInstruction) GetOperands() []*Value  { return []*Value{i.Left, i.Right} }
func (i *ICmpInstruction) GetBlock() *BasicBlock  { return i.Block }
func (i *ICmpInstruction) SetBlock(b *BasicBlock) { i.Block = b }
func (i *ICmpInstruction) IsTerminator() bool     { return false }

func (i *SelectInstruction) GetID() int            { return i.ID }
func (i *SelectInstruction) GetResult() *Value     { return i.Result }
func (i *SelectInstruction) GetOperands() []*Value { return []*Value{i.Condition, i.IfTrue, i.IfFalse} }
func (i *SelectInstruction) GetBlock() *BasicBlock { return i.Block }
func (i *SelectInstruction) SetBlock(b *BasicBlock) { i.Block = b }
func (i *SelectInstruction) IsTerminator() bool    { return false }

func (i *ConstantInstruction) GetID() int             { return i.ID }
func (i *ConstantInstruction) GetResult() *Value      { return i.Result }
func (i *ConstantInstruction) GetOperands() []*Value  { return nil }
func (i *ConstantInstruction) GetBlock() *BasicBlock  { return i.Block }
func (i *ConstantInstruction) SetBlock(b *BasicBlock) { i.Block = b }
func (i *ConstantInstruction) IsTerminator() bool     { return false }

// Terminators.

// ReturnTerminator ends a function. CFF never rewrites this kind
// (spec.md §4.6.1 "Return / Unreachable. Never rewritten").
type ReturnTerminator struct {
	ID    int
	Block *BasicBlock
	Val   *Value
}

// UnreachableTerminator marks a block the core has proven control
// cannot reach (the Flattener's Default block terminates this way).
type UnreachableTerminator struct {
	ID    int
	Block *BasicBlock
}

// BranchTerminator is an unconditional jump to Target.
type BranchTerminator struct {
	ID     int
	Block  *BasicBlock
	Target *BasicBlock
}

// CondBranchTerminator branches to IfTrue or IfFalse depending on
// Condition.
type CondBranchTerminator struct {
	ID        int
	Block     *BasicBlock
	Condition *Value
	IfTrue    *BasicBlock
	IfFalse   *BasicBlock
}

// SwitchCase is one (value, target) arm of a SwitchTerminator, kept as
// a slice (not a map) so the Flattener can fold cases in a
// deterministic, reproducible order (spec.md §4.6.1 "Tie-break").
type SwitchCase struct {
	Value  int64
	Target *BasicBlock
}

// SwitchTerminator branches to Cases[i].Target when Scrutinee equals
// Cases[i].Value, or Default otherwise. It is also the shape of the
// dispatcher's own terminator once the Flattener installs it.
type SwitchTerminator struct {
	ID        int
	Block     *BasicBlock
	Scrutinee *Value
	Default   *BasicBlock
	Cases     []SwitchCase
}

func (t *ReturnTerminator) GetID() int        { return t.ID }
func (t *ReturnTerminator) GetResult() *Value { return nil }
func (t *ReturnTerminator) GetOperands() []*Value {
	if t.Val != nil {
		return []*Value{t.Val}
	}
	return nil
}
func (t *ReturnTerminator) GetBlock() *BasicBlock       { return t.Block }
func (t *ReturnTerminator) SetBlock(b *BasicBlock)       { t.Block = b }
func (t *ReturnTerminator) IsTerminator() bool          { return true }
func (t *ReturnTerminator) GetSuccessors() []*BasicBlock { return nil }

func (t *UnreachableTerminator) GetID() int                   { return t.ID }
func (t *UnreachableTerminator) GetResult() *Value            { return nil }
func (t *UnreachableTerminator) GetOperands() []*Value        { return nil }
func (t *UnreachableTerminator) GetBlock() *BasicBlock        { return t.Block }
func (t *UnreachableTerminator) SetBlock(b *BasicBlock)        { t.Block = b }
func (t *UnreachableTerminator) IsTerminator() bool           { return true }
func (t *UnreachableTerminator) GetSuccessors() []*BasicBlock { return nil }

func (t *BranchTerminator) GetID() int            { return t.ID }
func (t *BranchTerminator) GetResult() *Value     { return nil }
func (t *BranchTerminator) GetOperands() []*Value { return nil }
func (t *BranchTerminator) GetBlock() *BasicBlock { return t.Block }
func (t *BranchTerminator) SetBlock(b *BasicBlock) { t.Block = b }
func (t *BranchTerminator) IsTerminator() bool    { return true }
func (t *BranchTerminator) GetSuccessors() []*BasicBlock {
	return []*BasicBlock{t.Target}
}

func (t *CondBranchTerminator) GetID() int            { return t.ID }
func (t *CondBranchTerminator) GetResult() *Value     { return nil }
func (t *CondBranchTerminator) GetOperands() []*Value { return []*Value{t.Condition} }
func (t *CondBranchTerminator) GetBlock() *BasicBlock { return t.Block }
func (t *CondBranchTerminator) SetBlock(b *BasicBlock) { t.Block = b }
func (t *CondBranchTerminator) IsTerminator() bool    { return true }
func (t *CondBranchTerminator) GetSuccessors() []*BasicBlock {
	return []*BasicBlock{t.IfTrue, t.IfFalse}
}

func (t *SwitchTerminator) GetID() int            { return t.ID }
func (t *SwitchTerminator) GetResult() *Value     { return nil }
func (t *SwitchTerminator) GetOperands() []*Value { return []*Value{t.Scrutinee} }
func (t *SwitchTerminator) GetBlock() *BasicBlock { return t.Block }
func (t *SwitchTerminator) SetBlock(b *BasicBlock) { t.Block = b }
func (t *SwitchTerminator) IsTerminator() bool    { return true }
func (t *SwitchTerminator) GetSuccessors() []*BasicBlock {
	succs := make([]*BasicBlock, 0, len(t.Cases)+1)
	if t.Default != nil {
		succs = append(succs, t.Default)
	}
	for _, c := range t.Cases {
		succs = append(succs, c.Target)
	}
	return succs
}
