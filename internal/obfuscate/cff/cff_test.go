package cff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chakravyuha/internal/errors"
	"chakravyuha/internal/ir"
	"chakravyuha/internal/obfuscate"
	"chakravyuha/internal/obfuscate/report"
)

// fakeIndirectBranch stands in for a terminator kind the core
// deliberately does not model (indirect branch / callbr / invoke) so
// FunctionGate's "unsupported terminator" path can be exercised without
// the IR growing a case nothing else ever produces or consumes.
type fakeIndirectBranch struct {
	block *ir.BasicBlock
}

func (f *fakeIndirectBranch) GetID() int                    { return 0 }
func (f *fakeIndirectBranch) GetResult() *ir.Value           { return nil }
func (f *fakeIndirectBranch) GetOperands() []*ir.Value       { return nil }
func (f *fakeIndirectBranch) GetBlock() *ir.BasicBlock       { return f.block }
func (f *fakeIndirectBranch) SetBlock(b *ir.BasicBlock)      { f.block = b }
func (f *fakeIndirectBranch) IsTerminator() bool             { return true }
func (f *fakeIndirectBranch) GetSuccessors() []*ir.BasicBlock { return nil }
func (f *fakeIndirectBranch) String() string                { return "indirectbr ..." }

func TestGateRejectsTooFewBlocks(t *testing.T) {
	m := ir.NewModule("t")
	fn := &ir.Function{Name: "single"}
	m.AddFunction(fn)
	entry := ir.NewBlock(m, fn, "entry")
	entry.SetReturn(m, nil)

	got := Gate(fn)
	assert.False(t, got.Eligible)
}

func TestGateRejectsUnsupportedTerminator(t *testing.T) {
	m := ir.NewModule("t")
	fn := &ir.Function{Name: "weird"}
	m.AddFunction(fn)
	a := ir.NewBlock(m, fn, "a")
	b := ir.NewBlock(m, fn, "b")
	b.SetReturn(m, nil)
	a.SetTerminator(&fakeIndirectBranch{})

	got := Gate(fn)
	assert.False(t, got.Eligible)
}

func TestGateAcceptsBranchOnInput(t *testing.T) {
	fn := buildBranchOnInput(t)
	got := Gate(fn)
	assert.True(t, got.Eligible)
}

// buildBranchOnInput constructs: entry branches on a parameter into
// one of two blocks, each of which returns a different constant.
func buildBranchOnInput(t *testing.T) *ir.Function {
	t.Helper()
	m := ir.NewModule("t")
	fn := &ir.Function{Name: "branch_on_input"}
	m.AddFunction(fn)

	entry := ir.NewBlock(m, fn, "entry")
	onTrue := ir.NewBlock(m, fn, "on_true")
	onFalse := ir.NewBlock(m, fn, "on_false")

	eb := ir.NewBuilder(m, entry)
	argSlot := eb.Alloca("cond.arg")
	cond := eb.Load(argSlot, "cond")
	entry.SetCondBranch(m, cond, onTrue, onFalse)

	tb := ir.NewBuilder(m, onTrue)
	one := tb.Const(1, "one")
	onTrue.SetReturn(m, one)

	fb := ir.NewBuilder(m, onFalse)
	zero := fb.Const(0, "zero")
	onFalse.SetReturn(m, zero)

	return fn
}

func TestDemoteEliminatesEveryPhi(t *testing.T) {
	m := ir.NewModule("t")
	fn := buildLoopWithInductionVariableInModule(t, m)
	Demote(m, fn)

	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			_, isPhi := inst.(*ir.PhiInstruction)
			assert.False(t, isPhi, "block %s should contain no phis after demotion", b.Label)
		}
	}
	assert.NoError(t, ir.Verify(fn))
}

func TestFlattenLoopProducesVerifiableDispatcher(t *testing.T) {
	m := ir.NewModule("t")
	fn := buildLoopWithInductionVariableInModule(t, m)

	Demote(m, fn)
	require.NoError(t, Flatten(m, fn, obfuscate.NewSeededEntropy(3)))
	assert.NoError(t, ir.VerifyFlattened(fn))
}

func buildLoopWithInductionVariableInModule(t *testing.T, m *ir.Module) *ir.Function {
	t.Helper()
	fn := &ir.Function{Name: "loop"}
	m.AddFunction(fn)

	entry := ir.NewBlock(m, fn, "entry")
	header := ir.NewBlock(m, fn, "header")
	body := ir.NewBlock(m, fn, "body")
	exit := ir.NewBlock(m, fn, "exit")

	eb := ir.NewBuilder(m, entry)
	boundSlot := eb.Alloca("bound.arg")
	bound := eb.Load(boundSlot, "bound")
	zero := eb.Const(0, "i.init")
	entry.SetBranch(m, header)

	hb := ir.NewBuilder(m, header)
	iv := hb.Phi([]*ir.BasicBlock{entry, body}, []*ir.Value{zero, nil}, "i")
	cond := hb.ICmp(ir.ICmpSLT, iv, bound, "cont")
	header.SetCondBranch(m, cond, body, exit)

	bb := ir.NewBuilder(m, body)
	one := bb.Const(1, "one")
	next := bb.Binary(ir.OpAdd, iv, one, "i.next")
	body.SetBranch(m, header)
	ir.SetPhiIncoming(iv.DefInst.(*ir.PhiInstruction), body, next)

	exit.SetReturn(m, nil)
	return fn
}

func TestProcessFunctionSkipsIneligibleFunctionAndLeavesItUntouched(t *testing.T) {
	m := ir.NewModule("t")
	fn := &ir.Function{Name: "single_block"}
	m.AddFunction(fn)
	entry := ir.NewBlock(m, fn, "entry")
	entry.SetReturn(m, nil)

	rep := errors.NewReporter()
	agg := &report.Aggregator{}

	ProcessFunction(m, fn, obfuscate.NewSeededEntropy(1), rep, agg)

	assert.Len(t, fn.Blocks, 1)
	assert.EqualValues(t, 1, agg.Snapshot().FunctionsSkipped)
}

func TestProcessFunctionFlattensBranchOnInput(t *testing.T) {
	m := ir.NewModule("t")
	fn := buildBranchOnInputInModule(t, m)

	rep := errors.NewReporter()
	agg := &report.Aggregator{}

	ProcessFunction(m, fn, obfuscate.NewSeededEntropy(9), rep, agg)

	require.NoError(t, ir.Verify(fn))
	snap := agg.Snapshot()
	assert.True(t, snap.FunctionsFlattened == 1 || snap.FunctionsRolledBack == 1,
		"branch-on-input should either flatten cleanly or safely roll back, never leave a broken function")
}

func buildBranchOnInputInModule(t *testing.T, m *ir.Module) *ir.Function {
	t.Helper()
	fn := &ir.Function{Name: "branch_on_input"}
	m.AddFunction(fn)

	entry := ir.NewBlock(m, fn, "entry")
	onTrue := ir.NewBlock(m, fn, "on_true")
	onFalse := ir.NewBlock(m, fn, "on_false")

	eb := ir.NewBuilder(m, entry)
	argSlot := eb.Alloca("cond.arg")
	cond := eb.Load(argSlot, "cond")
	entry.SetCondBranch(m, cond, onTrue, onFalse)

	tb := ir.NewBuilder(m, onTrue)
	one := tb.Const(1, "one")
	onTrue.SetReturn(m, one)

	fb := ir.NewBuilder(m, onFalse)
	zero := fb.Const(0, "zero")
	onFalse.SetReturn(m, zero)

	return fn
}
