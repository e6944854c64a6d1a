package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chakravyuha/internal/ir"
)

func TestVerifyRejectsMissingTerminator(t *testing.T) {
	m := ir.NewModule("t")
	fn := &ir.Function{Name: "f"}
	m.AddFunction(fn)
	entry := ir.NewBlock(m, fn, "entry")
	ir.NewBuilder(m, entry).Const(1, "c")

	err := ir.Verify(fn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no terminator")
}

func TestVerifyRejectsDanglingSuccessor(t *testing.T) {
	m := ir.NewModule("t")
	other := ir.NewModule("other")
	fn := &ir.Function{Name: "f"}
	m.AddFunction(fn)
	entry := ir.NewBlock(m, fn, "entry")

	otherFn := &ir.Function{Name: "g"}
	other.AddFunction(otherFn)
	foreign := ir.NewBlock(other, otherFn, "foreign")

	entry.SetBranch(m, foreign)

	err := ir.Verify(fn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside the function")
}

func TestVerifyFlattenedRejectsRemainingPhi(t *testing.T) {
	m := ir.NewModule("t")
	fn := &ir.Function{Name: "f"}
	m.AddFunction(fn)
	entry := ir.NewBlock(m, fn, "entry")
	loop := ir.NewBlock(m, fn, "loop")

	eb := ir.NewBuilder(m, entry)
	zero := eb.Const(0, "zero")
	entry.SetBranch(m, loop)

	lb := ir.NewBuilder(m, loop)
	phi := lb.Phi([]*ir.BasicBlock{entry, loop}, []*ir.Value{zero, zero}, "iv")
	loop.SetReturn(m, phi)

	err := ir.VerifyFlattened(fn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still contains a phi")
}

func TestVerifyDispatcherShapeRejectsMultipleDispatchers(t *testing.T) {
	m := ir.NewModule("t")
	fn := &ir.Function{Name: "f"}
	m.AddFunction(fn)
	entry := ir.NewBlock(m, fn, "entry")
	a := ir.NewBlock(m, fn, "a")
	pad1 := ir.NewBlock(m, fn, "pad1")
	pad2 := ir.NewBlock(m, fn, "pad2")

	sc := ir.NewBuilder(m, entry).Const(0, "sc")
	entry.SetSwitch(m, sc, pad1, []ir.SwitchCase{{Value: 0, Target: a}})
	pad1.SetUnreachable(m)

	sc2 := ir.NewBuilder(m, a).Const(0, "sc2")
	a.SetSwitch(m, sc2, pad2, []ir.SwitchCase{{Value: 0, Target: entry}})
	pad2.SetUnreachable(m)

	err := ir.VerifyFlattened(fn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected exactly one dispatcher block")
}

func TestVerifyModuleChecksEveryFunction(t *testing.T) {
	m := ir.NewModule("t")
	good := &ir.Function{Name: "good"}
	m.AddFunction(good)
	ir.NewBlock(m, good, "entry").SetReturn(m, nil)

	bad := &ir.Function{Name: "bad"}
	m.AddFunction(bad)
	ir.NewBlock(m, bad, "entry")

	err := ir.VerifyModule(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestVerifyAllowsDeclarationWithNoBlocks(t *testing.T) {
	m := ir.NewModule("t")
	fn := &ir.Function{Name: "puts", Declaration: true}
	m.AddFunction(fn)

	assert.NoError(t, ir.Verify(fn))
}
