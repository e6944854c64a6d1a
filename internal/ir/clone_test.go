package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chakravyuha/internal/ir"
)

func TestFunctionCloneIsStructurallyIndependent(t *testing.T) {
	m := ir.NewModule("t")
	fn := &ir.Function{Name: "f"}
	m.AddFunction(fn)
	entry := ir.NewBlock(m, fn, "entry")
	loop := ir.NewBlock(m, fn, "loop")

	eb := ir.NewBuilder(m, entry)
	zero := eb.Const(0, "zero")
	entry.SetBranch(m, loop)

	lb := ir.NewBuilder(m, loop)
	phi := lb.Phi([]*ir.BasicBlock{entry, loop}, []*ir.Value{zero, nil}, "iv")
	one := lb.Const(1, "one")
	next := lb.Binary(ir.OpAdd, phi, one, "next")
	ir.SetPhiIncoming(phi.DefInst.(*ir.PhiInstruction), loop, next)
	loop.SetReturn(m, next)

	clone := fn.Clone()
	require.NoError(t, ir.Verify(clone))

	assert.Equal(t, fn.Name, clone.Name)
	require.Len(t, clone.Blocks, len(fn.Blocks))
	assert.NotSame(t, fn.Blocks[0], clone.Blocks[0])
	assert.NotSame(t, fn.Blocks[1].Terminator, clone.Blocks[1].Terminator)

	// Mutating the clone must not perturb the original's shape.
	clone.Blocks[1].SetUnreachable(m)
	_, stillReturn := fn.Blocks[1].Terminator.(*ir.ReturnTerminator)
	assert.True(t, stillReturn)
}

func TestCloneDoesNotRegisterGlobalAddrUntilReplaceFunction(t *testing.T) {
	m := ir.NewModule("t")
	g := &ir.GlobalVariable{
		Name:     "greeting",
		Constant: true,
		Initializer: &ir.ConstantDataArray{ElementBits: 8, Data: []byte("hi\x00")},
	}
	m.AddGlobal(g)

	fn := &ir.Function{Name: "f"}
	m.AddFunction(fn)
	entry := ir.NewBlock(m, fn, "entry")
	b := ir.NewBuilder(m, entry)
	addr := b.GlobalAddr(g, "addr", false)
	b.CallVoid("puts", []*ir.Value{addr})
	entry.SetReturn(m, nil)

	require.Len(t, g.Addrs(), 1, "constructing fn records its own global_addr")

	clone := fn.Clone()
	assert.Len(t, g.Addrs(), 1, "cloning must not register the clone's global_addr while it might still be discarded")

	m.ReplaceFunction(fn, clone)
	require.Len(t, g.Addrs(), 1, "swapping the clone in registers its global_addr and drops the discarded original's")
	assert.Same(t, clone.Blocks[0].Instructions[0], g.Addrs()[0])
}

func TestModuleReplaceFunctionSwapsInPlace(t *testing.T) {
	m := ir.NewModule("t")
	fn := &ir.Function{Name: "f"}
	m.AddFunction(fn)
	ir.NewBlock(m, fn, "entry").SetReturn(m, nil)

	clone := fn.Clone()
	m.ReplaceFunction(fn, clone)

	require.Len(t, m.Functions, 1)
	assert.Same(t, clone, m.Functions[0])
}
