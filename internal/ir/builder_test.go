package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chakravyuha/internal/ir"
)

func TestBuilderAllocaLoadStoreRoundTrip(t *testing.T) {
	m := ir.NewModule("t")
	fn := &ir.Function{Name: "f"}
	m.AddFunction(fn)
	entry := ir.NewBlock(m, fn, "entry")
	b := ir.NewBuilder(m, entry)

	slot := b.Alloca("x")
	c := b.Const(42, "c")
	b.Store(c, slot)
	loaded := b.Load(slot, "loaded")
	entry.SetReturn(m, loaded)

	require.NoError(t, ir.Verify(fn))
	assert.Len(t, entry.Instructions, 4)
	assert.Equal(t, "loaded", loaded.Name)
}

func TestBuilderPhiWithIncomingResolvedLater(t *testing.T) {
	m := ir.NewModule("t")
	fn := &ir.Function{Name: "f"}
	m.AddFunction(fn)
	entry := ir.NewBlock(m, fn, "entry")
	loop := ir.NewBlock(m, fn, "loop")
	exit := ir.NewBlock(m, fn, "exit")

	eb := ir.NewBuilder(m, entry)
	zero := eb.Const(0, "zero")
	entry.SetBranch(m, loop)

	lb := ir.NewBuilder(m, loop)
	phi := lb.Phi([]*ir.BasicBlock{entry, loop}, []*ir.Value{zero, nil}, "iv")
	one := lb.Const(1, "one")
	next := lb.Binary(ir.OpAdd, phi, one, "next")
	cond := lb.ICmp(ir.ICmpSLT, next, lb.Const(10, "limit"), "cond")
	loop.SetCondBranch(m, cond, loop, exit)

	ir.SetPhiIncoming(phi.DefInst.(*ir.PhiInstruction), loop, next)

	exit.SetReturn(m, nil)

	require.NoError(t, ir.Verify(fn))
}

func TestBuilderGlobalAddrRecordsUse(t *testing.T) {
	m := ir.NewModule("t")
	g := &ir.GlobalVariable{
		Name:     "g",
		Constant: true,
		Initializer: &ir.ConstantDataArray{
			ElementBits: 8,
			Data:        []byte("x\x00"),
		},
	}
	m.AddGlobal(g)
	fn := &ir.Function{Name: "f"}
	m.AddFunction(fn)
	entry := ir.NewBlock(m, fn, "entry")
	b := ir.NewBuilder(m, entry)
	addr := b.GlobalAddr(g, "addr", false)
	entry.SetReturn(m, addr)

	assert.Len(t, g.Addrs(), 1)
	assert.Equal(t, addr, g.Addrs()[0].Result)
}

func TestNewBlockAutoGeneratesLabelWhenEmpty(t *testing.T) {
	m := ir.NewModule("t")
	fn := &ir.Function{Name: "f"}
	m.AddFunction(fn)
	b1 := ir.NewBlock(m, fn, "")
	b2 := ir.NewBlock(m, fn, "")

	assert.NotEmpty(t, b1.Label)
	assert.NotEqual(t, b1.Label, b2.Label)
	assert.Equal(t, fn, b1.Parent)
	assert.Same(t, b1, fn.Entry())
}
