package irtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chakravyuha/internal/ir"
)

// buildSample constructs a small module exercising every line shape
// the grammar understands: a global, a plain function with a
// conditional branch and a phi join, and a declaration.
func buildSample(t *testing.T) *ir.Module {
	t.Helper()
	m := ir.NewModule("sample")

	g := &ir.GlobalVariable{
		Name:     "hello",
		Constant: true,
		Initializer: &ir.ConstantDataArray{
			ElementBits: 8,
			Data:        append([]byte("hi"), 0),
		},
	}
	m.AddGlobal(g)
	m.RetainCompilerUsed(g)

	decl := &ir.Function{Name: "puts", Declaration: true}
	m.AddFunction(decl)

	fn := &ir.Function{Name: "main"}
	m.AddFunction(fn)

	entry := ir.NewBlock(m, fn, "entry")
	ifTrue := ir.NewBlock(m, fn, "if_true")
	ifFalse := ir.NewBlock(m, fn, "if_false")
	join := ir.NewBlock(m, fn, "join")

	eb := ir.NewBuilder(m, entry)
	addr := eb.GlobalAddr(g, "msg", true)
	cond := eb.Const(1, "cond")
	cmp := eb.ICmp(ir.ICmpSGT, cond, eb.Const(0, "zero"), "cmp")
	entry.SetCondBranch(m, cmp, ifTrue, ifFalse)

	tb := ir.NewBuilder(m, ifTrue)
	one := tb.Const(1, "one")
	ifTrue.SetBranch(m, join)

	fb := ir.NewBuilder(m, ifFalse)
	fb.CallVoid("puts", []*ir.Value{addr})
	two := fb.Const(2, "two")
	ifFalse.SetBranch(m, join)

	jb := ir.NewBuilder(m, join)
	phi := jb.Phi([]*ir.BasicBlock{ifTrue, ifFalse}, []*ir.Value{one, two}, "result")
	_ = phi
	join.SetReturn(m, phi)

	return m
}

func TestPrintThenParseRoundTrips(t *testing.T) {
	m := buildSample(t)
	text := Print(m)

	prog, err := ParseString("<test>", text)
	require.NoError(t, err)

	rebuilt, err := Lower(prog)
	require.NoError(t, err)

	require.NoError(t, ir.Verify(rebuilt.Functions[1]))

	again := Print(rebuilt)
	assert.Equal(t, text, again, "printing a reparsed module must reproduce the same text")
}

func TestParseGlobalAddrConstantFlag(t *testing.T) {
	src := `module "t" {
  global @g = constant i8* "x "
  func @main() {
  entry:
    %a = global_addr @g, constant
    ret void
  }
}
`
	prog, err := ParseString("<test>", src)
	require.NoError(t, err)

	m, err := Lower(prog)
	require.NoError(t, err)

	fn := m.Functions[0]
	inst := fn.Blocks[0].Instructions[0].(*ir.GlobalAddrInstruction)
	assert.True(t, inst.Constant)
}

func TestParseDeclareFunction(t *testing.T) {
	src := `module "t" {
  declare func @puts()
}
`
	prog, err := ParseString("<test>", src)
	require.NoError(t, err)

	m, err := Lower(prog)
	require.NoError(t, err)

	require.Len(t, m.Functions, 1)
	assert.True(t, m.Functions[0].Declaration)
	assert.Nil(t, m.Functions[0].Entry())
}

func TestParseSyntaxErrorIsReported(t *testing.T) {
	_, err := ParseString("<test>", `module "t" {`)
	assert.Error(t, err)
}
