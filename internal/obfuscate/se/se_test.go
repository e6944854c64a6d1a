package se

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chakravyuha/internal/errors"
	"chakravyuha/internal/ir"
	"chakravyuha/internal/obfuscate"
	"chakravyuha/internal/obfuscate/report"
)

func newModuleWithString(t *testing.T, name, literal string) (*ir.Module, *ir.Function) {
	t.Helper()
	m := ir.NewModule("test")

	g := &ir.GlobalVariable{
		Name:     name,
		Constant: true,
		Initializer: &ir.ConstantDataArray{
			ElementBits: 8,
			Data:        append([]byte(literal), 0),
		},
	}
	m.AddGlobal(g)

	fn := &ir.Function{Name: "caller"}
	m.AddFunction(fn)
	entry := ir.NewBlock(m, fn, "entry")

	b := ir.NewBuilder(m, entry)
	addr := b.GlobalAddr(g, "msg", false)
	b.CallVoid("puts", []*ir.Value{addr})
	entry.SetReturn(m, nil)

	return m, fn
}

func TestCollectFindsNullTerminatedStringGlobal(t *testing.T) {
	m, _ := newModuleWithString(t, "greeting", "hi")
	got := Collect(m)
	require.Len(t, got, 1)
	assert.Equal(t, "greeting", got[0].Name)
}

func TestCollectIgnoresNonConstantAndNonStringGlobals(t *testing.T) {
	m := ir.NewModule("test")
	m.AddGlobal(&ir.GlobalVariable{Name: "mutable", Constant: false, Initializer: &ir.ConstantDataArray{ElementBits: 8, Data: []byte("x\x00")}})
	m.AddGlobal(&ir.GlobalVariable{Name: "nontext", Constant: true, Initializer: &ir.ConstantDataArray{ElementBits: 32, Data: []byte{1, 0, 0, 0}}})
	m.AddGlobal(&ir.GlobalVariable{Name: "unterminated", Constant: true, Initializer: &ir.ConstantDataArray{ElementBits: 8, Data: []byte("oops")}})

	assert.Empty(t, Collect(m))
}

func TestSynthesizerIsIdempotentPerModule(t *testing.T) {
	m := ir.NewModule("test")
	synth := NewSynthesizer(obfuscate.NewSeededEntropy(1))

	first := synth.Ensure(m)
	second := synth.Ensure(m)

	assert.Same(t, first, second)
	assert.Len(t, m.Functions, 1)
	assert.Len(t, first.Blocks, 4)
	assert.NoError(t, ir.Verify(first))
}

func TestDecryptStubHasFourBlockLoopShape(t *testing.T) {
	m := ir.NewModule("test")
	synth := NewSynthesizer(obfuscate.NewSeededEntropy(7))
	fn := synth.Ensure(m)

	labels := make([]string, len(fn.Blocks))
	for i, b := range fn.Blocks {
		labels[i] = b.Label
	}
	assert.Equal(t, []string{"entry", "header", "body", "exit"}, labels)

	header := fn.Blocks[1]
	var phiCount int
	for _, inst := range header.Instructions {
		if _, ok := inst.(*ir.PhiInstruction); ok {
			phiCount++
		}
	}
	assert.Equal(t, 1, phiCount, "header should carry the induction variable's phi")
}

func TestRunEncryptsStringAndRewritesUse(t *testing.T) {
	m, fn := newModuleWithString(t, "greeting", "hi")
	rep := errors.NewReporter()
	agg := &report.Aggregator{}

	n := Run(m, obfuscate.NewSeededEntropy(42), rep, agg)
	require.Equal(t, 1, n)

	for _, g := range m.Globals {
		assert.NotEqual(t, "greeting", g.Name, "plaintext global must be erased")
	}

	var enc *ir.GlobalVariable
	for _, g := range m.Globals {
		if g.Name == "greeting.enc" {
			enc = g
		}
	}
	require.NotNil(t, enc, "encrypted replacement global must exist")
	assert.True(t, m.IsCompilerUsed(enc))
	assert.NotEqual(t, []byte("hi\x00"), enc.Initializer.Data, "ciphertext must differ from plaintext")
	assert.Len(t, enc.Initializer.Data, 3)

	require.NoError(t, ir.Verify(fn))

	var sawDecryptCall bool
	var putsCall *ir.CallInstruction
	for _, inst := range fn.Entry().Instructions {
		call, ok := inst.(*ir.CallInstruction)
		if !ok {
			continue
		}
		switch call.Callee {
		case DecryptFuncName:
			sawDecryptCall = true
		case "puts":
			putsCall = call
		}
	}
	assert.True(t, sawDecryptCall, "caller's entry block should contain the decrypt call")

	require.NotNil(t, putsCall, "caller's entry block should still contain the puts call")
	require.Len(t, putsCall.Args, 1)
	assert.Contains(t, putsCall.Args[0].Name, "plain", "puts must consume the decrypted buffer, not the erased global_addr")

	snap := agg.Snapshot()
	assert.EqualValues(t, 1, snap.StringsEncrypted)
	assert.EqualValues(t, 3, snap.PlaintextBytes)
}

func TestRunLeavesGlobalAloneWhenUseIsConstantFolded(t *testing.T) {
	m := ir.NewModule("test")
	g := &ir.GlobalVariable{
		Name:     "embedded",
		Constant: true,
		Initializer: &ir.ConstantDataArray{
			ElementBits: 8,
			Data:        []byte("x\x00"),
		},
	}
	m.AddGlobal(g)

	fn := &ir.Function{Name: "caller"}
	m.AddFunction(fn)
	entry := ir.NewBlock(m, fn, "entry")
	b := ir.NewBuilder(m, entry)
	addr := b.GlobalAddr(g, "folded", true)
	b.CallVoid("puts", []*ir.Value{addr})
	entry.SetReturn(m, nil)

	rep := errors.NewReporter()
	agg := &report.Aggregator{}
	n := Run(m, obfuscate.NewSeededEntropy(1), rep, agg)

	assert.Equal(t, 0, n)
	assert.True(t, rep.HasErrors() == false)
	found := false
	for _, d := range rep.Diagnostics() {
		if d.Code == errors.CodeUnrewritableUse {
			found = true
		}
	}
	assert.True(t, found)

	stillPresent := false
	for _, global := range m.Globals {
		if global.Name == "embedded" {
			stillPresent = true
		}
	}
	assert.True(t, stillPresent, "global with a constant-folded use must be left alone")
}
