package plugin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chakravyuha/internal/ir"
	"chakravyuha/internal/obfuscate"
	"chakravyuha/internal/plugin"
)

type fakeRegistrar struct {
	passes map[string]func(plugin.Config) plugin.Pass
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{passes: make(map[string]func(plugin.Config) plugin.Pass)}
}

func (r *fakeRegistrar) RegisterPass(name string, construct func(plugin.Config) plugin.Pass) {
	r.passes[name] = construct
}

func buildModule() *ir.Module {
	m := ir.NewModule("t")
	g := &ir.GlobalVariable{
		Name:     "hello",
		Constant: true,
		Initializer: &ir.ConstantDataArray{
			ElementBits: 8,
			Data:        append([]byte("hi"), 0),
		},
	}
	m.AddGlobal(g)
	fn := &ir.Function{Name: "main"}
	m.AddFunction(fn)
	entry := ir.NewBlock(m, fn, "entry")
	b := ir.NewBuilder(m, entry)
	addr := b.GlobalAddr(g, "msg", false)
	b.CallVoid("puts", []*ir.Value{addr})
	entry.SetReturn(m, nil)
	return m
}

func TestGetExposesAllThreePassNames(t *testing.T) {
	reg := newFakeRegistrar()
	plugin.Get().Register(reg)

	assert.Contains(t, reg.passes, plugin.NameStringEncrypt)
	assert.Contains(t, reg.passes, plugin.NameControlFlowFlatten)
	assert.Contains(t, reg.passes, plugin.NameAll)
}

func TestStringEncryptPassReturnsNonePreservedWhenItRewrites(t *testing.T) {
	reg := newFakeRegistrar()
	plugin.Get().Register(reg)

	construct := reg.passes[plugin.NameStringEncrypt]
	pass := construct(plugin.Config{Entropy: obfuscate.NewSeededEntropy(1)})

	m := buildModule()
	result, err := pass.Run(m, nil)
	require.NoError(t, err)

	assert.False(t, result.All)
	assert.Equal(t, plugin.NameStringEncrypt, pass.Name())

	for _, g := range m.Globals {
		assert.NotEqual(t, "hello", g.Name)
	}
}

func TestControlFlowFlattenPassReturnsAllPreservedWhenUngated(t *testing.T) {
	reg := newFakeRegistrar()
	plugin.Get().Register(reg)

	m := ir.NewModule("t")
	fn := &ir.Function{Name: "main"}
	m.AddFunction(fn)
	entry := ir.NewBlock(m, fn, "entry")
	zero := ir.NewBuilder(m, entry).Const(0, "zero")
	entry.SetReturn(m, zero)

	construct := reg.passes[plugin.NameControlFlowFlatten]
	pass := construct(plugin.Config{Entropy: obfuscate.NewSeededEntropy(3)})

	result, err := pass.Run(m, nil)
	require.NoError(t, err)
	assert.True(t, result.All, "a single-block function has nothing for the gate to accept")
}
