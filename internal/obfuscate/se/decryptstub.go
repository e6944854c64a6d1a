package se

import "chakravyuha/internal/ir"

// DecryptFuncName is the agreed decrypt signature's symbol: void
// D(dest *u8, src *u8, length i32) (spec.md §4.2). A synthesizer looks
// for a function already carrying this name before creating one, which
// is what makes synthesis idempotent per module.
const DecryptFuncName = "__chakravyuha_decrypt"

// Synthesizer ensures a module carries exactly one decrypt stub and
// remembers the module key it embedded, so every call UseRewriter
// builds uses the same key the stub XORs with.
type Synthesizer struct {
	entropy Entropy
	key     byte
	keySet  bool
}

// Entropy is the randomness capability the decrypt stub's key draws
// from. It is the same shape as obfuscate.Entropy; se depends on this
// narrower interface instead of importing the parent package, keeping
// se usable on its own.
type Entropy interface {
	KeyByte() byte
}

// NewSynthesizer builds a synthesizer drawing its module key from entropy.
func NewSynthesizer(entropy Entropy) *Synthesizer {
	return &Synthesizer{entropy: entropy}
}

// Key returns the module key this synthesizer has selected, choosing
// one on first call. UseRewriter calls this to XOR-encrypt collected
// strings with the same key the stub decrypts with.
func (s *Synthesizer) Key() byte {
	if !s.keySet {
		s.key = s.entropy.KeyByte()
		s.keySet = true
	}
	return s.key
}

// Ensure returns the module's decrypt function, creating it with the
// four-block entry->header->body->header|exit shape from spec.md §4.2
// if the module doesn't already have one. Calling Ensure more than once
// on the same module returns the same function (idempotent per module).
func (s *Synthesizer) Ensure(m *ir.Module) *ir.Function {
	for _, f := range m.Functions {
		if f.Name == DecryptFuncName {
			return f
		}
	}
	return s.build(m)
}

func (s *Synthesizer) build(m *ir.Module) *ir.Function {
	key := int64(s.Key())

	fn := &ir.Function{Name: DecryptFuncName, Linkage: ir.LinkagePrivate}
	m.AddFunction(fn)

	// dest/src/length are the call's actual arguments (rewriter.go binds
	// them positionally: buffer, encAddr, lengthConst) — formal
	// parameters, not entry allocas a caller never stores into.
	dest := ir.NewParam(m, fn, "dest")
	src := ir.NewParam(m, fn, "src")
	length := ir.NewParam(m, fn, "length")

	entry := ir.NewBlock(m, fn, "entry")
	header := ir.NewBlock(m, fn, "header")
	body := ir.NewBlock(m, fn, "body")
	exit := ir.NewBlock(m, fn, "exit")

	eb := ir.NewBuilder(m, entry)
	zero := eb.Const(0, "i.init")
	entry.SetBranch(m, header)

	hb := ir.NewBuilder(m, header)
	iv := hb.Phi([]*ir.BasicBlock{entry, body}, []*ir.Value{zero, nil}, "i")
	cond := hb.ICmp(ir.ICmpSLT, iv, length, "in.bounds")
	header.SetCondBranch(m, cond, body, exit)

	bb := ir.NewBuilder(m, body)
	srcElem := bb.GEP(src, iv, "src.elem")
	loaded := bb.Load(srcElem, "c")
	keyConst := bb.Const(key, "key")
	decoded := bb.Binary(ir.OpXor, loaded, keyConst, "p")
	destElem := bb.GEP(dest, iv, "dest.elem")
	bb.Store(decoded, destElem)
	one := bb.Const(1, "one")
	next := bb.Binary(ir.OpAdd, iv, one, "i.next")
	body.SetBranch(m, header)

	ir.SetPhiIncoming(iv.DefInst.(*ir.PhiInstruction), body, next)

	exit.SetReturn(m, nil)

	return fn
}
