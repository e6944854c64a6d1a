// Package se implements String Encryption: collecting plaintext string
// globals, synthesizing a per-module decrypt stub, and rewriting every
// use to call through it (spec.md §4.1-§4.3).
package se

import "chakravyuha/internal/ir"

// Collect returns every global in m eligible for encryption, in module
// order: constant, has an initializer, and that initializer is a
// constant byte array recognizable as a null-terminated string
// (spec.md §4.1). Name-based filtering is deliberately not applied —
// the eligibility test is purely structural.
func Collect(m *ir.Module) []*ir.GlobalVariable {
	var out []*ir.GlobalVariable
	for _, g := range m.Globals {
		if isEligible(g) {
			out = append(out, g)
		}
	}
	return out
}

func isEligible(g *ir.GlobalVariable) bool {
	if !g.Constant || g.Initializer == nil {
		return false
	}
	return g.Initializer.IsNullTerminatedString()
}
