package se

import (
	"chakravyuha/internal/errors"
	"chakravyuha/internal/ir"
	"chakravyuha/internal/obfuscate/report"
)

// Run applies String Encryption to every eligible global in m: collect
// (spec.md §4.1), then rewrite each one in turn (spec.md §4.3), sharing
// a single Synthesizer so the whole module gets one decrypt stub and
// one key (spec.md §4.2). It reports diagnostics to rep and counters to
// agg, and returns the number of globals successfully encrypted.
func Run(m *ir.Module, entropy Entropy, rep *errors.Reporter, agg *report.Aggregator) int {
	targets := Collect(m)
	if len(targets) == 0 {
		return 0
	}

	synth := NewSynthesizer(entropy)
	rewriter := NewRewriter(synth, rep, agg)

	encrypted := 0
	for _, g := range targets {
		if rewriter.Rewrite(m, g) {
			encrypted++
		}
	}
	return encrypted
}
