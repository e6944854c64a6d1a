package cff

import (
	"chakravyuha/internal/errors"
	"chakravyuha/internal/ir"
	"chakravyuha/internal/obfuscate/report"
)

const passName = "chakravyuha-control-flow-flatten"

// ProcessFunction gates, demotes, and flattens fn. A function the gate
// rejects is skipped and left untouched; once transformation has begun,
// fn is rolled back to its pre-transformation clone if Flatten fails or
// if the flattened result fails verification (spec.md §4.6.2, §7). It
// reports outcomes to rep and counters to agg.
func ProcessFunction(m *ir.Module, fn *ir.Function, entropy Entropy, rep *errors.Reporter, agg *report.Aggregator) {
	gate := Gate(fn)
	if !gate.Eligible {
		rep.Warnf(gateCode(gate), passName, fn.Name, "%s", gate.Reason)
		agg.AddFunctionSkipped()
		return
	}

	original := fn.Clone()
	// Every non-entry block becomes a dispatcher case.
	targets := len(fn.Blocks) - 1

	Demote(m, fn)

	if err := Flatten(m, fn, entropy); err != nil {
		rollback(m, fn, original, rep, agg, errors.CodeNextStateUnavailable, err.Error())
		return
	}

	if err := ir.VerifyFlattened(fn); err != nil {
		rollback(m, fn, original, rep, agg, errors.CodeVerificationRollback, err.Error())
		return
	}

	agg.AddFunctionFlattened(targets)
	rep.Notef(passName, fn.Name, "flattened into %d dispatcher-reachable blocks", targets)
}

func rollback(m *ir.Module, fn, original *ir.Function, rep *errors.Reporter, agg *report.Aggregator, code, reason string) {
	m.ReplaceFunction(fn, original)
	rep.Errorf(code, passName, fn.Name, "%s; function restored", reason)
	agg.AddFunctionRolledBack()
}

func gateCode(g GateResult) string {
	switch g.Reason {
	case "function has no definition (declaration or intrinsic)":
		return errors.CodeNotAFunctionBody
	case "function has fewer than two blocks":
		return errors.CodeTooFewBlocks
	case "function contains an exception-handling pad block":
		return errors.CodeExceptionPad
	default:
		return errors.CodeUnsupportedTerminator
	}
}
