package obfuscate

import (
	"chakravyuha/internal/errors"
	"chakravyuha/internal/ir"
	"chakravyuha/internal/obfuscate/cff"
	"chakravyuha/internal/obfuscate/report"
	"chakravyuha/internal/obfuscate/se"
)

// Driver runs the whole obfuscation pipeline over one module: SE first
// (it introduces stack allocas and calls whose dominance is trivial),
// then CFF over every function except the decrypt stub SE synthesized,
// then a final module-wide verification
// (spec.md §4.7). SE and CFF do not communicate beyond both mutating
// the same module.
type Driver struct {
	Entropy    Entropy
	Reporter   *errors.Reporter
	Aggregator *report.Aggregator

	// RunSE and RunCFF gate which passes execute, mirroring the host
	// pipeline's per-pass-name dispatch (spec.md §6 "chakravyuha-all"
	// runs both, "chakravyuha-string-encrypt" / "-control-flow-flatten"
	// run one each).
	RunSE  bool
	RunCFF bool
}

// NewDriver builds a driver that runs both passes, reporting to a fresh
// Reporter and the process-wide aggregator.
func NewDriver(entropy Entropy) *Driver {
	return &Driver{
		Entropy:    entropy,
		Reporter:   errors.NewReporter(),
		Aggregator: report.Global(),
		RunSE:      true,
		RunCFF:     true,
	}
}

// Run executes the configured passes over m in order and verifies the
// result. It returns the module verification error, if any — per
// spec.md §7, a verification-broken module is the only fatal outcome
// the driver itself can produce (CFF's own per-function rollback
// absorbs everything else).
func (d *Driver) Run(m *ir.Module) error {
	if d.RunSE {
		se.Run(m, d.Entropy, d.Reporter, d.Aggregator)
	}

	if d.RunCFF {
		for _, fn := range append([]*ir.Function{}, m.Functions...) {
			if fn.Name == se.DecryptFuncName {
				continue
			}
			cff.ProcessFunction(m, fn, d.Entropy, d.Reporter, d.Aggregator)
		}
	}

	if err := ir.VerifyModule(m); err != nil {
		d.Reporter.Errorf(errors.CodeModuleVerificationFailed, "chakravyuha-all", "", "%s", err.Error())
		return err
	}
	return nil
}
