// Package plugin exposes chakravyuha's passes under the pipeline-element
// names a host text-pipeline spec recognizes, and the PreservedAnalyses
// contract the host expects back from each pass run (spec.md §6).
package plugin

import (
	"chakravyuha/internal/ir"
	"chakravyuha/internal/obfuscate"
	"chakravyuha/internal/obfuscate/report"
)

const (
	// NameStringEncrypt is the module pass name for SE alone.
	NameStringEncrypt = "chakravyuha-string-encrypt"
	// NameControlFlowFlatten is the module pass name for CFF alone.
	NameControlFlowFlatten = "chakravyuha-control-flow-flatten"
	// NameAll runs both passes, SE then CFF.
	NameAll = "chakravyuha-all"
)

// PreservedAnalyses is what Pass.Run reports back to the host's analysis
// manager: whether the pass left every analysis result valid ("all
// preserved", when it made no IR change) or invalidated them ("none
// preserved", the common case once a pass has actually rewritten IR).
type PreservedAnalyses struct {
	All bool
}

// None is the result a mutating pass run returns.
func None() PreservedAnalyses { return PreservedAnalyses{All: false} }

// AllPreserved is the result an unchanged module's pass run returns.
func AllPreserved() PreservedAnalyses { return PreservedAnalyses{All: true} }

// AnalysisManager is the host collaborator Pass.Run receives; chakravyuha's
// passes are self-contained module rewrites and never query it, but the
// parameter is part of the host's invocation contract.
type AnalysisManager interface{}

// Pass is one host-addressable pipeline element.
type Pass interface {
	Name() string
	Run(m *ir.Module, am AnalysisManager) (PreservedAnalyses, error)
}

// Info is the plugin-info record the host reads at registration time:
// a name, a version, and the callback that populates the host's
// pipeline-element registry.
type Info struct {
	Name     string
	Version  string
	Register func(reg Registrar)
}

// Registrar is the host's pipeline-element registry: a name-to-constructor
// map the registration callback populates. The host looks up a
// constructor by the name it parsed out of a pipeline text spec.
type Registrar interface {
	RegisterPass(name string, construct func(cfg Config) Pass)
}

// Config carries the run-time knobs a pass constructor needs: the
// entropy capability (seeded or nondeterministic, per spec.md §5) and
// the shared reporter/aggregator every pass run reports to.
type Config struct {
	Entropy obfuscate.Entropy
	Driver  *obfuscate.Driver
}

// Get returns the plugin-info record chakravyuha exposes to a host.
func Get() Info {
	return Info{
		Name:     "chakravyuha",
		Version:  "0.1.0",
		Register: register,
	}
}

func register(reg Registrar) {
	reg.RegisterPass(NameStringEncrypt, func(cfg Config) Pass { return &stringEncryptPass{cfg} })
	reg.RegisterPass(NameControlFlowFlatten, func(cfg Config) Pass { return &controlFlowFlattenPass{cfg} })
	reg.RegisterPass(NameAll, func(cfg Config) Pass { return &allPass{cfg} })
}

type stringEncryptPass struct{ cfg Config }

func (p *stringEncryptPass) Name() string { return NameStringEncrypt }

func (p *stringEncryptPass) Run(m *ir.Module, _ AnalysisManager) (PreservedAnalyses, error) {
	d := driverFor(p.cfg)
	d.RunSE, d.RunCFF = true, false
	before := d.Aggregator.Snapshot()
	if err := d.Run(m); err != nil {
		return None(), err
	}
	return resultFor(before, d.Aggregator.Snapshot()), nil
}

type controlFlowFlattenPass struct{ cfg Config }

func (p *controlFlowFlattenPass) Name() string { return NameControlFlowFlatten }

func (p *controlFlowFlattenPass) Run(m *ir.Module, _ AnalysisManager) (PreservedAnalyses, error) {
	d := driverFor(p.cfg)
	d.RunSE, d.RunCFF = false, true
	before := d.Aggregator.Snapshot()
	if err := d.Run(m); err != nil {
		return None(), err
	}
	return resultFor(before, d.Aggregator.Snapshot()), nil
}

type allPass struct{ cfg Config }

func (p *allPass) Name() string { return NameAll }

func (p *allPass) Run(m *ir.Module, _ AnalysisManager) (PreservedAnalyses, error) {
	d := driverFor(p.cfg)
	d.RunSE, d.RunCFF = true, true
	before := d.Aggregator.Snapshot()
	if err := d.Run(m); err != nil {
		return None(), err
	}
	return resultFor(before, d.Aggregator.Snapshot()), nil
}

func driverFor(cfg Config) *obfuscate.Driver {
	if cfg.Driver != nil {
		return cfg.Driver
	}
	return obfuscate.NewDriver(cfg.Entropy)
}

// resultFor reports "all preserved" only when this run's own counters
// — not the process-wide aggregator's cumulative totals, which may
// already be nonzero from an earlier run — moved: no string encrypted,
// no function flattened or rolled back, between before and after.
func resultFor(before, after report.Report) PreservedAnalyses {
	if after.StringsEncrypted == before.StringsEncrypted &&
		after.FunctionsFlattened == before.FunctionsFlattened &&
		after.FunctionsRolledBack == before.FunctionsRolledBack {
		return AllPreserved()
	}
	return None()
}
