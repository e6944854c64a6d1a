// SPDX-License-Identifier: Apache-2.0
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"chakravyuha/internal/errors"
	"chakravyuha/internal/irtext"
	"chakravyuha/internal/obfuscate"
	"chakravyuha/internal/obfuscate/report"
	"chakravyuha/internal/plugin"
)

func main() {
	passes := flag.String("passes", plugin.NameAll, "pipeline element to run: "+
		plugin.NameStringEncrypt+"|"+plugin.NameControlFlowFlatten+"|"+plugin.NameAll)
	seed := flag.Uint64("seed", 0, "fixed entropy seed for reproducible output (0 = nondeterministic)")
	out := flag.String("o", "", "path to write the transformed module (defaults to stdout)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: chakravyuha-opt [-passes=name] [-seed=N] [-o=path] <file.cvir>")
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *passes, *seed, *out); err != nil {
		color.Red("chakravyuha-opt: %s", err)
		os.Exit(1)
	}
}

func run(path, passName string, seed uint64, outPath string) error {
	prog, err := irtext.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	m, err := irtext.Lower(prog)
	if err != nil {
		return fmt.Errorf("lower: %w", err)
	}

	var entropy obfuscate.Entropy = obfuscate.NondeterministicEntropy{}
	if seed != 0 {
		entropy = obfuscate.NewSeededEntropy(seed)
	}

	reporter := errors.NewReporter()
	driver := obfuscate.NewDriver(entropy)
	driver.Reporter = reporter

	reg := newRegistry()
	plugin.Get().Register(reg)
	construct, ok := reg.passes[passName]
	if !ok {
		return fmt.Errorf("unknown -passes value %q", passName)
	}
	pass := construct(plugin.Config{Entropy: entropy, Driver: driver})

	if _, err := pass.Run(m, nil); err != nil {
		fmt.Print(reporter.Render())
		return fmt.Errorf("%s: %w", pass.Name(), err)
	}
	if reporter.HasErrors() {
		fmt.Print(reporter.Render())
	}

	text := irtext.Print(m)
	if outPath == "" {
		fmt.Print(text)
	} else if err := os.WriteFile(outPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	snap := report.Global().Snapshot()
	color.Green("strings encrypted: %d, functions flattened: %d, functions rolled back: %d",
		snap.StringsEncrypted, snap.FunctionsFlattened, snap.FunctionsRolledBack)

	return nil
}

// registry is the Registrar a host's pipeline-spec parser populates;
// the CLI plays that host role for a single named pass at a time.
type registry struct {
	passes map[string]func(plugin.Config) plugin.Pass
}

func newRegistry() *registry {
	return &registry{passes: make(map[string]func(plugin.Config) plugin.Pass)}
}

func (r *registry) RegisterPass(name string, construct func(plugin.Config) plugin.Pass) {
	r.passes[name] = construct
}
