package ir

import "fmt"

// Verify checks the structural invariants the host's real verifier
// would enforce, restricted to what the core's transformations can
// break: well-formed blocks and no dangling successor edges. It does
// not check ϕ-freedom; VerifyFlattened, which the CFF driver runs on
// every function it flattened, adds that check. A function that
// fails here is exactly the "verification failure" case of spec.md
// §4.6.2 / §7, whose only recourse is rollback.
func Verify(fn *Function) error {
	return verifyFunction(fn, false)
}

// VerifyFlattened is the stricter check CFF runs on a function it just
// flattened: in addition to the base checks, every ϕ-node must be gone
// and the single-dispatcher-predecessor shape from spec.md §8 must hold.
func VerifyFlattened(fn *Function) error {
	return verifyFunction(fn, true)
}

func verifyFunction(fn *Function, checkNoPhis bool) error {
	if fn.Declaration {
		return nil
	}
	if len(fn.Blocks) == 0 {
		return fmt.Errorf("function %s: definition has no blocks", fn.Name)
	}

	seen := make(map[*BasicBlock]bool, len(fn.Blocks))
	for _, b := range fn.Blocks {
		seen[b] = true
	}

	for _, b := range fn.Blocks {
		if b.Terminator == nil {
			return fmt.Errorf("function %s: block %s has no terminator", fn.Name, b.Label)
		}
		for _, s := range b.Terminator.GetSuccessors() {
			if s == nil {
				return fmt.Errorf("function %s: block %s has a nil successor", fn.Name, b.Label)
			}
			if !seen[s] {
				return fmt.Errorf("function %s: block %s branches to a block outside the function", fn.Name, b.Label)
			}
		}
		if checkNoPhis {
			for _, inst := range b.Instructions {
				if _, ok := inst.(*PhiInstruction); ok {
					return fmt.Errorf("function %s: block %s still contains a phi after demotion", fn.Name, b.Label)
				}
			}
		}
	}

	if checkNoPhis {
		if err := verifyDispatcherShape(fn); err != nil {
			return err
		}
	}

	return nil
}

// verifyDispatcherShape checks the two dispatcher-related properties
// from spec.md §8: exactly one dispatcher/default pair, and every
// former non-entry, non-terminal block reachable only through the
// dispatcher.
func verifyDispatcherShape(fn *Function) error {
	var dispatchers []*BasicBlock
	for _, b := range fn.Blocks {
		if sw, ok := b.Terminator.(*SwitchTerminator); ok {
			if _, isUnreachable := sw.Default.Terminator.(*UnreachableTerminator); isUnreachable {
				dispatchers = append(dispatchers, b)
			}
		}
	}
	if len(dispatchers) == 0 {
		// Function had fewer than two blocks, or nothing to flatten; not
		// every gated function produces a dispatcher (e.g. a single
		// return block), so absence alone isn't an error.
		return nil
	}
	if len(dispatchers) > 1 {
		return fmt.Errorf("function %s: expected exactly one dispatcher block, found %d", fn.Name, len(dispatchers))
	}
	dispatch := dispatchers[0]

	for _, b := range fn.Blocks {
		if b == fn.Entry() || b == dispatch {
			continue
		}
		if len(b.Predecessors) == 0 {
			continue // dead after flattening; DCE's job, not the verifier's.
		}
		for _, p := range b.Predecessors {
			if p != dispatch {
				return fmt.Errorf("function %s: block %s has a predecessor other than the dispatcher", fn.Name, b.Label)
			}
		}
	}

	return nil
}

// VerifyModule runs Verify over every defined function in m. It is
// the whole-module check the Driver performs once per spec.md §4.7.
func VerifyModule(m *Module) error {
	for _, fn := range m.Functions {
		if err := Verify(fn); err != nil {
			return err
		}
	}
	return nil
}
