// Package report implements the process-wide counter aggregator spec.md
// §5 describes: a lazily initialized, single-thread-owned set of
// counters the SE and CFF passes update as they run. The JSON report
// emitter that turns this into a file on disk is explicitly an
// external collaborator (spec.md §1 "Out of scope"); this package only
// owns the counters themselves.
package report

import "sync/atomic"

// Report holds every counter the core's passes contribute to. Fields
// are exported so the (external) JSON emitter can marshal the struct
// directly.
type Report struct {
	// String Encryption counters.
	StringsEncrypted   int64 `json:"strings_encrypted"`
	PlaintextBytes     int64 `json:"plaintext_bytes"`
	CiphertextBytes    int64 `json:"ciphertext_bytes"`
	StringsUnprocessed int64 `json:"strings_unprocessed"`
	Method             string `json:"method"`

	// Control-Flow Flattening counters.
	FunctionsFlattened int64 `json:"functions_flattened"`
	BlocksFlattened    int64 `json:"blocks_flattened"`
	FunctionsSkipped   int64 `json:"functions_skipped"`
	FunctionsRolledBack int64 `json:"functions_rolled_back"`
}

// Aggregator is the process-wide, lazily initialized counter set from
// spec.md §5. Each field is a separate atomic counter rather than one
// guarded by a single lock: spec.md requires "no locking when hosts
// are single-threaded" but "atomic per field or per-module" the moment
// a host invokes the plugin concurrently across modules, so the atomic
// form is the one choice that is correct under both regimes.
type Aggregator struct {
	stringsEncrypted    atomic.Int64
	plaintextBytes      atomic.Int64
	ciphertextBytes     atomic.Int64
	stringsUnprocessed  atomic.Int64
	functionsFlattened  atomic.Int64
	blocksFlattened     atomic.Int64
	functionsSkipped    atomic.Int64
	functionsRolledBack atomic.Int64
}

var global Aggregator

// Global returns the process-wide aggregator every pass invocation
// contributes to by default, lazily initialized by Go's zero-value
// semantics (an atomic.Int64 needs no explicit construction).
func Global() *Aggregator { return &global }

// AddStringsEncrypted records n additional encrypted strings, with
// their plaintext/ciphertext byte totals.
func (a *Aggregator) AddStringsEncrypted(n int, plaintextBytes, ciphertextBytes int) {
	a.stringsEncrypted.Add(int64(n))
	a.plaintextBytes.Add(int64(plaintextBytes))
	a.ciphertextBytes.Add(int64(ciphertextBytes))
}

// AddStringUnprocessed records one string global that could not be
// fully rewritten and was left in the module (spec.md §4.3 step 4).
func (a *Aggregator) AddStringUnprocessed() { a.stringsUnprocessed.Add(1) }

// AddFunctionFlattened records one successfully flattened function and
// the number of blocks it contributed to the dispatcher.
func (a *Aggregator) AddFunctionFlattened(blocks int) {
	a.functionsFlattened.Add(1)
	a.blocksFlattened.Add(int64(blocks))
}

// AddFunctionSkipped records one function FunctionGate rejected.
func (a *Aggregator) AddFunctionSkipped() { a.functionsSkipped.Add(1) }

// AddFunctionRolledBack records one function whose flattening was
// reverted after Flatten failed or verification failed (spec.md §4.6.2).
func (a *Aggregator) AddFunctionRolledBack() { a.functionsRolledBack.Add(1) }

// Snapshot captures the aggregator's current counters into a Report
// value safe to marshal or compare.
func (a *Aggregator) Snapshot() Report {
	return Report{
		StringsEncrypted:    a.stringsEncrypted.Load(),
		PlaintextBytes:      a.plaintextBytes.Load(),
		CiphertextBytes:     a.ciphertextBytes.Load(),
		StringsUnprocessed:  a.stringsUnprocessed.Load(),
		Method:              "XOR with dynamic per-run key",
		FunctionsFlattened:  a.functionsFlattened.Load(),
		BlocksFlattened:     a.blocksFlattened.Load(),
		FunctionsSkipped:    a.functionsSkipped.Load(),
		FunctionsRolledBack: a.functionsRolledBack.Load(),
	}
}
