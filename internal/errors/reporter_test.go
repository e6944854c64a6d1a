package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReporterAccumulatesDiagnostics(t *testing.T) {
	r := NewReporter()
	r.Warnf(CodeUnsupportedTerminator, "chakravyuha-control-flow-flatten", "hasIndirectBr",
		"function contains an indirect branch")
	r.Errorf(CodeVerificationRollback, "chakravyuha-control-flow-flatten", "corrupt",
		"verification failed, function restored")
	r.Notef("chakravyuha-string-encrypt", "", "encrypted 3 strings")

	assert.Len(t, r.Diagnostics(), 3)
	assert.True(t, r.HasErrors())
}

func TestReporterHasErrorsFalseWhenOnlyWarnings(t *testing.T) {
	r := NewReporter()
	r.Warnf(CodeExceptionPad, "chakravyuha-control-flow-flatten", "hasPad", "function contains an exception pad")
	assert.False(t, r.HasErrors())
}

func TestDiagnosticStringIncludesCodeAndFunction(t *testing.T) {
	d := Diagnostic{
		Level:    Error,
		Code:     CodeVerificationRollback,
		Pass:     "chakravyuha-control-flow-flatten",
		Function: "transfer",
		Message:  "verification failed, function restored",
	}
	s := d.String()
	assert.Contains(t, s, CodeVerificationRollback)
	assert.Contains(t, s, "transfer")
	assert.Contains(t, s, "verification failed")
}

func TestReporterRenderProducesOneLinePerDiagnostic(t *testing.T) {
	r := NewReporter()
	r.Notef("chakravyuha-string-encrypt", "", "encrypted 1 string")
	r.Warnf(CodeTooFewBlocks, "chakravyuha-control-flow-flatten", "main", "too few blocks to flatten")

	rendered := r.Render()
	assert.Contains(t, rendered, "encrypted 1 string")
	assert.Contains(t, rendered, "too few blocks to flatten")
}
