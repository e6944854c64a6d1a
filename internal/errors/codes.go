package errors

// Diagnostic codes for the chakravyuha obfuscation core.
// These codes are used in diagnostic messages to give a stable
// identity to each kind of non-fatal skip or fatal rollback the core
// can report (spec.md §7).
//
// Code ranges:
// C0001-C0099: CFF eligibility / gating diagnostics
// C0100-C0199: CFF demotion / flattening internal-invariant failures
// C0200-C0299: CFF verification rollback
// C0300-C0399: SE collection / rewrite diagnostics
// C0400-C0499: driver / plugin wiring diagnostics

const (
	// C0001: function has an unsupported terminator (indirect branch,
	// callbr, or non-call invoke) — spec.md §4.4.
	CodeUnsupportedTerminator = "C0001"

	// C0002: function contains an exception-handling pad block.
	CodeExceptionPad = "C0002"

	// C0003: function is a declaration or intrinsic, not a definition.
	CodeNotAFunctionBody = "C0003"

	// C0004: function has fewer than two blocks.
	CodeTooFewBlocks = "C0004"

	// C0100: a next-state computation was required but impossible for a
	// terminator the Flattener expected to rewrite — spec.md §4.6,
	// internal invariant violation.
	CodeNextStateUnavailable = "C0100"

	// C0200: verification failed after flattening; the function's
	// pre-transformation clone was restored — spec.md §4.6.2.
	CodeVerificationRollback = "C0200"

	// C0300: a global string's use could not be rewritten (constant
	// user) and the global was left unprocessed — spec.md §4.3 step 4.
	CodeUnrewritableUse = "C0300"

	// C0301: a collected string global had no initializer bytes to
	// encrypt (defensive; should not occur given StringCollector's
	// eligibility test).
	CodeEmptyStringLiteral = "C0301"

	// C0400: the driver's post-pass module verification failed for a
	// function CFF never touched (indicates a bug in SE, not CFF).
	CodeModuleVerificationFailed = "C0400"
)

// Description returns a human-readable one-line description of code,
// for diagnostic output and -help-style listings.
func Description(code string) string {
	switch code {
	case CodeUnsupportedTerminator:
		return "function contains a terminator outside the conservatively supported subset"
	case CodeExceptionPad:
		return "function contains an exception-handling pad block"
	case CodeNotAFunctionBody:
		return "value is a declaration or intrinsic, not a function definition"
	case CodeTooFewBlocks:
		return "function has fewer than two basic blocks"
	case CodeNextStateUnavailable:
		return "next-state computation required but impossible for this terminator"
	case CodeVerificationRollback:
		return "verification failed after flattening; function was restored"
	case CodeUnrewritableUse:
		return "a use of a string global could not be rewritten to the decrypted buffer"
	case CodeEmptyStringLiteral:
		return "collected string global has an empty initializer"
	case CodeModuleVerificationFailed:
		return "module failed verification after the obfuscation pipeline ran"
	default:
		return "unknown diagnostic code"
	}
}
