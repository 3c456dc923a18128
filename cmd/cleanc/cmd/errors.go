package cmd

import "github.com/cwbudde/clean-wasmc/internal/diag"

// diagnosticError wraps a non-empty diagnostic list returned by a compiler
// phase. It is distinct from an ordinary I/O error (missing file, unwritable
// output) so main can map the two onto the different exit codes spec §6
// assigns them: 1 for "the input was rejected", 2 for "the driver itself
// couldn't complete the request".
type diagnosticError struct {
	diags []diag.Diagnostic
}

func (e *diagnosticError) Error() string {
	if len(e.diags) == 1 {
		return e.diags[0].Error()
	}
	return diag.FormatAll(e.diags, false, "")
}

// ExitCodeFor maps a RunE error to the process exit code spec §6 specifies:
//
//	0  success (no error at all; Execute never reaches os.Exit)
//	1  the input program has at least one diagnostic at SeverityError
//	2  everything else: bad flags, unreadable files, unwritable output
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if _, ok := err.(*diagnosticError); ok {
		return 1
	}
	return 2
}
