package runner

// Result holds the outcome of a single command execution.
//
// Exactly one of three outcome classes holds: TimedOut is true, ExecError
// is non-empty, or the command ran to completion and ExitCode is
// meaningful. ElapsedMillis is always set, whatever the outcome.
type Result struct {
	RunID         string   // unique identifier for this execution
	ExitCode      int      // process exit code; 1 is a sentinel on timeout/failure
	Stdout        string   // captured stdout (may be truncated)
	Stderr        string   // captured stderr (may be truncated)
	TimedOut      bool     // true if the command exceeded its timeout
	ExecError     string   // non-empty when the command could not be run to completion
	ElapsedMillis int64    // wall-clock duration of the call
	Truncated     bool     // true if output exceeded the size cap
	Argv          []string // the command as requested, for diagnostics
}

// Failed reports whether the execution mechanism itself failed.
// A non-zero exit code from a command that ran to completion is not a
// mechanism failure; interpreting it belongs to the caller.
func (r *Result) Failed() bool {
	return r.TimedOut || r.ExecError != ""
}
