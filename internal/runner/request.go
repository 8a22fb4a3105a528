package runner

import "time"

// Request describes a single command execution. A Request is built fresh
// per call and never mutated after creation.
type Request struct {
	// Argv is the command to run. The first element is the executable,
	// resolved via PATH unless it is already a path.
	Argv []string

	// Dir is the working directory, resolved relative to the workspace
	// root. Empty means the workspace root itself.
	Dir string

	// Timeout bounds the wall-clock duration of the child process.
	// Zero means the runner's default timeout.
	Timeout time.Duration

	// Env is merged on top of the inherited process environment. For
	// interpreter commands it is also merged on top of the isolation
	// variables, so caller-specified values win.
	Env map[string]string

	// CaptureOutput controls whether stdout/stderr are captured into the
	// Result. When false the child's streams are discarded; they are never
	// connected to the host's own stdio.
	CaptureOutput bool

	// Stdin is piped to the child's standard input when non-empty.
	// Otherwise the child's stdin reads from the null device.
	Stdin string
}
