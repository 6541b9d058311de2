// Package sandbox implements the Sandbox Driver (C1): building an isolated
// container image for one Execution, running it under CPU-time and memory
// caps, and reporting exit status and resource-exhaustion signals.
package sandbox

import (
	"context"
	"errors"

	"github.com/sempr/judgecore/internal/execution"
)

// ErrSandboxUnavailable marks an infrastructure failure in the container
// engine itself, as distinct from a failure caused by the submitted program.
// The Verdict Classifier is never invoked when this error is returned; the
// caller maps it straight to a 500.
var ErrSandboxUnavailable = errors.New("sandbox: engine unavailable")

// DefaultStdoutCap bounds how much stdout the driver captures from a run;
// excess is discarded and RunResult.StdoutClipped is set, but truncation
// alone never changes the verdict.
const DefaultStdoutCap = 1 << 20 // 1 MiB

// BuildResult is the outcome of building the sandbox image for an Execution.
type BuildResult struct {
	OK     bool
	Stderr string
}

// RunResult is the outcome of running the built image.
type RunResult struct {
	ExitCode      int
	Stdout        string
	Stderr        string
	WallClockMs   int64 // only meaningful when TimedOut is false
	MemoryKilled  bool
	TimedOut      bool
	StdoutClipped bool
}

// Sandbox is the contract the Verdict Classifier's inputs are built from. A
// Docker-backed implementation is provided in this package; the interface
// itself has no dependency on Docker so it can be faked in tests.
type Sandbox interface {
	// Build prepares the isolated sandbox (for DockerSandbox, a started
	// container holding the source) and runs the compile step if any.
	// OK=false with captured stderr indicates a Compilation Error.
	Build(ctx context.Context, exec *execution.Execution) (BuildResult, error)

	// Run executes the built image with exec's configured time and memory
	// caps, piping stdin from exec's input file when present.
	Run(ctx context.Context, exec *execution.Execution) (RunResult, error)

	// Remove deletes what Build created (for DockerSandbox, the container).
	// Safe to call even if Build never produced anything.
	Remove(ctx context.Context, exec *execution.Execution) error
}
