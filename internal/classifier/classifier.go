// Package classifier implements the Verdict Classifier (C4): mapping a
// build/run outcome and the reference output to one terminal Verdict, and
// the output normalization the Accepted/Wrong Answer comparison relies on.
package classifier

import (
	"strings"
	"unicode/utf8"

	"github.com/sempr/judgecore/internal/sandbox"
)

// Status is the closed set of terminal verdicts this service can emit.
type Status string

const (
	Accepted          Status = "Accepted"
	WrongAnswer       Status = "Wrong Answer"
	CompilationError  Status = "Compilation Error"
	RuntimeError      Status = "Runtime Error"
	TimeLimitExceeded Status = "Time Limit Exceeded"
	OutOfMemory       Status = "Out Of Memory"
)

// statusCode assigns the integer code carried in the response body,
// independent of the human-readable Status string.
var statusCode = map[Status]int{
	Accepted:          1,
	WrongAnswer:       2,
	CompilationError:  3,
	RuntimeError:      4,
	TimeLimitExceeded: 5,
	OutOfMemory:       6,
}

// sigKillExitCode is the exit code a container reports when it was sent
// SIGKILL. On platforms where no explicit OOM signal is available, this
// code combined with TimedOut=false is treated as an OOM heuristic.
const sigKillExitCode = 137

// Verdict is the terminal classification of one Execution.
type Verdict struct {
	StatusCode int
	Status     Status
	Output     string // set for Accepted and Wrong Answer
	Error      string // set for Compilation Error and Runtime Error
}

// Classify applies the fixed decision ordering from the component contract:
// a failed build always wins, then timeout, then OOM, then a non-zero exit,
// then output comparison. It is a pure function of its inputs: the same
// trio always yields the same Verdict.
func Classify(build sandbox.BuildResult, run sandbox.RunResult, expectedOutput []byte) Verdict {
	if !build.OK {
		return Verdict{
			StatusCode: statusCode[CompilationError],
			Status:     CompilationError,
			Error:      strings.TrimSpace(build.Stderr),
		}
	}

	if run.TimedOut {
		return Verdict{StatusCode: statusCode[TimeLimitExceeded], Status: TimeLimitExceeded}
	}

	if run.MemoryKilled || (run.ExitCode == sigKillExitCode && !run.TimedOut) {
		return Verdict{StatusCode: statusCode[OutOfMemory], Status: OutOfMemory}
	}

	if run.ExitCode != 0 {
		return Verdict{
			StatusCode: statusCode[RuntimeError],
			Status:     RuntimeError,
			Error:      strings.TrimSpace(run.Stderr),
		}
	}

	actual := Normalize(run.Stdout)
	if actual == Normalize(string(expectedOutput)) {
		return Verdict{StatusCode: statusCode[Accepted], Status: Accepted, Output: run.Stdout}
	}
	return Verdict{StatusCode: statusCode[WrongAnswer], Status: WrongAnswer, Output: run.Stdout}
}

// Normalize applies the fixed, documented normalization contract: decode as
// UTF-8 (replacing invalid sequences with U+FFFD — ToValidUTF8 already
// operates on the string's existing bytes, so garbage bytes collapse to the
// replacement character), convert CRLF to LF, and strip a single trailing
// newline. Internal whitespace and blank lines are left untouched. Normalize
// is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	return s
}
