package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sempr/judgecore/internal/sandbox"
)

func TestClassify_CompilationError(t *testing.T) {
	build := sandbox.BuildResult{OK: false, Stderr: "  main.c:3: error: expected ';'\n"}
	v := Classify(build, sandbox.RunResult{}, []byte("anything"))

	assert.Equal(t, CompilationError, v.Status)
	assert.Equal(t, "main.c:3: error: expected ';'", v.Error)
}

func TestClassify_TimeLimitExceeded_BeatsNonZeroExit(t *testing.T) {
	build := sandbox.BuildResult{OK: true}
	run := sandbox.RunResult{TimedOut: true, ExitCode: 1}

	v := Classify(build, run, nil)

	assert.Equal(t, TimeLimitExceeded, v.Status)
}

func TestClassify_OutOfMemory_ExplicitSignal(t *testing.T) {
	build := sandbox.BuildResult{OK: true}
	run := sandbox.RunResult{MemoryKilled: true, ExitCode: 1}

	v := Classify(build, run, nil)

	assert.Equal(t, OutOfMemory, v.Status)
}

func TestClassify_OutOfMemory_SigKillHeuristic(t *testing.T) {
	build := sandbox.BuildResult{OK: true}
	run := sandbox.RunResult{ExitCode: 137, TimedOut: false}

	v := Classify(build, run, nil)

	assert.Equal(t, OutOfMemory, v.Status)
}

func TestClassify_SigKillButTimedOut_IsTLENotOOM(t *testing.T) {
	build := sandbox.BuildResult{OK: true}
	run := sandbox.RunResult{ExitCode: 137, TimedOut: true}

	v := Classify(build, run, nil)

	assert.Equal(t, TimeLimitExceeded, v.Status)
}

func TestClassify_RuntimeError(t *testing.T) {
	build := sandbox.BuildResult{OK: true}
	run := sandbox.RunResult{ExitCode: 1, Stderr: "  panic: division by zero\n"}

	v := Classify(build, run, []byte("expected"))

	assert.Equal(t, RuntimeError, v.Status)
	assert.Equal(t, "panic: division by zero", v.Error)
}

func TestClassify_Accepted(t *testing.T) {
	build := sandbox.BuildResult{OK: true}
	run := sandbox.RunResult{ExitCode: 0, Stdout: "Hello\r\n"}

	v := Classify(build, run, []byte("Hello\n"))

	assert.Equal(t, Accepted, v.Status)
	assert.Equal(t, "Hello\r\n", v.Output)
}

func TestClassify_WrongAnswer(t *testing.T) {
	build := sandbox.BuildResult{OK: true}
	run := sandbox.RunResult{ExitCode: 0, Stdout: "World\n"}

	v := Classify(build, run, []byte("Hello\n"))

	assert.Equal(t, WrongAnswer, v.Status)
	assert.Equal(t, "World\n", v.Output)
}

func TestClassify_Determinism(t *testing.T) {
	build := sandbox.BuildResult{OK: true}
	run := sandbox.RunResult{ExitCode: 0, Stdout: "same\n"}
	expected := []byte("same\n")

	first := Classify(build, run, expected)
	second := Classify(build, run, expected)

	require.Equal(t, first, second)
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"crlf to lf", "a\r\nb\r\n", "a\nb"},
		{"strips single trailing newline only", "a\n\n", "a\n"},
		{"preserves internal blank lines", "a\n\nb\n", "a\n\nb"},
		{"no trailing newline is unchanged", "a", "a"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"a\r\nb\r\n", "a\n\nb\n\n", "", "no newline at all"}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		assert.Equal(t, once, twice, "Normalize should be idempotent for %q", in)
	}
}
