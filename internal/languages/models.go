// Package languages implements the per-language policy table (C2): the single
// data-driven extension point describing how each supported language is built
// and invoked inside the sandbox.
package languages

// Language is the closed enumeration of supported submission languages.
// New members are added by registering a Policy, not by changing the
// classifier or sandbox driver.
type Language string

const (
	Java   Language = "JAVA"
	Python Language = "PYTHON"
	C      Language = "C"
	CPP    Language = "CPP"
	Go     Language = "GO"
	CSharp Language = "CS"
)

// FilenameStrategy derives the canonical on-disk filename for a source file,
// given the bytes the submitter uploaded and the name they declared. Most
// languages ignore the source content; Java inspects it to find the public
// class name so the javac filename constraint is satisfied.
type FilenameStrategy func(declaredName string, source []byte) (string, error)

// Policy is the per-language data describing how to build and run a
// submission. It is a value, not a type hierarchy: variation across
// languages lives entirely in these fields.
type Policy struct {
	// Language is the enum key this policy is registered under.
	Language Language

	// DisplayName is the human-readable name shown in logs and errors.
	DisplayName string

	// Image is the base container image the sandbox builds from.
	Image string

	// Filename picks the canonical source filename inside the workspace.
	Filename FilenameStrategy

	// RequiresCompilation is true when the build phase produces a
	// separate compiled artifact, so compile failures are distinguishable
	// from runtime failures by the build phase's own exit code.
	RequiresCompilation bool

	// BuildCommand is the shell command run during the build phase. Empty
	// for languages with no separate compile step (Python).
	BuildCommand []string

	// RunCommand is the shell-equivalent command line invoked inside the
	// sandbox for the run phase.
	RunCommand []string
}
