// Package execution implements the Execution object (C3): the per-submission
// unit that materializes input files into a scoped workspace, binds them to a
// language policy, and owns the workspace's lifetime.
package execution

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/sempr/judgecore/internal/languages"
)

// Request is the external, immutable input to a judgment: the three files a
// submitter provides plus the limits and language they declared. Filenames
// are assumed to have already passed the Request Validator (C6) by the time
// an Execution is constructed.
type Request struct {
	Language     languages.Language
	SourceName   string
	SourceCode   []byte
	ExpectedName string
	Expected     []byte
	InputName    string
	Input        []byte // nil when no stdin payload was provided
	TimeLimit    int    // seconds
	MemoryLimit  int    // megabytes
}

// buildDockerfile is the template used to materialize the sandbox definition
// file. It copies the renamed source into the image and, for compiled
// languages, runs the build command, saving its stderr to .build_stderr and
// echoing it on failure. The Docker driver does not build from this file; it
// runs BuildCommand inside a container and reads the compiler's stderr there.
const buildDockerfile = `FROM %s
WORKDIR /workspace
COPY %s .
%s
`

// Execution is the per-submission unit, owned for the duration of judging.
// Every field other than ContainerID is read-only once constructed.
type Execution struct {
	ID                 string
	WorkspacePath      string
	SourceFile         string
	ExpectedOutputFile string
	InputFile          string // "" when no stdin payload was provided
	ClassName          string // Java only; derived from SourceFile
	TimeLimit          int
	MemoryLimit        int
	ImageName          string
	Policy             languages.Policy

	// ContainerID is assigned by the Sandbox Driver after Build succeeds
	// and consumed by Run and Remove. It is the one field the driver, not
	// this package, owns.
	ContainerID string
}

// New materializes a Request into a workspace under root and returns the
// owning Execution. On any failure the partially created workspace is
// removed before returning the error, so callers never need to clean up a
// failed New call.
func New(root string, req Request, policy languages.Policy) (*Execution, error) {
	id := uuid.NewString()
	workspace := filepath.Join(root, id)
	if err := os.MkdirAll(workspace, 0o750); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	exec := &Execution{
		ID:            id,
		WorkspacePath: workspace,
		TimeLimit:     req.TimeLimit,
		MemoryLimit:   req.MemoryLimit,
		ImageName:     fmt.Sprintf("judgecore-%s-%s", strings.ToLower(string(policy.Language)), id),
		Policy:        policy,
	}

	if err := exec.materialize(req); err != nil {
		_ = exec.Release()
		return nil, err
	}
	return exec, nil
}

func (e *Execution) materialize(req Request) error {
	sourceFile, err := e.Policy.Filename(req.SourceName, req.SourceCode)
	if err != nil {
		return fmt.Errorf("resolve source filename: %w", err)
	}
	e.SourceFile = sourceFile
	if e.Policy.Language == languages.Java {
		e.ClassName = strings.TrimSuffix(sourceFile, ".java")
	}

	if err := e.writeFile(sourceFile, req.SourceCode); err != nil {
		return fmt.Errorf("write source file: %w", err)
	}

	e.ExpectedOutputFile = req.ExpectedName
	if err := e.writeFile(req.ExpectedName, req.Expected); err != nil {
		return fmt.Errorf("write expected output file: %w", err)
	}

	if req.Input != nil {
		e.InputFile = req.InputName
		if err := e.writeFile(req.InputName, req.Input); err != nil {
			return fmt.Errorf("write input file: %w", err)
		}
	}

	if err := e.writeFile("Dockerfile", []byte(e.renderDockerfile())); err != nil {
		return fmt.Errorf("write sandbox definition: %w", err)
	}
	return nil
}

func (e *Execution) writeFile(name string, content []byte) error {
	return os.WriteFile(filepath.Join(e.WorkspacePath, name), content, 0o640)
}

func (e *Execution) renderDockerfile() string {
	buildStep := "# no separate build step"
	if e.Policy.RequiresCompilation {
		cmd := e.resolveCommand(e.Policy.BuildCommand)
		buildStep = fmt.Sprintf("RUN %s 2> /workspace/.build_stderr || (cat /workspace/.build_stderr 1>&2; exit 1)", cmd)
	}
	return fmt.Sprintf(buildDockerfile, e.Policy.Image, e.SourceFile, buildStep)
}

// RunCommand resolves the policy's run command template against this
// Execution's concrete filenames, for the driver to exec inside the
// container.
func (e *Execution) RunCommand() []string {
	resolved := make([]string, len(e.Policy.RunCommand))
	for i, tok := range e.Policy.RunCommand {
		resolved[i] = e.substitute(tok)
	}
	return resolved
}

// BuildCommand resolves the policy's build command template the same way
// RunCommand does, for drivers that run the compile step as a discrete exec
// rather than baking it into an image build.
func (e *Execution) BuildCommand() []string {
	resolved := make([]string, len(e.Policy.BuildCommand))
	for i, tok := range e.Policy.BuildCommand {
		resolved[i] = e.substitute(tok)
	}
	return resolved
}

// SourceBytes returns the materialized source file's contents, for drivers
// that write the source into a running container rather than relying on a
// build-context copy.
func (e *Execution) SourceBytes() ([]byte, error) {
	return os.ReadFile(filepath.Join(e.WorkspacePath, e.SourceFile))
}

func (e *Execution) resolveCommand(cmd []string) string {
	resolved := make([]string, len(cmd))
	for i, tok := range cmd {
		resolved[i] = e.substitute(tok)
	}
	return strings.Join(resolved, " ")
}

func (e *Execution) substitute(tok string) string {
	tok = strings.ReplaceAll(tok, "$SOURCE_FILE", e.SourceFile)
	tok = strings.ReplaceAll(tok, "$CLASS_NAME", e.ClassName)
	return tok
}

// InputBytes returns the stdin payload, or nil if the submission had none.
func (e *Execution) InputBytes() ([]byte, error) {
	if e.InputFile == "" {
		return nil, nil
	}
	return os.ReadFile(filepath.Join(e.WorkspacePath, e.InputFile))
}

// ExpectedOutputBytes returns the reference output the classifier compares
// sandbox stdout against.
func (e *Execution) ExpectedOutputBytes() ([]byte, error) {
	return os.ReadFile(filepath.Join(e.WorkspacePath, e.ExpectedOutputFile))
}

// Release recursively removes the workspace directory. It is idempotent and
// safe to call on every exit path, including ones where materialize failed
// partway through.
func (e *Execution) Release() error {
	if e.WorkspacePath == "" {
		return nil
	}
	return os.RemoveAll(e.WorkspacePath)
}
