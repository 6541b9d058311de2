package execution

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sempr/judgecore/internal/languages"
)

func pythonPolicy(t *testing.T) languages.Policy {
	t.Helper()
	r := languages.NewRegistry()
	p, err := r.Get(languages.Python)
	require.NoError(t, err)
	return p
}

func javaPolicy(t *testing.T) languages.Policy {
	t.Helper()
	r := languages.NewRegistry()
	p, err := r.Get(languages.Java)
	require.NoError(t, err)
	return p
}

func TestNew_MaterializesWorkspaceFiles(t *testing.T) {
	root := t.TempDir()
	req := Request{
		Language:     languages.Python,
		SourceName:   "solution.py",
		SourceCode:   []byte("print('hi')\n"),
		ExpectedName: "expected.txt",
		Expected:     []byte("hi\n"),
		InputName:    "input.txt",
		Input:        []byte("3\n"),
		TimeLimit:    5,
		MemoryLimit:  128,
	}

	exec, err := New(root, req, pythonPolicy(t))
	require.NoError(t, err)
	defer exec.Release()

	assert.Equal(t, "solution.py", exec.SourceFile)
	assert.FileExists(t, filepath.Join(exec.WorkspacePath, "solution.py"))
	assert.FileExists(t, filepath.Join(exec.WorkspacePath, "expected.txt"))
	assert.FileExists(t, filepath.Join(exec.WorkspacePath, "input.txt"))
	assert.FileExists(t, filepath.Join(exec.WorkspacePath, "Dockerfile"))
}

func TestNew_NoInputPayload_SkipsInputFile(t *testing.T) {
	root := t.TempDir()
	req := Request{
		Language:     languages.Python,
		SourceName:   "solution.py",
		SourceCode:   []byte("print('hi')\n"),
		ExpectedName: "expected.txt",
		Expected:     []byte("hi\n"),
		TimeLimit:    5,
		MemoryLimit:  128,
	}

	exec, err := New(root, req, pythonPolicy(t))
	require.NoError(t, err)
	defer exec.Release()

	assert.Empty(t, exec.InputFile)
	input, err := exec.InputBytes()
	require.NoError(t, err)
	assert.Nil(t, input)
}

func TestNew_JavaDerivesClassNameFromPublicClass(t *testing.T) {
	root := t.TempDir()
	req := Request{
		Language:     languages.Java,
		SourceName:   "Ignored.java",
		SourceCode:   []byte("public class Solution {\n  public static void main(String[] a) {}\n}\n"),
		ExpectedName: "expected.txt",
		Expected:     []byte("\n"),
		TimeLimit:    5,
		MemoryLimit:  256,
	}

	exec, err := New(root, req, javaPolicy(t))
	require.NoError(t, err)
	defer exec.Release()

	assert.Equal(t, "Solution.java", exec.SourceFile)
	assert.Equal(t, "Solution", exec.ClassName)
	assert.FileExists(t, filepath.Join(exec.WorkspacePath, "Solution.java"))
}

func TestBuildCommand_SubstitutesPlaceholders(t *testing.T) {
	root := t.TempDir()
	req := Request{
		Language:     languages.Java,
		SourceName:   "Ignored.java",
		SourceCode:   []byte("public class Answer {}\n"),
		ExpectedName: "expected.txt",
		Expected:     []byte(""),
		TimeLimit:    5,
		MemoryLimit:  256,
	}

	exec, err := New(root, req, javaPolicy(t))
	require.NoError(t, err)
	defer exec.Release()

	assert.Equal(t, []string{"javac", "-d", ".", "Answer.java"}, exec.BuildCommand())
	assert.Equal(t, []string{"java", "-cp", ".", "Answer"}, exec.RunCommand())
}

func TestRelease_RemovesWorkspaceAndIsIdempotent(t *testing.T) {
	root := t.TempDir()
	req := Request{
		Language:     languages.Python,
		SourceName:   "solution.py",
		SourceCode:   []byte("print(1)\n"),
		ExpectedName: "expected.txt",
		Expected:     []byte("1\n"),
		TimeLimit:    5,
		MemoryLimit:  128,
	}

	exec, err := New(root, req, pythonPolicy(t))
	require.NoError(t, err)

	require.NoError(t, exec.Release())
	_, statErr := os.Stat(exec.WorkspacePath)
	assert.True(t, os.IsNotExist(statErr))

	require.NoError(t, exec.Release(), "Release must be idempotent")
}

func TestNew_FailureCleansUpPartialWorkspace(t *testing.T) {
	root := t.TempDir()
	req := Request{
		Language:     languages.Java,
		SourceName:   "",
		SourceCode:   []byte("class Solution {}\n"), // no `public` modifier, no declared name
		ExpectedName: "expected.txt",
		Expected:     []byte(""),
		TimeLimit:    5,
		MemoryLimit:  256,
	}

	_, err := New(root, req, javaPolicy(t))
	require.Error(t, err)

	entries, readErr := os.ReadDir(root)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "a failed New must leave no workspace directory behind")
}

func TestExpectedOutputBytes_ReadsMaterializedFile(t *testing.T) {
	root := t.TempDir()
	req := Request{
		Language:     languages.Python,
		SourceName:   "solution.py",
		SourceCode:   []byte("print(1)\n"),
		ExpectedName: "expected.txt",
		Expected:     []byte("expected content\n"),
		TimeLimit:    5,
		MemoryLimit:  128,
	}

	exec, err := New(root, req, pythonPolicy(t))
	require.NoError(t, err)
	defer exec.Release()

	got, err := exec.ExpectedOutputBytes()
	require.NoError(t, err)
	assert.Equal(t, "expected content\n", string(got))
}
