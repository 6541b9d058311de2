package languages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetKnownLanguage(t *testing.T) {
	r := NewRegistry()

	p, err := r.Get(Python)
	require.NoError(t, err)
	assert.Equal(t, "python:3.11-slim", p.Image)
	assert.False(t, p.RequiresCompilation)
}

func TestRegistry_GetUnknownLanguage(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get(Language("RUST"))
	require.ErrorIs(t, err, ErrLanguageNotFound)
}

func TestRegistry_RegisterOverrides(t *testing.T) {
	r := NewRegistry()

	r.Register(Policy{Language: Python, DisplayName: "Python (custom)", Image: "python:3.12"})

	p, err := r.Get(Python)
	require.NoError(t, err)
	assert.Equal(t, "python:3.12", p.Image)
}

func TestRegistry_ListReturnsAllDefaults(t *testing.T) {
	r := NewRegistry()

	list := r.List()
	assert.Len(t, list, 6)
}

func TestJavaFilename_ExtractsPublicClassName(t *testing.T) {
	src := []byte("package com.example;\n\npublic class Solution {\n    public static void main(String[] a) {}\n}\n")

	name, err := javaFilename("Ignored.java", src)
	require.NoError(t, err)
	assert.Equal(t, "Solution.java", name)
}

func TestJavaFilename_HandlesFinalAndAbstractModifiers(t *testing.T) {
	src := []byte("public final class Answer {}\n")

	name, err := javaFilename("", src)
	require.NoError(t, err)
	assert.Equal(t, "Answer.java", name)
}

func TestJavaFilename_FallsBackToDeclaredName(t *testing.T) {
	src := []byte("class Solution {}\n") // no `public` modifier

	name, err := javaFilename("Fallback.java", src)
	require.NoError(t, err)
	assert.Equal(t, "Fallback.java", name)
}

func TestJavaFilename_ErrorsWithNoClassAndNoDeclaredName(t *testing.T) {
	src := []byte("class Solution {}\n")

	_, err := javaFilename("", src)
	require.Error(t, err)
}

func TestFreeform_RequiresDeclaredName(t *testing.T) {
	_, err := freeform("", []byte("print(1)"))
	require.Error(t, err)

	name, err := freeform("solution.py", []byte("print(1)"))
	require.NoError(t, err)
	assert.Equal(t, "solution.py", name)
}

func TestFixedFilename_IgnoresDeclaredNameAndSource(t *testing.T) {
	strategy := fixedFilename("main.c")

	name, err := strategy("whatever.c", []byte("int main() { return 0; }"))
	require.NoError(t, err)
	assert.Equal(t, "main.c", name)
}
