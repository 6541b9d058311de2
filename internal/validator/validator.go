// Package validator implements the Request Validator (C6): filename safety
// and limit-bound checks that run before any workspace or sandbox work is
// attempted.
package validator

import (
	"fmt"
	"regexp"

	"github.com/sempr/judgecore/internal/languages"
)

// filenameRegex is the sandbox's filename safety contract: no path
// separators, no leading dot, exactly one extension segment.
var filenameRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+$`)

// Limits are the configured admissible ranges for per-submission resource
// limits.
type Limits struct {
	MinTime   int // seconds
	MaxTime   int // seconds
	MinMemory int // MB
	MaxMemory int // MB
}

// Error is a validation failure naming the offending field, surfaced to
// callers as 400 Bad Request.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("bad request: %s", e.Message)
}

func fieldError(field, format string, args ...any) *Error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Input is the subset of a Request the validator needs; it mirrors
// execution.Request without importing it, so the validator has no
// dependency on workspace materialization.
type Input struct {
	Language     languages.Language
	SourceName   string
	ExpectedName string
	InputName    string // "" when no stdin payload was provided
	TimeLimit    int
	MemoryLimit  int
}

// Validator checks a Request against filename safety rules, configured
// resource-limit bounds, and the language registry, before any admission
// slot is consumed.
type Validator struct {
	registry *languages.Registry
	limits   Limits
}

func New(registry *languages.Registry, limits Limits) *Validator {
	return &Validator{registry: registry, limits: limits}
}

// Validate returns nil when in is acceptable, or an *Error naming the first
// offending field otherwise.
func (v *Validator) Validate(in Input) error {
	if _, err := v.registry.Get(in.Language); err != nil {
		return fieldError("language", "unrecognized language %q", in.Language)
	}

	if !filenameRegex.MatchString(in.SourceName) {
		return fieldError("sourceCode", "source code file must match %s", filenameRegex.String())
	}
	if !filenameRegex.MatchString(in.ExpectedName) {
		return fieldError("expectedOutput", "expected output file must match %s", filenameRegex.String())
	}
	if in.InputName != "" && !filenameRegex.MatchString(in.InputName) {
		return fieldError("input", "input file must match %s", filenameRegex.String())
	}

	if in.TimeLimit < v.limits.MinTime || in.TimeLimit > v.limits.MaxTime {
		return fieldError("timeLimit", "time limit must be between %d sec and %d sec, provided: %d",
			v.limits.MinTime, v.limits.MaxTime, in.TimeLimit)
	}
	if in.MemoryLimit < v.limits.MinMemory || in.MemoryLimit > v.limits.MaxMemory {
		return fieldError("memoryLimit", "memory limit must be between %d MB and %d MB, provided: %d",
			v.limits.MinMemory, v.limits.MaxMemory, in.MemoryLimit)
	}
	return nil
}
