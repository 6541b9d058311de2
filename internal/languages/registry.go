package languages

import (
	"errors"
	"regexp"
	"sync"
)

// ErrLanguageNotFound is returned by Get when the requested language
// was never registered.
var ErrLanguageNotFound = errors.New("language not found")

// Registry is the process-wide map from Language to Policy. It is written at
// startup (registerDefaults) and via explicit Register calls, and must stay
// safe for concurrent readers even while registration is in progress.
type Registry struct {
	mu        sync.RWMutex
	languages map[Language]Policy
}

// NewRegistry builds a registry pre-populated with the default language
// policies. Tests that need isolation should build their own registry rather
// than mutate the shared one returned here.
func NewRegistry() *Registry {
	r := &Registry{
		languages: make(map[Language]Policy),
	}
	r.registerDefaults()
	return r
}

// Register adds or replaces the policy for a language. Safe for concurrent
// use with Get/List.
func (r *Registry) Register(policy Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.languages[policy.Language] = policy
}

// Get looks up the policy for a language.
func (r *Registry) Get(lang Language) (Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.languages[lang]
	if !ok {
		return Policy{}, ErrLanguageNotFound
	}
	return p, nil
}

// List returns a snapshot of all registered policies, in no particular
// order.
func (r *Registry) List() []Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Policy, 0, len(r.languages))
	for _, p := range r.languages {
		out = append(out, p)
	}
	return out
}

// javaPublicClass matches the first public class declaration, which javac
// requires the filename to mirror. Package-private classes are not matched.
var javaPublicClass = regexp.MustCompile(`(?m)^\s*public\s+(?:final\s+|abstract\s+)?class\s+([A-Za-z_$][A-Za-z0-9_$]*)`)

func fixedFilename(name string) FilenameStrategy {
	return func(_ string, _ []byte) (string, error) {
		return name, nil
	}
}

// freeform keeps whatever name the submitter declared, for languages with no
// filename convention of their own.
func freeform(declaredName string, _ []byte) (string, error) {
	if declaredName == "" {
		return "", errors.New("source filename is required")
	}
	return declaredName, nil
}

// javaFilename derives Main.java-style naming from the public class in the
// source. If no public class is declared, it falls back to the submitter's
// declared name so the build phase can still fail with a real compiler
// error rather than a synthetic one.
func javaFilename(declaredName string, source []byte) (string, error) {
	if m := javaPublicClass.FindSubmatch(source); m != nil {
		return string(m[1]) + ".java", nil
	}
	if declaredName != "" {
		return declaredName, nil
	}
	return "", errors.New("unable to determine a class name for the java source")
}

func (r *Registry) registerDefaults() {
	r.Register(Policy{
		Language:            Java,
		DisplayName:         "Java",
		Image:               "openjdk:17-slim",
		Filename:            javaFilename,
		RequiresCompilation: true,
		BuildCommand:        []string{"javac", "-d", ".", "$SOURCE_FILE"},
		RunCommand:          []string{"java", "-cp", ".", "$CLASS_NAME"},
	})

	r.Register(Policy{
		Language:            Python,
		DisplayName:         "Python",
		Image:               "python:3.11-slim",
		Filename:            freeform,
		RequiresCompilation: false,
		RunCommand:          []string{"python3", "$SOURCE_FILE"},
	})

	r.Register(Policy{
		Language:            C,
		DisplayName:         "C",
		Image:               "gcc:13",
		Filename:            fixedFilename("main.c"),
		RequiresCompilation: true,
		BuildCommand:        []string{"gcc", "main.c", "-O2", "-o", "main"},
		RunCommand:          []string{"./main"},
	})

	r.Register(Policy{
		Language:            CPP,
		DisplayName:         "C++",
		Image:               "gcc:13",
		Filename:            fixedFilename("main.cpp"),
		RequiresCompilation: true,
		BuildCommand:        []string{"g++", "main.cpp", "-O2", "-o", "main"},
		RunCommand:          []string{"./main"},
	})

	r.Register(Policy{
		Language:            Go,
		DisplayName:         "Go",
		Image:               "golang:1.22-bookworm",
		Filename:            fixedFilename("main.go"),
		RequiresCompilation: true,
		BuildCommand:        []string{"go", "build", "-o", "main", "main.go"},
		RunCommand:          []string{"./main"},
	})

	r.Register(Policy{
		Language:            CSharp,
		DisplayName:         "C#",
		Image:               "mcr.microsoft.com/dotnet/sdk:8.0",
		Filename:            fixedFilename("main.cs"),
		RequiresCompilation: true,
		BuildCommand:        []string{"csc", "-out:main.exe", "main.cs"},
		RunCommand:          []string{"mono", "main.exe"},
	})
}
