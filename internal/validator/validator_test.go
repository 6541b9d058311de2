package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sempr/judgecore/internal/languages"
)

func newValidator() *Validator {
	registry := languages.NewRegistry()
	return New(registry, Limits{MinTime: 1, MaxTime: 10, MinMemory: 16, MaxMemory: 256})
}

func validInput() Input {
	return Input{
		Language:     languages.Python,
		SourceName:   "main.py",
		ExpectedName: "expected.txt",
		InputName:    "input.txt",
		TimeLimit:    5,
		MemoryLimit:  128,
	}
}

func TestValidate_AcceptsWellFormedInput(t *testing.T) {
	v := newValidator()
	err := v.Validate(validInput())
	require.NoError(t, err)
}

func TestValidate_AcceptsMissingOptionalInput(t *testing.T) {
	v := newValidator()
	in := validInput()
	in.InputName = ""
	require.NoError(t, v.Validate(in))
}

func TestValidate_RejectsUnknownLanguage(t *testing.T) {
	v := newValidator()
	in := validInput()
	in.Language = languages.Language("RUST")

	err := v.Validate(in)
	require.Error(t, err)
	var ve *Error
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "language", ve.Field)
}

func TestValidate_RejectsBadFilenames(t *testing.T) {
	v := newValidator()

	cases := []struct {
		name    string
		mutate  func(*Input)
		field   string
	}{
		{"path traversal in source", func(in *Input) { in.SourceName = "../main.py" }, "sourceCode"},
		{"no extension in source", func(in *Input) { in.SourceName = "main" }, "sourceCode"},
		{"space in expected", func(in *Input) { in.ExpectedName = "expected out.txt" }, "expectedOutput"},
		{"leading dot in input", func(in *Input) { in.InputName = ".hidden.txt" }, "input"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			err := v.Validate(in)
			require.Error(t, err)
			var ve *Error
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestValidate_TimeLimitBounds(t *testing.T) {
	v := newValidator()

	tooLow := validInput()
	tooLow.TimeLimit = 0
	err := v.Validate(tooLow)
	require.Error(t, err)
	var ve *Error
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "timeLimit", ve.Field)

	tooHigh := validInput()
	tooHigh.TimeLimit = 11
	err = v.Validate(tooHigh)
	require.Error(t, err)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "timeLimit", ve.Field)

	atBounds := validInput()
	atBounds.TimeLimit = 1
	require.NoError(t, v.Validate(atBounds))
	atBounds.TimeLimit = 10
	require.NoError(t, v.Validate(atBounds))
}

func TestValidate_MemoryLimitBounds(t *testing.T) {
	v := newValidator()

	tooLow := validInput()
	tooLow.MemoryLimit = 15
	err := v.Validate(tooLow)
	require.Error(t, err)
	var ve *Error
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "memoryLimit", ve.Field)

	tooHigh := validInput()
	tooHigh.MemoryLimit = 257
	err = v.Validate(tooHigh)
	require.Error(t, err)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "memoryLimit", ve.Field)
}

func TestError_MessageIsPrefixed(t *testing.T) {
	err := fieldError("timeLimit", "must be between %d and %d", 1, 10)
	assert.Equal(t, "bad request: must be between 1 and 10", err.Error())
}
