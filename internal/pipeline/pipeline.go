// Package pipeline wires the Request Validator, Admission Controller,
// Execution object, Sandbox Driver, and Verdict Classifier into the single
// judge operation the HTTP layer calls: validate → admit → build → run →
// classify → release.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sempr/judgecore/internal/admission"
	"github.com/sempr/judgecore/internal/classifier"
	"github.com/sempr/judgecore/internal/execution"
	"github.com/sempr/judgecore/internal/languages"
	"github.com/sempr/judgecore/internal/metrics"
	"github.com/sempr/judgecore/internal/sandbox"
	"github.com/sempr/judgecore/internal/validator"
)

// Pipeline is the composition of every core component; it holds no
// per-request state, so one Pipeline is shared across all goroutines.
type Pipeline struct {
	Registry      *languages.Registry
	Validator     *validator.Validator
	Admission     *admission.Controller
	Sandbox       sandbox.Sandbox
	WorkspaceRoot string
	RetainImage   bool
	Logger        *zerolog.Logger
}

// Judge runs one submission through the full pipeline. The returned error is
// one of *validator.Error, admission.ErrThrottled, or a wrapped
// sandbox.ErrSandboxUnavailable / internal fault; callers map these to HTTP
// status codes. A non-nil Verdict with a nil error is the normal case,
// including non-Accepted verdicts — those are 200 OK, not errors.
func (p *Pipeline) Judge(ctx context.Context, req execution.Request) (verdict classifier.Verdict, err error) {
	if vErr := p.Validator.Validate(validator.Input{
		Language:     req.Language,
		SourceName:   req.SourceName,
		ExpectedName: req.ExpectedName,
		InputName:    req.InputName,
		TimeLimit:    req.TimeLimit,
		MemoryLimit:  req.MemoryLimit,
	}); vErr != nil {
		return classifier.Verdict{}, vErr
	}

	policy, _ := p.Registry.Get(req.Language) // already validated above

	if admErr := p.Admission.Acquire(); admErr != nil {
		return classifier.Verdict{}, admErr
	}
	defer p.Admission.Release()

	exec, err := execution.New(p.WorkspaceRoot, req, policy)
	if err != nil {
		return classifier.Verdict{}, fmt.Errorf("materialize execution: %w", err)
	}
	defer func() {
		if !p.RetainImage {
			_ = p.Sandbox.Remove(context.Background(), exec)
		}
		_ = exec.Release()
	}()

	defer func() {
		if r := recover(); r != nil {
			p.Logger.Error().Interface("panic", r).Str("execution_id", exec.ID).Msg("pipeline panicked")
			err = fmt.Errorf("internal fault judging execution %s: %v", exec.ID, r)
		}
	}()

	log := p.Logger.With().Str("execution_id", exec.ID).Str("language", string(req.Language)).Logger()
	log.Info().Msg("admitted execution")

	buildStart := time.Now()
	build, err := p.Sandbox.Build(ctx, exec)
	metrics.PhaseDuration.WithLabelValues(string(req.Language), "build").
		Observe(float64(time.Since(buildStart).Milliseconds()))
	if err != nil {
		return classifier.Verdict{}, err
	}

	var run sandbox.RunResult
	if build.OK {
		runStart := time.Now()
		run, err = p.Sandbox.Run(ctx, exec)
		metrics.PhaseDuration.WithLabelValues(string(req.Language), "run").
			Observe(float64(time.Since(runStart).Milliseconds()))
		if err != nil {
			return classifier.Verdict{}, err
		}
	}

	expected, err := exec.ExpectedOutputBytes()
	if err != nil {
		return classifier.Verdict{}, fmt.Errorf("read expected output: %w", err)
	}

	verdict = classifier.Classify(build, run, expected)
	metrics.ExecutionsTotal.WithLabelValues(string(req.Language), string(verdict.Status)).Inc()
	log.Info().Str("status", string(verdict.Status)).Msg("judgment complete")
	return verdict, nil
}
