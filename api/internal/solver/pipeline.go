package solver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"math-bot/api/internal/llm"
)

// Recorder observes pipeline outcomes. metrics.Recorder implements it.
type Recorder interface {
	ObservePipeline(strategy, outcome string)
	ObserveStep(correct bool)
}

type nopRecorder struct{}

func (nopRecorder) ObservePipeline(string, string) {}
func (nopRecorder) ObserveStep(bool)               {}

const (
	OutcomeFinalized = "finalized"
	OutcomeAdapted   = "adapted"
	OutcomeEmpty     = "empty"
	OutcomeError     = "error"
)

// Pipeline is the verified strategy: propose, generate, verify and, when
// any step fails verification, adapt the strategy exactly once before a
// second generate and verify round.
type Pipeline struct {
	c   llm.Completer
	rec Recorder
}

func NewPipeline(c llm.Completer, rec Recorder) *Pipeline {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Pipeline{c: c, rec: rec}
}

func (p *Pipeline) Name() string { return ModeVerified }

func (p *Pipeline) Solve(ctx context.Context, problem string) (*Result, error) {
	res := &Result{Problem: problem, Strategy: ModeVerified}
	err := p.run(ctx, res)
	if err != nil {
		res.enter(StateError)
		p.rec.ObservePipeline(ModeVerified, OutcomeError)
		slog.Error("pipeline failed", "trace", res.Trace, "kind", llm.KindOf(err).String(), "error", err)
		return res, err
	}
	res.enter(StateFinalize)
	outcome := OutcomeFinalized
	switch {
	case len(res.Steps) == 0:
		outcome = OutcomeEmpty
	case res.Adapted:
		outcome = OutcomeAdapted
	}
	for _, s := range res.Steps {
		p.rec.ObserveStep(s.IsCorrect)
	}
	p.rec.ObservePipeline(ModeVerified, outcome)
	slog.Info("pipeline finished", "trace", res.Trace, "steps", len(res.Steps), "outcome", outcome)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, res *Result) error {
	res.enter(StatePropose)
	paths, err := ProposePaths(ctx, res.Problem, p.c)
	if err != nil {
		return fmt.Errorf("propose: %w", err)
	}
	res.Paths = paths
	if len(paths) > 0 {
		res.Path = paths[0]
	}

	verified, err := p.attempt(ctx, res)
	if err != nil {
		return err
	}
	res.Steps = verified
	if allCorrect(verified) {
		return nil
	}

	res.enter(StateAdapt)
	adapted, err := p.adapt(ctx, res.Problem, incorrect(verified))
	if err != nil {
		return fmt.Errorf("adapt: %w", err)
	}
	res.Path = adapted
	res.Adapted = true

	verified, err = p.attempt(ctx, res)
	if err != nil {
		return err
	}
	res.Steps = verified
	return nil
}

func (p *Pipeline) attempt(ctx context.Context, res *Result) ([]VerifiedStep, error) {
	res.enter(StateGenerate)
	steps, err := GenerateSteps(ctx, res.Problem, res.Path, p.c)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	res.enter(StateVerify)
	verified, err := VerifySteps(ctx, steps, p.c)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	return verified, nil
}

func (p *Pipeline) adapt(ctx context.Context, problem string, failed []VerifiedStep) (string, error) {
	if p.c == nil {
		return "", nil
	}
	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: adaptPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Задача: %s\nПрошлые попытки: %s", problem, describeAttempts(failed))},
	}
	return p.c.Complete(ctx, msgs, adaptPrompt, 0)
}

func describeAttempts(failed []VerifiedStep) string {
	var b strings.Builder
	for _, f := range failed {
		b.WriteString(f.Step.String())
		for _, d := range f.Step.VerificationDetails {
			fmt.Fprintf(&b, "\n- %s: %s", d.Category, d.Note)
		}
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}
