package solver

import (
	"context"
	"fmt"

	"math-bot/api/internal/llm"
)

// Provider modes.
const (
	ModeDirect   = "direct"
	ModeVerified = "verified"
)

// Strategy solves one problem.
type Strategy interface {
	Name() string
	Solve(ctx context.Context, problem string) (*Result, error)
}

// Direct sends the problem once with the provider's system prompt and
// returns the answer unparsed.
type Direct struct {
	C      llm.Completer
	System string
	Rec    Recorder
}

func (d *Direct) Name() string { return ModeDirect }

func (d *Direct) Solve(ctx context.Context, problem string) (*Result, error) {
	rec := d.Rec
	if rec == nil {
		rec = nopRecorder{}
	}
	res := &Result{Problem: problem, Strategy: ModeDirect}
	if d.C == nil {
		return res, fmt.Errorf("direct: no completer")
	}
	text, err := d.C.Complete(ctx, []llm.Message{{Role: llm.RoleUser, Content: problem}}, d.System, 0)
	if err != nil {
		res.enter(StateError)
		rec.ObservePipeline(ModeDirect, OutcomeError)
		return res, fmt.Errorf("direct: %w", err)
	}
	res.Raw = text
	res.enter(StateFinalize)
	rec.ObservePipeline(ModeDirect, OutcomeFinalized)
	return res, nil
}

// ForProvider picks the strategy configured for p. An empty mode means
// verified.
func ForProvider(p *llm.Provider, rec Recorder) (Strategy, error) {
	switch p.Mode {
	case "", ModeVerified:
		return NewPipeline(p.Completer, rec), nil
	case ModeDirect:
		return &Direct{C: p.Completer, System: p.SystemPrompt, Rec: rec}, nil
	default:
		return nil, fmt.Errorf("provider %q: unknown mode %q", p.Name, p.Mode)
	}
}
