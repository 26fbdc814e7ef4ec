package solver

import (
	"context"
	"log/slog"

	"math-bot/api/internal/llm"
)

// VerifySteps checks every step with its own completion call, in order.
// Verification details are written into steps in place. A step whose check
// fails for any reason other than a timeout counts as incorrect.
func VerifySteps(ctx context.Context, steps []Step, c llm.Completer) ([]VerifiedStep, error) {
	out := make([]VerifiedStep, 0, len(steps))
	for i := range steps {
		ok, err := verifyStep(ctx, &steps[i], c)
		if err != nil {
			return nil, err
		}
		steps[i].IsCorrect = ok
		out = append(out, VerifiedStep{Step: &steps[i], IsCorrect: ok})
	}
	return out, nil
}

func verifyStep(ctx context.Context, s *Step, c llm.Completer) (bool, error) {
	if c == nil {
		return false, nil
	}
	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: verifyPrompt},
		{Role: llm.RoleUser, Content: s.String()},
	}
	resp, err := c.Complete(ctx, msgs, verifyPrompt, 0)
	if err != nil {
		if llm.IsTimeout(err) {
			return false, err
		}
		slog.Error("verify step failed", "error", err)
		return false, nil
	}
	v := ParseVerdict(resp)
	s.VerificationDetails = v.Details
	return v.Overall, nil
}
