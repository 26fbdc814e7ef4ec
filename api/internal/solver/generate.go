package solver

import (
	"context"
	"fmt"
	"log/slog"

	"math-bot/api/internal/llm"
)

// GenerateSteps asks for a step-by-step solution along path. An answer
// without any recognisable step is logged as parse degradation and yields
// an empty list, as does any non-timeout failure.
func GenerateSteps(ctx context.Context, problem, path string, c llm.Completer) ([]Step, error) {
	if c == nil {
		return nil, nil
	}
	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: generatePrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Задача: %s\nПуть решения: %s", problem, path)},
	}
	resp, err := c.Complete(ctx, msgs, generatePrompt, 0)
	if err != nil {
		if llm.IsTimeout(err) {
			return nil, err
		}
		slog.Error("generate steps failed", "error", err)
		return nil, nil
	}
	steps := ParseSteps(resp)
	if len(steps) == 0 {
		slog.Warn("generate steps: nothing parsed", "kind", llm.KindParseDegraded.String(), "response_len", len(resp))
	}
	return steps, nil
}
