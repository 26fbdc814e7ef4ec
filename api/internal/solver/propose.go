package solver

import (
	"context"
	"log/slog"

	"math-bot/api/internal/llm"
)

// ProposePaths asks for several candidate strategies and returns them in
// the order the model listed them. Failures other than timeouts yield an
// empty list.
func ProposePaths(ctx context.Context, problem string, c llm.Completer) ([]string, error) {
	if c == nil {
		return nil, nil
	}
	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: proposePrompt},
		{Role: llm.RoleUser, Content: problem},
	}
	resp, err := c.Complete(ctx, msgs, proposePrompt, 0)
	if err != nil {
		if llm.IsTimeout(err) {
			return nil, err
		}
		slog.Warn("propose paths failed", "error", err)
		return nil, nil
	}
	return ParsePaths(resp), nil
}
