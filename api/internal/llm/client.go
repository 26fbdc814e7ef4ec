package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// DefaultMaxAttempts is used when neither the call nor the client options
// set an attempt bound.
const DefaultMaxAttempts = 2

type Options struct {
	MaxAttempts int
	// CallTimeout bounds a single attempt. Zero means no per-attempt deadline.
	CallTimeout time.Duration
	// Backoff is multiplied by the attempt number between attempts.
	Backoff time.Duration
}

// Client is the resilient completion client: bounded retries around one
// Backend call, with the system prompt folded into the first message.
type Client struct {
	name    string
	backend Backend
	opts    Options
	rec     Recorder
}

func NewClient(name string, b Backend, opts Options, rec Recorder) *Client {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Client{name: name, backend: b, opts: opts, rec: rec}
}

func (c *Client) Name() string     { return c.name }
func (c *Client) GetModel() string { return c.backend.GetModel() }

// Complete returns the first non-blank completion. Every failed attempt is
// discarded silently; once maxAttempts are spent the call fails with
// KindFatal. Cancellation of ctx fails immediately with KindTimeout.
func (c *Client) Complete(ctx context.Context, msgs []Message, system string, maxAttempts int) (string, error) {
	if len(msgs) == 0 {
		return "", &Error{Kind: KindFatal, Op: "complete", Err: errors.New("no messages")}
	}
	if maxAttempts <= 0 {
		maxAttempts = c.opts.MaxAttempts
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	prepared := foldSystem(msgs, system)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", &Error{Kind: KindTimeout, Op: "complete", Err: err}
		}
		text, err := c.attempt(ctx, prepared)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", &Error{Kind: KindTimeout, Op: "complete", Err: ctx.Err()}
		}
		slog.Debug("completion attempt failed",
			"provider", c.name, "attempt", attempt, "max_attempts", maxAttempts, "error", err)

		if attempt < maxAttempts && c.opts.Backoff > 0 {
			select {
			case <-ctx.Done():
				return "", &Error{Kind: KindTimeout, Op: "complete", Err: ctx.Err()}
			case <-time.After(time.Duration(attempt) * c.opts.Backoff):
			}
		}
	}
	return "", &Error{Kind: KindFatal, Op: "complete", Err: lastErr}
}

func (c *Client) attempt(ctx context.Context, msgs []Message) (string, error) {
	callCtx := ctx
	if c.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.opts.CallTimeout)
		defer cancel()
	}

	start := time.Now()
	text, err := c.backend.Complete(callCtx, msgs)
	status := "ok"
	switch {
	case err != nil && errors.Is(err, context.DeadlineExceeded):
		status = "timeout"
	case err != nil:
		status = "error"
	case strings.TrimSpace(text) == "":
		status = "empty"
		err = ErrEmptyCompletion
	}
	c.rec.ObserveCompletion(c.name, status, time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	return text, nil
}

// foldSystem removes the leading system turn by merging it into the next
// message. A non-blank system argument takes the place of a system message
// the caller already supplied. The input slice is not modified.
func foldSystem(msgs []Message, system string) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)

	lead := system
	if out[0].Role == RoleSystem {
		if strings.TrimSpace(lead) == "" {
			lead = out[0].Content
		}
		out = out[1:]
	}
	if strings.TrimSpace(lead) == "" && len(out) > 0 {
		return out
	}

	if len(out) == 0 {
		return []Message{{Role: RoleUser, Content: lead}}
	}
	out[0].Content = lead + "\n\n" + out[0].Content
	return out
}
