package llm

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies failures so every caller applies the same policy:
// transient errors are retried inside Client, parse degradation never
// escapes the parsers, fatal errors abort the current request and timeouts
// abort the whole pipeline.
type Kind int

const (
	KindTransient Kind = iota
	KindParseDegraded
	KindFatal
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindParseDegraded:
		return "parse_degraded"
	case KindFatal:
		return "fatal"
	case KindTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrEmptyCompletion is recorded when a backend answers with blank text.
var ErrEmptyCompletion = errors.New("empty completion")

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the kind of err. Context errors count as timeouts; any
// other unclassified error is transient.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindTransient
}

// IsTimeout is shorthand for KindOf(err) == KindTimeout.
func IsTimeout(err error) bool {
	return err != nil && KindOf(err) == KindTimeout
}
