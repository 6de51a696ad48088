// Package completion runs requests against the completion capability with a
// per-attempt timeout and bounded exponential backoff.
//
// A request moves through these states:
//
//	PENDING -> DONE                      on success
//	PENDING -> BACKOFF -> PENDING        on a transient failure with attempts left
//	PENDING -> FAILED                    on a fatal failure, or a transient one on the last attempt
//
// Retrying re-sends an identical request. That is only acceptable because
// text generation is a stateless read; do not reuse this client for calls
// with side effects.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PabloGalante/deltawind/internal/domain"
	"github.com/PabloGalante/deltawind/internal/observability"
)

// State is the position of a request in the retry state machine.
type State string

const (
	StatePending State = "pending"
	StateBackoff State = "backoff"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Failure is the failed outcome of a request.
type Failure struct {
	Kind domain.FailureKind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("completion %s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Notice renders the failure for the user. It is never a persona's reply.
func (f *Failure) Notice() domain.Notice {
	if f.Kind == domain.FailureTransient {
		return domain.Notice{
			Kind:  f.Kind,
			Title: "Connection error. Please try again.",
			Detail: "The completion service could not be reached.\n\n" +
				"Try:\n" +
				"• Check your internet connection\n" +
				"• Disable VPN temporarily\n" +
				"• Send the message again in a moment\n\n" +
				"Details: " + f.Err.Error(),
			Retryable: true,
		}
	}
	return domain.Notice{
		Kind:  f.Kind,
		Title: "The completion service rejected the request.",
		Detail: "Check the API key, model name and provider settings, then restart the app.\n\n" +
			"Details: " + f.Err.Error(),
	}
}

// Result is either a reply (Failure == nil) or a classified failure.
type Result struct {
	Reply    string
	Failure  *Failure
	Attempts int
	State    State
}

// OK reports whether the request produced a reply.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Client sends assembled message lists to a completion backend.
type Client struct {
	backend domain.CompletionBackend
	policy  Policy
	sleep   Sleeper
}

// Option customizes a Client.
type Option func(*Client)

// WithSleeper replaces the real-time sleeper, mostly for tests.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		c.sleep = s
	}
}

// NewClient creates a Client. Zero policy fields take DefaultPolicy values.
func NewClient(backend domain.CompletionBackend, policy Policy, opts ...Option) *Client {
	c := &Client{
		backend: backend,
		policy:  policy.withDefaults(),
		sleep:   SleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the effective policy.
func (c *Client) Policy() Policy {
	return c.policy
}

// Complete runs the request until it succeeds, fails fatally or runs out of
// attempts. It never mutates any conversation.
func (c *Client) Complete(ctx context.Context, model string, messages []domain.ChatMessage) Result {
	log := observability.LoggerFromContext(ctx).With(
		"model", model,
		"messages", len(messages),
	)

	var lastErr error
	for attempt := 1; ; attempt++ {
		start := time.Now()
		log.Debug("completion attempt", "attempt", attempt, "state", StatePending)

		reply, err := c.attempt(ctx, model, messages)
		if err == nil {
			log.Info("completion done",
				"attempt", attempt,
				"elapsed_ms", time.Since(start).Milliseconds())
			return Result{Reply: reply, Attempts: attempt, State: StateDone}
		}
		lastErr = err

		kind := domain.ClassifyFailure(err)
		if kind == domain.FailureFatal || attempt >= c.policy.MaxAttempts {
			log.Error("completion failed",
				"attempt", attempt,
				"kind", kind,
				"error", err)
			return failed(kind, err, attempt)
		}

		delay := c.policy.Backoff(attempt)
		log.Warn("completion retry scheduled",
			"attempt", attempt,
			"state", StateBackoff,
			"backoff_ms", delay.Milliseconds(),
			"error", err)

		if err := c.sleep(ctx, delay); err != nil {
			log.Error("completion backoff interrupted", "attempt", attempt, "error", err)
			return failed(domain.ClassifyFailure(err),
				fmt.Errorf("backoff interrupted: %w (last error: %v)", err, lastErr), attempt)
		}
	}
}

// attempt runs one bounded call to the backend.
func (c *Client) attempt(ctx context.Context, model string, messages []domain.ChatMessage) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.policy.Timeout)
	defer cancel()

	reply, err := c.backend.Complete(attemptCtx, model, messages)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		// Our own timeout fired; make sure it reads as transient whatever the backend wrapped.
		return "", domain.Transient("timeout", err)
	}
	return reply, err
}

func failed(kind domain.FailureKind, err error, attempts int) Result {
	return Result{
		Failure:  &Failure{Kind: kind, Err: err},
		Attempts: attempts,
		State:    StateFailed,
	}
}
