package completion_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/PabloGalante/deltawind/internal/app/completion"
	"github.com/PabloGalante/deltawind/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedBackend returns the scripted errors in order, then reply.
type scriptedBackend struct {
	mu     sync.Mutex
	errs   []error
	reply  string
	calls  int
	blocks bool
}

func (b *scriptedBackend) Complete(ctx context.Context, _ string, _ []domain.ChatMessage) (string, error) {
	b.mu.Lock()
	b.calls++
	n := b.calls
	b.mu.Unlock()

	if b.blocks {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if n <= len(b.errs) {
		return "", b.errs[n-1]
	}
	return b.reply, nil
}

type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

var messages = []domain.ChatMessage{
	{Role: domain.ChatRoleSystem, Text: "sys"},
	{Role: domain.ChatRoleUser, Text: "hi"},
}

func newClient(b domain.CompletionBackend, s *recordingSleeper) *completion.Client {
	return completion.NewClient(b, completion.DefaultPolicy(), completion.WithSleeper(s.Sleep))
}

func TestBackoff(t *testing.T) {
	p := completion.DefaultPolicy()

	require.Equal(t, time.Duration(0), p.Backoff(0))
	require.Equal(t, 600*time.Millisecond, p.Backoff(1))
	require.Equal(t, 1200*time.Millisecond, p.Backoff(2))
	require.Equal(t, 2400*time.Millisecond, p.Backoff(3))
}

func TestCompleteSucceedsFirstTry(t *testing.T) {
	req := require.New(t)
	backend := &scriptedBackend{reply: "On schedule."}
	sleeper := &recordingSleeper{}

	res := newClient(backend, sleeper).Complete(context.Background(), "m", messages)

	req.True(res.OK())
	req.Equal("On schedule.", res.Reply)
	req.Equal(1, res.Attempts)
	req.Equal(completion.StateDone, res.State)
	req.Empty(sleeper.delays)
}

func TestCompleteRetriesTransientThenSucceeds(t *testing.T) {
	req := require.New(t)
	backend := &scriptedBackend{
		errs: []error{
			domain.Transient("send", errors.New("connection reset")),
			domain.Transient("send", errors.New("429 too many requests")),
		},
		reply: "A3 is 3 days late.",
	}
	sleeper := &recordingSleeper{}

	res := newClient(backend, sleeper).Complete(context.Background(), "m", messages)

	req.True(res.OK())
	req.Equal("A3 is 3 days late.", res.Reply)
	req.Equal(3, res.Attempts)
	req.Equal(3, backend.calls)
	req.Equal([]time.Duration{600 * time.Millisecond, 1200 * time.Millisecond}, sleeper.delays)
}

func TestCompleteFatalIsNotRetried(t *testing.T) {
	req := require.New(t)
	backend := &scriptedBackend{errs: []error{domain.Fatal("send", errors.New("401 invalid api key"))}}
	sleeper := &recordingSleeper{}

	res := newClient(backend, sleeper).Complete(context.Background(), "m", messages)

	req.False(res.OK())
	req.Equal(completion.StateFailed, res.State)
	req.Equal(domain.FailureFatal, res.Failure.Kind)
	req.Equal(1, res.Attempts)
	req.Empty(sleeper.delays)
	req.Empty(res.Reply)
}

func TestCompleteUnclassifiedErrorIsFatal(t *testing.T) {
	req := require.New(t)
	backend := &scriptedBackend{errs: []error{errors.New("boom")}}
	sleeper := &recordingSleeper{}

	res := newClient(backend, sleeper).Complete(context.Background(), "m", messages)

	req.Equal(domain.FailureFatal, res.Failure.Kind)
	req.Equal(1, backend.calls)
	req.Empty(sleeper.delays)
}

func TestCompleteGivesUpAfterMaxAttempts(t *testing.T) {
	req := require.New(t)
	last := errors.New("third timeout")
	backend := &scriptedBackend{errs: []error{
		domain.Transient("send", errors.New("first timeout")),
		domain.Transient("send", errors.New("second timeout")),
		domain.Transient("send", last),
	}}
	sleeper := &recordingSleeper{}

	res := newClient(backend, sleeper).Complete(context.Background(), "m", messages)

	req.Equal(completion.StateFailed, res.State)
	req.Equal(domain.FailureTransient, res.Failure.Kind)
	req.Equal(3, res.Attempts)
	req.ErrorIs(res.Failure, last)
	req.Equal([]time.Duration{600 * time.Millisecond, 1200 * time.Millisecond}, sleeper.delays)

	var total time.Duration
	for _, d := range sleeper.delays {
		total += d
	}
	req.LessOrEqual(total, 2*time.Second)
}

func TestCompleteAttemptTimeoutIsTransient(t *testing.T) {
	req := require.New(t)
	backend := &scriptedBackend{blocks: true}
	sleeper := &recordingSleeper{}
	client := completion.NewClient(backend, completion.Policy{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		Timeout:     10 * time.Millisecond,
	}, completion.WithSleeper(sleeper.Sleep))

	res := client.Complete(context.Background(), "m", messages)

	req.Equal(domain.FailureTransient, res.Failure.Kind)
	req.Equal(2, res.Attempts)
	req.Equal([]time.Duration{time.Millisecond}, sleeper.delays)
}

func TestCompleteStopsWhenContextCancelledDuringBackoff(t *testing.T) {
	req := require.New(t)
	backend := &scriptedBackend{errs: []error{domain.Transient("send", errors.New("reset"))}, reply: "late"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := completion.NewClient(backend, completion.DefaultPolicy())
	res := client.Complete(ctx, "m", messages)

	req.False(res.OK())
	req.Equal(1, res.Attempts)
	req.ErrorIs(res.Failure, context.Canceled)
}

func TestFailureNotice(t *testing.T) {
	req := require.New(t)

	transient := (&completion.Failure{Kind: domain.FailureTransient, Err: errors.New("dial tcp: timeout")}).Notice()
	req.True(transient.Retryable)
	req.Contains(transient.Title, "Connection error")
	req.Contains(transient.Detail, "dial tcp: timeout")

	fatal := (&completion.Failure{Kind: domain.FailureFatal, Err: errors.New("401")}).Notice()
	req.False(fatal.Retryable)
	req.Contains(fatal.Detail, "API key")
}

func TestSleepContext(t *testing.T) {
	req := require.New(t)
	req.NoError(completion.SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req.ErrorIs(completion.SleepContext(ctx, time.Hour), context.Canceled)
}
