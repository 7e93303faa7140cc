package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Jenny-Gump/content-generator/internal/config"
	"github.com/Jenny-Gump/content-generator/internal/domain"
	"github.com/Jenny-Gump/content-generator/internal/ports"
	"github.com/Jenny-Gump/content-generator/internal/usage"
)

// fakeProvider returns scripted outcomes in order, then repeats the last one.
type fakeProvider struct {
	name     string
	outcomes []fakeOutcome
	calls    int
}

type fakeOutcome struct {
	text string
	err  error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(_ context.Context, _ string, _ domain.ModelRequest) (domain.ChatResponse, error) {
	idx := f.calls
	if idx >= len(f.outcomes) {
		idx = len(f.outcomes) - 1
	}
	f.calls++
	out := f.outcomes[idx]
	if out.err != nil {
		return domain.ChatResponse{}, out.err
	}
	return domain.ChatResponse{Text: out.text, Usage: domain.TokenUsage{TotalTokens: 10}}, nil
}

type fakeResolver struct {
	providers map[string]ports.ChatProvider
	err       error
}

func (f *fakeResolver) Resolve(model string) (ports.ChatProvider, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.providers[model]
	if !ok {
		return nil, domain.NewConfigurationError("no provider serves model %s", model)
	}
	return p, nil
}

func newTestInvoker(r resolver) (*Invoker, *usage.Tracker) {
	tracker := usage.NewTracker("topic")
	iv := &Invoker{
		resolver: r,
		tracker:  tracker,
		cfg: config.RetryConfig{
			MaxAttempts:    3,
			BackoffSeconds: []int{2, 5, 10},
		},
		sleep: func(ctx context.Context, d time.Duration) error { return ctx.Err() },
		now:   time.Now,
	}
	return iv, tracker
}

func testRequest() domain.ModelRequest {
	return domain.ModelRequest{
		Stage:         "generate_article",
		PrimaryModel:  "primary",
		FallbackModel: "fallback",
		Messages:      []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
	}
}

func TestInvokeFirstAttemptSucceeds(t *testing.T) {
	t.Parallel()

	primary := &fakeProvider{name: "p", outcomes: []fakeOutcome{{text: "ok"}}}
	iv, tracker := newTestInvoker(&fakeResolver{providers: map[string]ports.ChatProvider{"primary": primary}})

	res, err := iv.Invoke(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Succeeded || res.RawText != "ok" || res.ModelUsed != "primary" || res.Attempts != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}

	report := tracker.Summary()
	if report.Session.TotalRequests != 1 || report.Session.TotalTokens != 10 {
		t.Fatalf("unexpected ledger: %+v", report.Session)
	}
}

func TestInvokeRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	primary := &fakeProvider{name: "p", outcomes: []fakeOutcome{
		{err: &domain.HTTPStatusError{Status: 500}},
		{err: &domain.HTTPStatusError{Status: 429}},
		{text: "recovered"},
	}}
	iv, _ := newTestInvoker(&fakeResolver{providers: map[string]ports.ChatProvider{"primary": primary}})

	res, err := iv.Invoke(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Succeeded || res.Attempts != 3 || res.ModelUsed != "primary" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestInvokeEscalatesToFallback(t *testing.T) {
	t.Parallel()

	primary := &fakeProvider{name: "p", outcomes: []fakeOutcome{
		{err: &domain.HTTPStatusError{Status: 503}},
	}}
	fallback := &fakeProvider{name: "f", outcomes: []fakeOutcome{{text: "plan b"}}}
	iv, _ := newTestInvoker(&fakeResolver{providers: map[string]ports.ChatProvider{
		"primary":  primary,
		"fallback": fallback,
	}})

	res, err := iv.Invoke(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Succeeded || res.ModelUsed != "fallback" || res.RawText != "plan b" {
		t.Fatalf("unexpected result: %+v", res)
	}
	// Three exhausted primary attempts plus one fallback attempt.
	if res.Attempts != 4 {
		t.Fatalf("expected 4 attempts, got %d", res.Attempts)
	}
}

func TestInvokeNonRetryableSkipsStraightToFallback(t *testing.T) {
	t.Parallel()

	primary := &fakeProvider{name: "p", outcomes: []fakeOutcome{
		{err: &domain.HTTPStatusError{Status: 400, Body: "bad request"}},
	}}
	fallback := &fakeProvider{name: "f", outcomes: []fakeOutcome{{text: "plan b"}}}
	iv, _ := newTestInvoker(&fakeResolver{providers: map[string]ports.ChatProvider{
		"primary":  primary,
		"fallback": fallback,
	}})

	res, err := iv.Invoke(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Succeeded || res.Attempts != 2 {
		t.Fatalf("expected 1 primary + 1 fallback attempt, got %+v", res)
	}
	if primary.calls != 1 {
		t.Fatalf("expected no retry on 400, primary called %d times", primary.calls)
	}
}

func TestInvokeTotalExhaustionIsNotAnError(t *testing.T) {
	t.Parallel()

	boom := &domain.HTTPStatusError{Status: 502, Body: "bad gateway"}
	primary := &fakeProvider{name: "p", outcomes: []fakeOutcome{{err: boom}}}
	fallback := &fakeProvider{name: "f", outcomes: []fakeOutcome{{err: boom}}}
	iv, tracker := newTestInvoker(&fakeResolver{providers: map[string]ports.ChatProvider{
		"primary":  primary,
		"fallback": fallback,
	}})

	res, err := iv.Invoke(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("transport exhaustion must not be a returned error, got %v", err)
	}
	if res.Succeeded {
		t.Fatalf("expected failure result")
	}
	if res.Attempts != 6 || res.ModelUsed != "fallback" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Err == "" {
		t.Fatalf("expected error text in result")
	}

	entry := tracker.Summary().Entries[0]
	if entry.Succeeded || entry.Attempts != 6 {
		t.Fatalf("unexpected ledger entry: %+v", entry)
	}
}

func TestInvokeConfigurationErrorSurfaces(t *testing.T) {
	t.Parallel()

	iv, _ := newTestInvoker(&fakeResolver{err: domain.NewConfigurationError("DEEPSEEK_API_KEY is not set")})

	_, err := iv.Invoke(context.Background(), testRequest())
	if !domain.IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestInvokeStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	primary := &fakeProvider{name: "p", outcomes: []fakeOutcome{{err: context.Canceled}}}
	fallback := &fakeProvider{name: "f", outcomes: []fakeOutcome{{text: "never"}}}
	iv, _ := newTestInvoker(&fakeResolver{providers: map[string]ports.ChatProvider{
		"primary":  primary,
		"fallback": fallback,
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := iv.Invoke(ctx, testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Succeeded {
		t.Fatalf("expected failure after cancellation")
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback must not run after cancellation")
	}
}

func TestRetryableClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want bool
	}{
		{&domain.HTTPStatusError{Status: 429}, true},
		{&domain.HTTPStatusError{Status: 500}, true},
		{&domain.HTTPStatusError{Status: 503}, true},
		{&domain.HTTPStatusError{Status: 400}, false},
		{&domain.HTTPStatusError{Status: 401}, false},
		{context.DeadlineExceeded, true},
		{context.Canceled, false},
		{errors.New("empty response"), false},
	}
	for _, tc := range cases {
		if got := retryable(tc.err); got != tc.want {
			t.Fatalf("retryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
