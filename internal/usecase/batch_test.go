package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Jenny-Gump/content-generator/internal/config"
	"github.com/Jenny-Gump/content-generator/internal/domain"
	"github.com/Jenny-Gump/content-generator/internal/logging"
	"github.com/Jenny-Gump/content-generator/internal/ports"
)

func newTestBatch(t *testing.T, run TopicRunner, repo *fakeRepo) *Batch {
	t.Helper()
	cfg := config.BatchConfig{
		RetryAttempts:     2,
		RetryDelaySeconds: 60,
		StateDir:          t.TempDir(),
	}
	var repoPort ports.RunRepository
	if repo != nil {
		repoPort = repo
	}
	b := NewBatch(run, repoPort, cfg, logging.New("error"))
	b.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return b
}

func TestBatchProcessesAllTopics(t *testing.T) {
	t.Parallel()

	var ran []string
	run := func(_ context.Context, topic string) (RunResult, error) {
		ran = append(ran, topic)
		return RunResult{Article: domain.ArticleDocument{Title: topic}}, nil
	}

	b := newTestBatch(t, run, nil)
	progress, err := b.Run(context.Background(), []string{"one", "two", "three"}, "batch", false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ran) != 3 {
		t.Fatalf("expected 3 runs, got %v", ran)
	}
	for _, topic := range progress.Topics {
		if topic.Status != TopicDone {
			t.Fatalf("topic %s not done: %+v", topic.Topic, topic)
		}
	}
}

func TestBatchRetriesThenFails(t *testing.T) {
	t.Parallel()

	attempts := 0
	run := func(context.Context, string) (RunResult, error) {
		attempts++
		return RunResult{}, errors.New("transient trouble")
	}

	b := newTestBatch(t, run, nil)
	progress, err := b.Run(context.Background(), []string{"hard"}, "batch", false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	entry := progress.Topics[0]
	if entry.Status != TopicFailed || entry.Error == "" || entry.Attempts != 2 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestBatchConfigurationErrorNotRetried(t *testing.T) {
	t.Parallel()

	attempts := 0
	run := func(context.Context, string) (RunResult, error) {
		attempts++
		return RunResult{}, domain.NewConfigurationError("FIRECRAWL_API_KEY is not set")
	}

	b := newTestBatch(t, run, nil)
	if _, err := b.Run(context.Background(), []string{"topic"}, "batch", false); err != nil {
		t.Fatalf("run: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("configuration error must not be retried, got %d attempts", attempts)
	}
}

func TestBatchSkipsProcessedTopics(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{done: map[string]bool{"seen": true}}
	var ran []string
	run := func(_ context.Context, topic string) (RunResult, error) {
		ran = append(ran, topic)
		return RunResult{}, nil
	}

	b := newTestBatch(t, run, repo)
	progress, err := b.Run(context.Background(), []string{"seen", "fresh"}, "batch", false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ran) != 1 || ran[0] != "fresh" {
		t.Fatalf("unexpected runs: %v", ran)
	}
	if progress.Topics[0].Status != TopicSkipped {
		t.Fatalf("expected skipped, got %+v", progress.Topics[0])
	}
}

func TestBatchResumeSkipsCompleted(t *testing.T) {
	t.Parallel()

	stateDir := t.TempDir()
	cfg := config.BatchConfig{RetryAttempts: 1, StateDir: stateDir}

	now := time.Now()
	prior := BatchProgress{
		StartedAt: now,
		Topics: []TopicStatus{
			{Topic: "done-topic", Status: TopicDone, CompletedAt: &now},
			{Topic: "pending-topic", Status: TopicPending},
		},
	}
	raw, _ := json.Marshal(prior)
	if err := os.WriteFile(filepath.Join(stateDir, "batch.json"), raw, 0o644); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	var ran []string
	run := func(_ context.Context, topic string) (RunResult, error) {
		ran = append(ran, topic)
		return RunResult{}, nil
	}
	b := NewBatch(run, nil, cfg, logging.New("error"))

	progress, err := b.Run(context.Background(), nil, "batch", true)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ran) != 1 || ran[0] != "pending-topic" {
		t.Fatalf("resume reran finished work: %v", ran)
	}
	if progress.Topics[1].Status != TopicDone {
		t.Fatalf("pending topic not finished: %+v", progress.Topics[1])
	}
}

func TestBatchStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var ran int
	run := func(context.Context, string) (RunResult, error) {
		ran++
		cancel()
		return RunResult{}, nil
	}

	b := newTestBatch(t, run, nil)
	_, err := b.Run(ctx, []string{"one", "two", "three"}, "batch", false)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if ran != 1 {
		t.Fatalf("expected 1 run before cancellation, got %d", ran)
	}
}

func TestBatchPersistsProgress(t *testing.T) {
	t.Parallel()

	stateDir := t.TempDir()
	cfg := config.BatchConfig{RetryAttempts: 1, StateDir: stateDir}
	run := func(context.Context, string) (RunResult, error) { return RunResult{}, nil }
	b := NewBatch(run, nil, cfg, logging.New("error"))

	if _, err := b.Run(context.Background(), []string{"topic one"}, "my batch", false); err != nil {
		t.Fatalf("run: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(stateDir, "my_batch.json"))
	if err != nil {
		t.Fatalf("read progress: %v", err)
	}
	var progress BatchProgress
	if err := json.Unmarshal(raw, &progress); err != nil {
		t.Fatalf("decode progress: %v", err)
	}
	if len(progress.Topics) != 1 || progress.Topics[0].Status != TopicDone {
		t.Fatalf("unexpected persisted progress: %+v", progress)
	}
}
