package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Jenny-Gump/content-generator/internal/config"
	"github.com/Jenny-Gump/content-generator/internal/domain"
	"github.com/Jenny-Gump/content-generator/internal/infrastructure/artifacts"
	"github.com/Jenny-Gump/content-generator/internal/ports"
)

// Topic statuses tracked in the batch progress file.
const (
	TopicPending = "pending"
	TopicDone    = "done"
	TopicFailed  = "failed"
	TopicSkipped = "skipped"
)

// TopicStatus is the per-topic entry of the progress file.
type TopicStatus struct {
	Topic       string     `json:"topic"`
	Status      string     `json:"status"`
	Attempts    int        `json:"attempts"`
	Error       string     `json:"error,omitempty"`
	PostID      int        `json:"wordpress_id,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// BatchProgress is persisted after every topic so an interrupted batch can be
// resumed without repeating finished work.
type BatchProgress struct {
	StartedAt time.Time     `json:"started_at"`
	Topics    []TopicStatus `json:"topics"`
}

// TopicRunner executes the full pipeline for one topic. The batch runner
// stays ignorant of per-run wiring (tracker, artifact store, invoker).
type TopicRunner func(ctx context.Context, topic string) (RunResult, error)

// Batch processes a list of topics sequentially with per-topic retry and
// resumable progress.
type Batch struct {
	run    TopicRunner
	repo   ports.RunRepository
	cfg    config.BatchConfig
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewBatch constructs the batch runner; repo may be nil (no deduplication).
func NewBatch(run TopicRunner, repo ports.RunRepository, cfg config.BatchConfig, logger *slog.Logger) *Batch {
	return &Batch{
		run:    run,
		repo:   repo,
		cfg:    cfg,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Run processes the topics. With resume=true, previously completed topics in
// the progress file are not rerun. Returns the final progress and the first
// context error, if any; individual topic failures do not stop the batch.
func (b *Batch) Run(ctx context.Context, topics []string, batchName string, resume bool) (BatchProgress, error) {
	statePath := b.statePath(batchName)
	progress := b.loadOrInit(statePath, topics, resume)

	for i := range progress.Topics {
		entry := &progress.Topics[i]
		if entry.Status == TopicDone || entry.Status == TopicSkipped {
			continue
		}
		if err := ctx.Err(); err != nil {
			b.save(statePath, progress)
			return progress, err
		}

		log := b.logger.With("topic", entry.Topic, "position", fmt.Sprintf("%d/%d", i+1, len(progress.Topics)))

		if b.repo != nil {
			done, err := b.repo.AlreadyProcessed(ctx, entry.Topic)
			if err != nil {
				log.Warn("cannot check run history", "error", err)
			} else if done {
				log.Info("topic already processed, skipping")
				entry.Status = TopicSkipped
				b.save(statePath, progress)
				continue
			}
		}

		b.processTopic(ctx, entry, log)
		b.save(statePath, progress)
	}

	return progress, ctx.Err()
}

// processTopic retries a failing topic up to the configured attempt count
// with a fixed delay between attempts.
func (b *Batch) processTopic(ctx context.Context, entry *TopicStatus, log *slog.Logger) {
	attempts := b.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := time.Duration(b.cfg.RetryDelaySeconds) * time.Second

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		entry.Attempts++
		result, err := b.run(ctx, entry.Topic)
		if err == nil {
			now := time.Now()
			entry.Status = TopicDone
			entry.Error = ""
			entry.PostID = result.Publish.PostID
			entry.CompletedAt = &now
			log.Info("topic finished", "article", result.Article.Title)
			return
		}

		lastErr = err
		// Setup problems will fail every topic identically; retrying is noise.
		if domain.IsConfigurationError(err) || ctx.Err() != nil {
			break
		}
		log.Warn("topic attempt failed", "attempt", attempt, "error", err)
		if attempt < attempts {
			if sleepErr := b.sleep(ctx, delay); sleepErr != nil {
				break
			}
		}
	}

	entry.Status = TopicFailed
	entry.Error = lastErr.Error()
	log.Error("topic failed", "error", lastErr)
}

func (b *Batch) statePath(batchName string) string {
	return filepath.Join(b.cfg.StateDir, artifacts.SanitizeTopic(batchName)+".json")
}

func (b *Batch) loadOrInit(statePath string, topics []string, resume bool) BatchProgress {
	if resume {
		if raw, err := os.ReadFile(statePath); err == nil {
			var progress BatchProgress
			if err := json.Unmarshal(raw, &progress); err == nil && len(progress.Topics) > 0 {
				b.logger.Info("resuming batch", "state", statePath, "topics", len(progress.Topics))
				return progress
			}
			b.logger.Warn("progress file unreadable, starting fresh", "state", statePath)
		}
	}

	progress := BatchProgress{StartedAt: time.Now(), Topics: make([]TopicStatus, len(topics))}
	for i, topic := range topics {
		progress.Topics[i] = TopicStatus{Topic: topic, Status: TopicPending}
	}
	return progress
}

func (b *Batch) save(statePath string, progress BatchProgress) {
	if err := os.MkdirAll(filepath.Dir(statePath), 0o755); err != nil {
		b.logger.Warn("cannot create state dir", "error", err)
		return
	}
	raw, err := json.MarshalIndent(progress, "", "  ")
	if err != nil {
		b.logger.Warn("cannot serialize progress", "error", err)
		return
	}
	if err := os.WriteFile(statePath, raw, 0o644); err != nil {
		b.logger.Warn("cannot save progress", "state", statePath, "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
