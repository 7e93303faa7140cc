package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"path"
	"time"

	"github.com/Jenny-Gump/content-generator/internal/config"
	"github.com/Jenny-Gump/content-generator/internal/domain"
	"github.com/Jenny-Gump/content-generator/internal/ports"
	"github.com/Jenny-Gump/content-generator/internal/usage"
)

// attemptState is the per-request retry state machine.
type attemptState int

const (
	statePending attemptState = iota
	stateAttempting
	stateRetryWait
	stateSucceeded
	stateExhausted
)

// resolver decouples the invoker from the concrete Registry for testing.
type resolver interface {
	Resolve(model string) (ports.ChatProvider, error)
}

// Invoker executes one ModelRequest reliably: bounded retries with a fixed
// backoff schedule on the primary model, then the same schedule on the
// fallback model. Transport trouble never surfaces as a returned error; it
// lands in ModelResult.Succeeded=false. Returned errors mean configuration
// mistakes only.
type Invoker struct {
	resolver  resolver
	tracker   *usage.Tracker
	artifacts ports.ArtifactStore
	cfg       config.RetryConfig
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
	now       func() time.Time
}

var _ ports.ModelInvoker = (*Invoker)(nil)

// NewInvoker wires the invoker for one pipeline run.
func NewInvoker(r *Registry, tracker *usage.Tracker, artifacts ports.ArtifactStore, cfg config.RetryConfig, logger *slog.Logger) *Invoker {
	return &Invoker{
		resolver:  r,
		tracker:   tracker,
		artifacts: artifacts,
		cfg:       cfg,
		logger:    logger,
		sleep:     sleepCtx,
		now:       time.Now,
	}
}

// Invoke runs the request through the retry/fallback state machine and
// records the terminal outcome in the usage ledger.
func (iv *Invoker) Invoke(ctx context.Context, req domain.ModelRequest) (domain.ModelResult, error) {
	models := []string{req.PrimaryModel}
	if req.FallbackModel != "" {
		models = append(models, req.FallbackModel)
	}

	var (
		totalAttempts int
		lastErr       error
		lastModel     string
	)

	for i, model := range models {
		provider, err := iv.resolver.Resolve(model)
		if err != nil {
			return domain.ModelResult{}, err
		}

		resp, attempts, err := iv.runAttempts(ctx, provider, model, req, totalAttempts)
		totalAttempts += attempts
		lastModel = model

		if err == nil {
			result := domain.ModelResult{
				RawText:   resp.Text,
				ModelUsed: model,
				Attempts:  totalAttempts,
				Usage:     resp.Usage,
				Succeeded: true,
			}
			iv.record(req, model, totalAttempts, true, resp.Usage)
			return result, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if i+1 < len(models) {
			iv.warn("retry budget exhausted, escalating to fallback model",
				"stage", req.Stage, "request_id", req.RequestID,
				"model", model, "fallback", models[i+1], "error", err)
		}
	}

	iv.record(req, lastModel, totalAttempts, false, domain.TokenUsage{})
	return domain.ModelResult{
		ModelUsed: lastModel,
		Attempts:  totalAttempts,
		Succeeded: false,
		Err:       lastErr.Error(),
	}, nil
}

// runAttempts drives the state machine for a single model. It returns the
// number of attempts consumed and the last error when the budget ran out.
func (iv *Invoker) runAttempts(ctx context.Context, provider ports.ChatProvider, model string, req domain.ModelRequest, seqOffset int) (domain.ChatResponse, int, error) {
	var (
		st      = statePending
		attempt int
		resp    domain.ChatResponse
		lastErr error
	)

	for {
		switch st {
		case statePending:
			st = stateAttempting

		case stateAttempting:
			attempt++
			resp, lastErr = iv.attempt(ctx, provider, model, req, seqOffset+attempt)
			switch {
			case lastErr == nil:
				st = stateSucceeded
			case !retryable(lastErr) || attempt >= iv.cfg.MaxAttempts:
				st = stateExhausted
			default:
				st = stateRetryWait
			}

		case stateRetryWait:
			delay := iv.cfg.Backoff(attempt)
			iv.warn("transport failure, backing off",
				"stage", req.Stage, "request_id", req.RequestID, "model", model,
				"attempt", attempt, "delay", delay, "error", lastErr)
			if err := iv.sleep(ctx, delay); err != nil {
				return resp, attempt, err
			}
			st = stateAttempting

		case stateSucceeded:
			return resp, attempt, nil

		case stateExhausted:
			return resp, attempt, lastErr
		}
	}
}

// attempt performs a single provider call, persisting the outbound request
// and raw inbound response independently of parse outcome.
func (iv *Invoker) attempt(ctx context.Context, provider ports.ChatProvider, model string, req domain.ModelRequest, seq int) (domain.ChatResponse, error) {
	iv.saveRequestArtifact(req, model, seq)

	callCtx := ctx
	if timeout := iv.cfg.AttemptTimeoutDuration(); timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := provider.Complete(callCtx, model, req)
	if err != nil {
		iv.saveText(req, "llm_responses_raw", fmt.Sprintf("%s_%02d_error.txt", requestID(req), seq), err.Error())
		return domain.ChatResponse{}, err
	}

	iv.saveText(req, "llm_responses_raw", fmt.Sprintf("%s_%02d_response.txt", requestID(req), seq), resp.Text)
	return resp, nil
}

func (iv *Invoker) saveRequestArtifact(req domain.ModelRequest, model string, seq int) {
	if iv.artifacts == nil {
		return
	}
	payload := map[string]any{
		"timestamp":       iv.now().Format(time.RFC3339),
		"stage":           req.Stage,
		"model":           model,
		"attempt":         seq,
		"messages":        req.Messages,
		"response_format": req.ResponseFormat,
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	name := fmt.Sprintf("%s_%02d_request.json", requestID(req), seq)
	if err := iv.artifacts.SaveJSON(path.Join(req.Stage, "llm_requests"), name, payload); err != nil {
		iv.warn("failed to save request artifact", "stage", req.Stage, "name", name, "error", err)
	}
}

func (iv *Invoker) saveText(req domain.ModelRequest, sub, name, text string) {
	if iv.artifacts == nil {
		return
	}
	if err := iv.artifacts.SaveText(path.Join(req.Stage, sub), name, text); err != nil {
		iv.warn("failed to save response artifact", "stage", req.Stage, "name", name, "error", err)
	}
}

func (iv *Invoker) record(req domain.ModelRequest, model string, attempts int, succeeded bool, u domain.TokenUsage) {
	if iv.tracker == nil {
		return
	}
	iv.tracker.Record(req.Stage, req.RequestID, model, attempts, succeeded, u)
}

func (iv *Invoker) warn(msg string, args ...any) {
	if iv.logger != nil {
		iv.logger.Warn(msg, args...)
	}
}

func requestID(req domain.ModelRequest) string {
	if req.RequestID != "" {
		return req.RequestID
	}
	return req.Stage
}

// retryable classifies transport-level failures: timeouts, connection
// trouble, rate limits and 5xx responses feed the retry loop; everything
// else exhausts the current model immediately.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var httpErr *domain.HTTPStatusError
	if errors.As(err, &httpErr) {
		return httpErr.Status == 429 || httpErr.Status >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
