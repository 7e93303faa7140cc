package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Jenny-Gump/content-generator/internal/config"
	"github.com/Jenny-Gump/content-generator/internal/domain"
	"github.com/Jenny-Gump/content-generator/internal/infrastructure/artifacts"
	"github.com/Jenny-Gump/content-generator/internal/infrastructure/cleaner"
	"github.com/Jenny-Gump/content-generator/internal/llmparse"
	"github.com/Jenny-Gump/content-generator/internal/ports"
	"github.com/Jenny-Gump/content-generator/internal/scoring"
	"github.com/Jenny-Gump/content-generator/internal/usage"
)

// PipelineDeps wires all driven adapters into the generation pipeline.
// Publisher and Repository may be nil; those stages are skipped.
type PipelineDeps struct {
	Scraper    ports.SearchScraper
	Invoker    ports.ModelInvoker
	Artifacts  ports.ArtifactStore
	Publisher  ports.Publisher
	Repository ports.RunRepository
	Tracker    *usage.Tracker
	Config     config.Config
	Logger     *slog.Logger
}

// Pipeline implements the topic-to-article workflow.
type Pipeline struct {
	scraper    ports.SearchScraper
	invoker    ports.ModelInvoker
	artifacts  ports.ArtifactStore
	publisher  ports.Publisher
	repository ports.RunRepository
	tracker    *usage.Tracker
	cfg        config.Config
	logger     *slog.Logger
}

// RunResult is what one completed pipeline run hands back to the caller.
type RunResult struct {
	RunID      string
	Article    domain.ArticleDocument
	Publish    domain.PublishResult
	SourceURLs []string
	Usage      usage.Report
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		scraper:    deps.Scraper,
		invoker:    deps.Invoker,
		artifacts:  deps.Artifacts,
		publisher:  deps.Publisher,
		repository: deps.Repository,
		tracker:    deps.Tracker,
		cfg:        deps.Config,
		logger:     deps.Logger,
	}
}

// Run executes the full pipeline for a single topic.
func (p *Pipeline) Run(ctx context.Context, topic string) (RunResult, error) {
	runID := uuid.NewString()
	log := p.logger.With("topic", topic, "run_id", runID)
	log.Info("pipeline started")

	sources, err := p.collectSources(ctx, topic, log)
	if err != nil {
		return RunResult{}, err
	}

	selected := p.scoreAndSelect(sources, topic, log)
	if len(selected) == 0 {
		return RunResult{}, &domain.StageFailure{Stage: "selection", Reason: "no sources survived scoring"}
	}

	p.cleanSources(selected, log)

	material, err := p.extractPrompts(ctx, topic, selected, log)
	if err != nil {
		return RunResult{}, err
	}

	article, err := p.generateArticle(ctx, topic, material, log)
	if err != nil {
		return RunResult{}, err
	}

	article, err = p.editorialReview(ctx, article, log)
	if err != nil {
		return RunResult{}, err
	}
	p.saveArtifact("09_final", "final_article.json", article, log)

	result := RunResult{
		RunID:      runID,
		Article:    article,
		SourceURLs: sourceURLs(selected),
	}

	if p.publisher != nil {
		result.Publish = p.publishArticle(ctx, article, log)
	}

	result.Usage = p.tracker.Summary()
	p.saveArtifact(".", "token_usage_report.json", result.Usage, log)

	if p.repository != nil {
		rec := domain.RunRecord{
			ID:           runID,
			Topic:        topic,
			ArticleTitle: article.Title,
			PostID:       result.Publish.PostID,
			SourceURLs:   result.SourceURLs,
			TotalTokens:  result.Usage.Session.TotalTokens,
			CreatedAt:    time.Now(),
		}
		if err := p.repository.SaveRun(ctx, rec); err != nil {
			log.Warn("cannot persist run", "error", err)
		}
	}

	log.Info("pipeline finished",
		"article", article.Title,
		"total_tokens", result.Usage.Session.TotalTokens)
	return result, nil
}

// collectSources runs search, blocklist filtering, concurrent scraping and
// the minimum-length gate.
func (p *Pipeline) collectSources(ctx context.Context, topic string, log *slog.Logger) ([]domain.SourceRecord, error) {
	results, err := p.scraper.Search(ctx, topic, p.cfg.Firecrawl.SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	p.saveArtifact("01_search", "search_results.json", results, log)

	filtered := filterResults(results, p.cfg.Filter)
	log.Info("search results filtered", "total", len(results), "kept", len(filtered))
	p.saveArtifact("02_filtered", "filtered_results.json", filtered, log)
	if len(filtered) == 0 {
		return nil, &domain.StageFailure{Stage: "search", Reason: "no results after filtering"}
	}

	records := make([]domain.SourceRecord, len(filtered))
	var mu sync.Mutex
	failures := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Firecrawl.ScrapeConcurrency)
	for i, res := range filtered {
		g.Go(func() error {
			page, err := p.scraper.Scrape(gctx, res.URL)
			if err != nil {
				log.Warn("scrape failed", "url", res.URL, "error", err)
				mu.Lock()
				failures++
				mu.Unlock()
				return nil
			}
			title := page.Title
			if title == "" {
				title = res.Title
			}
			records[i] = domain.SourceRecord{
				URL:        page.URL,
				Title:      title,
				Domain:     domain.DomainOf(page.URL),
				RawContent: page.Markdown,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scrape: %w", err)
	}

	minLen := p.cfg.Firecrawl.MinContentLength
	kept := make([]domain.SourceRecord, 0, len(records))
	for _, rec := range records {
		if rec.URL == "" {
			continue
		}
		if len(rec.RawContent) < minLen {
			log.Warn("source too short", "url", rec.URL, "length", len(rec.RawContent))
			continue
		}
		kept = append(kept, rec)
	}
	log.Info("scraping finished", "scraped", len(filtered)-failures, "kept", len(kept))

	type scrapeSummary struct {
		URL    string `json:"url"`
		Title  string `json:"title"`
		Length int    `json:"length"`
	}
	summary := make([]scrapeSummary, 0, len(kept))
	for _, rec := range kept {
		summary = append(summary, scrapeSummary{URL: rec.URL, Title: rec.Title, Length: len(rec.RawContent)})
	}
	p.saveArtifact("03_scraped", "scrape_summary.json", summary, log)

	if len(kept) == 0 {
		return nil, &domain.StageFailure{Stage: "scrape", Reason: "no source met the minimum content length"}
	}
	return kept, nil
}

func (p *Pipeline) scoreAndSelect(sources []domain.SourceRecord, topic string, log *slog.Logger) []domain.SourceRecord {
	scored := scoring.ScoreAll(sources, topic, p.cfg.Scoring)
	p.saveArtifact("04_scored", "scored_sources.json", scored, log)

	selected := scoring.Rank(scored, p.cfg.Scoring.Weights, p.cfg.Scoring.TopN)
	for _, rec := range selected {
		log.Info("source selected",
			"rank", rec.Rank, "url", rec.URL,
			"final_score", fmt.Sprintf("%.3f", rec.FinalScore))
	}
	p.saveArtifact("05_selected", "selected_sources.json", selected, log)
	return selected
}

func (p *Pipeline) cleanSources(selected []domain.SourceRecord, log *slog.Logger) {
	for i := range selected {
		cleaner.Clean(&selected[i])
		name := fmt.Sprintf("%02d_%s.md", selected[i].Rank, artifacts.SanitizeTopic(selected[i].Domain))
		if err := p.artifacts.SaveText("06_cleaned", name, selected[i].CleanedContent); err != nil {
			log.Warn("cannot save artifact", "name", name, "error", err)
		}
	}
	p.saveArtifact("06_cleaned", "cleaning_summary.json", selected, log)
}

// extractPrompts runs one extraction call per selected source, bounded by the
// configured concurrency. A failed or unparseable source is skipped; the
// stage fails only when every source yields nothing.
func (p *Pipeline) extractPrompts(ctx context.Context, topic string, selected []domain.SourceRecord, log *slog.Logger) ([]map[string]any, error) {
	perSource := make([][]map[string]any, len(selected))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Stages.ExtractConcurrency)
	for i, rec := range selected {
		g.Go(func() error {
			req := domain.ModelRequest{
				Stage:          stageExtract,
				RequestID:      fmt.Sprintf("source_%d", i+1),
				PrimaryModel:   p.cfg.Stages.ExtractPrompts.Primary,
				FallbackModel:  p.cfg.Stages.ExtractPrompts.Fallback,
				Messages:       extractMessages(topic, rec.CleanedContent),
				ResponseFormat: domain.FormatJSON,
			}
			res, err := p.invoker.Invoke(gctx, req)
			if err != nil {
				return err
			}
			if !res.Succeeded {
				log.Warn("extraction failed for source", "url", rec.URL, "error", res.Err)
				return nil
			}
			items, strategy, ok := llmparse.ParseList(res.RawText)
			if !ok {
				log.Warn("extraction response unparseable", "url", rec.URL)
				return nil
			}
			for _, item := range items {
				item["source_url"] = rec.URL
			}
			log.Info("source extracted", "url", rec.URL, "items", len(items), "parse_strategy", strategy)
			perSource[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var material []map[string]any
	for _, items := range perSource {
		material = append(material, items...)
	}
	p.saveArtifact("07_extracted", "extracted_prompts.json", material, log)

	if len(material) == 0 {
		return nil, &domain.StageFailure{Stage: stageExtract, Reason: "no usable material extracted from any source"}
	}
	return material, nil
}

func (p *Pipeline) generateArticle(ctx context.Context, topic string, material []map[string]any, log *slog.Logger) (domain.ArticleDocument, error) {
	materialJSON, err := json.MarshalIndent(material, "", "  ")
	if err != nil {
		return domain.ArticleDocument{}, fmt.Errorf("marshal material: %w", err)
	}

	req := domain.ModelRequest{
		Stage:          stageGenerate,
		PrimaryModel:   p.cfg.Stages.GenerateArticle.Primary,
		FallbackModel:  p.cfg.Stages.GenerateArticle.Fallback,
		Messages:       generateMessages(topic, string(materialJSON)),
		ResponseFormat: domain.FormatJSON,
	}
	res, err := p.invoker.Invoke(ctx, req)
	if err != nil {
		return domain.ArticleDocument{}, err
	}
	if !res.Succeeded {
		return domain.ArticleDocument{}, &domain.StageFailure{Stage: stageGenerate, Reason: res.Err}
	}

	parsed := llmparse.Parse(res.RawText, articleFields)
	if !parsed.Success {
		return domain.ArticleDocument{}, &domain.StageFailure{Stage: stageGenerate, Reason: "response is not a parseable article document"}
	}
	if parsed.Partial() {
		log.Warn("article document incomplete", "missing", parsed.Missing, "parse_strategy", parsed.Strategy)
	}

	article, err := documentFromMap(parsed.Value)
	if err != nil {
		return domain.ArticleDocument{}, &domain.StageFailure{Stage: stageGenerate, Reason: err.Error()}
	}
	p.saveArtifact("08_article", "article.json", article, log)
	log.Info("article generated", "title", article.Title, "model", res.ModelUsed)
	return article, nil
}

// editorialReview improves the draft. A reviewed response that cannot be
// parsed into a full document degrades to the generated draft, but an
// exhausted invoke aborts the run like the generation stage does.
func (p *Pipeline) editorialReview(ctx context.Context, article domain.ArticleDocument, log *slog.Logger) (domain.ArticleDocument, error) {
	draft, err := json.MarshalIndent(article, "", "  ")
	if err != nil {
		return domain.ArticleDocument{}, fmt.Errorf("serialize draft: %w", err)
	}

	req := domain.ModelRequest{
		Stage:          stageEditorial,
		PrimaryModel:   p.cfg.Stages.EditorialReview.Primary,
		FallbackModel:  p.cfg.Stages.EditorialReview.Fallback,
		Messages:       editorialMessages(string(draft)),
		ResponseFormat: domain.FormatJSON,
	}
	res, err := p.invoker.Invoke(ctx, req)
	if err != nil {
		return domain.ArticleDocument{}, err
	}
	if !res.Succeeded {
		return domain.ArticleDocument{}, &domain.StageFailure{Stage: stageEditorial, Reason: res.Err}
	}

	parsed := llmparse.Parse(res.RawText, articleFields)
	if !parsed.Success || parsed.Partial() {
		log.Warn("editorial response incomplete, keeping draft", "parse_strategy", parsed.Strategy)
		return article, nil
	}
	reviewed, err := documentFromMap(parsed.Value)
	if err != nil {
		log.Warn("editorial document unusable, keeping draft", "error", err)
		return article, nil
	}
	log.Info("editorial review applied", "model", res.ModelUsed)
	return reviewed, nil
}

func (p *Pipeline) publishArticle(ctx context.Context, article domain.ArticleDocument, log *slog.Logger) domain.PublishResult {
	if err := p.publisher.TestConnection(ctx); err != nil {
		log.Warn("cms connection check failed, skipping publication", "error", err)
		return domain.PublishResult{Err: err.Error()}
	}

	result, err := p.publisher.Publish(ctx, article)
	if err != nil {
		result = domain.PublishResult{Err: err.Error()}
	}
	if result.Success {
		log.Info("article published", "post_id", result.PostID, "url", result.EditURL)
	} else {
		log.Warn("publication failed", "error", result.Err)
	}
	p.saveArtifact("10_publish", "publish_result.json", result, log)
	return result
}

// saveArtifact writes a JSON audit file; failures are logged, never fatal.
func (p *Pipeline) saveArtifact(dir, name string, v any, log *slog.Logger) {
	if err := p.artifacts.SaveJSON(dir, name, v); err != nil {
		log.Warn("cannot save artifact", "name", name, "error", err)
	}
}

func documentFromMap(value map[string]any) (domain.ArticleDocument, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return domain.ArticleDocument{}, fmt.Errorf("reserialize document: %w", err)
	}
	var doc domain.ArticleDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.ArticleDocument{}, fmt.Errorf("decode document: %w", err)
	}
	if doc.Title == "" || doc.Content == "" {
		return domain.ArticleDocument{}, fmt.Errorf("document lacks title or content")
	}
	return doc, nil
}

func sourceURLs(records []domain.SourceRecord) []string {
	urls := make([]string, len(records))
	for i, rec := range records {
		urls[i] = rec.URL
	}
	return urls
}
