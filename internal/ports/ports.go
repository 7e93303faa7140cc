package ports

import (
	"context"

	"github.com/Jenny-Gump/content-generator/internal/domain"
)

// SearchScraper finds candidate pages for a topic and pulls their content.
type SearchScraper interface {
	Search(ctx context.Context, topic string, limit int) ([]domain.SearchResult, error)
	Scrape(ctx context.Context, pageURL string) (domain.ScrapedPage, error)
}

// ChatProvider executes a single chat completion against one backend.
// The model is passed explicitly because fallback may substitute it.
type ChatProvider interface {
	Name() string
	Complete(ctx context.Context, model string, req domain.ModelRequest) (domain.ChatResponse, error)
}

// ModelInvoker runs one logical LLM call with retries and model fallback.
type ModelInvoker interface {
	Invoke(ctx context.Context, req domain.ModelRequest) (domain.ModelResult, error)
}

// ArtifactStore persists pipeline artifacts and the LLM audit trail.
type ArtifactStore interface {
	SaveJSON(dir, name string, v any) error
	SaveText(dir, name, text string) error
}

// Publisher hands a finished article to the CMS.
type Publisher interface {
	TestConnection(ctx context.Context) error
	Publish(ctx context.Context, doc domain.ArticleDocument) (domain.PublishResult, error)
}

// RunRepository persists completed runs for deduplication and history.
type RunRepository interface {
	AlreadyProcessed(ctx context.Context, topic string) (bool, error)
	SaveRun(ctx context.Context, rec domain.RunRecord) error
}
