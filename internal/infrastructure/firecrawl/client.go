// Package firecrawl wraps the search/scrape collaborator. The pipeline core
// only ever sees the resulting records; everything about the wire protocol
// stays behind this client.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Jenny-Gump/content-generator/internal/config"
	"github.com/Jenny-Gump/content-generator/internal/domain"
	"github.com/Jenny-Gump/content-generator/internal/ports"
)

// Client talks to the Firecrawl v2 API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

var _ ports.SearchScraper = (*Client)(nil)

// NewClient validates the credential up front; a missing key is a
// configuration error, not something to discover mid-run.
func NewClient(cfg config.FirecrawlConfig, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, domain.NewConfigurationError("FIRECRAWL_API_KEY is not set")
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{},
		logger:  logger,
	}, nil
}

type searchResponse struct {
	Data struct {
		Web []struct {
			URL         string `json:"url"`
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"web"`
	} `json:"data"`
}

// Search performs a broad web search for the topic.
func (c *Client) Search(ctx context.Context, topic string, limit int) ([]domain.SearchResult, error) {
	payload := map[string]any{
		"query": topic,
		"limit": limit,
	}

	var parsed searchResponse
	if err := c.post(ctx, "/search", payload, &parsed); err != nil {
		return nil, fmt.Errorf("firecrawl search: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(parsed.Data.Web))
	for _, hit := range parsed.Data.Web {
		if hit.URL == "" {
			continue
		}
		results = append(results, domain.SearchResult{
			URL:         hit.URL,
			Title:       hit.Title,
			Description: hit.Description,
		})
	}

	if c.logger != nil {
		c.logger.Info("search finished", "topic", topic, "results", len(results))
	}
	return results, nil
}

type scrapeResponse struct {
	Data struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			Title     string `json:"title"`
			SourceURL string `json:"sourceURL"`
		} `json:"metadata"`
	} `json:"data"`
}

// Scrape pulls main content for a single URL as markdown.
func (c *Client) Scrape(ctx context.Context, pageURL string) (domain.ScrapedPage, error) {
	payload := map[string]any{
		"url":             pageURL,
		"onlyMainContent": true,
		"excludeTags": []string{
			"nav", "header", "footer", "aside", "form", "script", "style",
			"iframe", "video", "audio", "canvas", "svg", "noscript",
			"button", "input", "select", "textarea",
		},
		"removeBase64Images": true,
		"blockAds":           true,
	}

	var parsed scrapeResponse
	if err := c.post(ctx, "/scrape", payload, &parsed); err != nil {
		return domain.ScrapedPage{}, fmt.Errorf("firecrawl scrape %s: %w", pageURL, err)
	}

	page := domain.ScrapedPage{
		URL:      parsed.Data.Metadata.SourceURL,
		Title:    parsed.Data.Metadata.Title,
		Markdown: parsed.Data.Markdown,
	}
	if page.URL == "" {
		page.URL = pageURL
	}
	return page, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &domain.HTTPStatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
