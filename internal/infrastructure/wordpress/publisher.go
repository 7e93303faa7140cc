// Package wordpress publishes finished articles through the WordPress REST API.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Jenny-Gump/content-generator/internal/config"
	"github.com/Jenny-Gump/content-generator/internal/domain"
	"github.com/Jenny-Gump/content-generator/internal/ports"
)

// Publisher posts articles as drafts (or the configured status) with Yoast
// SEO meta attached. Authentication uses an application password.
type Publisher struct {
	apiURL   string
	username string
	password string
	category string
	status   string
	http     *http.Client
	logger   *slog.Logger
}

var _ ports.Publisher = (*Publisher)(nil)

// NewPublisher returns nil when the CMS is not configured; the pipeline treats
// a nil publisher as "skip publication".
func NewPublisher(cfg config.WordPressConfig, logger *slog.Logger) *Publisher {
	if cfg.APIURL == "" || cfg.Username == "" || cfg.AppPassword == "" {
		return nil
	}
	return &Publisher{
		apiURL:   strings.TrimSuffix(cfg.APIURL, "/"),
		username: cfg.Username,
		password: cfg.AppPassword,
		category: cfg.Category,
		status:   cfg.Status,
		http:     &http.Client{},
		logger:   logger,
	}
}

// TestConnection verifies the credential before the pipeline spends tokens.
func (p *Publisher) TestConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"/users/me", nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(p.username, p.password)

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("wordpress connection: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &domain.HTTPStatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return nil
}

// Publish creates the post. Failures are reported in the result rather than
// aborting the run; the article itself is already saved on disk.
func (p *Publisher) Publish(ctx context.Context, doc domain.ArticleDocument) (domain.PublishResult, error) {
	categoryID, err := p.resolveCategory(ctx)
	if err != nil {
		return domain.PublishResult{Err: err.Error()}, nil
	}

	excerpt := doc.Excerpt
	if excerpt == "" {
		excerpt = deriveExcerpt(doc.Content)
	}

	payload := map[string]any{
		"title":   doc.Title,
		"content": doc.Content,
		"excerpt": excerpt,
		"slug":    doc.Slug,
		"status":  p.status,
		"meta": map[string]string{
			"_yoast_wpseo_title":    doc.SEOTitle,
			"_yoast_wpseo_metadesc": doc.SEODescription,
			"_yoast_wpseo_focuskw":  doc.FocusKeyword,
		},
	}
	if categoryID > 0 {
		payload["categories"] = []int{categoryID}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.PublishResult{Err: err.Error()}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/posts", bytes.NewReader(body))
	if err != nil {
		return domain.PublishResult{Err: err.Error()}, nil
	}
	req.SetBasicAuth(p.username, p.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return domain.PublishResult{Err: err.Error()}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.PublishResult{
			Err: fmt.Sprintf("wordpress returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
		}, nil
	}

	var created struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return domain.PublishResult{Err: fmt.Sprintf("decode response: %v", err)}, nil
	}

	editURL := p.editURL(created.ID)
	if p.logger != nil {
		p.logger.Info("article published", "post_id", created.ID, "status", p.status)
	}
	return domain.PublishResult{Success: true, PostID: created.ID, EditURL: editURL}, nil
}

// resolveCategory looks up the configured category slug; 0 means "no category".
func (p *Publisher) resolveCategory(ctx context.Context) (int, error) {
	if p.category == "" {
		return 0, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.apiURL+"/categories?search="+url.QueryEscape(p.category), nil)
	if err != nil {
		return 0, fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(p.username, p.password)

	resp, err := p.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("resolve category: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("resolve category: status %d", resp.StatusCode)
	}

	var cats []struct {
		ID   int    `json:"id"`
		Slug string `json:"slug"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cats); err != nil {
		return 0, fmt.Errorf("decode categories: %w", err)
	}
	for _, c := range cats {
		if strings.EqualFold(c.Slug, p.category) || strings.EqualFold(c.Name, p.category) {
			return c.ID, nil
		}
	}
	return 0, nil
}

// editURL derives the admin edit link from the REST endpoint, assuming the
// standard /wp-json/wp/v2 layout.
func (p *Publisher) editURL(postID int) string {
	base := p.apiURL
	if i := strings.Index(base, "/wp-json/"); i >= 0 {
		base = base[:i]
	}
	return base + "/wp-admin/post.php?post=" + strconv.Itoa(postID) + "&action=edit"
}

// deriveExcerpt takes the first paragraph of the rendered content.
func deriveExcerpt(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}
	text := strings.TrimSpace(doc.Find("p").First().Text())
	if text == "" {
		text = strings.TrimSpace(doc.Text())
	}
	const maxExcerpt = 300
	if len(text) > maxExcerpt {
		cut := text[:maxExcerpt]
		if i := strings.LastIndex(cut, " "); i > 0 {
			cut = cut[:i]
		}
		text = cut + "…"
	}
	return text
}
