package domain

import "time"

// ArticleDocument is the structured article handed to the CMS collaborator.
// Field names mirror the WordPress payload the generation stage is asked to
// produce, including the Yoast SEO meta keys.
type ArticleDocument struct {
	Title          string   `json:"title"`
	Content        string   `json:"content"`
	Excerpt        string   `json:"excerpt"`
	Slug           string   `json:"slug"`
	Categories     []string `json:"categories"`
	SEOTitle       string   `json:"_yoast_wpseo_title"`
	SEODescription string   `json:"_yoast_wpseo_metadesc"`
	FocusKeyword   string   `json:"focus_keyword"`
	ImageCaption   string   `json:"image_caption,omitempty"`
}

// PublishResult reports the outcome of a CMS publication attempt.
type PublishResult struct {
	Success bool   `json:"success"`
	PostID  int    `json:"wordpress_id,omitempty"`
	EditURL string `json:"url,omitempty"`
	Err     string `json:"error,omitempty"`
}

// RunRecord is the persisted snapshot of one completed pipeline run, used for
// topic deduplication in batch mode and run history.
type RunRecord struct {
	ID           string
	Topic        string
	ArticleTitle string
	PostID       int
	SourceURLs   []string
	TotalTokens  int
	CreatedAt    time.Time
}
