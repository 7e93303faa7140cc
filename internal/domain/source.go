package domain

import "net/url"

// SourceRecord is one scraped candidate document under consideration for
// content extraction. Scores are filled in by the scoring stage; Rank is
// assigned only after the whole candidate set has been scored.
type SourceRecord struct {
	URL            string  `json:"url"`
	Title          string  `json:"title"`
	Domain         string  `json:"domain"`
	RawContent     string  `json:"-"`
	CleanedContent string  `json:"-"`
	OriginalLength int     `json:"original_length,omitempty"`
	CleanedLength  int     `json:"cleaned_length,omitempty"`
	ReductionPct   float64 `json:"reduction_percent,omitempty"`

	TrustScore     float64 `json:"trust_score"`
	RelevanceScore float64 `json:"relevance_score"`
	DepthScore     float64 `json:"depth_score"`
	FinalScore     float64 `json:"final_score"`
	Rank           int     `json:"rank,omitempty"`
}

// ScoringWeights combines the three per-source signals into a final score.
// The weights are expected (not enforced) to sum to 1.0.
type ScoringWeights struct {
	Trust     float64 `yaml:"trust" json:"trust"`
	Relevance float64 `yaml:"relevance" json:"relevance"`
	Depth     float64 `yaml:"depth" json:"depth"`
}

// SearchResult is one hit returned by the search collaborator.
type SearchResult struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ScrapedPage is the raw scrape output for a single URL.
type ScrapedPage struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

// DomainOf extracts a host from a raw URL; empty when the URL is unparseable.
func DomainOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
