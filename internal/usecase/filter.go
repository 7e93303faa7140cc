package usecase

import (
	"strings"

	"github.com/Jenny-Gump/content-generator/internal/config"
	"github.com/Jenny-Gump/content-generator/internal/domain"
)

// filterResults drops search hits from blocked domains or whose URL contains
// a blocked pattern. Subdomains of a blocked domain are blocked too.
func filterResults(results []domain.SearchResult, cfg config.FilterConfig) []domain.SearchResult {
	kept := make([]domain.SearchResult, 0, len(results))
	for _, res := range results {
		if blockedURL(res.URL, cfg) {
			continue
		}
		kept = append(kept, res)
	}
	return kept
}

func blockedURL(rawURL string, cfg config.FilterConfig) bool {
	host := strings.ToLower(domain.DomainOf(rawURL))
	for _, blocked := range cfg.BlockedDomains {
		blocked = strings.ToLower(blocked)
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return true
		}
	}
	lower := strings.ToLower(rawURL)
	for _, pattern := range cfg.BlockedPatterns {
		if pattern != "" && strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}
