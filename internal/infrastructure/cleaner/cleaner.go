// Package cleaner strips scraped markdown down to the prose the extraction
// stage actually needs. Navigation chrome, social widgets and markdown
// plumbing only burn tokens downstream.
package cleaner

import (
	"regexp"
	"strings"

	"github.com/Jenny-Gump/content-generator/internal/domain"
)

var (
	imageRe      = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	linkRe       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	bareURLRe    = regexp.MustCompile(`https?://\S+`)
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
	uiPhraseRe   = regexp.MustCompile(`(?i)^(skip to (main )?content|accept( all)? cookies?|cookie (policy|settings)|subscribe( now)?|sign (in|up)|log ?in|share (this|on)|follow us|read more|back to top|table of contents|advertisement|sponsored|newsletter|menu|search)\b.*$`)
	socialLineRe = regexp.MustCompile(`(?i)^\s*(facebook|twitter|linkedin|instagram|youtube|telegram|whatsapp|reddit|pinterest)\s*$`)
)

const minLineLength = 10

// Clean normalizes raw markdown and records reduction metrics on the source.
func Clean(rec *domain.SourceRecord) {
	rec.OriginalLength = len(rec.RawContent)
	rec.CleanedContent = cleanText(rec.RawContent)
	rec.CleanedLength = len(rec.CleanedContent)
	if rec.OriginalLength > 0 {
		rec.ReductionPct = float64(rec.OriginalLength-rec.CleanedLength) / float64(rec.OriginalLength) * 100
	}
}

func cleanText(raw string) string {
	text := imageRe.ReplaceAllString(raw, "")
	text = linkRe.ReplaceAllString(text, "$1")
	text = bareURLRe.ReplaceAllString(text, "")
	text = htmlTagRe.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			kept = append(kept, "")
			continue
		}
		if uiPhraseRe.MatchString(trimmed) || socialLineRe.MatchString(trimmed) {
			continue
		}
		// Headings survive length filtering, body fragments do not.
		if len(trimmed) < minLineLength && !strings.HasPrefix(trimmed, "#") {
			continue
		}
		if !strings.HasPrefix(trimmed, "#") {
			if _, dup := seen[trimmed]; dup {
				continue
			}
			seen[trimmed] = struct{}{}
		}
		kept = append(kept, trimmed)
	}

	out := strings.Join(kept, "\n")
	out = blankRunRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
