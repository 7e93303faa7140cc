package cleaner

import (
	"strings"
	"testing"

	"github.com/Jenny-Gump/content-generator/internal/domain"
)

func TestCleanStripsMarkdownPlumbing(t *testing.T) {
	t.Parallel()

	rec := &domain.SourceRecord{RawContent: strings.Join([]string{
		"# Prompt Engineering Basics",
		"",
		"![hero image](https://cdn.example/img.png)",
		"Read the [official documentation](https://docs.example) before starting.",
		"Visit https://spam.example/tracking?id=1 for details.",
		"<div class=\"widget\">Some embedded html content here</div>",
	}, "\n")}

	Clean(rec)

	if strings.Contains(rec.CleanedContent, "![") || strings.Contains(rec.CleanedContent, "](") {
		t.Fatalf("markdown links survived: %q", rec.CleanedContent)
	}
	if strings.Contains(rec.CleanedContent, "http") {
		t.Fatalf("bare URL survived: %q", rec.CleanedContent)
	}
	if strings.Contains(rec.CleanedContent, "<div") {
		t.Fatalf("html tag survived: %q", rec.CleanedContent)
	}
	if !strings.Contains(rec.CleanedContent, "official documentation") {
		t.Fatalf("link text was lost: %q", rec.CleanedContent)
	}
	if !strings.Contains(rec.CleanedContent, "# Prompt Engineering Basics") {
		t.Fatalf("heading was lost: %q", rec.CleanedContent)
	}
}

func TestCleanDropsUIChrome(t *testing.T) {
	t.Parallel()

	rec := &domain.SourceRecord{RawContent: strings.Join([]string{
		"Skip to main content",
		"Accept all cookies to continue browsing",
		"Subscribe now for weekly updates",
		"Twitter",
		"This is the actual article paragraph worth keeping.",
	}, "\n")}

	Clean(rec)

	if rec.CleanedContent != "This is the actual article paragraph worth keeping." {
		t.Fatalf("unexpected cleaned content: %q", rec.CleanedContent)
	}
}

func TestCleanDeduplicatesLines(t *testing.T) {
	t.Parallel()

	rec := &domain.SourceRecord{RawContent: strings.Join([]string{
		"A repeated promotional line here.",
		"Unique first paragraph with content.",
		"A repeated promotional line here.",
	}, "\n")}

	Clean(rec)

	if got := strings.Count(rec.CleanedContent, "repeated promotional"); got != 1 {
		t.Fatalf("expected 1 occurrence, got %d", got)
	}
}

func TestCleanDropsShortFragments(t *testing.T) {
	t.Parallel()

	rec := &domain.SourceRecord{RawContent: "ok\nMenu item\nA proper sentence long enough to keep.\n## Short"}

	Clean(rec)

	for _, line := range strings.Split(rec.CleanedContent, "\n") {
		if line == "ok" || line == "Menu item" {
			t.Fatalf("short fragment kept: %q", rec.CleanedContent)
		}
	}
	if !strings.Contains(rec.CleanedContent, "A proper sentence long enough to keep.") {
		t.Fatalf("body sentence dropped: %q", rec.CleanedContent)
	}
	if !strings.Contains(rec.CleanedContent, "## Short") {
		t.Fatalf("short heading dropped: %q", rec.CleanedContent)
	}
}

func TestCleanRecordsReductionMetrics(t *testing.T) {
	t.Parallel()

	raw := "![x](https://img.example/a.png)\nThis sentence stays in the cleaned output.\n"
	rec := &domain.SourceRecord{RawContent: raw}

	Clean(rec)

	if rec.OriginalLength != len(raw) {
		t.Fatalf("expected original length %d, got %d", len(raw), rec.OriginalLength)
	}
	if rec.CleanedLength != len(rec.CleanedContent) {
		t.Fatalf("cleaned length mismatch")
	}
	if rec.ReductionPct <= 0 || rec.ReductionPct >= 100 {
		t.Fatalf("implausible reduction: %v", rec.ReductionPct)
	}
}

func TestCleanEmptyInput(t *testing.T) {
	t.Parallel()

	rec := &domain.SourceRecord{}
	Clean(rec)
	if rec.CleanedContent != "" || rec.ReductionPct != 0 {
		t.Fatalf("unexpected output for empty input: %+v", rec)
	}
}
