package artifacts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeTopic(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want string
	}{
		{"prompt engineering", "prompt_engineering"},
		{`ai/ml: "best" tools?`, "ai_ml___best__tools_"},
		{"  spaced   out  ", "spaced_out"},
		{"", "untitled"},
	}
	for _, tc := range cases {
		if got := SanitizeTopic(tc.in); got != tc.want {
			t.Fatalf("SanitizeTopic(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSaveJSONAndText(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(root, "my topic")

	if err := store.SaveJSON("01_search", "results.json", map[string]int{"hits": 3}); err != nil {
		t.Fatalf("save json: %v", err)
	}
	if err := store.SaveText("06_cleaned", "01_example.md", "cleaned body"); err != nil {
		t.Fatalf("save text: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(root, "my_topic", "01_search", "results.json"))
	if err != nil {
		t.Fatalf("read json artifact: %v", err)
	}
	var decoded map[string]int
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	if decoded["hits"] != 3 {
		t.Fatalf("unexpected content: %v", decoded)
	}

	text, err := os.ReadFile(filepath.Join(root, "my_topic", "06_cleaned", "01_example.md"))
	if err != nil {
		t.Fatalf("read text artifact: %v", err)
	}
	if string(text) != "cleaned body" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestSaveIntoRunRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(root, "topic")

	if err := store.SaveJSON(".", "token_usage_report.json", map[string]int{"total": 1}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "topic", "token_usage_report.json")); err != nil {
		t.Fatalf("report not at run root: %v", err)
	}
}
