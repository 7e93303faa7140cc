// Package artifacts persists per-run audit files under the output tree.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Jenny-Gump/content-generator/internal/ports"
)

var unsafeChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// SanitizeTopic turns a free-form topic into a filesystem-safe directory name.
func SanitizeTopic(topic string) string {
	s := unsafeChars.ReplaceAllString(topic, "_")
	s = strings.Join(strings.Fields(s), "_")
	if s == "" {
		s = "untitled"
	}
	return s
}

// Store writes JSON and text artifacts below a fixed root directory.
type Store struct {
	root string
}

var _ ports.ArtifactStore = (*Store)(nil)

// NewStore roots all writes at outputDir/<sanitized topic>.
func NewStore(outputDir, topic string) *Store {
	return &Store{root: filepath.Join(outputDir, SanitizeTopic(topic))}
}

// Root returns the run directory.
func (s *Store) Root() string {
	return s.root
}

// SaveJSON marshals v with indentation and writes it to dir/name.
func (s *Store) SaveJSON(dir, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return s.write(dir, name, append(data, '\n'))
}

// SaveText writes raw text to dir/name.
func (s *Store) SaveText(dir, name, text string) error {
	return s.write(dir, name, []byte(text))
}

func (s *Store) write(dir, name string, data []byte) error {
	target := filepath.Join(s.root, dir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", target, err)
	}
	path := filepath.Join(target, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
