// Package llmparse recovers structured data from raw model output. Models
// wrap JSON in prose and code fences, and occasionally emit strings with
// unescaped control characters; the parser works through a fixed chain of
// strategies and always reports which one produced the final value.
package llmparse

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Strategy tags which stage of the chain produced the result.
type Strategy string

const (
	StrategyStrict   Strategy = "strict"
	StrategyFence    Strategy = "code_fence"
	StrategyBoundary Strategy = "boundary"
	StrategyFields   Strategy = "field_recovery"
	StrategyNone     Strategy = "none"
)

// Result is the outcome of an object parse. Success is false only when every
// strategy failed and field recovery extracted nothing; partial recovery is a
// soft success with the missing fields listed.
type Result struct {
	Value    map[string]any
	Strategy Strategy
	Missing  []string
	Success  bool
}

// Partial reports whether the value is usable but incomplete.
func (r Result) Partial() bool {
	return r.Success && len(r.Missing) > 0
}

var fenceExpr = regexp.MustCompile("(?s)^\\s*```(?:json|JSON)?\\s*\\n?(.*?)\\n?\\s*```\\s*$")

// Parse attempts to read raw as a JSON object containing the expected fields.
// Strategies are tried in order; the first that yields an object wins.
func Parse(raw string, expected []string) Result {
	raw = strings.TrimSpace(raw)

	if value, ok := tryObject(raw); ok {
		return finish(value, StrategyStrict, expected)
	}

	if inner := stripFence(raw); inner != "" {
		if value, ok := tryObject(inner); ok {
			return finish(value, StrategyFence, expected)
		}
	}

	if sub := braceSubstring(raw); sub != "" {
		if value, ok := tryObject(sub); ok {
			return finish(value, StrategyBoundary, expected)
		}
	}

	value := recoverFields(raw, expected)
	if len(value) == 0 {
		return Result{Strategy: StrategyNone, Missing: append([]string(nil), expected...)}
	}
	return finish(value, StrategyFields, expected)
}

// ParseList reads raw as a JSON array of objects, tolerating a single object
// (wrapped into a one-element list), a {"data": [...]} envelope, code fences,
// and as a last resort a scan for embedded {...} blocks.
func ParseList(raw string) ([]map[string]any, Strategy, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, StrategyNone, false
	}

	if list, ok := tryList(raw); ok {
		return list, StrategyStrict, true
	}

	if inner := stripFence(raw); inner != "" {
		if list, ok := tryList(inner); ok {
			return list, StrategyFence, true
		}
	}

	list := scanObjects(raw)
	if len(list) == 0 {
		return nil, StrategyNone, false
	}
	return list, StrategyBoundary, true
}

func tryObject(text string) (map[string]any, bool) {
	if !strings.HasPrefix(text, "{") {
		return nil, false
	}
	var value map[string]any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return nil, false
	}
	return value, true
}

func tryList(text string) ([]map[string]any, bool) {
	var anyValue any
	if err := json.Unmarshal([]byte(text), &anyValue); err != nil {
		return nil, false
	}

	switch v := anyValue.(type) {
	case []any:
		return objectsOf(v), true
	case map[string]any:
		// A {"data": [...]} envelope unwraps; a bare object becomes a
		// one-element list.
		if data, ok := v["data"].([]any); ok {
			return objectsOf(data), true
		}
		return []map[string]any{v}, true
	default:
		return nil, false
	}
}

func objectsOf(items []any) []map[string]any {
	list := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			list = append(list, obj)
		}
	}
	return list
}

func stripFence(text string) string {
	m := fenceExpr.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// braceSubstring returns the substring from the first '{' to its matching
// closing brace, skipping braces inside string literals.
func braceSubstring(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// scanObjects collects every parseable top-level {...} block in the text.
func scanObjects(text string) []map[string]any {
	var list []map[string]any
	rest := text
	for {
		sub := braceSubstring(rest)
		if sub == "" {
			break
		}
		if obj, ok := tryObject(sub); ok {
			list = append(list, obj)
		}
		idx := strings.Index(rest, sub)
		rest = rest[idx+len(sub):]
	}
	return list
}

// recoverFields extracts each expected field independently with a label
// pattern. String values may contain unescaped newlines and other control
// characters that break strict JSON; the lazy match runs until a quote that
// is followed by a comma, closing brace, or end of line.
func recoverFields(raw string, expected []string) map[string]any {
	value := map[string]any{}
	for _, field := range expected {
		if v, ok := recoverStringField(raw, field); ok {
			value[field] = v
			continue
		}
		if v, ok := recoverBareField(raw, field); ok {
			value[field] = v
		}
	}
	return value
}

func recoverStringField(raw, field string) (string, bool) {
	expr := regexp.MustCompile(`(?s)"` + regexp.QuoteMeta(field) + `"\s*:\s*"(.*?)"\s*(?:,\s*"|,?\s*\}|,?\s*$|,\s*\n)`)
	m := expr.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func recoverBareField(raw, field string) (string, bool) {
	expr := regexp.MustCompile(`"` + regexp.QuoteMeta(field) + `"\s*:\s*([^,}\n"]+)`)
	m := expr.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	v := strings.TrimSpace(m[1])
	if v == "" {
		return "", false
	}
	return v, true
}

func finish(value map[string]any, strategy Strategy, expected []string) Result {
	var missing []string
	for _, field := range expected {
		if _, ok := value[field]; !ok {
			missing = append(missing, field)
		}
	}
	return Result{Value: value, Strategy: strategy, Missing: missing, Success: true}
}
