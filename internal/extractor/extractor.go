package extractor

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

type Strategy string

const (
	StrategyDirect   Strategy = "direct"
	StrategyFenced   Strategy = "fenced"
	StrategyBalanced Strategy = "balanced"
	StrategyFallback Strategy = "fallback"
)

// Extraction is the recovered object and the strategy that produced it.
// Source is the JSON text Value was decoded from; it is empty for the fallback.
type Extraction struct {
	Value    map[string]any
	Strategy Strategy
	Source   string
}

// Recovered reports whether structured JSON was found, as opposed to the text wrapper.
func (e Extraction) Recovered() bool {
	return e.Strategy != StrategyFallback
}

// ResponseExtractor turns raw model output into a JSON object. It never fails:
// when nothing can be recovered the raw text is wrapped as {text_answer, charts: []}.
type ResponseExtractor interface {
	Extract(raw string) Extraction
}

type responseExtractor struct{}

func NewResponseExtractor() ResponseExtractor {
	return &responseExtractor{}
}

var fencePattern = regexp.MustCompile("(?s)```[ \\t]*[A-Za-z0-9_+-]*[ \\t]*\\r?\\n?(.*?)```")

func (e *responseExtractor) Extract(raw string) Extraction {
	trimmed := strings.TrimSpace(raw)

	if obj, ok := parseObject(trimmed); ok {
		return Extraction{Value: obj, Strategy: StrategyDirect, Source: trimmed}
	}

	if m := fencePattern.FindStringSubmatch(raw); m != nil {
		fenced := strings.TrimSpace(m[1])
		if obj, ok := parseObject(fenced); ok {
			return Extraction{Value: obj, Strategy: StrategyFenced, Source: fenced}
		}
	}

	if candidate, ok := balancedCandidate(raw); ok {
		if obj, ok := parseObject(candidate); ok {
			return Extraction{Value: obj, Strategy: StrategyBalanced, Source: candidate}
		}
		normalized := normalizeCandidate(candidate)
		if obj, ok := parseObject(normalized); ok {
			return Extraction{Value: obj, Strategy: StrategyBalanced, Source: normalized}
		}
	}

	log.Warn().Int("raw_len", len(raw)).Msg("Could not recover JSON from model output, wrapping raw text")
	return Extraction{
		Value: map[string]any{
			"text_answer": raw,
			"charts":      []any{},
		},
		Strategy: StrategyFallback,
	}
}

func parseObject(s string) (map[string]any, bool) {
	if s == "" || s[0] != '{' {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// balancedCandidate returns the substring from the first '{' to the '}' that brings
// the depth back to zero. Braces inside string literals do not count.
func balancedCandidate(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
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
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// normalizeCandidate escapes raw control characters that appear inside string
// literals and drops trailing commas before a closing bracket. String contents are
// never touched otherwise.
func normalizeCandidate(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			case c == '\n':
				b.WriteString(`\n`)
				continue
			case c == '\r':
				b.WriteString(`\r`)
				continue
			case c == '\t':
				b.WriteString(`\t`)
				continue
			}
		} else if c == '"' {
			inString = true
		} else if c == ',' && closesNext(s[i+1:]) {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// closesNext reports whether the next non-space byte is a closing bracket.
func closesNext(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	return rest != "" && (rest[0] == '}' || rest[0] == ']')
}
