// Package search normalizes free-text search input and composes candidate search queries.
package search

import (
	"strings"
	"unicode"
)

const (
	// MaxSkillLength is the longest skill name accepted, in characters.
	MaxSkillLength = 100
	// MaxSkillsCount caps how many skills are read from a single input.
	MaxSkillsCount = 100
	// DefaultMaxTokenLength is the token length used when ParseSearchQuery gets maxLen <= 0.
	DefaultMaxTokenLength = 50
)

// isControl reports ASCII control characters (0x00-0x1F, 0x7F).
func isControl(r rune) bool {
	return r < 0x20 || r == 0x7F
}

// isZeroWidth reports zero-width characters that render as nothing but break matching.
func isZeroWidth(r rune) bool {
	switch r {
	case '\u200B', '\u200C', '\u200D', '\u2060', '\uFEFF':
		return true
	}
	return false
}

// RemoveControlChars strips control characters only. Use it for values that stay internal
// (matching, comparison); anything headed for a query string or HTML needs SanitizeString.
func RemoveControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if isControl(r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeString strips control characters plus SQL/XSS metacharacters
// (< > ' " ` ; \ and --) and trims the result.
func SanitizeString(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if isControl(r) {
			return -1
		}
		switch r {
		case '<', '>', '\'', '"', '`', ';', '\\':
			return -1
		}
		return r
	}, s)

	for strings.Contains(cleaned, "--") {
		cleaned = strings.ReplaceAll(cleaned, "--", "")
	}

	return strings.TrimSpace(cleaned)
}

// SanitizeSkill returns the trimmed skill with control and zero-width characters removed.
// The second result is false for non-strings, empty results, and skills over MaxSkillLength.
func SanitizeSkill(input any) (string, bool) {
	s, ok := input.(string)
	if !ok {
		return "", false
	}

	cleaned := strings.Map(func(r rune) rune {
		if isControl(r) || isZeroWidth(r) {
			return -1
		}
		return r
	}, s)
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return "", false
	}
	if len([]rune(cleaned)) > MaxSkillLength {
		return "", false
	}
	return cleaned, true
}

// SanitizeSkillsArray sanitizes at most the first MaxSkillsCount elements of input and drops
// anything SanitizeSkill rejects. Non-slice input yields an empty slice; it never errors.
func SanitizeSkillsArray(input any) []string {
	var items []any
	switch v := input.(type) {
	case []any:
		items = v
	case []string:
		items = make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
	default:
		return []string{}
	}

	if len(items) > MaxSkillsCount {
		items = items[:MaxSkillsCount]
	}

	skills := make([]string, 0, len(items))
	for _, item := range items {
		if skill, ok := SanitizeSkill(item); ok {
			skills = append(skills, skill)
		}
	}
	return skills
}

// ParseSearchQuery tokenizes a free-text query. Tokens are split on whitespace and commas,
// then at Hangul/Latin letter boundaries ("React개발자" -> "React", "개발자"). Digit/Hangul
// boundaries are kept together so unit suffixes like "5년차" survive. Tokens longer than
// maxLen characters are truncated; maxLen <= 0 means DefaultMaxTokenLength.
func ParseSearchQuery(query string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxTokenLength
	}

	fields := strings.FieldsFunc(query, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})

	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		for _, part := range splitScriptBoundary(RemoveControlChars(field)) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			tokens = append(tokens, truncateRunes(part, maxLen))
		}
	}
	return tokens
}

// splitScriptBoundary splits s wherever a Hangul character meets an ASCII letter.
func splitScriptBoundary(s string) []string {
	runes := []rune(s)
	if len(runes) < 2 {
		return []string{s}
	}

	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		if (isHangul(prev) && isASCIILetter(cur)) || (isASCIILetter(prev) && isHangul(cur)) {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	return append(parts, string(runes[start:]))
}

func isHangul(r rune) bool {
	return (r >= '가' && r <= '힣') || (r >= 'ㄱ' && r <= 'ㅣ')
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func truncateRunes(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
