package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		maxLen   int
		expected []string
	}{
		{"latin then hangul", "React개발자", 0, []string{"React", "개발자"}},
		{"hangul then latin", "백엔드Go", 0, []string{"백엔드", "Go"}},
		{"digit hangul kept", "5년차", 0, []string{"5년차"}},
		{"whitespace and commas", "Java, Spring  Kafka", 0, []string{"Java", "Spring", "Kafka"}},
		{"mixed", "시니어 React개발자,5년차", 0, []string{"시니어", "React", "개발자", "5년차"}},
		{"multiple boundaries", "AWS경력Docker", 0, []string{"AWS", "경력", "Docker"}},
		{"control chars stripped", "Py\x00thon", 0, []string{"Python"}},
		{"empty", "   ,, ", 0, []string{}},
		{"truncates long token", "abcdefghij", 4, []string{"abcd"}},
		{"truncates by characters", "가나다라마", 3, []string{"가나다"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseSearchQuery(tt.query, tt.maxLen))
		})
	}
}

func TestParseSearchQuery_DefaultMaxLen(t *testing.T) {
	long := strings.Repeat("a", 80)
	tokens := ParseSearchQuery(long, 0)

	assert.Len(t, tokens, 1)
	assert.Len(t, tokens[0], DefaultMaxTokenLength)
}

func TestSanitizeSkill(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   string
		wantOK bool
	}{
		{"trimmed", "  Go  ", "Go", true},
		{"zero width removed", "Ku\u200Bbernetes", "Kubernetes", true},
		{"null byte removed", "Rea\x00ct", "React", true},
		{"empty", "   ", "", false},
		{"only control chars", "\x01\x02", "", false},
		{"not a string", 42, "", false},
		{"nil", nil, "", false},
		{"exactly max", strings.Repeat("x", MaxSkillLength), strings.Repeat("x", MaxSkillLength), true},
		{"too long", strings.Repeat("x", MaxSkillLength+1), "", false},
		{"korean counted by characters", strings.Repeat("가", MaxSkillLength), strings.Repeat("가", MaxSkillLength), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SanitizeSkill(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeSkillsArray_NotASlice(t *testing.T) {
	assert.Equal(t, []string{}, SanitizeSkillsArray("Go"))
	assert.Equal(t, []string{}, SanitizeSkillsArray(nil))
	assert.Equal(t, []string{}, SanitizeSkillsArray(map[string]string{"a": "b"}))
}

func TestSanitizeSkillsArray_DropsInvalid(t *testing.T) {
	input := []any{"Go", 3, "", "  SQL ", strings.Repeat("x", 101), "C\x00++"}

	assert.Equal(t, []string{"Go", "SQL", "C++"}, SanitizeSkillsArray(input))
}

func TestSanitizeSkillsArray_Bounded(t *testing.T) {
	input := make([]string, 500)
	for i := range input {
		input[i] = "skill"
	}
	input[0] = strings.Repeat("y", 400)
	input[1] = "bad\x00"

	got := SanitizeSkillsArray(input)

	assert.LessOrEqual(t, len(got), MaxSkillsCount)
	assert.Len(t, got, MaxSkillsCount-1)
	for _, skill := range got {
		assert.LessOrEqual(t, len([]rune(skill)), MaxSkillLength)
		assert.NotContains(t, skill, "\x00")
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Robert'); DROP TABLE candidates;--", "Robert) DROP TABLE candidates"},
		{"<script>alert(1)</script>", "scriptalert(1)/script"},
		{"back`tick\\slash", "backtickslash"},
		{"a-;-b", "ab"},
		{"plain-text", "plain-text"},
		{"  tab\there ", "tabhere"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeString(tt.input))
		})
	}
}

func TestRemoveControlChars(t *testing.T) {
	assert.Equal(t, "a'b<c>", RemoveControlChars("a'\x07b<c>\x7F"))
}
