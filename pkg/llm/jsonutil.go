package llm

import (
	"regexp"
	"strings"
)

var (
	arrayBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\[.*\\])\\s*```")
	arrayPattern      = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
	trailingComma     = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSONArray pulls a JSON array out of a model reply, which may wrap it
// in a markdown fence or surround it with prose. Returns "" if none is found.
func ExtractJSONArray(content string) string {
	raw := ""
	if m := arrayBlockPattern.FindStringSubmatch(content); len(m) > 1 {
		raw = m[1]
	} else {
		raw = arrayPattern.FindString(content)
	}
	if raw == "" {
		return ""
	}
	return trailingComma.ReplaceAllString(strings.TrimSpace(raw), "$1")
}
