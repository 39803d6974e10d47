// Package parser derives display metadata from journal and book text.
package parser

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([\p{L}][\p{L}\p{N}_/-]*)`)

const titleRunes = 40

// Result holds the output of parsing a page of text.
type Result struct {
	Title string
	Tags  []string
}

// Parse extracts the title and #tags from text.
func Parse(text string) Result {
	return Result{
		Title: Title(text),
		Tags:  Tags(text),
	}
}

// Tags returns the deduplicated inline #tags in order of first use. Tags
// are NFC-normalised, so a tag typed with a combining accent matches the
// precomposed spelling.
func Tags(text string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, m := range tagRe.FindAllStringSubmatch(norm.NFC.String(text), -1) {
		t := m[1]
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// NormalizeTag maps user input such as "#Café" typed with a combining
// accent onto the form Tags produces. Case is kept.
func NormalizeTag(tag string) string {
	return norm.NFC.String(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
}

// Title returns the first H1 heading, otherwise the first non-empty line
// cut to a display length, otherwise the empty string.
func Title(text string) string {
	first := ""
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
		if first == "" && trimmed != "" {
			first = trimmed
		}
	}
	r := []rune(first)
	if len(r) > titleRunes {
		return string(r[:titleRunes]) + "…"
	}
	return first
}
