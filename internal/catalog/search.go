package catalog

import (
	"regexp"
	"strings"
)

const maxSearchTermLength = 50

var (
	htmlTags      = regexp.MustCompile(`<[^>]*>`)
	dangerous     = regexp.MustCompile(`[<>"'&]`)
	jsProtocol    = regexp.MustCompile(`(?i)javascript:`)
	eventHandlers = regexp.MustCompile(`(?i)on\w+\s*=`)
	whitespace    = regexp.MustCompile(`\s+`)
	unsafeChars   = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
)

// SanitizeTerm strips markup and control sequences from untrusted search
// input, caps its length, and lowercases it. Input that sanitizes to
// nothing yields an empty string, which callers treat as "no results",
// never as an error.
func SanitizeTerm(term string) string {
	s := strings.TrimSpace(term)
	s = htmlTags.ReplaceAllString(s, "")
	s = dangerous.ReplaceAllString(s, "")
	s = jsProtocol.ReplaceAllString(s, "")
	s = eventHandlers.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if len(s) > maxSearchTermLength {
		s = s[:maxSearchTermLength]
	}
	s = unsafeChars.ReplaceAllString(s, "")
	return strings.ToLower(s)
}
