package cheatsheet

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const Header = "# Cheatsheet\n\n"

// Document is a rendered cheatsheet plus any formatting problems that were
// repaired while building it.
type Document struct {
	Markdown string
	Warnings []string
}

// Summarize concatenates results under the cheatsheet header, each followed
// by a blank line. Blank results are skipped and invalid UTF-8 is replaced;
// both are reported as warnings rather than failing the request.
func Summarize(results []string) Document {
	var b strings.Builder
	var warnings []string

	b.WriteString(Header)
	for i, r := range results {
		if strings.TrimSpace(r) == "" {
			warnings = append(warnings, fmt.Sprintf("result %d is empty and was left out of the cheatsheet", i+1))
			continue
		}
		if !utf8.ValidString(r) {
			r = strings.ToValidUTF8(r, "\uFFFD")
			warnings = append(warnings, fmt.Sprintf("result %d contained invalid UTF-8 that was replaced", i+1))
		}
		b.WriteString(r)
		b.WriteString("\n\n")
	}

	return Document{Markdown: b.String(), Warnings: warnings}
}
