// Package processor normalizes extracted text before a document is emitted.
// Both source adapters run their raw text through it so the indexed content
// has uniform whitespace and valid UTF-8 regardless of origin.
package processor

import (
	"strings"
	"unicode/utf8"
)

type Config struct {
	// PreserveLineBreaks keeps newlines intact and only collapses runs of
	// spaces and tabs within each line. When false all whitespace collapses
	// to single spaces.
	PreserveLineBreaks bool
}

type Processor struct {
	config Config
}

func NewWithConfig(config Config) Processor {
	return Processor{config: config}
}

// Clean collapses whitespace and drops invalid UTF-8 sequences.
func (p Processor) Clean(text string) string {
	text = sanitizeUTF8(text)

	if !p.config.PreserveLineBreaks {
		return strings.Join(strings.Fields(text), " ")
	}

	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, strings.Join(strings.Fields(line), " "))
	}
	// Collapse runs of blank lines left by the per-line pass.
	var out []string
	blank := false
	for _, line := range cleaned {
		if line == "" {
			blank = true
			continue
		}
		if blank && len(out) > 0 {
			out = append(out, "")
		}
		blank = false
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(s[i:])
			if size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
