// Package markup parses the Markdown-like emphasis markers used in AI
// recommendation text into styled spans for terminal rendering.
package markup

import "regexp"

// Style is the emphasis applied to one span of text.
type Style int

const (
	Plain Style = iota
	Bold
	Italic
	Underline
)

// String returns the style name.
func (s Style) String() string {
	switch s {
	case Bold:
		return "bold"
	case Italic:
		return "italic"
	case Underline:
		return "underline"
	default:
		return "plain"
	}
}

// Span is a run of text carrying one style.
type Span struct {
	Text  string
	Style Style
}

// Marker patterns in priority order: double markers bind before single
// ones, so ** is never read as two italic stars.
var patterns = []struct {
	re    *regexp.Regexp
	style Style
}{
	{regexp.MustCompile(`\*\*(.*?)\*\*`), Bold},
	{regexp.MustCompile(`\*(.*?)\*`), Italic},
	{regexp.MustCompile(`__(.*?)__`), Underline},
	{regexp.MustCompile(`_(.*?)_`), Italic},
}

// Parse splits text into styled spans. Each pattern only scans spans that
// are still plain, so styled text is never re-parsed and markers inside it
// stay literal. Markers never span line breaks; an unterminated marker is
// left as plain text.
func Parse(text string) []Span {
	spans := []Span{{Text: text, Style: Plain}}

	for _, p := range patterns {
		var next []Span
		for _, s := range spans {
			if s.Style != Plain {
				next = append(next, s)
				continue
			}

			last := 0
			for _, m := range p.re.FindAllStringSubmatchIndex(s.Text, -1) {
				if m[0] > last {
					next = append(next, Span{Text: s.Text[last:m[0]], Style: Plain})
				}
				next = append(next, Span{Text: s.Text[m[2]:m[3]], Style: p.style})
				last = m[1]
			}
			if last < len(s.Text) {
				next = append(next, Span{Text: s.Text[last:], Style: Plain})
			}
		}
		spans = next
	}

	return spans
}
