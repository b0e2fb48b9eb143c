package tokenizer

import (
	"fmt"
	"slices"
	"strings"
)

// Highlighter renders the phrase matches of a column with Context tokens
// around them. Only the first Max matches are rendered when Max > 0.
type Highlighter struct {
	Context, Max         int
	Start, End, Ellipsis string
}

var DefaultHighlighter = Highlighter{5, 3, "<mark>", "</mark>", " … "}

// Snippet highlights matches in text. spans are the byte spans of the
// column's tokens indexed by position; matches are [position, length] pairs
// as reported by the host. Text between adjacent tokens is kept unless it
// contains markup.
func (h Highlighter) Snippet(text string, spans, matches [][2]int) string {
	if len(matches) == 0 || len(spans) == 0 {
		return ""
	}
	matches = slices.Clone(matches)
	slices.SortFunc(matches, func(a, b [2]int) int { return a[0] - b[0] })
	more := ""
	if h.Max > 0 && len(matches) > h.Max {
		more, matches = fmt.Sprintf(" %s(+%dx)%s", h.Start, len(matches)-h.Max, h.End), matches[:h.Max]
	}
	hit := map[int]bool{}
	for _, m := range matches {
		for i := 0; i < m[1]; i++ {
			hit[m[0]+i] = true
		}
	}
	w, i, end, prev := &strings.Builder{}, 0, -1, -1
	for t, span := range spans {
		for i < len(matches) && t >= matches[i][0]-h.Context {
			end, i = max(end, matches[i][0]+matches[i][1]+h.Context), i+1
		}
		if t >= end {
			if i >= len(matches) {
				break
			}
			continue
		} else if span[0] < 0 || span[0] > span[1] || span[1] > len(text) {
			continue
		}
		if prev != -1 {
			gap := t > prev+1
			if hit[prev] && (gap || !hit[t]) {
				w.WriteString(h.End)
			}
			if gap {
				w.WriteString(h.Ellipsis)
			} else if s := text[min(spans[prev][1], span[0]):span[0]]; strings.ContainsAny(s, "<>") {
				w.WriteString(" ")
			} else {
				w.WriteString(s)
			}
		}
		if hit[t] && (prev == -1 || !hit[prev] || t > prev+1) {
			w.WriteString(h.Start)
		}
		w.WriteString(text[span[0]:span[1]])
		prev = t
	}
	if prev != -1 && hit[prev] {
		w.WriteString(h.End)
	}
	return w.String() + more
}
