// Package words splits text on Unicode UAX #29 word boundaries.
package words

import (
	"fmt"
	"strings"

	"github.com/niklasfasching/sqlitefts/tokenizer"
	"github.com/npillmayer/uax/segment"
	"github.com/npillmayer/uax/uax29"
	"golang.org/x/text/cases"
)

// Engine emits every word segment containing a letter or number. Segmenters
// keep state, so a new one is set up for every call.
type Engine struct{ Fold bool }

func Factory(_ any, args []string) (tokenizer.Engine, error) {
	e := &Engine{}
	for _, arg := range args {
		switch arg {
		case "fold":
			e.Fold = true
		default:
			return nil, fmt.Errorf("unknown words tokenizer argument %q", arg)
		}
	}
	return e, nil
}

func (e *Engine) Tokenize(text string, _ tokenizer.Flag, emit func(tokenizer.Token) error) error {
	s, off, fold := segment.NewSegmenter(uax29.NewWordBreaker(1)), 0, cases.Fold()
	s.Init(strings.NewReader(text))
	for s.Next() {
		w := s.Text()
		start := off
		off += len(w)
		if !tokenizer.IsWord(w) {
			continue
		} else if e.Fold {
			w = fold.String(w)
		}
		if err := emit(tokenizer.Token{Text: w, Start: start, End: off}); err != nil {
			return err
		}
	}
	return s.Err()
}
