package tokenizer

import (
	"unicode"
	"unicode/utf8"
)

// Whitespace splits on unicode white space and keeps tokens verbatim.
var Whitespace = EngineFunc(func(text string, _ Flag, emit func(Token) error) error {
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start != -1 {
				if err := emit(Token{Text: text[start:i], Start: start, End: i}); err != nil {
					return err
				}
			}
			start = -1
		} else if start == -1 {
			start = i
		}
	}
	if start != -1 {
		return emit(Token{Text: text[start:], Start: start, End: len(text)})
	}
	return nil
})

type synonyms struct {
	Engine
	m map[string][]string
}

// WithSynonyms adds colocated synonyms after every token of e that has an
// entry in m. Synonyms are only added for documents; queries match them
// through the colocated index entries.
func WithSynonyms(e Engine, m map[string][]string) Engine { return &synonyms{e, m} }

func (s *synonyms) Tokenize(text string, flags Flag, emit func(Token) error) error {
	return s.Engine.Tokenize(text, flags, func(t Token) error {
		if err := emit(t); err != nil {
			return err
		} else if flags&TokenizeDocument == 0 {
			return nil
		}
		for _, v := range s.m[t.Text] {
			if err := emit(Token{Text: v, Start: t.Start, End: t.End, Colocated: true}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *synonyms) Close() error { return closeEngine(s.Engine) }

// IsWord reports whether s contains a letter or a number.
func IsWord(s string) bool {
	for len(s) > 0 {
		r, n := utf8.DecodeRuneInString(s)
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
		s = s[n:]
	}
	return false
}
