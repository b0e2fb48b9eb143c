package tokenizer

import (
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

// HTML indexes the text content of html documents (skipping script and style)
// as lower cased letter/number runs. Queries are not html and are split as is.
var HTML = EngineFunc(func(text string, flags Flag, emit func(Token) error) error {
	if flags&TokenizeQuery != 0 {
		return words(0, text, emit)
	}
	return htmlText(text, func(off int, text string) error { return words(off, text, emit) })
})

func words(off int, text string, emit func(Token) error) error {
	for _, m := range tokenRe.FindAllStringIndex(text, -1) {
		t := Token{Text: strings.ToLower(text[m[0]:m[1]]), Start: off + m[0], End: off + m[1]}
		if err := emit(t); err != nil {
			return err
		}
	}
	return nil
}

func htmlText(in string, cb func(off int, text string) error) error {
	z, off, skip := html.NewTokenizer(strings.NewReader(in)), 0, false
	for {
		t := z.Next()
		if t == html.ErrorToken {
			break
		}
		raw := string(z.Raw())
		switch t {
		case html.StartTagToken, html.EndTagToken:
			tag, _ := z.TagName()
			if v := strings.ToLower(string(tag)); v == "script" || v == "style" {
				skip = t == html.StartTagToken
			}
		case html.TextToken:
			if !skip {
				if err := cb(off, raw); err != nil {
					return err
				}
			}
		}
		off += len(raw)
	}
	if err := z.Err(); err != io.EOF {
		return err
	}
	return nil
}
