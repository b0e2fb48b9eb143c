package tokenizer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// JSON indexes the elements of a json array (or the key•value pairs of a flat
// json object) as single tokens, e.g. for tag lists. Queries are one token.
var JSON = EngineFunc(func(text string, flags Flag, emit func(Token) error) error {
	if text == "null" || text == "" {
		return nil
	}
	if flags&TokenizeQuery != 0 {
		return emit(Token{Text: text, Start: 0, End: len(text)})
	}
	d := json.NewDecoder(strings.NewReader(text))
	d.UseNumber()
	t, err := d.Token()
	r, _ := t.(json.Delim)
	if err != nil || (r != '[' && r != '{') {
		return fmt.Errorf("not a json array/object: %q %v %v", text, t, err)
	}
	for d.More() {
		i, out := d.InputOffset(), ""
		if r == '{' {
			k, err := d.Token()
			if err != nil {
				return fmt.Errorf("failed to parse object key: %w", err)
			}
			v, err := d.Token()
			if err != nil {
				return fmt.Errorf("failed to parse object value: %w", err)
			}
			if v, _ := v.(json.Delim); v == '{' || v == '[' {
				return fmt.Errorf("non-primitive object value for key %v (%v)", k, text)
			}
			// sqlite does not like [=:] tokens in unquoted fts queries. to keep
			// prefix queries simple we'll go with another dot like char that's uncommon
			out = fmt.Sprintf("%v•%v", k, v)
		} else {
			v, err := d.Token()
			if err != nil {
				return fmt.Errorf("failed to parse array value: %w", err)
			}
			if v, _ := v.(json.Delim); v == '{' || v == '[' {
				return fmt.Errorf("non-primitive array value (%v)", text)
			}
			out = fmt.Sprintf("%v", v)
		}
		if err := emit(Token{Text: out, Start: int(i), End: int(d.InputOffset())}); err != nil {
			return err
		}
	}
	return nil
})
