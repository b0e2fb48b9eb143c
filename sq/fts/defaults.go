//go:build fts5

package fts

import (
	"fmt"

	"github.com/niklasfasching/sqlitefts/ja"
	"github.com/niklasfasching/sqlitefts/tokenizer"
	"github.com/niklasfasching/sqlitefts/words"
)

// Entries registered on import. FTS3/4 and FTS5 tokenizers live in separate
// namespaces in sqlite but share the registry, hence the _fts4 suffix.
var Defaults = []tokenizer.Entry{
	{Name: "html", Adaptor: tokenizer.NewFts5(tokenizer.Static(tokenizer.HTML))},
	{Name: "json", Adaptor: tokenizer.NewFts5(tokenizer.Static(tokenizer.JSON))},
	{Name: "words", Adaptor: tokenizer.NewFts5(words.Factory)},
	{Name: "words_fts4", Adaptor: tokenizer.NewFts3(words.Factory)},
	{Name: "ja", Adaptor: tokenizer.NewFts5(ja.Factory)},
	{Name: "ja_fts4", Adaptor: tokenizer.NewFts3(ja.Factory)},
}

func init() {
	for _, e := range Defaults {
		if _, _, err := tokenizer.Register(e); err != nil {
			panic(fmt.Sprintf("failed to register default tokenizer: %v", err))
		}
	}
}
