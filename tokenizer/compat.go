package tokenizer

import (
	"errors"
)

type fts3Engine struct{ t *Fts3Tokenizer }

// FromFts3 exposes a legacy tokenizer through the push protocol. Each Tokenize
// drains one cursor; flags are ignored since legacy tokenizers cannot tell
// queries from documents.
func FromFts3(t *Fts3Tokenizer) Engine { return fts3Engine{t} }

// Fts5FromFts3 serves FTS5 tables with the engine of a legacy module.
func Fts5FromFts3(m *Fts3) *Fts5 {
	return NewFts5(func(_ any, args []string) (Engine, error) {
		t, err := m.Create(args)
		if err != nil {
			return nil, err
		}
		return FromFts3(t), nil
	})
}

func (e fts3Engine) Tokenize(text string, _ Flag, emit func(Token) error) error {
	c, err := e.t.Open([]byte(text))
	if err != nil {
		return err
	}
	defer c.Close()
	for {
		t, err := c.Next()
		if errors.Is(err, ErrDone) {
			return nil
		} else if err != nil {
			return err
		}
		if err := emit(Token{Text: string(t.Bytes), Start: t.Start, End: t.End}); err != nil {
			return err
		}
	}
}

func (e fts3Engine) Close() error { return e.t.Destroy() }
