package tokenizer

import (
	"fmt"
)

// Fts5 implements the FTS5 tokenizer table: create/delete a tokenizer and
// tokenize an input by pushing every token into a host callback.
type Fts5 struct{ factory Factory }

type Fts5Tokenizer struct {
	engine  Engine
	Context any
}

// EmitFunc delivers one token to the host. A non-nil error stops tokenization.
type EmitFunc func(tflags Flag, token []byte, start, end int) error

func NewFts5(f Factory) *Fts5 { return &Fts5{f} }

func (m *Fts5) Create(ctx any, args []string) (*Fts5Tokenizer, error) {
	e, err := newEngine(m.factory, ctx, args)
	if err != nil {
		return nil, err
	}
	return &Fts5Tokenizer{e, ctx}, nil
}

func (t *Fts5Tokenizer) Tokenize(flags Flag, input []byte, emit EmitFunc) error {
	if t == nil || t.engine == nil {
		return fmt.Errorf("%w: tokenize on deleted tokenizer", ErrProtocol)
	}
	text, err := decode(input)
	if err != nil {
		return err
	}
	var abort error
	n := 0
	err = t.engine.Tokenize(text, flags, func(tok Token) error {
		if abort != nil {
			return abort
		} else if tok.Text == "" {
			return nil
		} else if err := checkSpan(tok, len(text)); err != nil {
			return err
		}
		tflags := Flag(0)
		if tok.Colocated && n > 0 {
			tflags = TokenColocated
		}
		if err := emit(tflags, []byte(tok.Text), tok.Start, tok.End); err != nil {
			abort = err
			return err
		}
		n++
		return nil
	})
	if abort != nil {
		return abort
	}
	return err
}

// Delete releases the engine. Only the first call has an effect.
func (t *Fts5Tokenizer) Delete() error {
	if t == nil || t.engine == nil {
		return nil
	}
	e := t.engine
	t.engine = nil
	return closeEngine(e)
}
