package tokenizer

import (
	"fmt"
)

// Fts3 implements the legacy FTS3/4 tokenizer module: create/destroy a
// tokenizer, open/close a cursor over one input and pull tokens with next.
type Fts3 struct{ factory Factory }

type Fts3Tokenizer struct{ engine Engine }

// Fts3Cursor is the state of one open call. It is never shared: every Open
// runs the engine again and gets its own token slice, offset and position.
type Fts3Cursor struct {
	tokenizer      *Fts3Tokenizer
	tokens         []Token
	i, offset, pos int
	closed         bool
}

type Fts3Token struct {
	Bytes                []byte
	Start, End, Position int
}

func NewFts3(f Factory) *Fts3 { return &Fts3{f} }

func (m *Fts3) Create(args []string) (*Fts3Tokenizer, error) {
	e, err := newEngine(m.factory, nil, args)
	if err != nil {
		return nil, err
	}
	return &Fts3Tokenizer{e}, nil
}

func (t *Fts3Tokenizer) Open(input []byte) (*Fts3Cursor, error) {
	if t == nil || t.engine == nil {
		return nil, fmt.Errorf("%w: open on destroyed tokenizer", ErrProtocol)
	}
	text, err := decode(input)
	if err != nil {
		return nil, err
	}
	c, end := &Fts3Cursor{tokenizer: t}, 0
	err = t.engine.Tokenize(text, 0, func(tok Token) error {
		if tok.Text == "" || tok.Colocated {
			return nil
		} else if err := checkSpan(tok, len(text)); err != nil {
			return err
		} else if tok.Start < end {
			return fmt.Errorf("%w: token %q at %d overlaps previous token ending at %d", ErrInvalidInput, tok.Text, tok.Start, end)
		}
		c.tokens, end = append(c.tokens, tok), tok.End
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fts3 open: %w", err)
	}
	return c, nil
}

func (t *Fts3Tokenizer) Destroy() error {
	if t == nil || t.engine == nil {
		return fmt.Errorf("%w: tokenizer destroyed twice", ErrProtocol)
	}
	e := t.engine
	t.engine = nil
	return closeEngine(e)
}

// Next returns the next token or ErrDone once the input is exhausted.
func (c *Fts3Cursor) Next() (Fts3Token, error) {
	if c == nil || c.closed {
		return Fts3Token{}, fmt.Errorf("%w: next on closed cursor", ErrProtocol)
	} else if c.i >= len(c.tokens) {
		return Fts3Token{}, ErrDone
	}
	tok := c.tokens[c.i]
	t := Fts3Token{[]byte(tok.Text), tok.Start, tok.End, c.pos}
	c.i, c.pos, c.offset = c.i+1, c.pos+1, tok.End
	return t, nil
}

// Offset is the end of the last returned token.
func (c *Fts3Cursor) Offset() int { return c.offset }

func (c *Fts3Cursor) Close() error {
	if c == nil || c.closed {
		return fmt.Errorf("%w: cursor closed twice", ErrProtocol)
	}
	c.closed, c.tokens, c.tokenizer = true, nil, nil
	return nil
}
