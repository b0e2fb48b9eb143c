// Package tokenizer adapts text segmentation engines to the two sqlite
// full-text tokenizer protocols: the legacy FTS3/4 cursor module (pull) and the
// FTS5 callback table (push). Nothing in here touches C memory; the cgo
// boundary lives in sq/fts and only ever hands this package byte slices and
// opaque handles.
package tokenizer

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Token is a surface form plus its byte span in the tokenized input.
// Colocated marks a synonym sharing the position of the previous token.
type Token struct {
	Text       string
	Start, End int
	Colocated  bool
}

type Engine interface {
	Tokenize(text string, flags Flag, emit func(Token) error) error
}

// Factory builds an engine for one tokenizer instance. ctx is the value given
// at registration time (always nil for FTS3/4) and args are the tokenizer
// arguments from the table definition, e.g. `tokenize = 'ja ''mode=search'''`.
type Factory func(ctx any, args []string) (Engine, error)

type EngineFunc func(text string, flags Flag, emit func(Token) error) error

type Flag int

const (
	TokenizeQuery    Flag = 0x0001
	TokenizePrefix   Flag = 0x0002
	TokenizeDocument Flag = 0x0004
	TokenizeAux      Flag = 0x0008

	TokenColocated Flag = 0x0001
)

// sqlite result codes used across the boundary.
const (
	StatusOK     = 0
	StatusError  = 1
	StatusNoMem  = 7
	StatusMisuse = 21
	StatusDone   = 101
)

var (
	ErrInit         = errors.New("tokenizer initialization failed")
	ErrRegistration = errors.New("tokenizer registration failed")
	ErrProtocol     = errors.New("tokenizer protocol violation")
	ErrInvalidInput = errors.New("invalid tokenizer input")
	ErrDone         = errors.New("end of token stream")
)

// EmitAbortedError is returned when the host callback asked to stop emitting.
type EmitAbortedError struct{ Code int }

func (e *EmitAbortedError) Error() string { return fmt.Sprintf("emit aborted with code %d", e.Code) }

func (f EngineFunc) Tokenize(text string, flags Flag, emit func(Token) error) error {
	return f(text, flags, emit)
}

func Static(e Engine) Factory {
	return func(any, []string) (Engine, error) { return e, nil }
}

// Status maps an adaptor error to the sqlite result code the host expects.
func Status(err error) int {
	abort := &EmitAbortedError{}
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrDone):
		return StatusDone
	case errors.As(err, &abort):
		return abort.Code
	case errors.Is(err, ErrProtocol):
		return StatusMisuse
	default:
		return StatusError
	}
}

func (f Flag) String() string {
	s := ""
	for _, x := range []struct {
		f Flag
		s string
	}{{TokenizeQuery, "query"}, {TokenizePrefix, "prefix"}, {TokenizeDocument, "document"}, {TokenizeAux, "aux"}} {
		if f&x.f != 0 {
			if s != "" {
				s += "|"
			}
			s += x.s
		}
	}
	if s == "" {
		return "none"
	}
	return s
}

func newEngine(f Factory, ctx any, args []string) (Engine, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil factory", ErrInit)
	}
	e, err := f(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInit, err)
	} else if e == nil {
		return nil, fmt.Errorf("%w: factory returned no engine", ErrInit)
	}
	return e, nil
}

func closeEngine(e Engine) error {
	if c, ok := e.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func decode(input []byte) (string, error) {
	if !utf8.Valid(input) {
		return "", fmt.Errorf("%w: not utf-8", ErrInvalidInput)
	}
	return string(input), nil
}

func checkSpan(t Token, n int) error {
	if t.Start < 0 || t.End < t.Start || t.End > n {
		return fmt.Errorf("%w: token %q span [%d, %d) outside input of %d bytes", ErrInvalidInput, t.Text, t.Start, t.End, n)
	}
	return nil
}
