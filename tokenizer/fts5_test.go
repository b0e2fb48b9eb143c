package tokenizer_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/niklasfasching/sqlitefts/tokenizer"
)

type emitted struct {
	Flags      tokenizer.Flag
	Token      string
	Start, End int
}

func TestFts5WhitespaceScenario(t *testing.T) {
	tk := newFts5(t, tokenizer.Whitespace)
	got, err := tokenize(tk, tokenizer.TokenizeDocument, "ab cd", -1)
	if err != nil {
		t.Fatal(err)
	}
	expected := []emitted{{0, "ab", 0, 2}, {0, "cd", 3, 5}}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected %v got %v", expected, got)
	}
	for _, e := range got {
		if e.End-e.Start != len(e.Token) {
			t.Fatalf("span of %q does not match its length", e.Token)
		}
	}
}

func TestFts5Abort(t *testing.T) {
	misbehaving := tokenizer.EngineFunc(func(text string, flags tokenizer.Flag, emit func(tokenizer.Token) error) error {
		for i := range text {
			emit(tokenizer.Token{Text: text[i : i+1], Start: i, End: i + 1})
		}
		return nil
	})
	for _, e := range []struct {
		name   string
		engine tokenizer.Engine
	}{{"whitespace", tokenizer.Whitespace}, {"engine ignoring emit errors", misbehaving}} {
		t.Run(e.name, func(t *testing.T) {
			for n := 1; n <= 3; n++ {
				got, err := tokenize(newFts5(t, e.engine), 0, "a b c d", n)
				if len(got) != n {
					t.Fatalf("expected exactly %d tokens before abort, got %v", n, got)
				} else if tokenizer.Status(err) != 4 {
					t.Fatalf("expected abort code 4 to be propagated, got %v", err)
				}
			}
		})
	}
}

func TestFts5SkipsEmptyTokens(t *testing.T) {
	e := tokenizer.EngineFunc(func(text string, flags tokenizer.Flag, emit func(tokenizer.Token) error) error {
		for _, tok := range []tokenizer.Token{{Text: "", Start: 0, End: 0}, {Text: "a", Start: 0, End: 1}, {Text: "", Start: 1, End: 1}} {
			if err := emit(tok); err != nil {
				return err
			}
		}
		return nil
	})
	got, err := tokenize(newFts5(t, e), 0, "a", -1)
	if err != nil {
		t.Fatal(err)
	} else if expected := []emitted{{0, "a", 0, 1}}; !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected %v got %v", expected, got)
	}
}

func TestFts5ContextArgsAndFlags(t *testing.T) {
	var seenCtx any
	var seenArgs []string
	var seenFlags []tokenizer.Flag
	m := tokenizer.NewFts5(func(ctx any, args []string) (tokenizer.Engine, error) {
		seenCtx, seenArgs = ctx, args
		return tokenizer.EngineFunc(func(text string, flags tokenizer.Flag, emit func(tokenizer.Token) error) error {
			seenFlags = append(seenFlags, flags)
			return tokenizer.Whitespace.Tokenize(text, flags, emit)
		}), nil
	})
	tk, err := m.Create("shared-dict", []string{"mode=search"})
	if err != nil {
		t.Fatal(err)
	} else if seenCtx != "shared-dict" || !reflect.DeepEqual(seenArgs, []string{"mode=search"}) || tk.Context != "shared-dict" {
		t.Fatalf("expected context and args to reach the factory: %v %v", seenCtx, seenArgs)
	}
	flags := []tokenizer.Flag{tokenizer.TokenizeDocument, tokenizer.TokenizeQuery | tokenizer.TokenizePrefix, tokenizer.TokenizeAux}
	for _, f := range flags {
		if _, err := tokenize(tk, f, "x", -1); err != nil {
			t.Fatal(err)
		}
	}
	if !reflect.DeepEqual(seenFlags, flags) {
		t.Fatalf("expected flags %v got %v", flags, seenFlags)
	}
	if s := (tokenizer.TokenizeQuery | tokenizer.TokenizePrefix).String(); s != "query|prefix" {
		t.Fatalf("unexpected flag string %q", s)
	}
}

func TestFts5Colocated(t *testing.T) {
	e := tokenizer.WithSynonyms(tokenizer.Whitespace, map[string][]string{"first": {"1st"}, "car": {"automobile", "auto"}})
	tk := newFts5(t, e)
	got, err := tokenize(tk, tokenizer.TokenizeDocument, "first red car", -1)
	if err != nil {
		t.Fatal(err)
	}
	c := tokenizer.TokenColocated
	expected := []emitted{{0, "first", 0, 5}, {c, "1st", 0, 5}, {0, "red", 6, 9}, {0, "car", 10, 13}, {c, "automobile", 10, 13}, {c, "auto", 10, 13}}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected %v got %v", expected, got)
	}
	got, err = tokenize(tk, tokenizer.TokenizeQuery, "car", -1)
	if err != nil {
		t.Fatal(err)
	} else if expected := []emitted{{0, "car", 0, 3}}; !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected no synonyms for queries: %v", got)
	}
}

func TestFts5LeadingColocatedTokenIsNotFlagged(t *testing.T) {
	e := tokenizer.EngineFunc(func(text string, flags tokenizer.Flag, emit func(tokenizer.Token) error) error {
		return emit(tokenizer.Token{Text: text, Start: 0, End: len(text), Colocated: true})
	})
	got, err := tokenize(newFts5(t, e), 0, "x", -1)
	if err != nil {
		t.Fatal(err)
	} else if expected := []emitted{{0, "x", 0, 1}}; !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected %v got %v", expected, got)
	}
}

func TestFts5Errors(t *testing.T) {
	t.Run("create failure", func(t *testing.T) {
		m := tokenizer.NewFts5(func(any, []string) (tokenizer.Engine, error) { return nil, nil })
		if tk, err := m.Create(nil, nil); !errors.Is(err, tokenizer.ErrInit) || tk != nil {
			t.Fatalf("expected init error for nil engine, got %v %v", tk, err)
		}
	})
	t.Run("invalid utf-8", func(t *testing.T) {
		_, err := tokenize(newFts5(t, tokenizer.Whitespace), 0, "a\xffb", -1)
		if tokenizer.Status(err) != tokenizer.StatusError {
			t.Fatalf("expected generic failure, got %v", err)
		}
	})
	t.Run("engine error", func(t *testing.T) {
		_, err := tokenize(newFts5(t, tokenizer.JSON), tokenizer.TokenizeDocument, `"not an array"`, -1)
		if err == nil || tokenizer.Status(err) != tokenizer.StatusError {
			t.Fatalf("expected engine error to map to generic failure, got %v", err)
		}
	})
	t.Run("delete", func(t *testing.T) {
		e := &closer{Engine: tokenizer.Whitespace}
		tk := newFts5(t, e)
		if err := tk.Delete(); err != nil || e.closed != 1 {
			t.Fatalf("expected cleanup hook to run once: %v %d", err, e.closed)
		} else if err := tk.Delete(); err != nil || e.closed != 1 {
			t.Fatalf("expected second delete to be a no-op: %v %d", err, e.closed)
		} else if _, err := tokenize(tk, 0, "a", -1); !errors.Is(err, tokenizer.ErrProtocol) {
			t.Fatalf("expected protocol violation after delete, got %v", err)
		}
	})
}

func newFts5(t *testing.T, e tokenizer.Engine) *tokenizer.Fts5Tokenizer {
	t.Helper()
	tk, err := tokenizer.NewFts5(tokenizer.Static(e)).Create(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return tk
}

// tokenize collects emitted tokens; the emit callback fails with code 4 on the
// abortAfter-th token.
func tokenize(tk *tokenizer.Fts5Tokenizer, flags tokenizer.Flag, in string, abortAfter int) ([]emitted, error) {
	es := []emitted{}
	err := tk.Tokenize(flags, []byte(in), func(tflags tokenizer.Flag, token []byte, start, end int) error {
		es = append(es, emitted{tflags, string(token), start, end})
		if len(es) == abortAfter {
			return &tokenizer.EmitAbortedError{Code: 4}
		} else if len(es) > abortAfter && abortAfter > 0 {
			return fmt.Errorf("emitted %q after abort", token)
		}
		return nil
	})
	return es, err
}
