package tokenizer_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/niklasfasching/sqlitefts/tokenizer"
)

func TestFts5FromFts3(t *testing.T) {
	legacy := tokenizer.NewFts3(tokenizer.Static(tokenizer.Whitespace))
	for _, in := range []string{"ab cd", "", "  日本語　テスト  x ", "one"} {
		fts3 := []emitted{}
		for _, tok := range drain(t, newFts3(t, tokenizer.Whitespace), in) {
			fts3 = append(fts3, emitted{0, string(tok.Bytes), tok.Start, tok.End})
		}
		tk, err := tokenizer.Fts5FromFts3(legacy).Create(nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		for _, flags := range []tokenizer.Flag{tokenizer.TokenizeDocument, tokenizer.TokenizeQuery, 0} {
			fts5, err := tokenize(tk, flags, in, -1)
			if err != nil {
				t.Fatal(err)
			} else if !reflect.DeepEqual(fts3, fts5) {
				t.Fatalf("%q (%s): expected %v got %v", in, flags, fts3, fts5)
			}
		}
		if err := tk.Delete(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFromFts3Abort(t *testing.T) {
	legacy, err := tokenizer.NewFts3(tokenizer.Static(tokenizer.Whitespace)).Create(nil)
	if err != nil {
		t.Fatal(err)
	}
	tk, err := tokenizer.NewFts5(tokenizer.Static(tokenizer.FromFts3(legacy))).Create(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := tokenize(tk, 0, "a b c", 2)
	if len(got) != 2 || tokenizer.Status(err) != 4 {
		t.Fatalf("expected abort after 2 tokens: %v %v", got, err)
	}
	if err := tk.Delete(); err != nil {
		t.Fatal(err)
	} else if _, err := legacy.Open([]byte("a")); !errors.Is(err, tokenizer.ErrProtocol) {
		t.Fatalf("expected delete to destroy the legacy tokenizer, got %v", err)
	}
}

func TestFts5FromFts3CreateFailure(t *testing.T) {
	legacy := tokenizer.NewFts3(func(any, []string) (tokenizer.Engine, error) { return nil, errors.New("boom") })
	if _, err := tokenizer.Fts5FromFts3(legacy).Create(nil, nil); !errors.Is(err, tokenizer.ErrInit) {
		t.Fatalf("expected init error, got %v", err)
	}
}
