package words

import (
	"reflect"
	"testing"

	"github.com/niklasfasching/sqlitefts/tokenizer"
)

func TestEngine(t *testing.T) {
	for _, c := range []struct {
		args     []string
		in       string
		expected []tokenizer.Token
	}{
		{nil, "Hello World!", []tokenizer.Token{{Text: "Hello", Start: 0, End: 5}, {Text: "World", Start: 6, End: 11}}},
		{[]string{"fold"}, "Straße 42", []tokenizer.Token{{Text: "strasse", Start: 0, End: 7}, {Text: "42", Start: 8, End: 10}}},
		{nil, "", []tokenizer.Token{}},
		{nil, " ... ", []tokenizer.Token{}},
	} {
		e, err := Factory(nil, c.args)
		if err != nil {
			t.Fatal(err)
		}
		got := []tokenizer.Token{}
		if err := e.Tokenize(c.in, 0, func(tok tokenizer.Token) error {
			got = append(got, tok)
			return nil
		}); err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, c.expected) {
			t.Fatalf("%q: expected %v got %v", c.in, c.expected, got)
		}
	}
}

func TestFactoryArgs(t *testing.T) {
	if _, err := Factory(nil, []string{"stem"}); err == nil {
		t.Fatalf("expected unknown argument to fail")
	}
}

func TestFts3Positions(t *testing.T) {
	tk, err := tokenizer.NewFts3(Factory).Create(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer tk.Destroy()
	c, err := tk.Open([]byte("lime-tree, apple"))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	for i, w := range []string{"lime", "tree", "apple"} {
		tok, err := c.Next()
		if err != nil {
			t.Fatal(err)
		} else if string(tok.Bytes) != w || tok.Position != i {
			t.Fatalf("expected %s@%d got %s@%d", w, i, tok.Bytes, tok.Position)
		}
	}
}
