//go:build fts5

package fts

import (
	"errors"
	"testing"

	"github.com/niklasfasching/sqlitefts/tokenizer"
)

func TestFts3Slots(t *testing.T) {
	slots.Lock()
	saved := slots.s
	slots.s = nil
	slots.Unlock()
	t.Cleanup(func() {
		slots.Lock()
		slots.s = saved
		slots.Unlock()
	})

	a := newWhitespace3()
	if i, err := bind(a, nil); err != nil || i != 0 {
		t.Fatalf("expected slot 0: %d %v", i, err)
	}
	if j, err := bind(a, nil); err != nil || j != 0 {
		t.Fatalf("expected the same adaptor to keep its slot: %d %v", j, err)
	}

	failed := errors.New("rejected")
	b := newWhitespace3()
	if _, err := bind(b, failed); !errors.Is(err, failed) {
		t.Fatalf("expected the registration error, got %v", err)
	} else if _, err := fts3Adaptor(1); !errors.Is(err, tokenizer.ErrProtocol) {
		t.Fatalf("expected the slot of a failed registration to be released, got %v", err)
	}
	if _, err := bind(a, failed); !errors.Is(err, failed) {
		t.Fatalf("expected the registration error, got %v", err)
	} else if m, err := fts3Adaptor(0); err != nil || m != a {
		t.Fatalf("expected a failed re-registration to keep the bound slot: %v", err)
	}

	for n := 1; n < fts3Slots; n++ {
		if i, err := bind(newWhitespace3(), nil); err != nil || i != n {
			t.Fatalf("expected slot %d (released slots are reused): %d %v", n, i, err)
		}
	}
	if _, err := bind(newWhitespace3(), nil); !errors.Is(err, tokenizer.ErrRegistration) {
		t.Fatalf("expected exhausted slots to fail, got %v", err)
	}
	if m, err := fts3Adaptor(0); err != nil || m != a {
		t.Fatalf("expected slot 0 to resolve to its adaptor: %v", err)
	}
	if _, err := fts3Adaptor(-1); !errors.Is(err, tokenizer.ErrProtocol) {
		t.Fatalf("expected unknown slot to fail, got %v", err)
	}
}

func bind(m *tokenizer.Fts3, err error) (int, error) {
	slot := -1
	bindErr := bindFts3(m, func(i int) error {
		slot = i
		return err
	})
	return slot, bindErr
}

func newWhitespace3() *tokenizer.Fts3 {
	return tokenizer.NewFts3(tokenizer.Static(tokenizer.Whitespace))
}
