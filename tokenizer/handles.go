package tokenizer

import (
	"fmt"
	"sync"
)

// Handles hands out opaque integer ids for Go values so that foreign code can
// hold on to them without seeing Go pointers. Id 0 is never used. Ids are not
// reused, so a stale id fails with ErrProtocol instead of aliasing a newer value.
type Handles[T any] struct {
	next uintptr
	m    map[uintptr]T
	sync.Mutex
}

func (h *Handles[T]) New(v T) uintptr {
	h.Lock()
	defer h.Unlock()
	if h.m == nil {
		h.m = map[uintptr]T{}
	}
	h.next++
	h.m[h.next] = v
	return h.next
}

func (h *Handles[T]) Get(id uintptr) (T, error) {
	h.Lock()
	defer h.Unlock()
	v, ok := h.m[id]
	if !ok {
		return v, fmt.Errorf("%w: unknown handle %d", ErrProtocol, id)
	}
	return v, nil
}

func (h *Handles[T]) Delete(id uintptr) (T, error) {
	h.Lock()
	defer h.Unlock()
	v, ok := h.m[id]
	if !ok {
		return v, fmt.Errorf("%w: unknown handle %d", ErrProtocol, id)
	}
	delete(h.m, id)
	return v, nil
}

func (h *Handles[T]) Len() int {
	h.Lock()
	defer h.Unlock()
	return len(h.m)
}
