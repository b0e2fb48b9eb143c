package tokenizer

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/exp/maps"
)

// Adaptor is either a *Fts3 or a *Fts5.
type Adaptor interface{ protocol() string }

// Entry is a named tokenizer as installed into connections. Context is handed
// to the FTS5 factory; OnDestroy runs with Context when a connection drops
// an FTS5 registration, i.e. when it is closed.
type Entry struct {
	Name      string
	Adaptor   Adaptor
	Context   any
	OnDestroy func(ctx any)
}

// Registry owns named entries. Entries stay alive until Unregister or
// process exit; connections that already installed an entry keep their own
// reference and are not affected by Unregister.
type Registry struct {
	m map[string]*Entry
	sync.RWMutex
}

var registry = &Registry{}

func (*Fts3) protocol() string { return "fts3" }
func (*Fts5) protocol() string { return "fts5" }

func Protocol(a Adaptor) string { return a.protocol() }

func Register(e Entry) (*Entry, bool, error) { return registry.Register(e) }
func Lookup(name string) (*Entry, bool)     { return registry.Lookup(name) }
func Unregister(name string) bool           { return registry.Unregister(name) }
func Names() []string                       { return registry.Names() }

// Register adds e. Registering the same adaptor under a name again returns the
// existing entry; a different adaptor under a taken name is an error. The bool
// reports whether a new entry was added.
func (r *Registry) Register(e Entry) (*Entry, bool, error) {
	if e.Name == "" {
		return nil, false, fmt.Errorf("%w: empty name", ErrRegistration)
	} else if e.Adaptor == nil {
		return nil, false, fmt.Errorf("%w: %q has no adaptor", ErrRegistration, e.Name)
	}
	r.Lock()
	defer r.Unlock()
	if r.m == nil {
		r.m = map[string]*Entry{}
	}
	if old, ok := r.m[e.Name]; ok {
		if old.Adaptor != e.Adaptor {
			return nil, false, fmt.Errorf("%w: %q already registered with another %s adaptor", ErrRegistration, e.Name, old.Adaptor.protocol())
		}
		return old, false, nil
	}
	r.m[e.Name] = &e
	return &e, true, nil
}

func (r *Registry) Lookup(name string) (*Entry, bool) {
	r.RLock()
	defer r.RUnlock()
	e, ok := r.m[name]
	return e, ok
}

func (r *Registry) Unregister(name string) bool {
	r.Lock()
	defer r.Unlock()
	_, ok := r.m[name]
	delete(r.m, name)
	return ok
}

func (r *Registry) Names() []string {
	r.RLock()
	defer r.RUnlock()
	ks := maps.Keys(r.m)
	sort.Strings(ks)
	return ks
}
