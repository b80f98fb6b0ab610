package state

import (
	"sync"

	"github.com/google/uuid"
)

// Change describes a single notification delivered to subscribers.
// For a Set, Path and Value carry the written path and its new value.
// For a batched Update, Updates is non-nil and maps every written path
// to its final value; Path and Value are then unset except when the
// notification is delivered to an exact-path subscriber, in which case
// Path and Value identify that subscriber's slice of the batch.
type Change struct {
	Path    string
	Value   any
	Updates map[string]any
}

// Batch reports whether this change was produced by an Update.
func (c Change) Batch() bool {
	return c.Updates != nil
}

// Write is one path→value pair of a batched Update. Writes are applied
// in slice order, so later writes win when paths overlap.
type Write struct {
	Path  string
	Value any
}

// Handler receives change notifications. Handlers run synchronously
// inside the mutating call, in registration order per path.
type Handler func(Change)

type subscriber struct {
	id      string
	handler Handler
}

// Store owns the state tree. The zero value is not usable; create
// instances with NewStore. A Store is safe for concurrent use, though
// the intended model is a single logical writer.
type Store struct {
	mu   sync.RWMutex
	tree map[string]any
	subs map[string][]subscriber
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		tree: make(map[string]any),
		subs: make(map[string][]subscriber),
	}
}

// Initialize replaces the entire tree with a deep copy of tree.
// This is a reset, not a change: no notifications are emitted.
// A nil tree resets to empty.
func (s *Store) Initialize(tree map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = cloneTree(tree)
}

// Get returns a deep copy of the value at path, or the whole tree when
// path is empty. A structurally absent path returns (nil, false).
func (s *Store) Get(path string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := lookup(s.tree, splitPath(path))
	if !ok {
		return nil, false
	}
	return Clone(v), true
}

// Snapshot returns a deep copy of the whole tree.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTree(s.tree)
}

// Set stores a deep copy of value at path, creating missing
// intermediate maps and coercing non-map values found mid-path into
// empty maps. Exact-path and wildcard subscribers are notified
// synchronously before Set returns. An empty path is a no-op.
func (s *Store) Set(path string, value any) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return
	}

	s.mu.Lock()
	insert(s.tree, segs, Clone(value))
	s.mu.Unlock()

	s.notify(Change{Path: path, Value: Clone(value)})
}

// Update applies every write in order under the same spine rule as Set,
// then emits exactly one batched notification covering all of them.
// When paths overlap, the later write wins and is the value reported
// in the notification.
func (s *Store) Update(writes []Write) {
	if len(writes) == 0 {
		return
	}

	updates := make(map[string]any, len(writes))

	s.mu.Lock()
	for _, w := range writes {
		segs := splitPath(w.Path)
		if len(segs) == 0 {
			continue
		}
		insert(s.tree, segs, Clone(w.Value))
		updates[w.Path] = Clone(w.Value)
	}
	s.mu.Unlock()

	if len(updates) == 0 {
		return
	}
	s.notify(Change{Updates: updates})
}

// Subscribe registers handler for changes at path, or for every change
// when path is Wildcard. Handlers for the same path run in registration
// order. The returned function removes the subscription; calling it
// more than once is safe.
func (s *Store) Subscribe(path string, handler Handler) func() {
	id := uuid.New().String()

	s.mu.Lock()
	s.subs[path] = append(s.subs[path], subscriber{id: id, handler: handler})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		list := s.subs[path]
		for i, sub := range list {
			if sub.id == id {
				s.subs[path] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// notify delivers a change to the matching subscribers. For batched
// changes, an exact-path subscriber fires when the batch's key set
// contains its path, and receives that path's value. Wildcard
// subscribers always receive the change as-is.
func (s *Store) notify(c Change) {
	s.mu.RLock()
	var exact []subscriber
	var paths []string
	if c.Batch() {
		for path := range c.Updates {
			for _, sub := range s.subs[path] {
				exact = append(exact, sub)
				paths = append(paths, path)
			}
		}
	} else {
		for _, sub := range s.subs[c.Path] {
			exact = append(exact, sub)
			paths = append(paths, c.Path)
		}
	}
	wildcard := make([]subscriber, len(s.subs[Wildcard]))
	copy(wildcard, s.subs[Wildcard])
	s.mu.RUnlock()

	for i, sub := range exact {
		delivered := c
		if c.Batch() {
			delivered.Path = paths[i]
			delivered.Value = c.Updates[paths[i]]
		}
		invoke(sub.handler, delivered)
	}
	for _, sub := range wildcard {
		invoke(sub.handler, c)
	}
}

// invoke runs one handler, swallowing panics so a misbehaving handler
// cannot starve the remaining subscribers for the same event.
func invoke(h Handler, c Change) {
	defer func() {
		_ = recover()
	}()
	h(c)
}
