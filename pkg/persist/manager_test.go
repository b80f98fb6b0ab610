package persist

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/drey/pkg/state"
)

// testBackend is an in-memory backend with write counting and fault
// injection, so tests can observe coalescing and exercise the error
// policy.
type testBackend struct {
	mu      sync.Mutex
	items   map[string]string
	sets    int
	failGet bool
	failSet bool
}

func newTestBackend() *testBackend {
	return &testBackend{items: make(map[string]string)}
}

func (b *testBackend) GetItem(key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failGet {
		return "", false, fmt.Errorf("injected read failure")
	}
	value, ok := b.items[key]
	return value, ok, nil
}

func (b *testBackend) SetItem(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failSet {
		return fmt.Errorf("injected write failure")
	}
	b.items[key] = value
	b.sets++
	return nil
}

func (b *testBackend) RemoveItem(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.items, key)
	return nil
}

func (b *testBackend) writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sets
}

func (b *testBackend) stored(key string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	value, ok := b.items[key]
	return value, ok
}

func (b *testBackend) store(key, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items[key] = value
}

// newTestManager builds a fresh store+manager pair on a testBackend.
// Auto-save noise is kept out of direct-save tests by the long default
// debounce; tests of the debounce path override it.
func newTestManager(t *testing.T, opts Options) (*state.Store, *Manager, *testBackend) {
	t.Helper()

	backend := newTestBackend()
	if opts.Backend == nil {
		opts.Backend = backend
	}
	if opts.Debounce == 0 {
		opts.Debounce = time.Minute
	}
	if opts.OnError == nil {
		opts.OnError = func(error) {}
	}

	store := state.NewStore()
	mgr := NewManager(store, opts)
	t.Cleanup(func() { mgr.Close() })

	return store, mgr, backend
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, mgr, backend := newTestManager(t, Options{Key: "rt"})

	store.Set("user", map[string]any{
		"name":   "alice",
		"score":  12.5,
		"active": true,
		"tags":   []any{"a", "b"},
	})
	store.Set("nested.deep.value", "leaf")
	want := store.Snapshot()

	mgr.Save()
	require.Equal(t, 1, backend.writes())

	// Restore into a fresh store, as a new process would.
	store2, mgr2, _ := newTestManager(t, Options{Key: "rt", Backend: backend})
	restored := mgr2.Load()
	require.NotNil(t, restored)
	assert.Equal(t, want, store2.Snapshot())
}

func TestLoadAbsentEntry(t *testing.T) {
	var failures []error
	store, mgr, _ := newTestManager(t, Options{
		OnError: func(err error) { failures = append(failures, err) },
	})
	store.Set("keep", "me")

	assert.Nil(t, mgr.Load())
	assert.False(t, mgr.Initialize())
	assert.Empty(t, failures, "a missing entry is not an error")

	// The store keeps its prior state.
	v, ok := store.Get("keep")
	require.True(t, ok)
	assert.Equal(t, "me", v)
}

func TestPathFiltering(t *testing.T) {
	t.Run("include keeps only listed paths", func(t *testing.T) {
		store, mgr, backend := newTestManager(t, Options{Key: "f", Include: []string{"a.b"}})
		store.Update([]state.Write{
			{Path: "a.b", Value: 1.0},
			{Path: "a.c", Value: 2.0},
			{Path: "d", Value: 3.0},
		})

		mgr.Save()

		store2, mgr2, _ := newTestManager(t, Options{Key: "f", Backend: backend})
		require.NotNil(t, mgr2.Load())
		assert.Equal(t, map[string]any{"a": map[string]any{"b": 1.0}}, store2.Snapshot())
	})

	t.Run("exclude drops listed paths", func(t *testing.T) {
		store, mgr, backend := newTestManager(t, Options{Key: "f", Exclude: []string{"secret"}})
		store.Set("secret", "hunter2")
		store.Set("public", "hello")

		mgr.Save()

		store2, mgr2, _ := newTestManager(t, Options{Key: "f", Backend: backend})
		require.NotNil(t, mgr2.Load())
		assert.Equal(t, map[string]any{"public": "hello"}, store2.Snapshot())
	})

	t.Run("include wins over exclude", func(t *testing.T) {
		store, mgr, backend := newTestManager(t, Options{
			Key:     "f",
			Include: []string{"a"},
			Exclude: []string{"a"},
		})
		store.Set("a", "kept")
		store.Set("b", "dropped")

		mgr.Save()

		store2, mgr2, _ := newTestManager(t, Options{Key: "f", Backend: backend})
		require.NotNil(t, mgr2.Load())
		assert.Equal(t, map[string]any{"a": "kept"}, store2.Snapshot())
	})

	t.Run("filtering never mutates the live tree", func(t *testing.T) {
		store, mgr, _ := newTestManager(t, Options{Exclude: []string{"secret"}})
		store.Set("secret", "hunter2")

		mgr.Save()

		v, ok := store.Get("secret")
		require.True(t, ok)
		assert.Equal(t, "hunter2", v)
	})
}

func TestDebounceCoalescing(t *testing.T) {
	store, _, backend := newTestManager(t, Options{Key: "d", Debounce: 50 * time.Millisecond})

	for i := 1; i <= 5; i++ {
		store.Set("counter", float64(i))
		time.Sleep(2 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return backend.writes() == 1 },
		time.Second, 5*time.Millisecond, "burst should collapse into one save")

	// Allow a stray second timer to fire if one existed.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, backend.writes())

	raw, ok := backend.stored("d")
	require.True(t, ok)
	assert.Contains(t, raw, `"counter":5`, "save must reflect the last change")
}

func TestSetEnabled(t *testing.T) {
	t.Run("disabling cancels a pending debounced save", func(t *testing.T) {
		store, mgr, backend := newTestManager(t, Options{Debounce: 30 * time.Millisecond})

		store.Set("a", 1)
		mgr.SetEnabled(false)
		time.Sleep(100 * time.Millisecond)

		assert.Zero(t, backend.writes())
		assert.False(t, mgr.Enabled())
	})

	t.Run("disabled manager ignores direct Save", func(t *testing.T) {
		store, mgr, backend := newTestManager(t, Options{})
		store.Set("a", 1)

		mgr.SetEnabled(false)
		mgr.Save()

		assert.Zero(t, backend.writes())
	})

	t.Run("re-enabling restores auto-save", func(t *testing.T) {
		store, mgr, backend := newTestManager(t, Options{Debounce: 20 * time.Millisecond})

		mgr.SetEnabled(false)
		store.Set("a", 1)
		mgr.SetEnabled(true)
		store.Set("a", 2)

		require.Eventually(t, func() bool { return backend.writes() == 1 },
			time.Second, 5*time.Millisecond)
	})
}

func TestFlush(t *testing.T) {
	store, mgr, backend := newTestManager(t, Options{Debounce: time.Hour})

	mgr.Flush()
	assert.Zero(t, backend.writes(), "flush with nothing pending is a no-op")

	store.Set("a", 1)
	mgr.Flush()
	assert.Equal(t, 1, backend.writes())
}

func TestCorruptionHandling(t *testing.T) {
	t.Run("corrupt entry loads as nil, never panics", func(t *testing.T) {
		var failure error
		store, mgr, backend := newTestManager(t, Options{
			Key:     "c",
			OnError: func(err error) { failure = err },
		})
		store.Set("prior", "state")
		mgr.Save()

		raw, _ := backend.stored("c")
		backend.store("c", raw[:len(raw)-2]) // truncate: no longer valid JSON

		require.NotPanics(t, func() { assert.Nil(t, mgr.Load()) })
		require.Error(t, failure)
		assert.ErrorIs(t, failure, ErrCorruptEntry)
		assert.True(t, IsCorrupt(failure))

		v, ok := store.Get("prior")
		require.True(t, ok)
		assert.Equal(t, "state", v, "failed load must not touch the store")
	})

	t.Run("checksum mismatch is detected and rejected", func(t *testing.T) {
		var failure error
		var events []Event
		store, mgr, backend := newTestManager(t, Options{
			Key:      "c",
			Checksum: true,
			OnError:  func(err error) { failure = err },
		})
		mgr.OnEvent(func(ev Event) { events = append(events, ev) })

		store.Set("name", "alice")
		mgr.Save()

		// Flip payload bytes while keeping the JSON well-formed.
		raw, _ := backend.stored("c")
		require.Contains(t, raw, "alice")
		backend.store("c", strings.Replace(raw, "alice", "evil!", 1))

		store.Set("name", "bob") // prior live state to preserve
		assert.Nil(t, mgr.Load())
		assert.ErrorIs(t, failure, ErrIntegrityMismatch)

		var sawError bool
		for _, ev := range events {
			if ev.Type == EventError {
				sawError = true
			}
		}
		assert.True(t, sawError, "corruption must be broadcast as an error event")

		v, ok := store.Get("name")
		require.True(t, ok)
		assert.Equal(t, "bob", v)
	})

	t.Run("intact checksum verifies on load", func(t *testing.T) {
		store, mgr, backend := newTestManager(t, Options{Key: "c", Checksum: true})
		store.Set("name", "alice")
		mgr.Save()

		_, mgr2, _ := newTestManager(t, Options{Key: "c", Checksum: true, Backend: backend,
			OnError: func(err error) { t.Errorf("unexpected error: %v", err) }})
		assert.NotNil(t, mgr2.Load())
	})
}

func TestBackendFailures(t *testing.T) {
	t.Run("save routes write failures to the error policy", func(t *testing.T) {
		var failure error
		store, mgr, backend := newTestManager(t, Options{
			OnError: func(err error) { failure = err },
		})
		store.Set("a", 1)
		backend.failSet = true

		require.NotPanics(t, mgr.Save)
		assert.ErrorIs(t, failure, ErrBackendUnavailable)
		assert.Zero(t, backend.writes())
	})

	t.Run("load routes read failures to the error policy", func(t *testing.T) {
		var failure error
		_, mgr, backend := newTestManager(t, Options{
			OnError: func(err error) { failure = err },
		})
		backend.failGet = true

		assert.Nil(t, mgr.Load())
		assert.ErrorIs(t, failure, ErrBackendUnavailable)
	})

	t.Run("failed save leaves the previous entry untouched", func(t *testing.T) {
		store, mgr, backend := newTestManager(t, Options{Key: "k", OnError: func(error) {}})
		store.Set("a", "first")
		mgr.Save()
		before, _ := backend.stored("k")

		backend.failSet = true
		store.Set("a", "second")
		mgr.Save()

		after, ok := backend.stored("k")
		require.True(t, ok)
		assert.Equal(t, before, after)
	})
}

func TestMigrations(t *testing.T) {
	// seed writes a v1 envelope directly, as an old build would have.
	seed := func(t *testing.T, backend *testBackend, key string, data map[string]any) {
		t.Helper()
		raw, err := JSONSerializer{}.Marshal(&Envelope{Version: 1, Timestamp: 42, Data: data})
		require.NoError(t, err)
		backend.store(key, raw)
	}

	t.Run("applies registered migrations in ascending order", func(t *testing.T) {
		backend := newTestBackend()
		seed(t, backend, "m", map[string]any{"order": []any{}})

		appendStep := func(label string) Migration {
			return func(tree map[string]any) (map[string]any, error) {
				order := tree["order"].([]any)
				tree["order"] = append(order, label)
				return tree, nil
			}
		}

		var steps []MigrationStep
		store, mgr, _ := newTestManager(t, Options{
			Key:     "m",
			Version: 3,
			Backend: backend,
			Migrations: map[int]Migration{
				3: appendStep("v3"),
				2: appendStep("v2"),
			},
		})
		mgr.OnEvent(func(ev Event) {
			if ev.Type == EventMigrated {
				steps = append(steps, ev.Payload.(MigrationStep))
			}
		})

		require.NotNil(t, mgr.Load())

		v, ok := store.Get("order")
		require.True(t, ok)
		assert.Equal(t, []any{"v2", "v3"}, v)
		assert.Equal(t, []MigrationStep{{From: 1, To: 2}, {From: 2, To: 3}}, steps)
	})

	t.Run("unregistered intermediate versions are identity steps", func(t *testing.T) {
		backend := newTestBackend()
		seed(t, backend, "m", map[string]any{"touched": false})

		store, mgr, _ := newTestManager(t, Options{
			Key:     "m",
			Version: 4,
			Backend: backend,
			Migrations: map[int]Migration{
				4: func(tree map[string]any) (map[string]any, error) {
					tree["touched"] = true
					return tree, nil
				},
			},
		})

		require.NotNil(t, mgr.Load())
		v, _ := store.Get("touched")
		assert.Equal(t, true, v)
	})

	t.Run("a failing migration aborts the chain", func(t *testing.T) {
		backend := newTestBackend()
		seed(t, backend, "m", map[string]any{"a": 1.0})

		var failure error
		store, mgr, _ := newTestManager(t, Options{
			Key:     "m",
			Version: 3,
			Backend: backend,
			OnError: func(err error) { failure = err },
			Migrations: map[int]Migration{
				2: func(map[string]any) (map[string]any, error) {
					return nil, errors.New("schema too old")
				},
				3: func(map[string]any) (map[string]any, error) {
					t.Error("later migration must not run after a failure")
					return nil, nil
				},
			},
		})
		store.Set("prior", true)

		assert.Nil(t, mgr.Load())
		assert.ErrorIs(t, failure, ErrMigrationFailed)

		// Store untouched: no partial initialization.
		_, ok := store.Get("a")
		assert.False(t, ok)
		v, _ := store.Get("prior")
		assert.Equal(t, true, v)
	})

	t.Run("matching versions skip the chain entirely", func(t *testing.T) {
		store, mgr, backend := newTestManager(t, Options{Key: "m", Version: 2})
		store.Set("a", 1.0)
		mgr.Save()

		_, mgr2, _ := newTestManager(t, Options{
			Key:     "m",
			Version: 2,
			Backend: backend,
			Migrations: map[int]Migration{
				2: func(map[string]any) (map[string]any, error) {
					t.Error("migration must not run when versions match")
					return nil, nil
				},
			},
		})
		assert.NotNil(t, mgr2.Load())
	})
}

func TestCompression(t *testing.T) {
	store, mgr, backend := newTestManager(t, Options{Key: "z", Compress: true})
	store.Set("message", strings.Repeat("state ", 100))
	want := store.Snapshot()

	var saved SaveResult
	mgr.OnEvent(func(ev Event) {
		if ev.Type == EventSaved {
			saved = ev.Payload.(SaveResult)
		}
	})
	mgr.Save()

	raw, ok := backend.stored("z")
	require.True(t, ok)
	assert.NotContains(t, raw, "state state", "stored form must not be plain JSON")
	assert.True(t, saved.Compressed)
	assert.Equal(t, len(raw), saved.Size)

	store2, mgr2, _ := newTestManager(t, Options{Key: "z", Compress: true, Backend: backend})
	require.NotNil(t, mgr2.Load())
	assert.Equal(t, want, store2.Snapshot())
}

func TestClear(t *testing.T) {
	store, mgr, backend := newTestManager(t, Options{Key: "k"})
	store.Set("a", 1)
	mgr.Save()

	var cleared bool
	mgr.OnEvent(func(ev Event) {
		if ev.Type == EventCleared {
			cleared = true
		}
	})
	mgr.Clear()

	_, ok := backend.stored("k")
	assert.False(t, ok)
	assert.True(t, cleared)

	// The live store is untouched.
	v, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestEvents(t *testing.T) {
	t.Run("loaded and saved fire with payloads", func(t *testing.T) {
		store, mgr, _ := newTestManager(t, Options{})
		var types []EventType
		mgr.OnEvent(func(ev Event) { types = append(types, ev.Type) })

		store.Set("a", "b")
		mgr.Save()
		mgr.Load()

		assert.Equal(t, []EventType{EventSaved, EventLoaded}, types)
	})

	t.Run("unsubscribing stops delivery", func(t *testing.T) {
		store, mgr, _ := newTestManager(t, Options{})
		fired := 0
		cancel := mgr.OnEvent(func(Event) { fired++ })

		store.Set("a", 1)
		mgr.Save()
		cancel()
		mgr.Save()

		assert.Equal(t, 1, fired)
	})

	t.Run("a panicking handler does not block others", func(t *testing.T) {
		store, mgr, _ := newTestManager(t, Options{})
		secondRan := false
		mgr.OnEvent(func(Event) { panic("bad handler") })
		mgr.OnEvent(func(Event) { secondRan = true })

		store.Set("a", 1)
		require.NotPanics(t, mgr.Save)
		assert.True(t, secondRan)
	})
}

func TestInfo(t *testing.T) {
	t.Run("absent entry", func(t *testing.T) {
		_, mgr, _ := newTestManager(t, Options{})
		assert.Equal(t, Info{}, mgr.Info())
	})

	t.Run("existing entry reports version, timestamp and size", func(t *testing.T) {
		store, mgr, backend := newTestManager(t, Options{Key: "i", Version: 7})
		store.Set("a", 1)
		mgr.Save()

		info := mgr.Info()
		raw, _ := backend.stored("i")
		assert.True(t, info.Exists)
		assert.False(t, info.Corrupt)
		assert.Equal(t, 7, info.Version)
		assert.Equal(t, len(raw), info.Size)
		assert.InDelta(t, time.Now().UnixMilli(), info.Timestamp, float64(5*time.Minute/time.Millisecond))
	})

	t.Run("corrupt entry degrades instead of failing", func(t *testing.T) {
		_, mgr, backend := newTestManager(t, Options{Key: "i"})
		backend.store("i", "not json at all")

		info := mgr.Info()
		assert.True(t, info.Exists)
		assert.True(t, info.Corrupt)
		assert.False(t, info.Unreadable)
	})

	t.Run("backend read failure is unreadable, not absent", func(t *testing.T) {
		store, mgr, backend := newTestManager(t, Options{Key: "i"})
		store.Set("a", 1)
		mgr.Save()

		backend.failGet = true

		info := mgr.Info()
		assert.True(t, info.Unreadable)
		assert.False(t, info.Exists, "existence is unknown, not asserted")
		assert.False(t, info.Corrupt)
	})

	t.Run("reads through compression", func(t *testing.T) {
		store, mgr, _ := newTestManager(t, Options{Key: "i", Version: 2, Compress: true})
		store.Set("a", 1)
		mgr.Save()

		info := mgr.Info()
		assert.True(t, info.Exists)
		assert.Equal(t, 2, info.Version)
	})
}

func TestCustomSerializer(t *testing.T) {
	store, mgr, backend := newTestManager(t, Options{Key: "s", Serializer: prefixSerializer{}})
	store.Set("a", "b")
	mgr.Save()

	raw, _ := backend.stored("s")
	assert.True(t, strings.HasPrefix(raw, "drey|"))

	store2, mgr2, _ := newTestManager(t, Options{Key: "s", Serializer: prefixSerializer{}, Backend: backend})
	require.NotNil(t, mgr2.Load())
	v, _ := store2.Get("a")
	assert.Equal(t, "b", v)
}

// prefixSerializer wraps the JSON serializer with a magic prefix,
// proving the serializer seam is honoured end to end.
type prefixSerializer struct{}

func (prefixSerializer) Marshal(env *Envelope) (string, error) {
	raw, err := (JSONSerializer{}).Marshal(env)
	if err != nil {
		return "", err
	}
	return "drey|" + raw, nil
}

func (prefixSerializer) Unmarshal(raw string) (*Envelope, error) {
	rest, ok := strings.CutPrefix(raw, "drey|")
	if !ok {
		return nil, fmt.Errorf("missing serializer prefix")
	}
	return (JSONSerializer{}).Unmarshal(rest)
}
