package persist

import (
	"fmt"
	"sync"
	"time"

	"github.com/dyluth/drey/pkg/state"
)

// Manager ties a state.Store to a Backend: it auto-saves debounced
// snapshots and restores them on demand. Create instances with
// NewManager and release them with Close.
type Manager struct {
	store  *state.Store
	opts   Options
	events emitter

	mu          sync.Mutex
	timer       *time.Timer
	enabled     bool
	unsubscribe func()
}

// NewManager creates a Manager observing store. The wildcard
// subscription is registered immediately, so auto-save is live from the
// first change; call SetEnabled(false) to suspend it.
func NewManager(store *state.Store, opts Options) *Manager {
	m := &Manager{
		store:   store,
		opts:    opts.withDefaults(),
		enabled: true,
	}
	m.unsubscribe = store.Subscribe(state.Wildcard, func(state.Change) {
		m.scheduleSave()
	})
	return m
}

// OnEvent registers a handler for Manager lifecycle events. Handlers
// run synchronously inside the operation that produced the event. The
// returned function removes the registration.
func (m *Manager) OnEvent(handler EventHandler) func() {
	return m.events.subscribe(handler)
}

// Initialize attempts to restore a previously persisted snapshot.
// It reports whether a snapshot was restored. Failure - including the
// entry simply not existing - is never fatal: errors go through the
// usual error policy and the store keeps its current (default) state.
func (m *Manager) Initialize() bool {
	return m.Load() != nil
}

// Save snapshots the store and writes it through the pipeline:
// filter → envelope → serialize → compress → backend. It never returns
// an error; failures are routed to the error callback and broadcast as
// EventError, leaving the previously persisted entry untouched since
// the backend write is the last step. Save is a no-op while disabled.
func (m *Manager) Save() {
	m.mu.Lock()
	if !m.enabled {
		m.mu.Unlock()
		return
	}
	m.stopTimerLocked()
	m.mu.Unlock()

	payload := applyFilter(m.store.Snapshot(), m.opts.Include, m.opts.Exclude)

	env := &Envelope{
		Version:   m.opts.Version,
		Timestamp: time.Now().UnixMilli(),
		Data:      payload,
	}
	if m.opts.Checksum {
		sum, err := checksumTree(payload)
		if err != nil {
			m.fail(fmt.Errorf("save: %w", err))
			return
		}
		env.Checksum = sum
	}

	raw, err := m.opts.Serializer.Marshal(env)
	if err != nil {
		m.fail(fmt.Errorf("save: %w: %v", ErrCorruptEntry, err))
		return
	}
	if m.opts.Compress {
		if raw, err = compressEntry(raw); err != nil {
			m.fail(fmt.Errorf("save: %w", err))
			return
		}
	}

	if err := m.opts.Backend.SetItem(m.opts.Key, raw); err != nil {
		m.fail(fmt.Errorf("save: %w: %v", ErrBackendUnavailable, err))
		return
	}

	m.events.emit(Event{Type: EventSaved, Payload: SaveResult{
		Size:       len(raw),
		Compressed: m.opts.Compress,
	}})
}

// Load reads, verifies and migrates the persisted snapshot, then hands
// it to the store in a single Initialize call. It returns the restored
// tree, or nil when the entry is absent or any step fails - the store
// is never partially initialized and keeps its prior state on failure.
func (m *Manager) Load() map[string]any {
	tree, err := m.load()
	if err != nil {
		m.fail(fmt.Errorf("load: %w", err))
		return nil
	}
	if tree == nil {
		return nil
	}

	m.store.Initialize(tree)
	m.events.emit(Event{Type: EventLoaded, Payload: tree})
	return tree
}

// load runs the read side of the pipeline up to, but not including,
// store initialization. (nil, nil) means no entry exists.
func (m *Manager) load() (map[string]any, error) {
	raw, ok, err := m.opts.Backend.GetItem(m.opts.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if !ok {
		return nil, nil
	}

	if m.opts.Compress {
		if raw, err = decompressEntry(raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
		}
	}

	env, err := m.opts.Serializer.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	if env.Version < 1 {
		return nil, fmt.Errorf("%w: invalid schema version %d", ErrCorruptEntry, env.Version)
	}

	if env.Checksum != "" {
		sum, err := checksumTree(env.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
		}
		if sum != env.Checksum {
			return nil, fmt.Errorf("%w: stored %s, computed %s", ErrIntegrityMismatch, env.Checksum, sum)
		}
	}

	tree := env.Data
	if env.Version < m.opts.Version {
		if tree, err = m.migrate(tree, env.Version); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

// Clear unconditionally removes the persisted entry. The live store is
// not touched.
func (m *Manager) Clear() {
	if err := m.opts.Backend.RemoveItem(m.opts.Key); err != nil {
		m.fail(fmt.Errorf("clear: %w: %v", ErrBackendUnavailable, err))
		return
	}
	m.events.emit(Event{Type: EventCleared})
}

// SetEnabled turns auto-save and Save on or off. Disabling cancels a
// pending debounced save immediately; it cannot recall a save that has
// already fired.
func (m *Manager) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
	if !enabled {
		m.stopTimerLocked()
	}
}

// Enabled reports whether saving is currently enabled.
func (m *Manager) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// Flush runs a pending debounced save immediately. It is a no-op when
// nothing is pending, making it safe to call unconditionally on
// shutdown paths.
func (m *Manager) Flush() {
	m.mu.Lock()
	pending := m.timer != nil
	m.stopTimerLocked()
	m.mu.Unlock()

	if pending {
		m.Save()
	}
}

// Close detaches the Manager from the store and cancels any pending
// save. Pending changes are not flushed; call Flush first if they
// should be. Implements io.Closer.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.stopTimerLocked()
	unsub := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	return nil
}

// scheduleSave (re)arms the debounce timer. Only the most recent timer
// survives, so a burst of changes produces exactly one save reflecting
// the last state.
func (m *Manager) scheduleSave() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled {
		return
	}
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.opts.Debounce, m.Save)
}

// stopTimerLocked cancels the pending debounce timer. Caller holds mu.
func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// fail applies the error policy: route to the callback, then broadcast.
func (m *Manager) fail(err error) {
	m.opts.OnError(err)
	m.events.emit(Event{Type: EventError, Payload: err})
}
