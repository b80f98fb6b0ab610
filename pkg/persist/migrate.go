package persist

import "fmt"

// Migration transforms a payload from the previous schema version's
// shape to the shape of the version it is registered under. Migrations
// must be pure: no I/O, no mutation of the input's aliases kept
// elsewhere, same output for the same input.
type Migration func(tree map[string]any) (map[string]any, error)

// MigrationStep is the payload of an EventMigrated, one per applied
// migration.
type MigrationStep struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// migrate walks the payload from its stored version up to the target,
// applying each registered migration in strictly ascending order. An
// unregistered intermediate version is an identity step and emits no
// event. Any failing step aborts the whole chain.
func (m *Manager) migrate(tree map[string]any, from int) (map[string]any, error) {
	for v := from + 1; v <= m.opts.Version; v++ {
		fn, ok := m.opts.Migrations[v]
		if !ok {
			continue
		}

		next, err := fn(tree)
		if err != nil {
			return nil, fmt.Errorf("%w: step to version %d: %v", ErrMigrationFailed, v, err)
		}
		if next == nil {
			return nil, fmt.Errorf("%w: step to version %d returned no tree", ErrMigrationFailed, v)
		}

		tree = next
		m.events.emit(Event{Type: EventMigrated, Payload: MigrationStep{From: v - 1, To: v}})
	}
	return tree, nil
}
