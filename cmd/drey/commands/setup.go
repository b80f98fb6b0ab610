package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/drey/internal/config"
	"github.com/dyluth/drey/internal/printer"
	"github.com/dyluth/drey/pkg/backend"
	"github.com/dyluth/drey/pkg/persist"
	"github.com/dyluth/drey/pkg/state"
)

// session bundles everything a command needs to talk to a persisted
// snapshot. Commands build one from drey.yml and must call close when
// done.
type session struct {
	cfg     *config.DreyConfig
	store   *state.Store
	manager *persist.Manager
	close   func()
}

// newSession loads drey.yml and wires a fresh store and manager to the
// configured backend. Load failures come back as rich printer errors
// ready for Cobra.
func newSession(path string) (*session, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, printer.Error(
			"Failed to load configuration",
			err.Error(),
			[]string{
				fmt.Sprintf("Check that %s exists and is valid YAML", path),
				"Pass --config to point at a different file",
			},
		)
	}

	b, closeBackend, err := newBackend(cfg)
	if err != nil {
		return nil, printer.Error("Failed to open storage backend", err.Error(), nil)
	}

	store := state.NewStore()
	manager := persist.NewManager(store, persist.Options{
		Key:      cfg.Key,
		Version:  cfg.Version,
		Backend:  b,
		Compress: cfg.Compress,
		Checksum: cfg.Checksum,
		OnError:  func(error) {}, // commands report failures themselves
	})

	return &session{
		cfg:     cfg,
		store:   store,
		manager: manager,
		close: func() {
			manager.Close()
			closeBackend()
		},
	}, nil
}

// newBackend builds the backend selected by drey.yml. The returned
// function releases any held connection.
func newBackend(cfg *config.DreyConfig) (persist.Backend, func(), error) {
	switch cfg.Backend.Type {
	case config.BackendMemory:
		return backend.NewMemory(), func() {}, nil

	case config.BackendFile:
		f, err := backend.NewFile(cfg.Backend.Path)
		if err != nil {
			return nil, nil, err
		}
		return f, func() {}, nil

	case config.BackendRedis:
		r := backend.NewRedis(&redis.Options{
			Addr:     cfg.Backend.Addr,
			Password: cfg.Backend.Password,
			DB:       cfg.Backend.DB,
		})
		return r, func() { r.Close() }, nil

	default:
		// Unreachable after config validation.
		return nil, nil, fmt.Errorf("unknown backend type: %s", cfg.Backend.Type)
	}
}

// writeJSON pretty-prints a value for terminal consumption.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format value as JSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
