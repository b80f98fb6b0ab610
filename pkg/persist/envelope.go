package persist

import (
	"encoding/json"
	"fmt"
)

// Envelope is the wire form of a persisted snapshot.
//
// Version is the schema version the payload conforms to and is
// monotonically non-decreasing for a given configuration. Checksum,
// when present, is a deterministic function of Data alone and must
// match on every successful load.
type Envelope struct {
	Version   int            `json:"version"`
	Timestamp int64          `json:"timestamp"` // epoch milliseconds
	Data      map[string]any `json:"data"`
	Checksum  string         `json:"checksum,omitempty"`
}

// Serializer converts envelopes to and from their transportable string
// form. Implementations must be lossless for JSON-shaped trees.
type Serializer interface {
	Marshal(env *Envelope) (string, error)
	Unmarshal(raw string) (*Envelope, error)
}

// JSONSerializer is the default Serializer: standard library JSON.
type JSONSerializer struct{}

// Marshal encodes the envelope as compact JSON.
func (JSONSerializer) Marshal(env *Envelope) (string, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return string(data), nil
}

// Unmarshal decodes an envelope from JSON. A payload that decodes but
// lacks the data field is a shape mismatch, reported as an error.
func (JSONSerializer) Unmarshal(raw string) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("envelope has no data field")
	}
	return &env, nil
}
