package persist

import "github.com/tidwall/gjson"

// Info describes the persisted entry without mutating anything.
type Info struct {
	// Exists reports whether an entry is present at all.
	Exists bool `json:"exists"`

	// Size is the stored size in bytes (after compression, if enabled).
	Size int `json:"size"`

	// Version and Timestamp are read from the stored envelope.
	Version   int   `json:"version"`
	Timestamp int64 `json:"timestamp"`

	// Corrupt is set instead of failing when an entry exists but
	// cannot be decoded.
	Corrupt bool `json:"corrupt"`

	// Unreadable is set when the backend read itself failed, leaving
	// existence unknown. Exists is false in that case because nothing
	// is known, not because the entry is absent.
	Unreadable bool `json:"unreadable"`
}

// Info inspects the persisted entry. It peeks at the envelope's version
// and timestamp fields without decoding the full payload, and degrades
// to Unreadable or Corrupt rather than reporting an error. Callers
// should check Unreadable before trusting Exists: a failed backend read
// cannot tell absent from present.
func (m *Manager) Info() Info {
	raw, ok, err := m.opts.Backend.GetItem(m.opts.Key)
	if err != nil {
		return Info{Unreadable: true}
	}
	if !ok {
		return Info{}
	}

	info := Info{Exists: true, Size: len(raw)}

	if m.opts.Compress {
		if raw, err = decompressEntry(raw); err != nil {
			info.Corrupt = true
			return info
		}
	}

	if !gjson.Valid(raw) {
		info.Corrupt = true
		return info
	}
	version := gjson.Get(raw, "version")
	if !version.Exists() {
		info.Corrupt = true
		return info
	}

	info.Version = int(version.Int())
	info.Timestamp = gjson.Get(raw, "timestamp").Int()
	return info
}
