package histfile

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gofrs/flock"
)

// Meta is the sidecar metadata kept next to the history log itself
// (at MetaPath(historyPath)): recent session-start markers, used by
// the old-history browser to annotate which gsh process wrote which
// run of entries. Unlike the zsh_history-compatible log lines
// (SchemaVersion 0, no structure beyond "<epoch>:<duration>;cmdline"),
// this is free-form enough to grow new fields, so it's YAML
// (`gopkg.in/yaml.v3`, the same decoder dcosson-h2's own
// internal/config.Config uses for its `~/.h2/config.yaml`) rather
// than another hand-rolled line format.
type Meta struct {
	SchemaVersion int             `yaml:"schema_version"`
	Sessions      []SessionMarker `yaml:"sessions"`
}

// SessionMarker records one gsh process's start, in start-time order.
type SessionMarker struct {
	PID       int       `yaml:"pid"`
	StartedAt time.Time `yaml:"started_at"`
}

// maxSessionMarkers bounds Meta.Sessions so the sidecar file can't
// grow without limit across a long-lived machine's history.
const maxSessionMarkers = 50

const currentSchemaVersion = 1

// MetaPath returns the sidecar metadata path for a given history log
// path.
func MetaPath(historyPath string) string {
	return historyPath + ".meta.yaml"
}

// LoadMeta reads the sidecar metadata at path. A missing file returns
// an empty Meta at the current schema version and no error.
func LoadMeta(path string) (*Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Meta{SchemaVersion: currentSchemaVersion}, nil
		}
		return nil, fmt.Errorf("histfile: read meta: %w", err)
	}
	var m Meta
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("histfile: decode meta: %w", err)
	}
	if m.SchemaVersion == 0 {
		m.SchemaVersion = currentSchemaVersion
	}
	return &m, nil
}

// SaveMeta writes m to path. It takes no lock itself; RecordSessionStart
// calls it while holding the sidecar's own flock (path + ".lock"), which
// is a different lock file from the one Append takes.
func SaveMeta(path string, m *Meta) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("histfile: encode meta: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("histfile: write meta: %w", err)
	}
	return nil
}

// RecordSessionStart appends a SessionMarker for this process to the
// sidecar metadata next to historyPath, trimming to the most recent
// maxSessionMarkers entries. Called once per interactive gsh startup.
func RecordSessionStart(historyPath string, pid int, startedAt time.Time) error {
	metaPath := MetaPath(historyPath)

	fl := flock.New(metaPath + ".lock")
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("histfile: lock meta: %w", err)
	}
	defer fl.Unlock()

	m, err := LoadMeta(metaPath)
	if err != nil {
		return err
	}
	m.Sessions = append(m.Sessions, SessionMarker{PID: pid, StartedAt: startedAt})
	if len(m.Sessions) > maxSessionMarkers {
		m.Sessions = m.Sessions[len(m.Sessions)-maxSessionMarkers:]
	}
	return SaveMeta(metaPath, m)
}
