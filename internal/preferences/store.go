// Package preferences persists the small set of user-facing settings
// that must survive a restart — currently just the active wake-word
// selection — as a flat JSON document, per spec.md §4.4. It follows the
// same load-with-empty-fallback discipline the connection protocol uses
// elsewhere: a missing or corrupt file is never a fatal condition.
package preferences

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// State is the persisted document shape.
type State struct {
	ActiveWakeWords []string `json:"active_wake_words"`
}

// Store guards State behind a single lock, matching ServerState's
// "one interior lock around preferences I/O" requirement (spec.md §4.7).
type Store struct {
	mu   sync.Mutex
	path string
	log  zerolog.Logger
}

func New(path string, log zerolog.Logger) *Store {
	return &Store{path: path, log: log.With().Str("component", "preferences").Logger()}
}

// Load reads the preferences file. A missing file or a parse failure
// both yield an empty State rather than an error, since preferences are
// advisory: the satellite must still start without them.
func (s *Store) Load() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", s.path).Msg("preferences read failed, starting empty")
		}
		return State{}
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("preferences parse failed, starting empty")
		return State{}
	}
	return st
}

// Save writes the document atomically: it writes to a temp file in the
// same directory and renames over the target, so a crash mid-write never
// leaves a half-written preferences file. A failure here is logged but
// does not propagate — spec.md §4.4 treats it as non-fatal.
func (s *Store) Save(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(st); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("preferences write failed")
	}
}

func (s *Store) save(st State) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".preferences-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}

// MergeActive intersects the saved active wake words with the set that
// is actually available, per spec.md §4.4's "saved ∩ available wins".
func MergeActive(saved, available []string) []string {
	avail := make(map[string]bool, len(available))
	for _, id := range available {
		avail[id] = true
	}

	var out []string
	for _, id := range saved {
		if avail[id] {
			out = append(out, id)
		}
	}
	return out
}
