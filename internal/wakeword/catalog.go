// Package wakeword maintains the catalog of wake-word models available
// on this host, per spec.md §4.5: a directory scan at startup builds an
// immutable snapshot, and a watcher rebuilds it whenever the directory
// changes on disk.
package wakeword

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Model describes one installed wake-word engine.
type Model struct {
	ID               string
	Phrase           string
	TrainedLanguages []string
	Engine           string
}

// descriptor is the on-disk shape of a model file; the id comes from
// the filename stem, not from inside the file.
type descriptor struct {
	Phrase           string   `json:"phrase"`
	TrainedLanguages []string `json:"trained_languages"`
	Engine           string   `json:"engine"`
}

// PreferredID is the model chosen as the default active set when no
// preferences have been saved yet, per spec.md §4.5.
const PreferredID = "okay_nabu"

// Catalog is an immutable snapshot of the models found on disk at the
// moment it was built. Rebuilding produces a new Catalog rather than
// mutating this one.
type Catalog struct {
	models []Model
	byID   map[string]Model
}

// Scan reads every descriptor file in dir and returns the resulting
// catalog. Descriptor files that fail to parse are skipped and logged,
// not fatal — one bad file should not take down the whole catalog.
func Scan(dir string, log zerolog.Logger) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return &Catalog{byID: map[string]Model{}}, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	c := &Catalog{byID: map[string]Model{}}
	for _, name := range names {
		full := filepath.Join(dir, name)
		data, err := os.ReadFile(full)
		if err != nil {
			log.Warn().Err(err).Str("file", full).Msg("wake word descriptor unreadable, skipping")
			continue
		}
		var d descriptor
		if err := json.Unmarshal(data, &d); err != nil {
			log.Warn().Err(err).Str("file", full).Msg("wake word descriptor invalid, skipping")
			continue
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		m := Model{ID: id, Phrase: d.Phrase, TrainedLanguages: d.TrainedLanguages, Engine: d.Engine}
		c.models = append(c.models, m)
		c.byID[id] = m
	}
	return c, nil
}

// Models returns every known model, in directory-enumeration order.
func (c *Catalog) Models() []Model {
	out := make([]Model, len(c.models))
	copy(out, c.models)
	return out
}

// IDs returns every known model id, in the same order as Models.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.models))
	for i, m := range c.models {
		ids[i] = m.ID
	}
	return ids
}

func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

func (c *Catalog) Get(id string) (Model, bool) {
	m, ok := c.byID[id]
	return m, ok
}

// DefaultActive picks the preferred id if it's present in the catalog,
// else the first model by enumeration order, else none.
func (c *Catalog) DefaultActive() []string {
	if c.Has(PreferredID) {
		return []string{PreferredID}
	}
	if len(c.models) > 0 {
		return []string{c.models[0].ID}
	}
	return nil
}
