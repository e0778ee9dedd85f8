package wakeword

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher rescans dir whenever a descriptor file is created, written, or
// removed, and hands the rebuilt catalog to onReload. It follows the
// same fsnotify watch-loop shape RedClaus-cortex's shader watcher uses
// for hot-reloading source files.
type Watcher struct {
	dir      string
	log      zerolog.Logger
	watcher  *fsnotify.Watcher
	done     chan struct{}
	onReload func(*Catalog)
}

// NewWatcher starts watching dir and returns the watcher. Call Close to
// stop it.
func NewWatcher(dir string, log zerolog.Logger, onReload func(*Catalog)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		dir:      dir,
		log:      log.With().Str("component", "wakeword").Logger(),
		watcher:  fw,
		done:     make(chan struct{}),
		onReload: onReload,
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != ".json" {
				continue
			}
			if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) {
				continue
			}
			cat, err := Scan(w.dir, w.log)
			if err != nil {
				w.log.Warn().Err(err).Msg("wake word catalog rescan failed")
				continue
			}
			w.log.Info().Int("models", len(cat.Models())).Msg("wake word catalog reloaded")
			w.onReload(cat)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("wake word watcher error")
		case <-w.done:
			return
		}
	}
}

// Close stops the watch loop and releases the underlying inotify/kqueue
// handle.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
