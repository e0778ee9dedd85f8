package wakeword

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnNewDescriptor(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "hey_jarvis.json", `{"phrase":"Hey Jarvis"}`)

	reloaded := make(chan *Catalog, 4)
	w, err := NewWatcher(dir, zerolog.Nop(), func(c *Catalog) { reloaded <- c })
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "okay_nabu.json"), []byte(`{"phrase":"Okay Nabu"}`), 0o644))

	select {
	case cat := <-reloaded:
		require.True(t, cat.Has("okay_nabu"))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
