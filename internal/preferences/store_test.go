package preferences

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsEmptyState(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "nested", "preferences.json"), zerolog.Nop())

	st := s.Load()
	require.Empty(t, st.ActiveWakeWords)
}

func TestLoadCorruptFileReturnsEmptyState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preferences.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := New(path, zerolog.Nop())
	st := s.Load()
	require.Empty(t, st.ActiveWakeWords)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "preferences.json")
	s := New(path, zerolog.Nop())

	s.Save(State{ActiveWakeWords: []string{"okay_nabu", "hey_jarvis"}})

	loaded := s.Load()
	require.Equal(t, []string{"okay_nabu", "hey_jarvis"}, loaded.ActiveWakeWords)
}

func TestSaveCreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "c", "preferences.json")
	s := New(path, zerolog.Nop())

	s.Save(State{ActiveWakeWords: []string{"okay_nabu"}})

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestMergeActiveIntersectsSavedAndAvailable(t *testing.T) {
	saved := []string{"okay_nabu", "ghost_id", "hey_jarvis"}
	available := []string{"hey_jarvis", "okay_nabu"}

	got := MergeActive(saved, available)
	require.Equal(t, []string{"okay_nabu", "hey_jarvis"}, got)
}

func TestMergeActiveEmptySaved(t *testing.T) {
	got := MergeActive(nil, []string{"okay_nabu"})
	require.Empty(t, got)
}
