package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/antoniostano/samantha/internal/audioplayer"
	"github.com/antoniostano/samantha/internal/preferences"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	prefs := preferences.New(filepath.Join(dir, "prefs.json"), zerolog.Nop())
	music := audioplayer.New("music", fakeBackend{}, zerolog.Nop())
	tts := audioplayer.New("tts", fakeBackend{}, zerolog.Nop())
	return New("test-dev", "aa:bb:cc:dd:ee:ff", 2, "stop", prefs, music, tts, zerolog.Nop(), nil)
}

// fakeBackend completes immediately, for tests that don't care about
// playback timing.
type fakeBackend struct{}

func (fakeBackend) Run(ctx context.Context, uri string) error {
	return nil
}

func TestSetActiveWakeWordsFiltersUnknownAndCaps(t *testing.T) {
	s := newTestServer(t)
	s.available = map[string]AvailableWakeWord{
		"okay_nabu": {ID: "okay_nabu"},
		"alexa":     {ID: "alexa"},
		"jarvis":    {ID: "jarvis"},
	}

	kept := s.SetActiveWakeWords([]string{"alexa", "unknown_id", "jarvis"})
	require.ElementsMatch(t, []string{"alexa", "jarvis"}, kept)
	require.ElementsMatch(t, []string{"alexa", "jarvis"}, s.ActiveWakeWords())
	require.True(t, s.WakeWordsChanged())
	require.False(t, s.WakeWordsChanged(), "dirty flag should clear after being read")
}

func TestSetActiveWakeWordsCapsAtMax(t *testing.T) {
	s := newTestServer(t)
	s.available = map[string]AvailableWakeWord{
		"a": {ID: "a"}, "b": {ID: "b"}, "c": {ID: "c"},
	}
	kept := s.SetActiveWakeWords([]string{"a", "b", "c"})
	require.Len(t, kept, 2)
}

func TestStopWordOverlayDoesNotAffectActiveWakeWords(t *testing.T) {
	s := newTestServer(t)
	s.available = map[string]AvailableWakeWord{"okay_nabu": {ID: "okay_nabu"}}
	s.SetActiveWakeWords([]string{"okay_nabu"})

	s.ActivateStopWord()
	require.True(t, s.StopWordActive())
	require.ElementsMatch(t, []string{"okay_nabu"}, s.ActiveWakeWords())

	s.DeactivateStopWord()
	require.False(t, s.StopWordActive())
}

func TestDuckUnduckRestoresPriorVolume(t *testing.T) {
	s := newTestServer(t)
	s.MusicPlayer.SetVolume(80)

	s.Duck()
	require.Less(t, s.MusicPlayer.Volume(), 80)

	s.Unduck()
	require.Equal(t, 80, s.MusicPlayer.Volume())
}

func TestSatelliteBackReferenceClearedOnlyIfSelf(t *testing.T) {
	s := newTestServer(t)
	a := &fakeSatellite{}
	b := &fakeSatellite{}

	s.SetSatellite(a)
	require.True(t, s.HasActiveSatellite())

	s.SetSatellite(b)
	s.ClearSatelliteIfSelf(a)
	require.True(t, s.HasActiveSatellite(), "clearing a stale reference must not evict the current one")

	s.ClearSatelliteIfSelf(b)
	require.False(t, s.HasActiveSatellite())
}

type fakeSatellite struct{}

func (*fakeSatellite) Wakeup(string)              {}
func (*fakeSatellite) Stop()                      {}
func (*fakeSatellite) IsStreamingAudio() bool      { return false }
func (*fakeSatellite) Announce(string, string)     {}

func TestPreferencesMergeOnLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	prefs := preferences.New(filepath.Join(dir, "prefs.json"), zerolog.Nop())
	prefs.Save(preferences.State{ActiveWakeWords: []string{"alexa", "stale"}})

	music := audioplayer.New("music", fakeBackend{}, zerolog.Nop())
	tts := audioplayer.New("tts", fakeBackend{}, zerolog.Nop())
	s := New("d", "mac", 2, "stop", prefs, music, tts, zerolog.Nop(), nil)
	s.available = map[string]AvailableWakeWord{"alexa": {ID: "alexa"}, "jarvis": {ID: "jarvis"}}

	saved := prefs.Load().ActiveWakeWords
	chosen := preferences.MergeActive(saved, []string{"alexa", "jarvis"})
	require.Equal(t, []string{"alexa"}, chosen)
}
