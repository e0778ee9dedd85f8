package voiceassistant

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/antoniostano/samantha/internal/audioplayer"
	"github.com/antoniostano/samantha/internal/preferences"
	"github.com/antoniostano/samantha/internal/state"
	"github.com/antoniostano/samantha/internal/wire"
)

// controlledBackend lets a test decide exactly when a Play call's
// backend.Run returns, so assertions never race the audio player's
// own goroutine.
type controlledBackend struct {
	mu      sync.Mutex
	release chan struct{}
	plays   []string
}

func newControlledBackend() *controlledBackend {
	return &controlledBackend{release: make(chan struct{}, 64)}
}

func (b *controlledBackend) Run(ctx context.Context, uri string) error {
	b.mu.Lock()
	b.plays = append(b.plays, uri)
	b.mu.Unlock()
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *controlledBackend) finishOne() { b.release <- struct{}{} }

func (b *controlledBackend) played() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.plays))
	copy(out, b.plays)
	return out
}

// harness drives an FSM whose schedule function hands every posted-back
// closure to scheduleCh instead of running it inline, so a test can pop
// and execute each one on its own goroutine — deterministic ordering
// without racing the audio player's background goroutine.
type harness struct {
	fsm       *FSM
	emitted   []any
	tts       *controlledBackend
	music     *controlledBackend
	st        *state.Server
	scheduleCh chan func()
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	prefs := preferences.New(filepath.Join(dir, "prefs.json"), zerolog.Nop())

	ttsBackend := newControlledBackend()
	musicBackend := newControlledBackend()
	ttsPlayer := audioplayer.New("tts", ttsBackend, zerolog.Nop())
	musicPlayer := audioplayer.New("music", musicBackend, zerolog.Nop())

	st := state.New("test-dev", "aa:bb:cc:dd:ee:ff", 2, "stop_word", prefs, musicPlayer, ttsPlayer, zerolog.Nop(), nil)
	st.TimerFinishedSoundURI = "file:///timer.mp3"

	h := &harness{tts: ttsBackend, music: musicBackend, st: st, scheduleCh: make(chan func(), 16)}
	emit := func(msg any) { h.emitted = append(h.emitted, msg) }
	schedule := func(fn func()) { h.scheduleCh <- fn }

	h.fsm = New(st, emit, schedule, nil, nil, zerolog.Nop(), nil, nil)
	return h
}

// runScheduled blocks until one posted-back closure is available, then
// runs it on the calling (test) goroutine.
func (h *harness) runScheduled(t *testing.T) {
	t.Helper()
	select {
	case fn := <-h.scheduleCh:
		fn()
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a scheduled continuation")
	}
}

func TestWakeStreamTTSScenario(t *testing.T) {
	h := newHarness(t)

	h.fsm.Wakeup("hey jarvis")
	h.fsm.MicChunk(make([]byte, 2048))
	h.fsm.MicChunk(make([]byte, 2048))
	h.fsm.MicChunk(make([]byte, 2048))
	h.fsm.HandleEvent(wire.VoiceAssistantEventResponse{EventType: wire.EventSTTVADEnd})
	h.fsm.HandleEvent(wire.VoiceAssistantEventResponse{
		EventType: wire.EventTTSEnd,
		Data:      map[string]string{"url": "http://x/a.mp3"},
	})
	h.tts.finishOne()
	h.runScheduled(t)

	require.IsType(t, wire.VoiceAssistantRequest{}, h.emitted[0])
	req := h.emitted[0].(wire.VoiceAssistantRequest)
	require.True(t, req.Start)
	require.Equal(t, "hey jarvis", req.WakeWordPhrase)

	var audioCount int
	var sawFinished bool
	for _, m := range h.emitted[1:] {
		switch m.(type) {
		case wire.VoiceAssistantAudio:
			audioCount++
		case wire.VoiceAssistantAnnounceFinished:
			sawFinished = true
		}
	}
	require.Equal(t, 3, audioCount)
	require.True(t, sawFinished)

	require.False(t, h.fsm.IsStreamingAudio())
	require.Equal(t, PhaseIdle, h.fsm.VoicePhase())
}

func TestAnnouncementWithStartConversation(t *testing.T) {
	h := newHarness(t)

	h.fsm.HandleAnnounce(wire.VoiceAssistantAnnounceRequest{
		Text:              "dinner",
		MediaID:           "http://x/b.mp3",
		StartConversation: true,
	})
	h.tts.finishOne()
	h.runScheduled(t)

	require.Equal(t, []string{"http://x/b.mp3"}, h.tts.played())

	var sawFinished, sawStart bool
	var finishedIdx, startIdx int
	for i, m := range h.emitted {
		switch m.(type) {
		case wire.VoiceAssistantAnnounceFinished:
			sawFinished = true
			finishedIdx = i
		case wire.VoiceAssistantRequest:
			sawStart = true
			startIdx = i
		}
	}
	require.True(t, sawFinished)
	require.True(t, sawStart)
	require.Less(t, finishedIdx, startIdx)
	require.True(t, h.fsm.IsStreamingAudio())
}

func TestTimerFinishedStoppedByWake(t *testing.T) {
	h := newHarness(t)

	// Make the ring-to-ring delay synchronous so the second ring's Play
	// call is issued deterministically within this test.
	orig := ringDelay
	ringDelay = func(d time.Duration, fn func()) { fn() }
	defer func() { ringDelay = orig }()

	h.fsm.HandleTimerEvent(wire.VoiceAssistantTimerEventResponse{EventType: wire.TimerEventFinished})
	require.Eventually(t, func() bool { return len(h.tts.played()) == 1 }, time.Second, time.Millisecond)
	require.Equal(t, []string{"file:///timer.mp3"}, h.tts.played())

	h.tts.finishOne()  // first ring completes
	h.runScheduled(t)  // -> scheduleRingDelay -> (sync) -> schedules the next check
	h.runScheduled(t)  // -> ringOnce() issues the second ring's Play, still in flight

	h.fsm.Wakeup("ok nabu") // interpreted as a stop since a timer is ringing

	require.False(t, h.fsm.TimerFinished())
	for _, m := range h.emitted {
		_, isRequest := m.(wire.VoiceAssistantRequest)
		require.False(t, isRequest, "no VoiceAssistantRequest should be emitted for a wake that stops a timer")
	}
}

func TestRunEndSynthesizesFinishedWhenTTSNeverPlayed(t *testing.T) {
	h := newHarness(t)

	h.fsm.HandleEvent(wire.VoiceAssistantEventResponse{EventType: wire.EventRunStart, Data: map[string]string{}})
	h.fsm.HandleEvent(wire.VoiceAssistantEventResponse{EventType: wire.EventRunEnd})

	var count int
	for _, m := range h.emitted {
		if _, ok := m.(wire.VoiceAssistantAnnounceFinished); ok {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestStopIsIdempotentWithNaturalCompletion(t *testing.T) {
	h := newHarness(t)

	h.fsm.HandleAnnounce(wire.VoiceAssistantAnnounceRequest{MediaID: "http://x/c.mp3"})
	h.fsm.Stop() // cancels the in-flight Play; ttsFinished() runs synchronously here

	h.tts.finishOne() // the cancelled Run's own completion still fires on_done
	h.runScheduled(t) // that on_done's continuation must not double-emit

	var count int
	for _, m := range h.emitted {
		if _, ok := m.(wire.VoiceAssistantAnnounceFinished); ok {
			count++
		}
	}
	require.Equal(t, 1, count, "AnnounceFinished must be emitted exactly once even when Stop races natural completion")
}

func TestMaxActiveWakeWordsInvariantHoldsThroughStopWordOverlay(t *testing.T) {
	h := newHarness(t)
	h.st.SetExternalWakeWords([]state.ExternalWakeWord{{ID: "a"}, {ID: "b"}})
	h.st.SetActiveWakeWords([]string{"a", "b"})
	h.st.ActivateStopWord()
	require.LessOrEqual(t, len(h.st.ActiveWakeWords()), 2)
}
