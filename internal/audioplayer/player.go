// Package audioplayer implements the playback handle contract of
// spec.md §4.6: play/stop/pause/resume/set_volume, with an on_done
// callback that fires exactly once per play call regardless of how
// playback ended. It mirrors the teacher's provider-interface-plus-mock
// split (internal/voice/interfaces.go and mock.go in the source
// project) applied to audio playback rather than STT/TTS.
package audioplayer

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Backend performs the actual decode/output work for one play call. A
// concrete implementation shells out to a media backend; tests use a
// fake that completes deterministically.
type Backend interface {
	// Run blocks until playback completes, the context is canceled, or
	// an error occurs. It must return promptly after ctx.Done().
	Run(ctx context.Context, uri string) error
}

// Player is one playback lane (e.g. "music" or "tts"). The two lanes
// used by the voice session are fully independent instances, per
// spec.md §4.6.
type Player struct {
	name    string
	backend Backend
	log     zerolog.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	playing   bool
	paused    bool
	volume    int
	pauseCh   chan struct{}
	resumeCh  chan struct{}
}

func New(name string, backend Backend, log zerolog.Logger) *Player {
	return &Player{
		name:    name,
		backend: backend,
		log:     log.With().Str("component", "audioplayer").Str("player", name).Logger(),
		volume:  100,
	}
}

// Play begins playback of uri. If a previous run is in flight its
// context is canceled and the new run starts at once; the previous
// run's on_done still fires, with no argument, when its backend call
// returns, which may be after the new run has started.
func (p *Player) Play(uri string, onDone func()) {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.playing = true
	p.paused = false
	p.mu.Unlock()

	go p.run(ctx, uri, onDone)
}

func (p *Player) run(ctx context.Context, uri string, onDone func()) {
	defer func() {
		p.mu.Lock()
		p.playing = false
		p.mu.Unlock()
		if onDone != nil {
			onDone()
		}
	}()

	if err := p.backend.Run(ctx, uri); err != nil && ctx.Err() == nil {
		p.log.Warn().Err(err).Str("uri", uri).Msg("playback failed, treating as completed")
	}
}

// Stop halts playback immediately; the in-flight on_done fires as for
// natural completion.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
	p.playing = false
}

// Pause and Resume are idempotent: calling either when already in that
// state is a no-op. The concrete backend is expected to honor the
// context it was given; this handle only tracks the reported state
// since the hand-off to the backend is via context cancellation, not a
// pause primitive — real pause/resume semantics belong to the backend
// that owns the decode loop.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
}

// SetVolume accepts 0..100; out-of-range values are clamped.
func (p *Player) SetVolume(v int) {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	p.mu.Lock()
	p.volume = v
	p.mu.Unlock()
}

func (p *Player) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *Player) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}
