// Package voiceassistant implements the voice session state machine of
// spec.md §4.9 (component C9): the wake -> stream -> STT end -> intent
// -> TTS loop, announcement sequencing, and the timer-finished ringing
// loop. One FSM is created per ConnectionSession and discarded with it.
//
// Every entry point here is expected to run on the owning session's
// single core goroutine (internal/satellite serializes all calls onto
// it); completion callbacks fired from another goroutine — audio
// player on_done — must be handed to the schedule function supplied at
// construction so they rejoin that same serialized stream, per
// spec.md §5's "posted back to the core thread" requirement.
package voiceassistant

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/antoniostano/samantha/internal/observability"
	"github.com/antoniostano/samantha/internal/runlog"
	"github.com/antoniostano/samantha/internal/state"
	"github.com/antoniostano/samantha/internal/wire"
)

// Phase is the voice_phase field of spec.md §3's ConnectionSession.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseStreaming     Phase = "streaming"
	PhaseAwaitingTTS   Phase = "awaiting_tts"
	PhasePlayingTTS    Phase = "playing_tts"
	PhaseTimerRinging  Phase = "timer_ringing"
)

const ringingInterval = time.Second

// FSM drives one connection's voice-assistant session.
type FSM struct {
	state   *state.Server
	emit    func(msg any)
	schedule func(func())
	micStart func()
	micStop  func()

	log     zerolog.Logger
	metrics *observability.Metrics
	runs    *runlog.Manager

	voicePhase           Phase
	isStreamingAudio     bool
	pendingTTSURI        string
	ttsPlayed            bool
	continueConversation bool
	timerFinished        bool
	finishedEmitted      bool
	aborted              bool
	currentRunID         string

	wakeAt      time.Time
	sttEndAt    time.Time
	intentEndAt time.Time
}

// New builds an FSM bound to one connection.
//
// emit queues an outbound message on the owning session's current
// batch. schedule posts a closure back onto that session's serialized
// loop — used for every audio-player completion callback. micStart and
// micStop drive the external audio-capture collaborator; either may be
// nil in tests.
func New(st *state.Server, emit func(any), schedule func(func()), micStart, micStop func(), log zerolog.Logger, metrics *observability.Metrics, runs *runlog.Manager) *FSM {
	return &FSM{
		state:      st,
		emit:       emit,
		schedule:   schedule,
		micStart:   micStart,
		micStop:    micStop,
		log:        log.With().Str("component", "voiceassistant").Logger(),
		metrics:    metrics,
		runs:       runs,
		voicePhase: PhaseIdle,
	}
}

func (f *FSM) VoicePhase() Phase         { return f.voicePhase }
func (f *FSM) IsStreamingAudio() bool    { return f.isStreamingAudio }
func (f *FSM) TimerFinished() bool       { return f.timerFinished }
func (f *FSM) ContinueConversation() bool { return f.continueConversation }

// Reset tears the session down on connection loss, per spec.md §3's
// "voice session phase resets to idle on every connection loss" and
// §5's cancellation guarantee that mic streaming and the ringing loop
// both stop.
func (f *FSM) Reset() {
	f.aborted = true
	f.timerFinished = false
	f.continueConversation = false
	f.stopStreaming()
	f.voicePhase = PhaseIdle
	f.state.DeactivateStopWord()
	f.state.Unduck()
}

// Wakeup handles the local wake-word-detected trigger (spec.md §4.9).
func (f *FSM) Wakeup(phrase string) {
	if f.state.Muted() {
		f.log.Debug().Str("phrase", phrase).Msg("wake ignored: muted")
		return
	}

	if f.timerFinished {
		f.timerFinished = false
		f.state.TTSPlayer.Stop()
		f.state.DeactivateStopWord()
		f.voicePhase = PhaseIdle
		f.state.Unduck()
		f.log.Info().Msg("wake interpreted as timer stop")
		return
	}

	f.aborted = false
	f.finishedEmitted = false
	f.currentRunID = f.startRun(phrase)
	f.wakeAt = time.Now()
	f.sttEndAt = time.Time{}
	f.intentEndAt = time.Time{}

	f.emit(wire.VoiceAssistantRequest{Start: true, WakeWordPhrase: phrase})
	f.state.Duck()
	f.beginStreaming()
	if f.state.WakeupSoundURI != "" {
		f.state.TTSPlayer.Play(f.state.WakeupSoundURI, func() {})
	}
	if f.metrics != nil {
		f.metrics.ObserveWakeEvent(phrase)
	}
}

// MicChunk forwards one captured audio chunk, if currently streaming.
func (f *FSM) MicChunk(data []byte) {
	if !f.isStreamingAudio {
		return
	}
	f.emit(wire.VoiceAssistantAudio{Data: data})
}

// Stop handles the local "stop current playback" trigger.
func (f *FSM) Stop() {
	f.aborted = true
	f.state.DeactivateStopWord()
	f.state.TTSPlayer.Stop()
	f.ttsFinished()
}

// HandleEvent dispatches one VoiceAssistantEventResponse per spec.md
// §4.9's event table.
func (f *FSM) HandleEvent(ev wire.VoiceAssistantEventResponse) {
	switch ev.EventType {
	case wire.EventRunStart:
		f.aborted = false
		f.finishedEmitted = false
		f.pendingTTSURI = ev.Data["url"]
		f.ttsPlayed = false
		f.continueConversation = false
	case wire.EventSTTVADEnd, wire.EventSTTEnd:
		f.stopStreaming()
		f.markSTTEnd()
	case wire.EventIntentProgress:
		if ev.Data["tts_start_streaming"] == "1" {
			f.startTTSPlayback()
		}
	case wire.EventIntentEnd:
		if ev.Data["continue_conversation"] == "1" {
			f.continueConversation = true
		}
		f.markIntentEnd()
	case wire.EventTTSEnd:
		if url, ok := ev.Data["url"]; ok {
			f.pendingTTSURI = url
		}
		f.startTTSPlayback()
	case wire.EventRunEnd:
		f.stopStreaming()
		if !f.ttsPlayed {
			f.ttsFinished()
		}
	default:
		f.log.Debug().Str("event", ev.EventType).Msg("unhandled voice event")
	}
}

// HandleAnnounce implements the announcement handler of spec.md §4.9.
func (f *FSM) HandleAnnounce(req wire.VoiceAssistantAnnounceRequest) {
	f.aborted = false
	f.finishedEmitted = false
	f.continueConversation = req.StartConversation
	f.state.ActivateStopWord()
	f.state.Duck()

	var items []string
	if req.PreannounceMediaID != "" {
		items = append(items, req.PreannounceMediaID)
	}
	if req.MediaID != "" {
		items = append(items, req.MediaID)
	}

	if len(items) == 0 {
		f.ttsFinished()
		return
	}

	f.voicePhase = PhasePlayingTTS
	f.playSequence(items, 0)
}

func (f *FSM) playSequence(items []string, idx int) {
	if f.aborted || idx >= len(items) {
		f.ttsFinished()
		return
	}
	f.state.TTSPlayer.Play(items[idx], func() {
		f.schedule(func() {
			if f.aborted {
				return
			}
			f.playSequence(items, idx+1)
		})
	})
}

// HandleTimerEvent implements the timer handler of spec.md §4.9: only
// TIMER_FINISHED triggers the ringing loop, and only once per ring.
func (f *FSM) HandleTimerEvent(ev wire.VoiceAssistantTimerEventResponse) {
	if ev.EventType != wire.TimerEventFinished {
		return
	}
	if f.timerFinished {
		return
	}

	f.aborted = false
	f.state.ActivateStopWord()
	f.timerFinished = true
	f.state.Duck()
	f.voicePhase = PhaseTimerRinging
	f.ringOnce()
}

func (f *FSM) ringOnce() {
	if !f.timerFinished {
		return
	}
	f.state.TTSPlayer.Play(f.state.TimerFinishedSoundURI, func() {
		f.schedule(func() {
			if !f.timerFinished {
				return
			}
			f.scheduleRingDelay()
		})
	})
}

// ringDelay is a seam tests can override to avoid a real sleep.
var ringDelay = func(d time.Duration, fn func()) { time.AfterFunc(d, fn) }

func (f *FSM) scheduleRingDelay() {
	ringDelay(ringingInterval, func() {
		f.schedule(func() {
			if f.timerFinished {
				f.ringOnce()
			}
		})
	})
}

// ttsFinished is the "TTS finished" transition of spec.md §4.9. It is
// idempotent per run (guarded by finishedEmitted) so the RUN_END safety
// net and an explicit local Stop() can both reach it without emitting
// VoiceAssistantAnnounceFinished more than once for the same run.
func (f *FSM) ttsFinished() {
	f.state.DeactivateStopWord()

	if !f.finishedEmitted {
		f.finishedEmitted = true
		now := time.Now()
		if f.metrics != nil {
			if !f.intentEndAt.IsZero() {
				f.metrics.ObserveRunStage("intent_end_to_tts_end", now.Sub(f.intentEndAt))
			}
			if !f.wakeAt.IsZero() {
				f.metrics.ObserveRunStage("run_total", now.Sub(f.wakeAt))
			}
		}
		f.wakeAt = time.Time{}
		f.sttEndAt = time.Time{}
		f.intentEndAt = time.Time{}
		f.emit(wire.VoiceAssistantAnnounceFinished{Success: true})
		f.endRun()
	}

	if f.continueConversation {
		f.continueConversation = false
		f.finishedEmitted = false
		f.emit(wire.VoiceAssistantRequest{Start: true})
		f.beginStreaming()
	} else {
		f.voicePhase = PhaseIdle
		f.state.Unduck()
	}
}

func (f *FSM) startTTSPlayback() {
	if f.pendingTTSURI == "" || f.ttsPlayed {
		return
	}
	f.ttsPlayed = true
	f.voicePhase = PhasePlayingTTS
	uri := f.pendingTTSURI
	f.state.TTSPlayer.Play(uri, func() {
		f.schedule(func() {
			if f.aborted {
				return
			}
			f.ttsFinished()
		})
	})
}

func (f *FSM) beginStreaming() {
	f.isStreamingAudio = true
	f.voicePhase = PhaseStreaming
	if f.micStart != nil {
		f.micStart()
	}
}

func (f *FSM) stopStreaming() {
	if !f.isStreamingAudio {
		return
	}
	f.isStreamingAudio = false
	if f.voicePhase == PhaseStreaming {
		f.voicePhase = PhaseAwaitingTTS
	}
	if f.micStop != nil {
		f.micStop()
	}
}

// markSTTEnd and markIntentEnd record the run-stage boundary timestamps
// ObserveRunStage needs; they are no-ops outside a wake-triggered run
// (wakeAt unset, e.g. an announcement's event stream).
func (f *FSM) markSTTEnd() {
	if f.wakeAt.IsZero() || !f.sttEndAt.IsZero() {
		return
	}
	f.sttEndAt = time.Now()
	if f.metrics != nil {
		f.metrics.ObserveRunStage("wake_to_stt_end", f.sttEndAt.Sub(f.wakeAt))
	}
}

func (f *FSM) markIntentEnd() {
	if f.sttEndAt.IsZero() || !f.intentEndAt.IsZero() {
		return
	}
	f.intentEndAt = time.Now()
	if f.metrics != nil {
		f.metrics.ObserveRunStage("stt_end_to_intent_end", f.intentEndAt.Sub(f.sttEndAt))
	}
}

func (f *FSM) startRun(wakeWord string) string {
	if f.runs == nil {
		return ""
	}
	return f.runs.Start(wakeWord).ID
}

func (f *FSM) endRun() {
	if f.runs == nil || f.currentRunID == "" {
		return
	}
	_, _ = f.runs.End(f.currentRunID)
	f.currentRunID = ""
}
