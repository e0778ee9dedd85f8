// Package state holds ServerState (spec.md §4.7, component C7): the
// single source of truth aggregating the wake-word catalog, the two
// audio player handles, preferences, and the weak back-reference to
// whichever connection is currently the active satellite session. It
// has no knowledge of the wire protocol or the connection lifecycle —
// those live in internal/satellite — which keeps this package free of
// the import cycle a ServerState<->Session pair would otherwise create.
package state

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/antoniostano/samantha/internal/audioplayer"
	"github.com/antoniostano/samantha/internal/observability"
	"github.com/antoniostano/samantha/internal/preferences"
	"github.com/antoniostano/samantha/internal/wakeword"
)

// WakeWordKind mirrors the ESPHome distinction between on-device
// micro-wake-word models and larger "open" wake-word engines.
type WakeWordKind string

const (
	KindMicro WakeWordKind = "micro"
	KindOpen  WakeWordKind = "open"
)

// AvailableWakeWord describes one installed or controller-supplied wake
// word, per spec.md §3's AvailableWakeWord shape.
type AvailableWakeWord struct {
	ID               string
	Kind             WakeWordKind
	Phrase           string
	TrainedLanguages []string
	ModelPath        string
}

// ExternalWakeWord is a wake-word descriptor supplied by the controller
// rather than found on disk, per spec.md §3's external_wake_words map.
type ExternalWakeWord struct {
	ID               string
	Kind             WakeWordKind
	WakeWord         string
	TrainedLanguages []string
}

// Satellite is the narrow surface ServerState holds a weak reference
// to: whichever ConnectionSession is currently "the satellite". Per
// spec.md §9's design note, ServerState never owns a session — it only
// borrows this interface to let external collaborators (the entity
// bridge's buttons, the wake-word engine) reach the active connection.
type Satellite interface {
	Wakeup(phrase string)
	Stop()
	IsStreamingAudio() bool
	Announce(text, mediaID string)
}

const duckAttenuationPercent = 30

// Server is the process-lifetime aggregate described in spec.md §3 and
// §4.7. All mutable fields are guarded by a single interior lock, per
// §4.7's "thread-safe with a single interior lock around preferences
// I/O" requirement generalized to the rest of the mutable state.
type Server struct {
	mu sync.Mutex

	DeviceName string
	MacAddress string

	available map[string]AvailableWakeWord
	active    map[string]bool
	external  map[string]ExternalWakeWord

	StopWordID         string
	MaxActiveWakeWords int
	stopWordActive     bool

	MusicPlayer *audioplayer.Player
	TTSPlayer   *audioplayer.Player
	ducked      bool
	preDuckVol  int

	WakeupSoundURI        string
	TimerFinishedSoundURI string

	prefs  *preferences.Store
	sat    Satellite
	muted  bool
	dirty  bool

	log     zerolog.Logger
	metrics *observability.Metrics
}

// New builds a ServerState with an empty wake-word catalog; call
// LoadCatalog once at startup to populate it.
func New(deviceName, macAddress string, maxActive int, stopWordID string, prefs *preferences.Store, music, tts *audioplayer.Player, log zerolog.Logger, metrics *observability.Metrics) *Server {
	return &Server{
		DeviceName:         deviceName,
		MacAddress:         macAddress,
		available:          map[string]AvailableWakeWord{},
		active:             map[string]bool{},
		external:           map[string]ExternalWakeWord{},
		StopWordID:         stopWordID,
		MaxActiveWakeWords: maxActive,
		MusicPlayer:        music,
		TTSPlayer:          tts,
		prefs:              prefs,
		log:                log.With().Str("component", "state").Logger(),
		metrics:            metrics,
	}
}

// LoadCatalog seeds the available wake-word set from a freshly scanned
// catalog and applies saved preferences intersected with what's
// actually available, per spec.md §4.4's "saved ∩ available wins".
func (s *Server) LoadCatalog(cat *wakeword.Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.available = map[string]AvailableWakeWord{}
	for _, m := range cat.Models() {
		s.available[m.ID] = AvailableWakeWord{
			ID:               m.ID,
			Kind:             engineKind(m.Engine),
			Phrase:           m.Phrase,
			TrainedLanguages: m.TrainedLanguages,
			ModelPath:        m.ID,
		}
	}

	saved := s.prefs.Load().ActiveWakeWords
	chosen := preferences.MergeActive(saved, cat.IDs())
	if len(chosen) == 0 {
		chosen = cat.DefaultActive()
	}

	s.active = map[string]bool{}
	for _, id := range chosen {
		if len(s.active) >= s.MaxActiveWakeWords {
			break
		}
		if _, ok := s.available[id]; ok {
			s.active[id] = true
		}
	}
}

func engineKind(engine string) WakeWordKind {
	if engine == string(KindOpen) {
		return KindOpen
	}
	return KindMicro
}

// SetExternalWakeWords replaces the controller-supplied wake-word
// descriptors that sit alongside the on-disk catalog.
func (s *Server) SetExternalWakeWords(ext []ExternalWakeWord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.external = map[string]ExternalWakeWord{}
	for _, e := range ext {
		s.external[e.ID] = e
	}
}

// AvailableWakeWordsForConfig returns the own catalog plus
// controller-supplied externals filtered to kind=micro, per spec.md
// §4.9's VoiceAssistantConfigurationResponse contents.
func (s *Server) AvailableWakeWordsForConfig() []AvailableWakeWord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]AvailableWakeWord, 0, len(s.available)+len(s.external))
	for _, id := range sortedKeys(s.available) {
		out = append(out, s.available[id])
	}
	for _, id := range sortedExternalKeys(s.external) {
		e := s.external[id]
		if e.Kind != KindMicro {
			continue
		}
		out = append(out, AvailableWakeWord{
			ID: e.ID, Kind: e.Kind, Phrase: e.WakeWord, TrainedLanguages: e.TrainedLanguages,
		})
	}
	return out
}

// ActiveWakeWords returns the current user-selected active set, always
// satisfying |active| <= MaxActiveWakeWords (spec.md §3's invariant).
// The ephemeral stop-word overlay (see ActivateStopWord) is never part
// of this slice: it is a local FSM trick, not a user preference.
func (s *Server) ActiveWakeWords() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.active))
	for _, id := range sortedActiveKeys(s.active) {
		out = append(out, id)
	}
	return out
}

// SetActiveWakeWords adopts the controller's requested active set,
// filtered to known ids (catalog or external) and capped at
// MaxActiveWakeWords, persists it, and marks the catalog dirty for the
// wake-word engine to notice. Returns the filtered set actually stored.
func (s *Server) SetActiveWakeWords(ids []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []string
	for _, id := range ids {
		if len(kept) >= s.MaxActiveWakeWords {
			break
		}
		_, known := s.available[id]
		_, external := s.external[id]
		if known || external {
			kept = append(kept, id)
		}
	}

	s.active = map[string]bool{}
	for _, id := range kept {
		s.active[id] = true
	}
	s.dirty = true

	s.prefs.Save(preferences.State{ActiveWakeWords: kept})
	if s.metrics != nil {
		s.metrics.ObservePreferencesIO("save", "ok")
	}
	return kept
}

// WakeWordsChanged reports and clears the dirty flag the wake-word
// engine consumes, per spec.md §3.
func (s *Server) WakeWordsChanged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.dirty
	s.dirty = false
	return v
}

// ActivateStopWord temporarily admits StopWordID into the wake-trigger
// surface; DeactivateStopWord mirrors it. This overlay is intentionally kept
// separate from the persistent active set so the cardinality invariant
// on the user's own selection never has to account for it.
func (s *Server) ActivateStopWord() {
	if s.StopWordID == "" {
		return
	}
	s.mu.Lock()
	s.stopWordActive = true
	s.mu.Unlock()
}

func (s *Server) DeactivateStopWord() {
	s.mu.Lock()
	s.stopWordActive = false
	s.mu.Unlock()
}

func (s *Server) StopWordActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopWordActive
}

// Muted reports whether wake-word triggering is currently suppressed, a
// behavior supplementing the distilled spec from original_source's
// system-wide mute flag (see SPEC_FULL.md §3.4).
func (s *Server) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

func (s *Server) SetMuted(m bool) {
	s.mu.Lock()
	s.muted = m
	s.mu.Unlock()
}

// Satellite returns the currently connected session, or nil.
func (s *Server) Satellite() Satellite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sat
}

func (s *Server) HasActiveSatellite() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sat != nil
}

// SetSatellite registers sat as the active session. Called once a
// connection completes its handshake.
func (s *Server) SetSatellite(sat Satellite) {
	s.mu.Lock()
	s.sat = sat
	s.mu.Unlock()
}

// ClearSatelliteIfSelf clears the back-reference only if it still
// points at sat, so a session that has already been superseded cannot
// clobber a newer one's registration on a delayed close.
func (s *Server) ClearSatelliteIfSelf(sat Satellite) {
	s.mu.Lock()
	if s.sat == sat {
		s.sat = nil
	}
	s.mu.Unlock()
}

// Duck lowers the music player's volume to make TTS intelligible;
// Unduck restores whatever volume was active before ducking. Per
// spec.md §9's open question, this implementation chooses a real
// attenuation over a no-op (see DESIGN.md).
func (s *Server) Duck() {
	s.mu.Lock()
	if s.ducked {
		s.mu.Unlock()
		return
	}
	prev := s.MusicPlayer.Volume()
	s.preDuckVol = prev
	s.ducked = true
	s.mu.Unlock()

	s.MusicPlayer.SetVolume(prev * (100 - duckAttenuationPercent) / 100)
	if s.metrics != nil {
		s.metrics.ObservePlayerStateChange("music", "duck")
	}
}

func (s *Server) Unduck() {
	s.mu.Lock()
	if !s.ducked {
		s.mu.Unlock()
		return
	}
	prev := s.preDuckVol
	s.ducked = false
	s.mu.Unlock()

	s.MusicPlayer.SetVolume(prev)
	if s.metrics != nil {
		s.metrics.ObservePlayerStateChange("music", "unduck")
	}
}

func sortedKeys(m map[string]AvailableWakeWord) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedExternalKeys(m map[string]ExternalWakeWord) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedActiveKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
