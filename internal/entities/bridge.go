// Package entities implements the entity bridge of spec.md §4.10
// (component C10): it declares the sensors, binary sensors, buttons,
// services, and the media-player entity, answers ListEntitiesRequest /
// SubscribeHomeAssistantStatesRequest, and routes inbound command
// requests to external handler callbacks. The bridge owns only the
// definition and dispatch contract — the handlers that actually read
// CPU load or toggle mute are supplied by the caller, per spec.md §1's
// "entity definitions are wire contract, implementations are external
// collaborators" boundary.
package entities

import (
	"github.com/rs/zerolog"

	"github.com/antoniostano/samantha/internal/wire"
)

// Entity key bands, per spec.md §4.10: sensors < 100, buttons 100-199,
// services 200-299, media-player a single fixed key.
const (
	KeyMediaPlayer uint32 = 10

	KeySensorCPULoad          uint32 = 20
	KeySensorMemoryUsage      uint32 = 21
	KeyBinarySensorInProgress uint32 = 22
	KeyBinarySensorConnected  uint32 = 23

	KeyButtonStopAssistant  uint32 = 100
	KeyButtonToggleMute     uint32 = 101
	KeyButtonReloadWakeWords uint32 = 102

	KeyServiceAnnounce            uint32 = 200
	KeyServiceBroadcastNotification uint32 = 201
)

// Callbacks are the external collaborators a command dispatches to.
// Any field left nil is treated as unsupported: the bridge logs and
// ignores the command rather than panicking, matching spec.md §8's
// "unknown entity key: log at warning, ignore" edge case generalized
// to "known key, no handler".
type Callbacks struct {
	StopAssistant    func()
	ToggleMute       func()
	ReloadWakeWords  func()
	Announce         func(text, mediaID string)
	BroadcastNotify  func(args map[string]string)
	MediaPlayerCmd   func(req wire.MediaPlayerCommandRequest)
}

// Reading is a snapshot of one stateful entity's value, supplied by the
// caller at SubscribeHomeAssistantStatesRequest time since the bridge
// itself collects nothing (spec.md §1).
type Reading struct {
	CPULoad          float64
	MemoryUsage      float64
	AssistantRunning bool
	Connected        bool
	MediaPlayerState string // playing|paused|idle; a stopped player reports idle
	MediaPlayerVol   float64
	MediaPlayerMuted bool
}

// Bridge is a stateless entity catalog plus a command dispatcher; one
// instance is shared across connections since entity definitions never
// vary per session.
type Bridge struct {
	callbacks Callbacks
	log       zerolog.Logger
}

func New(cb Callbacks, log zerolog.Logger) *Bridge {
	return &Bridge{callbacks: cb, log: log.With().Str("component", "entities").Logger()}
}

// ListEntities returns every entity definition in the stable order
// ListEntitiesRequest must stream them, not including the terminating
// ListEntitiesDoneResponse (the caller appends that itself once framed
// into the batch).
func (b *Bridge) ListEntities() []any {
	return []any{
		wire.ListEntitiesMediaPlayerResponse{
			ObjectID: "media_player", Key: KeyMediaPlayer, Name: "Samantha Media Player",
		},
		wire.ListEntitiesSensorResponse{
			ObjectID: "cpu_load", Key: KeySensorCPULoad, Name: "CPU Load",
			UnitOfMeasurement: "%",
		},
		wire.ListEntitiesSensorResponse{
			ObjectID: "memory_usage", Key: KeySensorMemoryUsage, Name: "Memory Usage",
			UnitOfMeasurement: "%",
		},
		wire.ListEntitiesBinarySensorResponse{
			ObjectID: "assistant_in_progress", Key: KeyBinarySensorInProgress,
			Name: "Assistant In Progress",
		},
		wire.ListEntitiesBinarySensorResponse{
			ObjectID: "connected", Key: KeyBinarySensorConnected,
			Name: "Connected", DeviceClass: "connectivity",
		},
		wire.ListEntitiesButtonResponse{
			ObjectID: "stop_assistant", Key: KeyButtonStopAssistant, Name: "Stop Assistant In Progress",
		},
		wire.ListEntitiesButtonResponse{
			ObjectID: "toggle_mute", Key: KeyButtonToggleMute, Name: "Toggle Mute",
		},
		wire.ListEntitiesButtonResponse{
			ObjectID: "reload_wake_words", Key: KeyButtonReloadWakeWords, Name: "Reload Wake Words",
		},
		wire.ListEntitiesServiceResponse{
			ObjectID: "announce", Key: KeyServiceAnnounce, Name: "Announce",
			ArgNames: []string{"text", "media_id"},
		},
		wire.ListEntitiesServiceResponse{
			ObjectID: "broadcast_notification", Key: KeyServiceBroadcastNotification, Name: "Broadcast Notification",
			ArgNames: []string{"title", "message"},
		},
	}
}

// StateSnapshots builds one state message per stateful entity from a
// caller-supplied Reading, for SubscribeHomeAssistantStatesRequest.
// Buttons and services have no state and are excluded.
func (b *Bridge) StateSnapshots(r Reading) []any {
	return []any{
		wire.SensorStateResponse{Key: KeySensorCPULoad, State: r.CPULoad},
		wire.SensorStateResponse{Key: KeySensorMemoryUsage, State: r.MemoryUsage},
		wire.BinarySensorStateResponse{Key: KeyBinarySensorInProgress, State: r.AssistantRunning},
		wire.BinarySensorStateResponse{Key: KeyBinarySensorConnected, State: r.Connected},
		wire.MediaPlayerStateResponse{
			Key: KeyMediaPlayer, State: r.MediaPlayerState,
			Volume: r.MediaPlayerVol, Muted: r.MediaPlayerMuted,
		},
	}
}

// HandleButtonCommand dispatches a ButtonCommandRequest by key.
func (b *Bridge) HandleButtonCommand(req wire.ButtonCommandRequest) {
	switch req.Key {
	case KeyButtonStopAssistant:
		b.call(b.callbacks.StopAssistant, req.Key)
	case KeyButtonToggleMute:
		b.call(b.callbacks.ToggleMute, req.Key)
	case KeyButtonReloadWakeWords:
		b.call(b.callbacks.ReloadWakeWords, req.Key)
	default:
		b.log.Warn().Uint32("key", req.Key).Msg("unknown button key")
	}
}

// HandleExecuteService dispatches an ExecuteServiceRequest by key.
func (b *Bridge) HandleExecuteService(req wire.ExecuteServiceRequest) {
	switch req.Key {
	case KeyServiceAnnounce:
		if b.callbacks.Announce == nil {
			b.log.Warn().Uint32("key", req.Key).Msg("announce service has no handler")
			return
		}
		b.callbacks.Announce(req.Args["text"], req.Args["media_id"])
	case KeyServiceBroadcastNotification:
		if b.callbacks.BroadcastNotify == nil {
			b.log.Warn().Uint32("key", req.Key).Msg("broadcast_notification service has no handler")
			return
		}
		b.callbacks.BroadcastNotify(req.Args)
	default:
		b.log.Warn().Uint32("key", req.Key).Msg("unknown service key")
	}
}

// HandleMediaPlayerCommand dispatches a MediaPlayerCommandRequest; the
// media player has exactly one key so no switch is needed, only a
// presence check (spec.md §8's "unknown entity key" edge case reduces
// to "wrong key" here, which is still logged and ignored).
func (b *Bridge) HandleMediaPlayerCommand(req wire.MediaPlayerCommandRequest) {
	if req.Key != KeyMediaPlayer {
		b.log.Warn().Uint32("key", req.Key).Msg("unknown media player key")
		return
	}
	b.call2(b.callbacks.MediaPlayerCmd, req)
}

func (b *Bridge) call(fn func(), key uint32) {
	if fn == nil {
		b.log.Warn().Uint32("key", key).Msg("command has no registered handler")
		return
	}
	fn()
}

func (b *Bridge) call2(fn func(wire.MediaPlayerCommandRequest), req wire.MediaPlayerCommandRequest) {
	if fn == nil {
		b.log.Warn().Uint32("key", req.Key).Msg("media player command has no registered handler")
		return
	}
	fn(req)
}
