package satellite

import (
	"github.com/antoniostano/samantha/internal/entities"
	"github.com/antoniostano/samantha/internal/state"
	"github.com/antoniostano/samantha/internal/voiceassistant"
	"github.com/antoniostano/samantha/internal/wire"
)

// featureFlags is the DeviceInfoResponse bitmask reported during the
// handshake, per spec.md §4.8.
const featureFlags = wire.FeatureVoiceAssistant | wire.FeatureAPIAudio |
	wire.FeatureAnnounce | wire.FeatureStartConversation | wire.FeatureTimers

// dispatch routes one decoded inbound message according to the
// session's current phase, per spec.md §4.8's handshake diagram and
// ready-phase table. It must only be called from within a batch scope.
func (s *Session) dispatch(msg any) {
	switch s.getPhase() {
	case PhaseAwaitHello:
		s.dispatchAwaitHello(msg)
	case PhaseAwaitAuth:
		s.dispatchAwaitAuth(msg)
	case PhaseReady:
		s.dispatchReady(msg)
	default:
		s.log.Debug().Msg("message received while closing, ignoring")
	}
}

func (s *Session) dispatchAwaitHello(msg any) {
	req, ok := msg.(wire.HelloRequest)
	if !ok {
		s.log.Warn().Str("type", "unexpected").Msg("expected HelloRequest, ignoring")
		return
	}
	s.log.Info().Str("client", req.ClientInfo).Msg("hello received")
	s.emit(wire.HelloResponse{
		ApiVersionMajor: apiVersionMajor,
		ApiVersionMinor: apiVersionMinor,
		Name:            s.device.Name,
		ServerInfo:      "samantha-satellite",
	})
	s.setPhase(PhaseAwaitAuth)
}

// dispatchAwaitAuth accepts any AuthenticationRequest without a
// password challenge, per spec.md §4.8/§9's explicit "preserve current
// behavior" instruction.
func (s *Session) dispatchAwaitAuth(msg any) {
	if _, ok := msg.(wire.AuthenticationRequest); !ok {
		s.log.Warn().Msg("expected AuthenticationRequest, ignoring")
		return
	}
	s.emit(wire.AuthenticationResponse{InvalidPassword: false})
	s.setPhase(PhaseReady)
	s.state.SetSatellite(s)
	s.log.Info().Msg("session ready")
}

func (s *Session) dispatchReady(msg any) {
	switch m := msg.(type) {
	case wire.PingRequest:
		s.emit(wire.PingResponse{})

	case wire.DisconnectRequest:
		s.emit(wire.DisconnectResponse{})
		s.setPhase(PhaseClosing)

	case wire.DeviceInfoRequest:
		s.emit(wire.DeviceInfoResponse{
			Name:         s.device.Name,
			MacAddress:   s.device.MacAddress,
			UsesPassword: false,
			Model:        "workstation-satellite",
			Manufacturer: "samantha",
			FeatureFlags: featureFlags,
		})

	case wire.ListEntitiesRequest:
		for _, e := range s.entities.ListEntities() {
			s.emit(e)
		}
		s.emit(wire.ListEntitiesDoneResponse{})

	case wire.SubscribeHomeAssistantStatesRequest:
		for _, snap := range s.entities.StateSnapshots(s.currentReading()) {
			s.emit(snap)
		}

	case wire.VoiceAssistantConfigurationRequest:
		s.emit(s.buildConfigurationResponse())

	case wire.VoiceAssistantSetConfiguration:
		kept := s.state.SetActiveWakeWords(m.ActiveWakeWords)
		s.log.Info().Strs("active", kept).Msg("active wake words updated")

	case wire.VoiceAssistantEventResponse:
		s.fsm.HandleEvent(m)

	case wire.VoiceAssistantAnnounceRequest:
		s.fsm.HandleAnnounce(m)

	case wire.VoiceAssistantTimerEventResponse:
		s.fsm.HandleTimerEvent(m)

	case wire.MediaPlayerCommandRequest:
		s.entities.HandleMediaPlayerCommand(m)

	case wire.ButtonCommandRequest:
		s.entities.HandleButtonCommand(m)

	case wire.ExecuteServiceRequest:
		s.entities.HandleExecuteService(m)

	default:
		s.log.Debug().Msg("unhandled message in ready phase, ignoring")
	}
}

// buildConfigurationResponse assembles the VoiceAssistantConfigurationResponse
// contents per spec.md §4.9: the full available set (own catalog ∪
// controller-supplied externals filtered to kind=micro), the current
// active subset, and the configured cap.
func (s *Session) buildConfigurationResponse() wire.VoiceAssistantConfigurationResponse {
	available := s.state.AvailableWakeWordsForConfig()
	aws := make([]wire.AvailableWakeWord, 0, len(available))
	for _, a := range available {
		aws = append(aws, wire.AvailableWakeWord{
			ID: a.ID, WakeWord: a.Phrase, TrainedLanguages: a.TrainedLanguages,
		})
	}
	return wire.VoiceAssistantConfigurationResponse{
		AvailableWakeWords: aws,
		ActiveWakeWords:    s.state.ActiveWakeWords(),
		MaxActiveWakeWords: uint32(s.state.MaxActiveWakeWords),
	}
}

// currentReading asks the state-holding collaborators for a state
// snapshot; sensor collection itself is an external concern per
// spec.md §1, so this satellite package only knows how to read back
// what ServerState already tracks (the audio players) and reports
// neutral values for the sensors external code would otherwise supply.
func (s *Session) currentReading() entities.Reading {
	return entities.Reading{
		AssistantRunning: s.fsm.VoicePhase() != voiceassistant.PhaseIdle,
		Connected:        true,
		MediaPlayerState: mediaPlayerState(s.state),
		MediaPlayerVol:   float64(s.state.MusicPlayer.Volume()) / 100,
		MediaPlayerMuted: s.state.Muted(),
	}
}

func mediaPlayerState(st *state.Server) string {
	switch {
	case st.MusicPlayer.IsPlaying() && st.MusicPlayer.IsPaused():
		return "paused"
	case st.MusicPlayer.IsPlaying():
		return "playing"
	default:
		return "idle"
	}
}
