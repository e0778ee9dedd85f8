package wire

// Message type tags. Values are internal to this implementation (the
// real ESPHome Native API assigns its own stable numbers; spec.md treats
// them as an opaque, stable wire contract). What matters for the
// invariants in spec.md §8 is that encode/decode round-trips and that
// the registry is bidirectional.
const (
	TypeHelloRequest        uint32 = 1
	TypeHelloResponse       uint32 = 2
	TypeAuthenticationRequest  uint32 = 3
	TypeAuthenticationResponse uint32 = 4
	TypeDisconnectRequest   uint32 = 5
	TypeDisconnectResponse  uint32 = 6
	TypePingRequest         uint32 = 7
	TypePingResponse        uint32 = 8
	TypeDeviceInfoRequest   uint32 = 9
	TypeDeviceInfoResponse  uint32 = 10

	TypeListEntitiesRequest             uint32 = 11
	TypeListEntitiesSensorResponse      uint32 = 12
	TypeListEntitiesBinarySensorResponse uint32 = 13
	TypeListEntitiesButtonResponse      uint32 = 14
	TypeListEntitiesServiceResponse     uint32 = 15
	TypeListEntitiesMediaPlayerResponse uint32 = 16
	TypeListEntitiesDoneResponse        uint32 = 17

	TypeSubscribeHomeAssistantStatesRequest uint32 = 18
	TypeSensorStateResponse                 uint32 = 19
	TypeBinarySensorStateResponse           uint32 = 20
	TypeMediaPlayerStateResponse            uint32 = 21

	TypeVoiceAssistantConfigurationRequest  uint32 = 30
	TypeVoiceAssistantConfigurationResponse uint32 = 31
	TypeVoiceAssistantSetConfiguration      uint32 = 32
	TypeVoiceAssistantEventResponse         uint32 = 33
	TypeVoiceAssistantAnnounceRequest       uint32 = 34
	TypeVoiceAssistantAnnounceFinished      uint32 = 35
	TypeVoiceAssistantRequest               uint32 = 36
	TypeVoiceAssistantAudio                 uint32 = 37
	TypeVoiceAssistantTimerEventResponse    uint32 = 38

	TypeMediaPlayerCommandRequest uint32 = 40
	TypeButtonCommandRequest      uint32 = 41
	TypeExecuteServiceRequest     uint32 = 42
)

// Feature bitmask values advertised in DeviceInfoResponse per spec.md §4.8.
const (
	FeatureVoiceAssistant   uint32 = 1 << 0
	FeatureAPIAudio         uint32 = 1 << 1
	FeatureAnnounce         uint32 = 1 << 2
	FeatureStartConversation uint32 = 1 << 3
	FeatureTimers           uint32 = 1 << 4
)

// Voice-assistant event types carried in VoiceAssistantEventResponse,
// per spec.md §4.9.
const (
	EventRunStart       = "RUN_START"
	EventSTTVADEnd      = "STT_VAD_END"
	EventSTTEnd         = "STT_END"
	EventIntentProgress = "INTENT_PROGRESS"
	EventIntentEnd      = "INTENT_END"
	EventTTSEnd         = "TTS_END"
	EventRunEnd         = "RUN_END"
)

// Timer event types carried in VoiceAssistantTimerEventResponse.
const (
	TimerEventFinished = "TIMER_FINISHED"
)

type HelloRequest struct {
	ClientInfo      string
	ApiVersionMajor uint32
	ApiVersionMinor uint32
}

type HelloResponse struct {
	ApiVersionMajor uint32
	ApiVersionMinor uint32
	Name            string
	ServerInfo      string
}

type AuthenticationRequest struct {
	Password string
}

type AuthenticationResponse struct {
	InvalidPassword bool
}

type DisconnectRequest struct{}
type DisconnectResponse struct{}
type PingRequest struct{}
type PingResponse struct{}
type DeviceInfoRequest struct{}

type DeviceInfoResponse struct {
	Name         string
	MacAddress   string
	UsesPassword bool
	Model        string
	Manufacturer string
	FeatureFlags uint32
}

type ListEntitiesRequest struct{}

type ListEntitiesSensorResponse struct {
	ObjectID          string
	Key               uint32
	Name              string
	UnitOfMeasurement string
	DeviceClass       string
}

type ListEntitiesBinarySensorResponse struct {
	ObjectID    string
	Key         uint32
	Name        string
	DeviceClass string
}

type ListEntitiesButtonResponse struct {
	ObjectID string
	Key      uint32
	Name     string
}

type ListEntitiesServiceResponse struct {
	ObjectID string
	Key      uint32
	Name     string
	ArgNames []string
}

type ListEntitiesMediaPlayerResponse struct {
	ObjectID string
	Key      uint32
	Name     string
}

type ListEntitiesDoneResponse struct{}

type SubscribeHomeAssistantStatesRequest struct{}

type SensorStateResponse struct {
	Key          uint32
	State        float64
	MissingState bool
}

type BinarySensorStateResponse struct {
	Key          uint32
	State        bool
	MissingState bool
}

type MediaPlayerStateResponse struct {
	Key    uint32
	State  string
	Volume float64
	Muted  bool
}

type VoiceAssistantConfigurationRequest struct{}

type AvailableWakeWord struct {
	ID               string
	WakeWord         string
	TrainedLanguages []string
}

type VoiceAssistantConfigurationResponse struct {
	AvailableWakeWords []AvailableWakeWord
	ActiveWakeWords    []string
	MaxActiveWakeWords uint32
}

type VoiceAssistantSetConfiguration struct {
	ActiveWakeWords []string
}

type VoiceAssistantEventResponse struct {
	EventType string
	Data      map[string]string
}

type VoiceAssistantAnnounceRequest struct {
	MediaID            string
	Text               string
	PreannounceMediaID string
	StartConversation  bool
}

type VoiceAssistantAnnounceFinished struct {
	Success bool
}

type VoiceAssistantRequest struct {
	Start          bool
	WakeWordPhrase string
}

type VoiceAssistantAudio struct {
	Data []byte
	End  bool
}

type VoiceAssistantTimerEventResponse struct {
	EventType    string
	TimerID      string
	Name         string
	TotalSeconds uint32
	SecondsLeft  uint32
	IsActive     bool
}

type MediaPlayerCommandRequest struct {
	Key          uint32
	HasMediaURL  bool
	MediaURL     string
	HasCommand   bool
	Command      string
	HasVolume    bool
	Volume       float64
	HasMute      bool
	Mute         bool
	Announcement bool
}

type ButtonCommandRequest struct {
	Key uint32
}

type ExecuteServiceRequest struct {
	Key  uint32
	Args map[string]string
}
