package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// roundTrip encodes msg, frames it, decodes the frame, and decodes the
// payload back into a typed message — the full path a real connection
// exercises, matching spec.md §8 property 1 (encode . decode == identity).
func roundTrip(t *testing.T, msg any) any {
	t.Helper()
	typ, payload, err := Encode(msg)
	require.NoError(t, err)

	framed := EncodeFrame(nil, typ, payload)
	d := NewDecoder()
	d.Feed(framed)
	frame, ok, err := d.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, typ, frame.Type)

	out, err := Decode(frame.Type, frame.Payload)
	require.NoError(t, err)
	return out
}

func TestHelloRequestRoundTrip(t *testing.T) {
	in := HelloRequest{ClientInfo: "home-assistant", ApiVersionMajor: 1, ApiVersionMinor: 10}
	require.Equal(t, in, roundTrip(t, in))
}

func TestDeviceInfoResponseRoundTrip(t *testing.T) {
	in := DeviceInfoResponse{
		Name:         "workstation-satellite",
		MacAddress:   "aa:bb:cc:dd:ee:ff",
		UsesPassword: true,
		Model:        "desktop",
		Manufacturer: "generic",
		FeatureFlags: FeatureVoiceAssistant | FeatureAnnounce | FeatureTimers,
	}
	require.Equal(t, in, roundTrip(t, in))
}

func TestListEntitiesServiceResponseRoundTrip(t *testing.T) {
	in := ListEntitiesServiceResponse{
		ObjectID: "mute_toggle",
		Key:      201,
		Name:     "Mute Toggle",
		ArgNames: []string{"state"},
	}
	require.Equal(t, in, roundTrip(t, in))
}

func TestSensorStateResponseRoundTrip(t *testing.T) {
	in := SensorStateResponse{Key: 42, State: 0.875, MissingState: false}
	require.Equal(t, in, roundTrip(t, in))
}

func TestSensorStateResponseZeroStateRoundTrips(t *testing.T) {
	in := SensorStateResponse{Key: 42, State: 0, MissingState: true}
	require.Equal(t, in, roundTrip(t, in))
}

func TestVoiceAssistantConfigurationResponseRoundTrip(t *testing.T) {
	in := VoiceAssistantConfigurationResponse{
		AvailableWakeWords: []AvailableWakeWord{
			{ID: "okay_nabu", WakeWord: "Okay Nabu", TrainedLanguages: []string{"en"}},
			{ID: "hey_jarvis", WakeWord: "Hey Jarvis", TrainedLanguages: []string{"en", "de"}},
		},
		ActiveWakeWords:    []string{"okay_nabu"},
		MaxActiveWakeWords: 2,
	}
	require.Equal(t, in, roundTrip(t, in))
}

func TestVoiceAssistantEventResponseRoundTrip(t *testing.T) {
	in := VoiceAssistantEventResponse{
		EventType: EventSTTEnd,
		Data:      map[string]string{"text": "turn off the lights"},
	}
	require.Equal(t, in, roundTrip(t, in))
}

func TestVoiceAssistantAudioRoundTrip(t *testing.T) {
	in := VoiceAssistantAudio{Data: []byte{0x01, 0x02, 0x03, 0x00, 0xff}, End: false}
	require.Equal(t, in, roundTrip(t, in))
}

func TestVoiceAssistantAudioEndRoundTrip(t *testing.T) {
	in := VoiceAssistantAudio{Data: nil, End: true}
	out := roundTrip(t, in)
	got := out.(VoiceAssistantAudio)
	require.Empty(t, got.Data)
	require.True(t, got.End)
}

func TestMediaPlayerCommandRequestRoundTrip(t *testing.T) {
	in := MediaPlayerCommandRequest{
		Key:          10,
		HasVolume:    true,
		Volume:       0.33,
		HasMute:      true,
		Mute:         false,
		Announcement: true,
	}
	require.Equal(t, in, roundTrip(t, in))
}

func TestExecuteServiceRequestRoundTrip(t *testing.T) {
	in := ExecuteServiceRequest{Key: 205, Args: map[string]string{"state": "on"}}
	require.Equal(t, in, roundTrip(t, in))
}

func TestDecodeUnknownTypeReturnsErrUnknownType(t *testing.T) {
	_, err := Decode(9999, nil)
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestPingRequestRoundTripEmptyPayload(t *testing.T) {
	require.Equal(t, PingRequest{}, roundTrip(t, PingRequest{}))
}
