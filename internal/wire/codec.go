package wire

import (
	"fmt"
	"math"
)

// Encode serializes a typed message into its wire type tag and payload
// bytes. It is the encoding half of the codec bijection required by
// spec.md §8 property 1.
func Encode(msg any) (uint32, []byte, error) {
	switch m := msg.(type) {
	case HelloRequest:
		w := &fieldWriter{}
		w.stringField(1, m.ClientInfo)
		w.varint(2, uint64(m.ApiVersionMajor))
		w.varint(3, uint64(m.ApiVersionMinor))
		return TypeHelloRequest, w.bytes(), nil
	case HelloResponse:
		w := &fieldWriter{}
		w.varint(1, uint64(m.ApiVersionMajor))
		w.varint(2, uint64(m.ApiVersionMinor))
		w.stringField(3, m.Name)
		w.stringField(4, m.ServerInfo)
		return TypeHelloResponse, w.bytes(), nil
	case AuthenticationRequest:
		w := &fieldWriter{}
		w.stringField(1, m.Password)
		return TypeAuthenticationRequest, w.bytes(), nil
	case AuthenticationResponse:
		w := &fieldWriter{}
		w.boolField(1, m.InvalidPassword)
		return TypeAuthenticationResponse, w.bytes(), nil
	case DisconnectRequest:
		return TypeDisconnectRequest, nil, nil
	case DisconnectResponse:
		return TypeDisconnectResponse, nil, nil
	case PingRequest:
		return TypePingRequest, nil, nil
	case PingResponse:
		return TypePingResponse, nil, nil
	case DeviceInfoRequest:
		return TypeDeviceInfoRequest, nil, nil
	case DeviceInfoResponse:
		w := &fieldWriter{}
		w.stringField(1, m.Name)
		w.stringField(2, m.MacAddress)
		w.boolField(3, m.UsesPassword)
		w.stringField(4, m.Model)
		w.stringField(5, m.Manufacturer)
		w.varint(6, uint64(m.FeatureFlags))
		return TypeDeviceInfoResponse, w.bytes(), nil
	case ListEntitiesRequest:
		return TypeListEntitiesRequest, nil, nil
	case ListEntitiesSensorResponse:
		w := &fieldWriter{}
		w.stringField(1, m.ObjectID)
		w.varint(2, uint64(m.Key))
		w.stringField(3, m.Name)
		w.stringField(4, m.UnitOfMeasurement)
		w.stringField(5, m.DeviceClass)
		return TypeListEntitiesSensorResponse, w.bytes(), nil
	case ListEntitiesBinarySensorResponse:
		w := &fieldWriter{}
		w.stringField(1, m.ObjectID)
		w.varint(2, uint64(m.Key))
		w.stringField(3, m.Name)
		w.stringField(4, m.DeviceClass)
		return TypeListEntitiesBinarySensorResponse, w.bytes(), nil
	case ListEntitiesButtonResponse:
		w := &fieldWriter{}
		w.stringField(1, m.ObjectID)
		w.varint(2, uint64(m.Key))
		w.stringField(3, m.Name)
		return TypeListEntitiesButtonResponse, w.bytes(), nil
	case ListEntitiesServiceResponse:
		w := &fieldWriter{}
		w.stringField(1, m.ObjectID)
		w.varint(2, uint64(m.Key))
		w.stringField(3, m.Name)
		for _, a := range m.ArgNames {
			w.stringField(4, a)
		}
		return TypeListEntitiesServiceResponse, w.bytes(), nil
	case ListEntitiesMediaPlayerResponse:
		w := &fieldWriter{}
		w.stringField(1, m.ObjectID)
		w.varint(2, uint64(m.Key))
		w.stringField(3, m.Name)
		return TypeListEntitiesMediaPlayerResponse, w.bytes(), nil
	case ListEntitiesDoneResponse:
		return TypeListEntitiesDoneResponse, nil, nil
	case SubscribeHomeAssistantStatesRequest:
		return TypeSubscribeHomeAssistantStatesRequest, nil, nil
	case SensorStateResponse:
		w := &fieldWriter{}
		w.varint(1, uint64(m.Key))
		w.varint(2, float64Bits(m.State))
		w.boolField(3, m.MissingState)
		return TypeSensorStateResponse, w.bytes(), nil
	case BinarySensorStateResponse:
		w := &fieldWriter{}
		w.varint(1, uint64(m.Key))
		w.boolField(2, m.State)
		w.boolField(3, m.MissingState)
		return TypeBinarySensorStateResponse, w.bytes(), nil
	case MediaPlayerStateResponse:
		w := &fieldWriter{}
		w.varint(1, uint64(m.Key))
		w.stringField(2, m.State)
		w.varint(3, float64Bits(m.Volume))
		w.boolField(4, m.Muted)
		return TypeMediaPlayerStateResponse, w.bytes(), nil
	case VoiceAssistantConfigurationRequest:
		return TypeVoiceAssistantConfigurationRequest, nil, nil
	case VoiceAssistantConfigurationResponse:
		w := &fieldWriter{}
		for _, aw := range m.AvailableWakeWords {
			sw := &fieldWriter{}
			sw.stringField(1, aw.ID)
			sw.stringField(2, aw.WakeWord)
			for _, lang := range aw.TrainedLanguages {
				sw.stringField(3, lang)
			}
			w.subMessage(1, sw)
		}
		for _, id := range m.ActiveWakeWords {
			w.stringField(2, id)
		}
		w.varint(3, uint64(m.MaxActiveWakeWords))
		return TypeVoiceAssistantConfigurationResponse, w.bytes(), nil
	case VoiceAssistantSetConfiguration:
		w := &fieldWriter{}
		for _, id := range m.ActiveWakeWords {
			w.stringField(1, id)
		}
		return TypeVoiceAssistantSetConfiguration, w.bytes(), nil
	case VoiceAssistantEventResponse:
		w := &fieldWriter{}
		w.stringField(1, m.EventType)
		for k, v := range m.Data {
			w.subMessage(2, &fieldWriter{buf: encodeStringMapEntry(k, v)})
		}
		return TypeVoiceAssistantEventResponse, w.bytes(), nil
	case VoiceAssistantAnnounceRequest:
		w := &fieldWriter{}
		w.stringField(1, m.MediaID)
		w.stringField(2, m.Text)
		w.stringField(3, m.PreannounceMediaID)
		w.boolField(4, m.StartConversation)
		return TypeVoiceAssistantAnnounceRequest, w.bytes(), nil
	case VoiceAssistantAnnounceFinished:
		w := &fieldWriter{}
		w.boolField(1, m.Success)
		return TypeVoiceAssistantAnnounceFinished, w.bytes(), nil
	case VoiceAssistantRequest:
		w := &fieldWriter{}
		w.boolField(1, m.Start)
		w.stringField(2, m.WakeWordPhrase)
		return TypeVoiceAssistantRequest, w.bytes(), nil
	case VoiceAssistantAudio:
		w := &fieldWriter{}
		w.bytesField(1, m.Data)
		w.boolField(2, m.End)
		return TypeVoiceAssistantAudio, w.bytes(), nil
	case VoiceAssistantTimerEventResponse:
		w := &fieldWriter{}
		w.stringField(1, m.EventType)
		w.stringField(2, m.TimerID)
		w.stringField(3, m.Name)
		w.varint(4, uint64(m.TotalSeconds))
		w.varint(5, uint64(m.SecondsLeft))
		w.boolField(6, m.IsActive)
		return TypeVoiceAssistantTimerEventResponse, w.bytes(), nil
	case MediaPlayerCommandRequest:
		w := &fieldWriter{}
		w.varint(1, uint64(m.Key))
		w.boolField(2, m.HasMediaURL)
		w.stringField(3, m.MediaURL)
		w.boolField(4, m.HasCommand)
		w.stringField(5, m.Command)
		w.boolField(6, m.HasVolume)
		w.varint(7, float64Bits(m.Volume))
		w.boolField(8, m.HasMute)
		w.boolField(9, m.Mute)
		w.boolField(10, m.Announcement)
		return TypeMediaPlayerCommandRequest, w.bytes(), nil
	case ButtonCommandRequest:
		w := &fieldWriter{}
		w.varint(1, uint64(m.Key))
		return TypeButtonCommandRequest, w.bytes(), nil
	case ExecuteServiceRequest:
		w := &fieldWriter{}
		w.varint(1, uint64(m.Key))
		for k, v := range m.Args {
			w.subMessage(2, &fieldWriter{buf: encodeStringMapEntry(k, v)})
		}
		return TypeExecuteServiceRequest, w.bytes(), nil
	default:
		return 0, nil, fmt.Errorf("wire: unsupported message type %T", msg)
	}
}

// Decode parses a frame payload into its typed message given the wire
// type tag. Unknown types return ErrUnknownType so callers can log and
// ignore per spec.md §4.2.
func Decode(typ uint32, payload []byte) (any, error) {
	fields, err := parseFields(payload)
	if err != nil {
		return nil, err
	}

	switch typ {
	case TypeHelloRequest:
		return HelloRequest{
			ClientInfo:      firstString(fields, 1),
			ApiVersionMajor: uint32(firstUint64(fields, 2)),
			ApiVersionMinor: uint32(firstUint64(fields, 3)),
		}, nil
	case TypeHelloResponse:
		return HelloResponse{
			ApiVersionMajor: uint32(firstUint64(fields, 1)),
			ApiVersionMinor: uint32(firstUint64(fields, 2)),
			Name:            firstString(fields, 3),
			ServerInfo:      firstString(fields, 4),
		}, nil
	case TypeAuthenticationRequest:
		return AuthenticationRequest{Password: firstString(fields, 1)}, nil
	case TypeAuthenticationResponse:
		return AuthenticationResponse{InvalidPassword: firstBool(fields, 1)}, nil
	case TypeDisconnectRequest:
		return DisconnectRequest{}, nil
	case TypeDisconnectResponse:
		return DisconnectResponse{}, nil
	case TypePingRequest:
		return PingRequest{}, nil
	case TypePingResponse:
		return PingResponse{}, nil
	case TypeDeviceInfoRequest:
		return DeviceInfoRequest{}, nil
	case TypeDeviceInfoResponse:
		return DeviceInfoResponse{
			Name:         firstString(fields, 1),
			MacAddress:   firstString(fields, 2),
			UsesPassword: firstBool(fields, 3),
			Model:        firstString(fields, 4),
			Manufacturer: firstString(fields, 5),
			FeatureFlags: uint32(firstUint64(fields, 6)),
		}, nil
	case TypeListEntitiesRequest:
		return ListEntitiesRequest{}, nil
	case TypeListEntitiesSensorResponse:
		return ListEntitiesSensorResponse{
			ObjectID:          firstString(fields, 1),
			Key:               uint32(firstUint64(fields, 2)),
			Name:              firstString(fields, 3),
			UnitOfMeasurement: firstString(fields, 4),
			DeviceClass:       firstString(fields, 5),
		}, nil
	case TypeListEntitiesBinarySensorResponse:
		return ListEntitiesBinarySensorResponse{
			ObjectID:    firstString(fields, 1),
			Key:         uint32(firstUint64(fields, 2)),
			Name:        firstString(fields, 3),
			DeviceClass: firstString(fields, 4),
		}, nil
	case TypeListEntitiesButtonResponse:
		return ListEntitiesButtonResponse{
			ObjectID: firstString(fields, 1),
			Key:      uint32(firstUint64(fields, 2)),
			Name:     firstString(fields, 3),
		}, nil
	case TypeListEntitiesServiceResponse:
		return ListEntitiesServiceResponse{
			ObjectID: firstString(fields, 1),
			Key:      uint32(firstUint64(fields, 2)),
			Name:     firstString(fields, 3),
			ArgNames: allStrings(fields, 4),
		}, nil
	case TypeListEntitiesMediaPlayerResponse:
		return ListEntitiesMediaPlayerResponse{
			ObjectID: firstString(fields, 1),
			Key:      uint32(firstUint64(fields, 2)),
			Name:     firstString(fields, 3),
		}, nil
	case TypeListEntitiesDoneResponse:
		return ListEntitiesDoneResponse{}, nil
	case TypeSubscribeHomeAssistantStatesRequest:
		return SubscribeHomeAssistantStatesRequest{}, nil
	case TypeSensorStateResponse:
		return SensorStateResponse{
			Key:          uint32(firstUint64(fields, 1)),
			State:        bitsFloat64(firstUint64(fields, 2)),
			MissingState: firstBool(fields, 3),
		}, nil
	case TypeBinarySensorStateResponse:
		return BinarySensorStateResponse{
			Key:          uint32(firstUint64(fields, 1)),
			State:        firstBool(fields, 2),
			MissingState: firstBool(fields, 3),
		}, nil
	case TypeMediaPlayerStateResponse:
		return MediaPlayerStateResponse{
			Key:    uint32(firstUint64(fields, 1)),
			State:  firstString(fields, 2),
			Volume: bitsFloat64(firstUint64(fields, 3)),
			Muted:  firstBool(fields, 4),
		}, nil
	case TypeVoiceAssistantConfigurationRequest:
		return VoiceAssistantConfigurationRequest{}, nil
	case TypeVoiceAssistantConfigurationResponse:
		var aws []AvailableWakeWord
		for _, f := range fieldsByNum(fields, 1) {
			sub, err := parseFields(f.bytes)
			if err != nil {
				return nil, err
			}
			aws = append(aws, AvailableWakeWord{
				ID:               firstString(sub, 1),
				WakeWord:         firstString(sub, 2),
				TrainedLanguages: allStrings(sub, 3),
			})
		}
		return VoiceAssistantConfigurationResponse{
			AvailableWakeWords: aws,
			ActiveWakeWords:    allStrings(fields, 2),
			MaxActiveWakeWords: uint32(firstUint64(fields, 3)),
		}, nil
	case TypeVoiceAssistantSetConfiguration:
		return VoiceAssistantSetConfiguration{ActiveWakeWords: allStrings(fields, 1)}, nil
	case TypeVoiceAssistantEventResponse:
		data, err := allStringMap(fields, 2)
		if err != nil {
			return nil, err
		}
		return VoiceAssistantEventResponse{
			EventType: firstString(fields, 1),
			Data:      data,
		}, nil
	case TypeVoiceAssistantAnnounceRequest:
		return VoiceAssistantAnnounceRequest{
			MediaID:            firstString(fields, 1),
			Text:               firstString(fields, 2),
			PreannounceMediaID: firstString(fields, 3),
			StartConversation:  firstBool(fields, 4),
		}, nil
	case TypeVoiceAssistantAnnounceFinished:
		return VoiceAssistantAnnounceFinished{Success: firstBool(fields, 1)}, nil
	case TypeVoiceAssistantRequest:
		return VoiceAssistantRequest{
			Start:          firstBool(fields, 1),
			WakeWordPhrase: firstString(fields, 2),
		}, nil
	case TypeVoiceAssistantAudio:
		var data []byte
		for _, f := range fields {
			if f.num == 1 && f.wire == wireBytes {
				data = f.bytes
			}
		}
		return VoiceAssistantAudio{Data: data, End: firstBool(fields, 2)}, nil
	case TypeVoiceAssistantTimerEventResponse:
		return VoiceAssistantTimerEventResponse{
			EventType:    firstString(fields, 1),
			TimerID:      firstString(fields, 2),
			Name:         firstString(fields, 3),
			TotalSeconds: uint32(firstUint64(fields, 4)),
			SecondsLeft:  uint32(firstUint64(fields, 5)),
			IsActive:     firstBool(fields, 6),
		}, nil
	case TypeMediaPlayerCommandRequest:
		return MediaPlayerCommandRequest{
			Key:          uint32(firstUint64(fields, 1)),
			HasMediaURL:  firstBool(fields, 2),
			MediaURL:     firstString(fields, 3),
			HasCommand:   firstBool(fields, 4),
			Command:      firstString(fields, 5),
			HasVolume:    firstBool(fields, 6),
			Volume:       bitsFloat64(firstUint64(fields, 7)),
			HasMute:      firstBool(fields, 8),
			Mute:         firstBool(fields, 9),
			Announcement: firstBool(fields, 10),
		}, nil
	case TypeButtonCommandRequest:
		return ButtonCommandRequest{Key: uint32(firstUint64(fields, 1))}, nil
	case TypeExecuteServiceRequest:
		args, err := allStringMap(fields, 2)
		if err != nil {
			return nil, err
		}
		return ExecuteServiceRequest{Key: uint32(firstUint64(fields, 1)), Args: args}, nil
	default:
		return nil, ErrUnknownType
	}
}

// ErrUnknownType is returned by Decode for a type tag this build does
// not recognize; spec.md §4.2/§7 calls for logging and ignoring it, not
// treating it as fatal.
var ErrUnknownType = fmt.Errorf("wire: unknown message type")

// float64Bits/bitsFloat64 carry a float64 through a varint field using
// its exact IEEE-754 bit pattern, so sensor/volume state values round
// trip without the precision loss a decimal scaling factor would add.
func float64Bits(f float64) uint64 { return math.Float64bits(f) }
func bitsFloat64(v uint64) float64 { return math.Float64frombits(v) }
