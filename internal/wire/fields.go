package wire

import "errors"

// Payload serialization uses a small tag-length-value encoding, one
// field per declared struct field, in the spirit of the real ESPHome
// Native API's protobuf payloads without requiring a generated protobuf
// schema: each field is a varint tag (fieldNumber<<3 | wireType)
// followed by a varint value (wireType 0) or a length-prefixed byte run
// (wireType 2). This is enough to give every message type in spec.md §6
// a stable, round-trippable wire form.

const (
	wireVarint = 0
	wireBytes  = 2
)

var errTruncatedField = errors.New("wire: truncated field")

type fieldWriter struct {
	buf []byte
}

func (w *fieldWriter) varint(field int, v uint64) {
	if v == 0 {
		return
	}
	w.buf = appendUvarint(w.buf, uint64(field<<3|wireVarint))
	w.buf = appendUvarint(w.buf, v)
}

func (w *fieldWriter) boolField(field int, v bool) {
	if !v {
		return
	}
	w.varint(field, 1)
}

func (w *fieldWriter) bytesField(field int, v []byte) {
	if len(v) == 0 {
		return
	}
	w.buf = appendUvarint(w.buf, uint64(field<<3|wireBytes))
	w.buf = appendUvarint(w.buf, uint64(len(v)))
	w.buf = append(w.buf, v...)
}

func (w *fieldWriter) stringField(field int, v string) {
	if v == "" {
		return
	}
	w.bytesField(field, []byte(v))
}

// subMessage encodes a nested fieldWriter as a length-delimited field,
// used for repeated structured values (entity lists, map entries).
func (w *fieldWriter) subMessage(field int, sub *fieldWriter) {
	w.bytesField(field, sub.buf)
}

func (w *fieldWriter) bytes() []byte { return w.buf }

type rawField struct {
	num   int
	wire  int
	value uint64
	bytes []byte
}

// parseFields splits a payload into its top-level tagged fields. It does
// not interpret them; each message's decode function looks up the field
// numbers it expects.
func parseFields(payload []byte) ([]rawField, error) {
	var fields []rawField
	i := 0
	for i < len(payload) {
		tag, n, needMore, err := decodeUvarint(payload[i:], maxVarintBytes)
		if err != nil {
			return nil, err
		}
		if needMore {
			return nil, errTruncatedField
		}
		i += n
		field := int(tag >> 3)
		wireType := int(tag & 0x7)

		switch wireType {
		case wireVarint:
			v, n, needMore, err := decodeUvarint(payload[i:], maxVarintBytes)
			if err != nil {
				return nil, err
			}
			if needMore {
				return nil, errTruncatedField
			}
			i += n
			fields = append(fields, rawField{num: field, wire: wireType, value: v})
		case wireBytes:
			length, n, needMore, err := decodeUvarint(payload[i:], maxVarintBytes)
			if err != nil {
				return nil, err
			}
			if needMore {
				return nil, errTruncatedField
			}
			i += n
			if i+int(length) > len(payload) {
				return nil, errTruncatedField
			}
			fields = append(fields, rawField{num: field, wire: wireType, bytes: payload[i : i+int(length)]})
			i += int(length)
		default:
			return nil, errors.New("wire: unsupported field wire type")
		}
	}
	return fields, nil
}

func fieldsByNum(fields []rawField, num int) []rawField {
	var out []rawField
	for _, f := range fields {
		if f.num == num {
			out = append(out, f)
		}
	}
	return out
}

func firstString(fields []rawField, num int) string {
	for _, f := range fields {
		if f.num == num && f.wire == wireBytes {
			return string(f.bytes)
		}
	}
	return ""
}

func firstBool(fields []rawField, num int) bool {
	for _, f := range fields {
		if f.num == num && f.wire == wireVarint {
			return f.value != 0
		}
	}
	return false
}

func firstUint64(fields []rawField, num int) uint64 {
	for _, f := range fields {
		if f.num == num && f.wire == wireVarint {
			return f.value
		}
	}
	return 0
}

func allStrings(fields []rawField, num int) []string {
	var out []string
	for _, f := range fields {
		if f.num == num && f.wire == wireBytes {
			out = append(out, string(f.bytes))
		}
	}
	return out
}

// encodeStringMapEntry and decodeStringMapEntry mirror protobuf's
// map<string,string> encoding: a nested message with key=field 1,
// value=field 2.
func encodeStringMapEntry(k, v string) []byte {
	w := &fieldWriter{}
	w.stringField(1, k)
	w.stringField(2, v)
	return w.bytes()
}

func decodeStringMapEntry(raw []byte) (string, string, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return "", "", err
	}
	return firstString(fields, 1), firstString(fields, 2), nil
}

func allStringMap(fields []rawField, num int) (map[string]string, error) {
	out := make(map[string]string)
	for _, f := range fields {
		if f.num != num || f.wire != wireBytes {
			continue
		}
		k, v, err := decodeStringMapEntry(f.bytes)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}
