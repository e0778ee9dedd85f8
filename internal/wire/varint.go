package wire

import "errors"

// ErrVarintOverlong is returned when a varint exceeds the maximum byte
// length allowed for its field (framing violation, fatal per spec).
var ErrVarintOverlong = errors.New("wire: varint overlong")

// maxVarintBytes bounds how many continuation bytes we will read before
// treating a varint as a framing violation. 10 bytes covers a full
// 64-bit varint; callers that only expect a 32-bit value pass a lower
// limit (5).
const maxVarintBytes = 10

// appendUvarint appends v to dst using the standard 7-bit
// little-endian continuation encoding (MSB = more bytes follow).
func appendUvarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// decodeUvarint reads a varint from the front of buf. It returns the
// decoded value, the number of bytes consumed, and whether a complete
// varint was available. If more than maxLen bytes are consumed without
// terminating, err is ErrVarintOverlong (fatal framing error).
func decodeUvarint(buf []byte, maxLen int) (v uint64, n int, needMore bool, err error) {
	if maxLen <= 0 || maxLen > maxVarintBytes {
		maxLen = maxVarintBytes
	}
	var shift uint
	for i := 0; i < len(buf); i++ {
		if i >= maxLen {
			return 0, 0, false, ErrVarintOverlong
		}
		b := buf[i]
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, i + 1, false, nil
		}
		shift += 7
	}
	return 0, 0, true, nil
}
