package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecoderRoundTripsSingleFrame(t *testing.T) {
	payload := []byte{0x0a, 0x0b, 0x0c}
	buf := EncodeFrame(nil, 7, payload)

	d := NewDecoder()
	d.Feed(buf)

	frame, ok, err := d.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(7), frame.Type)
	require.Equal(t, payload, frame.Payload)

	_, ok, err = d.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDecoderNeedsMoreBytesBeforeCompleteFrame(t *testing.T) {
	buf := EncodeFrame(nil, 3, []byte{0x01, 0x02, 0x03, 0x04})

	d := NewDecoder()
	d.Feed(buf[:len(buf)-1])

	_, ok, err := d.Next()
	require.NoError(t, err)
	require.False(t, ok)

	d.Feed(buf[len(buf)-1:])
	frame, ok, err := d.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(3), frame.Type)
}

func TestDecoderRejectsNonZeroPreamble(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte{0x01, 0x00, 0x00})

	_, ok, err := d.Next()
	require.ErrorIs(t, err, ErrBadPreamble)
	require.False(t, ok)
}

func TestDecoderDrainsMultipleBufferedFrames(t *testing.T) {
	var buf []byte
	buf = EncodeFrame(buf, 1, []byte("a"))
	buf = EncodeFrame(buf, 2, []byte("bb"))
	buf = EncodeFrame(buf, 3, nil)

	d := NewDecoder()
	d.Feed(buf)

	var got []uint32
	for {
		frame, ok, err := d.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, frame.Type)
	}
	require.Equal(t, []uint32{1, 2, 3}, got)
}

func TestBatchConcatenatesFrames(t *testing.T) {
	var b Batch
	b.Add(1, []byte("x"))
	b.Add(2, []byte("yy"))

	d := NewDecoder()
	d.Feed(b.Bytes())

	f1, ok, err := d.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(1), f1.Type)

	f2, ok, err := d.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(2), f2.Type)
}

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 1 << 20, 1 << 40, ^uint64(0)}
	for _, v := range values {
		buf := appendUvarint(nil, v)
		got, n, needMore, err := decodeUvarint(buf, maxVarintBytes)
		require.NoError(t, err)
		require.False(t, needMore)
		require.Equal(t, len(buf), n)
		require.Equal(t, v, got)
	}
}

func TestDecodeUvarintOverlong(t *testing.T) {
	buf := []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80}
	_, _, _, err := decodeUvarint(buf, 5)
	require.ErrorIs(t, err, ErrVarintOverlong)
}
