package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcreteScenarios(t *testing.T) {
	cases := []struct {
		name string
		run  func(w *Writer)
		want []byte
	}{
		{"uint32 zero", func(w *Writer) { w.Uint32(0) }, []byte{0x00}},
		{"uint32 150", func(w *Writer) { w.Uint32(150) }, []byte{0x96, 0x01}},
		{"sint32 -1", func(w *Writer) { w.Sint32(-1) }, []byte{0x01}},
		{"fixed32 1", func(w *Writer) { w.Fixed32(1) }, []byte{0x01, 0x00, 0x00, 0x00}},
		{"tag+bytes", func(w *Writer) { w.Tag(1, WireBytes).Bytes([]byte{0xAA, 0xBB}) }, []byte{0x0A, 0x02, 0xAA, 0xBB}},
		{"string euro sign", func(w *Writer) { w.String("€") }, []byte{0x03, 0xE2, 0x82, 0xAC}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := NewWriter()
			tc.run(w)
			assert.Equal(t, tc.want, w.Finish())
		})
	}
}

func TestPackedRepeatedInt32(t *testing.T) {
	w := NewWriter()
	w.Fork()
	for _, v := range []int32{1, 2, 150} {
		w.Int32(v)
	}
	body := w.Finish()
	w.Tag(3, WireBytes).Bytes(body)
	assert.Equal(t, []byte{0x1A, 0x04, 0x01, 0x02, 0x96, 0x01}, w.Finish())
}

func TestEmptyBytesIsSingleZeroByte(t *testing.T) {
	w := NewWriter()
	w.Bytes(nil)
	assert.Equal(t, []byte{0x00}, w.Finish())
}

func TestNonEmptyBytesIsLengthThenPayload(t *testing.T) {
	w := NewWriter()
	w.Bytes([]byte{1, 2, 3})
	assert.Equal(t, []byte{0x03, 1, 2, 3}, w.Finish())
}

func TestFinishOnUntouchedWriterReturnsSharedEmpty(t *testing.T) {
	w := NewWriter()
	got := w.Finish()
	assert.Equal(t, []byte{}, got)
	assert.Len(t, got, 0)
}

// TestWriteThenFinishAcrossChunkBoundaries is property 2 from spec
// section 8: a write sequence that straddles an internal chunk boundary
// produces the same bytes as one that doesn't.
func TestWriteThenFinishAcrossChunkBoundaries(t *testing.T) {
	payload := make([]byte, 10)
	for i := range payload {
		payload[i] = byte(i)
	}

	big := NewWriterSize(4096)
	big.Bytes(payload)
	want := big.Finish()

	small := NewWriterSize(1) // forces a new chunk on almost every write
	small.Bytes(payload)
	got := small.Finish()

	assert.Equal(t, want, got)
}

// TestForkResetRestoresPreForkState is property 3 from spec section 8.
func TestForkResetRestoresPreForkState(t *testing.T) {
	w := NewWriter()
	w.Tag(1, WireVarint).Uint32(42)
	preForkLen := w.Len()

	w.Fork()
	w.Tag(2, WireVarint).Uint32(7)
	body := w.Finish()

	require.Equal(t, preForkLen, w.Len(), "finish-within-fork must restore the pre-fork cursor")

	inner := NewWriter()
	inner.Tag(2, WireVarint).Uint32(7)
	assert.Equal(t, inner.Finish(), body)

	w.Tag(3, WireBytes).Bytes(body)
	final := w.Finish()

	independent := NewWriter()
	independent.Tag(1, WireVarint).Uint32(42)
	independent.Tag(3, WireBytes).Bytes(body)
	assert.Equal(t, independent.Finish(), final)
}

func TestVarintRoundTripUint32(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 16383, 16384, 1<<32 - 1} {
		w := NewWriter()
		w.Uint32(v)
		out := w.Finish()
		got, n := decodeVarint(out)
		require.Equal(t, n, len(out))
		assert.Equal(t, uint64(v), got)
	}
}

func TestZigZagRoundTrip32(t *testing.T) {
	for _, v := range []int32{0, -1, 1, -2147483648, 2147483647} {
		w := NewWriter()
		w.Sint32(v)
		raw, _ := decodeVarint(w.Finish())
		got := int32(raw>>1) ^ -int32(raw&1)
		assert.Equal(t, v, got)
	}
}

func TestZigZagRoundTrip64(t *testing.T) {
	for _, v := range []int64{0, -1, 1, -9223372036854775808, 9223372036854775807} {
		w := NewWriter()
		w.Sint64(v)
		raw, _ := decodeVarint(w.Finish())
		got := int64(raw>>1) ^ -int64(raw&1)
		assert.Equal(t, v, got)
	}
}

func TestStringRoundTripUnicode(t *testing.T) {
	for _, s := range []string{"", "a", "€", "\U0001F600", "mixed € \U0001F600 text"} {
		w := NewWriter()
		w.String(s)
		out := w.Finish()
		n, consumed := decodeVarint(out)
		body := out[consumed:]
		require.Equal(t, int(n), len(body))
		assert.Equal(t, s, string(body))
		assert.Equal(t, len([]byte(s)), len(body))
	}
}

func TestInt32NegativeSignExtendsToTenBytes(t *testing.T) {
	w := NewWriter()
	w.Int32(-1)
	assert.Len(t, w.Finish(), 10, "negative int32 must use the canonical 10-byte varint form")
}

func TestBufferWriterMatchesWriter(t *testing.T) {
	w := NewWriter()
	w.Tag(1, WireVarint).Uint32(150)
	w.Tag(2, WireFixed64).Double(3.5)
	w.Tag(3, WireBytes).String("hello")
	want := w.Finish()

	bw := NewBufferWriter()
	bw.Tag(1, WireVarint).Uint32(150)
	bw.Tag(2, WireFixed64).Double(3.5)
	bw.Tag(3, WireBytes).String("hello")
	got := bw.Finish()

	assert.Equal(t, want, got)
}

func TestBufferWriterForkReset(t *testing.T) {
	bw := NewBufferWriter()
	bw.Tag(1, WireVarint).Uint32(1)
	bw.Fork()
	bw.Tag(2, WireVarint).Uint32(2)
	sub := bw.Finish()
	bw.Tag(3, WireBytes).Bytes(sub)
	got := bw.Finish()

	w := NewWriter()
	w.Tag(1, WireVarint).Uint32(1)
	w.Fork()
	w.Tag(2, WireVarint).Uint32(2)
	innerSub := w.Finish()
	w.Tag(3, WireBytes).Bytes(innerSub)
	want := w.Finish()

	assert.Equal(t, want, got)
}

// decodeVarint is test-only scaffolding (decoders are out of scope for
// this module) just precise enough to check round trips.
func decodeVarint(b []byte) (uint64, int) {
	var x uint64
	var shift uint
	for i, c := range b {
		x |= uint64(c&0x7f) << shift
		if c < 0x80 {
			return x, i + 1
		}
		shift += 7
	}
	return x, len(b)
}
