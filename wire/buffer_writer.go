package wire

import (
	"encoding/binary"
	"math"

	"github.com/protodyn/protowire/longbits"
)

// BufferWriter is the platform-optimized variant mentioned in spec
// section 4.1: rather than Writer's chunk-sealing discipline, it
// accumulates into a single growing []byte and delegates Float/Double
// to encoding/binary (Go's analog of a platform's writeFloatLE /
// writeDoubleLE), matching the teacher's codec.Buffer, which is also a
// single append-only []byte rather than a chunk list. Fork/Reset here is
// a stack of length markers into that slice instead of a stack of
// sealed-chunk snapshots.
//
// Semantics (including the Finish-pops-one-fork-level discipline) are
// identical to Writer; this type exists purely as a faster terminal
// encode path for callers that don't need amortized chunk growth.
type BufferWriter struct {
	buf   []byte
	marks []int // Fork/Reset stack: buf length at each Fork call
}

// NewBufferWriter returns an empty BufferWriter.
func NewBufferWriter() *BufferWriter {
	return &BufferWriter{}
}

func (w *BufferWriter) varint(v uint64) *BufferWriter {
	for v >= 0x80 {
		w.buf = append(w.buf, byte(v)|0x80)
		v >>= 7
	}
	w.buf = append(w.buf, byte(v))
	return w
}

// Tag writes one field tag: (id<<3)|wireType.
func (w *BufferWriter) Tag(id uint32, wt WireType) *BufferWriter {
	if id <= 15 {
		w.buf = append(w.buf, byte((id<<3)|uint32(wt)))
		return w
	}
	return w.varint(uint64(id)<<3 | uint64(wt))
}

// Uint32 varint-encodes v after zero-extending it to 64 bits.
func (w *BufferWriter) Uint32(v uint32) *BufferWriter { return w.varint(uint64(v)) }

// Int32 varint-encodes v, sign-extending negative values to the full
// 10-byte form (see Writer.Int32).
func (w *BufferWriter) Int32(v int32) *BufferWriter { return w.varint(uint64(int64(v))) }

// Sint32 zig-zag encodes v, then varint-encodes the result.
func (w *BufferWriter) Sint32(v int32) *BufferWriter {
	return w.varint(uint64(longbits.ZigZag32(v)))
}

// Uint64 varint-encodes v across up to 10 bytes.
func (w *BufferWriter) Uint64(v uint64) *BufferWriter { return w.varint(v) }

// Int64 varint-encodes v across up to 10 bytes.
func (w *BufferWriter) Int64(v int64) *BufferWriter { return w.varint(uint64(v)) }

// Sint64 zig-zag encodes v, then varint-encodes the result.
func (w *BufferWriter) Sint64(v int64) *BufferWriter {
	return w.varint(longbits.ZigZag64(v))
}

// Fixed32 writes v as 4 little-endian bytes.
func (w *BufferWriter) Fixed32(v uint32) *BufferWriter {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
	return w
}

// Sfixed32 zig-zags v first, matching Writer.Sfixed32.
func (w *BufferWriter) Sfixed32(v int32) *BufferWriter {
	return w.Fixed32(longbits.ZigZag32(v))
}

// Fixed64 writes v as 8 little-endian bytes.
func (w *BufferWriter) Fixed64(v uint64) *BufferWriter {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
	return w
}

// Sfixed64 writes v as 8 little-endian bytes, unmodified.
func (w *BufferWriter) Sfixed64(v int64) *BufferWriter {
	return w.Fixed64(uint64(v))
}

// Float writes v as a little-endian IEEE-754 single-precision value.
func (w *BufferWriter) Float(v float32) *BufferWriter {
	return w.Fixed32(math.Float32bits(v))
}

// Double writes v as a little-endian IEEE-754 double-precision value.
func (w *BufferWriter) Double(v float64) *BufferWriter {
	return w.Fixed64(math.Float64bits(v))
}

// Bool writes a single byte: 1 for true, 0 for false.
func (w *BufferWriter) Bool(v bool) *BufferWriter {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
	return w
}

// Bytes writes a varint length prefix followed by the raw bytes.
func (w *BufferWriter) Bytes(v []byte) *BufferWriter {
	w.Uint32(uint32(len(v)))
	w.buf = append(w.buf, v...)
	return w
}

// String writes a varint length prefix followed by the string's bytes.
func (w *BufferWriter) String(v string) *BufferWriter {
	w.Uint32(uint32(len(v)))
	w.buf = append(w.buf, v...)
	return w
}

// Fork marks the current buffer length so Finish/Reset can later return
// to it.
func (w *BufferWriter) Fork() *BufferWriter {
	w.marks = append(w.marks, len(w.buf))
	return w
}

// Reset truncates the buffer back to the most recently marked Fork
// point, or clears it entirely if no Fork is pending.
func (w *BufferWriter) Reset() *BufferWriter {
	if n := len(w.marks); n > 0 {
		mark := w.marks[n-1]
		w.marks = w.marks[:n-1]
		w.buf = w.buf[:mark]
		return w
	}
	w.buf = w.buf[:0]
	return w
}

// Finish returns the bytes written since the most recent Fork (or since
// the writer was created, if no Fork is pending), then pops that Fork
// level (see Writer.Finish for the discipline this mirrors).
func (w *BufferWriter) Finish() []byte {
	if n := len(w.marks); n > 0 {
		mark := w.marks[n-1]
		w.marks = w.marks[:n-1]
		out := w.buf[mark:]
		w.buf = w.buf[:mark]
		if len(out) == 0 {
			return emptyBytes
		}
		cp := make([]byte, len(out))
		copy(cp, out)
		return cp
	}
	if len(w.buf) == 0 {
		return emptyBytes
	}
	out := w.buf
	w.buf = nil
	return out
}
