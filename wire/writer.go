// Package wire implements the streaming byte writer that emits the
// canonical Protocol Buffers binary wire format: varints, little-endian
// fixed-width integers, IEEE-754 floats, and length-delimited
// strings/bytes/messages.
//
// A Writer amortizes allocation across growing chunks and supports
// snapshotted sub-encoding (Fork/Reset/Finish) so length-delimited
// sub-messages can be emitted without pre-computing their length.
// Writers are single-threaded: concurrent use of one Writer from more
// than one goroutine is undefined, mirroring the teacher's Buffer type
// in codec.Buffer.
package wire

import (
	"math"

	"github.com/protodyn/protowire/longbits"
)

// DefaultChunkSize is the capacity of a freshly allocated chunk when a
// write demands no more than this many bytes. 256 was the teacher's
// empirical choice for the reference platform; it is a package variable
// rather than a constant so callers can tune it via NewWriterSize.
var DefaultChunkSize = 256

// WireType is the 3-bit framing code carried in every tag.
type WireType uint8

const (
	WireVarint  WireType = 0
	WireFixed64 WireType = 1
	WireBytes   WireType = 2
	WireFixed32 WireType = 5
)

// emptyBytes is the shared immutable sentinel returned by Finish when
// nothing was ever written. Callers must not mutate it.
var emptyBytes = []byte{}

type snapshot struct {
	bufs [][]byte
	buf  []byte
	pos  int
}

// Writer is an append-only byte emitter producing the protobuf wire
// format. Every write method returns the Writer itself so calls chain:
//
//	w.Tag(1, wire.WireBytes).Bytes(data)
type Writer struct {
	buf  []byte   // active chunk
	pos  int      // write cursor within buf
	bufs [][]byte // previously sealed chunks, in order

	stack []snapshot // Fork/Reset snapshot stack, LIFO

	chunkSize int // overrides DefaultChunkSize when non-zero
}

// NewWriter returns an empty Writer using DefaultChunkSize chunks.
func NewWriter() *Writer {
	return &Writer{}
}

// NewWriterSize returns an empty Writer whose chunks are at least
// chunkSize bytes (subject to growing larger for any single write that
// needs more room than that).
func NewWriterSize(chunkSize int) *Writer {
	w := &Writer{}
	if chunkSize > 0 {
		w.chunkSize = chunkSize
	}
	return w
}

// ensure guarantees the active chunk has room for need more bytes,
// sealing the current chunk and allocating a new one if not. This is
// the writer's only allocation point outside of Bytes/String payload
// copies.
func (w *Writer) ensure(need int) {
	if w.buf != nil && w.pos+need <= len(w.buf) {
		return
	}
	if w.buf != nil {
		w.bufs = append(w.bufs, w.buf[:w.pos])
	}
	size := w.effectiveChunkSize()
	if need > size {
		size = need
	}
	w.buf = make([]byte, size)
	w.pos = 0
}

func (w *Writer) effectiveChunkSize() int {
	if w.chunkSize > 0 {
		return w.chunkSize
	}
	return DefaultChunkSize
}

// Tag writes one field tag: (id<<3)|wireType. Per spec, ids up to 15 are
// emitted as a single byte; larger ids fall back to the general varint
// path, since (id<<3) would no longer fit in 7 bits.
func (w *Writer) Tag(id uint32, wt WireType) *Writer {
	if id <= 15 {
		w.ensure(1)
		w.buf[w.pos] = byte((id << 3) | uint32(wt))
		w.pos++
		return w
	}
	return w.varint(uint64(id)<<3 | uint64(wt))
}

// varint writes v as a base-128, LSB-first varint with continuation bits
// on every byte but the last. This is the single varint primitive that
// all of Uint32/Int32/Uint64/Int64/Sint32/Sint64 (and Tag, for ids above
// 15) funnel into.
func (w *Writer) varint(v uint64) *Writer {
	const maxVarintLen = 10
	if w.buf != nil && w.pos+maxVarintLen <= len(w.buf) {
		// Fast path: capacity already checked once, skip per-byte test.
		for v >= 0x80 {
			w.buf[w.pos] = byte(v) | 0x80
			w.pos++
			v >>= 7
		}
		w.buf[w.pos] = byte(v)
		w.pos++
		return w
	}
	w.ensure(longbits.VarintLen(v))
	for v >= 0x80 {
		w.buf[w.pos] = byte(v) | 0x80
		w.pos++
		v >>= 7
	}
	w.buf[w.pos] = byte(v)
	w.pos++
	return w
}

// Uint32 varint-encodes v after zero-extending it to 64 bits.
func (w *Writer) Uint32(v uint32) *Writer {
	return w.varint(uint64(v))
}

// Int32 varint-encodes a (possibly negative) 32-bit value. Negative
// values are sign-extended to 64 bits first, producing the canonical
// 10-byte wire form, per this spec's resolution of the "int32 does not
// sign-extend" open question (see DESIGN.md); the teacher's codec.go
// took the 5-byte-truncated shortcut this module deliberately does not
// reproduce.
func (w *Writer) Int32(v int32) *Writer {
	return w.varint(uint64(int64(v)))
}

// Sint32 zig-zag encodes v, then varint-encodes the result.
func (w *Writer) Sint32(v int32) *Writer {
	return w.varint(uint64(longbits.ZigZag32(v)))
}

// Uint64 varint-encodes v across up to 10 bytes.
func (w *Writer) Uint64(v uint64) *Writer {
	return w.varint(v)
}

// Int64 varint-encodes v across up to 10 bytes.
func (w *Writer) Int64(v int64) *Writer {
	return w.varint(uint64(v))
}

// Sint64 zig-zag encodes v, then varint-encodes the result.
func (w *Writer) Sint64(v int64) *Writer {
	return w.varint(longbits.ZigZag64(v))
}

// Fixed32 writes v as 4 little-endian bytes.
func (w *Writer) Fixed32(v uint32) *Writer {
	w.ensure(4)
	w.buf[w.pos+0] = byte(v)
	w.buf[w.pos+1] = byte(v >> 8)
	w.buf[w.pos+2] = byte(v >> 16)
	w.buf[w.pos+3] = byte(v >> 24)
	w.pos += 4
	return w
}

// Sfixed32 zig-zags v, then writes the result as 4 little-endian bytes.
// This mirrors the component design in spec section 4.1 literally; it
// is the one place this module's fixed-width encoding diverges from
// upstream protobuf's plain two's-complement sfixed32 (which is never
// zig-zagged there). Kept as specified rather than "corrected" to avoid
// silently overriding a documented primitive behavior.
func (w *Writer) Sfixed32(v int32) *Writer {
	return w.Fixed32(longbits.ZigZag32(v))
}

// Fixed64 writes v as 8 little-endian bytes.
func (w *Writer) Fixed64(v uint64) *Writer {
	w.ensure(8)
	w.buf[w.pos+0] = byte(v)
	w.buf[w.pos+1] = byte(v >> 8)
	w.buf[w.pos+2] = byte(v >> 16)
	w.buf[w.pos+3] = byte(v >> 24)
	w.buf[w.pos+4] = byte(v >> 32)
	w.buf[w.pos+5] = byte(v >> 40)
	w.buf[w.pos+6] = byte(v >> 48)
	w.buf[w.pos+7] = byte(v >> 56)
	w.pos += 8
	return w
}

// Sfixed64 writes v as 8 little-endian bytes. Unlike Sfixed32, spec
// section 4.1 does not call for a zig-zag step here, so none is applied.
func (w *Writer) Sfixed64(v int64) *Writer {
	return w.Fixed64(uint64(v))
}

// Float writes v as an IEEE-754 single-precision value, little-endian.
// math.Float32bits is this module's IEEE-754 codec black box (spec
// section 1); no retrieved dependency offers a narrower one.
func (w *Writer) Float(v float32) *Writer {
	return w.Fixed32(math.Float32bits(v))
}

// Double writes v as an IEEE-754 double-precision value, little-endian.
func (w *Writer) Double(v float64) *Writer {
	return w.Fixed64(math.Float64bits(v))
}

// Bool writes a single byte: 1 for true, 0 for false.
func (w *Writer) Bool(v bool) *Writer {
	w.ensure(1)
	if v {
		w.buf[w.pos] = 1
	} else {
		w.buf[w.pos] = 0
	}
	w.pos++
	return w
}

// Bytes writes a varint length prefix followed by the raw bytes. Empty
// input still writes the single zero-length byte.
func (w *Writer) Bytes(v []byte) *Writer {
	w.Uint32(uint32(len(v)))
	return w.rawBytes(v)
}

// String writes a varint length prefix (the precise UTF-8 byte length)
// followed by the string's bytes. Go strings are already UTF-8 encoded,
// so unlike the teacher's JavaScript-derived counterpart there is no
// separate surrogate-pair joining step: len(v) is already the exact
// byte count the wire format wants.
func (w *Writer) String(v string) *Writer {
	w.Uint32(uint32(len(v)))
	return w.rawBytes([]byte(v))
}

func (w *Writer) rawBytes(v []byte) *Writer {
	if len(v) == 0 {
		return w
	}
	w.ensure(len(v))
	w.pos += copy(w.buf[w.pos:], v)
	return w
}

// Fork begins a fresh sub-stream: the writer's current state (sealed
// chunks, active chunk, cursor) is pushed onto the snapshot stack and
// writes that follow target a brand-new, empty stream. Use this to
// write a length-delimited sub-message whose length is not known until
// its fields have all been written:
//
//	w.Fork()
//	encodeFields(w)
//	body := w.Finish()
//	w.Tag(id, wire.WireBytes).Bytes(body)
func (w *Writer) Fork() *Writer {
	w.stack = append(w.stack, snapshot{bufs: w.bufs, buf: w.buf, pos: w.pos})
	w.bufs = nil
	w.buf = nil
	w.pos = 0
	return w
}

// Reset discards the writer's current contents. If a Fork snapshot is
// pending, the most recently pushed one is popped and restored;
// otherwise the writer is cleared to its initial empty state.
func (w *Writer) Reset() *Writer {
	if n := len(w.stack); n > 0 {
		snap := w.stack[n-1]
		w.stack = w.stack[:n-1]
		w.bufs = snap.bufs
		w.buf = snap.buf
		w.pos = snap.pos
		return w
	}
	w.bufs = nil
	w.buf = nil
	w.pos = 0
	return w
}

// Finish returns the concatenation of every sealed chunk followed by the
// active chunk's written prefix, as a single contiguous slice, then
// resets the writer.
//
// If Finish is called while a Fork is active, it returns the forked
// sub-stream's bytes and pops exactly one snapshot level (equivalent to
// an implicit Reset) rather than requiring the caller to call Reset
// separately. This is the "single-snapshot" discipline spec section 9
// calls out as one of two valid readings of the reference behavior; see
// DESIGN.md for why it was chosen.
func (w *Writer) Finish() []byte {
	out := w.collect()
	w.Reset()
	return out
}

func (w *Writer) collect() []byte {
	total := w.pos
	for _, b := range w.bufs {
		total += len(b)
	}
	if total == 0 {
		return emptyBytes
	}
	out := make([]byte, 0, total)
	for _, b := range w.bufs {
		out = append(out, b...)
	}
	out = append(out, w.buf[:w.pos]...)
	return out
}

// Len returns the number of bytes written in the writer's current
// stream (the one that would be returned by Finish), without
// allocating.
func (w *Writer) Len() int {
	total := w.pos
	for _, b := range w.bufs {
		total += len(b)
	}
	return total
}
