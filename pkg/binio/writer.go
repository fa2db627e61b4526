package binio

import (
	"io"
	"math"
)

// Writer encodes primitives to a byte stream under a fixed byte order.
type Writer struct {
	w     io.Writer
	order ByteOrder
	off   int64
	buf   [8]byte
}

func NewWriter(w io.Writer, order ByteOrder) *Writer {
	return &Writer{w: w, order: order}
}

// Offset reports the number of bytes written so far.
func (w *Writer) Offset() int64 { return w.off }

// Order reports the writer's byte order.
func (w *Writer) Order() ByteOrder { return w.order }

func (w *Writer) WriteBytes(p []byte) error {
	if err := writeFull(w.w, p); err != nil {
		return err
	}
	w.off += int64(len(p))
	return nil
}

func (w *Writer) WriteU8(v uint8) error {
	w.buf[0] = v
	return w.WriteBytes(w.buf[:1])
}

func (w *Writer) WriteI8(v int8) error {
	return w.WriteU8(uint8(v))
}

func (w *Writer) WriteU16(v uint16) error {
	w.order.PutUint16(w.buf[:2], v)
	return w.WriteBytes(w.buf[:2])
}

func (w *Writer) WriteI16(v int16) error {
	return w.WriteU16(uint16(v))
}

func (w *Writer) WriteU32(v uint32) error {
	w.order.PutUint32(w.buf[:4], v)
	return w.WriteBytes(w.buf[:4])
}

func (w *Writer) WriteI32(v int32) error {
	return w.WriteU32(uint32(v))
}

func (w *Writer) WriteU64(v uint64) error {
	w.order.PutUint64(w.buf[:8], v)
	return w.WriteBytes(w.buf[:8])
}

func (w *Writer) WriteI64(v int64) error {
	return w.WriteU64(uint64(v))
}

// WriteLittleU32 writes a uint32 little-endian regardless of the
// writer's byte order. Magic numbers use this.
func (w *Writer) WriteLittleU32(v uint32) error {
	LittleEndian.PutUint32(w.buf[:4], v)
	return w.WriteBytes(w.buf[:4])
}

func (w *Writer) WriteF32(v float32) error {
	return w.WriteU32(math.Float32bits(v))
}

func (w *Writer) WriteF64(v float64) error {
	return w.WriteU64(math.Float64bits(v))
}

// WriteF16 narrows v to half precision and writes it.
func (w *Writer) WriteF16(v float32) error {
	return w.WriteU16(Float16bits(v))
}
