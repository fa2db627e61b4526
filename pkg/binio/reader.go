package binio

import (
	"bufio"
	"fmt"
	"io"
	"math"
)

// Reader decodes primitives from a byte stream under a fixed byte order.
// If size is positive, reads that would run past it fail with
// io.ErrUnexpectedEOF before touching the stream.
type Reader struct {
	r     *bufio.Reader
	order ByteOrder
	off   int64
	size  int64
}

// NewReader wraps rd. Pass a negative size when the total stream length
// is unknown.
func NewReader(rd io.Reader, order ByteOrder, size int64) *Reader {
	return &Reader{
		r:     bufio.NewReader(rd),
		order: order,
		size:  size,
	}
}

// Offset reports the number of bytes consumed so far.
func (r *Reader) Offset() int64 { return r.off }

// Order reports the reader's byte order.
func (r *Reader) Order() ByteOrder { return r.order }

// ReadBytes reads exactly n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid read length %d", n)
	}
	if r.size >= 0 && r.off+int64(n) > r.size {
		return nil, io.ErrUnexpectedEOF
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, err
	}
	r.off += int64(n)
	return buf, nil
}

func (r *Reader) ReadU8() (uint8, error) {
	if r.size >= 0 && r.off+1 > r.size {
		return 0, io.ErrUnexpectedEOF
	}
	b, err := r.r.ReadByte()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	r.off++
	return b, nil
}

func (r *Reader) ReadI8() (int8, error) {
	v, err := r.ReadU8()
	return int8(v), err
}

func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(b), nil
}

func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(b), nil
}

func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

// ReadLittleU32 reads a uint32 that is little-endian on the wire
// regardless of the reader's byte order. Magic numbers use this.
func (r *Reader) ReadLittleU32() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadF32() (float32, error) {
	u, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

func (r *Reader) ReadF64() (float64, error) {
	u, err := r.ReadU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

// ReadF16 reads a half-precision float and widens it.
func (r *Reader) ReadF16() (float32, error) {
	u, err := r.ReadU16()
	if err != nil {
		return 0, err
	}
	return Float16frombits(u), nil
}

// ReadRemaining consumes the rest of the stream.
func (r *Reader) ReadRemaining() ([]byte, error) {
	if r.size >= 0 {
		n := r.size - r.off
		if n < 0 {
			return nil, io.ErrUnexpectedEOF
		}
		return r.ReadBytes(int(n))
	}
	buf, err := io.ReadAll(r.r)
	if err != nil {
		return nil, err
	}
	r.off += int64(len(buf))
	return buf, nil
}

// ExpectEOF fails unless the stream is fully consumed.
func (r *Reader) ExpectEOF() error {
	if r.size >= 0 && r.off < r.size {
		return fmt.Errorf("%d trailing bytes", r.size-r.off)
	}
	if _, err := r.r.Peek(1); err == nil {
		return fmt.Errorf("trailing bytes after offset %d", r.off)
	} else if err != io.EOF {
		return err
	}
	return nil
}
