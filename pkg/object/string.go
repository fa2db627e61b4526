package object

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/relicdev/relic/pkg/binio"
)

const (
	// MaxZString bounds a null-terminated read; a longer run means the
	// terminator was lost.
	MaxZString = 1000

	// MaxSizedString bounds the count prefix of a sized string; a
	// larger count is treated as a corrupt header.
	MaxSizedString = 10000
)

// decodeString renders raw wire bytes as UTF-8, substituting the
// replacement rune for invalid sequences.
func decodeString(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

func setStringBytes(dst *[]byte, v any, limit int) error {
	var b []byte
	switch t := v.(type) {
	case string:
		b = []byte(t)
	case []byte:
		b = bytes.Clone(t)
	default:
		return fmt.Errorf("%w: cannot assign %T to a string", ErrValueType, v)
	}
	if limit > 0 && len(b) > limit {
		return fmt.Errorf("%w: string of %d bytes exceeds cap %d", ErrValueRange, len(b), limit)
	}
	*dst = b
	return nil
}

// ZString is a null-terminated string. Reads give up after MaxZString
// bytes without a terminator.
type ZString struct {
	val []byte
}

func (x *ZString) Get() any { return decodeString(x.val) }

func (x *ZString) Set(v any) error { return setStringBytes(&x.val, v, MaxZString) }

func (x *ZString) Read(r *binio.Reader, _ *Context) error {
	x.val = x.val[:0]
	for range MaxZString + 1 {
		b, err := r.ReadU8()
		if err != nil {
			return err
		}
		if b == 0 {
			return nil
		}
		x.val = append(x.val, b)
	}
	return fmt.Errorf("%w: string not terminated within %d bytes", ErrStreamFormat, MaxZString)
}

func (x *ZString) Write(w *binio.Writer, _ *Context) error {
	if len(x.val) > MaxZString {
		return fmt.Errorf("%w: string of %d bytes exceeds cap %d", ErrValueRange, len(x.val), MaxZString)
	}
	if err := w.WriteBytes(x.val); err != nil {
		return err
	}
	return w.WriteU8(0)
}

func (x *ZString) Size(_ *Context) (int64, error) { return int64(len(x.val)) + 1, nil }

func (x *ZString) Hash(_ *Context) (uint64, error) { return hashBytes(x.val), nil }

// FixedString occupies exactly the number of bytes the field's runtime
// argument names: reads truncate at the first NUL, writes pad with NULs.
type FixedString struct {
	val []byte
}

func fixedLen(ctx *Context) (int64, error) {
	if ctx.Arg <= 0 {
		return 0, fmt.Errorf("%w: fixed string needs a positive length argument", ErrValueType)
	}
	return ctx.Arg, nil
}

func (x *FixedString) Get() any { return decodeString(x.val) }

func (x *FixedString) Set(v any) error { return setStringBytes(&x.val, v, 0) }

func (x *FixedString) Read(r *binio.Reader, ctx *Context) error {
	n, err := fixedLen(ctx)
	if err != nil {
		return err
	}
	buf, err := r.ReadBytes(int(n))
	if err != nil {
		return err
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	x.val = bytes.Clone(buf)
	return nil
}

func (x *FixedString) Write(w *binio.Writer, ctx *Context) error {
	n, err := fixedLen(ctx)
	if err != nil {
		return err
	}
	if int64(len(x.val)) > n {
		return fmt.Errorf("%w: string of %d bytes does not fit in %d", ErrValueRange, len(x.val), n)
	}
	if err := w.WriteBytes(x.val); err != nil {
		return err
	}
	return w.WriteBytes(make([]byte, n-int64(len(x.val))))
}

func (x *FixedString) Size(ctx *Context) (int64, error) { return fixedLen(ctx) }

func (x *FixedString) Hash(_ *Context) (uint64, error) { return hashBytes(x.val), nil }

// SizedString is a 4-byte count followed by that many bytes. A count
// over MaxSizedString marks the header itself as corrupt, so the read
// fails before any allocation.
type SizedString struct {
	val []byte
}

func (x *SizedString) Get() any { return decodeString(x.val) }

func (x *SizedString) Set(v any) error { return setStringBytes(&x.val, v, MaxSizedString) }

func (x *SizedString) Read(r *binio.Reader, _ *Context) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	if n > MaxSizedString {
		return fmt.Errorf("%w: string length %d exceeds cap %d", ErrStreamFormat, n, MaxSizedString)
	}
	buf, err := r.ReadBytes(int(n))
	if err != nil {
		return err
	}
	x.val = buf
	return nil
}

func (x *SizedString) Write(w *binio.Writer, _ *Context) error {
	if len(x.val) > MaxSizedString {
		return fmt.Errorf("%w: string of %d bytes exceeds cap %d", ErrValueRange, len(x.val), MaxSizedString)
	}
	if err := w.WriteU32(uint32(len(x.val))); err != nil {
		return err
	}
	return w.WriteBytes(x.val)
}

func (x *SizedString) Size(_ *Context) (int64, error) { return 4 + int64(len(x.val)), nil }

func (x *SizedString) Hash(_ *Context) (uint64, error) { return hashBytes(x.val), nil }

// TrailingBytes swallows the remainder of the stream verbatim.
type TrailingBytes struct {
	val []byte
}

func (x *TrailingBytes) Get() any { return bytes.Clone(x.val) }

func (x *TrailingBytes) Set(v any) error { return setStringBytes(&x.val, v, 0) }

func (x *TrailingBytes) Read(r *binio.Reader, _ *Context) error {
	buf, err := r.ReadRemaining()
	if err != nil {
		return err
	}
	x.val = buf
	return nil
}

func (x *TrailingBytes) Write(w *binio.Writer, _ *Context) error {
	return w.WriteBytes(x.val)
}

func (x *TrailingBytes) Size(_ *Context) (int64, error) { return int64(len(x.val)), nil }

func (x *TrailingBytes) Hash(_ *Context) (uint64, error) { return hashBytes(x.val), nil }
