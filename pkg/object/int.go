package object

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/relicdev/relic/pkg/binio"
	"github.com/relicdev/relic/pkg/schema"
)

// Int is the range-checked integer leaf. It backs every fixed-width
// integer kind, including the endianness-pinned one, and optionally
// carries the declared enum type so constants can be assigned by name.
type Int struct {
	kind schema.Kind
	enum *schema.Enum
	raw  uint64
}

// NewInt returns a zero integer of the given kind.
func NewInt(kind schema.Kind) *Int { return &Int{kind: kind} }

// NewEnumInt returns a zero integer of the enum's storage kind that
// accepts the enum's constant names on Set.
func NewEnumInt(e *schema.Enum) *Int {
	return &Int{kind: e.Storage.Kind, enum: e}
}

// Kind returns the wire kind.
func (x *Int) Kind() schema.Kind { return x.kind }

// Enum returns the declared enum type, if any.
func (x *Int) Enum() *schema.Enum { return x.enum }

func intBounds(k schema.Kind) (min int64, max uint64) {
	switch k {
	case schema.KindInt8:
		return math.MinInt8, math.MaxInt8
	case schema.KindUint8:
		return 0, math.MaxUint8
	case schema.KindInt16:
		return math.MinInt16, math.MaxInt16
	case schema.KindUint16:
		return 0, math.MaxUint16
	case schema.KindInt32:
		return math.MinInt32, math.MaxInt32
	case schema.KindUint32, schema.KindLittle32:
		return 0, math.MaxUint32
	case schema.KindInt64:
		return math.MinInt64, math.MaxInt64
	default:
		return 0, math.MaxUint64
	}
}

func (x *Int) mask() uint64 {
	if size := x.kind.FixedSize(); size > 0 && size < 8 {
		return 1<<(uint(size)*8) - 1
	}
	return math.MaxUint64
}

// Int64 returns the value with its declared signedness applied.
func (x *Int) Int64() int64 {
	if !x.kind.Signed() {
		return int64(x.raw)
	}
	shift := uint(64 - x.kind.FixedSize()*8)
	return int64(x.raw<<shift) >> shift
}

// Uint64 returns the raw stored bits.
func (x *Int) Uint64() uint64 { return x.raw }

func (x *Int) Get() any {
	if x.kind.Signed() {
		return x.Int64()
	}
	return x.raw
}

// Set assigns an integer, range-checked against the declared kind. A
// string falls back to a 0x-prefixed hex literal, then to an enum
// constant name when the slot carries an enum; anything else is a type
// error.
func (x *Int) Set(v any) error {
	switch t := v.(type) {
	case int:
		return x.setInt(int64(t))
	case int8:
		return x.setInt(int64(t))
	case int16:
		return x.setInt(int64(t))
	case int32:
		return x.setInt(int64(t))
	case int64:
		return x.setInt(t)
	case uint:
		return x.setUint(uint64(t))
	case uint8:
		return x.setUint(uint64(t))
	case uint16:
		return x.setUint(uint64(t))
	case uint32:
		return x.setUint(uint64(t))
	case uint64:
		return x.setUint(t)
	case string:
		return x.setString(t)
	default:
		return fmt.Errorf("%w: cannot assign %T to %s", ErrValueType, v, x.kind)
	}
}

func (x *Int) setInt(v int64) error {
	min, max := intBounds(x.kind)
	if v < min || (v > 0 && uint64(v) > max) {
		return fmt.Errorf("%w: %d does not fit %s", ErrValueRange, v, x.kind)
	}
	x.raw = uint64(v) & x.mask()
	return nil
}

func (x *Int) setUint(v uint64) error {
	_, max := intBounds(x.kind)
	if v > max {
		return fmt.Errorf("%w: %d does not fit %s", ErrValueRange, v, x.kind)
	}
	x.raw = v
	return nil
}

func (x *Int) setString(s string) error {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		u, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return fmt.Errorf("%w: bad hex literal %q", ErrValueType, s)
		}
		return x.setUint(u)
	}
	if x.enum != nil {
		if v, ok := x.enum.Constant(s); ok {
			return x.setInt(v)
		}
	}
	return fmt.Errorf("%w: cannot assign %q to %s", ErrValueType, s, x.kind)
}

func (x *Int) Read(r *binio.Reader, _ *Context) error {
	switch x.kind {
	case schema.KindInt8, schema.KindUint8:
		v, err := r.ReadU8()
		if err != nil {
			return err
		}
		x.raw = uint64(v)
	case schema.KindInt16, schema.KindUint16:
		v, err := r.ReadU16()
		if err != nil {
			return err
		}
		x.raw = uint64(v)
	case schema.KindInt32, schema.KindUint32:
		v, err := r.ReadU32()
		if err != nil {
			return err
		}
		x.raw = uint64(v)
	case schema.KindLittle32:
		v, err := r.ReadLittleU32()
		if err != nil {
			return err
		}
		x.raw = uint64(v)
	default:
		v, err := r.ReadU64()
		if err != nil {
			return err
		}
		x.raw = v
	}
	return nil
}

func (x *Int) Write(w *binio.Writer, _ *Context) error {
	switch x.kind {
	case schema.KindInt8, schema.KindUint8:
		return w.WriteU8(uint8(x.raw))
	case schema.KindInt16, schema.KindUint16:
		return w.WriteU16(uint16(x.raw))
	case schema.KindInt32, schema.KindUint32:
		return w.WriteU32(uint32(x.raw))
	case schema.KindLittle32:
		return w.WriteLittleU32(uint32(x.raw))
	default:
		return w.WriteU64(x.raw)
	}
}

func (x *Int) Size(_ *Context) (int64, error) { return x.kind.FixedSize(), nil }

func (x *Int) Hash(_ *Context) (uint64, error) { return x.raw, nil }

// Bool is the one-byte truth flag; any nonzero wire byte reads true.
type Bool struct {
	val bool
}

func (x *Bool) Get() any { return x.val }

func (x *Bool) Set(v any) error {
	switch t := v.(type) {
	case bool:
		x.val = t
	case int:
		x.val = t != 0
	case int64:
		x.val = t != 0
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return fmt.Errorf("%w: cannot assign %q to bool", ErrValueType, t)
		}
		x.val = b
	default:
		return fmt.Errorf("%w: cannot assign %T to bool", ErrValueType, v)
	}
	return nil
}

func (x *Bool) Read(r *binio.Reader, _ *Context) error {
	v, err := r.ReadU8()
	if err != nil {
		return err
	}
	x.val = v != 0
	return nil
}

func (x *Bool) Write(w *binio.Writer, _ *Context) error {
	if x.val {
		return w.WriteU8(1)
	}
	return w.WriteU8(0)
}

func (x *Bool) Size(_ *Context) (int64, error) { return 1, nil }

func (x *Bool) Hash(_ *Context) (uint64, error) {
	if x.val {
		return 1, nil
	}
	return 0, nil
}

// Char is a single raw byte; non-ASCII content round-trips untouched.
type Char struct {
	val byte
}

func (x *Char) Get() any { return x.val }

func (x *Char) Set(v any) error {
	switch t := v.(type) {
	case byte:
		x.val = t
	case int:
		if t < 0 || t > math.MaxUint8 {
			return fmt.Errorf("%w: %d does not fit a char", ErrValueRange, t)
		}
		x.val = byte(t)
	case string:
		if len(t) != 1 {
			return fmt.Errorf("%w: char wants exactly one byte, got %q", ErrValueType, t)
		}
		x.val = t[0]
	default:
		return fmt.Errorf("%w: cannot assign %T to char", ErrValueType, v)
	}
	return nil
}

func (x *Char) Read(r *binio.Reader, _ *Context) error {
	v, err := r.ReadU8()
	if err != nil {
		return err
	}
	x.val = v
	return nil
}

func (x *Char) Write(w *binio.Writer, _ *Context) error { return w.WriteU8(x.val) }

func (x *Char) Size(_ *Context) (int64, error) { return 1, nil }

func (x *Char) Hash(_ *Context) (uint64, error) { return uint64(x.val), nil }
