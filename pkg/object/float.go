package object

import (
	"fmt"
	"math"

	"github.com/relicdev/relic/pkg/binio"
	"github.com/relicdev/relic/pkg/schema"
)

// Float is the floating-point leaf at any of the three wire widths. The
// value is held at double precision and narrowed on the wire, so a
// value read back is bit-exact to its declared width. Narrowing a
// finite value past the target range writes quiet NaN instead of
// infinity.
type Float struct {
	kind schema.Kind
	val  float64
}

// NewFloat returns a zero float of the given kind.
func NewFloat(kind schema.Kind) *Float { return &Float{kind: kind} }

// Float64 returns the stored value.
func (x *Float) Float64() float64 { return x.val }

func (x *Float) Get() any { return x.val }

func (x *Float) Set(v any) error {
	switch t := v.(type) {
	case float64:
		x.val = t
	case float32:
		x.val = float64(t)
	case int:
		x.val = float64(t)
	case int64:
		x.val = float64(t)
	default:
		return fmt.Errorf("%w: cannot assign %T to %s", ErrValueType, v, x.kind)
	}
	return nil
}

func (x *Float) Read(r *binio.Reader, _ *Context) error {
	switch x.kind {
	case schema.KindFloat16:
		v, err := r.ReadF16()
		if err != nil {
			return err
		}
		x.val = float64(v)
	case schema.KindFloat64:
		v, err := r.ReadF64()
		if err != nil {
			return err
		}
		x.val = v
	default:
		v, err := r.ReadF32()
		if err != nil {
			return err
		}
		x.val = float64(v)
	}
	return nil
}

func (x *Float) Write(w *binio.Writer, _ *Context) error {
	if x.kind == schema.KindFloat64 {
		return w.WriteF64(x.val)
	}
	f := float32(x.val)
	if math.IsInf(float64(f), 0) && !math.IsInf(x.val, 0) {
		// A finite value overflowed the narrower width.
		f = math.Float32frombits(0x7FC00000)
	}
	if x.kind == schema.KindFloat16 {
		return w.WriteF16(f)
	}
	return w.WriteF32(f)
}

func (x *Float) Size(_ *Context) (int64, error) { return x.kind.FixedSize(), nil }

func (x *Float) Hash(_ *Context) (uint64, error) {
	return math.Float64bits(x.val), nil
}
