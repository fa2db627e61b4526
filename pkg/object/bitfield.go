package object

import (
	"fmt"

	"github.com/relicdev/relic/pkg/binio"
	"github.com/relicdev/relic/pkg/schema"
)

// BitfieldValue is the bit-packed leaf: one storage integer split into
// named members. A read loads the storage once and extracts every
// member; a write reassembles the storage from the current member
// values, so member assignments always reach the wire.
type BitfieldValue struct {
	def  *schema.Bitfield
	vals []uint64
}

// NewBitfieldValue returns a bitfield with every member at its declared
// default.
func NewBitfieldValue(def *schema.Bitfield) *BitfieldValue {
	x := &BitfieldValue{def: def, vals: make([]uint64, len(def.Members))}
	for i, m := range def.Members {
		x.vals[i] = m.Default & (m.Mask() >> m.Pos)
	}
	return x
}

// Def returns the bitfield descriptor.
func (x *BitfieldValue) Def() *schema.Bitfield { return x.def }

// storage reassembles the underlying integer from the member values.
func (x *BitfieldValue) storage() uint64 {
	var st uint64
	for i, m := range x.def.Members {
		st |= (x.vals[i] << m.Pos) & m.Mask()
	}
	return st
}

func (x *BitfieldValue) setStorage(st uint64) {
	for i, m := range x.def.Members {
		x.vals[i] = (st & m.Mask()) >> m.Pos
	}
}

// Member returns the named member's current value.
func (x *BitfieldValue) Member(name string) (uint64, error) {
	for i, m := range x.def.Members {
		if m.Name == name {
			return x.vals[i], nil
		}
	}
	return 0, fmt.Errorf("%w: bitfield %s has no member %q", ErrValueType, x.def.Name, name)
}

// SetMember assigns the named member, range-checked against its width.
func (x *BitfieldValue) SetMember(name string, v uint64) error {
	for i, m := range x.def.Members {
		if m.Name != name {
			continue
		}
		if v > m.Mask()>>m.Pos {
			return fmt.Errorf("%w: %d does not fit %d bits of %s.%s",
				ErrValueRange, v, m.Width, x.def.Name, name)
		}
		x.vals[i] = v
		return nil
	}
	return fmt.Errorf("%w: bitfield %s has no member %q", ErrValueType, x.def.Name, name)
}

// Get returns a name-to-value snapshot of all members.
func (x *BitfieldValue) Get() any {
	out := make(map[string]uint64, len(x.def.Members))
	for i, m := range x.def.Members {
		out[m.Name] = x.vals[i]
	}
	return out
}

// Set assigns the raw storage integer and distributes it to members.
func (x *BitfieldValue) Set(v any) error {
	tmp := Int{kind: x.def.Storage.Kind}
	if err := tmp.Set(v); err != nil {
		return err
	}
	x.setStorage(tmp.Uint64())
	return nil
}

func (x *BitfieldValue) Read(r *binio.Reader, _ *Context) error {
	var st uint64
	switch x.def.Storage.Kind.FixedSize() {
	case 1:
		v, err := r.ReadU8()
		if err != nil {
			return err
		}
		st = uint64(v)
	case 2:
		v, err := r.ReadU16()
		if err != nil {
			return err
		}
		st = uint64(v)
	case 8:
		v, err := r.ReadU64()
		if err != nil {
			return err
		}
		st = v
	default:
		v, err := r.ReadU32()
		if err != nil {
			return err
		}
		st = uint64(v)
	}
	x.setStorage(st)
	return nil
}

func (x *BitfieldValue) Write(w *binio.Writer, _ *Context) error {
	st := x.storage()
	switch x.def.Storage.Kind.FixedSize() {
	case 1:
		return w.WriteU8(uint8(st))
	case 2:
		return w.WriteU16(uint16(st))
	case 8:
		return w.WriteU64(st)
	default:
		return w.WriteU32(uint32(st))
	}
}

func (x *BitfieldValue) Size(_ *Context) (int64, error) {
	return x.def.Storage.Kind.FixedSize(), nil
}

func (x *BitfieldValue) Hash(_ *Context) (uint64, error) { return x.storage(), nil }
