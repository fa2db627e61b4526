package schema

import "fmt"

// Kind identifies a wire codec for a basic type.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64

	// KindLittle32 is a uint32 pinned to little-endian regardless of
	// the format's byte order. Magic numbers use it.
	KindLittle32

	KindBool
	KindChar
	KindFloat16
	KindFloat32
	KindFloat64

	KindZString
	KindFixedString
	KindSizedString
	KindTrailingBytes

	// KindRef is a strong downward block reference stored as an int32
	// index; KindPtr is its weak back-pointer counterpart.
	KindRef
	KindPtr
)

func (k Kind) String() string {
	switch k {
	case KindInt8:
		return "int8"
	case KindUint8:
		return "uint8"
	case KindInt16:
		return "int16"
	case KindUint16:
		return "uint16"
	case KindInt32:
		return "int32"
	case KindUint32:
		return "uint32"
	case KindInt64:
		return "int64"
	case KindUint64:
		return "uint64"
	case KindLittle32:
		return "ulittle32"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindFloat16:
		return "hfloat"
	case KindFloat32:
		return "float"
	case KindFloat64:
		return "double"
	case KindZString:
		return "zstring"
	case KindFixedString:
		return "fixedstring"
	case KindSizedString:
		return "sizedstring"
	case KindTrailingBytes:
		return "bytes"
	case KindRef:
		return "ref"
	case KindPtr:
		return "ptr"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Signed reports whether the kind stores a signed integer.
func (k Kind) Signed() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64, KindRef, KindPtr:
		return true
	}
	return false
}

// FixedSize returns the wire size in bytes, or -1 when the size depends
// on the value or context.
func (k Kind) FixedSize() int64 {
	switch k {
	case KindInt8, KindUint8, KindBool, KindChar:
		return 1
	case KindInt16, KindUint16, KindFloat16:
		return 2
	case KindInt32, KindUint32, KindLittle32, KindFloat32, KindRef, KindPtr:
		return 4
	case KindInt64, KindUint64, KindFloat64:
		return 8
	default:
		return -1
	}
}

// Type is implemented by every entry in a Format's type registry. The
// capability flags are computed once at Finalize and drive traversal
// short-circuits in the instance engine.
type Type interface {
	TypeName() string
	HasLinks() bool
	HasRefs() bool
	HasStrings() bool
}

// Basic is a leaf wire type.
type Basic struct {
	Name string
	Kind Kind
}

func (b *Basic) TypeName() string { return b.Name }

func (b *Basic) HasLinks() bool {
	return b.Kind == KindRef || b.Kind == KindPtr
}

func (b *Basic) HasRefs() bool {
	return b.Kind == KindRef
}

func (b *Basic) HasStrings() bool {
	switch b.Kind {
	case KindZString, KindFixedString, KindSizedString:
		return true
	}
	return false
}

// Enum is an integer type with named constants. Constants feed both
// expression identifiers and the string-assignment fallback on integer
// values.
type Enum struct {
	Name    string
	Storage *Basic
	Names   []string
	values  map[string]int64
}

func NewEnum(name string, storage *Basic) *Enum {
	return &Enum{Name: name, Storage: storage, values: make(map[string]int64)}
}

// Add appends a named constant. Declaration order is preserved.
func (e *Enum) Add(name string, value int64) {
	if _, ok := e.values[name]; !ok {
		e.Names = append(e.Names, name)
	}
	e.values[name] = value
}

// Constant resolves a constant by name.
func (e *Enum) Constant(name string) (int64, bool) {
	v, ok := e.values[name]
	return v, ok
}

// NameOf returns the first constant name carrying value, if any.
func (e *Enum) NameOf(value int64) (string, bool) {
	for _, n := range e.Names {
		if e.values[n] == value {
			return n, true
		}
	}
	return "", false
}

func (e *Enum) TypeName() string { return e.Name }
func (e *Enum) HasLinks() bool   { return false }
func (e *Enum) HasRefs() bool    { return false }
func (e *Enum) HasStrings() bool { return false }

// BitMember is one slice of a bit-packed integer.
type BitMember struct {
	Name    string
	Pos     uint
	Width   uint
	Default uint64
}

// Mask returns the member's bit mask within the storage integer.
func (m *BitMember) Mask() uint64 {
	return ((uint64(1) << m.Width) - 1) << m.Pos
}

// Bitfield partitions one storage integer into named members.
type Bitfield struct {
	Name    string
	Storage *Basic
	Members []*BitMember
}

func (b *Bitfield) TypeName() string { return b.Name }
func (b *Bitfield) HasLinks() bool   { return false }
func (b *Bitfield) HasRefs() bool    { return false }
func (b *Bitfield) HasStrings() bool { return false }

// Member looks up a bitfield member by name.
func (b *Bitfield) Member(name string) (*BitMember, bool) {
	for _, m := range b.Members {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

func (b *Bitfield) validate() error {
	var used uint64
	for _, m := range b.Members {
		if m.Width == 0 || m.Pos+m.Width > 64 {
			return fmt.Errorf("%w: bitfield %s member %s has bad extent (pos %d width %d)",
				ErrSchema, b.Name, m.Name, m.Pos, m.Width)
		}
		mask := m.Mask()
		if used&mask != 0 {
			return fmt.Errorf("%w: bitfield %s member %s overlaps an earlier member",
				ErrSchema, b.Name, m.Name)
		}
		used |= mask
	}
	if b.Storage != nil {
		if size := b.Storage.Kind.FixedSize(); size > 0 && size < 8 {
			if used>>(uint(size)*8) != 0 {
				return fmt.Errorf("%w: bitfield %s members exceed %d-byte storage",
					ErrSchema, b.Name, size)
			}
		}
	}
	return nil
}
