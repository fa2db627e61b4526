package schema

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/relicdev/relic/pkg/expr"
)

// VersionInfo is one entry of a format's version table.
type VersionInfo struct {
	ID        string
	Num       string
	Version   Version
	Supported bool
	Variants  []int64
	Games     []string
}

// Format is the root of a schema: the type registry, version table and
// variant names of one binary file format. Build it up, call Finalize
// once, then treat it as immutable; a finalized Format is safe to share
// across goroutines.
type Format struct {
	Name  string
	Order binary.ByteOrder

	versions    []*VersionInfo
	versionByID map[string]*VersionInfo
	variants    map[string]int64

	types      map[string]Type
	typeNames  []string
	enumConsts map[string]int64

	finalized bool
}

// New creates an empty format with the given default byte order.
func New(name string, order binary.ByteOrder) *Format {
	return &Format{
		Name:        name,
		Order:       order,
		versionByID: make(map[string]*VersionInfo),
		variants:    make(map[string]int64),
		types:       make(map[string]Type),
	}
}

func (f *Format) register(name string, t Type) error {
	if f.finalized {
		return fmt.Errorf("%w: format %s is finalized", ErrSchema, f.Name)
	}
	if name == "" || name == TemplateName {
		return fmt.Errorf("%w: reserved type name %q", ErrSchema, name)
	}
	if _, ok := f.types[name]; ok {
		return fmt.Errorf("%w: duplicate type %s", ErrSchema, name)
	}
	f.types[name] = t
	f.typeNames = append(f.typeNames, name)
	return nil
}

// AddBasic registers a leaf wire type.
func (f *Format) AddBasic(name string, kind Kind) (*Basic, error) {
	b := &Basic{Name: name, Kind: kind}
	if err := f.register(name, b); err != nil {
		return nil, err
	}
	return b, nil
}

// AddEnum registers an enum type.
func (f *Format) AddEnum(e *Enum) error {
	if e.Storage == nil {
		return fmt.Errorf("%w: enum %s has no storage type", ErrSchema, e.Name)
	}
	return f.register(e.Name, e)
}

// AddBitfield registers a bit-packed type.
func (f *Format) AddBitfield(b *Bitfield) error {
	if b.Storage == nil {
		return fmt.Errorf("%w: bitfield %s has no storage type", ErrSchema, b.Name)
	}
	return f.register(b.Name, b)
}

// AddStruct registers a compound type.
func (f *Format) AddStruct(s *Struct) error {
	return f.register(s.Name, s)
}

// Type looks up a registered type by name.
func (f *Format) Type(name string) (Type, bool) {
	t, ok := f.types[name]
	return t, ok
}

// StructType looks up a registered struct by name.
func (f *Format) StructType(name string) (*Struct, bool) {
	s, ok := f.types[name].(*Struct)
	return s, ok
}

// TypeNames returns registered type names in registration order.
func (f *Format) TypeNames() []string {
	return f.typeNames
}

// AddVersion appends a version-table entry, deriving the packed value
// from Num. An unparseable Num is a schema error: the table is the one
// place where every version must be concrete.
func (f *Format) AddVersion(info *VersionInfo) error {
	if f.finalized {
		return fmt.Errorf("%w: format %s is finalized", ErrSchema, f.Name)
	}
	info.Version = ParseVersion(info.Num)
	if !info.Version.Valid() {
		return fmt.Errorf("%w: version table entry %s has bad number %q", ErrSchema, info.ID, info.Num)
	}
	if info.ID != "" {
		if _, ok := f.versionByID[info.ID]; ok {
			return fmt.Errorf("%w: duplicate version id %s", ErrSchema, info.ID)
		}
		f.versionByID[info.ID] = info
	}
	f.versions = append(f.versions, info)
	return nil
}

// Versions returns the version table in declaration order.
func (f *Format) Versions() []*VersionInfo { return f.versions }

// VersionByID resolves a version-table entry by its schema identifier.
func (f *Format) VersionByID(id string) (*VersionInfo, bool) {
	v, ok := f.versionByID[id]
	return v, ok
}

// Supported reports whether v appears in the version table as a
// supported version.
func (f *Format) Supported(v Version) bool {
	for _, info := range f.versions {
		if info.Version == v && info.Supported {
			return true
		}
	}
	return false
}

// AddVariant names a variant value ("user version" flavors).
func (f *Format) AddVariant(name string, value int64) {
	f.variants[name] = value
}

// VariantByName resolves a named variant.
func (f *Format) VariantByName(name string) (int64, bool) {
	v, ok := f.variants[name]
	return v, ok
}

// CompileExpr compiles a condition or length expression with the
// format's name normalizer bound in. Empty source compiles to nil.
func (f *Format) CompileExpr(src string) (*expr.Expr, error) {
	if src == "" {
		return nil, nil
	}
	return expr.Compile(src, NormalizeName)
}

// EnumConstant resolves a constant across every registered enum by its
// normalized name. Available after Finalize.
func (f *Format) EnumConstant(name string) (int64, bool) {
	v, ok := f.enumConsts[name]
	return v, ok
}

// Finalize resolves forward type references, flattens inheritance
// chains, validates bitfields, computes the static traversal flags and
// collects enum constants. After a successful Finalize the format is
// immutable.
func (f *Format) Finalize() error {
	if f.finalized {
		return nil
	}

	var structs []*Struct
	for _, name := range f.typeNames {
		switch t := f.types[name].(type) {
		case *Struct:
			structs = append(structs, t)
		case *Bitfield:
			if err := t.validate(); err != nil {
				return err
			}
		}
	}

	for _, s := range structs {
		for _, fld := range s.Fields {
			if err := f.resolveRef(s, fld, &fld.Type); err != nil {
				return err
			}
			if !fld.Template.IsZero() {
				if err := f.resolveRef(s, fld, &fld.Template); err != nil {
					return err
				}
			}
		}
	}

	for _, s := range structs {
		if err := s.flatten(); err != nil {
			return err
		}
	}

	// Traversal flags propagate through nested struct fields, so loop
	// to a fixed point; the type graph is finite and flags only ever
	// turn on.
	for changed := true; changed; {
		changed = false
		for _, s := range structs {
			links, refs, strs := false, false, false
			for _, fld := range s.flat {
				if fld.Type.IsTemplate() {
					// The concrete type is unknown until
					// instantiation; assume everything.
					links, refs, strs = true, true, true
					break
				}
				t := fld.Type.Type
				links = links || t.HasLinks()
				refs = refs || t.HasRefs()
				strs = strs || t.HasStrings()
			}
			if links != s.hasLinks || refs != s.hasRefs || strs != s.hasStrings {
				s.hasLinks, s.hasRefs, s.hasStrings = links, refs, strs
				changed = true
			}
		}
	}

	f.enumConsts = make(map[string]int64)
	for _, name := range f.typeNames {
		e, ok := f.types[name].(*Enum)
		if !ok {
			continue
		}
		for _, cn := range e.Names {
			key := NormalizeName(cn)
			if _, exists := f.enumConsts[key]; exists {
				continue
			}
			v, _ := e.Constant(cn)
			f.enumConsts[key] = v
		}
	}

	f.finalized = true
	return nil
}

func (f *Format) resolveRef(s *Struct, fld *Field, ref *TypeRef) error {
	if ref.IsTemplate() || ref.Type != nil {
		return nil
	}
	t, ok := f.types[ref.Name]
	if !ok {
		return fmt.Errorf("%w: struct %s field %s references undeclared type %s",
			ErrSchema, s.Name, fld.DisplayName, ref.Name)
	}
	ref.Type = t
	return nil
}

// TypeOf makes a resolved reference to a registered type.
func TypeOf(t Type) TypeRef { return TypeRef{Name: t.TypeName(), Type: t} }

// Named makes a forward reference resolved at Finalize.
func Named(name string) TypeRef { return TypeRef{Name: name} }

// Template makes the template placeholder reference.
func Template() TypeRef { return TypeRef{Name: TemplateName} }

// NormalizeName converts a schema display name to its canonical member
// spelling: lower case, word breaks as single underscores, everything
// else dropped. "Num Vertices" becomes "num_vertices".
func NormalizeName(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	pendingBreak := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'A' && r <= 'Z':
			r += 'a' - 'A'
			fallthrough
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingBreak && sb.Len() > 0 {
				sb.WriteByte('_')
			}
			pendingBreak = false
			sb.WriteRune(r)
		case r == '_' || r == ' ' || r == '-' || r == ':' || r == '.':
			pendingBreak = true
		}
	}
	return sb.String()
}
