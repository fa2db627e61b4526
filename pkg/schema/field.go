package schema

import (
	"fmt"

	"github.com/relicdev/relic/pkg/expr"
)

// TemplateName marks a declared type that is resolved from the
// enclosing struct's instantiation-time template argument rather than
// the type registry.
const TemplateName = "TEMPLATE"

// TypeRef names a type at declaration time. Forward declarations stay
// unresolved until Format.Finalize fills in Type; the template
// placeholder never resolves.
type TypeRef struct {
	Name string
	Type Type
}

// IsTemplate reports whether the reference is the template placeholder.
func (t TypeRef) IsTemplate() bool { return t.Name == TemplateName }

// IsZero reports whether the reference is absent.
func (t TypeRef) IsZero() bool { return t.Name == "" && t.Type == nil }

// Arg is a field's runtime argument: either a literal or the name of an
// earlier sibling field whose value supplies it when reading or
// writing.
type Arg struct {
	Set   bool
	Value int64
	Field string
}

// LiteralArg returns a literal argument.
func LiteralArg(v int64) Arg { return Arg{Set: true, Value: v} }

// FieldArg returns an argument resolved from a sibling field. The name
// must already be normalized.
func FieldArg(name string) Arg { return Arg{Set: true, Field: name} }

// Field is one immutable member descriptor of a Struct. Name holds the
// normalized spelling used for lookup; DisplayName keeps the schema
// document's original.
type Field struct {
	Name        string
	DisplayName string
	Type        TypeRef
	Template    TypeRef
	Arg         Arg
	Len1        *expr.Expr
	Len2        *expr.Expr
	Cond        *expr.Expr
	VerCond     *expr.Expr
	Since       Version
	Until       Version
	Variant     int64
	HasVariant  bool
	Default     string
	Abstract    bool
}

// Bounded reports whether the field carries a version window. A bounded
// field never matches the unsupported version.
func (f *Field) Bounded() bool { return f.Since != 0 || f.Until != 0 }

// IsArray reports whether the field declares at least one dimension.
func (f *Field) IsArray() bool { return f.Len1 != nil }

// Struct is a compound named type: an optional single base plus an
// ordered list of directly declared fields. After Finalize the
// flattened base-first field list and the traversal flags are cached
// and the descriptor must not change.
type Struct struct {
	Name   string
	Base   *Struct
	Fields []*Field

	flat       []*Field
	lastOfName map[string]int
	dups       map[string][]int
	hasLinks   bool
	hasRefs    bool
	hasStrings bool
}

func (s *Struct) TypeName() string { return s.Name }
func (s *Struct) HasLinks() bool   { return s.hasLinks }
func (s *Struct) HasRefs() bool    { return s.hasRefs }
func (s *Struct) HasStrings() bool { return s.hasStrings }

// FlatFields returns the flattened base-first field list, including
// duplicates. Valid after Finalize.
func (s *Struct) FlatFields() []*Field { return s.flat }

// Lineage reports whether s is other or inherits from it.
func (s *Struct) Lineage(other *Struct) bool {
	for cur := s; cur != nil; cur = cur.Base {
		if cur == other {
			return true
		}
	}
	return false
}

// flatten caches the base-first field list and validates the duplicate
// invariant: a re-declared name must keep its resolved type; the most
// recent declaration then defines the slot.
func (s *Struct) flatten() error {
	var chain []*Struct
	for cur := s; cur != nil; cur = cur.Base {
		chain = append(chain, cur)
	}

	s.flat = s.flat[:0]
	s.lastOfName = make(map[string]int)
	s.dups = nil
	for i := len(chain) - 1; i >= 0; i-- {
		for _, f := range chain[i].Fields {
			if prev, ok := s.lastOfName[f.Name]; ok {
				if err := checkRedeclaration(s, s.flat[prev], f); err != nil {
					return err
				}
				if s.dups == nil {
					s.dups = make(map[string][]int)
				}
				if len(s.dups[f.Name]) == 0 {
					s.dups[f.Name] = append(s.dups[f.Name], prev)
				}
				s.dups[f.Name] = append(s.dups[f.Name], len(s.flat))
			}
			s.lastOfName[f.Name] = len(s.flat)
			s.flat = append(s.flat, f)
		}
	}
	return nil
}

func checkRedeclaration(s *Struct, prev, next *Field) error {
	if typeRefsAgree(prev.Type, next.Type) {
		return nil
	}
	return fmt.Errorf("%w: struct %s re-declares %s as %s (previously %s)",
		ErrSchema, s.Name, next.DisplayName, next.Type.Name, prev.Type.Name)
}

func typeRefsAgree(a, b TypeRef) bool {
	if a.IsTemplate() || b.IsTemplate() {
		return a.Name == b.Name
	}
	if a.Type != nil && b.Type != nil {
		return a.Type == b.Type
	}
	return a.Name == b.Name
}
