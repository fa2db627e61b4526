package schema

import (
	"fmt"
	"iter"

	"github.com/relicdev/relic/pkg/expr"
)

// RunState is the concrete context the resolver filters against: an
// optional version, an optional variant, and a lookup over the
// partially constructed instance for condition expressions. A nil
// RunState selects construction mode.
type RunState struct {
	Version    Version
	HasVersion bool
	Variant    int64
	HasVariant bool
	Fields     expr.Env
}

// Env exposes the context's version and variant to compound version
// conditions.
func (rs *RunState) Env() expr.Env {
	return expr.EnvFunc(func(name string) (int64, error) {
		switch name {
		case "version":
			return int64(rs.Version), nil
		case "variant", "user_version":
			return rs.Variant, nil
		}
		return 0, fmt.Errorf("%w: %q", expr.ErrUnresolved, name)
	})
}

// ActiveFields yields the ordered active-field sequence for the given
// context: base-first declaration order, filtered by version window,
// variant constraint, condition and compound version condition, with
// same-named duplicates collapsed so the last active declaration wins.
// The sequence is lazy and restartable; it never materializes.
//
// With a nil RunState every check passes and the sequence yields one
// descriptor per surviving name, the most recent declaration. That mode
// drives slot construction and documentation listings.
//
// Conditions may reference only fields declared earlier; this is a
// structural convention of real schemas, not something the resolver
// enforces.
func (s *Struct) ActiveFields(rs *RunState) iter.Seq2[*Field, error] {
	return func(yield func(*Field, error) bool) {
		if rs == nil {
			for i, f := range s.flat {
				if s.lastOfName[f.Name] != i {
					continue
				}
				if !yield(f, nil) {
					return
				}
			}
			return
		}
		for i, f := range s.flat {
			active, err := s.fieldActive(f, rs)
			if err != nil {
				yield(nil, err)
				return
			}
			if !active {
				continue
			}
			if dup := s.dups[f.Name]; len(dup) > 0 {
				shadowed := false
				for _, j := range dup {
					if j <= i {
						continue
					}
					laterActive, err := s.fieldActive(s.flat[j], rs)
					if err != nil {
						yield(nil, err)
						return
					}
					if laterActive {
						shadowed = true
						break
					}
				}
				if shadowed {
					continue
				}
			}
			if !yield(f, nil) {
				return
			}
		}
	}
}

func (s *Struct) fieldActive(f *Field, rs *RunState) (bool, error) {
	if rs.HasVersion && f.Bounded() {
		// The unsupported marker never matches a bounded field.
		if !rs.Version.Valid() {
			return false, nil
		}
		if f.Since != 0 && rs.Version < f.Since {
			return false, nil
		}
		if f.Until != 0 && rs.Version > f.Until {
			return false, nil
		}
	}
	if f.HasVariant && rs.HasVariant && rs.Variant != f.Variant {
		return false, nil
	}
	if f.Cond != nil {
		ok, err := f.Cond.EvalBool(rs.Fields)
		if err != nil {
			return false, fmt.Errorf("%s.%s cond: %w", s.Name, f.DisplayName, err)
		}
		if !ok {
			return false, nil
		}
	}
	if f.VerCond != nil && rs.HasVersion && rs.HasVariant {
		ok, err := f.VerCond.EvalBool(rs.Env())
		if err != nil {
			return false, fmt.Errorf("%s.%s vercond: %w", s.Name, f.DisplayName, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
