package object

import (
	"fmt"
	"strconv"

	"github.com/relicdev/relic/pkg/binio"
	"github.com/relicdev/relic/pkg/expr"
	"github.com/relicdev/relic/pkg/schema"
)

// Instance is the mutable value of a struct descriptor: one slot per
// resolved field name, in declaration order. Every operation re-runs
// the attribute resolver against the call's context, so one instance
// serves any version of the wire layout its descriptor spans.
type Instance struct {
	def   *schema.Struct
	tmpl  schema.TypeRef
	arg   int64
	names []string
	slots map[string]Value
}

// New constructs an instance of def with every slot at its default.
// tmpl supplies the concrete type for template-placeholder fields; arg
// is the enclosing runtime argument.
func New(def *schema.Struct, tmpl schema.TypeRef, arg int64) (*Instance, error) {
	ins := &Instance{
		def:   def,
		tmpl:  tmpl,
		arg:   arg,
		slots: make(map[string]Value),
	}
	for f, err := range def.ActiveFields(nil) {
		if err != nil {
			return nil, err
		}
		v, err := ins.newSlot(f)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", def.Name, f.DisplayName, err)
		}
		ins.names = append(ins.names, f.Name)
		ins.slots[f.Name] = v
	}
	return ins, nil
}

// Def returns the instance's descriptor.
func (ins *Instance) Def() *schema.Struct { return ins.def }

// Field returns the slot for a normalized field name.
func (ins *Instance) Field(name string) (Value, bool) {
	v, ok := ins.slots[name]
	return v, ok
}

// FieldNames returns the slot names in declaration order.
func (ins *Instance) FieldNames() []string { return ins.names }

// SetField assigns a value to the named slot.
func (ins *Instance) SetField(name string, v any) error {
	slot, ok := ins.slots[name]
	if !ok {
		return fmt.Errorf("%w: %s has no field %q", ErrValueType, ins.def.Name, name)
	}
	if err := slot.Set(v); err != nil {
		return fmt.Errorf("%s.%s: %w", ins.def.Name, name, err)
	}
	return nil
}

// Walk visits every slot in declaration order.
func (ins *Instance) Walk(fn func(name string, v Value)) {
	for _, name := range ins.names {
		fn(name, ins.slots[name])
	}
}

func (ins *Instance) newSlot(f *schema.Field) (Value, error) {
	arg := ins.constructionArg(f)
	if f.IsArray() {
		return newArray(f, func() (Value, error) { return ins.newElem(f, arg) }), nil
	}
	return ins.newElem(f, arg)
}

func (ins *Instance) newElem(f *schema.Field, arg int64) (Value, error) {
	v, err := ins.newScalar(f, arg)
	if err != nil {
		return nil, err
	}
	if f.Default != "" {
		if err := applyDefault(v, f.Default); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (ins *Instance) newScalar(f *schema.Field, arg int64) (Value, error) {
	et := f.Type
	if et.IsTemplate() {
		if ins.tmpl.Type == nil {
			return nil, fmt.Errorf("%w: %s needs a template argument for %s",
				schema.ErrSchema, ins.def.Name, f.DisplayName)
		}
		et = ins.tmpl
	}
	tm := f.Template
	if tm.IsTemplate() {
		tm = ins.tmpl
	}
	switch t := et.Type.(type) {
	case *schema.Basic:
		return newBasic(t.Kind)
	case *schema.Enum:
		return NewEnumInt(t), nil
	case *schema.Bitfield:
		return NewBitfieldValue(t), nil
	case *schema.Struct:
		return New(t, tm, arg)
	default:
		return nil, fmt.Errorf("%w: unresolved type %s", schema.ErrSchema, et.Name)
	}
}

func newBasic(k schema.Kind) (Value, error) {
	switch k {
	case schema.KindBool:
		return &Bool{}, nil
	case schema.KindChar:
		return &Char{}, nil
	case schema.KindFloat16, schema.KindFloat32, schema.KindFloat64:
		return NewFloat(k), nil
	case schema.KindZString:
		return &ZString{}, nil
	case schema.KindFixedString:
		return &FixedString{}, nil
	case schema.KindSizedString:
		return &SizedString{}, nil
	case schema.KindTrailingBytes:
		return &TrailingBytes{}, nil
	case schema.KindRef:
		return NewLink(false), nil
	case schema.KindPtr:
		return NewLink(true), nil
	case schema.KindInt8, schema.KindUint8, schema.KindInt16, schema.KindUint16,
		schema.KindInt32, schema.KindUint32, schema.KindInt64, schema.KindUint64,
		schema.KindLittle32:
		return NewInt(k), nil
	default:
		return nil, fmt.Errorf("%w: no value for kind %s", schema.ErrSchema, k)
	}
}

func applyDefault(v Value, def string) error {
	switch t := v.(type) {
	case *Int:
		if n, err := strconv.ParseInt(def, 10, 64); err == nil {
			return t.Set(n)
		}
		return t.Set(def)
	case *Float:
		n, err := strconv.ParseFloat(def, 64)
		if err != nil {
			return fmt.Errorf("%w: bad float default %q", ErrValueType, def)
		}
		return t.Set(n)
	case *BitfieldValue:
		n, err := strconv.ParseUint(def, 0, 64)
		if err != nil {
			return fmt.Errorf("%w: bad bitfield default %q", ErrValueType, def)
		}
		return t.Set(n)
	case *Link:
		n, err := strconv.ParseInt(def, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: bad link default %q", ErrValueType, def)
		}
		return t.Set(n)
	default:
		return v.Set(def)
	}
}

// constructionArg resolves a field's argument at construction time,
// when back-referenced siblings hold only defaults.
func (ins *Instance) constructionArg(f *schema.Field) int64 {
	if !f.Arg.Set {
		return 0
	}
	if f.Arg.Field == "" {
		return f.Arg.Value
	}
	if v, ok := ins.slots[f.Arg.Field]; ok {
		if n, ok := intOf(v); ok {
			return n
		}
	}
	return 0
}

// fieldContext derives the context a slot operation runs under: the
// call context with the field's runtime argument resolved against the
// current sibling values.
func (ins *Instance) fieldContext(ctx *Context, f *schema.Field) (*Context, error) {
	var arg int64
	if f.Arg.Set {
		if f.Arg.Field == "" {
			arg = f.Arg.Value
		} else {
			v, ok := ins.slots[f.Arg.Field]
			if !ok {
				return nil, fmt.Errorf("%w: arg references unknown field %q",
					expr.ErrUnresolved, f.Arg.Field)
			}
			n, ok := intOf(v)
			if !ok {
				return nil, fmt.Errorf("%w: arg field %q is not numeric",
					expr.ErrEval, f.Arg.Field)
			}
			arg = n
		}
	}
	if arg == ctx.Arg {
		return ctx, nil
	}
	return ctx.withArg(arg), nil
}

// intOf extracts an integer view of a slot for expressions and
// arguments.
func intOf(v Value) (int64, bool) {
	switch t := v.(type) {
	case *Int:
		return t.Int64(), true
	case *Bool:
		if t.val {
			return 1, true
		}
		return 0, true
	case *Char:
		return int64(t.val), true
	case *BitfieldValue:
		return int64(t.storage()), true
	case *Float:
		return int64(t.val), true
	case *Link:
		return int64(t.index), true
	default:
		return 0, false
	}
}

func (ins *Instance) envLookup(name string) (int64, error) {
	if v, ok := ins.slots[name]; ok {
		n, ok := intOf(v)
		if !ok {
			return 0, fmt.Errorf("%w: field %q is not numeric", expr.ErrEval, name)
		}
		return n, nil
	}
	if name == "arg" {
		return ins.arg, nil
	}
	return 0, fmt.Errorf("%w: %s has no field %q", expr.ErrUnresolved, ins.def.Name, name)
}

// Env exposes the instance's current field values to expressions.
func (ins *Instance) Env() expr.Env { return expr.EnvFunc(ins.envLookup) }

func (ins *Instance) runState(ctx *Context) *schema.RunState {
	return &schema.RunState{
		Version:    ctx.Version,
		HasVersion: ctx.HasVersion,
		Variant:    ctx.Variant,
		HasVariant: ctx.HasVariant,
		Fields:     ins.Env(),
	}
}

func (ins *Instance) arrayLens(f *schema.Field) (int64, int64, error) {
	env := ins.Env()
	n1, err := f.Len1.Eval(env)
	if err != nil {
		return 0, 0, fmt.Errorf("length: %w", err)
	}
	var n2 int64
	if f.Len2 != nil {
		n2, err = f.Len2.Eval(env)
		if err != nil {
			return 0, 0, fmt.Errorf("length: %w", err)
		}
	}
	return n1, n2, nil
}

// Read fills the instance from the stream: the resolver picks the
// active fields for the context, arrays size themselves from the
// current count fields, and every non-abstract field reads in order.
func (ins *Instance) Read(r *binio.Reader, ctx *Context) error {
	ins.arg = ctx.Arg
	for f, err := range ins.def.ActiveFields(ins.runState(ctx)) {
		if err != nil {
			return err
		}
		if f.Abstract {
			continue
		}
		fctx, err := ins.fieldContext(ctx, f)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", ins.def.Name, f.DisplayName, err)
		}
		slot := ins.slots[f.Name]
		if arr, ok := slot.(*Array); ok {
			n1, n2, err := ins.arrayLens(f)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", ins.def.Name, f.DisplayName, err)
			}
			if err := arr.Reshape(n1, n2); err != nil {
				return fmt.Errorf("%s.%s: %w", ins.def.Name, f.DisplayName, err)
			}
		}
		if err := slot.Read(r, fctx); err != nil {
			return fmt.Errorf("%s.%s: %w", ins.def.Name, f.DisplayName, err)
		}
	}
	return nil
}

// Write emits the instance in the same resolved order a Read would
// consume, allocating nothing. Array shapes must already match their
// count fields.
func (ins *Instance) Write(w *binio.Writer, ctx *Context) error {
	ins.arg = ctx.Arg
	for f, err := range ins.def.ActiveFields(ins.runState(ctx)) {
		if err != nil {
			return err
		}
		if f.Abstract {
			continue
		}
		fctx, err := ins.fieldContext(ctx, f)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", ins.def.Name, f.DisplayName, err)
		}
		slot := ins.slots[f.Name]
		if arr, ok := slot.(*Array); ok {
			n1, n2, err := ins.arrayLens(f)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", ins.def.Name, f.DisplayName, err)
			}
			if err := arr.requireLen(n1, n2); err != nil {
				return fmt.Errorf("%s.%s: %w", ins.def.Name, f.DisplayName, err)
			}
		}
		if err := slot.Write(w, fctx); err != nil {
			return fmt.Errorf("%s.%s: %w", ins.def.Name, f.DisplayName, err)
		}
	}
	return nil
}

// Size sums the wire sizes of the active non-abstract fields.
func (ins *Instance) Size(ctx *Context) (int64, error) {
	var total int64
	for f, err := range ins.def.ActiveFields(ins.runState(ctx)) {
		if err != nil {
			return 0, err
		}
		if f.Abstract {
			continue
		}
		fctx, err := ins.fieldContext(ctx, f)
		if err != nil {
			return 0, fmt.Errorf("%s.%s: %w", ins.def.Name, f.DisplayName, err)
		}
		n, err := ins.slots[f.Name].Size(fctx)
		if err != nil {
			return 0, fmt.Errorf("%s.%s: %w", ins.def.Name, f.DisplayName, err)
		}
		total += n
	}
	return total, nil
}

// Hash folds the active fields' digests order-sensitively, abstract
// fields included: structurally equal instances hash equal, any scalar
// change changes the digest.
func (ins *Instance) Hash(ctx *Context) (uint64, error) {
	h := newHashFold()
	for f, err := range ins.def.ActiveFields(ins.runState(ctx)) {
		if err != nil {
			return 0, err
		}
		fctx, err := ins.fieldContext(ctx, f)
		if err != nil {
			return 0, fmt.Errorf("%s.%s: %w", ins.def.Name, f.DisplayName, err)
		}
		v, err := ins.slots[f.Name].Hash(fctx)
		if err != nil {
			return 0, fmt.Errorf("%s.%s: %w", ins.def.Name, f.DisplayName, err)
		}
		h.add(v)
	}
	return h.sum(), nil
}

// Get returns a name-to-value snapshot of every slot.
func (ins *Instance) Get() any {
	out := make(map[string]any, len(ins.names))
	for _, name := range ins.names {
		out[name] = ins.slots[name].Get()
	}
	return out
}

// Set is not defined for whole instances; assign through SetField.
func (ins *Instance) Set(v any) error {
	return fmt.Errorf("%w: cannot assign a struct wholesale", ErrValueType)
}

// Links returns every resolved link target under the instance,
// including weak back-pointers.
func (ins *Instance) Links(ctx *Context) ([]*Instance, error) {
	return ins.collectLinks(ctx, true, nil)
}

// Refs returns the resolved strong link targets under the instance.
// Weak back-pointers are excluded, which keeps traversal from a root
// acyclic even when the link graph has cycles.
func (ins *Instance) Refs(ctx *Context) ([]*Instance, error) {
	return ins.collectLinks(ctx, false, nil)
}

func (ins *Instance) collectLinks(ctx *Context, includeWeak bool, out []*Instance) ([]*Instance, error) {
	for f, err := range ins.def.ActiveFields(ins.runState(ctx)) {
		if err != nil {
			return nil, err
		}
		if !fieldMayLink(f, includeWeak) {
			continue
		}
		out, err = appendLinks(ins.slots[f.Name], ctx, includeWeak, out)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", ins.def.Name, f.DisplayName, err)
		}
	}
	return out, nil
}

func appendLinks(v Value, ctx *Context, includeWeak bool, out []*Instance) ([]*Instance, error) {
	switch t := v.(type) {
	case *Link:
		if t.target != nil && (includeWeak || !t.weak) {
			out = append(out, t.target)
		}
	case *Instance:
		return t.collectLinks(ctx, includeWeak, out)
	case *Array:
		var err error
		for _, e := range t.elems {
			out, err = appendLinks(e, ctx, includeWeak, out)
			if err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// Strings returns every non-empty string value under the instance.
func (ins *Instance) Strings(ctx *Context) ([]string, error) {
	return ins.collectStrings(ctx, nil)
}

func (ins *Instance) collectStrings(ctx *Context, out []string) ([]string, error) {
	for f, err := range ins.def.ActiveFields(ins.runState(ctx)) {
		if err != nil {
			return nil, err
		}
		if !fieldMayHaveStrings(f) {
			continue
		}
		out, err = appendStrings(ins.slots[f.Name], ctx, out)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", ins.def.Name, f.DisplayName, err)
		}
	}
	return out, nil
}

func appendStrings(v Value, ctx *Context, out []string) ([]string, error) {
	switch t := v.(type) {
	case *ZString:
		if len(t.val) > 0 {
			out = append(out, decodeString(t.val))
		}
	case *FixedString:
		if len(t.val) > 0 {
			out = append(out, decodeString(t.val))
		}
	case *SizedString:
		if len(t.val) > 0 {
			out = append(out, decodeString(t.val))
		}
	case *Instance:
		return t.collectStrings(ctx, out)
	case *Array:
		var err error
		for _, e := range t.elems {
			out, err = appendStrings(e, ctx, out)
			if err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// FixLinks resolves every stored link index under the instance against
// the context's block table.
func (ins *Instance) FixLinks(ctx *Context) error {
	for f, err := range ins.def.ActiveFields(ins.runState(ctx)) {
		if err != nil {
			return err
		}
		if !fieldMayLink(f, true) {
			continue
		}
		if err := fixLinks(ins.slots[f.Name], ctx); err != nil {
			return fmt.Errorf("%s.%s: %w", ins.def.Name, f.DisplayName, err)
		}
	}
	return nil
}

func fixLinks(v Value, ctx *Context) error {
	switch t := v.(type) {
	case *Link:
		return t.fix(ctx)
	case *Instance:
		return t.FixLinks(ctx)
	case *Array:
		for _, e := range t.elems {
			if err := fixLinks(e, ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// fieldMayLink consults the static traversal flags so whole subtrees
// without links are skipped.
func fieldMayLink(f *schema.Field, includeWeak bool) bool {
	if f.Type.IsTemplate() {
		return true
	}
	if includeWeak {
		return f.Type.Type.HasLinks()
	}
	return f.Type.Type.HasRefs()
}

func fieldMayHaveStrings(f *schema.Field) bool {
	if f.Type.IsTemplate() {
		return true
	}
	return f.Type.Type.HasStrings()
}
