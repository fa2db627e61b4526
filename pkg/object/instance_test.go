package object

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/relicdev/relic/pkg/binio"
	"github.com/relicdev/relic/pkg/expr"
	"github.com/relicdev/relic/pkg/schema"
)

// newEngineFormat registers the leaf types the engine tests build on.
func newEngineFormat(t *testing.T) *schema.Format {
	t.Helper()

	f := schema.New("test", binary.LittleEndian)
	for _, b := range []struct {
		name string
		kind schema.Kind
	}{
		{"uint", schema.KindUint32},
		{"int", schema.KindInt32},
		{"ushort", schema.KindUint16},
		{"byte", schema.KindUint8},
		{"float", schema.KindFloat32},
		{"hfloat", schema.KindFloat16},
		{"Ref", schema.KindRef},
		{"Ptr", schema.KindPtr},
		{"ZString", schema.KindZString},
		{"FixedString", schema.KindFixedString},
		{"SizedString", schema.KindSizedString},
	} {
		if _, err := f.AddBasic(b.name, b.kind); err != nil {
			t.Fatalf("AddBasic(%s): %v", b.name, err)
		}
	}
	return f
}

func addStruct(t *testing.T, f *schema.Format, s *schema.Struct) *schema.Struct {
	t.Helper()
	if err := f.AddStruct(s); err != nil {
		t.Fatalf("AddStruct(%s): %v", s.Name, err)
	}
	return s
}

func finalize(t *testing.T, f *schema.Format) {
	t.Helper()
	if err := f.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
}

func mustCompile(t *testing.T, f *schema.Format, src string) *expr.Expr {
	t.Helper()
	e, err := f.CompileExpr(src)
	if err != nil {
		t.Fatalf("CompileExpr(%q): %v", src, err)
	}
	return e
}

func mustNew(t *testing.T, s *schema.Struct) *Instance {
	t.Helper()
	ins, err := New(s, schema.TypeRef{}, 0)
	if err != nil {
		t.Fatalf("New(%s): %v", s.Name, err)
	}
	return ins
}

func TestVectorEndToEnd(t *testing.T) {
	t.Parallel()

	f := newEngineFormat(t)
	st := addStruct(t, f, &schema.Struct{
		Name: "Vector",
		Fields: []*schema.Field{
			{Name: "count", DisplayName: "Count", Type: schema.Named("uint")},
			{Name: "items", DisplayName: "Items", Type: schema.Named("int"), Len1: mustCompile(t, f, "Count")},
		},
	})
	finalize(t, f)

	data := []byte{
		0x03, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x00, 0x00,
		0x02, 0x00, 0x00, 0x00,
		0x03, 0x00, 0x00, 0x00,
	}
	ins := mustNew(t, st)
	ctx := NewContext(f)
	r := newTestReader(data)
	if err := ins.Read(r, ctx); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if err := r.ExpectEOF(); err != nil {
		t.Fatalf("stream not drained: %v", err)
	}

	count, _ := ins.Field("count")
	if got := count.Get(); got != uint64(3) {
		t.Fatalf("count = %v, want 3", got)
	}
	itemsV, _ := ins.Field("items")
	arr := itemsV.(*Array)
	if arr.Len() != 3 {
		t.Fatalf("items length = %d, want 3", arr.Len())
	}
	for i := range 3 {
		if got := arr.At(i).Get(); got != int64(i+1) {
			t.Fatalf("items[%d] = %v, want %d", i, got, i+1)
		}
	}

	if n, err := ins.Size(ctx); err != nil || n != 16 {
		t.Fatalf("Size = %d, %v; want 16", n, err)
	}

	var buf bytes.Buffer
	if err := ins.Write(binio.NewWriter(&buf, binio.LittleEndian), ctx); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), data) {
		t.Fatalf("write produced % x, want % x", buf.Bytes(), data)
	}
}

func TestReadVersionWindow(t *testing.T) {
	t.Parallel()

	f := newEngineFormat(t)
	st := addStruct(t, f, &schema.Struct{
		Name: "Header",
		Fields: []*schema.Field{
			{Name: "magic", DisplayName: "Magic", Type: schema.Named("uint")},
			{Name: "old_flags", DisplayName: "Old Flags", Type: schema.Named("ushort"), Until: schema.ParseVersion("4.0.0.2")},
			{Name: "new_flags", DisplayName: "New Flags", Type: schema.Named("uint"), Since: schema.ParseVersion("10.0.1.0")},
		},
	})
	finalize(t, f)

	oldData := []byte{0xEF, 0xBE, 0xAD, 0xDE, 0x34, 0x12}
	ins := mustNew(t, st)
	ctx := NewContext(f).WithVersion(schema.ParseVersion("3.3"), 0)
	r := newTestReader(oldData)
	if err := ins.Read(r, ctx); err != nil {
		t.Fatalf("Read old layout: %v", err)
	}
	if err := r.ExpectEOF(); err != nil {
		t.Fatalf("old layout not drained: %v", err)
	}
	oldFlags, _ := ins.Field("old_flags")
	if got := oldFlags.Get(); got != uint64(0x1234) {
		t.Fatalf("old_flags = %v, want 0x1234", got)
	}

	newData := []byte{0xEF, 0xBE, 0xAD, 0xDE, 0x78, 0x56, 0x00, 0x00}
	ins2 := mustNew(t, st)
	ctx2 := NewContext(f).WithVersion(schema.ParseVersion("20.2.0.7"), 0)
	r2 := newTestReader(newData)
	if err := ins2.Read(r2, ctx2); err != nil {
		t.Fatalf("Read new layout: %v", err)
	}
	if err := r2.ExpectEOF(); err != nil {
		t.Fatalf("new layout not drained: %v", err)
	}
	newFlags, _ := ins2.Field("new_flags")
	if got := newFlags.Get(); got != uint64(0x5678) {
		t.Fatalf("new_flags = %v, want 0x5678", got)
	}

	if n, err := ins.Size(ctx); err != nil || n != 6 {
		t.Fatalf("old Size = %d, %v; want 6", n, err)
	}
	if n, err := ins2.Size(ctx2); err != nil || n != 8 {
		t.Fatalf("new Size = %d, %v; want 8", n, err)
	}
}

func TestConditionalField(t *testing.T) {
	t.Parallel()

	f := newEngineFormat(t)
	st := addStruct(t, f, &schema.Struct{
		Name: "Vertex",
		Fields: []*schema.Field{
			{Name: "has_uv", DisplayName: "Has UV", Type: schema.Named("uint")},
			{Name: "uv", DisplayName: "UV", Type: schema.Named("float"), Cond: mustCompile(t, f, "Has UV != 0")},
		},
	})
	finalize(t, f)
	ctx := NewContext(f)

	with := binary.LittleEndian.AppendUint32([]byte{0x01, 0x00, 0x00, 0x00}, math.Float32bits(0.5))
	ins := mustNew(t, st)
	r := newTestReader(with)
	if err := ins.Read(r, ctx); err != nil {
		t.Fatalf("Read with uv: %v", err)
	}
	uv, _ := ins.Field("uv")
	if got := uv.Get(); got != 0.5 {
		t.Fatalf("uv = %v, want 0.5", got)
	}

	without := []byte{0x00, 0x00, 0x00, 0x00}
	ins2 := mustNew(t, st)
	r2 := newTestReader(without)
	if err := ins2.Read(r2, ctx); err != nil {
		t.Fatalf("Read without uv: %v", err)
	}
	if err := r2.ExpectEOF(); err != nil {
		t.Fatalf("condition false still consumed bytes: %v", err)
	}
	if n, err := ins2.Size(ctx); err != nil || n != 4 {
		t.Fatalf("Size = %d, %v; want 4", n, err)
	}
}

func TestDuplicateOverrideSingleSlot(t *testing.T) {
	t.Parallel()

	f := newEngineFormat(t)
	base := addStruct(t, f, &schema.Struct{
		Name: "Base",
		Fields: []*schema.Field{
			{Name: "count", DisplayName: "Count", Type: schema.Named("uint"), Until: schema.ParseVersion("10.0.1.0")},
		},
	})
	derived := addStruct(t, f, &schema.Struct{
		Name: "Derived",
		Base: base,
		Fields: []*schema.Field{
			{Name: "count", DisplayName: "Count", Type: schema.Named("uint"), Since: schema.ParseVersion("4.0.0.2")},
		},
	})
	finalize(t, f)

	ins := mustNew(t, derived)
	if got := ins.FieldNames(); !slices.Equal(got, []string{"count"}) {
		t.Fatalf("slots = %v, want exactly one count", got)
	}

	// Either declaration reads into the same slot.
	ctx := NewContext(f).WithVersion(schema.ParseVersion("3.3"), 0)
	if err := ins.Read(newTestReader([]byte{0x2A, 0, 0, 0}), ctx); err != nil {
		t.Fatalf("Read: %v", err)
	}
	count, _ := ins.Field("count")
	if got := count.Get(); got != uint64(42) {
		t.Fatalf("count = %v, want 42", got)
	}
}

func TestHashDeterminismAndSensitivity(t *testing.T) {
	t.Parallel()

	f := newEngineFormat(t)
	st := addStruct(t, f, &schema.Struct{
		Name: "Pair",
		Fields: []*schema.Field{
			{Name: "a", DisplayName: "A", Type: schema.Named("uint")},
			{Name: "b", DisplayName: "B", Type: schema.Named("uint")},
		},
	})
	finalize(t, f)
	ctx := NewContext(f)

	one := mustNew(t, st)
	two := mustNew(t, st)
	for _, ins := range []*Instance{one, two} {
		if err := ins.SetField("a", 7); err != nil {
			t.Fatalf("SetField: %v", err)
		}
		if err := ins.SetField("b", 9); err != nil {
			t.Fatalf("SetField: %v", err)
		}
	}
	h1, err := one.Hash(ctx)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := two.Hash(ctx)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("equal instances hash %#x and %#x", h1, h2)
	}

	if err := two.SetField("b", 10); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	h3, err := two.Hash(ctx)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h3 == h1 {
		t.Fatalf("scalar change kept hash %#x", h1)
	}

	// Swapped values must not collide: the fold is order-sensitive.
	swapped := mustNew(t, st)
	if err := swapped.SetField("a", 9); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if err := swapped.SetField("b", 7); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	h4, err := swapped.Hash(ctx)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h4 == h1 {
		t.Fatalf("swapped fields kept hash %#x", h1)
	}
}

func TestLinksRefsAsymmetry(t *testing.T) {
	t.Parallel()

	f := newEngineFormat(t)
	st := addStruct(t, f, &schema.Struct{
		Name: "Node",
		Fields: []*schema.Field{
			{Name: "child", DisplayName: "Child", Type: schema.Named("Ref")},
			{Name: "parent", DisplayName: "Parent", Type: schema.Named("Ptr")},
		},
	})
	finalize(t, f)

	a := mustNew(t, st)
	b := mustNew(t, st)
	if err := a.SetField("child", 1); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if err := b.SetField("parent", 0); err != nil {
		t.Fatalf("SetField: %v", err)
	}

	ctx := NewContext(f)
	ctx.Blocks = []*Instance{a, b}
	if err := a.FixLinks(ctx); err != nil {
		t.Fatalf("FixLinks(a): %v", err)
	}
	if err := b.FixLinks(ctx); err != nil {
		t.Fatalf("FixLinks(b): %v", err)
	}

	aLinks, err := a.Links(ctx)
	if err != nil {
		t.Fatalf("Links(a): %v", err)
	}
	aRefs, err := a.Refs(ctx)
	if err != nil {
		t.Fatalf("Refs(a): %v", err)
	}
	bLinks, err := b.Links(ctx)
	if err != nil {
		t.Fatalf("Links(b): %v", err)
	}
	bRefs, err := b.Refs(ctx)
	if err != nil {
		t.Fatalf("Refs(b): %v", err)
	}

	if len(aLinks) != 1 || aLinks[0] != b {
		t.Fatalf("a.Links = %v, want [b]", aLinks)
	}
	if len(aRefs) != 1 || aRefs[0] != b {
		t.Fatalf("a.Refs = %v, want [b]", aRefs)
	}
	if len(bLinks) != 1 || bLinks[0] != a {
		t.Fatalf("b.Links = %v, want [a] (weak back-pointer included)", bLinks)
	}
	if len(bRefs) != 0 {
		t.Fatalf("b.Refs = %v, want empty (weak back-pointer excluded)", bRefs)
	}
}

func TestFixLinksBadIndex(t *testing.T) {
	t.Parallel()

	f := newEngineFormat(t)
	st := addStruct(t, f, &schema.Struct{
		Name: "Node",
		Fields: []*schema.Field{
			{Name: "child", DisplayName: "Child", Type: schema.Named("Ref")},
		},
	})
	finalize(t, f)

	ins := mustNew(t, st)
	if err := ins.SetField("child", 5); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	ctx := NewContext(f)
	ctx.Blocks = []*Instance{ins}
	if err := ins.FixLinks(ctx); !errors.Is(err, ErrStreamFormat) {
		t.Fatalf("got %v, want ErrStreamFormat", err)
	}
}

func TestTemplateFieldTakesArgumentType(t *testing.T) {
	t.Parallel()

	f := newEngineFormat(t)
	st := addStruct(t, f, &schema.Struct{
		Name: "Holder",
		Fields: []*schema.Field{
			{Name: "item", DisplayName: "Item", Type: schema.Template()},
		},
	})
	finalize(t, f)

	u, _ := f.Type("uint")
	ins, err := New(st, schema.TypeOf(u), 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := NewContext(f)
	if err := ins.Read(newTestReader([]byte{0x07, 0, 0, 0}), ctx); err != nil {
		t.Fatalf("Read: %v", err)
	}
	item, _ := ins.Field("item")
	if got := item.Get(); got != uint64(7) {
		t.Fatalf("item = %v, want 7", got)
	}

	// Without a template argument the struct cannot be built.
	if _, err := New(st, schema.TypeRef{}, 0); !errors.Is(err, schema.ErrSchema) {
		t.Fatalf("missing template: got %v, want ErrSchema", err)
	}
}

func TestFixedStringArgFromSibling(t *testing.T) {
	t.Parallel()

	f := newEngineFormat(t)
	st := addStruct(t, f, &schema.Struct{
		Name: "Tag",
		Fields: []*schema.Field{
			{Name: "n", DisplayName: "N", Type: schema.Named("uint")},
			{Name: "name", DisplayName: "Name", Type: schema.Named("FixedString"), Arg: schema.FieldArg("n")},
		},
	})
	finalize(t, f)

	data := []byte{0x02, 0, 0, 0, 'h', 'i'}
	ins := mustNew(t, st)
	ctx := NewContext(f)
	r := newTestReader(data)
	if err := ins.Read(r, ctx); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if err := r.ExpectEOF(); err != nil {
		t.Fatalf("stream not drained: %v", err)
	}
	name, _ := ins.Field("name")
	if got := name.Get(); got != "hi" {
		t.Fatalf("name = %q, want hi", got)
	}
	if n, err := ins.Size(ctx); err != nil || n != 6 {
		t.Fatalf("Size = %d, %v; want 6", n, err)
	}

	var buf bytes.Buffer
	if err := ins.Write(binio.NewWriter(&buf, binio.LittleEndian), ctx); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), data) {
		t.Fatalf("write produced % x, want % x", buf.Bytes(), data)
	}
}

func TestStringsCollection(t *testing.T) {
	t.Parallel()

	f := newEngineFormat(t)
	inner := addStruct(t, f, &schema.Struct{
		Name: "Named",
		Fields: []*schema.Field{
			{Name: "name", DisplayName: "Name", Type: schema.Named("ZString")},
		},
	})
	st := addStruct(t, f, &schema.Struct{
		Name: "Group",
		Fields: []*schema.Field{
			{Name: "label", DisplayName: "Label", Type: schema.Named("SizedString")},
			{Name: "item", DisplayName: "Item", Type: schema.TypeOf(inner)},
			{Name: "tags", DisplayName: "Tags", Type: schema.Named("ZString"), Len1: mustCompile(t, f, "2")},
			{Name: "count", DisplayName: "Count", Type: schema.Named("uint")},
		},
	})
	finalize(t, f)

	ins := mustNew(t, st)
	if err := ins.SetField("label", "label"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	item, _ := ins.Field("item")
	if err := item.(*Instance).SetField("name", "inner"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	tags, _ := ins.Field("tags")
	arr := tags.(*Array)
	if err := arr.Reshape(2, 0); err != nil {
		t.Fatalf("Reshape: %v", err)
	}
	if err := arr.At(0).Set("tag0"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// tags[1] stays empty and must not be collected.

	got, err := ins.Strings(NewContext(f))
	if err != nil {
		t.Fatalf("Strings: %v", err)
	}
	want := []string{"label", "inner", "tag0"}
	if !slices.Equal(got, want) {
		t.Fatalf("Strings = %v, want %v", got, want)
	}
}

func TestAbstractFieldExcludedFromWire(t *testing.T) {
	t.Parallel()

	f := newEngineFormat(t)
	st := addStruct(t, f, &schema.Struct{
		Name: "Typed",
		Fields: []*schema.Field{
			{Name: "kind", DisplayName: "Kind", Type: schema.Named("uint"), Abstract: true},
			{Name: "val", DisplayName: "Val", Type: schema.Named("uint")},
		},
	})
	finalize(t, f)
	ctx := NewContext(f)

	ins := mustNew(t, st)
	r := newTestReader([]byte{0x05, 0, 0, 0})
	if err := ins.Read(r, ctx); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if err := r.ExpectEOF(); err != nil {
		t.Fatalf("abstract field consumed bytes: %v", err)
	}
	val, _ := ins.Field("val")
	if got := val.Get(); got != uint64(5) {
		t.Fatalf("val = %v, want 5", got)
	}
	if n, err := ins.Size(ctx); err != nil || n != 4 {
		t.Fatalf("Size = %d, %v; want 4", n, err)
	}

	// The declared-only field still participates in the content hash.
	other := mustNew(t, st)
	if err := other.SetField("val", 5); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if err := other.SetField("kind", 1); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	h1, err := ins.Hash(ctx)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := other.Hash(ctx)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("abstract slot change kept hash %#x", h1)
	}
}

func TestTwoDimensionalArray(t *testing.T) {
	t.Parallel()

	f := newEngineFormat(t)
	st := addStruct(t, f, &schema.Struct{
		Name: "Grid",
		Fields: []*schema.Field{
			{Name: "rows", DisplayName: "Rows", Type: schema.Named("uint")},
			{Name: "cols", DisplayName: "Cols", Type: schema.Named("uint")},
			{
				Name:        "cells",
				DisplayName: "Cells",
				Type:        schema.Named("ushort"),
				Len1:        mustCompile(t, f, "Rows"),
				Len2:        mustCompile(t, f, "Cols"),
			},
		},
	})
	finalize(t, f)

	data := []byte{
		0x02, 0x00, 0x00, 0x00,
		0x03, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x02, 0x00, 0x03, 0x00,
		0x04, 0x00, 0x05, 0x00, 0x06, 0x00,
	}
	ins := mustNew(t, st)
	ctx := NewContext(f)
	r := newTestReader(data)
	if err := ins.Read(r, ctx); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if err := r.ExpectEOF(); err != nil {
		t.Fatalf("stream not drained: %v", err)
	}

	cells, _ := ins.Field("cells")
	arr := cells.(*Array)
	if arr.Len() != 6 || arr.Cols() != 3 {
		t.Fatalf("shape = %d elements x %d cols, want 6 x 3", arr.Len(), arr.Cols())
	}
	if got := arr.At2(1, 2).Get(); got != uint64(6) {
		t.Fatalf("cells[1][2] = %v, want 6", got)
	}

	if n, err := ins.Size(ctx); err != nil || n != int64(len(data)) {
		t.Fatalf("Size = %d, %v; want %d", n, err, len(data))
	}
	var buf bytes.Buffer
	if err := ins.Write(binio.NewWriter(&buf, binio.LittleEndian), ctx); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), data) {
		t.Fatalf("write produced % x, want % x", buf.Bytes(), data)
	}
}

func TestWriteRejectsLengthMismatch(t *testing.T) {
	t.Parallel()

	f := newEngineFormat(t)
	st := addStruct(t, f, &schema.Struct{
		Name: "Vector",
		Fields: []*schema.Field{
			{Name: "count", DisplayName: "Count", Type: schema.Named("uint")},
			{Name: "items", DisplayName: "Items", Type: schema.Named("int"), Len1: mustCompile(t, f, "Count")},
		},
	})
	finalize(t, f)

	ins := mustNew(t, st)
	if err := ins.SetField("count", 2); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	items, _ := ins.Field("items")
	if err := items.(*Array).Reshape(3, 0); err != nil {
		t.Fatalf("Reshape: %v", err)
	}

	var buf bytes.Buffer
	err := ins.Write(binio.NewWriter(&buf, binio.LittleEndian), NewContext(f))
	if !errors.Is(err, ErrValueRange) {
		t.Fatalf("got %v, want ErrValueRange", err)
	}
}

func TestDefaultsApplied(t *testing.T) {
	t.Parallel()

	f := newEngineFormat(t)
	u, _ := f.Type("uint")
	e := schema.NewEnum("AlphaFormat", u.(*schema.Basic))
	e.Add("ALPHA_NONE", 0)
	e.Add("ALPHA_SMOOTH", 2)
	if err := f.AddEnum(e); err != nil {
		t.Fatalf("AddEnum: %v", err)
	}
	st := addStruct(t, f, &schema.Struct{
		Name: "Material",
		Fields: []*schema.Field{
			{Name: "mode", DisplayName: "Mode", Type: schema.Named("AlphaFormat"), Default: "ALPHA_SMOOTH"},
			{Name: "weight", DisplayName: "Weight", Type: schema.Named("float"), Default: "1.5"},
			{Name: "mask", DisplayName: "Mask", Type: schema.Named("uint"), Default: "0xFF00"},
		},
	})
	finalize(t, f)

	ins := mustNew(t, st)
	mode, _ := ins.Field("mode")
	if got := mode.Get(); got != uint64(2) {
		t.Fatalf("mode default = %v, want 2", got)
	}
	weight, _ := ins.Field("weight")
	if got := weight.Get(); got != 1.5 {
		t.Fatalf("weight default = %v, want 1.5", got)
	}
	mask, _ := ins.Field("mask")
	if got := mask.Get(); got != uint64(0xFF00) {
		t.Fatalf("mask default = %v, want 0xFF00", got)
	}
}
