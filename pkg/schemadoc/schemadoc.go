// Package schemadoc loads JSON format documents and assembles them into
// finalized schema.Format values. A document declares the version table,
// variant names, basic wire types, enums, bitfields and structs of one
// format; the loader resolves and validates the lot, so a successful
// load yields a format ready for the instance engine.
package schemadoc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/relicdev/relic/pkg/expr"
	"github.com/relicdev/relic/pkg/schema"
)

// ErrDocument flags a malformed document: bad JSON, unknown keys,
// unknown kind or type names, bad version literals. Errors from the
// schema itself (overlapping bitfield members, diverging duplicate
// fields, unresolved references) pass through as schema.ErrSchema.
var ErrDocument = errors.New("malformed schema document")

type document struct {
	Format    string        `json:"format"`
	Endian    string        `json:"endian"`
	Versions  []versionDoc  `json:"versions"`
	Variants  []variantDoc  `json:"variants"`
	Basics    []basicDoc    `json:"basics"`
	Enums     []enumDoc     `json:"enums"`
	Bitfields []bitfieldDoc `json:"bitfields"`
	Structs   []structDoc   `json:"structs"`
}

type versionDoc struct {
	ID        string   `json:"id"`
	Num       string   `json:"num"`
	Supported *bool    `json:"supported"`
	Variants  []int64  `json:"variants"`
	Games     []string `json:"games"`
}

type variantDoc struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type basicDoc struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type enumDoc struct {
	Name      string        `json:"name"`
	Storage   string        `json:"storage"`
	Constants []constantDoc `json:"constants"`
}

type constantDoc struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type bitfieldDoc struct {
	Name    string      `json:"name"`
	Storage string      `json:"storage"`
	Members []memberDoc `json:"members"`
}

type memberDoc struct {
	Name    string `json:"name"`
	Pos     uint   `json:"pos"`
	Width   uint   `json:"width"`
	Default uint64 `json:"default"`
}

type structDoc struct {
	Name    string     `json:"name"`
	Inherit string     `json:"inherit"`
	Fields  []fieldDoc `json:"fields"`
}

type fieldDoc struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Template string          `json:"template"`
	Arg      json.RawMessage `json:"arg"`
	Length1  string          `json:"length1"`
	Length2  string          `json:"length2"`
	Cond     string          `json:"cond"`
	VerCond  string          `json:"vercond"`
	Since    string          `json:"since"`
	Until    string          `json:"until"`
	Variant  json.RawMessage `json:"variant"`
	Default  string          `json:"default"`
	Abstract bool            `json:"abstract"`
}

var kindByName = map[string]schema.Kind{
	"int8":        schema.KindInt8,
	"uint8":       schema.KindUint8,
	"int16":       schema.KindInt16,
	"uint16":      schema.KindUint16,
	"int32":       schema.KindInt32,
	"uint32":      schema.KindUint32,
	"int64":       schema.KindInt64,
	"uint64":      schema.KindUint64,
	"ulittle32":   schema.KindLittle32,
	"bool":        schema.KindBool,
	"char":        schema.KindChar,
	"hfloat":      schema.KindFloat16,
	"float":       schema.KindFloat32,
	"double":      schema.KindFloat64,
	"zstring":     schema.KindZString,
	"fixedstring": schema.KindFixedString,
	"sizedstring": schema.KindSizedString,
	"bytes":       schema.KindTrailingBytes,
	"ref":         schema.KindRef,
	"ptr":         schema.KindPtr,
}

// Load parses one JSON format document and returns the finalized
// format. Unknown document keys are rejected; a typo in an attribute
// name should fail the load, not silently drop a constraint.
func Load(r io.Reader) (*schema.Format, error) {
	var doc document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocument, err)
	}
	return build(&doc)
}

// LoadFile reads a format document from disk.
func LoadFile(path string) (*schema.Format, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fh.Close() }()

	f, err := Load(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func build(doc *document) (*schema.Format, error) {
	if doc.Format == "" {
		return nil, fmt.Errorf("%w: missing format name", ErrDocument)
	}
	order, err := byteOrder(doc.Endian)
	if err != nil {
		return nil, err
	}
	f := schema.New(doc.Format, order)

	for i := range doc.Versions {
		vd := &doc.Versions[i]
		info := &schema.VersionInfo{
			ID:        vd.ID,
			Num:       vd.Num,
			Supported: vd.Supported == nil || *vd.Supported,
			Variants:  vd.Variants,
			Games:     vd.Games,
		}
		if err := f.AddVersion(info); err != nil {
			return nil, err
		}
	}
	for _, vd := range doc.Variants {
		f.AddVariant(vd.Name, vd.Value)
	}

	for _, bd := range doc.Basics {
		kind, ok := kindByName[bd.Kind]
		if !ok {
			return nil, fmt.Errorf("%w: basic %s has unknown kind %q", ErrDocument, bd.Name, bd.Kind)
		}
		if _, err := f.AddBasic(bd.Name, kind); err != nil {
			return nil, err
		}
	}
	for _, ed := range doc.Enums {
		storage, err := storageType(f, ed.Storage, "enum", ed.Name)
		if err != nil {
			return nil, err
		}
		en := schema.NewEnum(ed.Name, storage)
		for _, c := range ed.Constants {
			en.Add(c.Name, c.Value)
		}
		if err := f.AddEnum(en); err != nil {
			return nil, err
		}
	}
	for _, bd := range doc.Bitfields {
		storage, err := storageType(f, bd.Storage, "bitfield", bd.Name)
		if err != nil {
			return nil, err
		}
		bf := &schema.Bitfield{Name: bd.Name, Storage: storage}
		for _, m := range bd.Members {
			bf.Members = append(bf.Members, &schema.BitMember{
				Name:    schema.NormalizeName(m.Name),
				Pos:     m.Pos,
				Width:   m.Width,
				Default: m.Default,
			})
		}
		if err := f.AddBitfield(bf); err != nil {
			return nil, err
		}
	}

	for i := range doc.Structs {
		sd := &doc.Structs[i]
		st := &schema.Struct{Name: sd.Name}
		if sd.Inherit != "" {
			base, ok := f.StructType(sd.Inherit)
			if !ok {
				return nil, fmt.Errorf("%w: struct %s inherits undeclared struct %q",
					ErrDocument, sd.Name, sd.Inherit)
			}
			st.Base = base
		}
		for j := range sd.Fields {
			fl, err := buildField(f, sd.Name, &sd.Fields[j])
			if err != nil {
				return nil, err
			}
			st.Fields = append(st.Fields, fl)
		}
		if err := f.AddStruct(st); err != nil {
			return nil, err
		}
	}

	if err := f.Finalize(); err != nil {
		return nil, err
	}
	return f, nil
}

func byteOrder(s string) (binary.ByteOrder, error) {
	switch s {
	case "", "little":
		return binary.LittleEndian, nil
	case "big":
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("%w: unknown endian %q", ErrDocument, s)
}

func storageType(f *schema.Format, name, what, owner string) (*schema.Basic, error) {
	t, ok := f.Type(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s %s storage %q is not declared", ErrDocument, what, owner, name)
	}
	b, ok := t.(*schema.Basic)
	if !ok {
		return nil, fmt.Errorf("%w: %s %s storage %q is not a basic type", ErrDocument, what, owner, name)
	}
	return b, nil
}

func buildField(f *schema.Format, structName string, fd *fieldDoc) (*schema.Field, error) {
	if fd.Name == "" {
		return nil, fmt.Errorf("%w: struct %s has a field with no name", ErrDocument, structName)
	}
	if fd.Type == "" {
		return nil, fmt.Errorf("%w: field %s.%s has no type", ErrDocument, structName, fd.Name)
	}
	fl := &schema.Field{
		Name:        schema.NormalizeName(fd.Name),
		DisplayName: fd.Name,
		Type:        typeRef(fd.Type),
		Default:     fd.Default,
		Abstract:    fd.Abstract,
	}
	if fd.Template != "" {
		fl.Template = typeRef(fd.Template)
	}

	arg, err := parseArg(fd.Arg)
	if err != nil {
		return nil, fmt.Errorf("field %s.%s: %w", structName, fd.Name, err)
	}
	fl.Arg = arg

	if fl.Len1, err = compileAttr(f, structName, fd.Name, "length1", fd.Length1); err != nil {
		return nil, err
	}
	if fl.Len2, err = compileAttr(f, structName, fd.Name, "length2", fd.Length2); err != nil {
		return nil, err
	}
	if fl.Cond, err = compileAttr(f, structName, fd.Name, "cond", fd.Cond); err != nil {
		return nil, err
	}
	if fl.VerCond, err = compileAttr(f, structName, fd.Name, "vercond", fd.VerCond); err != nil {
		return nil, err
	}

	if fl.Since, err = parseVersionAttr(structName, fd.Name, "since", fd.Since); err != nil {
		return nil, err
	}
	if fl.Until, err = parseVersionAttr(structName, fd.Name, "until", fd.Until); err != nil {
		return nil, err
	}

	if err := parseVariant(f, fd.Variant, fl); err != nil {
		return nil, fmt.Errorf("field %s.%s: %w", structName, fd.Name, err)
	}
	return fl, nil
}

func typeRef(name string) schema.TypeRef {
	if name == schema.TemplateName {
		return schema.Template()
	}
	return schema.Named(name)
}

// parseArg accepts a literal integer, a numeric string, or the name of
// an earlier sibling field.
func parseArg(raw json.RawMessage) (schema.Arg, error) {
	if len(raw) == 0 {
		return schema.Arg{}, nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return schema.LiteralArg(n), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return schema.Arg{}, fmt.Errorf("%w: arg must be a number or a field name", ErrDocument)
	}
	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		return schema.LiteralArg(n), nil
	}
	return schema.FieldArg(schema.NormalizeName(s)), nil
}

func parseVariant(f *schema.Format, raw json.RawMessage, fl *schema.Field) error {
	if len(raw) == 0 {
		return nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		fl.Variant, fl.HasVariant = n, true
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return fmt.Errorf("%w: variant must be a number or a variant name", ErrDocument)
	}
	v, ok := f.VariantByName(s)
	if !ok {
		return fmt.Errorf("%w: unknown variant %q", ErrDocument, s)
	}
	fl.Variant, fl.HasVariant = v, true
	return nil
}

func compileAttr(f *schema.Format, structName, fieldName, attr, src string) (*expr.Expr, error) {
	e, err := f.CompileExpr(src)
	if err != nil {
		return nil, fmt.Errorf("field %s.%s %s: %w", structName, fieldName, attr, err)
	}
	return e, nil
}

func parseVersionAttr(structName, fieldName, attr, s string) (schema.Version, error) {
	if s == "" {
		return 0, nil
	}
	v := schema.ParseVersion(s)
	if !v.Valid() {
		return 0, fmt.Errorf("%w: field %s.%s %s has bad version %q",
			ErrDocument, structName, fieldName, attr, s)
	}
	return v, nil
}
