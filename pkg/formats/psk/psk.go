// Package psk reads and writes Unreal PSK mesh and PSA animation files
// through the instance engine. Both layouts are sequences of chunks: a
// 20-byte ID string, a version tag, a record size and a record count,
// followed by that many fixed-size records. The leading chunk doubles
// as the file signature, ACTRHEAD for meshes and ANIMHEAD for
// animation sets.
package psk

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/relicdev/relic/pkg/binio"
	"github.com/relicdev/relic/pkg/object"
	"github.com/relicdev/relic/pkg/schema"
)

const (
	sigMesh = "ACTRHEAD"
	sigAnim = "ANIMHEAD"

	chunkIDLen      = 20
	nameLen         = 64
	chunkHeaderSize = 32
)

// FileType distinguishes the two layouts sharing the chunk scheme.
type FileType int

const (
	TypeInvalid FileType = iota
	TypeMesh
	TypeAnim
)

func (t FileType) String() string {
	switch t {
	case TypeMesh:
		return "mesh"
	case TypeAnim:
		return "anim"
	default:
		return "invalid"
	}
}

type sectionDef struct {
	field      string
	id         string
	recordSize int64
}

var meshSections = []sectionDef{
	{"points", "PNTS0000", 12},
	{"wedges", "VTXW0000", 16},
	{"faces", "FACE0000", 12},
	{"materials", "MATT0000", 88},
	{"bones", "REFSKELT", 120},
	{"influences", "RAWWEIGHTS", 12},
}

var animSections = []sectionDef{
	{"bones", "BONENAMES", 120},
	{"animations", "ANIMINFO", 168},
	{"raw_keys", "ANIMKEYS", 32},
}

// File is one parsed or under-construction PSK/PSA file.
type File struct {
	Type FileType
	Root *object.Instance
}

// Info is what Inspect learns without consuming the stream.
type Info struct {
	Type      FileType
	TypeFlags int32
	DataSize  int32
	DataCount int32
}

// Matches reports whether name carries an extension this catalog
// covers.
func Matches(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".psk", ".psa":
		return true
	}
	return false
}

func sniff(sig []byte) (FileType, error) {
	switch string(sig) {
	case sigMesh:
		return TypeMesh, nil
	case sigAnim:
		return TypeAnim, nil
	}
	return TypeInvalid, fmt.Errorf("%w: invalid signature %q (want %q or %q)",
		object.ErrStreamFormat, sig, sigMesh, sigAnim)
}

func layout(t FileType) (*schema.Struct, []sectionDef) {
	f := Format()
	switch t {
	case TypeMesh:
		st, _ := f.StructType("MeshFile")
		return st, meshSections
	case TypeAnim:
		st, _ := f.StructType("AnimFile")
		return st, animSections
	}
	return nil, nil
}

// Inspect sniffs the signature and decodes the leading chunk header,
// then restores the stream position.
func Inspect(rs io.ReadSeeker) (*Info, error) {
	pos, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	var buf [chunkHeaderSize]byte
	_, rerr := io.ReadFull(rs, buf[:])
	if _, err := rs.Seek(pos, io.SeekStart); err != nil {
		return nil, err
	}
	if rerr != nil {
		return nil, fmt.Errorf("%w: stream too short for a chunk header", object.ErrStreamFormat)
	}
	t, err := sniff(buf[:8])
	if err != nil {
		return nil, err
	}
	return &Info{
		Type:      t,
		TypeFlags: int32(binio.LittleEndian.Uint32(buf[chunkIDLen:])),
		DataSize:  int32(binio.LittleEndian.Uint32(buf[chunkIDLen+4:])),
		DataCount: int32(binio.LittleEndian.Uint32(buf[chunkIDLen+8:])),
	}, nil
}

// New constructs an empty file of the given type with chunk tags and
// record sizes preset, ready to fill and write.
func New(t FileType) (*File, error) {
	def, sections := layout(t)
	if def == nil {
		return nil, fmt.Errorf("%w: unknown file type", object.ErrValueType)
	}
	root, err := object.New(def, schema.TypeRef{}, 0)
	if err != nil {
		return nil, err
	}
	sig := sigMesh
	if t == TypeAnim {
		sig = sigAnim
	}
	hdr, _ := root.Field("header")
	if err := hdr.(*object.Instance).SetField("chunk_id", sig); err != nil {
		return nil, err
	}
	for _, s := range sections {
		v, _ := root.Field(s.field)
		ins := v.(*object.Instance)
		if err := ins.SetField("chunk_id", s.id); err != nil {
			return nil, err
		}
		if err := ins.SetField("data_size", s.recordSize); err != nil {
			return nil, err
		}
	}
	return &File{Type: t, Root: root}, nil
}

// Read parses a whole file. Anything left in the stream after the last
// section is a stream error: a well formed file is consumed exactly.
func Read(rs io.ReadSeeker) (*File, error) {
	info, err := Inspect(rs)
	if err != nil {
		return nil, err
	}
	size, err := streamSize(rs)
	if err != nil {
		return nil, err
	}
	def, _ := layout(info.Type)
	root, err := object.New(def, schema.TypeRef{}, 0)
	if err != nil {
		return nil, err
	}
	r := binio.NewReader(rs, binio.LittleEndian, size)
	if err := root.Read(r, object.NewContext(Format())); err != nil {
		return nil, err
	}
	if err := r.ExpectEOF(); err != nil {
		return nil, fmt.Errorf("%w: end of file not reached: %v", object.ErrStreamFormat, err)
	}
	return &File{Type: info.Type, Root: root}, nil
}

func streamSize(rs io.ReadSeeker) (int64, error) {
	cur, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := rs.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return end - cur, nil
}

// Write emits the file. Section counts must match their array lengths.
func (f *File) Write(w io.Writer) error {
	return f.Root.Write(binio.NewWriter(w, binio.LittleEndian), object.NewContext(Format()))
}

// Size returns the encoded length in bytes.
func (f *File) Size() (int64, error) {
	return f.Root.Size(object.NewContext(Format()))
}

// Hash digests the file's content.
func (f *File) Hash() (uint64, error) {
	return f.Root.Hash(object.NewContext(Format()))
}

// Strings returns every non-empty string in the file: chunk tags,
// material and bone names, animation names and groups.
func (f *File) Strings() ([]string, error) {
	return f.Root.Strings(object.NewContext(Format()))
}

// Section returns a data chunk by its field name.
func (f *File) Section(name string) (*object.Instance, bool) {
	_, defs := layout(f.Type)
	for _, s := range defs {
		if s.field != name {
			continue
		}
		v, ok := f.Root.Field(name)
		if !ok {
			return nil, false
		}
		ins, ok := v.(*object.Instance)
		return ins, ok
	}
	return nil, false
}

// SectionNames lists the data chunk fields in file order, header
// excluded.
func (f *File) SectionNames() []string {
	_, defs := layout(f.Type)
	out := make([]string, len(defs))
	for i, s := range defs {
		out[i] = s.field
	}
	return out
}

// Resize sets a section's record count and reshapes its array to
// match, constructing zeroed records as needed.
func (f *File) Resize(section string, n int64) error {
	ins, ok := f.Section(section)
	if !ok {
		return fmt.Errorf("%w: no section %q", object.ErrValueType, section)
	}
	if err := ins.SetField("data_count", n); err != nil {
		return err
	}
	v, ok := ins.Field(section)
	if !ok {
		return fmt.Errorf("%w: section %q has no record array", object.ErrValueType, section)
	}
	return v.(*object.Array).Reshape(n, 0)
}
