package psk

import (
	"encoding/binary"
	"sync"

	"github.com/relicdev/relic/pkg/expr"
	"github.com/relicdev/relic/pkg/schema"
)

// Format returns the PSK/PSA schema. Built once, then shared; a
// finalized format is immutable and safe for concurrent readers.
var Format = sync.OnceValue(buildFormat)

// typeFlagsDefault is the chunk version tag ActorX exporters write.
const typeFlagsDefault = "1999801"

func buildFormat() *schema.Format {
	f := schema.New("psk", binary.LittleEndian)

	basic := func(name string, kind schema.Kind) {
		if _, err := f.AddBasic(name, kind); err != nil {
			panic(err)
		}
	}
	basic("int", schema.KindInt32)
	basic("uint", schema.KindUint32)
	basic("byte", schema.KindInt8)
	basic("ubyte", schema.KindUint8)
	basic("char", schema.KindChar)
	basic("short", schema.KindInt16)
	basic("ushort", schema.KindUint16)
	basic("float", schema.KindFloat32)
	basic("FixedString", schema.KindFixedString)

	add := func(s *schema.Struct) *schema.Struct {
		if err := f.AddStruct(s); err != nil {
			panic(err)
		}
		return s
	}
	fld := func(display, typ string) *schema.Field {
		return &schema.Field{
			Name:        schema.NormalizeName(display),
			DisplayName: display,
			Type:        schema.Named(typ),
		}
	}
	fixed := func(display string, n int64) *schema.Field {
		fl := fld(display, "FixedString")
		fl.Arg = schema.LiteralArg(n)
		return fl
	}
	arr := func(display, typ, count string) *schema.Field {
		fl := fld(display, typ)
		fl.Len1 = expr.MustCompile(count, schema.NormalizeName)
		return fl
	}

	typeFlags := fld("Type Flags", "int")
	typeFlags.Default = typeFlagsDefault
	chunk := add(&schema.Struct{Name: "Chunk", Fields: []*schema.Field{
		fixed("Chunk ID", chunkIDLen),
		typeFlags,
		fld("Data Size", "int"),
		fld("Data Count", "int"),
	}})

	add(&schema.Struct{Name: "Vector3", Fields: []*schema.Field{
		fld("X", "float"),
		fld("Y", "float"),
		fld("Z", "float"),
	}})
	add(&schema.Struct{Name: "Quaternion", Fields: []*schema.Field{
		fld("X", "float"),
		fld("Y", "float"),
		fld("Z", "float"),
		fld("W", "float"),
	}})

	add(&schema.Struct{Name: "Wedge", Fields: []*schema.Field{
		fld("Point Index", "ushort"),
		fld("Padding", "ushort"),
		fld("U", "float"),
		fld("V", "float"),
		fld("Material Index", "ubyte"),
		fld("Reserved", "ubyte"),
		fld("Padding 2", "ushort"),
	}})
	add(&schema.Struct{Name: "Face", Fields: []*schema.Field{
		arr("Wedge Indices", "ushort", "3"),
		fld("Material Index", "ubyte"),
		fld("Aux Material Index", "ubyte"),
		fld("Smoothing Groups", "uint"),
	}})
	add(&schema.Struct{Name: "Material", Fields: []*schema.Field{
		fixed("Material Name", nameLen),
		fld("Texture Index", "int"),
		fld("Poly Flags", "uint"),
		fld("Aux Material", "int"),
		fld("Aux Flags", "uint"),
		fld("LOD Bias", "int"),
		fld("LOD Style", "int"),
	}})
	add(&schema.Struct{Name: "JointPos", Fields: []*schema.Field{
		fld("Orientation", "Quaternion"),
		fld("Position", "Vector3"),
		fld("Length", "float"),
		fld("X Size", "float"),
		fld("Y Size", "float"),
		fld("Z Size", "float"),
	}})
	add(&schema.Struct{Name: "Bone", Fields: []*schema.Field{
		fixed("Name", nameLen),
		fld("Flags", "uint"),
		fld("Num Children", "int"),
		fld("Parent Index", "int"),
		fld("Bone Pos", "JointPos"),
	}})
	add(&schema.Struct{Name: "Influence", Fields: []*schema.Field{
		fld("Weight", "float"),
		fld("Point Index", "int"),
		fld("Bone Index", "int"),
	}})
	add(&schema.Struct{Name: "AnimInfo", Fields: []*schema.Field{
		fixed("Name", nameLen),
		fixed("Group", nameLen),
		fld("Total Bones", "int"),
		fld("Root Include", "int"),
		fld("Key Compression Style", "int"),
		fld("Key Quotum", "int"),
		fld("Key Reduction", "float"),
		fld("Track Time", "float"),
		fld("Anim Rate", "float"),
		fld("Start Bone", "int"),
		fld("First Raw Frame", "int"),
		fld("Num Raw Frames", "int"),
	}})
	add(&schema.Struct{Name: "QuatAnimKey", Fields: []*schema.Field{
		fld("Position", "Vector3"),
		fld("Orientation", "Quaternion"),
		fld("Time", "float"),
	}})

	chunkOf := func(name, display, typ string) {
		add(&schema.Struct{Name: name, Base: chunk, Fields: []*schema.Field{
			arr(display, typ, "Data Count"),
		}})
	}
	chunkOf("PointsChunk", "Points", "Vector3")
	chunkOf("WedgesChunk", "Wedges", "Wedge")
	chunkOf("FacesChunk", "Faces", "Face")
	chunkOf("MaterialsChunk", "Materials", "Material")
	chunkOf("BonesChunk", "Bones", "Bone")
	chunkOf("InfluencesChunk", "Influences", "Influence")
	chunkOf("AnimInfoChunk", "Animations", "AnimInfo")
	chunkOf("RawKeysChunk", "Raw Keys", "QuatAnimKey")

	add(&schema.Struct{Name: "MeshFile", Fields: []*schema.Field{
		fld("Header", "Chunk"),
		fld("Points", "PointsChunk"),
		fld("Wedges", "WedgesChunk"),
		fld("Faces", "FacesChunk"),
		fld("Materials", "MaterialsChunk"),
		fld("Bones", "BonesChunk"),
		fld("Influences", "InfluencesChunk"),
	}})
	add(&schema.Struct{Name: "AnimFile", Fields: []*schema.Field{
		fld("Header", "Chunk"),
		fld("Bones", "BonesChunk"),
		fld("Animations", "AnimInfoChunk"),
		fld("Raw Keys", "RawKeysChunk"),
	}})

	if err := f.Finalize(); err != nil {
		panic(err)
	}
	return f
}
