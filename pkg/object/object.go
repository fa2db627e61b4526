// Package object is the runtime half of the engine: it interprets the
// immutable descriptors of pkg/schema as mutable values that read and
// write the wire format, measure and hash themselves, and expose their
// outbound links for graph fix-up.
//
// One Context is created per top-level operation and threaded through
// the recursion. Instances and contexts belong to a single goroutine;
// the schema they interpret is shared freely.
package object

import (
	"encoding/binary"
	"hash"
	"hash/fnv"

	"github.com/relicdev/relic/pkg/binio"
	"github.com/relicdev/relic/pkg/schema"
)

// Context carries the per-call runtime state: byte order, stream
// version and variant, the argument resolved by the enclosing field,
// and the root block table that links resolve against. It is never
// persisted across calls.
type Context struct {
	Order      binio.ByteOrder
	Version    schema.Version
	HasVersion bool
	Variant    int64
	HasVariant bool
	Arg        int64
	Blocks     []*Instance
}

// NewContext returns a context with the format's default byte order and
// no version information.
func NewContext(f *schema.Format) *Context {
	return &Context{Order: f.Order}
}

// WithVersion returns a copy of ctx pinned to a concrete version and
// variant.
func (c *Context) WithVersion(v schema.Version, variant int64) *Context {
	cp := *c
	cp.Version = v
	cp.HasVersion = true
	cp.Variant = variant
	cp.HasVariant = true
	return &cp
}

func (c *Context) withArg(arg int64) *Context {
	cp := *c
	cp.Arg = arg
	return &cp
}

// Value is the contract every slot of an instance satisfies. Read and
// Write move the value over the wire in the stream's byte order; Size
// is the exact number of bytes Write would produce; Hash is a
// deterministic digest of the current content. Get and Set exchange the
// value with ordinary Go data, range-checked.
type Value interface {
	Read(r *binio.Reader, ctx *Context) error
	Write(w *binio.Writer, ctx *Context) error
	Size(ctx *Context) (int64, error)
	Hash(ctx *Context) (uint64, error)
	Get() any
	Set(v any) error
}

func hashBytes(b []byte) uint64 {
	h := fnv.New64a()
	h.Write(b)
	return h.Sum64()
}

// hashFold accumulates per-field digests order-sensitively.
type hashFold struct {
	h   hash.Hash64
	buf [8]byte
}

func newHashFold() *hashFold { return &hashFold{h: fnv.New64a()} }

func (f *hashFold) add(v uint64) {
	binary.LittleEndian.PutUint64(f.buf[:], v)
	f.h.Write(f.buf[:])
}

func (f *hashFold) sum() uint64 { return f.h.Sum64() }
