package object

import (
	"fmt"
	"math"

	"github.com/relicdev/relic/pkg/binio"
)

// Link is a block index on the wire that becomes an object relation
// after the fix-up pass. A strong link owns its target for traversal; a
// weak one only closes a cycle and is left out of Refs. Index -1 is the
// null link.
type Link struct {
	weak   bool
	index  int32
	target *Instance
}

// NewLink returns a null link.
func NewLink(weak bool) *Link { return &Link{weak: weak, index: -1} }

// Weak reports whether the link is a back-pointer.
func (x *Link) Weak() bool { return x.weak }

// Index returns the stored block index; -1 means null.
func (x *Link) Index() int32 { return x.index }

// Target returns the resolved instance, nil until FixLinks ran or for a
// null link.
func (x *Link) Target() *Instance { return x.target }

func (x *Link) Get() any { return int64(x.index) }

// Set assigns a block index; nil clears the link.
func (x *Link) Set(v any) error {
	if v == nil {
		x.index = -1
		x.target = nil
		return nil
	}
	var n int64
	switch t := v.(type) {
	case int:
		n = int64(t)
	case int32:
		n = int64(t)
	case int64:
		n = t
	default:
		return fmt.Errorf("%w: cannot assign %T to a link", ErrValueType, v)
	}
	if n < -1 || n > math.MaxInt32 {
		return fmt.Errorf("%w: %d is not a block index", ErrValueRange, n)
	}
	x.index = int32(n)
	x.target = nil
	return nil
}

func (x *Link) Read(r *binio.Reader, _ *Context) error {
	v, err := r.ReadI32()
	if err != nil {
		return err
	}
	x.index = v
	x.target = nil
	return nil
}

func (x *Link) Write(w *binio.Writer, _ *Context) error { return w.WriteI32(x.index) }

func (x *Link) Size(_ *Context) (int64, error) { return 4, nil }

func (x *Link) Hash(_ *Context) (uint64, error) {
	// The index, not the target: hashing through links would recurse
	// cyclic graphs forever.
	return uint64(uint32(x.index)), nil
}

// fix resolves the stored index against the context's block table.
func (x *Link) fix(ctx *Context) error {
	if x.index < 0 {
		x.target = nil
		return nil
	}
	if int(x.index) >= len(ctx.Blocks) {
		return fmt.Errorf("%w: link index %d outside block table of %d",
			ErrStreamFormat, x.index, len(ctx.Blocks))
	}
	x.target = ctx.Blocks[x.index]
	return nil
}
