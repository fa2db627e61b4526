package object

import (
	"fmt"

	"github.com/relicdev/relic/pkg/binio"
	"github.com/relicdev/relic/pkg/schema"
)

// MaxArrayElems caps any computed array dimension product; a larger
// count is treated as a corrupt or hostile length field.
const MaxArrayElems = 1 << 24

// Array is a one- or two-dimensional sequence slot. Its dimensions come
// from the declaring field's length expressions, which the owning
// instance evaluates against itself before reading or writing; elements
// are constructed on resize and laid out row-major.
type Array struct {
	mk     func() (Value, error)
	twoDim bool
	cols   int64
	elems  []Value
}

func newArray(f *schema.Field, mk func() (Value, error)) *Array {
	return &Array{mk: mk, twoDim: f.Len2 != nil}
}

// Len returns the total element count across all rows.
func (a *Array) Len() int { return len(a.elems) }

// Cols returns the row length of a two-dimensional array, 0 otherwise.
func (a *Array) Cols() int64 { return a.cols }

// At returns the i-th element in row-major order.
func (a *Array) At(i int) Value { return a.elems[i] }

// At2 returns the element at row i, column j of a two-dimensional
// array.
func (a *Array) At2(i, j int) Value { return a.elems[int64(i)*a.cols+int64(j)] }

// total validates the computed dimensions and returns the element
// count. Dimensions are capped individually before multiplying, so the
// product cannot overflow.
func (a *Array) total(n1, n2 int64) (int64, error) {
	if n1 < 0 || n1 > MaxArrayElems || (a.twoDim && (n2 < 0 || n2 > MaxArrayElems)) {
		return 0, fmt.Errorf("%w: array dimensions %d x %d exceed cap %d",
			ErrValueRange, n1, n2, MaxArrayElems)
	}
	total := n1
	if a.twoDim {
		total = n1 * n2
		if total > MaxArrayElems {
			return 0, fmt.Errorf("%w: array of %d elements exceeds cap %d",
				ErrValueRange, total, MaxArrayElems)
		}
	}
	return total, nil
}

// Reshape grows or shrinks the array to the given dimensions,
// constructing new elements as needed. n2 is ignored for
// one-dimensional arrays.
func (a *Array) Reshape(n1, n2 int64) error {
	total, err := a.total(n1, n2)
	if err != nil {
		return err
	}
	if a.twoDim {
		a.cols = n2
	}
	if int64(len(a.elems)) > total {
		a.elems = a.elems[:total]
		return nil
	}
	for int64(len(a.elems)) < total {
		e, err := a.mk()
		if err != nil {
			return err
		}
		a.elems = append(a.elems, e)
	}
	return nil
}

// requireLen checks that the current shape matches the computed
// dimensions; a mismatch means the instance's count fields and its
// array content disagree.
func (a *Array) requireLen(n1, n2 int64) error {
	total, err := a.total(n1, n2)
	if err != nil {
		return err
	}
	if a.twoDim && a.cols != n2 {
		return fmt.Errorf("%w: array rows of %d elements, length computes %d",
			ErrValueRange, a.cols, n2)
	}
	if int64(len(a.elems)) != total {
		return fmt.Errorf("%w: array holds %d elements, length computes %d",
			ErrValueRange, len(a.elems), total)
	}
	return nil
}

func (a *Array) Get() any {
	if !a.twoDim {
		out := make([]any, len(a.elems))
		for i, e := range a.elems {
			out[i] = e.Get()
		}
		return out
	}
	var rows []any
	if a.cols > 0 {
		rows = make([]any, 0, int64(len(a.elems))/a.cols)
	}
	for i := int64(0); i+a.cols <= int64(len(a.elems)); i += a.cols {
		row := make([]any, a.cols)
		for j := int64(0); j < a.cols; j++ {
			row[j] = a.elems[i+j].Get()
		}
		rows = append(rows, row)
	}
	return rows
}

// Set is not defined for arrays; assign through the elements after a
// Reshape.
func (a *Array) Set(v any) error {
	return fmt.Errorf("%w: cannot assign an array wholesale", ErrValueType)
}

func (a *Array) Read(r *binio.Reader, ctx *Context) error {
	for i, e := range a.elems {
		if err := e.Read(r, ctx); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return nil
}

func (a *Array) Write(w *binio.Writer, ctx *Context) error {
	for i, e := range a.elems {
		if err := e.Write(w, ctx); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return nil
}

func (a *Array) Size(ctx *Context) (int64, error) {
	var total int64
	for i, e := range a.elems {
		n, err := e.Size(ctx)
		if err != nil {
			return 0, fmt.Errorf("[%d]: %w", i, err)
		}
		total += n
	}
	return total, nil
}

func (a *Array) Hash(ctx *Context) (uint64, error) {
	h := newHashFold()
	for i, e := range a.elems {
		v, err := e.Hash(ctx)
		if err != nil {
			return 0, fmt.Errorf("[%d]: %w", i, err)
		}
		h.add(v)
	}
	return h.sum(), nil
}
