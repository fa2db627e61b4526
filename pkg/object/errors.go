package object

import "errors"

var (
	// ErrValueRange flags an assignment or computed length outside the
	// target's domain.
	ErrValueRange = errors.New("value out of range")

	// ErrValueType flags an assignment of an incompatible kind, or an
	// operation the slot cannot perform.
	ErrValueType = errors.New("incompatible value")

	// ErrStreamFormat flags structurally bad wire data: an implausible
	// count, an unterminated string, trailing bytes after a consume-all
	// read, a bad signature, a link index outside the block table.
	ErrStreamFormat = errors.New("malformed stream")
)
