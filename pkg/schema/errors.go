package schema

import "errors"

// ErrSchema marks a malformed or inconsistent schema: a missing type, a
// field re-declared with a diverging type, an unresolved forward
// declaration, overlapping bitfield members. Schema errors are fatal at
// load time, before any instance exists.
var ErrSchema = errors.New("invalid schema")
