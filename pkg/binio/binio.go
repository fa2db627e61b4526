// Package binio provides byte-order-aware stream readers and writers
// for versioned binary asset files.
//
// Readers track their absolute offset and, when the total stream size is
// known, reject reads past the end early instead of relying on the
// underlying stream to fail. Writers mirror the reader surface so codecs
// can be written symmetrically.
package binio

import (
	"encoding/binary"
	"io"
)

// ByteOrder selects the byte order for multi-byte reads and writes.
// A small number of wire fields are order-pinned and bypass it.
type ByteOrder = binary.ByteOrder

var (
	LittleEndian = binary.LittleEndian
	BigEndian    = binary.BigEndian
)

func writeFull(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}
