package toaster

import (
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/sys/unix"

	"github.com/relicdev/relic/pkg/object"
)

// open maps a file read-only for zero-copy parsing, falling back to a
// plain read where mmap is unavailable. The release func unmaps or
// drops the data and must be called exactly once.
func open(path string) ([]byte, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	size64 := stat.Size()
	if size64 < 0 || size64 > int64(math.MaxInt) {
		// a []byte cannot address the whole file on this platform
		return nil, nil, fmt.Errorf("%w: file of %d bytes", object.ErrStreamFormat, size64)
	}
	size := int(size64)
	if size == 0 {
		return []byte{}, func() {}, nil
	}

	data, err := unix.Mmap(
		int(f.Fd()),
		0,
		size,
		unix.PROT_READ,
		unix.MAP_SHARED,
	)
	if err == nil {
		return data, func() { _ = unix.Munmap(data) }, nil
	}

	data, err = readAllAt(f, size)
	if err != nil {
		return nil, nil, err
	}
	return data, func() {}, nil
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}
