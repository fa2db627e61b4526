// Package toaster runs batch transforms over directory trees of format
// files. Each matching file is opened, parsed and handed to the named
// transform; a file that fails is logged and counted, never fatal, so
// one corrupt asset cannot sink a batch.
package toaster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/relicdev/relic/internal/logger"
	"github.com/relicdev/relic/pkg/formats/psk"
	"github.com/relicdev/relic/pkg/object"
)

var ErrUnknownTransform = errors.New("unknown transform")

// Transform is one named batch operation over a parsed file. Apply
// receives the raw source bytes alongside the parsed file and returns
// its report lines.
type Transform struct {
	Name  string
	Usage string
	Apply func(data []byte, f *psk.File) ([]string, error)
}

var transforms = []Transform{
	{
		Name:  "scan",
		Usage: "parse and report per-section record counts",
		Apply: scanTransform,
	},
	{
		Name:  "hash",
		Usage: "digest file content",
		Apply: hashTransform,
	},
	{
		Name:  "strings",
		Usage: "list the strings a file carries",
		Apply: stringsTransform,
	},
	{
		Name:  "roundtrip",
		Usage: "re-encode and compare byte for byte",
		Apply: roundtripTransform,
	},
}

// Lookup returns the named transform.
func Lookup(name string) (Transform, bool) {
	for _, t := range transforms {
		if t.Name == name {
			return t, true
		}
	}
	return Transform{}, false
}

// Names lists the available transforms in registration order.
func Names() []string {
	out := make([]string, len(transforms))
	for i, t := range transforms {
		out[i] = t.Name
	}
	return out
}

// Options configure a batch run.
type Options struct {
	Workers int           // worker count, <=0 means GOMAXPROCS
	Log     logger.Logger // nil means logger.Default
	Out     io.Writer     // report destination, nil discards
}

// Stats is the aggregate outcome of one run.
type Stats struct {
	Matched int
	Done    int
	Failed  int
}

type result struct {
	path  string
	lines []string
	err   error
}

// Run walks roots, applies the named transform to every file the
// catalog matches, and returns aggregate counts. With more than one
// worker, files run in parallel and report in completion order.
func Run(ctx context.Context, name string, roots []string, opts Options) (*Stats, error) {
	t, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransform, name)
	}
	log := opts.Log
	if log == nil {
		log = logger.Default()
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	paths, err := collect(ctx, roots)
	if err != nil {
		return nil, err
	}
	stats := &Stats{Matched: len(paths)}
	if len(paths) == 0 {
		return stats, ctx.Err()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	tasks := make(chan string)
	results := make(chan result, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range tasks {
				lines, err := apply(t, path)
				results <- result{path: path, lines: lines, err: err}
			}
		}()
	}
	go func() {
		defer close(tasks)
		for _, p := range paths {
			select {
			case tasks <- p:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		if res.err != nil {
			stats.Failed++
			log.Error("transform failed", "transform", t.Name, "path", res.path, "error", res.err)
			continue
		}
		stats.Done++
		log.Debug("transform ok", "transform", t.Name, "path", res.path)
		for _, line := range res.lines {
			_, _ = fmt.Fprintf(out, "%s: %s\n", res.path, line)
		}
	}
	return stats, ctx.Err()
}

// collect gathers matching file paths under the given roots. A root
// that is itself a file is taken as-is when it matches.
func collect(ctx context.Context, roots []string) ([]string, error) {
	var paths []string
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if psk.Matches(root) {
				paths = append(paths, root)
			}
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if !d.IsDir() && psk.Matches(path) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return paths, nil
}

func apply(t Transform, path string) ([]string, error) {
	data, release, err := open(path)
	if err != nil {
		return nil, err
	}
	defer release()

	f, err := psk.Read(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return t.Apply(data, f)
}

func scanTransform(data []byte, f *psk.File) ([]string, error) {
	lines := []string{fmt.Sprintf("%s %d bytes", f.Type, len(data))}
	for _, name := range f.SectionNames() {
		sec, ok := f.Section(name)
		if !ok {
			continue
		}
		var count int64
		if v, ok := sec.Field("data_count"); ok {
			if n, ok := v.Get().(int64); ok {
				count = n
			}
		}
		lines = append(lines, fmt.Sprintf("%s %d records", name, count))
	}
	return lines, nil
}

func hashTransform(_ []byte, f *psk.File) ([]string, error) {
	h, err := f.Hash()
	if err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("%016x", h)}, nil
}

func stringsTransform(_ []byte, f *psk.File) ([]string, error) {
	return f.Strings()
}

func roundtripTransform(data []byte, f *psk.File) ([]string, error) {
	var buf bytes.Buffer
	buf.Grow(len(data))
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	if !bytes.Equal(buf.Bytes(), data) {
		return nil, fmt.Errorf("%w: re-encoded stream differs from source", object.ErrStreamFormat)
	}
	return []string{fmt.Sprintf("roundtrip ok (%d bytes)", len(data))}, nil
}
