package toaster

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/relicdev/relic/pkg/formats/psk"
	"github.com/relicdev/relic/pkg/object"
)

func meshFixture(t *testing.T) []byte {
	t.Helper()
	f, err := psk.New(psk.TypeMesh)
	if err != nil {
		t.Fatalf("new mesh: %v", err)
	}
	if err := f.Resize("points", 1); err != nil {
		t.Fatalf("resize points: %v", err)
	}
	if err := f.Resize("materials", 1); err != nil {
		t.Fatalf("resize materials: %v", err)
	}
	mats, _ := f.Section("materials")
	mv, _ := mats.Field("materials")
	mat := mv.(*object.Array).At(0).(*object.Instance)
	if err := mat.SetField("material_name", "skin"); err != nil {
		t.Fatalf("set material name: %v", err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write mesh: %v", err)
	}
	return buf.Bytes()
}

func animFixture(t *testing.T) []byte {
	t.Helper()
	f, err := psk.New(psk.TypeAnim)
	if err != nil {
		t.Fatalf("new anim: %v", err)
	}
	if err := f.Resize("animations", 1); err != nil {
		t.Fatalf("resize animations: %v", err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write anim: %v", err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestRunScan(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.psk"), meshFixture(t))
	writeFile(t, filepath.Join(dir, "sub", "b.psa"), animFixture(t))
	writeFile(t, filepath.Join(dir, "c.psk"), []byte("ACTRHEAD but far too short"))
	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("not an asset"))

	var out bytes.Buffer
	stats, err := Run(context.Background(), "scan", []string{dir}, Options{
		Workers: 2,
		Out:     &out,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Matched != 3 || stats.Done != 2 || stats.Failed != 1 {
		t.Fatalf("stats: got %+v, want matched=3 done=2 failed=1", *stats)
	}
	report := out.String()
	if !strings.Contains(report, "points 1 records") {
		t.Fatalf("report missing mesh sections:\n%s", report)
	}
	if !strings.Contains(report, "animations 1 records") {
		t.Fatalf("report missing anim sections:\n%s", report)
	}
	if strings.Contains(report, "c.psk") {
		t.Fatalf("corrupt file should not report:\n%s", report)
	}
}

func TestRunRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.psk"), meshFixture(t))
	writeFile(t, filepath.Join(dir, "b.psa"), animFixture(t))

	var out bytes.Buffer
	stats, err := Run(context.Background(), "roundtrip", []string{dir}, Options{Out: &out})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Failed != 0 || stats.Done != 2 {
		t.Fatalf("stats: got %+v, want done=2 failed=0", *stats)
	}
	if !strings.Contains(out.String(), "roundtrip ok") {
		t.Fatalf("unexpected report:\n%s", out.String())
	}
}

func TestRunStrings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.psk")
	writeFile(t, path, meshFixture(t))

	var out bytes.Buffer
	stats, err := Run(context.Background(), "strings", []string{path}, Options{Out: &out})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Matched != 1 || stats.Done != 1 {
		t.Fatalf("stats: got %+v, want matched=1 done=1", *stats)
	}
	if !strings.Contains(out.String(), path+": skin") {
		t.Fatalf("report missing material name:\n%s", out.String())
	}
}

func TestRunHash(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.psk"), meshFixture(t))
	writeFile(t, filepath.Join(dir, "b.psk"), meshFixture(t))

	var out bytes.Buffer
	if _, err := Run(context.Background(), "hash", []string{dir}, Options{Out: &out}); err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 hash lines, got %d:\n%s", len(lines), out.String())
	}
	h0 := lines[0][strings.LastIndex(lines[0], " ")+1:]
	h1 := lines[1][strings.LastIndex(lines[1], " ")+1:]
	if h0 != h1 {
		t.Fatalf("identical files should hash alike: %s vs %s", h0, h1)
	}
}

func TestRunUnknownTransform(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), "polish", []string{t.TempDir()}, Options{})
	if !errors.Is(err, ErrUnknownTransform) {
		t.Fatalf("expected ErrUnknownTransform, got %v", err)
	}
}

func TestRunCanceled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.psk"), meshFixture(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, "scan", []string{dir}, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLookupAndNames(t *testing.T) {
	t.Parallel()

	names := Names()
	if len(names) != 4 {
		t.Fatalf("transforms: got %v, want 4 entries", names)
	}
	for _, name := range names {
		tr, ok := Lookup(name)
		if !ok || tr.Name != name || tr.Apply == nil {
			t.Fatalf("lookup %q failed", name)
		}
	}
	if _, ok := Lookup("polish"); ok {
		t.Fatalf("lookup of unknown name should fail")
	}
}
