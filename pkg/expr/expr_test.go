package expr

import (
	"errors"
	"strings"
	"testing"
)

type mapEnv map[string]int64

func (m mapEnv) Lookup(name string) (int64, error) {
	v, ok := m[name]
	if !ok {
		return 0, errors.New("unresolved identifier: " + name)
	}
	return v, nil
}

func TestEvalArithmetic(t *testing.T) {
	t.Parallel()

	cases := []struct {
		src  string
		want int64
	}{
		{"1 + 2", 3},
		{"2 * 3 + 4", 10},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"7 / 2", 3},
		{"7 % 2", 1},
		{"-3 + 5", 2},
		{"1 << 4", 16},
		{"256 >> 4", 16},
		{"0x10", 16},
		{"0xFF & 0x0F", 15},
		{"1 | 2", 3},
		{"5 ^ 1", 4},
		{"!0", 1},
		{"!7", 0},
	}
	for _, tc := range cases {
		e, err := Compile(tc.src, nil)
		if err != nil {
			t.Fatalf("compile %q: %v", tc.src, err)
		}
		got, err := e.Eval(nil)
		if err != nil {
			t.Fatalf("eval %q: %v", tc.src, err)
		}
		if got != tc.want {
			t.Fatalf("eval %q: got %d want %d", tc.src, got, tc.want)
		}
	}
}

func TestEvalComparisons(t *testing.T) {
	t.Parallel()

	env := mapEnv{"x": 3, "y": 7}
	cases := []struct {
		src  string
		want bool
	}{
		{"x == 3", true},
		{"x != 3", false},
		{"x < y", true},
		{"x >= y", false},
		{"x == 3 && y == 7", true},
		{"x == 4 || y == 7", true},
		{"x == 4 && y == 7", false},
	}
	for _, tc := range cases {
		e, err := Compile(tc.src, nil)
		if err != nil {
			t.Fatalf("compile %q: %v", tc.src, err)
		}
		got, err := e.EvalBool(env)
		if err != nil {
			t.Fatalf("eval %q: %v", tc.src, err)
		}
		if got != tc.want {
			t.Fatalf("eval %q: got %v want %v", tc.src, got, tc.want)
		}
	}
}

func TestBitwiseBindsTighterThanComparison(t *testing.T) {
	t.Parallel()

	e := MustCompile("flags & 2 == 2", nil)
	got, err := e.EvalBool(mapEnv{"flags": 6})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !got {
		t.Fatalf("flags & 2 == 2 with flags=6: got false want true")
	}
}

func TestIdentifierNormalization(t *testing.T) {
	t.Parallel()

	norm := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(s), " ", "_")
	}
	e, err := Compile("Num Vertices > 0", norm)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got, err := e.EvalBool(mapEnv{"num_vertices": 12})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !got {
		t.Fatalf("normalized identifier should resolve")
	}
}

func TestShortCircuitGuardsUnresolved(t *testing.T) {
	t.Parallel()

	env := mapEnv{"has_data": 0}
	e := MustCompile("has_data && data_count > 0", nil)
	got, err := e.EvalBool(env)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if got {
		t.Fatalf("guarded expression: got true want false")
	}

	// Without the guard the missing identifier is an error.
	bare := MustCompile("data_count > 0", nil)
	if _, err := bare.EvalBool(env); err == nil {
		t.Fatalf("expected unresolved identifier error")
	}
}

func TestUnresolvedIdentifier(t *testing.T) {
	t.Parallel()

	e := MustCompile("missing + 1", nil)
	if _, err := e.Eval(mapEnv{}); err == nil {
		t.Fatalf("expected error for missing identifier")
	}
	if _, err := e.Eval(nil); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("nil env: got %v want ErrUnresolved", err)
	}
}

func TestDivisionByZero(t *testing.T) {
	t.Parallel()

	for _, src := range []string{"1 / 0", "1 % 0"} {
		e := MustCompile(src, nil)
		if _, err := e.Eval(nil); !errors.Is(err, ErrEval) {
			t.Fatalf("%q: got %v want ErrEval", src, err)
		}
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	for _, src := range []string{"", "1 +", "(1 + 2", "1 ~ 2", "1 2"} {
		if _, err := Compile(src, nil); !errors.Is(err, ErrSyntax) {
			t.Fatalf("compile %q: got %v want ErrSyntax", src, err)
		}
	}
}

func TestStringRendersCanonicalForm(t *testing.T) {
	t.Parallel()

	e := MustCompile("a+b*c", nil)
	if got := e.String(); got != "(a + (b * c))" {
		t.Fatalf("render: got %q", got)
	}
	if e.Source() != "a+b*c" {
		t.Fatalf("source: got %q", e.Source())
	}
}
