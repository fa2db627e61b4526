package schema

import "testing"

func TestParseVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Version
	}{
		{"4.0.0.2", 0x04000002},
		{"20.2.0.7", 0x14020007},
		{"10.0.1.0", 0x0A000100},
		{"1.2", 0x01020000},
		{"3.1", 0x03010000},
		{"3", 0x03000000},
		{"255.255.255.255", 0xFFFFFFFF},
		{"0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got := ParseVersion(tt.in)
			if got != tt.want {
				t.Fatalf("ParseVersion(%q) = %#x, want %#x", tt.in, int64(got), int64(tt.want))
			}
		})
	}
}

func TestParseVersionAliases(t *testing.T) {
	t.Parallel()

	if got := ParseVersion("3.03"); got != 0x03000300 {
		t.Fatalf("3.03 alias = %#x, want 0x03000300", int64(got))
	}
	if got := ParseVersion("NS"); got != 0x0A010000 {
		t.Fatalf("NS alias = %#x, want 0x0A010000", int64(got))
	}
	// The alias must not collide with the literal reading of "3.3".
	if ParseVersion("3.03") == ParseVersion("3.3") {
		t.Fatalf("3.03 must stay distinct from 3.3")
	}
}

func TestParseVersionMalformed(t *testing.T) {
	t.Parallel()

	tests := []string{
		"",
		"x",
		"3a",
		"4.0.0.2.1",
		"4..2",
		"256.0",
		"-1.0",
		"4.0.0.beta",
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			t.Parallel()
			got := ParseVersion(in)
			if got != VersionUnsupported {
				t.Fatalf("ParseVersion(%q) = %#x, want unsupported", in, int64(got))
			}
			if got.Valid() {
				t.Fatalf("unsupported version reports Valid")
			}
		})
	}
}

func TestVersionOrdering(t *testing.T) {
	t.Parallel()

	// Packed versions compare in release order as plain integers.
	seq := []string{"2.3", "3.0", "3.03", "3.1", "4.0.0.2", "10.0.1.0", "20.2.0.7"}
	for i := 1; i < len(seq); i++ {
		lo, hi := ParseVersion(seq[i-1]), ParseVersion(seq[i])
		if lo >= hi {
			t.Fatalf("%s (%#x) not below %s (%#x)", seq[i-1], int64(lo), seq[i], int64(hi))
		}
	}

	// The unsupported marker sorts below every real version.
	if VersionUnsupported >= ParseVersion("0") {
		t.Fatalf("unsupported marker must sort below version 0")
	}
}

func TestVersionString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		v    Version
		want string
	}{
		{0x04000002, "4.0.0.2"},
		{0x14020007, "20.2.0.7"},
		{0x03000300, "3.0.3.0"},
		{0, "0.0.0.0"},
		{VersionUnsupported, "unsupported"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Fatalf("Version(%#x).String() = %q, want %q", int64(tt.v), got, tt.want)
		}
	}
}
