package gen_test

import (
	"testing"

	"reelbatch/pkg/gen"

	"github.com/google/uuid"
)

func TestUUIDv5(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
	}{
		{name: "input and format", a: "https://example.com/a\nhttps://example.com/b", b: "zip"},
		{name: "empty parts", a: "", b: ""},
		{name: "separator inside input", a: "a|b", b: "c"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := gen.UUIDv5(tc.a, tc.b)

			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("UUIDv5(%q, %q) = %q, not a valid UUID: %v", tc.a, tc.b, got, err)
			}

			if again := gen.UUIDv5(tc.a, tc.b); again != got {
				t.Errorf("UUIDv5 not deterministic: %q vs %q", got, again)
			}
		})
	}
}

func TestUUIDv5Distinct(t *testing.T) {
	a := gen.UUIDv5("input", "zip")
	b := gen.UUIDv5("input", "tar.xz")

	if a == b {
		t.Errorf("different formats must yield different ids, both %q", a)
	}
}
