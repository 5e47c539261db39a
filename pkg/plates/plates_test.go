package plates

import (
	"testing"

	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ghjk12", "GHJK12"},
		{" GH-JK-12 ", "GHJK12"},
		{"gh jk.12", "GHJK12"},
		{"AB1234", "AB1234"},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeRejects(t *testing.T) {
	for _, in := range []string{"", "ab1", "ABCDEFGHI", "GH_JK12", "GHJK1ñ"} {
		if _, err := Normalize(in); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("Normalize(%q): expected validation error, got %v", in, err)
		}
	}
}
