//go:build !integration

package usecase_test

import (
	"strings"
	"testing"

	"subscription-activation/internal/usecase"
)

func TestGenerateCode(t *testing.T) {
	t.Run("should produce codes of the requested length", func(t *testing.T) {
		for _, n := range []int{8, 12, 16, 24} {
			code, err := usecase.GenerateCode(n)
			if err != nil {
				t.Fatalf("expected no error, but got: %v", err)
			}
			if len(code) != n {
				t.Errorf("expected length %d, but got %d (%q)", n, len(code), code)
			}
		}
	})

	t.Run("should fall back to the default length", func(t *testing.T) {
		code, err := usecase.GenerateCode(0)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if len(code) != usecase.DefaultCodeLength {
			t.Errorf("expected default length %d, but got %d", usecase.DefaultCodeLength, len(code))
		}
	})

	t.Run("should only use URL-safe uppercase characters", func(t *testing.T) {
		const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
		for i := 0; i < 1000; i++ {
			code, err := usecase.GenerateCode(12)
			if err != nil {
				t.Fatalf("expected no error, but got: %v", err)
			}
			for _, c := range code {
				if !strings.ContainsRune(alphabet, c) {
					t.Fatalf("code %q contains character %q outside the alphabet", code, c)
				}
			}
		}
	})

	t.Run("should not collide over a large batch", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping 100k-code batch in short mode")
		}
		seen := make(map[string]struct{}, 100_000)
		for i := 0; i < 100_000; i++ {
			code, err := usecase.GenerateCode(12)
			if err != nil {
				t.Fatalf("expected no error, but got: %v", err)
			}
			if _, dup := seen[code]; dup {
				t.Fatalf("collision after %d codes: %q", i, code)
			}
			seen[code] = struct{}{}
		}
	})
}

func TestNormalizeCode(t *testing.T) {
	cases := map[string]string{
		"ab12cd34ef56":    "AB12CD34EF56",
		"  AB12CD34EF56 ": "AB12CD34EF56",
		"":                "",
	}
	for in, want := range cases {
		if got := usecase.NormalizeCode(in); got != want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", in, got, want)
		}
	}
}
