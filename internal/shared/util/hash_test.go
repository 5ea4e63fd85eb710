package util

import "testing"

func TestContentHashStable(t *testing.T) {
	got := ContentHash("resume text", "job description")
	if got != ContentHash("resume text", "job description") {
		t.Fatalf("expected stable hash, got %s", got)
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
}

func TestContentHashOrderSensitive(t *testing.T) {
	ab := ContentHash("aaa", "bbb")
	ba := ContentHash("bbb", "aaa")
	if ab == ba {
		t.Fatalf("expected hash(A,B) != hash(B,A), both %s", ab)
	}
}

func TestContentHashBoundaryShiftDistinct(t *testing.T) {
	// Moving bytes across the input boundary must change the fingerprint:
	// ("ab", "c") and ("a", "bc") concatenate identically.
	cases := []struct {
		resumeA, jdA string
		resumeB, jdB string
	}{
		{"ab", "c", "a", "bc"},
		{"resume ends with pipe|", "job description", "resume ends with pipe", "|job description"},
		{"x|", "|y", "x||", "y"},
		{"", "whole text", "whole text", ""},
	}
	for _, tc := range cases {
		a := ContentHash(tc.resumeA, tc.jdA)
		b := ContentHash(tc.resumeB, tc.jdB)
		if a == b {
			t.Fatalf("boundary shift collided: hash(%q,%q) == hash(%q,%q) == %s",
				tc.resumeA, tc.jdA, tc.resumeB, tc.jdB, a)
		}
	}
}

func TestContentHashEmptyInputs(t *testing.T) {
	got := ContentHash("", "")
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters for empty inputs, got %d", len(got))
	}
}

func TestIsContentHash(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{ContentHash("a", "b"), true},
		{"", false},
		{"deadbeef", false},
		{ContentHash("a", "b")[:63] + "G", false},
		{ContentHash("a", "b") + "0", false},
	}
	for _, tc := range cases {
		if got := IsContentHash(tc.in); got != tc.want {
			t.Fatalf("IsContentHash(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
