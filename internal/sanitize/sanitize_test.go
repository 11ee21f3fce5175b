package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestMatcherCensor(t *testing.T) {
	m := NewMatcher([]string{"darn", "heck"})

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"clean", "goose", "goose"},
		{"plain", "darn", "****"},
		{"case insensitive", "DaRn it", "**** it"},
		{"leetspeak", "d4rn", "****"},
		{"separators", "d-a_r.n", "*******"},
		{"repeats", "daaarn", "******"},
		{"multiple spans", "darn and h3ck", "**** and ****"},
		{"multibyte prefix", "ünd darn ü", "ünd **** ü"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Censor(tt.in); got != tt.want {
				t.Errorf("Censor(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMatchesSortedByStartDescending(t *testing.T) {
	m := NewMatcher([]string{"darn"})
	spans := m.Matches("darn x darn y darn")
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %v", spans)
	}
	for i := 1; i < len(spans); i++ {
		if spans[i-1].Start < spans[i].Start {
			t.Fatalf("spans not descending: %v", spans)
		}
	}
	if spans[0] != (Span{Start: 14, End: 18}) {
		t.Fatalf("unexpected last span: %v", spans[0])
	}
}

func TestMatcherAllow(t *testing.T) {
	m := NewMatcher([]string{"cock", "dick"}).Allow("peacock", "Dickens")

	tests := []struct {
		in   string
		want string
	}{
		{"Peacock", "Peacock"},
		{"DICKENS", "DICKENS"},
		{"peacock cock", "peacock ****"},
		{"d1ck", "****"},
	}
	for _, tt := range tests {
		if got := m.Censor(tt.in); got != tt.want {
			t.Errorf("Censor(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefaultMatcherKeepsCleanNames(t *testing.T) {
	for _, in := range []string{"Peacock", "Dickens", "Hancock", "Scunthorpe", "Dlck"} {
		if got := std.Censor(in); got != in {
			t.Errorf("Censor(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestNameTrimsAndTruncates(t *testing.T) {
	if got := Name("   alice  "); got != "alice" {
		t.Errorf("expected trimmed name, got %q", got)
	}
	long := strings.Repeat("a", 30)
	got := Name(long)
	if utf8.RuneCountInString(got) != MaxNameLength {
		t.Errorf("expected %d runes, got %d (%q)", MaxNameLength, utf8.RuneCountInString(got), got)
	}
	if Name("   ") != "" {
		t.Error("blank names should sanitize to empty")
	}
}

func TestNameCensorsProfanity(t *testing.T) {
	for _, in := range []string{"fuck", "sh1t head", "b-i-t-c-h"} {
		got := Name(in)
		if utf8.RuneCountInString(got) != utf8.RuneCountInString(in) {
			t.Errorf("Name(%q) = %q changed length", in, got)
		}
		if !strings.Contains(got, "*") {
			t.Errorf("Name(%q) = %q left profanity unmasked", in, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo wörld", 5); got != "héllo" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("hi", 5); got != "hi" {
		t.Errorf("got %q", got)
	}
}
