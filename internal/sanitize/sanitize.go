// internal/sanitize/sanitize.go
//
// Display-name cleanup for leaderboard submissions.
// Pipeline (Name):
//   1. Trim surrounding whitespace.
//   2. Dictionary filter (github.com/TwiN/go-away).
//   3. Pattern matcher: leetspeak/separator tolerant regexps locate every
//      offending span; spans inside an allowed word (Peacock, Dickens) are
//      kept, the rest are replaced right to left with an equal-length run
//      of '*'.
//   4. Truncate to MaxNameLength runes.
//
// Best effort only. It reduces casual profanity and is not a security boundary.

package sanitize

import (
	"regexp"
	"sort"
	"strings"

	goaway "github.com/TwiN/go-away"
)

// MaxNameLength bounds a sanitized display name, in runes.
const MaxNameLength = 20

// leet maps a letter to the characters commonly substituted for it.
var leet = map[rune]string{
	'a': "a@4",
	'b': "b8",
	'e': "e3",
	'g': "g69",
	'i': "i1!|",
	'l': "l1|",
	'o': "o0",
	's': "s5$",
	't': "t7+",
	'z': "z2",
}

// defaultWords seeds the package-level matcher.
var defaultWords = []string{
	"asshole", "bastard", "bitch", "cock", "cunt", "dick", "fag", "fuck",
	"nigga", "nigger", "penis", "pussy", "retard", "shit", "slut", "twat",
	"wank", "whore",
}

// defaultAllowed are ordinary words and names that contain a listed word.
var defaultAllowed = []string{
	"babcock", "cockburn", "cockpit", "cocktail", "dickens", "dickinson",
	"dickson", "hancock", "hitchcock", "peacock", "penistone", "retardant",
	"saltwater", "scunthorpe", "shiitake", "swank", "woodcock",
}

var std = NewMatcher(defaultWords).Allow(defaultAllowed...)

// Span is a half-open rune range [Start, End) matched in the input.
type Span struct {
	Start, End int
}

// Matcher locates obfuscated occurrences of a word list.
type Matcher struct {
	patterns []*regexp.Regexp
	allowed  []*regexp.Regexp
}

// NewMatcher compiles one pattern per word. Each letter accepts its leetspeak
// variants and repeats, and letters may be separated by punctuation.
func NewMatcher(words []string) *Matcher {
	m := &Matcher{}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		var b strings.Builder
		b.WriteString("(?i)")
		for i, r := range w {
			if i > 0 {
				b.WriteString(`[\-_.*]*`)
			}
			alts, ok := leet[r]
			if !ok {
				alts = string(r)
			}
			b.WriteString("[" + regexp.QuoteMeta(alts) + "]+")
		}
		m.patterns = append(m.patterns, regexp.MustCompile(b.String()))
	}
	return m
}

// Allow registers words whose matches are never censored, e.g. "peacock"
// for a matcher that lists "cock". Comparison ignores case.
func (m *Matcher) Allow(words ...string) *Matcher {
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		m.allowed = append(m.allowed, regexp.MustCompile("(?i)"+regexp.QuoteMeta(w)))
	}
	return m
}

// allowedAt reports whether the byte range [start, end) sits inside an
// allowed word.
func allowedAt(safe [][]int, start, end int) bool {
	for _, a := range safe {
		if a[0] <= start && end <= a[1] {
			return true
		}
	}
	return false
}

// Matches returns every offending span in s, sorted by start descending.
func (m *Matcher) Matches(s string) []Span {
	if s == "" {
		return nil
	}
	// byte offset -> rune offset
	runeAt := make(map[int]int, len(s)+1)
	n := 0
	for i := range s {
		runeAt[i] = n
		n++
	}
	runeAt[len(s)] = n

	var safe [][]int
	for _, a := range m.allowed {
		safe = append(safe, a.FindAllStringIndex(s, -1)...)
	}

	var spans []Span
	for _, p := range m.patterns {
		for _, loc := range p.FindAllStringIndex(s, -1) {
			if allowedAt(safe, loc[0], loc[1]) {
				continue
			}
			spans = append(spans, Span{Start: runeAt[loc[0]], End: runeAt[loc[1]]})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start > spans[j].Start })
	return spans
}

// Censor masks every match with '*', processing spans right to left so
// earlier offsets stay valid.
func (m *Matcher) Censor(s string) string {
	spans := m.Matches(s)
	if len(spans) == 0 {
		return s
	}
	out := []rune(s)
	for _, sp := range spans {
		for i := sp.Start; i < sp.End; i++ {
			out[i] = '*'
		}
	}
	return string(out)
}

// Name cleans a raw display name for submission.
func Name(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = goaway.Censor(s)
	s = std.Censor(s)
	return Truncate(s, MaxNameLength)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
