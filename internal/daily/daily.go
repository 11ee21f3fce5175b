// internal/daily/daily.go
//
// Calendar helpers for the Daily Challenge.
// Responsibilities:
//   - DateKey: the YYYY-MM-DD partition key, computed in America/New_York so
//     every player shares the same day boundary.
//   - Retention: the rolling window after which date-keyed records are swept.
//   - Pick: deterministic photo selection for a date using HMAC(salt, date).
//
// Notes:
//   - tzdata is embedded so the reference zone resolves on minimal images.

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
	"time"
	_ "time/tzdata"
)

// ReferenceZone names the timezone that defines "today".
const ReferenceZone = "America/New_York"

// RetentionDays bounds how long date-keyed records are kept.
const RetentionDays = 7

var reference = mustLoad(ReferenceZone)

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// Clock returns the current instant. Handlers and sweepers take one so tests
// can pin the date.
type Clock func() time.Time

// DateKey returns YYYY-MM-DD for t in the reference timezone.
func DateKey(t time.Time) string {
	return t.In(reference).Format("2006-01-02")
}

// ParseDateKey parses a key produced by DateKey.
func ParseDateKey(s string) (time.Time, bool) {
	t, err := time.ParseInLocation("2006-01-02", s, reference)
	return t, err == nil
}

// RetentionCutoff is the oldest date key still retained at now.
func RetentionCutoff(now time.Time) string {
	return DateKey(now.AddDate(0, 0, -RetentionDays))
}

// Expired reports whether records for date fall outside the retention window.
// Malformed keys are treated as expired.
func Expired(date string, now time.Time) bool {
	if _, ok := ParseDateKey(date); !ok {
		return true
	}
	return date < RetentionCutoff(now)
}

// seed derives two PRNG words from HMAC(salt, date).
func seed(date, salt string) (uint64, uint64) {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(date))
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:16])
}

// Pick returns k distinct indices in [0,n) for date. The same date and salt
// always yield the same indices in the same order. k is capped at n.
func Pick(date, salt string, n, k int) []int {
	if n <= 0 || k <= 0 {
		return []int{}
	}
	if k > n {
		k = n
	}
	s1, s2 := seed(date, salt)
	r := rand.New(rand.NewPCG(s1, s2))
	return r.Perm(n)[:k]
}
