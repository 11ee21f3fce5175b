package daily

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/robalobadob/uwguessr/internal/database"
)

func TestDateKeyUsesReferenceZone(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"utc afternoon", time.Date(2025, 9, 1, 18, 0, 0, 0, time.UTC), "2025-09-01"},
		{"utc after midnight is still yesterday in NY", time.Date(2025, 9, 2, 3, 30, 0, 0, time.UTC), "2025-09-01"},
		{"dst switch morning", time.Date(2024, 3, 10, 3, 30, 0, 0, time.UTC), "2024-03-09"},
		{"after NY midnight", time.Date(2025, 9, 2, 4, 30, 0, 0, time.UTC), "2025-09-02"},
		{"winter offset", time.Date(2025, 1, 15, 4, 59, 0, 0, time.UTC), "2025-01-14"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DateKey(tt.in); got != tt.want {
				t.Errorf("DateKey(%v) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestExpired(t *testing.T) {
	now := time.Date(2025, 9, 10, 16, 0, 0, 0, time.UTC) // 2025-09-10 in NY

	tests := []struct {
		date string
		want bool
	}{
		{"2025-09-10", false},
		{"2025-09-03", false},
		{"2025-09-02", true},
		{"2024-12-31", true},
		{"not-a-date", true},
	}
	for _, tt := range tests {
		if got := Expired(tt.date, now); got != tt.want {
			t.Errorf("Expired(%s) = %v, want %v", tt.date, got, tt.want)
		}
	}
}

func TestPickDeterministic(t *testing.T) {
	a := Pick("2025-09-01", "salt", 40, 5)
	b := Pick("2025-09-01", "salt", 40, 5)
	if len(a) != 5 {
		t.Fatalf("expected 5 indices, got %v", a)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same date produced different picks: %v vs %v", a, b)
		}
	}

	seen := map[int]bool{}
	for _, i := range a {
		if i < 0 || i >= 40 || seen[i] {
			t.Fatalf("invalid or duplicate index in %v", a)
		}
		seen[i] = true
	}

	other := Pick("2025-09-02", "salt", 40, 5)
	same := true
	for i := range a {
		if a[i] != other[i] {
			same = false
		}
	}
	if same {
		t.Errorf("different dates produced identical picks %v", a)
	}
}

func TestPickBounds(t *testing.T) {
	if got := Pick("2025-09-01", "s", 3, 5); len(got) != 3 {
		t.Errorf("k should cap at n, got %v", got)
	}
	if got := Pick("2025-09-01", "s", 0, 5); len(got) != 0 {
		t.Errorf("empty catalog should pick nothing, got %v", got)
	}
}

func TestNewSubmissionClamps(t *testing.T) {
	tests := []struct {
		name      string
		score     int
		elapsed   time.Duration
		wantScore int
		wantTime  int
	}{
		{"in range", 8500, 95*time.Second + 999*time.Millisecond, 8500, 95},
		{"negative", -3, -time.Second, 0, 0},
		{"too high", 99999, 48 * time.Hour, MaxSubmitScore, MaxTimeTakenSeconds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSubmission("2025-09-01", "  goose  ", tt.score, tt.elapsed, "anon-1")
			if s.Score != tt.wantScore || s.TimeTaken != tt.wantTime {
				t.Errorf("got score %d time %d", s.Score, s.TimeTaken)
			}
			if s.Name != "goose" {
				t.Errorf("expected sanitized name, got %q", s.Name)
			}
		})
	}
}

func TestSubmissionValidate(t *testing.T) {
	now := time.Date(2025, 9, 1, 16, 0, 0, 0, time.UTC)
	valid := Submission{Date: "2025-09-01", Name: "goose", Score: 8500, TimeTaken: 95, Identity: "anon-1"}

	if err := valid.Validate(now); err != nil {
		t.Fatalf("valid submission rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Submission)
	}{
		{"yesterday", func(s *Submission) { s.Date = "2025-08-31" }},
		{"malformed date", func(s *Submission) { s.Date = "09/01/2025" }},
		{"empty name", func(s *Submission) { s.Name = "" }},
		{"score too high", func(s *Submission) { s.Score = 25001 }},
		{"negative time", func(s *Submission) { s.TimeTaken = -1 }},
		{"no identity", func(s *Submission) { s.Identity = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			if err := s.Validate(now); !errors.Is(err, ErrInvalidSubmission) {
				t.Errorf("expected ErrInvalidSubmission, got %v", err)
			}
		})
	}
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(context.Background(), database.MemoryPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestStoreOncePerDay(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, 9, 1, 16, 30, 0, 0, time.UTC)
	st := NewStore(newTestDB(t), func() time.Time { return at })
	sub := Submission{Date: "2025-09-01", Name: "goose", Score: 8500, TimeTaken: 95, Identity: "anon-1"}

	entry, err := st.Insert(ctx, sub)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if entry.CreatedAt != "2025-09-01T16:30:00Z" {
		t.Errorf("createdAt = %q", entry.CreatedAt)
	}
	again := sub
	again.Score = 25000
	if _, err := st.Insert(ctx, again); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}

	done, err := st.AlreadySubmitted(ctx, "anon-1", "2025-09-01")
	if err != nil || !done {
		t.Fatalf("AlreadySubmitted = %v, %v", done, err)
	}

	next := sub
	next.Date = "2025-09-02"
	if _, err := st.Insert(ctx, next); err != nil {
		t.Fatalf("next day insert: %v", err)
	}

	lb, err := st.Leaderboard(ctx, "2025-09-01", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(lb) != 1 || lb[0].Score != 8500 {
		t.Fatalf("duplicate overwrote original entry: %+v", lb)
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	ctx := context.Background()
	st := NewStore(newTestDB(t), nil)

	subs := []Submission{
		{Date: "2025-09-01", Name: "slow", Score: 9000, TimeTaken: 300, Identity: "a"},
		{Date: "2025-09-01", Name: "fast", Score: 9000, TimeTaken: 60, Identity: "b"},
		{Date: "2025-09-01", Name: "best", Score: 20000, TimeTaken: 500, Identity: "c"},
		{Date: "2025-09-01", Name: "low", Score: 100, TimeTaken: 10, Identity: "d"},
		{Date: "2025-08-31", Name: "old", Score: 25000, TimeTaken: 1, Identity: "e"},
	}
	for _, s := range subs {
		if _, err := st.Insert(ctx, s); err != nil {
			t.Fatalf("insert %s: %v", s.Name, err)
		}
	}

	lb, err := st.Leaderboard(ctx, "2025-09-01", 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"best", "fast", "slow"}
	if len(lb) != len(want) {
		t.Fatalf("expected %d rows, got %+v", len(want), lb)
	}
	for i, name := range want {
		if lb[i].Name != name || lb[i].Rank != i+1 {
			t.Errorf("row %d = %+v, want %s", i, lb[i], name)
		}
	}
}
