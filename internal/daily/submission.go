// internal/daily/submission.go
//
// Leaderboard submission payload for the Daily Challenge.
//   - NewSubmission builds a sanitized, range-clamped payload from a finished
//     match (the player-facing side).
//   - Validate re-checks the payload on receipt (the server side).
//
// Rejections are typed so the transport can map them to status codes; none of
// them touch the player's stored results.

package daily

import (
	"errors"
	"fmt"
	"time"

	"github.com/robalobadob/uwguessr/internal/sanitize"
)

const (
	// MaxSubmitScore is five perfect rounds.
	MaxSubmitScore = 25000
	// MaxTimeTakenSeconds caps the reported duration at one day.
	MaxTimeTakenSeconds = 24 * 60 * 60
)

var (
	ErrAlreadySubmitted  = errors.New("already submitted for this date")
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrNotPlayed         = errors.New("no completed daily challenge for this date")
)

// Submission is one leaderboard entry request.
type Submission struct {
	Date      string `json:"date"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	TimeTaken int    `json:"timeTaken"` // seconds
	Identity  string `json:"-"`
}

// NewSubmission sanitizes the display name and clamps score and time into
// their accepted ranges. elapsed is truncated to whole seconds.
func NewSubmission(date, rawName string, totalScore int, elapsed time.Duration, identity string) Submission {
	return Submission{
		Date:      date,
		Name:      sanitize.Name(rawName),
		Score:     clamp(totalScore, 0, MaxSubmitScore),
		TimeTaken: clamp(int(elapsed/time.Second), 0, MaxTimeTakenSeconds),
		Identity:  identity,
	}
}

// Validate enforces ranges and that Date is today's key at now.
func (s Submission) Validate(now time.Time) error {
	if _, ok := ParseDateKey(s.Date); !ok {
		return fmt.Errorf("%w: malformed date %q", ErrInvalidSubmission, s.Date)
	}
	if s.Date != DateKey(now) {
		return fmt.Errorf("%w: date %s is not today", ErrInvalidSubmission, s.Date)
	}
	if s.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidSubmission)
	}
	if s.Score < 0 || s.Score > MaxSubmitScore {
		return fmt.Errorf("%w: score %d out of range", ErrInvalidSubmission, s.Score)
	}
	if s.TimeTaken < 0 || s.TimeTaken > MaxTimeTakenSeconds {
		return fmt.Errorf("%w: time %d out of range", ErrInvalidSubmission, s.TimeTaken)
	}
	if s.Identity == "" {
		return fmt.Errorf("%w: missing identity", ErrInvalidSubmission)
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
