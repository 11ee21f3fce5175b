// internal/game/types.go
//
// Core type definitions for the guessing game engine.
// Defines:
//   - Photo: a round's subject, read-only here.
//   - Coordinate, RoundResult: per-round values.
//   - Phase, Mode: enums.
//   - State: the single mutable aggregate owned by Engine.

package game

import (
	"time"

	"github.com/robalobadob/uwguessr/internal/geoscore"
)

// TotalRounds is the fixed length of a match.
const TotalRounds = 5

// Phase is the coarse state of the current round.
type Phase string

const (
	PhasePlaying  Phase = "playing"  // round shown, no guess yet
	PhaseGuessing Phase = "guessing" // guess placed, not submitted
	PhaseResults  Phase = "results"  // submitted, result visible
	PhaseComplete Phase = "complete" // terminal
)

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhasePlaying, PhaseGuessing, PhaseResults, PhaseComplete:
		return true
	}
	return false
}

// Mode selects how the round photos are chosen.
type Mode string

const (
	ModeRandom Mode = "random"
	ModeDaily  Mode = "daily"
)

// ParseMode validates a raw mode string.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeRandom, ModeDaily:
		return Mode(s), true
	}
	return "", false
}

// Photo is an external record consumed read-only. Lat/Lng are nil until a
// moderator has placed the photo on the map.
type Photo struct {
	ID        string   `json:"id"`
	URL       string   `json:"url"`
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	Building  string   `json:"building"`
	Floor     int      `json:"floor"`
	AddedBy   string   `json:"added_by"`
	CreatedAt string   `json:"created_at"`
	Status    string   `json:"status"`
}

// Located reports whether the photo can be scored.
func (p Photo) Located() bool { return p.Lat != nil && p.Lng != nil }

// Location returns the photo coordinate; ok is false when unlocated.
func (p Photo) Location() (Coordinate, bool) {
	if !p.Located() {
		return Coordinate{}, false
	}
	return Coordinate{Lat: *p.Lat, Lng: *p.Lng}, true
}

// Coordinate is a WGS84 point in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether c lies in lat [-90,90], lng [-180,180].
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// RoundResult is created once per round and never modified.
type RoundResult struct {
	Round          int        `json:"round"`
	Photo          Photo      `json:"photo"`
	UserGuess      Coordinate `json:"userGuess"`
	ActualLocation Coordinate `json:"actualLocation"`
	Distance       float64    `json:"distance"` // meters
	DistanceLabel  string     `json:"distanceLabel"`
	Score          int        `json:"score"`     // 0..5000
	TimeSpent      int64      `json:"timeSpent"` // milliseconds
}

// State holds a single match. Only Engine mutates it.
type State struct {
	CurrentRound  int           `json:"currentRound"`
	TotalScore    int           `json:"totalScore"`
	RoundScore    int           `json:"roundScore"`
	UserGuess     *Coordinate   `json:"userGuess"`
	IsMapExpanded bool          `json:"isMapExpanded"`
	ShowResults   bool          `json:"showResults"`
	GamePhase     Phase         `json:"gamePhase"`
	RoundResults  []RoundResult `json:"roundResults"`
	StartTime     *time.Time    `json:"startTime"`
}

// InitialState returns the state of a match that has not started yet.
func InitialState() State {
	return State{
		CurrentRound: 1,
		GamePhase:    PhasePlaying,
		RoundResults: []RoundResult{},
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	if s.UserGuess != nil {
		g := *s.UserGuess
		out.UserGuess = &g
	}
	if s.StartTime != nil {
		t := *s.StartTime
		out.StartTime = &t
	}
	out.RoundResults = append([]RoundResult{}, s.RoundResults...)
	return out
}

// Validate checks the aggregate invariants. It is used to reject restored
// snapshots that could not have been produced by Engine.
func (s State) Validate() error {
	if !s.GamePhase.Valid() {
		return ErrInvalidState
	}
	if s.CurrentRound < 1 {
		return ErrInvalidState
	}
	if s.GamePhase != PhaseComplete && s.CurrentRound > TotalRounds {
		return ErrInvalidState
	}
	if s.GamePhase == PhaseComplete && len(s.RoundResults) != TotalRounds {
		return ErrInvalidState
	}
	if len(s.RoundResults) > TotalRounds {
		return ErrInvalidState
	}
	switch s.GamePhase {
	case PhasePlaying, PhaseGuessing:
		if len(s.RoundResults) != s.CurrentRound-1 {
			return ErrInvalidState
		}
	case PhaseResults:
		if len(s.RoundResults) != s.CurrentRound {
			return ErrInvalidState
		}
	}
	if s.GamePhase == PhasePlaying && s.UserGuess != nil {
		return ErrInvalidState
	}
	if s.GamePhase == PhaseGuessing && s.UserGuess == nil {
		return ErrInvalidState
	}
	sum := 0
	for i, r := range s.RoundResults {
		if r.Round != i+1 || r.Score < 0 || r.Score > geoscore.MaxScore || r.Distance < 0 || r.TimeSpent < 0 {
			return ErrInvalidState
		}
		sum += r.Score
	}
	if sum != s.TotalScore {
		return ErrInvalidState
	}
	return nil
}
