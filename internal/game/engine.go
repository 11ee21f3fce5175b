// internal/game/engine.go
//
// Core game engine for a single five-round match.
// Responsibilities:
//   - Track the round/phase state machine: playing → guessing → results → playing | complete.
//   - Score submitted guesses (geoscore) and build immutable round results.
//   - Keep totalScore equal to the sum of appended round results.
//   - Mirror each result to a RoundRecorder (the session persistence layer).
//
// Notes:
//   - Every operation is total. Invalid actions (submit without a guess, guess
//     after submission, a photo without coordinates) leave the state untouched
//     and report false; they are only reachable through client races.
//   - The clock is injected so timeSpent is deterministic under test.

package game

import (
	"errors"
	"time"

	"github.com/robalobadob/uwguessr/internal/geoscore"
)

// ErrInvalidState is returned by State.Validate for aggregates that violate
// the match invariants.
var ErrInvalidState = errors.New("invalid game state")

// RoundRecorder receives every result as soon as it is appended.
type RoundRecorder interface {
	RecordRound(r RoundResult)
}

// RecorderFunc adapts a plain function to RoundRecorder.
type RecorderFunc func(RoundResult)

// RecordRound calls f(r).
func (f RecorderFunc) RecordRound(r RoundResult) { f(r) }

// Engine owns one State and is its only mutator. It is not safe for
// concurrent use; callers serialize operations per match.
type Engine struct {
	state    State
	now      func() time.Time
	recorder RoundRecorder
}

// NewEngine constructs an engine holding InitialState.
// now defaults to time.Now; rec may be nil.
func NewEngine(now func() time.Time, rec RoundRecorder) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{state: InitialState(), now: now, recorder: rec}
}

// State returns a deep copy of the current aggregate.
func (e *Engine) State() State { return e.state.Clone() }

// PlaceGuess records (or moves) the player's pin.
// Ignored once the round has been submitted or the match is complete.
func (e *Engine) PlaceGuess(lat, lng float64) bool {
	if e.state.GamePhase != PhasePlaying && e.state.GamePhase != PhaseGuessing {
		return false
	}
	c := Coordinate{Lat: lat, Lng: lng}
	if !c.Valid() {
		return false
	}
	e.state.UserGuess = &c
	e.state.GamePhase = PhaseGuessing
	return true
}

// SubmitGuess scores the pending guess against photo and appends the result.
// It returns the new result, or false when there is nothing to submit.
func (e *Engine) SubmitGuess(photo Photo) (RoundResult, bool) {
	if e.state.GamePhase != PhaseGuessing || e.state.UserGuess == nil {
		return RoundResult{}, false
	}
	actual, ok := photo.Location()
	if !ok {
		return RoundResult{}, false
	}

	res := BuildResult(e.state.CurrentRound, photo, *e.state.UserGuess, actual, e.state.StartTime, e.now())

	e.state.RoundResults = append(e.state.RoundResults, res)
	e.state.TotalScore += res.Score
	e.state.RoundScore = res.Score
	e.state.ShowResults = true
	e.state.GamePhase = PhaseResults

	if e.recorder != nil {
		e.recorder.RecordRound(res)
	}
	return res, true
}

// NextRound advances past the results view. After the final round the
// match becomes complete; currentRound then reads TotalRounds+1.
func (e *Engine) NextRound() bool {
	if e.state.GamePhase != PhaseResults {
		return false
	}
	prev := e.state.CurrentRound
	now := e.now()

	e.state.CurrentRound = prev + 1
	e.state.UserGuess = nil
	e.state.ShowResults = false
	e.state.StartTime = &now
	e.state.RoundScore = 0
	if prev >= TotalRounds {
		e.state.GamePhase = PhaseComplete
	} else {
		e.state.GamePhase = PhasePlaying
	}
	return true
}

// StartRound starts the round timer once the round's photo is available.
// Only meaningful before a guess is placed.
func (e *Engine) StartRound() bool {
	if e.state.GamePhase != PhasePlaying {
		return false
	}
	now := e.now()
	e.state.StartTime = &now
	e.state.GamePhase = PhasePlaying
	return true
}

// ToggleMapExpanded flips the map size flag.
func (e *Engine) ToggleMapExpanded() {
	e.state.IsMapExpanded = !e.state.IsMapExpanded
}

// Reset discards the match and returns to InitialState.
func (e *Engine) Reset() {
	e.state = InitialState()
}

// Restore replaces the aggregate with a previously saved one.
// Snapshots that fail Validate are rejected.
func (e *Engine) Restore(s State) bool {
	if err := s.Validate(); err != nil {
		return false
	}
	e.state = s.Clone()
	return true
}

// Complete reports whether the match has ended.
func (e *Engine) Complete() bool { return e.state.GamePhase == PhaseComplete }

// BuildResult combines a guess, the true location and elapsed time into a
// RoundResult. A nil start yields timeSpent 0.
func BuildResult(round int, photo Photo, guess, actual Coordinate, start *time.Time, now time.Time) RoundResult {
	d := geoscore.DistanceMeters(guess.Lat, guess.Lng, actual.Lat, actual.Lng)

	var spent int64
	if start != nil {
		spent = now.Sub(*start).Milliseconds()
		if spent < 0 {
			spent = 0
		}
	}

	return RoundResult{
		Round:          round,
		Photo:          photo,
		UserGuess:      guess,
		ActualLocation: actual,
		Distance:       d,
		DistanceLabel:  geoscore.FormatDistance(d),
		Score:          geoscore.Score(d),
		TimeSpent:      spent,
	}
}

// TotalTime sums timeSpent across results.
func TotalTime(results []RoundResult) time.Duration {
	var ms int64
	for _, r := range results {
		ms += r.TimeSpent
	}
	return time.Duration(ms) * time.Millisecond
}

// TotalScore sums scores across results.
func TotalScore(results []RoundResult) int {
	sum := 0
	for _, r := range results {
		sum += r.Score
	}
	return sum
}
