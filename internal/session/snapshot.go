// internal/session/snapshot.go
//
// Serialized in-progress match.
//
// Wire shape: { "version": 1, "gameState": {...}, "images": [...], "mode": "daily", "date": "2025-09-01" }
//   - Unversioned blobs { gameState, images, mode } are migrated to version 1.
//   - Decoding validates mode, photo count and the game invariants; anything
//     else is ErrInvalidSnapshot, which callers treat as a cache miss.

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/robalobadob/uwguessr/internal/game"
)

// SnapshotVersion is the current schema version.
const SnapshotVersion = 1

// ErrInvalidSnapshot marks a stored snapshot that cannot be resumed.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Snapshot is a resumable match: state plus the photo sequence it plays.
type Snapshot struct {
	Version   int          `json:"version"`
	GameState game.State   `json:"gameState"`
	Images    []game.Photo `json:"images"`
	Mode      game.Mode    `json:"mode"`
	// Date is the daily key the match belongs to; empty for random matches.
	Date string `json:"date,omitempty"`
}

// NewSnapshot stamps the current version.
func NewSnapshot(mode game.Mode, date string, st game.State, images []game.Photo) Snapshot {
	return Snapshot{
		Version:   SnapshotVersion,
		GameState: st,
		Images:    images,
		Mode:      mode,
		Date:      date,
	}
}

// CurrentPhoto returns the photo for the round in progress.
func (s Snapshot) CurrentPhoto() (game.Photo, bool) {
	i := s.GameState.CurrentRound - 1
	if i < 0 || i >= len(s.Images) {
		return game.Photo{}, false
	}
	return s.Images[i], true
}

// Validate checks the snapshot is resumable.
func (s Snapshot) Validate() error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("%w: version %d", ErrInvalidSnapshot, s.Version)
	}
	if _, ok := game.ParseMode(string(s.Mode)); !ok {
		return fmt.Errorf("%w: mode %q", ErrInvalidSnapshot, s.Mode)
	}
	if len(s.Images) != game.TotalRounds {
		return fmt.Errorf("%w: %d images", ErrInvalidSnapshot, len(s.Images))
	}
	for _, p := range s.Images {
		if !p.Located() {
			return fmt.Errorf("%w: photo %s has no location", ErrInvalidSnapshot, p.ID)
		}
	}
	if err := s.GameState.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return nil
}

// EncodeSnapshot validates and marshals s.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// DecodeSnapshot unmarshals, migrates and validates a stored snapshot.
func DecodeSnapshot(b []byte) (Snapshot, error) {
	var raw struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	if raw.Version == nil {
		migrated, err := migrateLegacy(b)
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
		b = migrated
	}

	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// migrateLegacy rewrites an unversioned blob as version 1. Legacy blobs store
// startTime as epoch milliseconds.
func migrateLegacy(b []byte) ([]byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	if gs, ok := doc["gameState"]; ok {
		var st map[string]json.RawMessage
		if err := json.Unmarshal(gs, &st); err != nil {
			return nil, err
		}
		var ms float64
		if ts, ok := st["startTime"]; ok && string(ts) != "null" && json.Unmarshal(ts, &ms) == nil {
			enc, err := json.Marshal(time.UnixMilli(int64(ms)).UTC())
			if err != nil {
				return nil, err
			}
			st["startTime"] = enc
		}
		enc, err := json.Marshal(st)
		if err != nil {
			return nil, err
		}
		doc["gameState"] = enc
	}
	doc["version"] = json.RawMessage(strconv.Itoa(SnapshotVersion))
	return json.Marshal(doc)
}
