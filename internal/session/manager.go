// internal/session/manager.go
//
// Per-player persistence policy.
// Responsibilities:
//   - Keep the single in-progress snapshot, the last completed results per
//     mode, the per-round results mirror and the fresh-start flag in the
//     ephemeral (tab) store.
//   - Keep date-keyed daily records (completed, progress, submitted) in the
//     durable store.
//   - Decide at load time whether to redirect, resume or start fresh.
//
// Key layout:
//   tab:     <player>/progress | <player>/results/<mode> | <player>/current | <player>/fresh/<mode>
//   durable: daily/<date>/<player>/{completed,progress,submitted}
//
// Notes:
//   - Storage failures never block play: they are logged and the affected
//     read is treated as a miss.

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/uwguessr/internal/daily"
	"github.com/robalobadob/uwguessr/internal/game"
)

// Action is the outcome of resolving a match load.
type Action string

const (
	ActionFresh    Action = "fresh"    // fetch photos and start a new match
	ActionResume   Action = "resume"   // continue Snapshot
	ActionRedirect Action = "redirect" // daily already played; show Results
)

// Decision is returned by Resolve.
type Decision struct {
	Action   Action             `json:"action"`
	Mode     game.Mode          `json:"mode"`
	Date     string             `json:"date,omitempty"`
	Snapshot *Snapshot          `json:"snapshot,omitempty"`
	Results  []game.RoundResult `json:"results,omitempty"`
}

const dailyPrefix = "daily/"

const (
	recordCompleted = "completed"
	recordProgress  = "progress"
	recordSubmitted = "submitted"
)

// Manager applies the persistence policy for one player.
type Manager struct {
	tab     Store
	durable Store
	player  string
	now     daily.Clock
}

// NewManager scopes tab and durable storage to player. now defaults to time.Now.
func NewManager(tab, durable Store, player string, now daily.Clock) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{tab: tab, durable: durable, player: player, now: now}
}

// Today is the current daily key.
func (m *Manager) Today() string { return daily.DateKey(m.now()) }

func (m *Manager) tabKey(parts ...string) string {
	return m.player + "/" + strings.Join(parts, "/")
}

func (m *Manager) dailyKey(date, record string) string {
	return dailyPrefix + date + "/" + m.player + "/" + record
}

// Resolve decides how a match load for mode proceeds.
//
// daily:  completed today > progress for today > fresh.
// random: fresh-start flag > progress > fresh.
//
// A fresh decision sets the mode's fresh-start flag; Begin clears it.
func (m *Manager) Resolve(ctx context.Context, mode game.Mode) Decision {
	if mode == game.ModeDaily {
		date := m.Today()
		if res, err := m.DailyResults(ctx, date); err == nil && len(res) > 0 {
			return Decision{Action: ActionRedirect, Mode: mode, Date: date, Results: res}
		}
		if snap, err := m.Load(ctx, mode); err == nil {
			return Decision{Action: ActionResume, Mode: mode, Date: date, Snapshot: &snap}
		}
		m.markFresh(ctx, mode)
		return Decision{Action: ActionFresh, Mode: mode, Date: date}
	}

	if m.flag(ctx, m.tab, m.tabKey("fresh", string(mode))) {
		m.warn(m.tab.Delete(ctx, m.tabKey("progress")), "discard progress")
		return Decision{Action: ActionFresh, Mode: mode}
	}
	if snap, err := m.Load(ctx, mode); err == nil {
		return Decision{Action: ActionResume, Mode: mode, Snapshot: &snap}
	}
	m.markFresh(ctx, mode)
	return Decision{Action: ActionFresh, Mode: mode}
}

// MarkFresh requests that the next load for mode starts a new match.
func (m *Manager) MarkFresh(ctx context.Context, mode game.Mode) error {
	return m.tab.Set(ctx, m.tabKey("fresh", string(mode)), []byte("true"))
}

func (m *Manager) markFresh(ctx context.Context, mode game.Mode) {
	m.warn(m.MarkFresh(ctx, mode), "set fresh-start flag")
}

// Load returns the resumable snapshot for mode, or ErrNotFound. Daily
// progress falls back to the durable record for today.
func (m *Manager) Load(ctx context.Context, mode game.Mode) (Snapshot, error) {
	today := m.Today()
	if snap, err := m.readSnapshot(ctx, m.tab, m.tabKey("progress")); err == nil {
		if snap.Mode == mode && (mode != game.ModeDaily || snap.Date == today) {
			return snap, nil
		}
	}
	if mode == game.ModeDaily {
		if snap, err := m.readSnapshot(ctx, m.durable, m.dailyKey(today, recordProgress)); err == nil && snap.Mode == mode {
			return snap, nil
		}
	}
	return Snapshot{}, ErrNotFound
}

// Begin stores the first snapshot of a new match, clears the fresh-start
// flag and resets the per-round mirror.
func (m *Manager) Begin(ctx context.Context, snap Snapshot) error {
	if err := m.Save(ctx, snap); err != nil {
		return err
	}
	m.warn(m.tab.Delete(ctx, m.tabKey("fresh", string(snap.Mode))), "clear fresh-start flag")
	m.warn(m.tab.Set(ctx, m.tabKey("current"), []byte("[]")), "reset results mirror")
	return nil
}

// Save writes snap as the in-progress match. Daily matches are also written
// to the durable store under their date.
func (m *Manager) Save(ctx context.Context, snap Snapshot) error {
	b, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := m.tab.Set(ctx, m.tabKey("progress"), b); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	if snap.Mode == game.ModeDaily && snap.Date != "" {
		if err := m.durable.Set(ctx, m.dailyKey(snap.Date, recordProgress), b); err != nil {
			return fmt.Errorf("save daily progress: %w", err)
		}
	}
	return nil
}

// Complete moves a finished match into the completed slots and drops its
// in-progress records.
func (m *Manager) Complete(ctx context.Context, snap Snapshot) error {
	results := snap.GameState.RoundResults
	b, err := json.Marshal(results)
	if err != nil {
		return err
	}
	if err := m.tab.Set(ctx, m.tabKey("results", string(snap.Mode)), b); err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	m.warn(m.tab.Delete(ctx, m.tabKey("progress")), "clear progress")

	if snap.Mode == game.ModeDaily {
		date := snap.Date
		if date == "" {
			date = m.Today()
		}
		if err := m.durable.Set(ctx, m.dailyKey(date, recordCompleted), b); err != nil {
			return fmt.Errorf("save daily results: %w", err)
		}
		m.warn(m.durable.Delete(ctx, m.dailyKey(date, recordProgress)), "clear daily progress")
	}
	return nil
}

// Results returns the last completed results for mode. Daily falls back to
// today's durable record.
func (m *Manager) Results(ctx context.Context, mode game.Mode) ([]game.RoundResult, error) {
	res, err := m.readResults(ctx, m.tab, m.tabKey("results", string(mode)))
	if err == nil || mode != game.ModeDaily {
		return res, err
	}
	return m.DailyResults(ctx, m.Today())
}

// DailyResults returns the completed daily results for date.
func (m *Manager) DailyResults(ctx context.Context, date string) ([]game.RoundResult, error) {
	return m.readResults(ctx, m.durable, m.dailyKey(date, recordCompleted))
}

// CurrentResults returns the per-round mirror of the match in progress.
func (m *Manager) CurrentResults(ctx context.Context) ([]game.RoundResult, error) {
	return m.readResults(ctx, m.tab, m.tabKey("current"))
}

// Recorder mirrors each round result into the current-results slot.
func (m *Manager) Recorder(ctx context.Context) game.RoundRecorder {
	return game.RecorderFunc(func(r game.RoundResult) {
		cur, err := m.CurrentResults(ctx)
		if err != nil && !errors.Is(err, ErrNotFound) {
			m.warn(err, "read results mirror")
		}
		b, err := json.Marshal(append(cur, r))
		if err != nil {
			m.warn(err, "encode results mirror")
			return
		}
		m.warn(m.tab.Set(ctx, m.tabKey("current"), b), "write results mirror")
	})
}

// MarkSubmitted records that the player's leaderboard entry for date was accepted.
func (m *Manager) MarkSubmitted(ctx context.Context, date string) error {
	return m.durable.Set(ctx, m.dailyKey(date, recordSubmitted), []byte("true"))
}

// Submitted reports whether MarkSubmitted was called for date.
func (m *Manager) Submitted(ctx context.Context, date string) bool {
	return m.flag(ctx, m.durable, m.dailyKey(date, recordSubmitted))
}

func (m *Manager) readSnapshot(ctx context.Context, st Store, key string) (Snapshot, error) {
	b, err := st.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.warn(err, "read snapshot")
		}
		return Snapshot{}, err
	}
	snap, err := DecodeSnapshot(b)
	if err != nil {
		log.Warn().Err(err).Str("player", m.player).Str("key", key).Msg("discarding unreadable snapshot")
		m.warn(st.Delete(ctx, key), "delete unreadable snapshot")
		return Snapshot{}, err
	}
	return snap, nil
}

func (m *Manager) readResults(ctx context.Context, st Store, key string) ([]game.RoundResult, error) {
	b, err := st.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.warn(err, "read results")
		}
		return nil, err
	}
	var out []game.RoundResult
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}

func (m *Manager) flag(ctx context.Context, st Store, key string) bool {
	b, err := st.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.warn(err, "read flag")
		}
		return false
	}
	return string(b) == "true"
}

func (m *Manager) warn(err error, msg string) {
	if err != nil {
		log.Warn().Err(err).Str("player", m.player).Msg(msg)
	}
}

// Sweep deletes durable daily records outside the retention window and
// reports how many were removed.
func Sweep(ctx context.Context, st Store, now time.Time) (int, error) {
	keys, err := st.Keys(ctx, dailyPrefix)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, k := range keys {
		date, _, _ := strings.Cut(strings.TrimPrefix(k, dailyPrefix), "/")
		if !daily.Expired(date, now) {
			continue
		}
		if err := st.Delete(ctx, k); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
