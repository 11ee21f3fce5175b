// internal/httpserver/routes_daily.go
//
// HTTP routes for the Daily Challenge leaderboard:
//   - POST /daily/submit      → submit today's completed match (token + rate limit)
//   - GET  /daily/leaderboard → top results for today (or a given date)
//
// Score and time are taken from the player's stored daily results, not from
// the request; only the display name is client supplied. Each identity can
// submit once per day (enforced by the unique key in daily_scores).

package httpserver

import (
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/uwguessr/internal/daily"
	"github.com/robalobadob/uwguessr/internal/game"
	"github.com/robalobadob/uwguessr/internal/ratelimit"
	"github.com/robalobadob/uwguessr/internal/session"
)

// SubmitRequest is the body of POST /daily/submit.
type SubmitRequest struct {
	Name string `json:"name"`
}

// LeaderboardResponse is returned by GET /daily/leaderboard.
type LeaderboardResponse struct {
	Date string        `json:"date"`
	Top  []daily.Entry `json:"top"`
}

// maxLeaderboardLimit caps ?limit=.
const maxLeaderboardLimit = 100

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	r.Route("/daily", func(r chi.Router) {
		r.With(ratelimit.Middleware(s.limiter, submitKey), s.requireAuth()).Post("/submit", s.handleDailySubmit)
		r.Get("/leaderboard", s.handleLeaderboard)
	})
}

// submitKey buckets submissions by client IP (RealIP has already run). The
// port is dropped so every connection from one host shares a bucket.
func submitKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "daily_" + host
}

func (s *Server) handleDailySubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}

	ctx := r.Context()
	uid := identity(r)
	m := session.NewManager(s.tab, s.durable, uid, s.now)
	date := m.Today()

	if m.Submitted(ctx, date) {
		writeSubmitError(w, daily.ErrAlreadySubmitted)
		return
	}
	// The durable flag can be lost while the leaderboard row remains.
	if done, err := s.scores.AlreadySubmitted(ctx, uid, date); err != nil {
		writeSubmitError(w, err)
		return
	} else if done {
		if err := m.MarkSubmitted(ctx, date); err != nil {
			log.Warn().Err(err).Str("player", uid).Msg("mark submitted")
		}
		writeSubmitError(w, daily.ErrAlreadySubmitted)
		return
	}
	res, err := m.DailyResults(ctx, date)
	if err != nil || len(res) == 0 {
		writeSubmitError(w, daily.ErrNotPlayed)
		return
	}

	sub := daily.NewSubmission(date, req.Name, game.TotalScore(res), game.TotalTime(res), uid)
	if err := sub.Validate(s.now()); err != nil {
		writeSubmitError(w, err)
		return
	}
	entry, err := s.scores.Insert(ctx, sub)
	if err != nil {
		writeSubmitError(w, err)
		return
	}
	if err := m.MarkSubmitted(ctx, date); err != nil {
		log.Warn().Err(err).Str("player", uid).Msg("mark submitted")
	}
	log.Info().Str("date", date).Int("score", entry.Score).Int("timeTaken", entry.TimeTaken).Msg("daily submission")
	writeJSON(w, http.StatusCreated, entry)
}

// writeSubmitError maps submission rejections to status codes.
func writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, daily.ErrAlreadySubmitted):
		writeError(w, http.StatusConflict, "already_submitted")
	case errors.Is(err, daily.ErrInvalidSubmission):
		writeError(w, http.StatusBadRequest, "invalid_submission")
	case errors.Is(err, daily.ErrNotPlayed):
		writeError(w, http.StatusForbidden, "not_played")
	default:
		log.Error().Err(err).Msg("daily submit")
		writeError(w, http.StatusInternalServerError, "server_error")
	}
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(s.now())
	} else if _, ok := daily.ParseDateKey(date); !ok {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}
	limit := daily.DefaultLeaderboardLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		limit = min(n, maxLeaderboardLimit)
	}

	rows, err := s.scores.Leaderboard(r.Context(), date, limit)
	if err != nil {
		log.Error().Err(err).Str("date", date).Msg("leaderboard")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, LeaderboardResponse{Date: date, Top: rows})
}
