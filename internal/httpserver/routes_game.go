// internal/httpserver/routes_game.go
//
// HTTP routes for a five-round match, per mode ("daily" | "random"):
//   - POST /game/{mode}/load   → redirect | resume | fresh (fetches photos when fresh)
//   - POST /game/{mode}/new    → request a fresh start, then load
//   - GET  /game/{mode}/state  → current snapshot
//   - POST /game/{mode}/start  → start the round timer
//   - POST /game/{mode}/guess  → place or move the pin
//   - POST /game/{mode}/submit → score the pin against the current photo
//   - POST /game/{mode}/next   → advance; the last round completes the match
//   - POST /game/{mode}/map    → toggle the map size flag
//   - GET  /results/{mode}     → last completed results
//
// Every action restores the saved snapshot into an Engine, applies one
// transition and writes the snapshot back. Transitions the state machine
// ignores answer 200 with applied=false and the unchanged snapshot.

package httpserver

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/uwguessr/internal/game"
	"github.com/robalobadob/uwguessr/internal/session"
)

func (s *Server) mountGame(r chi.Router) {
	r.Route("/game/{mode}", func(r chi.Router) {
		r.Post("/load", s.handleLoad)
		r.Post("/new", s.handleNew)
		r.Get("/state", s.handleState)
		r.Post("/start", s.handleStart)
		r.Post("/guess", s.handleGuess)
		r.Post("/submit", s.handleSubmit)
		r.Post("/next", s.handleNext)
		r.Post("/map", s.handleMap)
	})
	r.Get("/results/{mode}", s.handleResults)
}

// ActionResponse is returned by every state transition route.
type ActionResponse struct {
	Applied  bool              `json:"applied"`
	Snapshot session.Snapshot  `json:"snapshot"`
	Result   *game.RoundResult `json:"result,omitempty"`
}

// GuessRequest is the body of POST /game/{mode}/guess.
type GuessRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ResultsResponse is returned by GET /results/{mode}.
type ResultsResponse struct {
	Mode       game.Mode          `json:"mode"`
	Results    []game.RoundResult `json:"results"`
	TotalScore int                `json:"totalScore"`
	TotalTime  int64              `json:"totalTime"` // milliseconds
}

// modeParam parses {mode}; unknown modes answer 404.
func modeParam(w http.ResponseWriter, r *http.Request) (game.Mode, bool) {
	mode, ok := game.ParseMode(chi.URLParam(r, "mode"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_mode")
	}
	return mode, ok
}

func (s *Server) manager(w http.ResponseWriter, r *http.Request) *session.Manager {
	return session.NewManager(s.tab, s.durable, s.ensureAnonID(w, r), s.now)
}

// handleLoad resolves how the match for {mode} proceeds. A fresh decision
// fetches five photos and stores the opening snapshot.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	mode, ok := modeParam(w, r)
	if !ok {
		return
	}
	s.load(w, r, s.manager(w, r), mode)
}

func (s *Server) load(w http.ResponseWriter, r *http.Request, m *session.Manager, mode game.Mode) {
	dec := m.Resolve(r.Context(), mode)
	if dec.Action != session.ActionFresh {
		writeJSON(w, http.StatusOK, dec)
		return
	}

	imgs, err := s.photos.Photos(r.Context(), mode, game.TotalRounds)
	if err != nil {
		log.Error().Err(err).Str("mode", string(mode)).Msg("fetch photos")
		writeError(w, http.StatusServiceUnavailable, "photos_unavailable")
		return
	}
	snap := session.NewSnapshot(mode, dec.Date, game.InitialState(), imgs)
	if err := m.Begin(r.Context(), snap); err != nil {
		log.Error().Err(err).Str("mode", string(mode)).Msg("begin match")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	dec.Snapshot = &snap
	writeJSON(w, http.StatusOK, dec)
}

// handleNew sets the fresh-start flag and loads. A daily match already in
// progress for today is still resumed.
func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	mode, ok := modeParam(w, r)
	if !ok {
		return
	}
	m := s.manager(w, r)
	if err := m.MarkFresh(r.Context(), mode); err != nil {
		log.Warn().Err(err).Msg("set fresh-start flag")
	}
	s.load(w, r, m, mode)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	mode, ok := modeParam(w, r)
	if !ok {
		return
	}
	snap, err := s.manager(w, r).Load(r.Context(), mode)
	if err != nil {
		writeError(w, http.StatusNotFound, "no_match")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, func(e *game.Engine, _ session.Snapshot) (*game.RoundResult, bool) {
		return nil, e.StartRound()
	})
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req GuessRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if !(game.Coordinate{Lat: req.Lat, Lng: req.Lng}).Valid() {
		writeError(w, http.StatusBadRequest, "invalid_coordinate")
		return
	}
	s.apply(w, r, func(e *game.Engine, _ session.Snapshot) (*game.RoundResult, bool) {
		return nil, e.PlaceGuess(req.Lat, req.Lng)
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, func(e *game.Engine, snap session.Snapshot) (*game.RoundResult, bool) {
		photo, ok := snap.CurrentPhoto()
		if !ok {
			return nil, false
		}
		res, ok := e.SubmitGuess(photo)
		if !ok {
			return nil, false
		}
		return &res, true
	})
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, func(e *game.Engine, _ session.Snapshot) (*game.RoundResult, bool) {
		return nil, e.NextRound()
	})
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, func(e *game.Engine, _ session.Snapshot) (*game.RoundResult, bool) {
		e.ToggleMapExpanded()
		return nil, true
	})
}

type transition func(e *game.Engine, snap session.Snapshot) (*game.RoundResult, bool)

// apply runs op against the saved match for {mode} and persists the result.
// A completed match moves to the results slots.
func (s *Server) apply(w http.ResponseWriter, r *http.Request, op transition) {
	mode, ok := modeParam(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	m := s.manager(w, r)
	snap, err := m.Load(ctx, mode)
	if err != nil {
		writeError(w, http.StatusNotFound, "no_match")
		return
	}

	e := game.NewEngine(s.now, m.Recorder(ctx))
	if !e.Restore(snap.GameState) {
		writeError(w, http.StatusConflict, "invalid_state")
		return
	}
	res, applied := op(e, snap)
	snap.GameState = e.State()

	if applied {
		if e.Complete() {
			err = m.Complete(ctx, snap)
		} else {
			err = m.Save(ctx, snap)
		}
		if err != nil {
			log.Error().Err(err).Str("mode", string(mode)).Msg("save match")
			writeError(w, http.StatusInternalServerError, "save_failed")
			return
		}
	}
	writeJSON(w, http.StatusOK, ActionResponse{Applied: applied, Snapshot: snap, Result: res})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	mode, ok := modeParam(w, r)
	if !ok {
		return
	}
	res, err := s.manager(w, r).Results(r.Context(), mode)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			log.Warn().Err(err).Str("mode", string(mode)).Msg("read results")
		}
		writeError(w, http.StatusNotFound, "no_results")
		return
	}
	writeJSON(w, http.StatusOK, ResultsResponse{
		Mode:       mode,
		Results:    res,
		TotalScore: game.TotalScore(res),
		TotalTime:  game.TotalTime(res).Milliseconds(),
	})
}
