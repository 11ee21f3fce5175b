// internal/httpserver/server.go
//
// HTTP server wiring for the UW Guessr backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log).
//   - Public endpoints: "/", "/health", "/openapi.json", "/docs".
//   - Game endpoints (anonymous cookie): mounted under /game/{mode} and /results/{mode}.
//   - Daily Challenge leaderboard: mounted under /daily.
//   - Identity: anonymous cookie + HS256 token issued at POST /auth/token.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Every player is keyed by the anonymous cookie; the token only proves
//     that identity to the submission endpoint.

package httpserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/swaggest/swgui/v5emb"

	"github.com/robalobadob/uwguessr/internal/config"
	"github.com/robalobadob/uwguessr/internal/daily"
	"github.com/robalobadob/uwguessr/internal/photos"
	"github.com/robalobadob/uwguessr/internal/ratelimit"
	"github.com/robalobadob/uwguessr/internal/session"
)

// Deps are the collaborators a Server needs. Redis is optional.
type Deps struct {
	Config  *config.Config
	DB      *sql.DB
	Redis   *redis.Client
	Tab     session.Store
	Durable session.Store
	Photos  photos.Provider
	Scores  *daily.Store
	Limiter ratelimit.Limiter
	Now     daily.Clock
}

// Server bundles router, stores and configuration.
type Server struct {
	r       *chi.Mux
	srv     *http.Server
	cfg     *config.Config
	db      *sql.DB
	rdb     *redis.Client
	tab     session.Store
	durable session.Store
	photos  photos.Provider
	scores  *daily.Store
	limiter ratelimit.Limiter
	now     daily.Clock
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Limiter == nil {
		d.Limiter = ratelimit.NewMemory(d.Config.SubmitLimit, d.Config.SubmitWindow, ratelimit.WithClock(d.Now))
	}
	s := &Server{
		r:       chi.NewRouter(),
		cfg:     d.Config,
		db:      d.DB,
		rdb:     d.Redis,
		tab:     d.Tab,
		durable: d.Durable,
		photos:  d.Photos,
		scores:  d.Scores,
		limiter: d.Limiter,
		now:     d.Now,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)                   // one zerolog line per request
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(s.corsHandler().Handler)         // credentials-friendly CORS

	s.r.Group(func(r chi.Router) {
		r.Use(jsonContentType)

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"uwguessr-go","endpoints":["/health","/game/{mode}/*","/results/{mode}","/daily/*","/docs"]}`))
		})
		r.Get("/health", s.handleHealth)
		r.Get("/openapi.json", handleOpenAPI())

		r.Post("/auth/token", s.handleToken)

		s.mountGame(r)
		s.mountDaily(r)
	})
	s.r.Mount("/docs", v5emb.New("UW Guessr API", "/openapi.json", "/docs"))

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	s.srv = &http.Server{
		Addr:              d.Config.Addr(),
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Run serves until Shutdown is called.
func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	log.Info().Str("addr", s.srv.Addr).Msg("listening")

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests for up to ten seconds.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsHandler enables credentialed CORS for CLIENT_ORIGIN.
func (s *Server) corsHandler() *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   []string{s.cfg.ClientOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("dur", time.Since(start)).
				Str("request_id", chimw.GetReqID(r.Context())).
				Msg("http")
		}()

		next.ServeHTTP(ww, r)
	})
}

// ------------------------------ health -------------------------------------

type healthCheck struct {
	Status string `json:"status"`
}

// HealthResponse maps each dependency to its status.
type HealthResponse map[string]healthCheck

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := HealthResponse{"sqlite": {Status: "ok"}}
	status := http.StatusOK

	if err := s.db.PingContext(ctx); err != nil {
		log.Error().Err(err).Str("name", "sqlite").Msg("health check failed")
		checks["sqlite"] = healthCheck{Status: "error"}
		status = http.StatusServiceUnavailable
	}
	if s.rdb != nil {
		checks["redis"] = healthCheck{Status: "ok"}
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			log.Error().Err(err).Str("name", "redis").Msg("health check failed")
			checks["redis"] = healthCheck{Status: "error"}
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, checks)
}
