// internal/httpserver/server.go
//
// HTTP server wiring for the Lemon Party backend.
// Responsibilities:
//   - Router + middleware (request IDs, access logs, CORS, timeouts, panic recovery).
//   - Public endpoints: "/", "/health", "/levels", "/shop", "/leaderboard".
//   - Game session endpoints under /game (optional auth; guests can play).
//   - Economy endpoints: profile, shop purchases, wardrobe, daily spin, quiz.
//   - Auth endpoints under /auth (see auth.go).
//
// Notes:
//   - Every player-facing route resolves an owner: the signed-in user id, or
//     an anonymous cookie id for guests.
//   - Domain errors are mapped to status codes in one place (writeError).
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/lemonparty/internal/config"
	"github.com/robalobadob/lemonparty/internal/economy"
	"github.com/robalobadob/lemonparty/internal/game"
	"github.com/robalobadob/lemonparty/internal/leaderboard"
	"github.com/robalobadob/lemonparty/internal/level"
	"github.com/robalobadob/lemonparty/internal/match"
	"github.com/robalobadob/lemonparty/internal/quiz"
	"github.com/robalobadob/lemonparty/internal/store"
)

// Deps are the collaborators the handlers need.
type Deps struct {
	Config  config.Config
	Backend store.Backend
	Catalog *level.Catalog
	Ledger  *economy.Ledger
	Board   *leaderboard.Board
	Games   *game.Manager
	Quiz    *quiz.Service
	Now     func() time.Time
}

// Server bundles the router and its dependencies.
type Server struct {
	r    *chi.Mux
	cfg  config.Config
	deps Deps
	http *http.Server
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	if d.Now == nil {
		d.Now = time.Now
	}
	s := &Server{r: chi.NewRouter(), cfg: d.Config, deps: d}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(hlog.NewHandler(log.Logger))
	s.r.Use(accessLog)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(10 * time.Second))
	s.r.Use(jsonContentType)
	s.r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.cfg.ClientOrigin},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":   "lemonparty",
			"endpoints": []string{"/health", "/levels", "/shop", "/leaderboard", "/game/*", "/profile", "/daily/spin", "/quiz", "/auth/*"},
		})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	// --- static game data ---
	s.r.Get("/levels", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.deps.Catalog.All())
	})
	s.r.Get("/shop", s.handleShop)
	s.r.Get("/leaderboard", s.handleLeaderboard)

	// Player routes: OPTIONAL AUTH (guests play under an anonymous id)
	s.r.Group(func(r chi.Router) {
		r.Use(s.withOptionalAuth())
		s.mountGame(r)
		s.mountEconomy(r)
	})

	s.mountAuthRoutes()

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})
	return s
}

// Start serves HTTP on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// accessLog writes one line per request with the chi request id.
var accessLog = hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
	hlog.FromRequest(r).Info().
		Str("req_id", chimw.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
})

// ------------------------------- responses ---------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, economy.ErrInsufficientFunds):
		status, code = http.StatusPaymentRequired, "insufficient_funds"
	case errors.Is(err, economy.ErrAlreadyClaimedToday):
		status, code = http.StatusConflict, "already_claimed_today"
	case errors.Is(err, economy.ErrAlreadyOwned):
		status, code = http.StatusConflict, "already_owned"
	case errors.Is(err, economy.ErrNotOwned):
		status, code = http.StatusConflict, "not_owned"
	case errors.Is(err, economy.ErrEmptyInventory):
		status, code = http.StatusConflict, "empty_inventory"
	case errors.Is(err, economy.ErrUnknownItem), errors.Is(err, level.ErrUnknownPowerup):
		status, code = http.StatusNotFound, "unknown_item"
	case errors.Is(err, economy.ErrInvalidAmount), errors.Is(err, leaderboard.ErrInvalidName), errors.Is(err, errBadRequest):
		status, code = http.StatusBadRequest, "bad_request"
	case errors.Is(err, game.ErrSessionNotFound), errors.Is(err, game.ErrSessionClosed):
		status, code = http.StatusNotFound, "game_not_found"
	case errors.Is(err, game.ErrNotFinished):
		status, code = http.StatusConflict, "run_not_finished"
	case errors.Is(err, game.ErrNoLeaderboard):
		status, code = http.StatusServiceUnavailable, "leaderboard_unavailable"
	case errors.Is(err, level.ErrConfiguration):
		status, code = http.StatusInternalServerError, "configuration_error"
	}
	if status >= 500 {
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": code, "message": err.Error()})
}

var errBadRequest = errors.New("bad request")

// decode reads an optional JSON body into v. An empty body leaves v as is.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errors.Join(errBadRequest, err)
	}
	return nil
}

// ------------------------------ public data --------------------------------

func (s *Server) handleShop(w http.ResponseWriter, r *http.Request) {
	shop := s.deps.Ledger.Shop()
	writeJSON(w, http.StatusOK, map[string]any{
		"consumables": shop.Consumables(),
		"cosmetics":   shop.Cosmetics(),
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Board.Top(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// isNoop reports whether err is a rejected transition, which the API
// answers with the unchanged state rather than an error.
func isNoop(err error) bool { return errors.Is(err, match.ErrInvalidTransition) }
