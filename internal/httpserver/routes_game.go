// internal/httpserver/routes_game.go
//
// HTTP routes for live game sessions:
//   - POST   /game/new          → start a session at level 1
//   - GET    /game/{id}         → current view (+ events after ?since=N)
//   - POST   /game/{id}/pick    → flip a card
//   - POST   /game/{id}/powerup → spend a consumable from the inventory
//   - POST   /game/{id}/advance → deal the next level after a level complete
//   - POST   /game/{id}/restart → new run from level 1
//   - GET    /game/{id}/score   → would the finished run make the leaderboard
//   - POST   /game/{id}/score   → record a finished run on the leaderboard
//   - POST   /game/{id}/dismiss → close a finished run without a score
//   - DELETE /game/{id}         → close the session
//
// Sessions are owner-scoped: another owner's id answers 404.
// Moves that are not valid in the current phase are answered with the
// unchanged view and applied=false.
package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/lemonparty/internal/game"
	"github.com/robalobadob/lemonparty/internal/leaderboard"
	"github.com/robalobadob/lemonparty/internal/level"
)

type gameRes struct {
	game.View
	Applied bool               `json:"applied"`
	Events  []game.LoggedEvent `json:"events,omitempty"`
}

type pickReq struct {
	Card int `json:"card"`
}

type powerupReq struct {
	Kind string `json:"kind"`
}

type scoreReq struct {
	Name string `json:"name"`
}

type scoreRes struct {
	Entry       leaderboard.Entry   `json:"entry"`
	Leaderboard []leaderboard.Entry `json:"leaderboard"`
}

func (s *Server) mountGame(r chi.Router) {
	r.Post("/game/new", s.handleNewGame)
	r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetGame)
		r.Delete("/", s.handleDeleteGame)
		r.Post("/pick", s.withSession(s.handlePick))
		r.Post("/powerup", s.withSession(s.handlePowerup))
		r.Post("/advance", s.withSession(func(w http.ResponseWriter, r *http.Request, g *game.Session) {
			v, err := g.Advance(r.Context())
			s.writeView(w, r, v, err)
		}))
		r.Post("/restart", s.withSession(func(w http.ResponseWriter, r *http.Request, g *game.Session) {
			v, err := g.Restart(r.Context())
			s.writeView(w, r, v, err)
		}))
		r.Get("/score", s.withSession(func(w http.ResponseWriter, r *http.Request, g *game.Session) {
			check, err := g.CheckScore(r.Context())
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, check)
		}))
		r.Post("/score", s.withSession(s.handleScore))
		r.Post("/dismiss", s.withSession(func(w http.ResponseWriter, r *http.Request, g *game.Session) {
			v, err := g.Dismiss(r.Context())
			s.writeView(w, r, v, err)
		}))
	})
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	g, err := s.deps.Games.Create(r.Context(), s.owner(w, r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, gameRes{View: g.View(), Applied: true})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	g, err := s.deps.Games.Get(chi.URLParam(r, "id"), s.owner(w, r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	res := gameRes{View: g.View(), Applied: true}
	if v := r.URL.Query().Get("since"); v != "" {
		since, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_since"})
			return
		}
		res.Events = g.EventsSince(since)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Games.Delete(chi.URLParam(r, "id"), s.owner(w, r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handlePick(w http.ResponseWriter, r *http.Request, g *game.Session) {
	var req pickReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ok, v, err := g.Pick(r.Context(), req.Card)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gameRes{View: v, Applied: ok})
}

func (s *Server) handlePowerup(w http.ResponseWriter, r *http.Request, g *game.Session) {
	var req powerupReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	kind, err := level.ParsePowerup(req.Kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := g.UsePowerup(r.Context(), kind)
	s.writeView(w, r, v, err)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request, g *game.Session) {
	var req scoreReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, top, err := g.SubmitScore(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, scoreRes{Entry: entry, Leaderboard: top})
}

// withSession resolves {id} for the caller before running h.
func (s *Server) withSession(h func(http.ResponseWriter, *http.Request, *game.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := s.deps.Games.Get(chi.URLParam(r, "id"), s.owner(w, r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		h(w, r, g)
	}
}

// writeView answers a session command. Rejected transitions are not errors.
func (s *Server) writeView(w http.ResponseWriter, r *http.Request, v game.View, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, gameRes{View: v, Applied: true})
	case isNoop(err):
		writeJSON(w, http.StatusOK, gameRes{View: v, Applied: false})
	default:
		writeError(w, r, err)
	}
}
