// internal/httpserver/routes_economy.go
//
// HTTP routes for the coin economy (all keyed by the caller's owner id):
//   - GET  /profile                 → coins, inventory, wardrobe, claim dates
//   - POST /shop/consumables/{kind} → buy one powerup use
//   - POST /shop/fashion/{id}       → buy a wardrobe item
//   - POST /wardrobe/{id}/equip     → toggle an owned item in its slot
//   - POST /daily/spin              → once-a-day random coin reward
//   - GET  /quiz                    → today's questions
//   - POST /quiz/claim              → once-a-day quiz payout
package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/lemonparty/internal/daily"
	"github.com/robalobadob/lemonparty/internal/economy"
	"github.com/robalobadob/lemonparty/internal/level"
	"github.com/robalobadob/lemonparty/internal/quiz"
)

type rewardRes struct {
	Amount  int             `json:"amount"`
	Profile economy.Profile `json:"profile"`
}

type quizRes struct {
	Date      string          `json:"date"`
	Questions []quiz.Question `json:"questions"`
}

// quizClaimReq carries either the client's tally or the raw answers,
// which are graded against the local bank's round for today.
type quizClaimReq struct {
	Correct *int  `json:"correct"`
	Answers []int `json:"answers"`
}

func (s *Server) mountEconomy(r chi.Router) {
	r.Get("/profile", func(w http.ResponseWriter, r *http.Request) {
		p, err := s.deps.Ledger.Profile(r.Context(), s.owner(w, r))
		s.writeProfile(w, r, p, err)
	})
	r.Post("/shop/consumables/{kind}", func(w http.ResponseWriter, r *http.Request) {
		kind, err := level.ParsePowerup(chi.URLParam(r, "kind"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		p, err := s.deps.Ledger.PurchaseConsumable(r.Context(), s.owner(w, r), kind)
		s.writeProfile(w, r, p, err)
	})
	r.Post("/shop/fashion/{id}", func(w http.ResponseWriter, r *http.Request) {
		p, err := s.deps.Ledger.PurchaseCosmetic(r.Context(), s.owner(w, r), chi.URLParam(r, "id"))
		s.writeProfile(w, r, p, err)
	})
	r.Post("/wardrobe/{id}/equip", func(w http.ResponseWriter, r *http.Request) {
		p, err := s.deps.Ledger.Equip(r.Context(), s.owner(w, r), chi.URLParam(r, "id"))
		s.writeProfile(w, r, p, err)
	})
	r.Post("/daily/spin", s.handleSpin)
	r.Get("/quiz", s.handleQuiz)
	r.Post("/quiz/claim", s.handleQuizClaim)
}

func (s *Server) writeProfile(w http.ResponseWriter, r *http.Request, p economy.Profile, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleSpin(w http.ResponseWriter, r *http.Request) {
	amount, p, err := s.deps.Ledger.DailySpin(r.Context(), s.owner(w, r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rewardRes{Amount: amount, Profile: p})
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	now := s.deps.Now().UTC()
	writeJSON(w, http.StatusOK, quizRes{
		Date:      daily.DateKey(now),
		Questions: s.deps.Quiz.Round(r.Context(), now),
	})
}

func (s *Server) handleQuizClaim(w http.ResponseWriter, r *http.Request) {
	var req quizClaimReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	correct := 0
	switch {
	case req.Answers != nil:
		correct = quiz.Tally(s.deps.Quiz.Today(r.Context(), s.deps.Now().UTC()), req.Answers)
	case req.Correct != nil:
		correct = *req.Correct
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "correct or answers required"})
		return
	}
	amount, p, err := s.deps.Ledger.DailyQuiz(r.Context(), s.owner(w, r), correct)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rewardRes{Amount: amount, Profile: p})
}
