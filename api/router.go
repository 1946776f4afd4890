package api

import (
	"net/http"

	"cardroom/auth"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the chi router with all API endpoints registered
func NewRouter(h *HandlerProvider, tokens *auth.TokenIssuer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/register", h.RegisterHandler)
	r.Post("/login", h.LoginHandler)
	r.Get("/leaderboard", h.LeaderboardHandler)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(tokens))

		r.Get("/me", h.MeHandler)
		r.Post("/deposit", h.DepositHandler)
		r.Post("/withdraw", h.WithdrawHandler)

		r.Route("/tables", func(r chi.Router) {
			r.Post("/", h.CreateTableHandler)
			r.Get("/", h.ListTablesHandler)
			r.Get("/{id}", h.GetTableHandler)
			r.Post("/{id}/join", h.JoinTableHandler)
			r.Post("/{id}/start", h.StartTableHandler)
			r.Post("/{id}/winner", h.TableWinnerHandler)
		})

		r.Route("/tournaments", func(r chi.Router) {
			r.Post("/", h.CreateTournamentHandler)
			r.Get("/", h.ListTournamentsHandler)
			r.Get("/{id}", h.GetTournamentHandler)
			r.Post("/{id}/join", h.JoinTournamentHandler)
			r.Post("/{id}/advance", h.AdvanceTournamentHandler)
			r.Post("/{id}/winner", h.TournamentWinnerHandler)
		})
	})

	return r
}
