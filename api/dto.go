package api

import (
	"cardroom/domain/entities"
	"cardroom/domain/utils"
)

// Monetary amounts cross the API boundary as decimal USDC strings
// ("10.00"); internally everything is int64 cents.

type registerRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	FeePaymentRef string `json:"fee_payment_ref"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type depositRequest struct {
	Amount      string `json:"amount"`
	ExternalRef string `json:"external_ref"`
}

type withdrawRequest struct {
	Amount      string `json:"amount"`
	Destination string `json:"destination"`
}

type withdrawResponse struct {
	PayoutID    int64  `json:"payout_id"`
	Amount      string `json:"amount"`
	Destination string `json:"destination"`
	State       string `json:"state"`
	ExternalRef string `json:"external_ref,omitempty"`
}

type createRequest struct {
	Name string `json:"name"`
}

type winnerRequest struct {
	WinnerID int64 `json:"winner_id"`
}

type userResponse struct {
	ID                int64  `json:"id"`
	Username          string `json:"username"`
	Balance           string `json:"balance"`
	AvailableBalance  string `json:"available_balance"`
	GamesPlayed       int    `json:"games_played"`
	GamesWon          int    `json:"games_won"`
	TournamentsPlayed int    `json:"tournaments_played"`
	TournamentsWon    int    `json:"tournaments_won"`
}

type tableResponse struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Status  string   `json:"status"`
	Members []string `json:"members"`
	Winner  *int64   `json:"winner_id"`
}

type tournamentResponse struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Status     string   `json:"status"`
	Round      int      `json:"round"`
	Members    []string `json:"members"`
	Eliminated []string `json:"eliminated"`
	Winner     *int64   `json:"winner_id"`
}

func toUserResponse(u *entities.User) userResponse {
	return userResponse{
		ID:                u.ID,
		Username:          u.Username,
		Balance:           utils.FormatUSDC(u.Balance),
		AvailableBalance:  utils.FormatUSDC(u.AvailableBalance),
		GamesPlayed:       u.GamesPlayed,
		GamesWon:          u.GamesWon,
		TournamentsPlayed: u.TournamentsPlayed,
		TournamentsWon:    u.TournamentsWon,
	}
}

func toTableResponse(t *entities.Table) tableResponse {
	return tableResponse{
		ID:      t.ID,
		Name:    t.Name,
		Status:  string(t.Status),
		Members: t.MemberUsernames(),
		Winner:  t.WinnerID,
	}
}

func toTournamentResponse(tn *entities.Tournament) tournamentResponse {
	return tournamentResponse{
		ID:         tn.ID,
		Name:       tn.Name,
		Status:     string(tn.Status),
		Round:      tn.Round,
		Members:    tn.MemberUsernames(),
		Eliminated: tn.EliminatedUsernames(),
		Winner:     tn.WinnerID,
	}
}

func toWithdrawResponse(p *entities.Payout) withdrawResponse {
	resp := withdrawResponse{
		PayoutID:    p.ID,
		Amount:      utils.FormatUSDC(p.Amount),
		Destination: p.Destination,
		State:       string(p.State),
	}
	if p.ExternalRef != nil {
		resp.ExternalRef = *p.ExternalRef
	}
	return resp
}
