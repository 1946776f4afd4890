package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"cardroom/auth"
	"cardroom/domain/entities"
	"cardroom/domain/interfaces"
	"cardroom/domain/services"
	"cardroom/domain/utils"

	"github.com/go-chi/chi/v5"
)

// HandlerProvider exposes the HTTP handlers. Transaction-scoped services are
// constructed per request over a fresh unit of work, so every handler's state
// transitions and ledger effects commit or roll back together. The payout
// service is the exception: it owns its transactions because a withdrawal
// deliberately spans two of them.
type HandlerProvider struct {
	uowFactory interfaces.UnitOfWorkFactory
	payouts    *services.PayoutService
	gateway    interfaces.PaymentGateway
	hasher     interfaces.PasswordHasher
	tokens     *auth.TokenIssuer
	rng        interfaces.Rand
	fees       services.Fees
}

// NewHandler returns a new handler provider
func NewHandler(
	uowFactory interfaces.UnitOfWorkFactory,
	payouts *services.PayoutService,
	gateway interfaces.PaymentGateway,
	hasher interfaces.PasswordHasher,
	tokens *auth.TokenIssuer,
	rng interfaces.Rand,
	fees services.Fees,
) *HandlerProvider {
	return &HandlerProvider{
		uowFactory: uowFactory,
		payouts:    payouts,
		gateway:    gateway,
		hasher:     hasher,
		tokens:     tokens,
		rng:        rng,
		fees:       fees,
	}
}

// inTx runs fn inside one unit of work, committing on success
func (h *HandlerProvider) inTx(ctx context.Context, fn func(uow interfaces.UnitOfWork) error) error {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := fn(uow); err != nil {
		return err
	}
	return uow.Commit()
}

func (h *HandlerProvider) accounts(uow interfaces.UnitOfWork) interfaces.AccountService {
	ledger := services.NewLedgerService(uow.Users(), uow.Ledger(), uow.Events())
	return services.NewAccountService(uow.Users(), ledger, h.gateway, h.hasher, uow.Events(), h.fees)
}

func (h *HandlerProvider) tables(uow interfaces.UnitOfWork) interfaces.TableService {
	ledger := services.NewLedgerService(uow.Users(), uow.Ledger(), uow.Events())
	return services.NewTableService(uow.Tables(), uow.Users(), ledger, uow.Events(), h.fees)
}

func (h *HandlerProvider) tournaments(uow interfaces.UnitOfWork) interfaces.TournamentService {
	ledger := services.NewLedgerService(uow.Users(), uow.Ledger(), uow.Events())
	return services.NewTournamentService(uow.Tournaments(), uow.Users(), ledger, uow.Events(), h.rng, h.fees)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body")
		}
		return fmt.Errorf("invalid JSON")
	}
	return nil
}

func idFromPath(r *http.Request) (int64, error) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id")
	}
	return id, nil
}

// parsePositiveAmount converts a decimal USDC string into cents, requiring a
// positive value
func parsePositiveAmount(s string) (int64, error) {
	cents, err := utils.ParseUSDC(s)
	if err != nil {
		return 0, err
	}
	if cents <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}
	return cents, nil
}

// --- Accounts ---

// RegisterHandler handles POST /register
func (h *HandlerProvider) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	passwordHash, err := h.hasher.Hash(req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var user *entities.User
	err = h.inTx(r.Context(), func(uow interfaces.UnitOfWork) error {
		user, err = h.accounts(uow).Register(r.Context(), req.Username, passwordHash, req.FeePaymentRef)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: toUserResponse(user)})
}

// LoginHandler handles POST /login
func (h *HandlerProvider) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var user *entities.User
	err := h.inTx(r.Context(), func(uow interfaces.UnitOfWork) error {
		var err error
		user, err = h.accounts(uow).Authenticate(r.Context(), req.Username, req.Password)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: token, User: toUserResponse(user)})
}

// MeHandler handles GET /me
func (h *HandlerProvider) MeHandler(w http.ResponseWriter, r *http.Request) {
	var user *entities.User
	err := h.inTx(r.Context(), func(uow interfaces.UnitOfWork) error {
		var err error
		user, err = h.accounts(uow).Profile(r.Context(), userIDFrom(r))
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// LeaderboardHandler handles GET /leaderboard
func (h *HandlerProvider) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	var users []*entities.User
	err := h.inTx(r.Context(), func(uow interfaces.UnitOfWork) error {
		var err error
		users, err = h.accounts(uow).Leaderboard(r.Context())
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]userResponse, len(users))
	for i, u := range users {
		resp[i] = toUserResponse(u)
	}
	writeJSON(w, http.StatusOK, resp)
}

// DepositHandler handles POST /deposit
func (h *HandlerProvider) DepositHandler(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := parsePositiveAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var user *entities.User
	err = h.inTx(r.Context(), func(uow interfaces.UnitOfWork) error {
		var err error
		user, err = h.accounts(uow).Deposit(r.Context(), userIDFrom(r), amount, req.ExternalRef)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// WithdrawHandler handles POST /withdraw. No surrounding transaction: the
// payout service owns its own, before and after the gateway call.
func (h *HandlerProvider) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := parsePositiveAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Destination == "" {
		writeError(w, http.StatusBadRequest, "destination is required")
		return
	}

	payout, err := h.payouts.Withdraw(r.Context(), userIDFrom(r), amount, req.Destination)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWithdrawResponse(payout))
}

// --- Tables ---

// CreateTableHandler handles POST /tables
func (h *HandlerProvider) CreateTableHandler(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	var table *entities.Table
	err := h.inTx(r.Context(), func(uow interfaces.UnitOfWork) error {
		var err error
		table, err = h.tables(uow).Create(r.Context(), req.Name, userIDFrom(r))
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTableResponse(table))
}

// ListTablesHandler handles GET /tables
func (h *HandlerProvider) ListTablesHandler(w http.ResponseWriter, r *http.Request) {
	var tables []*entities.Table
	err := h.inTx(r.Context(), func(uow interfaces.UnitOfWork) error {
		var err error
		tables, err = h.tables(uow).List(r.Context())
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = toTableResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetTableHandler handles GET /tables/{id}
func (h *HandlerProvider) GetTableHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var table *entities.Table
	err = h.inTx(r.Context(), func(uow interfaces.UnitOfWork) error {
		var err error
		table, err = h.tables(uow).Get(r.Context(), id)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// JoinTableHandler handles POST /tables/{id}/join
func (h *HandlerProvider) JoinTableHandler(w http.ResponseWriter, r *http.Request) {
	h.tableAction(w, r, func(svc interfaces.TableService, ctx context.Context, id int64) (*entities.Table, error) {
		return svc.Join(ctx, id, userIDFrom(r))
	})
}

// StartTableHandler handles POST /tables/{id}/start
func (h *HandlerProvider) StartTableHandler(w http.ResponseWriter, r *http.Request) {
	h.tableAction(w, r, func(svc interfaces.TableService, ctx context.Context, id int64) (*entities.Table, error) {
		return svc.Start(ctx, id)
	})
}

// TableWinnerHandler handles POST /tables/{id}/winner
func (h *HandlerProvider) TableWinnerHandler(w http.ResponseWriter, r *http.Request) {
	var req winnerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.tableAction(w, r, func(svc interfaces.TableService, ctx context.Context, id int64) (*entities.Table, error) {
		return svc.DeclareWinner(ctx, id, req.WinnerID)
	})
}

func (h *HandlerProvider) tableAction(w http.ResponseWriter, r *http.Request, fn func(svc interfaces.TableService, ctx context.Context, id int64) (*entities.Table, error)) {
	id, err := idFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var table *entities.Table
	err = h.inTx(r.Context(), func(uow interfaces.UnitOfWork) error {
		var err error
		table, err = fn(h.tables(uow), r.Context(), id)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// --- Tournaments ---

// CreateTournamentHandler handles POST /tournaments
func (h *HandlerProvider) CreateTournamentHandler(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	var tournament *entities.Tournament
	err := h.inTx(r.Context(), func(uow interfaces.UnitOfWork) error {
		var err error
		tournament, err = h.tournaments(uow).Create(r.Context(), req.Name, userIDFrom(r))
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTournamentResponse(tournament))
}

// ListTournamentsHandler handles GET /tournaments
func (h *HandlerProvider) ListTournamentsHandler(w http.ResponseWriter, r *http.Request) {
	var tournaments []*entities.Tournament
	err := h.inTx(r.Context(), func(uow interfaces.UnitOfWork) error {
		var err error
		tournaments, err = h.tournaments(uow).List(r.Context())
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]tournamentResponse, len(tournaments))
	for i, tn := range tournaments {
		resp[i] = toTournamentResponse(tn)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetTournamentHandler handles GET /tournaments/{id}
func (h *HandlerProvider) GetTournamentHandler(w http.ResponseWriter, r *http.Request) {
	h.tournamentAction(w, r, func(svc interfaces.TournamentService, ctx context.Context, id int64) (*entities.Tournament, error) {
		return svc.Get(ctx, id)
	})
}

// JoinTournamentHandler handles POST /tournaments/{id}/join
func (h *HandlerProvider) JoinTournamentHandler(w http.ResponseWriter, r *http.Request) {
	h.tournamentAction(w, r, func(svc interfaces.TournamentService, ctx context.Context, id int64) (*entities.Tournament, error) {
		return svc.Join(ctx, id, userIDFrom(r))
	})
}

// AdvanceTournamentHandler handles POST /tournaments/{id}/advance
func (h *HandlerProvider) AdvanceTournamentHandler(w http.ResponseWriter, r *http.Request) {
	h.tournamentAction(w, r, func(svc interfaces.TournamentService, ctx context.Context, id int64) (*entities.Tournament, error) {
		return svc.AdvanceRound(ctx, id)
	})
}

// TournamentWinnerHandler handles POST /tournaments/{id}/winner
func (h *HandlerProvider) TournamentWinnerHandler(w http.ResponseWriter, r *http.Request) {
	var req winnerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.tournamentAction(w, r, func(svc interfaces.TournamentService, ctx context.Context, id int64) (*entities.Tournament, error) {
		return svc.DeclareWinner(ctx, id, req.WinnerID)
	})
}

func (h *HandlerProvider) tournamentAction(w http.ResponseWriter, r *http.Request, fn func(svc interfaces.TournamentService, ctx context.Context, id int64) (*entities.Tournament, error)) {
	id, err := idFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var tournament *entities.Tournament
	err = h.inTx(r.Context(), func(uow interfaces.UnitOfWork) error {
		var err error
		tournament, err = fn(h.tournaments(uow), r.Context(), id)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTournamentResponse(tournament))
}
