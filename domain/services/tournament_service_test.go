package services

import (
	"context"
	"math/rand"
	"testing"

	"cardroom/domain/entities"
	"cardroom/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type tournamentServiceMocks struct {
	tournamentRepo *testhelpers.MockTournamentRepository
	userRepo       *testhelpers.MockUserRepository
	ledger         *testhelpers.MockLedgerService
	publisher      *testhelpers.MockEventPublisher
}

func newTournamentService(seed int64) (*tournamentServiceMocks, *tournamentService) {
	m := &tournamentServiceMocks{
		tournamentRepo: new(testhelpers.MockTournamentRepository),
		userRepo:       new(testhelpers.MockUserRepository),
		ledger:         new(testhelpers.MockLedgerService),
		publisher:      new(testhelpers.MockEventPublisher),
	}
	fees := Fees{Registration: 2000, Game: 3, Tournament: 100}
	rng := rand.New(rand.NewSource(seed))
	svc := NewTournamentService(m.tournamentRepo, m.userRepo, m.ledger, m.publisher, rng, fees).(*tournamentService)
	return m, svc
}

func bracketOf(members ...entities.TournamentMember) *entities.Tournament {
	return &entities.Tournament{
		ID:      9,
		Name:    "bracket",
		Status:  entities.TournamentStatusRunning,
		Round:   1,
		Members: members,
	}
}

func TestTournamentService_Join(t *testing.T) {
	ctx := context.Background()

	t.Run("entry fee charged exactly once", func(t *testing.T) {
		m, svc := newTournamentService(1)

		m.userRepo.On("GetByID", ctx, int64(2)).Return(&entities.User{ID: 2, Username: "bob"}, nil)
		m.tournamentRepo.On("GetByIDForUpdate", ctx, int64(9)).Return(bracketOf(
			entities.TournamentMember{UserID: 1, Username: "alice"},
		), nil)
		m.tournamentRepo.On("AddMember", ctx, int64(9), int64(2)).Return(true, nil)
		m.ledger.On("Record", ctx, mock.MatchedBy(func(c entities.BalanceChange) bool {
			return c.UserID == 2 && c.Amount == -100 && c.Type == entities.EntryTypeTournamentFee
		})).Return(&entities.LedgerEntry{}, nil).Once()
		m.userRepo.On("IncrementTournamentsPlayed", ctx, int64(2)).Return(nil)

		tournament, err := svc.Join(ctx, 9, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, tournament.MemberUsernames())
		m.ledger.AssertExpectations(t)
	})

	t.Run("rejoining is a no-op, no second fee", func(t *testing.T) {
		m, svc := newTournamentService(1)

		m.userRepo.On("GetByID", ctx, int64(1)).Return(&entities.User{ID: 1, Username: "alice"}, nil)
		m.tournamentRepo.On("GetByIDForUpdate", ctx, int64(9)).Return(bracketOf(
			entities.TournamentMember{UserID: 1, Username: "alice"},
		), nil)

		tournament, err := svc.Join(ctx, 9, 1)
		require.NoError(t, err)
		assert.Len(t, tournament.Members, 1)
		m.tournamentRepo.AssertNotCalled(t, "AddMember", mock.Anything, mock.Anything, mock.Anything)
		m.ledger.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("settled tournament rejects entrants", func(t *testing.T) {
		m, svc := newTournamentService(1)

		settled := bracketOf(entities.TournamentMember{UserID: 1, Username: "alice"})
		settled.Status = entities.TournamentStatusSettled
		m.userRepo.On("GetByID", ctx, int64(2)).Return(&entities.User{ID: 2, Username: "bob"}, nil)
		m.tournamentRepo.On("GetByIDForUpdate", ctx, int64(9)).Return(settled, nil)

		_, err := svc.Join(ctx, 9, 2)
		assert.ErrorIs(t, err, entities.ErrAlreadySettled)
	})
}

func TestTournamentService_AdvanceRound(t *testing.T) {
	ctx := context.Background()

	fourActive := func() *entities.Tournament {
		return bracketOf(
			entities.TournamentMember{UserID: 1, Username: "alice"},
			entities.TournamentMember{UserID: 2, Username: "bob"},
			entities.TournamentMember{UserID: 3, Username: "carol"},
			entities.TournamentMember{UserID: 4, Username: "dave"},
		)
	}

	t.Run("eliminates half the field at random", func(t *testing.T) {
		const seed = 42
		m, svc := newTournamentService(seed)

		// Same seed as the service, so the expected cut is known up front
		perm := rand.New(rand.NewSource(seed)).Perm(4)
		expected := []int64{int64(perm[0]) + 1, int64(perm[1]) + 1}

		tournament := fourActive()
		m.tournamentRepo.On("GetByIDForUpdate", ctx, int64(9)).Return(tournament, nil)
		m.tournamentRepo.On("MarkEliminated", ctx, int64(9), expected).Return(nil)
		m.tournamentRepo.On("Update", ctx, mock.MatchedBy(func(tn *entities.Tournament) bool {
			return tn.Round == 2 && tn.Status == entities.TournamentStatusRunning
		})).Return(nil)
		m.publisher.On("Publish", mock.Anything).Return(nil)

		result, err := svc.AdvanceRound(ctx, 9)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Round)
		assert.Len(t, result.ActiveMembers(), 2)
		for _, id := range expected {
			assert.False(t, result.IsActiveMember(id))
		}
		m.tournamentRepo.AssertExpectations(t)
	})

	t.Run("last active entrant wins and is paid", func(t *testing.T) {
		m, svc := newTournamentService(1)

		tournament := bracketOf(
			entities.TournamentMember{UserID: 1, Username: "alice", Eliminated: true},
			entities.TournamentMember{UserID: 2, Username: "bob", Eliminated: true},
			entities.TournamentMember{UserID: 3, Username: "carol"},
		)
		m.tournamentRepo.On("GetByIDForUpdate", ctx, int64(9)).Return(tournament, nil)
		// 3 entrants x 100 cents
		m.ledger.On("Record", ctx, mock.MatchedBy(func(c entities.BalanceChange) bool {
			return c.UserID == 3 && c.Amount == 300 && c.Type == entities.EntryTypeTournamentWin
		})).Return(&entities.LedgerEntry{}, nil)
		m.userRepo.On("IncrementTournamentsWon", ctx, int64(3)).Return(nil)
		// The resolving call is still a round: it persists as round 2
		m.tournamentRepo.On("Update", ctx, mock.MatchedBy(func(tn *entities.Tournament) bool {
			return tn.IsSettled() && tn.WinnerID != nil && *tn.WinnerID == 3 && tn.Round == 2
		})).Return(nil)
		m.publisher.On("Publish", mock.Anything).Return(nil)

		result, err := svc.AdvanceRound(ctx, 9)
		require.NoError(t, err)
		assert.True(t, result.IsSettled())
		assert.Equal(t, 2, result.Round)
		m.ledger.AssertExpectations(t)
		m.tournamentRepo.AssertExpectations(t)
	})

	t.Run("no active entrants left", func(t *testing.T) {
		m, svc := newTournamentService(1)

		tournament := bracketOf(
			entities.TournamentMember{UserID: 1, Username: "alice", Eliminated: true},
		)
		m.tournamentRepo.On("GetByIDForUpdate", ctx, int64(9)).Return(tournament, nil)

		_, err := svc.AdvanceRound(ctx, 9)
		assert.ErrorIs(t, err, entities.ErrNoActivePlayers)
	})

	t.Run("settled tournament cannot advance", func(t *testing.T) {
		m, svc := newTournamentService(1)

		settled := fourActive()
		settled.Status = entities.TournamentStatusSettled
		m.tournamentRepo.On("GetByIDForUpdate", ctx, int64(9)).Return(settled, nil)

		_, err := svc.AdvanceRound(ctx, 9)
		assert.ErrorIs(t, err, entities.ErrAlreadySettled)
	})
}

func TestTournamentService_DeclareWinner(t *testing.T) {
	ctx := context.Background()

	t.Run("eliminated entrant cannot win", func(t *testing.T) {
		m, svc := newTournamentService(1)

		tournament := bracketOf(
			entities.TournamentMember{UserID: 1, Username: "alice", Eliminated: true},
			entities.TournamentMember{UserID: 2, Username: "bob"},
		)
		m.tournamentRepo.On("GetByIDForUpdate", ctx, int64(9)).Return(tournament, nil)

		_, err := svc.DeclareWinner(ctx, 9, 1)
		assert.ErrorIs(t, err, entities.ErrWinnerNotMember)
		m.ledger.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("active entrant settles the bracket", func(t *testing.T) {
		m, svc := newTournamentService(1)

		tournament := bracketOf(
			entities.TournamentMember{UserID: 1, Username: "alice", Eliminated: true},
			entities.TournamentMember{UserID: 2, Username: "bob"},
		)
		m.tournamentRepo.On("GetByIDForUpdate", ctx, int64(9)).Return(tournament, nil)
		m.ledger.On("Record", ctx, mock.MatchedBy(func(c entities.BalanceChange) bool {
			return c.UserID == 2 && c.Amount == 200 && c.Type == entities.EntryTypeTournamentWin
		})).Return(&entities.LedgerEntry{}, nil)
		m.userRepo.On("IncrementTournamentsWon", ctx, int64(2)).Return(nil)
		m.tournamentRepo.On("Update", ctx, mock.Anything).Return(nil)
		m.publisher.On("Publish", mock.Anything).Return(nil)

		result, err := svc.DeclareWinner(ctx, 9, 2)
		require.NoError(t, err)
		assert.True(t, result.IsSettled())
		require.NotNil(t, result.WinnerID)
		assert.Equal(t, int64(2), *result.WinnerID)
	})
}
