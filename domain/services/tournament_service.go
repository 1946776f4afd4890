package services

import (
	"context"
	"fmt"

	"cardroom/domain/entities"
	"cardroom/domain/events"
	"cardroom/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

type tournamentService struct {
	tournamentRepo interfaces.TournamentRepository
	userRepo       interfaces.UserRepository
	ledger         interfaces.LedgerService
	eventPublisher interfaces.EventPublisher
	rng            interfaces.Rand
	fees           Fees
}

// NewTournamentService creates a new tournament service bound to one unit of
// work. rng decides eliminations; inject a seeded source for reproducibility.
func NewTournamentService(
	tournamentRepo interfaces.TournamentRepository,
	userRepo interfaces.UserRepository,
	ledger interfaces.LedgerService,
	eventPublisher interfaces.EventPublisher,
	rng interfaces.Rand,
	fees Fees,
) interfaces.TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		userRepo:       userRepo,
		ledger:         ledger,
		eventPublisher: eventPublisher,
		rng:            rng,
		fees:           fees,
	}
}

func (s *tournamentService) Create(ctx context.Context, name string, creatorID int64) (*entities.Tournament, error) {
	if name == "" {
		return nil, fmt.Errorf("tournament name is required")
	}

	creator, err := s.userRepo.GetByID(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get creator: %w", err)
	}
	if creator == nil {
		return nil, fmt.Errorf("user %d: %w", creatorID, entities.ErrNotFound)
	}

	tournament := &entities.Tournament{
		Name:   name,
		Status: entities.TournamentStatusOpen,
		Round:  1,
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	if err := s.enroll(ctx, tournament, creator); err != nil {
		return nil, err
	}

	return tournament, nil
}

func (s *tournamentService) Join(ctx context.Context, tournamentID, userID int64) (*entities.Tournament, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, entities.ErrNotFound)
	}

	tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	if tournament == nil {
		return nil, fmt.Errorf("tournament %d: %w", tournamentID, entities.ErrNotFound)
	}

	// Re-joining is an explicit no-op; entrants pay the entry fee once.
	if tournament.HasMember(userID) {
		return tournament, nil
	}
	if !tournament.AcceptsJoins() {
		return nil, fmt.Errorf("tournament %d: %w", tournamentID, entities.ErrAlreadySettled)
	}

	if err := s.enroll(ctx, tournament, user); err != nil {
		return nil, err
	}

	return tournament, nil
}

// enroll seats a new entrant: membership row, entry fee debit and
// tournaments_played counter commit together. Charging the fee at entry
// keeps the prize pool equal to fee x entrant count no matter when players
// join.
func (s *tournamentService) enroll(ctx context.Context, tournament *entities.Tournament, user *entities.User) error {
	added, err := s.tournamentRepo.AddMember(ctx, tournament.ID, user.ID)
	if err != nil {
		return fmt.Errorf("failed to add entrant: %w", err)
	}
	if !added {
		return nil
	}

	relatedType := entities.RelatedTypeTournament
	if _, err := s.ledger.Record(ctx, entities.BalanceChange{
		UserID:      user.ID,
		Amount:      -s.fees.Tournament,
		Type:        entities.EntryTypeTournamentFee,
		RelatedID:   &tournament.ID,
		RelatedType: &relatedType,
	}); err != nil {
		return err
	}

	if err := s.userRepo.IncrementTournamentsPlayed(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to update tournaments played: %w", err)
	}

	tournament.Members = append(tournament.Members, entities.TournamentMember{
		UserID:   user.ID,
		Username: user.Username,
	})
	return nil
}

// AdvanceRound eliminates half the active field (at least one entrant),
// chosen uniformly at random without replacement. With a single active
// entrant left the call is terminal and settles the tournament; with none
// left it fails explicitly rather than guessing a winner.
func (s *tournamentService) AdvanceRound(ctx context.Context, tournamentID int64) (*entities.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	if tournament == nil {
		return nil, fmt.Errorf("tournament %d: %w", tournamentID, entities.ErrNotFound)
	}
	if tournament.IsSettled() || tournament.WinnerID != nil {
		return nil, fmt.Errorf("tournament %d: %w", tournamentID, entities.ErrAlreadySettled)
	}

	active := tournament.ActiveMembers()
	switch len(active) {
	case 0:
		return nil, fmt.Errorf("tournament %d: %w", tournamentID, entities.ErrNoActivePlayers)
	case 1:
		// The terminal round still counts: the field shrank to one entrant
		// and this call resolves it, so the round number advances like any
		// other advance before settlement persists it.
		tournament.Round++
		if err := s.settle(ctx, tournament, active[0].UserID); err != nil {
			return nil, err
		}
		return tournament, nil
	}

	quota := entities.EliminationQuota(len(active))
	perm := s.rng.Perm(len(active))
	eliminated := make([]int64, 0, quota)
	for _, idx := range perm[:quota] {
		eliminated = append(eliminated, active[idx].UserID)
	}

	if err := s.tournamentRepo.MarkEliminated(ctx, tournament.ID, eliminated); err != nil {
		return nil, fmt.Errorf("failed to mark eliminations: %w", err)
	}
	for i := range tournament.Members {
		for _, id := range eliminated {
			if tournament.Members[i].UserID == id {
				tournament.Members[i].Eliminated = true
			}
		}
	}

	tournament.Round++
	tournament.Status = entities.TournamentStatusRunning
	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		return nil, fmt.Errorf("failed to update tournament: %w", err)
	}

	if err := s.eventPublisher.Publish(events.TournamentRoundEvent{
		TournamentID: tournament.ID,
		Round:        tournament.Round,
		Eliminated:   eliminated,
		ActiveLeft:   len(active) - quota,
	}); err != nil {
		log.WithError(err).Error("Failed to publish tournament round event")
	}

	return tournament, nil
}

func (s *tournamentService) DeclareWinner(ctx context.Context, tournamentID, winnerID int64) (*entities.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	if tournament == nil {
		return nil, fmt.Errorf("tournament %d: %w", tournamentID, entities.ErrNotFound)
	}
	if tournament.IsSettled() || tournament.WinnerID != nil {
		return nil, fmt.Errorf("tournament %d: %w", tournamentID, entities.ErrAlreadySettled)
	}
	if !tournament.IsActiveMember(winnerID) {
		return nil, fmt.Errorf("user %d in tournament %d: %w", winnerID, tournamentID, entities.ErrWinnerNotMember)
	}

	if err := s.settle(ctx, tournament, winnerID); err != nil {
		return nil, err
	}
	return tournament, nil
}

// settle pays the prize pool to the winner in one ledger entry and freezes
// the tournament. Callers hold the row lock, so settlement happens at most
// once.
func (s *tournamentService) settle(ctx context.Context, tournament *entities.Tournament, winnerID int64) error {
	prize := tournament.PrizePool(s.fees.Tournament)
	relatedType := entities.RelatedTypeTournament
	if _, err := s.ledger.Record(ctx, entities.BalanceChange{
		UserID:      winnerID,
		Amount:      prize,
		Type:        entities.EntryTypeTournamentWin,
		RelatedID:   &tournament.ID,
		RelatedType: &relatedType,
	}); err != nil {
		return err
	}

	if err := s.userRepo.IncrementTournamentsWon(ctx, winnerID); err != nil {
		return fmt.Errorf("failed to update tournaments won: %w", err)
	}

	tournament.Status = entities.TournamentStatusSettled
	tournament.WinnerID = &winnerID
	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		return fmt.Errorf("failed to update tournament: %w", err)
	}

	if err := s.eventPublisher.Publish(events.TournamentSettledEvent{
		TournamentID: tournament.ID,
		WinnerID:     winnerID,
		Prize:        prize,
	}); err != nil {
		log.WithError(err).Error("Failed to publish tournament settled event")
	}
	return nil
}

func (s *tournamentService) Get(ctx context.Context, tournamentID int64) (*entities.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	if tournament == nil {
		return nil, fmt.Errorf("tournament %d: %w", tournamentID, entities.ErrNotFound)
	}
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context) ([]*entities.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return tournaments, nil
}
