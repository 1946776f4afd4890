package services

import (
	"context"
	"fmt"

	"cardroom/domain/entities"
	"cardroom/domain/events"
	"cardroom/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

type tableService struct {
	tableRepo      interfaces.TableRepository
	userRepo       interfaces.UserRepository
	ledger         interfaces.LedgerService
	eventPublisher interfaces.EventPublisher
	fees           Fees
}

// NewTableService creates a new table service bound to one unit of work
func NewTableService(
	tableRepo interfaces.TableRepository,
	userRepo interfaces.UserRepository,
	ledger interfaces.LedgerService,
	eventPublisher interfaces.EventPublisher,
	fees Fees,
) interfaces.TableService {
	return &tableService{
		tableRepo:      tableRepo,
		userRepo:       userRepo,
		ledger:         ledger,
		eventPublisher: eventPublisher,
		fees:           fees,
	}
}

func (s *tableService) Create(ctx context.Context, name string, creatorID int64) (*entities.Table, error) {
	if name == "" {
		return nil, fmt.Errorf("table name is required")
	}

	creator, err := s.userRepo.GetByID(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get creator: %w", err)
	}
	if creator == nil {
		return nil, fmt.Errorf("user %d: %w", creatorID, entities.ErrNotFound)
	}

	table := &entities.Table{
		Name:   name,
		Status: entities.TableStatusOpen,
	}
	if err := s.tableRepo.Create(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	if _, err := s.tableRepo.AddMember(ctx, table.ID, creatorID); err != nil {
		return nil, fmt.Errorf("failed to seat creator: %w", err)
	}
	table.Members = []entities.TableMember{{UserID: creator.ID, Username: creator.Username}}

	return table, nil
}

func (s *tableService) Join(ctx context.Context, tableID, userID int64) (*entities.Table, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, entities.ErrNotFound)
	}

	table, err := s.tableRepo.GetByIDForUpdate(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to get table: %w", err)
	}
	if table == nil {
		return nil, fmt.Errorf("table %d: %w", tableID, entities.ErrNotFound)
	}

	// Re-joining an existing seat is an explicit no-op.
	if table.HasMember(userID) {
		return table, nil
	}
	if !table.IsOpen() {
		return nil, fmt.Errorf("table %d already started: %w", tableID, entities.ErrInvalidTransition)
	}

	added, err := s.tableRepo.AddMember(ctx, tableID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to seat user: %w", err)
	}
	if added {
		table.Members = append(table.Members, entities.TableMember{
			UserID:   user.ID,
			Username: user.Username,
		})
	}

	return table, nil
}

// Start charges every seated member the game fee and moves the table to
// in-game. Any member who cannot cover the fee aborts the whole transition;
// the surrounding transaction guarantees nobody is partially charged.
func (s *tableService) Start(ctx context.Context, tableID int64) (*entities.Table, error) {
	table, err := s.tableRepo.GetByIDForUpdate(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to get table: %w", err)
	}
	if table == nil {
		return nil, fmt.Errorf("table %d: %w", tableID, entities.ErrNotFound)
	}
	if err := table.CanStart(); err != nil {
		return nil, fmt.Errorf("table %d with %d members: %w", tableID, len(table.Members), err)
	}

	relatedType := entities.RelatedTypeTable
	memberIDs := make([]int64, 0, len(table.Members))
	for _, m := range table.Members {
		if _, err := s.ledger.Record(ctx, entities.BalanceChange{
			UserID:      m.UserID,
			Amount:      -s.fees.Game,
			Type:        entities.EntryTypeGameFee,
			RelatedID:   &table.ID,
			RelatedType: &relatedType,
		}); err != nil {
			return nil, err
		}
		memberIDs = append(memberIDs, m.UserID)
	}

	if err := s.userRepo.IncrementGamesPlayed(ctx, memberIDs); err != nil {
		return nil, fmt.Errorf("failed to update games played: %w", err)
	}

	table.Status = entities.TableStatusInGame
	if err := s.tableRepo.Update(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to update table: %w", err)
	}

	if err := s.eventPublisher.Publish(events.TableStartedEvent{
		TableID:     table.ID,
		MemberCount: len(table.Members),
		FeeCharged:  s.fees.Game,
	}); err != nil {
		log.WithError(err).Error("Failed to publish table started event")
	}

	return table, nil
}

// DeclareWinner pays the full prize pool to the winner in one ledger entry
// and freezes the table. The winner is asserted externally; the service only
// checks membership and settles exactly once.
func (s *tableService) DeclareWinner(ctx context.Context, tableID, winnerID int64) (*entities.Table, error) {
	table, err := s.tableRepo.GetByIDForUpdate(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to get table: %w", err)
	}
	if table == nil {
		return nil, fmt.Errorf("table %d: %w", tableID, entities.ErrNotFound)
	}
	if table.IsSettled() {
		return nil, fmt.Errorf("table %d: %w", tableID, entities.ErrAlreadySettled)
	}
	if !table.IsInGame() {
		return nil, fmt.Errorf("table %d not in game: %w", tableID, entities.ErrInvalidTransition)
	}
	if !table.HasMember(winnerID) {
		return nil, fmt.Errorf("user %d on table %d: %w", winnerID, tableID, entities.ErrWinnerNotMember)
	}

	prize := table.PrizePool(s.fees.Game)
	relatedType := entities.RelatedTypeTable
	if _, err := s.ledger.Record(ctx, entities.BalanceChange{
		UserID:      winnerID,
		Amount:      prize,
		Type:        entities.EntryTypeGameWin,
		RelatedID:   &table.ID,
		RelatedType: &relatedType,
	}); err != nil {
		return nil, err
	}

	if err := s.userRepo.IncrementGamesWon(ctx, winnerID); err != nil {
		return nil, fmt.Errorf("failed to update games won: %w", err)
	}

	table.Status = entities.TableStatusSettled
	table.WinnerID = &winnerID
	if err := s.tableRepo.Update(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to update table: %w", err)
	}

	if err := s.eventPublisher.Publish(events.TableSettledEvent{
		TableID:  table.ID,
		WinnerID: winnerID,
		Prize:    prize,
	}); err != nil {
		log.WithError(err).Error("Failed to publish table settled event")
	}

	return table, nil
}

func (s *tableService) Get(ctx context.Context, tableID int64) (*entities.Table, error) {
	table, err := s.tableRepo.GetByID(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to get table: %w", err)
	}
	if table == nil {
		return nil, fmt.Errorf("table %d: %w", tableID, entities.ErrNotFound)
	}
	return table, nil
}

func (s *tableService) List(ctx context.Context) ([]*entities.Table, error) {
	tables, err := s.tableRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, nil
}
