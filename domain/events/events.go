package events

import "cardroom/domain/entities"

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange     EventType = "balance_change"
	EventTypeUserRegistered    EventType = "user_registered"
	EventTypeTableStarted      EventType = "table_started"
	EventTypeTableSettled      EventType = "table_settled"
	EventTypeTournamentRound   EventType = "tournament_round_advanced"
	EventTypeTournamentSettled EventType = "tournament_settled"
	EventTypePayoutStateChange EventType = "payout_state_change"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a committed ledger entry
type BalanceChangeEvent struct {
	UserID       int64              `json:"user_id"`
	OldBalance   int64              `json:"old_balance"`
	NewBalance   int64              `json:"new_balance"`
	ChangeAmount int64              `json:"change_amount"`
	EntryType    entities.EntryType `json:"entry_type"`
}

func (e BalanceChangeEvent) Type() EventType { return EventTypeBalanceChange }

// UserRegisteredEvent represents a new account creation
type UserRegisteredEvent struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

func (e UserRegisteredEvent) Type() EventType { return EventTypeUserRegistered }

// TableStartedEvent fires when a table transitions to in-game
type TableStartedEvent struct {
	TableID     int64 `json:"table_id"`
	MemberCount int   `json:"member_count"`
	FeeCharged  int64 `json:"fee_charged"`
}

func (e TableStartedEvent) Type() EventType { return EventTypeTableStarted }

// TableSettledEvent fires when a table winner has been paid
type TableSettledEvent struct {
	TableID  int64 `json:"table_id"`
	WinnerID int64 `json:"winner_id"`
	Prize    int64 `json:"prize"`
}

func (e TableSettledEvent) Type() EventType { return EventTypeTableSettled }

// TournamentRoundEvent fires after an elimination round
type TournamentRoundEvent struct {
	TournamentID int64   `json:"tournament_id"`
	Round        int     `json:"round"`
	Eliminated   []int64 `json:"eliminated"`
	ActiveLeft   int     `json:"active_left"`
}

func (e TournamentRoundEvent) Type() EventType { return EventTypeTournamentRound }

// TournamentSettledEvent fires when a tournament winner has been paid
type TournamentSettledEvent struct {
	TournamentID int64 `json:"tournament_id"`
	WinnerID     int64 `json:"winner_id"`
	Prize        int64 `json:"prize"`
}

func (e TournamentSettledEvent) Type() EventType { return EventTypeTournamentSettled }

// PayoutStateChangeEvent tracks an outbound transfer through its states
type PayoutStateChangeEvent struct {
	PayoutID int64                `json:"payout_id"`
	UserID   int64                `json:"user_id"`
	Amount   int64                `json:"amount"`
	OldState entities.PayoutState `json:"old_state"`
	NewState entities.PayoutState `json:"new_state"`
}

func (e PayoutStateChangeEvent) Type() EventType { return EventTypePayoutStateChange }
