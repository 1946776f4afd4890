package entities

import "time"

// TableStatus represents the lifecycle state of a table
type TableStatus string

const (
	TableStatusOpen    TableStatus = "open"
	TableStatusInGame  TableStatus = "in_game"
	TableStatusSettled TableStatus = "settled"
)

// MinTableMembers is the smallest membership a table can start with.
// A single-member game has nobody to play against.
const MinTableMembers = 2

// TableMember is one seat at a table. Seat order is join order.
type TableMember struct {
	UserID   int64  `db:"user_id"`
	Username string `db:"username"`
}

// Table is a single-round wagered game table: open -> in_game -> settled.
// Once settled it is immutable.
type Table struct {
	ID        int64         `db:"id"`
	Name      string        `db:"name"`
	Status    TableStatus   `db:"status"`
	Members   []TableMember `db:"-"`
	WinnerID  *int64        `db:"winner_id"`
	CreatedAt time.Time     `db:"created_at"`
}

// IsOpen returns true while the table accepts joins
func (t *Table) IsOpen() bool {
	return t.Status == TableStatusOpen
}

// IsInGame returns true between start and settlement
func (t *Table) IsInGame() bool {
	return t.Status == TableStatusInGame
}

// IsSettled returns true once a winner has been paid
func (t *Table) IsSettled() bool {
	return t.Status == TableStatusSettled
}

// HasMember reports whether the user holds a seat
func (t *Table) HasMember(userID int64) bool {
	for _, m := range t.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// MemberUsernames returns usernames in join order
func (t *Table) MemberUsernames() []string {
	names := make([]string, len(t.Members))
	for i, m := range t.Members {
		names[i] = m.Username
	}
	return names
}

// PrizePool is the total collected at start: fee per seat
func (t *Table) PrizePool(fee int64) int64 {
	return fee * int64(len(t.Members))
}

// CanStart checks the start precondition without mutating state
func (t *Table) CanStart() error {
	if !t.IsOpen() {
		return ErrInvalidTransition
	}
	if len(t.Members) < MinTableMembers {
		return ErrInvalidTransition
	}
	return nil
}
