package entities

import "time"

// TournamentStatus represents the lifecycle state of a tournament
type TournamentStatus string

const (
	TournamentStatusOpen    TournamentStatus = "open"
	TournamentStatusRunning TournamentStatus = "running"
	TournamentStatusSettled TournamentStatus = "settled"
)

// TournamentMember is one entrant. Order is join order.
type TournamentMember struct {
	UserID     int64  `db:"user_id"`
	Username   string `db:"username"`
	Eliminated bool   `db:"eliminated"`
}

// Tournament is a multi-round elimination bracket:
// open -> running (repeated elimination rounds) -> settled.
type Tournament struct {
	ID        int64              `db:"id"`
	Name      string             `db:"name"`
	Status    TournamentStatus   `db:"status"`
	Round     int                `db:"round"`
	Members   []TournamentMember `db:"-"`
	WinnerID  *int64             `db:"winner_id"`
	CreatedAt time.Time          `db:"created_at"`
}

// IsSettled returns true once a winner has been paid
func (tn *Tournament) IsSettled() bool {
	return tn.Status == TournamentStatusSettled
}

// AcceptsJoins reports whether new entrants may still register.
// Joining is allowed until settlement, matching the open-entry bracket rules.
func (tn *Tournament) AcceptsJoins() bool {
	return !tn.IsSettled() && tn.WinnerID == nil
}

// HasMember reports whether the user entered the tournament
func (tn *Tournament) HasMember(userID int64) bool {
	for _, m := range tn.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// IsActiveMember reports whether the user entered and has not been eliminated
func (tn *Tournament) IsActiveMember(userID int64) bool {
	for _, m := range tn.Members {
		if m.UserID == userID {
			return !m.Eliminated
		}
	}
	return false
}

// ActiveMembers returns the entrants still in contention, in join order
func (tn *Tournament) ActiveMembers() []TournamentMember {
	var active []TournamentMember
	for _, m := range tn.Members {
		if !m.Eliminated {
			active = append(active, m)
		}
	}
	return active
}

// MemberUsernames returns all entrant usernames in join order
func (tn *Tournament) MemberUsernames() []string {
	names := make([]string, len(tn.Members))
	for i, m := range tn.Members {
		names[i] = m.Username
	}
	return names
}

// EliminatedUsernames returns usernames of eliminated entrants in join order
func (tn *Tournament) EliminatedUsernames() []string {
	var names []string
	for _, m := range tn.Members {
		if m.Eliminated {
			names = append(names, m.Username)
		}
	}
	return names
}

// EliminationQuota is how many entrants a round removes from an active field
// of the given size: half the field, but always at least one.
func EliminationQuota(activeCount int) int {
	n := activeCount / 2
	if n < 1 {
		n = 1
	}
	return n
}

// PrizePool is the total collected from entry fees: fee per entrant
func (tn *Tournament) PrizePool(fee int64) int64 {
	return fee * int64(len(tn.Members))
}
