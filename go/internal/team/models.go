package team

import (
	"time"

	"github.com/google/uuid"
)

// InvitationID uniquely identifies a pending invitation. IDs are
// generated server-side; clients only ever echo them back.
type InvitationID string

// NewInvitationID returns a fresh invitation ID.
func NewInvitationID() InvitationID {
	return InvitationID(uuid.New().String())
}

// Member is one player's seat on a team. Within a team, player IDs are
// unique and exactly one member has IsLeader set while the team is
// non-empty.
type Member struct {
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	TeamID     int       `json:"team_id"`
	IsLeader   bool      `json:"is_leader"`
	JoinedAt   time.Time `json:"joined_at"`
}

// Invitation is a time-bounded offer from a team leader to a
// non-member player. It is consumed exactly once: by accept, decline,
// or expiry.
type Invitation struct {
	ID           InvitationID `json:"id"`
	TeamID       int          `json:"team_id"`
	SenderID     string       `json:"sender_id"`
	SenderName   string       `json:"sender_name"`
	ReceiverID   string       `json:"receiver_id"`
	ReceiverName string       `json:"receiver_name"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Expired reports whether the invitation is older than ttl at now.
func (inv *Invitation) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(inv.CreatedAt) > ttl
}
