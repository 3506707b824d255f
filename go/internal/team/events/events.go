// Package events defines the typed event stream emitted by the team
// directory. Payload structs live here, away from the team package,
// so that transport code can depend on them without importing the
// directory itself.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type identifies an event on the wire.
type Type string

const (
	TypeTeamCreated         Type = "TeamCreated"
	TypeMemberJoined        Type = "MemberJoined"
	TypeMemberLeft          Type = "MemberLeft"
	TypeLeaderChanged       Type = "LeaderChanged"
	TypeInvitationSent      Type = "InvitationSent"
	TypeInvitationAccepted  Type = "InvitationAccepted"
	TypeInvitationDeclined  Type = "InvitationDeclined"
	TypeInvitationExpired   Type = "InvitationExpired"
	TypeChatMessage         Type = "ChatMessage"
	TypeVehicleLocked       Type = "VehicleLocked"
	TypeVehicleUnlocked     Type = "VehicleUnlocked"
	TypeTeamSync            Type = "TeamSync"
)

// Event is the envelope for every server-originated state change.
// Targets lists the player IDs the event is addressed to; an empty
// list means broadcast to everyone.
type Event struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	TeamID    int             `json:"team_id,omitempty"`
	Targets   []string        `json:"targets,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// New builds an envelope around a payload.
func New(t Type, teamID int, ts time.Time, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return &Event{
		ID:        uuid.New().String(),
		Type:      t,
		TeamID:    teamID,
		Timestamp: ts,
		Data:      data,
	}, nil
}

// MemberInfo mirrors a directory member on the wire.
type MemberInfo struct {
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	IsLeader   bool      `json:"is_leader"`
	JoinedAt   time.Time `json:"joined_at"`
}

// InvitationInfo mirrors a pending invitation on the wire.
type InvitationInfo struct {
	InvitationID string    `json:"invitation_id"`
	TeamID       int       `json:"team_id"`
	SenderID     string    `json:"sender_id"`
	SenderName   string    `json:"sender_name"`
	ReceiverID   string    `json:"receiver_id"`
	ReceiverName string    `json:"receiver_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// TeamCreatedPayload announces a new solo team.
type TeamCreatedPayload struct {
	TeamID int        `json:"team_id"`
	Leader MemberInfo `json:"leader"`
}

// MemberJoinedPayload announces a player joining an existing team.
type MemberJoinedPayload struct {
	TeamID int        `json:"team_id"`
	Member MemberInfo `json:"member"`
}

// MemberLeftPayload announces a player leaving their team.
type MemberLeftPayload struct {
	TeamID     int    `json:"team_id"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

// LeaderChangedPayload announces leader promotion after the previous
// leader left.
type LeaderChangedPayload struct {
	TeamID     int    `json:"team_id"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

// InvitationSentPayload carries a freshly issued invitation to its
// sender and receiver.
type InvitationSentPayload struct {
	Invitation InvitationInfo `json:"invitation"`
}

// InvitationAcceptedPayload tells the team and the sender that an
// invitation was accepted. The matching MemberJoined broadcast carries
// the membership change itself.
type InvitationAcceptedPayload struct {
	InvitationID string `json:"invitation_id"`
	TeamID       int    `json:"team_id"`
	PlayerID     string `json:"player_id"`
	PlayerName   string `json:"player_name"`
}

// InvitationDeclinedPayload tells the sender an invitation was turned
// down.
type InvitationDeclinedPayload struct {
	InvitationID string `json:"invitation_id"`
	PlayerID     string `json:"player_id"`
}

// InvitationExpiredPayload tells both parties an invitation aged out.
type InvitationExpiredPayload struct {
	InvitationID string `json:"invitation_id"`
	TeamID       int    `json:"team_id"`
}

// ChatMessagePayload carries a team chat line to the team's members.
type ChatMessagePayload struct {
	TeamID     int       `json:"team_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	SentAt     time.Time `json:"sent_at"`
}

// VehicleLockedPayload tells a team one of its members locked a
// vehicle.
type VehicleLockedPayload struct {
	VehicleID string `json:"vehicle_id"`
	TeamID    int    `json:"team_id"`
	PlayerID  string `json:"player_id"`
}

// VehicleUnlockedPayload tells everyone a vehicle is public again.
type VehicleUnlockedPayload struct {
	VehicleID string `json:"vehicle_id"`
	PlayerID  string `json:"player_id"`
}

// TeamSyncPayload is the full membership list for one team, sent to a
// single player on connect and on the periodic sync tick.
type TeamSyncPayload struct {
	TeamID  int          `json:"team_id"`
	Members []MemberInfo `json:"members"`
}
